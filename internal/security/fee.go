package security

// Default fee parameters. A transfer fee is a percentage of the amount with
// a floor, so even tiny transfers pay something.
const (
	DefaultFeeRate = 0.01
	DefaultMinFee  = 0.01
)

// FeeSchedule computes transfer fees.
type FeeSchedule struct {
	Rate   float64
	MinFee float64
}

// DefaultFeeSchedule returns the production fee parameters.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{Rate: DefaultFeeRate, MinFee: DefaultMinFee}
}

// Fee returns max(amount*rate, minFee).
func (f FeeSchedule) Fee(amount float64) float64 {
	fee := amount * f.Rate
	if fee < f.MinFee {
		return f.MinFee
	}
	return fee
}
