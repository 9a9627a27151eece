// Package timex contains JSON-friendly time types: a Duration that accepts
// both "30m"-style strings and integer nanoseconds, and a Time that keeps
// the millisecond-precision UTC format used by the persisted ledger
// documents this service exchanges.
package timex

import (
	"encoding/json"
	"errors"
	"time"
)

// Duration wraps time.Duration for JSON configs. It unmarshals either a
// string accepted by time.ParseDuration ("15m", "1h30m") or a plain number
// of nanoseconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("invalid duration")
	}
}
