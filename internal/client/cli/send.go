package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-usd/phonechain/internal/security"
)

func (a *App) send(ctx context.Context) {

	to, err := GetSimpleText(a.reader, "Recipient phone number", os.Stdout)
	if err != nil {
		a.reportError(err)
		return
	}

	amount, err := GetAmount(a.reader, "Amount (USD)", os.Stdout)
	if err != nil {
		a.reportError(err)
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		a.reportError(err)
		return
	}
	defer security.Wipe(password)

	res, err := a.api.Transfer(ctx, to, amount, password)
	if err != nil {
		a.reportError(err)
		return
	}

	fmt.Printf("Sent %.2f USD to %s (fee %.2f, total %.2f)\n",
		res.Amount, res.Recipient, res.Fee, res.Total)
	fmt.Printf("Transaction: %s\n", res.TransactionID)
}

func (a *App) topup(ctx context.Context) {

	amount, err := GetAmount(a.reader, "Amount (USD)", os.Stdout)
	if err != nil {
		a.reportError(err)
		return
	}

	tx, err := a.api.Faucet(ctx, amount)
	if err != nil {
		a.reportError(err)
		return
	}

	fmt.Printf("Added %.2f USD (transaction %s)\n", tx.Amount, tx.ID)
}
