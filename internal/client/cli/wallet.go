package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/m-usd/phonechain/internal/client/api"
)

func (a *App) balance(ctx context.Context) {
	p, err := a.api.Wallet(ctx)
	if err != nil {
		a.reportError(err)
		return
	}

	fmt.Printf("Phone:   %s\n", p.PhoneNumber)
	fmt.Printf("Address: %s\n", p.WalletAddress)
	fmt.Printf("Balance: %.2f USD\n", p.Balance)
	if p.Frozen {
		fmt.Println("Status:  FROZEN")
	} else if !p.IsActive {
		fmt.Println("Status:  SUSPENDED")
	}
}

func (a *App) history(ctx context.Context) {
	txs, err := a.api.Transactions(ctx)
	if err != nil {
		a.reportError(err)
		return
	}

	if len(txs) == 0 {
		fmt.Println("No transactions yet")
		return
	}

	for _, tx := range txs {
		direction := "->"
		counterparty := tx.To
		if tx.To == a.phone {
			direction = "<-"
			counterparty = tx.From
		}
		fmt.Printf("%s  %s %s  %.2f USD (fee %.2f)  %s %s\n",
			tx.Timestamp, direction, counterparty, tx.Amount, tx.Fee, tx.Type, tx.Status)
	}
}

// reportError prints an API failure and drops the session when the server
// no longer recognizes the token.
func (a *App) reportError(err error) {
	if errors.Is(err, api.ErrUnauthorized) {
		log.Printf("Session expired, please log in again")
		a.phone = ""
		return
	}
	log.Printf("error: %v", err)
}
