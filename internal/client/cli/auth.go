package cli

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/m-usd/phonechain/internal/client/api"
	"github.com/m-usd/phonechain/internal/security"
)

func (a *App) Register(ctx context.Context) {

	phone, err := GetSimpleText(a.reader, "Enter phone number (e.g. +254712345678)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer security.Wipe(password)

	if err := a.api.Register(ctx, phone, password); err != nil {
		log.Printf("Registration unsuccessful: %s", err.Error())
		return
	}

	log.Printf("Registration successful, you can log in now")
}

func (a *App) Login(ctx context.Context) {

	phone, err := GetSimpleText(a.reader, "Enter phone number", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer security.Wipe(password)

	res, err := a.api.Login(ctx, phone, password)
	if err != nil {
		if errors.Is(err, api.ErrUnavailable) {
			log.Printf("Server unavailable: %s", err.Error())
			a.setMode(ModeOffline)
		} else {
			log.Printf("Login unsuccessful: %s", err.Error())
		}
		return
	}

	a.phone = phone
	a.setMode(ModeOnline)
	log.Printf("Login successful")
	if res.Wallet != nil {
		log.Printf("Balance: %.2f USD", res.Wallet.Balance)
	}
}

func (a *App) Logout(ctx context.Context) {
	if err := a.api.Logout(ctx); err != nil {
		log.Printf("error: %v", err)
	}
	a.phone = ""
	log.Printf("Logged out")
}
