package main

import (
	"context"
	"log"
	"os"

	"github.com/m-usd/phonechain/internal/buildinfo"
	"github.com/m-usd/phonechain/internal/client/cli"
	"github.com/m-usd/phonechain/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
