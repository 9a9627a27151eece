package main

import (
	"context"
	"log"

	"github.com/m-usd/phonechain/internal/logging"
	"github.com/m-usd/phonechain/internal/server"
	"github.com/m-usd/phonechain/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger, err := logging.NewLogfmtLogger("info")
	if err != nil {
		log.Printf("%v", err)
		return
	}
	defer logger.Sync()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, err.Error())
		return
	}

	app.Run(ctx)

}
