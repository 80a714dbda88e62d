package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/apiclient/internal/client/cli"
	"github.com/dmitrijs2005/apiclient/internal/client/client"
	"github.com/dmitrijs2005/apiclient/internal/client/config"
	"github.com/dmitrijs2005/apiclient/internal/logging"
)

func main() {

	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx := context.Background()

	c, err := client.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer c.Close()

	cli.NewApp(c, logger.With("component", "cli")).Run(ctx)

}
