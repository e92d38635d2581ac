package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/garagekeeper/internal/buildinfo"
	"github.com/dmitrijs2005/garagekeeper/internal/client/cli"
	"github.com/dmitrijs2005/garagekeeper/internal/client/config"
	"github.com/dmitrijs2005/garagekeeper/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewTextLogger(os.Stderr, cfg.LogLevel)

	ctx := context.Background()
	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	app.Run(ctx)

}
