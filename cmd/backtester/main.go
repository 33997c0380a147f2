package main

import (
	"context"
	"fmt"
	"os"

	"github.com/thrasher-corp/tickbacktester/signaler"
	"github.com/urfave/cli/v2"
)

var (
	configPath string
	envFile    string
	verbose    bool
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-signaler.WaitForInterrupt()
		fmt.Println("backtester interrupted, stopping runs")
		cancel()
	}()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "backtester"
	app.Usage = "event driven tick backtester for quote level strategies"
	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Value:       "config.yaml",
			Usage:       "the run config to load, json or yaml",
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "envfile",
			Value:       ".env",
			Usage:       "dotenv file holding TICKBT_ overrides, skipped when missing",
			Destination: &envFile,
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Usage:       "log at debug level regardless of the config",
			Destination: &verbose,
		},
	}
	app.Commands = []*cli.Command{
		runCommand,
		strategiesCommand,
		migrateCommand,
		importCommand,
		exportCommand,
	}
	return app
}
