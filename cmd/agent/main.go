package main

import (
	"os"
	"time"

	"github.com/op/go-logging"
	"github.com/urfave/cli/v2"
)

var logger = logging.MustGetLogger("main")

func main() {
	app := &cli.App{
		Name:     "agent",
		Usage:    "record agent: key backup, record discovery and credit transfers",
		Version:  "v0.1.0",
		Compiled: time.Now(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Value: false,
				Usage: "debug output (overrides LOG_LEVEL)",
			},
		},
		Before: func(c *cli.Context) error {
			return configure(c.Bool("verbose"))
		},
		After: func(c *cli.Context) error {
			return shutdown()
		},
		Commands: []*cli.Command{
			newCommand(),
			addressCommand(),
			balanceCommand(),
			unspentCommand(),
			scanCommand(),
			programRecordsCommand(),
			transferCommand(),
			deployCommand(),
			executeCommand(),
			transactionsCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
