package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "config.json",
		Usage:   "Path to the JSON or YAML config file",
		EnvVars: []string{"REBASE_CONFIG"},
	}
	return &cli.App{
		Name:   "rebase",
		Usage:  "Conversational ROI discovery server",
		Flags:  []cli.Flag{configFlag},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server (default)",
				Action: serveAction,
			},
			{
				Name:   "migrate",
				Usage:  "Create or update database tables and exit",
				Action: migrateAction,
			},
			{
				Name:   "cleanup",
				Usage:  "Delete sessions past the retention period and exit",
				Action: cleanupAction,
			},
		},
	}
}
