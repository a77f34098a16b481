package main

import (
	"context"
	"os"

	"github.com/paularlott/cli"
	"github.com/paularlott/cli/env"
	"github.com/zea2/devicemanager/cmd/inventory"
	"github.com/zea2/devicemanager/cmd/scan"
	"github.com/zea2/devicemanager/cmd/server"
	"github.com/zea2/devicemanager/internal/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Load .env file if it exists
	env.Load()

	log.Configure("info", "console")

	rootCmd := &cli.Command{
		Name:        "devicemanager",
		Version:     version,
		Usage:       "Scan for and manage USB and LAN devices",
		Description: "Scans the host for connected USB and LAN devices and keeps a named inventory whose addresses survive reconnects",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:         "log-level",
				Usage:        "Log level (trace, debug, info, warn, error)",
				DefaultValue: "info",
				EnvVars:      []string{"DM_LOG_LEVEL"},
				Global:       true,
			},
			&cli.StringFlag{
				Name:         "log-format",
				Usage:        "Log format (console, json)",
				DefaultValue: "console",
				EnvVars:      []string{"DM_LOG_FORMAT"},
				Global:       true,
			},
		},
		PreRun: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log.Configure(cmd.GetString("log-level"), cmd.GetString("log-format"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			scan.Command(),
			{
				Name:        "inventory",
				Usage:       "Inventory management commands",
				Description: "Manage the persistent device inventory",
				Commands:    inventory.Commands(),
			},
			server.Command(),
		},
	}

	if err := rootCmd.Execute(context.Background()); err != nil {
		log.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
