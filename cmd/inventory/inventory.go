// Package inventory implements the CLI commands that manage the
// persistent device inventory.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/paularlott/cli"
	"github.com/zea2/devicemanager/internal/app"
	"github.com/zea2/devicemanager/internal/config"
	"github.com/zea2/devicemanager/internal/store"
	"golang.org/x/term"
)

func Commands() []*cli.Command {
	return []*cli.Command{
		listCommand(),
		getCommand(),
		addCommand(),
		removeCommand(),
		refreshCommand(),
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "List all stored devices",
		Description: "Print the full inventory, grouped by device name and type",
		Run: func(ctx context.Context, cmd *cli.Command) error {
			s, inv, err := app.OpenStore(config.Load(nil))
			if err != nil {
				return err
			}
			defer inv.Close()
			return printJSON(s.Items())
		},
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:        "get",
		Usage:       "Show a stored device",
		Description: "Print the record(s) stored under a device name",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Usage:    "Device name",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "type",
				Usage: "Device type (usb or lan); required when the name holds several types",
			},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			s, inv, err := app.OpenStore(config.Load(nil))
			if err != nil {
				return err
			}
			defer inv.Close()

			name := cmd.GetString("name")
			if typeKey := cmd.GetString("type"); typeKey != "" {
				device, err := s.GetType(name, typeKey)
				if err != nil {
					return err
				}
				return printJSON(device)
			}

			device, err := s.Get(name)
			if errors.Is(err, store.ErrAmbiguousName) {
				devices, derr := s.Devices(name)
				if derr != nil {
					return derr
				}
				return printJSON(devices)
			}
			if err != nil {
				return err
			}
			return printJSON(device)
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:        "add",
		Usage:       "Store a connected device under a name",
		Description: "Resolve the connected device behind an address and store it in the inventory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Usage:    "Device name",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "address",
				Usage:    "Device address (device path or IP)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "type",
				Usage: "Device type (usb or lan); searches all types if not set",
			},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			s, inv, err := app.OpenStore(config.Load(nil))
			if err != nil {
				return err
			}
			defer inv.Close()

			name := cmd.GetString("name")
			var typeKey any
			if t := cmd.GetString("type"); t != "" {
				typeKey = t
			}

			if err := s.SetByAddress(name, cmd.GetString("address"), typeKey); err != nil {
				return err
			}
			if err := inv.Save(s); err != nil {
				return err
			}

			devices, err := s.Devices(name)
			if err != nil {
				return err
			}
			return printJSON(devices)
		},
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:        "remove",
		Usage:       "Remove a stored device",
		Description: "Remove the record(s) stored under a device name",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Usage:    "Device name",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "type",
				Usage: "Device type (usb or lan); removes all types if not set",
			},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			s, inv, err := app.OpenStore(config.Load(nil))
			if err != nil {
				return err
			}
			defer inv.Close()

			name := cmd.GetString("name")
			if typeKey := cmd.GetString("type"); typeKey != "" {
				err = s.RemoveType(name, typeKey)
			} else {
				err = s.Remove(name)
			}
			if err != nil {
				return err
			}
			if err := inv.Save(s); err != nil {
				return err
			}

			fmt.Printf("Removed %q from inventory\n", name)
			return nil
		},
	}
}

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:        "refresh",
		Usage:       "Re-resolve all stored device addresses",
		Description: "Match every stored record against the currently connected devices and update its addresses",
		Run: func(ctx context.Context, cmd *cli.Command) error {
			s, inv, err := app.OpenStore(config.Load(nil))
			if err != nil {
				return err
			}
			defer inv.Close()

			// OpenStore already refreshed during load; persist the result.
			if err := inv.Save(s); err != nil {
				return err
			}
			return printJSON(s.Items())
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	if term.IsTerminal(int(os.Stdout.Fd())) {
		enc.SetIndent("", "    ")
	}
	return enc.Encode(v)
}
