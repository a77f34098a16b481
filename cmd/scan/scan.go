// Package scan implements the CLI commands that list and search the
// devices currently connected to the host.
package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/paularlott/cli"
	"github.com/zea2/devicemanager/internal/app"
	"github.com/zea2/devicemanager/internal/config"
	"github.com/zea2/devicemanager/internal/model"
	"github.com/zea2/devicemanager/internal/scanner"
	"golang.org/x/term"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:        "scan",
		Usage:       "Scan for connected devices",
		Description: "List the USB and LAN devices currently connected to the host, optionally filtered by attribute values",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "type",
				Usage: "Device type to scan (usb or lan); scans all types if not set",
			},
			&cli.BoolFlag{
				Name:         "rescan",
				Usage:        "Bypass the scan cache and enumerate devices again",
				DefaultValue: false,
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "Filter by device address (device path or IP)",
			},
			&cli.StringFlag{
				Name:  "serial",
				Usage: "Filter by USB serial number",
			},
			&cli.StringFlag{
				Name:  "mac",
				Usage: "Filter by MAC address, any common separator",
			},
			&cli.StringFlag{
				Name:  "hostname",
				Usage: "Filter by LAN hostname",
			},
			&cli.StringFlag{
				Name:  "vendor-id",
				Usage: "Filter by USB vendor ID, decimal or 0x-prefixed hex",
			},
			&cli.StringFlag{
				Name:  "product-id",
				Usage: "Filter by USB product ID, decimal or 0x-prefixed hex",
			},
			&cli.BoolFlag{
				Name:         "pretty",
				Usage:        "Indent the JSON output (default when stdout is a terminal)",
				DefaultValue: false,
			},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.Load(nil)
			composite := app.BuildScanner(cfg)

			filters, err := filtersFromFlags(cmd)
			if err != nil {
				return err
			}
			rescan := cmd.GetBool("rescan")

			var devices []model.Device
			if typeKey := cmd.GetString("type"); typeKey != "" {
				sub, err := composite.Get(typeKey)
				if err != nil {
					return fmt.Errorf("unknown device type %q", typeKey)
				}
				devices, err = sub.FindDevices(rescan, filters)
				if err != nil {
					return err
				}
			} else {
				devices, err = composite.FindDevices(rescan, filters)
				if err != nil {
					return err
				}
			}

			return printJSON(devices, cmd.GetBool("pretty"))
		},
	}
}

func filtersFromFlags(cmd *cli.Command) (scanner.Filters, error) {
	filters := scanner.Filters{}
	for flag, attr := range map[string]string{
		"address":  "address",
		"serial":   "serial",
		"mac":      "mac_address",
		"hostname": "hostname",
	} {
		if v := cmd.GetString(flag); v != "" {
			filters[attr] = v
		}
	}
	for flag, attr := range map[string]string{
		"vendor-id":  "vendor_id",
		"product-id": "product_id",
	} {
		v := cmd.GetString(flag)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value for --%s: %q", flag, v)
		}
		filters[attr] = int(n)
	}
	return filters, nil
}

func printJSON(v any, pretty bool) error {
	enc := json.NewEncoder(os.Stdout)
	if pretty || term.IsTerminal(int(os.Stdout.Fd())) {
		enc.SetIndent("", "    ")
	}
	return enc.Encode(v)
}
