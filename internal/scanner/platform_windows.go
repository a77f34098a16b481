//go:build windows

package scanner

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

func newUSBEnumerator() USBEnumerator {
	return &pnpUSBEnumerator{}
}

func newLANEnumerator() LANEnumerator {
	return &arpCmdEnumerator{}
}

// pnpUSBEnumerator lists USB plug-and-play device IDs via PowerShell.
// Device IDs look like USB\VID_413C&PID_2113\9081517A2F10, carrying the
// vendor id, product id and serial.
type pnpUSBEnumerator struct{}

var pnpIDPattern = regexp.MustCompile(`^USB\\VID_([0-9A-Fa-f]{4})&PID_([0-9A-Fa-f]{4})(?:&REV_([0-9A-Fa-f]{4}))?\\(.+)$`)

func (e *pnpUSBEnumerator) Enumerate() ([]RawUSBDevice, error) {
	out, err := exec.Command("powershell", "-NoProfile", "-Command",
		`Get-PnpDevice -Class USB | Select-Object -ExpandProperty InstanceId`).Output()
	if err != nil {
		return nil, fmt.Errorf("cannot list pnp devices: %w", err)
	}

	var devices []RawUSBDevice
	for _, line := range strings.Split(string(out), "\n") {
		m := pnpIDPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		vendor, _ := strconv.ParseInt(m[1], 16, 32)
		product, _ := strconv.ParseInt(m[2], 16, 32)
		var revision int64
		if m[3] != "" {
			revision, _ = strconv.ParseInt(m[3], 16, 32)
		}
		devices = append(devices, RawUSBDevice{
			Path:       strings.TrimSpace(line),
			VendorID:   int(vendor),
			ProductID:  int(product),
			RevisionID: int(revision),
			Serial:     m[4],
		})
	}
	return devices, nil
}

// arpCmdEnumerator parses the output of "arp -a".
type arpCmdEnumerator struct{}

var arpLinePattern = regexp.MustCompile(`^\s*(\d+\.\d+\.\d+\.\d+)\s+(([0-9A-Fa-f]{2}-){5}[0-9A-Fa-f]{2})\s`)

func (e *arpCmdEnumerator) Enumerate() ([]RawLANDevice, error) {
	out, err := exec.Command("arp", "-a").Output()
	if err != nil {
		return nil, fmt.Errorf("cannot read arp cache: %w", err)
	}

	var devices []RawLANDevice
	for _, line := range strings.Split(string(out), "\n") {
		m := arpLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		devices = append(devices, RawLANDevice{IP: m[1], MAC: m[2]})
	}
	return devices, nil
}
