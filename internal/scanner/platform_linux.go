//go:build linux

package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func newUSBEnumerator() USBEnumerator {
	return &sysfsUSBEnumerator{root: "/sys/bus/usb/devices"}
}

func newLANEnumerator() LANEnumerator {
	return &procARPEnumerator{path: "/proc/net/arp"}
}

// sysfsUSBEnumerator walks /sys/bus/usb/devices. Entries with a colon in
// the name are interfaces of a device, not devices, and are skipped.
type sysfsUSBEnumerator struct {
	root string
}

func (e *sysfsUSBEnumerator) Enumerate() ([]RawUSBDevice, error) {
	entries, err := os.ReadDir(e.root)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", e.root, err)
	}

	var devices []RawUSBDevice
	for _, entry := range entries {
		name := entry.Name()
		if strings.Contains(name, ":") {
			continue
		}
		dir := filepath.Join(e.root, name)
		vendor, ok := readHex(dir, "idVendor")
		if !ok {
			continue
		}
		product, _ := readHex(dir, "idProduct")
		revision, _ := readHex(dir, "bcdDevice")

		dev := RawUSBDevice{
			Path:       dir,
			VendorID:   vendor,
			ProductID:  product,
			RevisionID: revision,
			Serial:     readAttr(dir, "serial"),
		}
		if bus, ok := readDec(dir, "busnum"); ok {
			if num, ok := readDec(dir, "devnum"); ok {
				dev.DevNode = fmt.Sprintf("/dev/bus/usb/%03d/%03d", bus, num)
			}
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

func readAttr(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func readHex(dir, name string) (int, bool) {
	v, err := strconv.ParseInt(readAttr(dir, name), 16, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func readDec(dir, name string) (int, bool) {
	v, err := strconv.Atoi(readAttr(dir, name))
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// procARPEnumerator reads the kernel ARP cache. Incomplete entries, the
// ones with a zero flags field, are skipped.
type procARPEnumerator struct {
	path string
}

func (e *procARPEnumerator) Enumerate() ([]RawLANDevice, error) {
	data, err := os.ReadFile(e.path)
	if err != nil {
		return nil, fmt.Errorf("cannot read arp cache: %w", err)
	}

	var devices []RawLANDevice
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		if i == 0 {
			continue // header
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		ip, flags, mac := fields[0], fields[2], fields[3]
		if flags == "0x0" || mac == "00:00:00:00:00:00" {
			continue
		}
		devices = append(devices, RawLANDevice{IP: ip, MAC: mac})
	}
	return devices, nil
}
