package scanner

import (
	"fmt"

	"github.com/zea2/devicemanager/internal/log"
	"github.com/zea2/devicemanager/internal/model"
)

// RawUSBDevice is one entry reported by a platform USB enumerator.
type RawUSBDevice struct {
	Path       string // platform device path, becomes the record address
	DevNode    string // device node like /dev/bus/usb/001/004, becomes an alias
	VendorID   int
	ProductID  int
	RevisionID int
	Serial     string
}

// USBEnumerator reads the devices currently attached to the host's USB
// ports. Implementations are platform specific.
type USBEnumerator interface {
	Enumerate() ([]RawUSBDevice, error)
}

// USBScanner scans the host's USB ports and caches the result.
type USBScanner struct {
	enum  USBEnumerator
	cache scanCache
}

func NewUSBScanner(enum USBEnumerator) *USBScanner {
	return &USBScanner{enum: enum}
}

func (s *USBScanner) Type() model.DeviceType { return model.TypeUSB }

func (s *USBScanner) ListDevices(rescan bool) ([]model.Device, error) {
	return s.cache.get(rescan, s.scan)
}

func (s *USBScanner) FindDevices(rescan bool, filters Filters) ([]model.Device, error) {
	if err := validateFilters(model.TypeUSB, filters); err != nil {
		return nil, err
	}
	devices, err := s.ListDevices(rescan)
	if err != nil {
		return nil, err
	}
	return filterDevices(devices, filters), nil
}

func (s *USBScanner) scan() ([]model.Device, error) {
	scanID := newScanID()
	log.Debug("Scanning usb ports", "scan_id", scanID)

	raw, err := s.enum.Enumerate()
	if err != nil {
		log.Warn("Usb scan failed", "scan_id", scanID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrScanUnavailable, err)
	}

	devices := make([]model.Device, 0, len(raw))
	for _, r := range raw {
		if r.Path == "" {
			continue
		}
		dev := &model.USBDevice{
			VendorID:   r.VendorID,
			ProductID:  r.ProductID,
			RevisionID: r.RevisionID,
			Serial:     r.Serial,
		}
		dev.SetAddress(r.Path)
		if r.DevNode != "" {
			dev.SetAddressAliases([]string{r.DevNode})
		}
		devices = append(devices, dev)
	}

	log.Debug("Usb scan finished", "scan_id", scanID, "devices", len(devices))
	return devices, nil
}
