// Package scanner discovers connected devices. Each device type has its own
// capability scanner that asks a platform enumerator for the current device
// list and caches the result until the caller forces a rescan. The
// Composite scanner fans out over all capability scanners and doubles as a
// type-keyed container, so callers can scan everything or target one type.
package scanner

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/zea2/devicemanager/internal/model"
	"github.com/zea2/devicemanager/internal/registry"
)

var (
	// ErrInvalidFilter marks a filter name no attribute of the scanned
	// device type corresponds to.
	ErrInvalidFilter = errors.New("invalid device filter")

	// ErrScanUnavailable marks a failed call to the platform enumerator.
	// A previously cached scan result stays valid when this is returned.
	ErrScanUnavailable = errors.New("device scan unavailable")
)

// Filters maps attribute names to the exact values matching devices must
// carry. The address filter is special: it matches any of a device's
// addresses, aliases included.
type Filters map[string]any

// Scanner lists devices of one type.
//
// With rescan false a cached result from an earlier scan is returned
// unchanged; with rescan true (or on the very first call) the platform
// enumerator runs and its result replaces the cache wholesale.
type Scanner interface {
	Type() model.DeviceType
	ListDevices(rescan bool) ([]model.Device, error)
	FindDevices(rescan bool, filters Filters) ([]model.Device, error)
}

// validateFilters checks every filter name against the attribute table of
// the device type. Runs before any matching so an unknown name fails even
// when the scan came back empty.
func validateFilters(t model.DeviceType, filters Filters) error {
	for name := range filters {
		if _, ok := registry.Attribute(t, name); !ok {
			return fmt.Errorf("%w: %s devices have no attribute %q", ErrInvalidFilter, t, name)
		}
	}
	return nil
}

// matchFilters reports whether the device carries every filtered value.
// Filter names must have been validated beforehand.
func matchFilters(d model.Device, filters Filters) bool {
	for name, want := range filters {
		if name == "address" {
			addr, ok := want.(string)
			if !ok {
				return false
			}
			if !containsString(d.AllAddresses(), addr) {
				return false
			}
			continue
		}
		acc, ok := registry.Attribute(d.Type(), name)
		if !ok {
			return false
		}
		if acc(d) != want {
			return false
		}
	}
	return true
}

// filterDevices returns the devices matching all filters, in scan order.
func filterDevices(devices []model.Device, filters Filters) []model.Device {
	matches := make([]model.Device, 0, len(devices))
	for _, d := range devices {
		if matchFilters(d, filters) {
			matches = append(matches, d)
		}
	}
	return matches
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// newScanID returns a fresh ID correlating the log lines of one scan.
func newScanID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
