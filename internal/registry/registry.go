// Package registry is the single place where device-type keys are resolved.
// Every API boundary that accepts a "type key" (store qualifiers, composite
// scanner lookup, codec loading) funnels through Resolve, so the accepted
// key forms behave identically everywhere: the tag value, its canonical
// string name, a record instance, or a typed nil record pointer.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zea2/devicemanager/internal/model"
)

// ErrUnknownType is returned when a key cannot be resolved to a device type.
var ErrUnknownType = errors.New("unknown device type")

// Resolve maps any accepted key form to the canonical device type.
func Resolve(key any) (model.DeviceType, error) {
	switch k := key.(type) {
	case model.DeviceType:
		if k.Valid() {
			return k, nil
		}
	case string:
		for _, t := range model.Types() {
			if strings.EqualFold(string(t), k) {
				return t, nil
			}
		}
	case model.Device:
		// Covers populated records and typed nil pointers alike: Type()
		// never touches record state.
		if k != nil {
			return k.Type(), nil
		}
	}
	return "", fmt.Errorf("%w: %v", ErrUnknownType, key)
}

// New creates an empty record of the given type.
func New(t model.DeviceType) (model.Device, error) {
	switch t {
	case model.TypeUSB:
		return &model.USBDevice{}, nil
	case model.TypeLAN:
		return &model.LANDevice{}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownType, t)
}

// Identity returns the type-specific identity fields of a record.
func Identity(d model.Device) map[string]any {
	return d.Identity()
}

// Accessor reads one named attribute from a record.
type Accessor func(model.Device) any

// Explicit attribute tables per device type. Filter names are validated
// against these instead of reflecting over the record.
var attributes = map[model.DeviceType]map[string]Accessor{
	model.TypeUSB: {
		"address":     func(d model.Device) any { return d.Address() },
		"vendor_id":   func(d model.Device) any { return d.(*model.USBDevice).VendorID },
		"product_id":  func(d model.Device) any { return d.(*model.USBDevice).ProductID },
		"revision_id": func(d model.Device) any { return d.(*model.USBDevice).RevisionID },
		"serial":      func(d model.Device) any { return d.(*model.USBDevice).Serial },
		"vendor_name": func(d model.Device) any { return d.(*model.USBDevice).VendorName() },
	},
	model.TypeLAN: {
		"address":     func(d model.Device) any { return d.Address() },
		"mac_address": func(d model.Device) any { return d.(*model.LANDevice).MAC() },
		"hostname":    func(d model.Device) any { return d.(*model.LANDevice).Hostname },
	},
}

// Attribute returns the accessor for one attribute of a device type.
func Attribute(t model.DeviceType, name string) (Accessor, bool) {
	acc, ok := attributes[t][name]
	return acc, ok
}

// AttributeNames returns the sorted attribute names a device type exposes
// to filters.
func AttributeNames(t model.DeviceType) []string {
	names := make([]string, 0, len(attributes[t]))
	for name := range attributes[t] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
