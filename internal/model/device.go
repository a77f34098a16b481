// Package model defines the device records the scanners and the store work
// with. Two device types are supported: USB devices, identified by vendor
// id, product id and serial number, and ethernet (LAN) devices, identified
// by their MAC address. Identity is stable across reconnects; transport
// addresses are not.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DeviceType identifies a device category and the record shape it governs.
type DeviceType string

const (
	TypeUSB DeviceType = "usb"
	TypeLAN DeviceType = "lan"
)

// Types lists all supported device types in canonical order.
func Types() []DeviceType {
	return []DeviceType{TypeUSB, TypeLAN}
}

// Valid reports whether t is a known device type.
func (t DeviceType) Valid() bool {
	return t == TypeUSB || t == TypeLAN
}

func (t DeviceType) String() string {
	return string(t)
}

// ErrInvalidMAC is returned when a MAC address string cannot be parsed.
var ErrInvalidMAC = errors.New("invalid mac address format")

// Matches colon, hyphen or dot separated MAC addresses.
var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}[.:\-]){5}([0-9A-Fa-f]{2})$`)

// FormatMAC normalizes a MAC address to uppercase with colon separators.
// The empty string is passed through unchanged, it stands for "unset".
func FormatMAC(mac string) (string, error) {
	if mac == "" {
		return "", nil
	}
	if !macPattern.MatchString(mac) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}
	mac = strings.NewReplacer("-", ":", ".", ":").Replace(mac)
	return strings.ToUpper(mac), nil
}

// Device is the common interface of all device records.
//
// A record's identity never contains its address: two records of the same
// type with equal Identity maps describe the same physical device even if
// their addresses differ.
type Device interface {
	// Type returns the device type tag the record belongs to.
	Type() DeviceType
	// Identity returns the type-specific identity fields.
	Identity() map[string]any

	// Address returns the primary transport locator, empty when unknown.
	Address() string
	SetAddress(addr string)
	// AddressAliases returns secondary locators, the primary address
	// excluded.
	AddressAliases() []string
	SetAddressAliases(aliases []string)
	// AllAddresses returns the address followed by the aliases, without
	// duplicates.
	AllAddresses() []string
	// OldAddresses returns locators displaced by a refresh. They are not
	// serialized but feed re-probing.
	OldAddresses() []string
	// ResetAddresses moves the current addresses to the old-address set.
	ResetAddresses()

	// UpdateFrom replaces this record's addresses with other's and merges
	// identity fields; displaced addresses move to the old-address set.
	// It fails unless other has the same device type.
	UpdateFrom(other Device) error
	// Clone returns an independent copy of the record.
	Clone() Device
}

// SameDevice reports whether a and b describe the same physical device,
// that is, they share the device type and all identity fields.
func SameDevice(a, b Device) bool {
	if a == nil || b == nil || a.Type() != b.Type() {
		return false
	}
	ia, ib := a.Identity(), b.Identity()
	if len(ia) != len(ib) {
		return false
	}
	for k, v := range ia {
		if ib[k] != v {
			return false
		}
	}
	return true
}

// addresses holds the mutable locator state shared by all record types.
type addresses struct {
	addr    string
	aliases []string
	old     []string
}

func (a *addresses) Address() string { return a.addr }

func (a *addresses) SetAddress(addr string) { a.addr = addr }

func (a *addresses) AddressAliases() []string {
	out := make([]string, 0, len(a.aliases))
	for _, alias := range a.aliases {
		if alias != "" && alias != a.addr {
			out = append(out, alias)
		}
	}
	return out
}

func (a *addresses) SetAddressAliases(aliases []string) {
	a.aliases = a.aliases[:0]
	for _, alias := range aliases {
		if alias != "" {
			a.aliases = append(a.aliases, alias)
		}
	}
}

func (a *addresses) AllAddresses() []string {
	all := make([]string, 0, 1+len(a.aliases))
	seen := make(map[string]struct{}, 1+len(a.aliases))
	if a.addr != "" {
		all = append(all, a.addr)
		seen[a.addr] = struct{}{}
	}
	for _, alias := range a.aliases {
		if alias == "" {
			continue
		}
		if _, ok := seen[alias]; ok {
			continue
		}
		seen[alias] = struct{}{}
		all = append(all, alias)
	}
	return all
}

func (a *addresses) OldAddresses() []string {
	out := make([]string, len(a.old))
	copy(out, a.old)
	return out
}

func (a *addresses) ResetAddresses() {
	for _, addr := range a.AllAddresses() {
		if !contains(a.old, addr) {
			a.old = append(a.old, addr)
		}
	}
	a.addr = ""
	a.aliases = nil
}

// updateFrom moves the current addresses aside and adopts other's. Old
// addresses from both records are kept, minus any that became current.
func (a *addresses) updateFrom(other *addresses) {
	a.ResetAddresses()
	a.addr = other.addr
	a.aliases = append([]string(nil), other.aliases...)

	merged := a.old
	for _, addr := range other.old {
		if !contains(merged, addr) {
			merged = append(merged, addr)
		}
	}
	current := a.AllAddresses()
	a.old = nil
	for _, addr := range merged {
		if !contains(current, addr) {
			a.old = append(a.old, addr)
		}
	}
}

func (a *addresses) clone() addresses {
	return addresses{
		addr:    a.addr,
		aliases: append([]string(nil), a.aliases...),
		old:     append([]string(nil), a.old...),
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// USBDevice is the record for a device attached to a USB port. The address
// is the platform device path, the dev node (if any) is an alias.
type USBDevice struct {
	addresses

	VendorID   int
	ProductID  int
	RevisionID int
	Serial     string
}

func (d *USBDevice) Type() DeviceType { return TypeUSB }

// Identity returns vendor id, product id and serial number. The revision id
// is deliberately excluded, a firmware update must not change identity.
func (d *USBDevice) Identity() map[string]any {
	return map[string]any{
		"vendor_id":  d.VendorID,
		"product_id": d.ProductID,
		"serial":     d.Serial,
	}
}

// VendorName returns the manufacturer name for the vendor id, if known.
func (d *USBDevice) VendorName() string {
	return usbVendorName(d.VendorID)
}

func (d *USBDevice) UpdateFrom(other Device) error {
	o, ok := other.(*USBDevice)
	if !ok {
		return fmt.Errorf("cannot update %s record from %s record", d.Type(), other.Type())
	}
	if o == d {
		return nil
	}
	d.addresses.updateFrom(&o.addresses)
	if o.VendorID != 0 {
		d.VendorID = o.VendorID
	}
	if o.ProductID != 0 {
		d.ProductID = o.ProductID
	}
	if o.RevisionID != 0 {
		d.RevisionID = o.RevisionID
	}
	if o.Serial != "" {
		d.Serial = o.Serial
	}
	return nil
}

func (d *USBDevice) Clone() Device {
	clone := *d
	clone.addresses = d.addresses.clone()
	return &clone
}

type usbWire struct {
	Type           string   `json:"type"`
	Address        string   `json:"address,omitempty"`
	AddressAliases []string `json:"address_aliases,omitempty"`
	VendorID       int      `json:"vendor_id,omitempty"`
	ProductID      int      `json:"product_id,omitempty"`
	RevisionID     int      `json:"revision_id,omitempty"`
	Serial         string   `json:"serial,omitempty"`
}

func (d *USBDevice) MarshalJSON() ([]byte, error) {
	return json.Marshal(usbWire{
		Type:           string(TypeUSB),
		Address:        d.addr,
		AddressAliases: d.AddressAliases(),
		VendorID:       d.VendorID,
		ProductID:      d.ProductID,
		RevisionID:     d.RevisionID,
		Serial:         d.Serial,
	})
}

func (d *USBDevice) UnmarshalJSON(data []byte) error {
	var w usbWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	d.SetAddress(w.Address)
	d.SetAddressAliases(w.AddressAliases)
	d.VendorID = w.VendorID
	d.ProductID = w.ProductID
	d.RevisionID = w.RevisionID
	d.Serial = w.Serial
	return nil
}

func (d *USBDevice) String() string {
	return fmt.Sprintf("USBDevice(%q)", d.addr)
}

// LANDevice is the record for an ethernet device reachable on the local
// network. The address is its primary IP, further IPs are aliases.
type LANDevice struct {
	addresses

	mac string

	// Hostname is enrichment data (reverse DNS, SNMP sysName or nmap). It
	// is persisted but never part of the identity.
	Hostname string
}

func (d *LANDevice) Type() DeviceType { return TypeLAN }

// Identity returns the MAC address as the sole identity field.
func (d *LANDevice) Identity() map[string]any {
	return map[string]any{"mac_address": d.mac}
}

// MAC returns the normalized MAC address, empty when unknown.
func (d *LANDevice) MAC() string { return d.mac }

// SetMAC stores the MAC address in its normalized form.
func (d *LANDevice) SetMAC(mac string) error {
	formatted, err := FormatMAC(mac)
	if err != nil {
		return err
	}
	d.mac = formatted
	return nil
}

func (d *LANDevice) UpdateFrom(other Device) error {
	o, ok := other.(*LANDevice)
	if !ok {
		return fmt.Errorf("cannot update %s record from %s record", d.Type(), other.Type())
	}
	if o == d {
		return nil
	}
	d.addresses.updateFrom(&o.addresses)
	if o.mac != "" {
		d.mac = o.mac
	}
	if o.Hostname != "" {
		d.Hostname = o.Hostname
	}
	return nil
}

func (d *LANDevice) Clone() Device {
	clone := *d
	clone.addresses = d.addresses.clone()
	return &clone
}

type lanWire struct {
	Type           string   `json:"type"`
	Address        string   `json:"address,omitempty"`
	AddressAliases []string `json:"address_aliases,omitempty"`
	MACAddress     string   `json:"mac_address,omitempty"`
	Hostname       string   `json:"hostname,omitempty"`
}

func (d *LANDevice) MarshalJSON() ([]byte, error) {
	return json.Marshal(lanWire{
		Type:           string(TypeLAN),
		Address:        d.addr,
		AddressAliases: d.AddressAliases(),
		MACAddress:     d.mac,
		Hostname:       d.Hostname,
	})
}

func (d *LANDevice) UnmarshalJSON(data []byte) error {
	var w lanWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if err := d.SetMAC(w.MACAddress); err != nil {
		return err
	}
	d.SetAddress(w.Address)
	d.SetAddressAliases(w.AddressAliases)
	d.Hostname = w.Hostname
	return nil
}

func (d *LANDevice) String() string {
	return fmt.Sprintf("LANDevice(%q)", d.addr)
}
