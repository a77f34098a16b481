// Package store keeps named device records. A name may hold one record
// per device type, so "office-printer" can refer to both a USB and a LAN
// record at once. Lookups by bare name collapse to the single record when
// only one type is stored and demand a type qualifier otherwise.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zea2/devicemanager/internal/log"
	"github.com/zea2/devicemanager/internal/model"
	"github.com/zea2/devicemanager/internal/registry"
	"github.com/zea2/devicemanager/internal/scanner"
)

var (
	// ErrNotFound is returned when a name (or name/type pair) is not stored.
	ErrNotFound = errors.New("device name not found")

	// ErrAmbiguousName is returned by bare-name lookups when records of
	// several types are stored under the name.
	ErrAmbiguousName = errors.New("device name is ambiguous, a type is required")

	// ErrDeviceNotFound is returned when no connected device answers to a
	// given address.
	ErrDeviceNotFound = errors.New("no device found for address")
)

type pairKey struct {
	name string
	tag  model.DeviceType
}

// Store is the device inventory. All methods are safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	devices map[pairKey]model.Device
	scanner *scanner.Composite
}

func New(composite *scanner.Composite) *Store {
	return &Store{
		devices: make(map[pairKey]model.Device),
		scanner: composite,
	}
}

// Scanner returns the composite scanner the store resolves devices with.
func (s *Store) Scanner() *scanner.Composite { return s.scanner }

// Set stores a record under the name. An existing record of the same type
// under the same name is overwritten; records of other types are kept.
func (s *Store) Set(name string, device model.Device) error {
	if name == "" {
		return fmt.Errorf("device name must not be empty")
	}
	if device == nil {
		return fmt.Errorf("device record must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[pairKey{name, device.Type()}] = device
	return nil
}

// SetByAddress resolves the device behind the address and stores it under
// the name. With typeKey nil all device types are searched, otherwise only
// the resolved type. Resolution tries cached scan results first, then a
// rescan, then an active probe of the address.
func (s *Store) SetByAddress(name, address string, typeKey any) error {
	scanners, err := s.scannersFor(typeKey)
	if err != nil {
		return err
	}
	device, err := s.findByAddress(address, scanners)
	if err != nil {
		return err
	}
	if device == nil {
		return fmt.Errorf("%w: %q", ErrDeviceNotFound, address)
	}
	log.Debug("Resolved device for address", "name", name, "address", address, "type", string(device.Type()))
	return s.Set(name, device)
}

func (s *Store) scannersFor(typeKey any) ([]scanner.Scanner, error) {
	if typeKey == nil {
		var all []scanner.Scanner
		for _, t := range s.scanner.Types() {
			sub, err := s.scanner.Get(t)
			if err != nil {
				return nil, err
			}
			all = append(all, sub)
		}
		return all, nil
	}
	sub, err := s.scanner.Get(typeKey)
	if err != nil {
		return nil, err
	}
	return []scanner.Scanner{sub}, nil
}

// findByAddress searches the scanners in three passes of rising cost:
// cached results, a rescan, and finally an active address probe followed
// by one more cached lookup.
func (s *Store) findByAddress(address string, scanners []scanner.Scanner) (model.Device, error) {
	filters := scanner.Filters{"address": address}

	for _, rescan := range []bool{false, true} {
		for _, sub := range scanners {
			matches, err := sub.FindDevices(rescan, filters)
			if err != nil {
				return nil, err
			}
			if len(matches) > 0 {
				return matches[0], nil
			}
		}
	}

	probed := false
	for _, sub := range scanners {
		prober, ok := sub.(scanner.AddressProber)
		if !ok {
			continue
		}
		if err := prober.ProbeAddress(address); err != nil {
			log.Debug("Address probe failed", "address", address, "error", err)
			continue
		}
		probed = true
	}
	if !probed {
		return nil, nil
	}

	for _, sub := range scanners {
		matches, err := sub.FindDevices(true, filters)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			return matches[0], nil
		}
	}
	return nil, nil
}

// Get returns the single record stored under the name. When records of
// several types share the name, ErrAmbiguousName asks the caller to use
// GetType instead.
func (s *Store) Get(name string) (model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found model.Device
	for _, t := range model.Types() {
		if d, ok := s.devices[pairKey{name, t}]; ok {
			if found != nil {
				return nil, fmt.Errorf("%w: %q", ErrAmbiguousName, name)
			}
			found = d
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return found, nil
}

// GetType returns the record of one type stored under the name.
func (s *Store) GetType(name string, typeKey any) (model.Device, error) {
	t, err := registry.Resolve(typeKey)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[pairKey{name, t}]
	if !ok {
		return nil, fmt.Errorf("%w: %q (%s)", ErrNotFound, name, t)
	}
	return d, nil
}

// Devices returns all records stored under the name, keyed by type.
func (s *Store) Devices(name string) (map[model.DeviceType]model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[model.DeviceType]model.Device)
	for _, t := range model.Types() {
		if d, ok := s.devices[pairKey{name, t}]; ok {
			out[t] = d
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return out, nil
}

// Remove drops every record stored under the name.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	for _, t := range model.Types() {
		if _, ok := s.devices[pairKey{name, t}]; ok {
			delete(s.devices, pairKey{name, t})
			removed = true
		}
	}
	if !removed {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

// RemoveType drops the record of one type stored under the name. Records
// of other types under the same name stay.
func (s *Store) RemoveType(name string, typeKey any) error {
	t, err := registry.Resolve(typeKey)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[pairKey{name, t}]; !ok {
		return fmt.Errorf("%w: %q (%s)", ErrNotFound, name, t)
	}
	delete(s.devices, pairKey{name, t})
	return nil
}

// Contains reports whether any record is stored under the name.
func (s *Store) Contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range model.Types() {
		if _, ok := s.devices[pairKey{name, t}]; ok {
			return true
		}
	}
	return false
}

// Names returns all stored device names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for key := range s.devices {
		seen[key.name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of distinct names in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for key := range s.devices {
		seen[key.name] = struct{}{}
	}
	return len(seen)
}

// Clear drops all records.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = make(map[pairKey]model.Device)
}

// Items returns a name-keyed snapshot of the store. The inner maps are
// fresh, the records are the stored ones.
func (s *Store) Items() map[string]map[model.DeviceType]model.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]map[model.DeviceType]model.Device)
	for key, d := range s.devices {
		types, ok := out[key.name]
		if !ok {
			types = make(map[model.DeviceType]model.Device)
			out[key.name] = types
		}
		types[key.tag] = d
	}
	return out
}

// RefreshAll re-resolves the addresses of every stored record against the
// live device state. Records whose device is found adopt its current
// addresses; records that stay unresolved keep only their identity, the
// stale addresses move to the old-address set.
func (s *Store) RefreshAll() error {
	s.mu.Lock()
	devices := make([]model.Device, 0, len(s.devices))
	for _, d := range s.devices {
		devices = append(devices, d)
	}
	s.mu.Unlock()

	for _, d := range devices {
		if err := s.refreshDevice(d); err != nil {
			return err
		}
	}
	return nil
}

// refreshDevice finds the stored record's physical device by identity and
// updates the record in place. LAN devices that dropped out of the scan
// get one active probe of their last known addresses before giving up.
func (s *Store) refreshDevice(d model.Device) error {
	sub, err := s.scanner.Get(d.Type())
	if err != nil {
		return err
	}
	filters := scanner.Filters(d.Identity())

	matches, err := sub.FindDevices(true, filters)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		if prober, ok := sub.(scanner.AddressProber); ok {
			addrs := append(d.AllAddresses(), d.OldAddresses()...)
			probed := false
			for _, addr := range addrs {
				if err := prober.ProbeAddress(addr); err == nil {
					probed = true
				}
			}
			if probed {
				if matches, err = sub.FindDevices(true, filters); err != nil {
					return err
				}
			}
		}
	}

	if len(matches) == 0 {
		log.Debug("Device not resolved, clearing addresses", "type", string(d.Type()))
		d.ResetAddresses()
		return nil
	}
	return d.UpdateFrom(matches[0])
}
