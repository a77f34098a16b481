package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/zea2/devicemanager/internal/model"
)

type fakeLANEnum struct {
	batches [][]RawLANDevice
	calls   int
	err     error
}

func (f *fakeLANEnum) Enumerate() ([]RawLANDevice, error) {
	call := f.calls
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	if call >= len(f.batches) {
		call = len(f.batches) - 1
	}
	return f.batches[call], nil
}

func TestLANScannerMergesByMAC(t *testing.T) {
	enum := &fakeLANEnum{batches: [][]RawLANDevice{{
		{IP: "10.0.0.1", MAC: "aa:bb:cc:dd:ee:01"},
		{IP: "10.0.0.2", MAC: "AA-BB-CC-DD-EE-01"}, // same device, second IP
		{IP: "10.0.0.3", MAC: "aa:bb:cc:dd:ee:02"},
		{IP: "10.0.0.4", MAC: "not-a-mac"}, // dropped
		{IP: "10.0.0.5", MAC: ""},          // dropped
	}}}
	s := NewLANScanner(enum)

	devices, err := s.ListDevices(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}

	first := devices[0].(*model.LANDevice)
	if first.MAC() != "AA:BB:CC:DD:EE:01" {
		t.Errorf("MAC() = %q", first.MAC())
	}
	if first.Address() != "10.0.0.1" {
		t.Errorf("Address() = %q, want the first IP seen", first.Address())
	}
	if aliases := first.AddressAliases(); len(aliases) != 1 || aliases[0] != "10.0.0.2" {
		t.Errorf("AddressAliases() = %v, want [10.0.0.2]", aliases)
	}
}

func TestLANScannerMACFilterNormalization(t *testing.T) {
	enum := &fakeLANEnum{batches: [][]RawLANDevice{{
		{IP: "10.0.0.1", MAC: "aa:bb:cc:dd:ee:01"},
	}}}
	s := NewLANScanner(enum)

	for _, spelling := range []string{"AA:BB:CC:DD:EE:01", "aa-bb-cc-dd-ee-01", "aa.bb.cc.dd.ee.01"} {
		matches, err := s.FindDevices(false, Filters{"mac_address": spelling})
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 1 {
			t.Errorf("mac %q matched %d devices, want 1", spelling, len(matches))
		}
	}

	if _, err := s.FindDevices(false, Filters{"mac_address": "nope"}); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("malformed mac filter error = %v, want ErrInvalidFilter", err)
	}
}

func TestLANScannerUnavailable(t *testing.T) {
	s := NewLANScanner(&fakeLANEnum{err: errors.New("arp gone")})
	if _, err := s.ListDevices(false); !errors.Is(err, ErrScanUnavailable) {
		t.Fatalf("error = %v, want ErrScanUnavailable", err)
	}
}

func TestLANScannerProbeWithoutNmap(t *testing.T) {
	s := NewLANScanner(&fakeLANEnum{})
	if err := s.ProbeAddress("10.0.0.1"); !errors.Is(err, ErrScanUnavailable) {
		t.Fatalf("error = %v, want ErrScanUnavailable", err)
	}
}

type fakeProber struct {
	names map[string]string
}

func (f *fakeProber) Probe(ctx context.Context, ip string) (string, error) {
	name, ok := f.names[ip]
	if !ok {
		return "", errors.New("no answer")
	}
	return name, nil
}

func TestLANScannerHostnameEnrichment(t *testing.T) {
	enum := &fakeLANEnum{batches: [][]RawLANDevice{{
		{IP: "10.0.0.1", MAC: "aa:bb:cc:dd:ee:01"},
		{IP: "10.0.0.2", MAC: "aa:bb:cc:dd:ee:02"},
		{IP: "10.0.0.3", MAC: "aa:bb:cc:dd:ee:03", Hostname: "known"},
	}}}
	prober := &fakeProber{names: map[string]string{
		"10.0.0.1": "printer",
	}}
	s := NewLANScanner(enum, WithHostProber(prober, 2))

	devices, err := s.ListDevices(false)
	if err != nil {
		t.Fatal(err)
	}

	byIP := map[string]string{}
	for _, d := range devices {
		lan := d.(*model.LANDevice)
		byIP[lan.Address()] = lan.Hostname
	}
	if byIP["10.0.0.1"] != "printer" {
		t.Errorf("hostname of 10.0.0.1 = %q, want printer", byIP["10.0.0.1"])
	}
	if byIP["10.0.0.2"] != "" {
		t.Errorf("hostname of 10.0.0.2 = %q, want empty", byIP["10.0.0.2"])
	}
	// Hostnames from the enumerator win over probing.
	if byIP["10.0.0.3"] != "known" {
		t.Errorf("hostname of 10.0.0.3 = %q, want known", byIP["10.0.0.3"])
	}
}
