package scanner

import (
	"errors"
	"testing"

	"github.com/zea2/devicemanager/internal/model"
)

// fakeUSBEnum serves one batch per call; the last batch repeats. A non-nil
// err makes every call after errAfter fail.
type fakeUSBEnum struct {
	batches  [][]RawUSBDevice
	calls    int
	err      error
	errAfter int
}

func (f *fakeUSBEnum) Enumerate() ([]RawUSBDevice, error) {
	call := f.calls
	f.calls++
	if f.err != nil && call >= f.errAfter {
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

func usbBatch(descs ...RawUSBDevice) []RawUSBDevice { return descs }

func TestUSBScannerCachesResult(t *testing.T) {
	enum := &fakeUSBEnum{batches: [][]RawUSBDevice{
		usbBatch(RawUSBDevice{Path: "/d/1", VendorID: 1, Serial: "A"}),
	}}
	s := NewUSBScanner(enum)

	first, err := s.ListDevices(false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.ListDevices(false)
	if err != nil {
		t.Fatal(err)
	}

	if enum.calls != 1 {
		t.Errorf("enumerator called %d times, want 1", enum.calls)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("got %d and %d devices, want 1 and 1", len(first), len(second))
	}
	if first[0] != second[0] {
		t.Error("cached call must return the same record instances")
	}
}

func TestUSBScannerRescanReplacesCache(t *testing.T) {
	enum := &fakeUSBEnum{batches: [][]RawUSBDevice{
		usbBatch(RawUSBDevice{Path: "/d/1", Serial: "A"}),
		usbBatch(RawUSBDevice{Path: "/d/2", Serial: "B"}),
	}}
	s := NewUSBScanner(enum)

	if _, err := s.ListDevices(false); err != nil {
		t.Fatal(err)
	}
	fresh, err := s.ListDevices(true)
	if err != nil {
		t.Fatal(err)
	}
	if enum.calls != 2 {
		t.Errorf("enumerator called %d times, want 2", enum.calls)
	}
	if len(fresh) != 1 || fresh[0].Address() != "/d/2" {
		t.Errorf("rescan did not replace the cache: %v", fresh)
	}

	// The replacement is wholesale, /d/1 is gone.
	cached, err := s.ListDevices(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != 1 || cached[0].Address() != "/d/2" {
		t.Errorf("cache still holds stale devices: %v", cached)
	}
}

func TestUSBScannerFailedRescanKeepsCache(t *testing.T) {
	enum := &fakeUSBEnum{
		batches:  [][]RawUSBDevice{usbBatch(RawUSBDevice{Path: "/d/1", Serial: "A"})},
		err:      errors.New("usb subsystem gone"),
		errAfter: 1,
	}
	s := NewUSBScanner(enum)

	if _, err := s.ListDevices(false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ListDevices(true); !errors.Is(err, ErrScanUnavailable) {
		t.Fatalf("rescan error = %v, want ErrScanUnavailable", err)
	}

	// The failed rescan must not have touched the cached result.
	devices, err := s.ListDevices(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 1 || devices[0].Address() != "/d/1" {
		t.Errorf("cache lost after failed rescan: %v", devices)
	}
}

func TestUSBScannerFirstScanFailure(t *testing.T) {
	enum := &fakeUSBEnum{err: errors.New("no access"), errAfter: 0}
	s := NewUSBScanner(enum)

	if _, err := s.ListDevices(false); !errors.Is(err, ErrScanUnavailable) {
		t.Fatalf("error = %v, want ErrScanUnavailable", err)
	}
	// Still unscanned, the next call tries again.
	s.ListDevices(false)
	if enum.calls != 2 {
		t.Errorf("enumerator called %d times, want 2", enum.calls)
	}
}

func TestUSBScannerSkipsEntriesWithoutPath(t *testing.T) {
	enum := &fakeUSBEnum{batches: [][]RawUSBDevice{usbBatch(
		RawUSBDevice{Path: "", Serial: "ghost"},
		RawUSBDevice{Path: "/d/1", Serial: "A"},
	)}}
	s := NewUSBScanner(enum)

	devices, err := s.ListDevices(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 1 {
		t.Errorf("got %d devices, want 1", len(devices))
	}
}

func TestUSBScannerFindDevices(t *testing.T) {
	// Seven devices, three of them from the same vendor.
	enum := &fakeUSBEnum{batches: [][]RawUSBDevice{usbBatch(
		RawUSBDevice{Path: "/d/1", VendorID: 0x0403, ProductID: 0x6001, Serial: "FT1"},
		RawUSBDevice{Path: "/d/2", VendorID: 0x413C, ProductID: 0x2113, Serial: "DA"},
		RawUSBDevice{Path: "/d/3", VendorID: 0x046D, ProductID: 0xC077, Serial: "LG1"},
		RawUSBDevice{Path: "/d/4", VendorID: 0x413C, ProductID: 0x2113, Serial: "DB"},
		RawUSBDevice{Path: "/d/5", VendorID: 0x0781, ProductID: 0x5567, Serial: "SD1"},
		RawUSBDevice{Path: "/d/6", VendorID: 0x413C, ProductID: 0x5534, Serial: "DC"},
		RawUSBDevice{Path: "/d/7", VendorID: 0x8087, ProductID: 0x0024},
	)}}
	s := NewUSBScanner(enum)

	dell, err := s.FindDevices(false, Filters{"vendor_id": 0x413C})
	if err != nil {
		t.Fatal(err)
	}
	if len(dell) != 3 {
		t.Fatalf("got %d matches, want 3", len(dell))
	}
	// Scan order is preserved.
	wantAddrs := []string{"/d/2", "/d/4", "/d/6"}
	for i, d := range dell {
		if d.Address() != wantAddrs[i] {
			t.Errorf("match %d at %q, want %q", i, d.Address(), wantAddrs[i])
		}
	}

	one, err := s.FindDevices(false, Filters{"vendor_id": 0x413C, "serial": "DB"})
	if err != nil {
		t.Fatal(err)
	}
	if len(one) != 1 || one[0].Address() != "/d/4" {
		t.Errorf("combined filters matched %v", one)
	}

	byName, err := s.FindDevices(false, Filters{"vendor_name": "Dell Computer Corp."})
	if err != nil {
		t.Fatal(err)
	}
	if len(byName) != 3 {
		t.Errorf("vendor_name filter matched %d, want 3", len(byName))
	}

	if enum.calls != 1 {
		t.Errorf("filtering must reuse the cache, enumerator called %d times", enum.calls)
	}
}

func TestUSBScannerFindByAddressAlias(t *testing.T) {
	enum := &fakeUSBEnum{batches: [][]RawUSBDevice{usbBatch(
		RawUSBDevice{Path: "/sys/1-2", DevNode: "/dev/bus/usb/001/004", Serial: "A"},
	)}}
	s := NewUSBScanner(enum)

	for _, addr := range []string{"/sys/1-2", "/dev/bus/usb/001/004"} {
		matches, err := s.FindDevices(false, Filters{"address": addr})
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 1 {
			t.Errorf("address %q matched %d devices, want 1", addr, len(matches))
		}
	}
}

func TestUSBScannerInvalidFilter(t *testing.T) {
	s := NewUSBScanner(&fakeUSBEnum{})

	_, err := s.FindDevices(false, Filters{"mac_address": "AA:BB:CC:DD:EE:FF"})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("error = %v, want ErrInvalidFilter", err)
	}

	// Invalid names fail even when the scan would be empty.
	_, err = s.FindDevices(false, Filters{"nonsense": 1})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("error = %v, want ErrInvalidFilter", err)
	}
}

func TestScannerTypes(t *testing.T) {
	if got := NewUSBScanner(&fakeUSBEnum{}).Type(); got != model.TypeUSB {
		t.Errorf("usb scanner Type() = %v", got)
	}
	if got := NewLANScanner(&fakeLANEnum{}).Type(); got != model.TypeLAN {
		t.Errorf("lan scanner Type() = %v", got)
	}
}
