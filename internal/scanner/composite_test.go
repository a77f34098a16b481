package scanner

import (
	"errors"
	"testing"

	"github.com/zea2/devicemanager/internal/model"
	"github.com/zea2/devicemanager/internal/registry"
)

func newTestComposite(t *testing.T) (*Composite, *fakeUSBEnum, *fakeLANEnum) {
	t.Helper()
	usbEnum := &fakeUSBEnum{batches: [][]RawUSBDevice{usbBatch(
		RawUSBDevice{Path: "/d/1", VendorID: 0x413C, Serial: "DA"},
		RawUSBDevice{Path: "/d/2", VendorID: 0x0781, Serial: "SD"},
	)}}
	lanEnum := &fakeLANEnum{batches: [][]RawLANDevice{{
		{IP: "10.0.0.1", MAC: "aa:bb:cc:dd:ee:01"},
	}}}
	c := NewComposite(NewUSBScanner(usbEnum), NewLANScanner(lanEnum))
	return c, usbEnum, lanEnum
}

func TestCompositeListDevicesOrder(t *testing.T) {
	c, _, _ := newTestComposite(t)

	devices, err := c.ListDevices(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 3 {
		t.Fatalf("got %d devices, want 3", len(devices))
	}
	// Registration order: usb devices first, then lan.
	wantTypes := []model.DeviceType{model.TypeUSB, model.TypeUSB, model.TypeLAN}
	for i, d := range devices {
		if d.Type() != wantTypes[i] {
			t.Errorf("device %d has type %v, want %v", i, d.Type(), wantTypes[i])
		}
	}
}

func TestCompositeGet(t *testing.T) {
	c, _, _ := newTestComposite(t)

	tests := []struct {
		name string
		key  any
		want model.DeviceType
	}{
		{"string", "usb", model.TypeUSB},
		{"tag", model.TypeLAN, model.TypeLAN},
		{"record instance", &model.USBDevice{}, model.TypeUSB},
		{"typed nil pointer", (*model.LANDevice)(nil), model.TypeLAN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := c.Get(tt.key)
			if err != nil {
				t.Fatal(err)
			}
			if s.Type() != tt.want {
				t.Errorf("Get(%v).Type() = %v, want %v", tt.key, s.Type(), tt.want)
			}
		})
	}

	if _, err := c.Get("bluetooth"); !errors.Is(err, registry.ErrUnknownType) {
		t.Errorf("Get(bluetooth) error = %v, want ErrUnknownType", err)
	}
}

func TestCompositeFindSkipsNonApplicableTypes(t *testing.T) {
	c, _, _ := newTestComposite(t)

	// serial only exists on usb; the lan scanner is skipped, not an error.
	matches, err := c.FindDevices(false, Filters{"serial": "DA"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Type() != model.TypeUSB {
		t.Errorf("matches = %v, want one usb device", matches)
	}
}

func TestCompositeFindNoApplicableType(t *testing.T) {
	c, _, _ := newTestComposite(t)

	matches, err := c.FindDevices(false, Filters{"flux_capacitance": 1.21})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matches == nil || len(matches) != 0 {
		t.Errorf("matches = %v, want empty non-nil slice", matches)
	}
}

func TestCompositeFindRescanRefreshesSkippedTypes(t *testing.T) {
	c, _, lanEnum := newTestComposite(t)

	// The serial filter never applies to lan, but a forced rescan still
	// refreshes the lan cache.
	if _, err := c.FindDevices(true, Filters{"serial": "DA"}); err != nil {
		t.Fatal(err)
	}
	if lanEnum.calls != 1 {
		t.Errorf("lan enumerator called %d times, want 1", lanEnum.calls)
	}
}

func TestCompositeScanFailurePropagates(t *testing.T) {
	usbEnum := &fakeUSBEnum{err: errors.New("no access"), errAfter: 0}
	c := NewComposite(NewUSBScanner(usbEnum))

	if _, err := c.ListDevices(false); !errors.Is(err, ErrScanUnavailable) {
		t.Fatalf("error = %v, want ErrScanUnavailable", err)
	}
	if _, err := c.FindDevices(false, Filters{"serial": "X"}); !errors.Is(err, ErrScanUnavailable) {
		t.Fatalf("error = %v, want ErrScanUnavailable", err)
	}
}

func TestCompositeAddressFilterSpansTypes(t *testing.T) {
	c, _, _ := newTestComposite(t)

	matches, err := c.FindDevices(false, Filters{"address": "10.0.0.1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Type() != model.TypeLAN {
		t.Errorf("matches = %v, want one lan device", matches)
	}
}
