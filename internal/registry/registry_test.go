package registry

import (
	"errors"
	"reflect"
	"testing"

	"github.com/zea2/devicemanager/internal/model"
)

func TestResolve(t *testing.T) {
	usbRecord := &model.USBDevice{Serial: "S1"}

	tests := []struct {
		name    string
		key     any
		want    model.DeviceType
		wantErr bool
	}{
		{"type tag", model.TypeUSB, model.TypeUSB, false},
		{"string name", "lan", model.TypeLAN, false},
		{"string name mixed case", "USB", model.TypeUSB, false},
		{"record instance", usbRecord, model.TypeUSB, false},
		{"typed nil record pointer", (*model.LANDevice)(nil), model.TypeLAN, false},
		{"unknown string", "bluetooth", "", true},
		{"invalid tag", model.DeviceType("serial"), "", true},
		{"unsupported key kind", 42, "", true},
		{"nil key", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownType) {
					t.Fatalf("Resolve(%v) error = %v, want ErrUnknownType", tt.key, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%v) unexpected error: %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%v) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	usb, err := New(model.TypeUSB)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := usb.(*model.USBDevice); !ok {
		t.Errorf("New(usb) returned %T", usb)
	}

	lan, err := New(model.TypeLAN)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := lan.(*model.LANDevice); !ok {
		t.Errorf("New(lan) returned %T", lan)
	}

	if _, err := New(model.DeviceType("serial")); !errors.Is(err, ErrUnknownType) {
		t.Errorf("New(serial) error = %v, want ErrUnknownType", err)
	}
}

func TestAttribute(t *testing.T) {
	dev := &model.USBDevice{VendorID: 0x413C, Serial: "S1"}
	dev.SetAddress("/dev/a")

	acc, ok := Attribute(model.TypeUSB, "serial")
	if !ok {
		t.Fatal("serial attribute missing for usb")
	}
	if got := acc(dev); got != "S1" {
		t.Errorf("serial accessor = %v", got)
	}

	acc, ok = Attribute(model.TypeUSB, "vendor_name")
	if !ok {
		t.Fatal("vendor_name attribute missing for usb")
	}
	if got := acc(dev); got != "Dell Computer Corp." {
		t.Errorf("vendor_name accessor = %v", got)
	}

	if _, ok := Attribute(model.TypeUSB, "mac_address"); ok {
		t.Error("usb must not expose mac_address")
	}
	if _, ok := Attribute(model.TypeLAN, "serial"); ok {
		t.Error("lan must not expose serial")
	}
}

func TestAttributeNamesSorted(t *testing.T) {
	want := []string{"address", "product_id", "revision_id", "serial", "vendor_id", "vendor_name"}
	if got := AttributeNames(model.TypeUSB); !reflect.DeepEqual(got, want) {
		t.Errorf("AttributeNames(usb) = %v, want %v", got, want)
	}
}
