package store

import (
	"path/filepath"
	"testing"

	"github.com/zea2/devicemanager/internal/model"
	"github.com/zea2/devicemanager/internal/scanner"
)

func TestSQLiteInventoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.db")
	inv, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer inv.Close()

	usbEnum := &fakeUSBEnum{batches: [][]scanner.RawUSBDevice{{
		{Path: "/d/1", VendorID: 0x413C, ProductID: 0x2113, Serial: "DA"},
	}}}

	s := newTestStore(usbEnum, nil)
	s.Set("printer", usbRecord("DA", "/d/1"))
	s.Set("printer", lanRecord(t, "aa:bb:cc:dd:ee:01", "10.0.0.9"))
	if err := inv.Save(s); err != nil {
		t.Fatal(err)
	}

	restored := newTestStore(usbEnum, nil)
	if err := inv.Load(restored); err != nil {
		t.Fatal(err)
	}

	devices, err := restored.Devices("printer")
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 2 {
		t.Fatalf("restored %d records, want 2", len(devices))
	}

	usb := devices[model.TypeUSB].(*model.USBDevice)
	if usb.Serial != "DA" || usb.Address() != "/d/1" {
		t.Errorf("usb record damaged: %+v", usb)
	}

	// The lan device is not connected anymore, so its address was cleared
	// during the load-time refresh.
	lan := devices[model.TypeLAN].(*model.LANDevice)
	if lan.MAC() != "AA:BB:CC:DD:EE:01" {
		t.Errorf("lan identity damaged: %q", lan.MAC())
	}
	if lan.Address() != "" {
		t.Errorf("lan address = %q, want cleared", lan.Address())
	}
}

func TestSQLiteSaveReplacesContent(t *testing.T) {
	inv, err := OpenSQLite(filepath.Join(t.TempDir(), "devices.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer inv.Close()

	s := newTestStore(nil, nil)
	s.Set("first", usbRecord("A", "/d/1"))
	if err := inv.Save(s); err != nil {
		t.Fatal(err)
	}

	s.Remove("first")
	s.Set("second", usbRecord("B", "/d/2"))
	if err := inv.Save(s); err != nil {
		t.Fatal(err)
	}

	restored := newTestStore(nil, nil)
	if err := inv.Load(restored); err != nil {
		t.Fatal(err)
	}
	if restored.Contains("first") {
		t.Error("save did not replace previous content")
	}
	if !restored.Contains("second") {
		t.Error("second record missing")
	}
}
