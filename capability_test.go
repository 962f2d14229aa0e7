package lifx

import "testing"

const testVendor = 1 // LIFX

func TestResolveCapabilitiesColorLight(t *testing.T) {
	const pid = 32 // LIFX Z: color, multizone
	caps, err := resolveCapabilities(testVendor, pid, HostFirmware{Major: 2, Minor: 78})
	if err != nil {
		t.Fatalf("resolveCapabilities: %v", err)
	}
	if !caps.Color {
		t.Errorf("LIFX Z: Color = false, want true")
	}
	if !caps.Multizone {
		t.Errorf("LIFX Z: Multizone = false, want true")
	}
	if caps.Relays || caps.Buttons {
		t.Errorf("LIFX Z: Relays/Buttons = true, want false")
	}
	if caps.ProductName != "LIFX Z" {
		t.Errorf("ProductName = %q, want %q", caps.ProductName, "LIFX Z")
	}
}

func TestResolveCapabilitiesSwitch(t *testing.T) {
	const pid = 89 // LIFX Switch: relays+buttons, no color
	caps, err := resolveCapabilities(testVendor, pid, HostFirmware{})
	if err != nil {
		t.Fatalf("resolveCapabilities: %v", err)
	}
	if caps.Color {
		t.Errorf("LIFX Switch: Color = true, want false")
	}
	if !caps.Relays || !caps.Buttons {
		t.Errorf("LIFX Switch: Relays=%v Buttons=%v, want both true", caps.Relays, caps.Buttons)
	}
}

func TestResolveCapabilitiesMatrix(t *testing.T) {
	const pid = 55 // LIFX Tile: matrix+chain
	caps, err := resolveCapabilities(testVendor, pid, HostFirmware{})
	if err != nil {
		t.Fatalf("resolveCapabilities: %v", err)
	}
	if !caps.Matrix || !caps.Chain {
		t.Errorf("LIFX Tile: Matrix=%v Chain=%v, want both true", caps.Matrix, caps.Chain)
	}
}

func TestResolveCapabilitiesUnknownProduct(t *testing.T) {
	if _, err := resolveCapabilities(testVendor, 0xffffff, HostFirmware{}); err == nil {
		t.Errorf("resolveCapabilities with an unknown product ID did not return an error")
	}
}

// newIdentifiedDevice builds a Device with pid's resolved capabilities, for
// testing the AsX() accessors' gating without touching the network:
// Device.caps can be set directly since this test is in-package.
func newIdentifiedDevice(t *testing.T, pid uint32) *Device {
	t.Helper()
	caps, err := resolveCapabilities(testVendor, pid, HostFirmware{})
	if err != nil {
		t.Fatalf("resolveCapabilities: %v", err)
	}
	return &Device{caps: &caps}
}

func TestAsColorLightGatedByCapability(t *testing.T) {
	colorDev := newIdentifiedDevice(t, 32)
	if _, ok := colorDev.AsColorLight(); !ok {
		t.Errorf("AsColorLight() ok = false for a color-capable device")
	}

	switchDev := newIdentifiedDevice(t, 89)
	if _, ok := switchDev.AsColorLight(); ok {
		t.Errorf("AsColorLight() ok = true for a relay-only switch")
	}
}

func TestAsLightGatedBySwitch(t *testing.T) {
	switchDev := newIdentifiedDevice(t, 89)
	if _, ok := switchDev.AsLight(); ok {
		t.Errorf("AsLight() ok = true for a relay-only switch")
	}

	colorDev := newIdentifiedDevice(t, 32)
	if _, ok := colorDev.AsLight(); !ok {
		t.Errorf("AsLight() ok = false for a dimmable color light")
	}
}

func TestAsSwitchGatedByCapability(t *testing.T) {
	switchDev := newIdentifiedDevice(t, 89)
	if _, ok := switchDev.AsSwitch(); !ok {
		t.Errorf("AsSwitch() ok = false for a switch device")
	}

	colorDev := newIdentifiedDevice(t, 32)
	if _, ok := colorDev.AsSwitch(); ok {
		t.Errorf("AsSwitch() ok = true for a color light")
	}
}

func TestCapabilitiesFalseBeforeIdentify(t *testing.T) {
	d := &Device{}
	if _, ok := d.Capabilities(); ok {
		t.Errorf("Capabilities() ok = true before Identify ever ran")
	}
	if _, ok := d.AsColorLight(); ok {
		t.Errorf("AsColorLight() ok = true before Identify ever ran")
	}
}
