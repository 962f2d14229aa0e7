package lifx

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"time"
)

// StateRPower's level field is the one big-endian exception in the whole
// message set; confirm SetRPower puts the level on the wire big-endian.
func TestRPowerLevelIsBigEndian(t *testing.T) {
	payload := make([]byte, 3)
	payload[0] = 2 // relay index
	binary.BigEndian.PutUint16(payload[1:3], 0xbbaa)

	got := binary.BigEndian.Uint16(payload[1:3])
	if got != 0xbbaa {
		t.Fatalf("sanity check failed: %x", got)
	}
	if little := binary.LittleEndian.Uint16(payload[1:3]); little == got {
		t.Fatalf("big-endian and little-endian decodes agree for %v; test value isn't exercising endianness", payload[1:3])
	}

	_, dev, peer := newTestClientAndDevice(t)
	sw := &Switch{Device: dev}
	go sw.SetRPower(context.Background(), 2, 0xbbaa)
	hdr, sent, _ := peer.recv(2 * time.Second)
	if hdr.msgType != pktSetRPower {
		t.Fatalf("msgType = %d, want pktSetRPower (%d)", hdr.msgType, pktSetRPower)
	}
	if !bytes.Equal(sent, payload) {
		t.Fatalf("SetRPower payload = %x, want %x", sent, payload)
	}
}

func TestBacklightKelvinBoundaries(t *testing.T) {
	cases := []struct {
		wire uint16
		want uint16
	}{
		{10495, 9000},
		{33535, 5250}, // linear midpoint
		{56575, 1500},
		{60000, 1500}, // clamp past the high end
	}
	for _, c := range cases {
		if got := backlightWireToKelvin(c.wire); got != c.want {
			t.Errorf("backlightWireToKelvin(%d) = %d, want %d", c.wire, got, c.want)
		}
	}
}

func TestBacklightKelvinRoundTripAtExtremes(t *testing.T) {
	if got := backlightKelvinToWire(9000); got != backlightWireLo {
		t.Errorf("backlightKelvinToWire(9000) = %d, want %d", got, backlightWireLo)
	}
	if got := backlightKelvinToWire(1500); got != backlightWireHi {
		t.Errorf("backlightKelvinToWire(1500) = %d, want %d", got, backlightWireHi)
	}
}

func TestButtonConfigEncodeDecodeRoundTrip(t *testing.T) {
	cfg := ButtonConfig{
		BacklightOn:  Color{Hue: 100, Saturation: 200, Brightness: 300, Kelvin: 9000},
		BacklightOff: Color{Hue: 1, Saturation: 2, Brightness: 3, Kelvin: 1500},
		IdleTimeout:  3600,
	}
	buf := make([]byte, encodedColorLength*2+4)
	encodeBacklightColor(buf[0:8], cfg.BacklightOn)
	encodeBacklightColor(buf[8:16], cfg.BacklightOff)
	putUint32(buf, 16, cfg.IdleTimeout)

	got, err := decodeButtonConfig(buf)
	if err != nil {
		t.Fatalf("decodeButtonConfig: %v", err)
	}
	// Kelvin round-trips only approximately, since the wire mapping is a
	// clamped linear interpolation; hue/saturation/brightness round-trip
	// exactly.
	if got.BacklightOn.Hue != cfg.BacklightOn.Hue || got.BacklightOn.Saturation != cfg.BacklightOn.Saturation {
		t.Errorf("BacklightOn = %+v, want Hue/Saturation matching %+v", got.BacklightOn, cfg.BacklightOn)
	}
	if got.BacklightOn.Kelvin != 9000 {
		t.Errorf("BacklightOn.Kelvin = %d, want 9000 (extreme value round-trips exactly)", got.BacklightOn.Kelvin)
	}
	if got.BacklightOff.Kelvin != 1500 {
		t.Errorf("BacklightOff.Kelvin = %d, want 1500 (extreme value round-trips exactly)", got.BacklightOff.Kelvin)
	}
	if got.IdleTimeout != cfg.IdleTimeout {
		t.Errorf("IdleTimeout = %d, want %d", got.IdleTimeout, cfg.IdleTimeout)
	}
}

func TestSetButtonNotEncodable(t *testing.T) {
	s := &Switch{Device: &Device{}}
	if err := s.SetButton(nil, [8]ButtonDescriptor{}); err != ErrNotEncodable {
		t.Errorf("SetButton err = %v, want ErrNotEncodable", err)
	}
}

func TestButtonDescriptorSize(t *testing.T) {
	if buttonDescriptorSize != 101 {
		t.Errorf("buttonDescriptorSize = %d, want 101", buttonDescriptorSize)
	}
}
