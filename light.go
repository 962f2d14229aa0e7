package lifx

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Light is the base operation group for any dimmable LIFX light: on/off
// power and nothing else. Every product except a bare Switch satisfies it.
// ColorLight is a separate façade over the same *Device and does not embed
// Light; the power methods are reached through AsLight.
type Light struct {
	*Device
}

// AsLight returns a Light façade over d, gated on the device not being a
// relay-only Switch. Call Identify first.
func (d *Device) AsLight() (*Light, bool) {
	if d.caps == nil || d.caps.Relays {
		return nil, false
	}
	return &Light{Device: d}, true
}

// GetLightPower reports the light's on/off level (0 or 65535), distinct
// from the device-level GetPower.
func (l *Light) GetLightPower(ctx context.Context) (uint16, error) {
	payload, err := l.query(ctx, pktLightGetPower, pktLightStatePower, nil)
	if err != nil {
		return 0, err
	}
	if len(payload) != 2 {
		return 0, &DecodeError{MessageType: pktLightStatePower, Reason: fmt.Sprintf("malformed: length=%d", len(payload))}
	}
	return binary.LittleEndian.Uint16(payload), nil
}

// SetLightPower sets the light's on/off level, ramping over duration.
func (l *Light) SetLightPower(ctx context.Context, on bool, duration time.Duration) error {
	dur, err := encodeDurationMillis(duration)
	if err != nil {
		return err
	}
	payload := make([]byte, 6)
	if on {
		binary.LittleEndian.PutUint16(payload[0:2], 0xffff)
	}
	binary.LittleEndian.PutUint32(payload[2:6], dur)
	return l.set(ctx, pktLightSetPower, payload)
}

// ColorLight is the operation group for color-capable lights: HSBK color
// state, waveform effects and infrared. Power control is on Light (see
// AsLight), not here.
type ColorLight struct {
	*Device
}

// lightStatePayload is the decoded form of LightState (107), which carries
// color, power and label together.
type lightStatePayload struct {
	Color Color
	Power uint16
	Label string
}

func decodeLightState(payload []byte) (lightStatePayload, error) {
	if len(payload) < 8+2+2+32 {
		return lightStatePayload{}, &DecodeError{MessageType: pktLightState, Reason: fmt.Sprintf("too short: %d bytes", len(payload))}
	}
	var s lightStatePayload
	s.Color = decodeColor(payload[0:8])
	// bytes 8:10 reserved.
	s.Power = binary.LittleEndian.Uint16(payload[10:12])
	s.Label = decodeLabel(payload[12:44])
	return s, nil
}

// GetColor reports the light's current color, power and label in one call.
func (c *ColorLight) GetColor(ctx context.Context) (Color, uint16, string, error) {
	payload, err := c.query(ctx, pktLightGet, pktLightState, nil)
	if err != nil {
		return Color{}, 0, "", err
	}
	s, err := decodeLightState(payload)
	if err != nil {
		return Color{}, 0, "", err
	}
	return s.Color, s.Power, s.Label, nil
}

// SetColor sets the light's HSBK color, ramping over duration.
func (c *ColorLight) SetColor(ctx context.Context, color Color, duration time.Duration) error {
	dur, err := encodeDurationMillis(duration)
	if err != nil {
		return err
	}
	payload := make([]byte, 1+8+4)
	// payload[0] reserved.
	color.encode(payload[1:9])
	binary.LittleEndian.PutUint32(payload[9:13], dur)
	return c.set(ctx, pktLightSetColor, payload)
}

// SetWaveform plays a waveform effect on the light.
func (c *ColorLight) SetWaveform(ctx context.Context, cfg WaveformConfig) error {
	period, err := encodeDurationMillis(cfg.Period)
	if err != nil {
		return err
	}
	payload := make([]byte, 21)
	// payload[0] reserved.
	payload[1] = boolByte(cfg.Transient)
	cfg.Color.encode(payload[2:10])
	binary.LittleEndian.PutUint32(payload[10:14], period)
	binary.LittleEndian.PutUint32(payload[14:18], math.Float32bits(cfg.Cycles))
	skew := cfg.SkewRatio
	if skew == 0 {
		skew = 0.5
	}
	binary.LittleEndian.PutUint16(payload[18:20], uint16(skew*float32(math.MaxUint16)))
	payload[20] = byte(cfg.Waveform)
	return c.set(ctx, pktLightSetWaveform, payload)
}

// SetWaveformOptional is SetWaveform but lets the caller choose which of
// hue/saturation/brightness/kelvin are actually applied, leaving the rest
// at the light's current value.
func (c *ColorLight) SetWaveformOptional(ctx context.Context, cfg WaveformConfig, setHue, setSaturation, setBrightness, setKelvin bool) error {
	period, err := encodeDurationMillis(cfg.Period)
	if err != nil {
		return err
	}
	payload := make([]byte, 25)
	payload[1] = boolByte(cfg.Transient)
	cfg.Color.encode(payload[2:10])
	binary.LittleEndian.PutUint32(payload[10:14], period)
	binary.LittleEndian.PutUint32(payload[14:18], math.Float32bits(cfg.Cycles))
	skew := cfg.SkewRatio
	if skew == 0 {
		skew = 0.5
	}
	binary.LittleEndian.PutUint16(payload[18:20], uint16(skew*float32(math.MaxUint16)))
	payload[20] = byte(cfg.Waveform)
	payload[21] = boolByte(setHue)
	payload[22] = boolByte(setSaturation)
	payload[23] = boolByte(setBrightness)
	payload[24] = boolByte(setKelvin)
	return c.set(ctx, pktLightSetWaveformOptional, payload)
}

// GetInfrared reports the light's infrared brightness (0 = off).
func (c *ColorLight) GetInfrared(ctx context.Context) (uint16, error) {
	payload, err := c.query(ctx, pktLightGetInfrared, pktLightStateInfrared, nil)
	if err != nil {
		return 0, err
	}
	if len(payload) != 2 {
		return 0, &DecodeError{MessageType: pktLightStateInfrared, Reason: fmt.Sprintf("malformed: length=%d", len(payload))}
	}
	return binary.LittleEndian.Uint16(payload), nil
}

// SetInfrared sets the light's infrared brightness.
func (c *ColorLight) SetInfrared(ctx context.Context, brightness uint16) error {
	payload := make([]byte, 2)
	binary.LittleEndian.PutUint16(payload, brightness)
	return c.set(ctx, pktLightSetInfrared, payload)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
