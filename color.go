package lifx

import (
	"encoding/binary"
	"time"
)

const encodedColorLength = 2 + 2 + 2 + 2 // four uint16s

// Color represents a single HSBK value.
//
// https://lan.developer.lifx.com/docs/field-types#color
type Color struct {
	Hue, Saturation, Brightness uint16
	Kelvin                      uint16
}

// encode writes the color into the given destination slice.
// The caller must ensure len(dst) is at least encodedColorLength.
func (c Color) encode(dst []byte) {
	binary.LittleEndian.PutUint16(dst[0:2], c.Hue)
	binary.LittleEndian.PutUint16(dst[2:4], c.Saturation)
	binary.LittleEndian.PutUint16(dst[4:6], c.Brightness)
	binary.LittleEndian.PutUint16(dst[6:8], c.Kelvin)
}

func decodeColor(b []byte) Color {
	return Color{
		Hue:        binary.LittleEndian.Uint16(b[0:2]),
		Saturation: binary.LittleEndian.Uint16(b[2:4]),
		Brightness: binary.LittleEndian.Uint16(b[4:6]),
		Kelvin:     binary.LittleEndian.Uint16(b[6:8]),
	}
}

// Waveform selects the shape used by SetWaveform/SetWaveformOptional to
// transition or pulse a light's color over time.
type Waveform int

const (
	SawWaveform      = Waveform(0)
	SineWaveform     = Waveform(1)
	HalfSineWaveform = Waveform(2)
	TriangleWaveform = Waveform(3)
	PulseWaveform    = Waveform(4)
)

// WaveformConfig configures a SetWaveform call.
type WaveformConfig struct {
	Waveform  Waveform
	Transient bool

	Color Color

	Period time.Duration
	Cycles float32

	// SkewRatio only affects PulseWaveform; it's the fraction of Period
	// spent at Color before reverting. 0.5 (the wire default) is a 50/50
	// split and is what's encoded when left at its zero value.
	SkewRatio float32
}
