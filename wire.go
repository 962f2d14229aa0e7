package lifx

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Shared little-endian field helpers used across the payloads_*.go files.
// Kept in one place because every message kind in the protocol uses the
// same handful of primitive encodings (label, duration, color) — see
// SPEC_FULL.md §3.

const labelSize = 32

// encodeLabel writes s into a zero-padded 32-byte field. Labels longer than
// 32 bytes are truncated rather than rejected, per spec.md §7's "Programmer
// errors... silently clamped".
func encodeLabel(s string) [labelSize]byte {
	var b [labelSize]byte
	copy(b[:], s)
	return b
}

// decodeLabel strips trailing NUL bytes from a 32-byte label field.
func decodeLabel(b []byte) string {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return string(b[:i])
}

// encodeDurationMillis converts d to a 32-bit millisecond count, the
// default duration encoding used by most Set* messages.
func encodeDurationMillis(d time.Duration) (uint32, error) {
	ms := d.Milliseconds()
	if d < 0 || ms > 0xffffffff {
		return 0, fmt.Errorf("lifx: duration %v out of range for a 32-bit millisecond field", d)
	}
	return uint32(ms), nil
}

// encodeDurationSecs converts d to a 32-bit second count, used by the HEV
// cycle family (§3: "HEV durations are 32-bit seconds").
func encodeDurationSecs(d time.Duration) (uint32, error) {
	s := int64(d / time.Second)
	if s < 0 || s > 0xffffffff {
		return 0, fmt.Errorf("lifx: duration %v out of range for a 32-bit second field", d)
	}
	return uint32(s), nil
}

// decodeTimestamp interprets a 64-bit field as nanoseconds since the Unix
// epoch, per §3.
func decodeTimestamp(ns uint64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(ns)).UTC()
}

// firmwareVersion splits a 32-bit firmware version field into
// (major = high 16 bits, minor = low 16 bits), per §4.1.
type firmwareVersion struct {
	Major, Minor uint16
}

func decodeFirmwareVersion(v uint32) firmwareVersion {
	return firmwareVersion{Major: uint16(v >> 16), Minor: uint16(v)}
}

func (v firmwareVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// HostFirmware describes a device's host-side firmware, as returned by
// GetHostFirmware / StateHostFirmware (14/15). Major/Minor compose into the
// "major.minor" string form per §4.1; Build is the reported build
// timestamp.
//
// This type is referenced, but never defined, by the teacher snapshot's
// DetermineProduct signature and products_test.go; it's filled in here.
type HostFirmware struct {
	Major, Minor uint16
	Build        time.Time
}

func (f HostFirmware) String() string { return fmt.Sprintf("%d.%d", f.Major, f.Minor) }

// Color.encode and decodeColor live in color.go alongside the Color type.

// --- switch backlight Kelvin inversion (§4.1) ---
//
// A switch's backlight color carries an inverted Kelvin mapping: wire
// values in [10495, 56575] map linearly, and decreasingly, to Kelvin values
// in [9000, 1500]. Values outside that span clamp.
const (
	backlightWireLo = 10495
	backlightWireHi = 56575
	backlightKelvinHi = 9000
	backlightKelvinLo = 1500
)

// backlightWireToKelvin converts a raw backlight Kelvin wire value to an
// actual Kelvin temperature.
func backlightWireToKelvin(wire uint16) uint16 {
	switch {
	case wire <= backlightWireLo:
		return backlightKelvinHi
	case wire >= backlightWireHi:
		return backlightKelvinLo
	}
	// Linear interpolation, decreasing: higher wire value -> lower Kelvin.
	span := float64(backlightWireHi - backlightWireLo)
	frac := float64(wire-backlightWireLo) / span
	k := float64(backlightKelvinHi) - frac*float64(backlightKelvinHi-backlightKelvinLo)
	return uint16(k + 0.5)
}

// backlightKelvinToWire is the inverse of backlightWireToKelvin, used when
// encoding a SetButtonConfig backlight color from a desired Kelvin value.
func backlightKelvinToWire(kelvin uint16) uint16 {
	switch {
	case kelvin >= backlightKelvinHi:
		return backlightWireLo
	case kelvin <= backlightKelvinLo:
		return backlightWireHi
	}
	span := float64(backlightKelvinHi - backlightKelvinLo)
	frac := float64(backlightKelvinHi-kelvin) / span
	w := float64(backlightWireLo) + frac*float64(backlightWireHi-backlightWireLo)
	return uint16(w + 0.5)
}

// putUint16 and putUint32 are tiny wrappers kept only because they read
// better at call sites that build up a payload field by field, mirroring
// the teacher's msg.go style of one binary.LittleEndian.PutUintNN call per
// field comment.
func putUint16(b []byte, off int, v uint16) { binary.LittleEndian.PutUint16(b[off:off+2], v) }
func putUint32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:off+4], v) }
func getUint16(b []byte, off int) uint16    { return binary.LittleEndian.Uint16(b[off : off+2]) }
func getUint32(b []byte, off int) uint32    { return binary.LittleEndian.Uint32(b[off : off+4]) }
