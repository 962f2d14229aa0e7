package lifx

import "testing"

func TestColorEncodeDecodeRoundTrip(t *testing.T) {
	c := Color{Hue: 0x1234, Saturation: 0xffff, Brightness: 0x8000, Kelvin: 3500}
	buf := make([]byte, encodedColorLength)
	c.encode(buf)

	got := decodeColor(buf)
	if got != c {
		t.Errorf("decodeColor(encode(c)) = %+v, want %+v", got, c)
	}
}

func TestWaveformConstants(t *testing.T) {
	// The wire encoding of SetWaveform/SetWaveformOptional depends on these
	// numeric values matching the protocol's documented waveform IDs.
	cases := []struct {
		w    Waveform
		want int
	}{
		{SawWaveform, 0},
		{SineWaveform, 1},
		{HalfSineWaveform, 2},
		{TriangleWaveform, 3},
		{PulseWaveform, 4},
	}
	for _, c := range cases {
		if int(c.w) != c.want {
			t.Errorf("waveform = %d, want %d", c.w, c.want)
		}
	}
}
