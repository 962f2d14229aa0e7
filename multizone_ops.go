package lifx

import (
	"context"
	"fmt"
	"time"
)

// MultizoneLight is the operation group for linear multizone strips (LIFX Z,
// Beam). extended reports whether the device's resolved capabilities
// include the newer single-message extended-zone protocol; SetColorZones
// and GetColorZones always use the legacy per-range protocol, which every
// multizone device supports.
type MultizoneLight struct {
	*Device
	extended bool
}

// SupportsExtended reports whether SetExtendedColorZones/
// GetExtendedColorZones are available on this device.
func (m *MultizoneLight) SupportsExtended() bool { return m.extended }

// MultiZoneApplicationRequest selects how a SetColorZones call takes effect.
type MultiZoneApplicationRequest byte

const (
	NoApply   = MultiZoneApplicationRequest(0)
	Apply     = MultiZoneApplicationRequest(1)
	ApplyOnly = MultiZoneApplicationRequest(2)
)

// SetColorZones sets the color of zones [startIndex, endIndex] (inclusive),
// ramping over duration.
func (m *MultizoneLight) SetColorZones(ctx context.Context, startIndex, endIndex uint8, color Color, duration time.Duration, apply MultiZoneApplicationRequest) error {
	dur, err := encodeDurationMillis(duration)
	if err != nil {
		return err
	}
	payload := make([]byte, 2+encodedColorLength+4+1)
	payload[0] = startIndex
	payload[1] = endIndex
	color.encode(payload[2:10])
	putUint32(payload, 10, dur)
	payload[14] = byte(apply)
	return m.set(ctx, pktMultiZoneSetColorZones, payload)
}

// ZoneColor pairs a zone index with its color, as returned by GetColorZones.
type ZoneColor struct {
	Index uint8
	Color Color
}

// GetColorZones reports the colors of zones [startIndex, endIndex]. A strip
// with more than 8 zones in range replies with multiple StateMultiZone
// messages, each covering a different slice of the full zone count; this
// collects all of them into one index-ordered result before returning.
func (m *MultizoneLight) GetColorZones(ctx context.Context, startIndex, endIndex uint8) (zonesCount uint8, zones []ZoneColor, err error) {
	var (
		total    int
		filled   int
		haveSize bool
		colors   []Color
		decodeErr error
	)

	collector := &multiCollector{add: func(payload []byte) bool {
		if len(payload) < 2 {
			decodeErr = &DecodeError{MessageType: pktMultiZoneStateMultiZone, Reason: fmt.Sprintf("too short: %d bytes", len(payload))}
			return true
		}
		zonesCount = payload[0]
		index := int(payload[1])
		if !haveSize {
			total = int(zonesCount)
			colors = make([]Color, total)
			haveSize = true
		}
		body := payload[2:]
		n := len(body) / encodedColorLength
		for i := 0; i < n && index+i < total; i++ {
			off := i * encodedColorLength
			colors[index+i] = decodeColor(body[off : off+encodedColorLength])
			filled++
		}
		return filled >= total
	}}

	if err := m.collectResponses(ctx, pktMultiZoneGetColorZones, pktMultiZoneStateMultiZone, []byte{startIndex, endIndex}, collector); err != nil {
		return 0, nil, err
	}
	if decodeErr != nil {
		return 0, nil, decodeErr
	}

	zones = make([]ZoneColor, total)
	for i, c := range colors {
		zones[i] = ZoneColor{Index: uint8(i), Color: c}
	}
	return zonesCount, zones, nil
}

// GetExtendedColorZones reports every zone's color in a single message.
// Only valid when SupportsExtended reports true.
func (m *MultizoneLight) GetExtendedColorZones(ctx context.Context) (zones []Color, err error) {
	payload, err := m.query(ctx, pktMultiZoneGetExtendedColorZones, pktMultiZoneStateExtendedColorZones, nil)
	if err != nil {
		return nil, err
	}
	if len(payload) < 5 {
		return nil, &DecodeError{MessageType: pktMultiZoneStateExtendedColorZones, Reason: fmt.Sprintf("too short: %d bytes", len(payload))}
	}
	zonesCount := int(getUint16(payload, 0))
	zoneIndex := int(getUint16(payload, 2))
	colorsCount := int(payload[4])

	colors := payload[5:]
	want := colorsCount * encodedColorLength
	if want > len(colors) {
		return nil, &DecodeError{MessageType: pktMultiZoneStateExtendedColorZones, Reason: fmt.Sprintf("colorsCount=%d exceeds payload", colorsCount)}
	}
	colors = colors[:want]

	if zonesCount != colorsCount || zoneIndex != 0 {
		return nil, fmt.Errorf("lifx: partial StateExtendedColorZones messages aren't supported (zonesCount=%d zoneIndex=%d colorsCount=%d)", zonesCount, zoneIndex, colorsCount)
	}

	zones = make([]Color, colorsCount)
	for i := 0; i < colorsCount; i++ {
		off := i * encodedColorLength
		zones[i] = decodeColor(colors[off : off+encodedColorLength])
	}
	return zones, nil
}

// SetExtendedColorZones sets every zone's color in a single message. Only
// valid when SupportsExtended reports true; the protocol caps this at 82
// zones per message.
func (m *MultizoneLight) SetExtendedColorZones(ctx context.Context, duration time.Duration, zones []Color) error {
	const maxZonesPerMessage = 82
	if len(zones) > maxZonesPerMessage {
		return fmt.Errorf("lifx: too many zones to set in one message; %d > %d", len(zones), maxZonesPerMessage)
	}
	dur, err := encodeDurationMillis(duration)
	if err != nil {
		return err
	}

	payload := make([]byte, 4+1+2+1+len(zones)*encodedColorLength)
	putUint32(payload, 0, dur)
	payload[4] = byte(Apply)
	putUint16(payload, 5, 0) // zone_index
	payload[7] = uint8(len(zones))
	for i, off := 0, 8; i < len(zones); i++ {
		zones[i].encode(payload[off : off+encodedColorLength])
		off += encodedColorLength
	}

	return m.set(ctx, pktMultiZoneSetExtendedColorZones, payload)
}

// MultiZoneEffectType selects a firmware-driven multizone effect.
type MultiZoneEffectType byte

const (
	MultiZoneEffectOff  = MultiZoneEffectType(0)
	MultiZoneEffectMove = MultiZoneEffectType(1)
)

// MultiZoneDirection selects playback direction for MultiZoneEffectMove.
type MultiZoneDirection byte

const (
	MultiZoneTowardsCamera = MultiZoneDirection(0)
	MultiZoneAwayFromCamera = MultiZoneDirection(1)
)

// SetMultiZoneEffect starts (or stops, with MultiZoneEffectOff) a
// firmware-driven effect across the whole strip.
func (m *MultizoneLight) SetMultiZoneEffect(ctx context.Context, effect MultiZoneEffectType, speed time.Duration, direction MultiZoneDirection) error {
	speedMs, err := encodeDurationMillis(speed)
	if err != nil {
		return err
	}
	payload := make([]byte, 4+1+4+8+4+4+1+3+32)
	// payload[0:4] instanceid, left 0 (device assigns it).
	payload[4] = byte(effect)
	putUint32(payload, 5, speedMs)
	// payload[9:17] duration, left 0 (run forever).
	// payload[17:25] reserved.
	payload[25] = byte(direction)
	return m.set(ctx, pktMultiZoneSetMultiZoneEffect, payload)
}
