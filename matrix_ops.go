package lifx

import (
	"context"
	"fmt"
	"math"
	"time"
)

// MatrixLight is the operation group for tile/matrix devices (LIFX Tile,
// Candle): a chain of square panels, each independently addressable as an
// 8x8 (or product-specific) grid of HSBK values.
type MatrixLight struct {
	*Device
}

// TileDevice describes one tile in a GetDeviceChain response.
type TileDevice struct {
	AccelMeasX, AccelMeasY, AccelMeasZ        int16
	UserX, UserY                              float32
	Width, Height                             uint8
	DeviceVersionVendor, DeviceVersionProduct uint32
	FirmwareBuild                             time.Time
	FirmwareVersion                           firmwareVersion
}

// GetDeviceChain reports the chain's start index, all 16 tile slots, and
// the number of tiles actually in the chain (tile_devices_count).
func (m *MatrixLight) GetDeviceChain(ctx context.Context) (startIndex uint8, tiles []TileDevice, totalCount uint8, err error) {
	payload, err := m.query(ctx, pktTileGetDeviceChain, pktTileStateDeviceChain, nil)
	if err != nil {
		return 0, nil, 0, err
	}
	const tileSize = 55 // accel(6) + reserved(2) + user_xy(8) + w/h/reserved(3) + vendor/product(8) + reserved(4) + build(8) + reserved(8) + version(4) + reserved(4)
	if len(payload) < 1+16*tileSize+1 {
		return 0, nil, 0, &DecodeError{MessageType: pktTileStateDeviceChain, Reason: fmt.Sprintf("too short: %d bytes", len(payload))}
	}
	startIndex = payload[0]
	off := 1
	tiles = make([]TileDevice, 16)
	for i := range tiles {
		b := payload[off : off+tileSize]
		tiles[i] = TileDevice{
			AccelMeasX: int16(getUint16(b, 0)),
			AccelMeasY: int16(getUint16(b, 2)),
			AccelMeasZ: int16(getUint16(b, 4)),
			// b[6:8] reserved
			UserX:  decodeFloat32(b, 8),
			UserY:  decodeFloat32(b, 12),
			Width:  b[16],
			Height: b[17],
			// b[18] reserved
			DeviceVersionVendor:  getUint32(b, 19),
			DeviceVersionProduct: getUint32(b, 23),
			// b[27:31] reserved
			FirmwareBuild:   decodeTimestamp(getUint64(b, 31)),
			// b[39:47] reserved
			FirmwareVersion: decodeFirmwareVersion(getUint32(b, 47)),
			// b[51:55] reserved
		}
		off += tileSize
	}
	totalCount = payload[off]
	return startIndex, tiles, totalCount, nil
}

// GetTileColors reports the colors of an 8x8 tile at the given chain index.
func (m *MatrixLight) GetTileColors(ctx context.Context, tileIndex uint8, width uint8) ([]Color, error) {
	payload := []byte{tileIndex, 1} // tile_index, length=1
	resp, err := m.query(ctx, pktTileGet64, pktTileState64, payload)
	if err != nil {
		return nil, err
	}
	// tile_index(1) x(1) y(1) width(1) colors(64*8)
	if len(resp) < 4 {
		return nil, &DecodeError{MessageType: pktTileState64, Reason: fmt.Sprintf("too short: %d bytes", len(resp))}
	}
	colors := resp[4:]
	n := len(colors) / encodedColorLength
	out := make([]Color, n)
	for i := 0; i < n; i++ {
		off := i * encodedColorLength
		out[i] = decodeColor(colors[off : off+encodedColorLength])
	}
	return out, nil
}

// SetTileColors sets the colors of an 8x8 (or width x width) tile at the
// given chain index, ramping over duration.
func (m *MatrixLight) SetTileColors(ctx context.Context, tileIndex uint8, width uint8, colors []Color, duration time.Duration) error {
	dur, err := encodeDurationMillis(duration)
	if err != nil {
		return err
	}
	payload := make([]byte, 1+1+1+1+1+1+4+len(colors)*encodedColorLength)
	payload[0] = tileIndex
	payload[1] = 1 // length
	// payload[2] reserved
	payload[3] = 0 // x
	payload[4] = 0 // y
	payload[5] = width
	putUint32(payload, 6, dur)
	off := 10
	for _, c := range colors {
		c.encode(payload[off : off+encodedColorLength])
		off += encodedColorLength
	}
	return m.set(ctx, pktTileSet64, payload)
}

// TileEffectType selects a firmware-driven tile effect.
type TileEffectType byte

const (
	TileEffectOff    = TileEffectType(0)
	TileEffectMorph  = TileEffectType(2)
	TileEffectFlame  = TileEffectType(3)
)

// SetTileEffect starts (or stops, with TileEffectOff) a firmware-driven
// effect across the whole tile chain.
func (m *MatrixLight) SetTileEffect(ctx context.Context, effect TileEffectType, speed time.Duration) error {
	speedMs, err := encodeDurationMillis(speed)
	if err != nil {
		return err
	}
	payload := make([]byte, 1+4+1+4+8+4+2+1+1+32+4)
	// payload[0] reserved
	// payload[1:5] instanceid, device-assigned
	payload[5] = byte(effect)
	putUint32(payload, 6, speedMs)
	return m.set(ctx, pktTileSetTileEffect, payload)
}

func decodeFloat32(b []byte, off int) float32 {
	return math.Float32frombits(getUint32(b, off))
}
