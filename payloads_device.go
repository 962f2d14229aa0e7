package lifx

import (
	"context"
	"fmt"
	"math"
	"time"
)

// This file covers the device-level (non-light, non-switch) message family:
// host/wifi info and firmware, power, label, version, location, group,
// echo and info. Grounded on the teacher's info.go, generalized to the
// rest of the kinds this family's aiolifx source defines.

// GetHostInfo reports the device's own signal strength and packet counters.
func (d *Device) GetHostInfo(ctx context.Context) (signal float32, tx, rx uint32, err error) {
	payload, err := d.query(ctx, pktGetHostInfo, pktStateHostInfo, nil)
	if err != nil {
		return 0, 0, 0, err
	}
	if len(payload) < 14 {
		return 0, 0, 0, &DecodeError{MessageType: pktStateHostInfo, Reason: fmt.Sprintf("too short: %d bytes", len(payload))}
	}
	signal = math.Float32frombits(getUint32(payload, 0))
	tx = getUint32(payload, 4)
	rx = getUint32(payload, 8)
	return signal, tx, rx, nil
}

// GetHostFirmware reports the device's host-side firmware version and
// build time.
func (d *Device) GetHostFirmware(ctx context.Context) (HostFirmware, error) {
	payload, err := d.query(ctx, pktGetHostFirmware, pktStateHostFirmware, nil)
	if err != nil {
		return HostFirmware{}, err
	}
	if len(payload) < 20 {
		return HostFirmware{}, &DecodeError{MessageType: pktStateHostFirmware, Reason: fmt.Sprintf("too short: %d bytes", len(payload))}
	}
	build := decodeTimestamp(getUint64(payload, 0))
	// bytes 8:16 reserved.
	ver := decodeFirmwareVersion(getUint32(payload, 16))
	return HostFirmware{Major: ver.Major, Minor: ver.Minor, Build: build}, nil
}

// GetWifiInfo reports the device's wifi signal strength and packet counters.
func (d *Device) GetWifiInfo(ctx context.Context) (signal float32, tx, rx uint32, err error) {
	payload, err := d.query(ctx, pktGetWifiInfo, pktStateWifiInfo, nil)
	if err != nil {
		return 0, 0, 0, err
	}
	if len(payload) < 14 {
		return 0, 0, 0, &DecodeError{MessageType: pktStateWifiInfo, Reason: fmt.Sprintf("too short: %d bytes", len(payload))}
	}
	signal = math.Float32frombits(getUint32(payload, 0))
	tx = getUint32(payload, 4)
	rx = getUint32(payload, 8)
	return signal, tx, rx, nil
}

// GetWifiFirmware reports the device's wifi-chip firmware version and
// build time.
func (d *Device) GetWifiFirmware(ctx context.Context) (firmwareVersion, time.Time, error) {
	payload, err := d.query(ctx, pktGetWifiFirmware, pktStateWifiFirmware, nil)
	if err != nil {
		return firmwareVersion{}, time.Time{}, err
	}
	if len(payload) < 20 {
		return firmwareVersion{}, time.Time{}, &DecodeError{MessageType: pktStateWifiFirmware, Reason: fmt.Sprintf("too short: %d bytes", len(payload))}
	}
	build := decodeTimestamp(getUint64(payload, 0))
	ver := decodeFirmwareVersion(getUint32(payload, 16))
	return ver, build, nil
}

// GetPower reports the device's overall on/off state (distinct from a
// light's GetLightPower — this is the device-level power message, kind 20).
func (d *Device) GetPower(ctx context.Context) (bool, error) {
	payload, err := d.query(ctx, pktGetPower, pktStatePower, nil)
	if err != nil {
		return false, err
	}
	if len(payload) != 2 {
		return false, &DecodeError{MessageType: pktStatePower, Reason: fmt.Sprintf("malformed: length=%d", len(payload))}
	}
	return getUint16(payload, 0) != 0, nil
}

// SetPower sets the device's overall on/off state.
func (d *Device) SetPower(ctx context.Context, on bool) error {
	payload := make([]byte, 2)
	if on {
		putUint16(payload, 0, 0xffff)
	}
	return d.set(ctx, pktSetPower, payload)
}

// GetLabel reports the device's user-assigned label.
func (d *Device) GetLabel(ctx context.Context) (string, error) {
	payload, err := d.query(ctx, pktGetLabel, pktStateLabel, nil)
	if err != nil {
		return "", err
	}
	return decodeLabel(payload), nil
}

// SetLabel sets the device's user-assigned label, truncating to 32 bytes.
func (d *Device) SetLabel(ctx context.Context, label string) error {
	b := encodeLabel(label)
	return d.set(ctx, pktSetLabel, b[:])
}

// GetVersion reports the device's vendor and product IDs.
func (d *Device) GetVersion(ctx context.Context) (vendor, product uint32, err error) {
	payload, err := d.query(ctx, pktGetVersion, pktStateVersion, nil)
	if err != nil {
		return 0, 0, err
	}
	if len(payload) < 12 {
		return 0, 0, &DecodeError{MessageType: pktStateVersion, Reason: fmt.Sprintf("malformed: length=%d", len(payload))}
	}
	vendor = getUint32(payload, 0)
	product = getUint32(payload, 4)
	return vendor, product, nil
}

// GetInfo reports the device's current time and uptime/downtime counters,
// all as nanosecond durations/timestamps per the wire format.
func (d *Device) GetInfo(ctx context.Context) (current time.Time, uptime, downtime time.Duration, err error) {
	payload, err := d.query(ctx, pktGetInfo, pktStateInfo, nil)
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	if len(payload) < 24 {
		return time.Time{}, 0, 0, &DecodeError{MessageType: pktStateInfo, Reason: fmt.Sprintf("too short: %d bytes", len(payload))}
	}
	current = decodeTimestamp(getUint64(payload, 0))
	uptime = time.Duration(getUint64(payload, 8))
	downtime = time.Duration(getUint64(payload, 16))
	return current, uptime, downtime, nil
}

// SetReboot asks the device to reboot. It's a fire-and-forget message; the
// device obviously can't ack a request after rebooting.
func (d *Device) SetReboot(ctx context.Context) error {
	return d.fireAndForget(ctx, pktSetReboot, nil)
}

// GetLocation reports the location this device is assigned to.
func (d *Device) GetLocation(ctx context.Context) (id [16]byte, label string, updatedAt time.Time, err error) {
	payload, err := d.query(ctx, pktGetLocation, pktStateLocation, nil)
	if err != nil {
		return id, "", time.Time{}, err
	}
	if len(payload) < 16+32+8 {
		return id, "", time.Time{}, &DecodeError{MessageType: pktStateLocation, Reason: fmt.Sprintf("too short: %d bytes", len(payload))}
	}
	copy(id[:], payload[0:16])
	label = decodeLabel(payload[16:48])
	updatedAt = decodeTimestamp(getUint64(payload, 48))
	return id, label, updatedAt, nil
}

// GetGroup reports the group this device is assigned to.
func (d *Device) GetGroup(ctx context.Context) (id [16]byte, label string, updatedAt time.Time, err error) {
	payload, err := d.query(ctx, pktGetGroup, pktStateGroup, nil)
	if err != nil {
		return id, "", time.Time{}, err
	}
	if len(payload) < 16+32+8 {
		return id, "", time.Time{}, &DecodeError{MessageType: pktStateGroup, Reason: fmt.Sprintf("too short: %d bytes", len(payload))}
	}
	copy(id[:], payload[0:16])
	label = decodeLabel(payload[16:48])
	updatedAt = decodeTimestamp(getUint64(payload, 48))
	return id, label, updatedAt, nil
}

// Echo sends an EchoRequest with an 8-byte payload and returns whatever the
// device echoes back, which should be the same bytes.
func (d *Device) Echo(ctx context.Context, payload [8]byte) ([8]byte, error) {
	resp, err := d.query(ctx, pktEchoRequest, pktEchoResponse, payload[:])
	var out [8]byte
	if err != nil {
		return out, err
	}
	copy(out[:], resp)
	return out, nil
}

func getUint64(b []byte, off int) uint64 {
	return uint64(getUint32(b, off)) | uint64(getUint32(b, off+4))<<32
}
