package lifx

import (
	"context"
	"encoding/binary"
	"fmt"
)

// Switch is the operation group for relay/button switch devices (LIFX
// Switch). Unlike every other façade, a Switch is not a Light: its
// capabilities gate on Relays rather than Color/Matrix/etc.
type Switch struct {
	*Device
}

// GetRPower reports one relay channel's power level. Note: unlike every
// other level field in the protocol, StateRPower's level is big-endian on
// the wire — the one exception in the whole message set.
func (s *Switch) GetRPower(ctx context.Context, relayIndex uint8) (uint16, error) {
	payload, err := s.query(ctx, pktGetRPower, pktStateRPower, []byte{relayIndex})
	if err != nil {
		return 0, err
	}
	if len(payload) != 3 {
		return 0, &DecodeError{MessageType: pktStateRPower, Reason: fmt.Sprintf("malformed: length=%d", len(payload))}
	}
	return binary.BigEndian.Uint16(payload[1:3]), nil
}

// SetRPower sets one relay channel's power level.
func (s *Switch) SetRPower(ctx context.Context, relayIndex uint8, level uint16) error {
	payload := make([]byte, 3)
	payload[0] = relayIndex
	binary.BigEndian.PutUint16(payload[1:3], level)
	return s.set(ctx, pktSetRPower, payload)
}

// ButtonTargetType classifies what a ButtonAction's target bytes mean.
// These enumerants (including the two RESERVED slots) match the wire
// protocol's unpacker, not the LIFX docs' prose list.
type ButtonTargetType uint16

const (
	ButtonTargetReserved     = ButtonTargetType(0)
	ButtonTargetReserved1    = ButtonTargetType(1)
	ButtonTargetRelays       = ButtonTargetType(2)
	ButtonTargetDevice       = ButtonTargetType(3)
	ButtonTargetLocation     = ButtonTargetType(4)
	ButtonTargetGroup        = ButtonTargetType(5)
	ButtonTargetScene        = ButtonTargetType(6)
	ButtonTargetDeviceRelays = ButtonTargetType(7)
)

// ButtonGesture identifies the physical interaction that triggers a
// ButtonAction.
type ButtonGesture uint16

const (
	ButtonGesturePress            = ButtonGesture(1)
	ButtonGestureHold              = ButtonGesture(2)
	ButtonGestureDoublePress       = ButtonGesture(3)
	ButtonGesturePressAndHold      = ButtonGesture(4)
	ButtonGestureDoublePressAndHold = ButtonGesture(5)
)

// ButtonAction is one (gesture -> target) mapping for a physical button.
type ButtonAction struct {
	Gesture    ButtonGesture
	TargetType ButtonTargetType
	Target     [16]byte
}

const buttonActionSize = 2 + 2 + 16

func decodeButtonAction(b []byte) ButtonAction {
	var a ButtonAction
	a.Gesture = ButtonGesture(getUint16(b, 0))
	a.TargetType = ButtonTargetType(getUint16(b, 2))
	copy(a.Target[:], b[4:20])
	return a
}

// ButtonDescriptor is one physical button's full gesture table: a leading
// actions_count then five fixed action slots.
type ButtonDescriptor struct {
	ActionsCount uint8
	Actions      [5]ButtonAction
}

const buttonDescriptorSize = 1 + 5*buttonActionSize // 101

func decodeButtonDescriptor(b []byte) ButtonDescriptor {
	var d ButtonDescriptor
	d.ActionsCount = b[0]
	for i := 0; i < 5; i++ {
		off := 1 + i*buttonActionSize
		d.Actions[i] = decodeButtonAction(b[off : off+buttonActionSize])
	}
	return d
}

// GetButton reports every physical button's current gesture table. A
// Switch always reports a fixed array of 8 button slots, whether or not
// the device has that many physical buttons.
func (s *Switch) GetButton(ctx context.Context) ([8]ButtonDescriptor, error) {
	var out [8]ButtonDescriptor
	payload, err := s.query(ctx, pktGetButton, pktStateButton, nil)
	if err != nil {
		return out, err
	}
	if len(payload) < 8*buttonDescriptorSize {
		return out, &DecodeError{MessageType: pktStateButton, Reason: fmt.Sprintf("too short: %d bytes", len(payload))}
	}
	for i := range out {
		off := i * buttonDescriptorSize
		out[i] = decodeButtonDescriptor(payload[off : off+buttonDescriptorSize])
	}
	return out, nil
}

// SetButton has no client-side encoding: the upstream aiolifx source this
// was ported from raises on its own get_payload, and the LIFX LAN docs
// don't define the wire format either. Both sides agree there's nothing to
// encode, so this always fails.
func (s *Switch) SetButton(ctx context.Context, _ [8]ButtonDescriptor) error {
	return ErrNotEncodable
}

// ButtonConfig is a switch's backlight and idle-timeout configuration.
type ButtonConfig struct {
	BacklightOn  Color
	BacklightOff Color
	IdleTimeout  uint32 // seconds; 0 disables the idle timeout
}

// GetButtonConfig reports the switch's backlight and idle-timeout config.
// The backlight colors' Kelvin fields come back through the inverted
// switch-backlight mapping (see backlightWireToKelvin).
func (s *Switch) GetButtonConfig(ctx context.Context) (ButtonConfig, error) {
	payload, err := s.query(ctx, pktGetButtonConfig, pktStateButtonConfig, nil)
	if err != nil {
		return ButtonConfig{}, err
	}
	return decodeButtonConfig(payload)
}

// SetButtonConfig sets the switch's backlight and idle-timeout config.
func (s *Switch) SetButtonConfig(ctx context.Context, cfg ButtonConfig) error {
	payload := make([]byte, encodedColorLength*2+4)
	encodeBacklightColor(payload[0:8], cfg.BacklightOn)
	encodeBacklightColor(payload[8:16], cfg.BacklightOff)
	putUint32(payload, 16, cfg.IdleTimeout)
	return s.set(ctx, pktSetButtonConfig, payload)
}

func decodeButtonConfig(payload []byte) (ButtonConfig, error) {
	if len(payload) < encodedColorLength*2+4 {
		return ButtonConfig{}, &DecodeError{MessageType: pktStateButtonConfig, Reason: fmt.Sprintf("too short: %d bytes", len(payload))}
	}
	return ButtonConfig{
		BacklightOn:  decodeBacklightColor(payload[0:8]),
		BacklightOff: decodeBacklightColor(payload[8:16]),
		IdleTimeout:  getUint32(payload, 16),
	}, nil
}

func encodeBacklightColor(dst []byte, c Color) {
	c.encode(dst)
	putUint16(dst, 6, backlightKelvinToWire(c.Kelvin))
}

func decodeBacklightColor(b []byte) Color {
	c := decodeColor(b)
	c.Kelvin = backlightWireToKelvin(c.Kelvin)
	return c
}
