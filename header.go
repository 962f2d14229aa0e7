package lifx

import (
	"encoding/binary"
	"fmt"
)

// https://lan.developer.lifx.com/docs/packet-contents#header
const headerSize = 36

// msgType identifies the kind of a LIFX message. It is the wire "message
// type" field from the protocol header.
//
// https://lan.developer.lifx.com/docs/packet-contents#protocol-header
type msgType uint16

// Message type constants, by numeric ID. This is the closed enumeration
// referenced throughout SPEC_FULL.md §6. Most of these are sent or decoded
// by a method in this package (payloads_device.go, light.go and the
// per-family *_ops.go files); 503, 507, 509, 718, 720 and 906 have a
// constant here but no method that sends or decodes them.
const (
	pktGetService   = msgType(2)
	pktStateService = msgType(3)

	pktGetHostInfo   = msgType(12)
	pktStateHostInfo = msgType(13)

	pktGetHostFirmware   = msgType(14)
	pktStateHostFirmware = msgType(15)

	pktGetWifiInfo   = msgType(16)
	pktStateWifiInfo = msgType(17)

	pktGetWifiFirmware   = msgType(18)
	pktStateWifiFirmware = msgType(19)

	pktGetPower   = msgType(20)
	pktSetPower   = msgType(21)
	pktStatePower = msgType(22)

	pktGetLabel   = msgType(23)
	pktSetLabel   = msgType(24)
	pktStateLabel = msgType(25)

	pktGetVersion   = msgType(32)
	pktStateVersion = msgType(33)

	pktGetInfo   = msgType(34)
	pktStateInfo = msgType(35)

	pktSetReboot = msgType(38)

	pktAcknowledgement = msgType(45)

	pktGetLocation   = msgType(48)
	pktStateLocation = msgType(50)

	pktGetGroup   = msgType(51)
	pktStateGroup = msgType(53)

	pktEchoRequest  = msgType(58)
	pktEchoResponse = msgType(59)

	pktLightGet                 = msgType(101)
	pktLightSetColor            = msgType(102)
	pktLightSetWaveform         = msgType(103)
	pktLightState               = msgType(107)
	pktLightGetPower            = msgType(116)
	pktLightSetPower            = msgType(117)
	pktLightStatePower          = msgType(118)
	pktLightSetWaveformOptional = msgType(119)
	pktLightGetInfrared         = msgType(120)
	pktLightStateInfrared       = msgType(121)
	pktLightSetInfrared         = msgType(122)

	pktGetHevCycle                = msgType(142)
	pktSetHevCycle                = msgType(143)
	pktStateHevCycle              = msgType(144)
	pktGetHevCycleConfiguration   = msgType(145)
	pktSetHevCycleConfiguration   = msgType(146)
	pktStateHevCycleConfiguration = msgType(147)
	pktGetLastHevCycleResult      = msgType(148)
	pktStateLastHevCycleResult    = msgType(149)

	pktMultiZoneSetColorZones           = msgType(501)
	pktMultiZoneGetColorZones           = msgType(502)
	pktMultiZoneStateZone               = msgType(503)
	pktMultiZoneStateMultiZone          = msgType(506)
	pktMultiZoneGetMultiZoneEffect      = msgType(507)
	pktMultiZoneSetMultiZoneEffect      = msgType(508)
	pktMultiZoneStateMultiZoneEffect    = msgType(509)
	pktMultiZoneSetExtendedColorZones   = msgType(510)
	pktMultiZoneGetExtendedColorZones   = msgType(511)
	pktMultiZoneStateExtendedColorZones = msgType(512)

	pktTileGetDeviceChain   = msgType(701)
	pktTileStateDeviceChain = msgType(702)
	pktTileGet64            = msgType(707)
	pktTileSet64            = msgType(715)
	pktTileState64          = msgType(711)
	pktTileGetTileEffect    = msgType(718)
	pktTileSetTileEffect    = msgType(719)
	pktTileStateTileEffect  = msgType(720)

	pktGetRPower   = msgType(816)
	pktSetRPower   = msgType(817)
	pktStateRPower = msgType(818)

	pktGetButton   = msgType(905)
	pktSetButton   = msgType(906)
	pktStateButton = msgType(907)

	pktGetButtonConfig   = msgType(909)
	pktSetButtonConfig   = msgType(910)
	pktStateButtonConfig = msgType(911)
)

// header represents the 36-byte LIFX message header. Only the fields a
// client ever needs to set or inspect are broken out; the rest (origin,
// addressable, protocol, the various reserved spans) are fixed constants
// enforced by encodeHeader/decodeHeader.
//
// https://lan.developer.lifx.com/docs/packet-contents#header
type header struct {
	// Frame (bytes 0-7).
	size     uint16 // total packet length; computed by encodeHeader
	tagged   bool   // true iff target is the all-zero broadcast MAC
	sourceID uint32

	// Frame Address (bytes 8-23).
	target            [8]byte // 6-byte MAC then 2 zero bytes
	ackRequested      bool
	responseRequested bool
	seqNum            uint8

	// Protocol Header (bytes 24-35).
	msgType msgType
}

// broadcastTarget is the all-zero MAC used to address every device.
var broadcastTarget [8]byte

func isBroadcastTarget(t [8]byte) bool { return t == broadcastTarget }

// encodeHeader writes a 36-byte header for payload of the given length.
// tagged is derived from target per the protocol: 1 iff target is all-zero.
func encodeHeader(hdr header, payloadLen int) []byte {
	hdr.tagged = isBroadcastTarget(hdr.target)
	hdr.size = uint16(headerSize + payloadLen)

	b := make([]byte, headerSize)

	// Frame.
	binary.LittleEndian.PutUint16(b[0:2], hdr.size)
	var flags uint16
	flags |= uint16(1024) & 0x0fff // protocol, low 12 bits
	if hdr.tagged {
		flags |= 1 << 13
	}
	flags |= 1 << 12 // addressable, always 1
	// origin (bits 14-15) is always 0.
	binary.LittleEndian.PutUint16(b[2:4], flags)
	binary.LittleEndian.PutUint32(b[4:8], hdr.sourceID)

	// Frame Address.
	copy(b[8:16], hdr.target[:])
	// b[16:22] reserved, left zero.
	var respFlags byte
	if hdr.responseRequested {
		respFlags |= 1
	}
	if hdr.ackRequested {
		respFlags |= 1 << 1
	}
	b[22] = respFlags
	b[23] = hdr.seqNum

	// Protocol Header.
	// b[24:32] reserved, left zero.
	binary.LittleEndian.PutUint16(b[32:34], uint16(hdr.msgType))
	// b[34:36] reserved, left zero.

	return b
}

// decodeHeader parses the leading 36 bytes of b. It does not validate that
// len(b) matches hdr.size; callers do that against the UDP datagram length.
func decodeHeader(b []byte) (hdr header, err error) {
	if len(b) < headerSize {
		return header{}, &DecodeError{Reason: fmt.Sprintf("message too short: %d bytes < minimum %d", len(b), headerSize)}
	}

	hdr.size = binary.LittleEndian.Uint16(b[0:2])
	flags := binary.LittleEndian.Uint16(b[2:4])
	hdr.tagged = flags&(1<<13) != 0
	hdr.sourceID = binary.LittleEndian.Uint32(b[4:8])

	copy(hdr.target[:], b[8:16])
	respFlags := b[22]
	hdr.responseRequested = respFlags&1 != 0
	hdr.ackRequested = respFlags&(1<<1) != 0
	hdr.seqNum = b[23]

	hdr.msgType = msgType(binary.LittleEndian.Uint16(b[32:34]))

	return hdr, nil
}

// encodeMessage packs a full datagram: header plus payload. The header's
// size field is set from len(payload).
func encodeMessage(hdr header, payload []byte) []byte {
	out := encodeHeader(hdr, len(payload))
	return append(out, payload...)
}

// decodeMessage splits a datagram into its header and payload, validating
// the declared size field against the actual datagram length.
func decodeMessage(b []byte) (hdr header, payload []byte, err error) {
	hdr, err = decodeHeader(b)
	if err != nil {
		return header{}, nil, err
	}
	if int(hdr.size) != len(b) {
		return header{}, nil, &DecodeError{
			MessageType: hdr.msgType,
			Reason:      fmt.Sprintf("declared size %d does not match datagram length %d", hdr.size, len(b)),
		}
	}
	return hdr, b[headerSize:], nil
}

// macToTarget converts a 6-byte MAC into the 8-byte wire target field
// (6 MAC bytes then 2 zero bytes).
func macToTarget(mac [6]byte) [8]byte {
	var t [8]byte
	copy(t[:6], mac[:])
	return t
}
