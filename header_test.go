package lifx

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	mac := [6]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05}
	hdr := header{
		sourceID:          0xdeadbeef,
		target:            macToTarget(mac),
		ackRequested:      true,
		responseRequested: false,
		seqNum:            42,
		msgType:           pktLightSetColor,
	}
	payload := []byte{1, 2, 3, 4, 5}

	msg := encodeMessage(hdr, payload)
	if len(msg) != headerSize+len(payload) {
		t.Fatalf("encodeMessage length = %d, want %d", len(msg), headerSize+len(payload))
	}

	gotHdr, gotPayload, err := decodeMessage(msg)
	if err != nil {
		t.Fatalf("decodeMessage: %v", err)
	}
	if gotHdr.sourceID != hdr.sourceID {
		t.Errorf("sourceID = %x, want %x", gotHdr.sourceID, hdr.sourceID)
	}
	if gotHdr.target != hdr.target {
		t.Errorf("target = %v, want %v", gotHdr.target, hdr.target)
	}
	if !gotHdr.ackRequested {
		t.Errorf("ackRequested = false, want true")
	}
	if gotHdr.responseRequested {
		t.Errorf("responseRequested = true, want false")
	}
	if gotHdr.seqNum != hdr.seqNum {
		t.Errorf("seqNum = %d, want %d", gotHdr.seqNum, hdr.seqNum)
	}
	if gotHdr.msgType != hdr.msgType {
		t.Errorf("msgType = %d, want %d", gotHdr.msgType, hdr.msgType)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Errorf("payload = %v, want %v", gotPayload, payload)
	}
}

func TestEncodeHeaderTaggedDerivedFromBroadcastTarget(t *testing.T) {
	hdr := header{target: broadcastTarget, msgType: pktGetService}
	msg := encodeHeader(hdr, 0)
	flags := uint16(msg[2]) | uint16(msg[3])<<8
	if flags&(1<<13) == 0 {
		t.Errorf("tagged bit not set for broadcast target")
	}

	mac := [6]byte{1, 2, 3, 4, 5, 6}
	hdr2 := header{target: macToTarget(mac), msgType: pktGetService}
	msg2 := encodeHeader(hdr2, 0)
	flags2 := uint16(msg2[2]) | uint16(msg2[3])<<8
	if flags2&(1<<13) != 0 {
		t.Errorf("tagged bit set for a non-broadcast target")
	}
}

func TestDecodeMessageRejectsShortDatagram(t *testing.T) {
	_, _, err := decodeMessage(make([]byte, headerSize-1))
	if err == nil {
		t.Fatalf("decodeMessage accepted a datagram shorter than the header")
	}
	var decErr *DecodeError
	if !asDecodeError(err, &decErr) {
		t.Errorf("error = %v, want *DecodeError", err)
	}
}

func TestDecodeMessageRejectsSizeMismatch(t *testing.T) {
	hdr := header{msgType: pktGetService}
	msg := encodeMessage(hdr, []byte{1, 2, 3})
	// Truncate the payload without updating the declared size field.
	_, _, err := decodeMessage(msg[:len(msg)-1])
	if err == nil {
		t.Fatalf("decodeMessage accepted a datagram whose length disagrees with its declared size")
	}
}

func TestMacToTarget(t *testing.T) {
	mac := [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	target := macToTarget(mac)
	if !bytes.Equal(target[:6], mac[:]) {
		t.Errorf("target[:6] = %v, want %v", target[:6], mac[:])
	}
	if target[6] != 0 || target[7] != 0 {
		t.Errorf("target padding bytes not zero: %v", target[6:8])
	}
}

func asDecodeError(err error, out **DecodeError) bool {
	de, ok := err.(*DecodeError)
	if ok {
		*out = de
	}
	return ok
}
