package lifx

import (
	"context"
	"net"
	"testing"
	"time"
)

// Scenario 5: multi-zone partial read. A 16-zone strip answers one
// GetColorZones with two StateMultiZone messages; the result must come back
// with all 16 zones filled in index order.
func TestGetColorZonesAccumulatesPartialReplies(t *testing.T) {
	_, dev, peer := newTestClientAndDevice(t)
	dev.caps = &Capabilities{Multizone: true}
	mz := &MultizoneLight{Device: dev}

	resultCh := make(chan struct {
		count uint8
		zones []ZoneColor
		err   error
	}, 1)
	go func() {
		count, zones, err := mz.GetColorZones(context.Background(), 0, 15)
		resultCh <- struct {
			count uint8
			zones []ZoneColor
			err   error
		}{count, zones, err}
	}()

	hdr, _, raddr := peer.recv(2 * time.Second)
	if hdr.msgType != pktMultiZoneGetColorZones {
		t.Fatalf("msgType = %d, want pktMultiZoneGetColorZones", hdr.msgType)
	}

	sendStateMultiZone(t, peer, raddr, hdr, 16, 0, 8)
	sendStateMultiZone(t, peer, raddr, hdr, 16, 8, 8)

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("GetColorZones: %v", res.err)
		}
		if res.count != 16 {
			t.Fatalf("zonesCount = %d, want 16", res.count)
		}
		if len(res.zones) != 16 {
			t.Fatalf("len(zones) = %d, want 16", len(res.zones))
		}
		for i, z := range res.zones {
			if z.Index != uint8(i) {
				t.Errorf("zones[%d].Index = %d, want %d", i, z.Index, i)
			}
			if z.Color.Hue != uint16(i) {
				t.Errorf("zones[%d].Color.Hue = %d, want %d (no zone left unfilled)", i, z.Color.Hue, i)
			}
		}
	case <-time.After(3 * time.Second):
		t.Fatal("GetColorZones did not return after both halves arrived")
	}
}

// sendStateMultiZone sends one StateMultiZone reply covering n zones
// starting at index, colored so each zone's Hue equals its absolute index
// (letting the test assert fill order cheaply).
func sendStateMultiZone(t *testing.T, peer *fakePeer, raddr *net.UDPAddr, reqHdr header, count, index, n uint8) {
	t.Helper()
	replyHdr := header{
		sourceID: reqHdr.sourceID,
		seqNum:   reqHdr.seqNum,
		msgType:  pktMultiZoneStateMultiZone,
	}
	payload := make([]byte, 2+int(n)*encodedColorLength)
	payload[0] = count
	payload[1] = index
	for i := 0; i < int(n); i++ {
		c := Color{Hue: uint16(int(index) + i)}
		off := 2 + i*encodedColorLength
		c.encode(payload[off : off+encodedColorLength])
	}
	peer.send(t, raddr, replyHdr, payload)
}
