package lifx

import (
	"context"
	"net"
	"testing"
	"time"
)

// fakeDiscoveryListener records Register/Unregister calls on channels so
// tests can assert on them without racing the Discovery Controller's own
// goroutine.
type fakeDiscoveryListener struct {
	registered   chan *Device
	unregistered chan *Device
}

func newFakeDiscoveryListener() *fakeDiscoveryListener {
	return &fakeDiscoveryListener{
		registered:   make(chan *Device, 8),
		unregistered: make(chan *Device, 8),
	}
}

func (l *fakeDiscoveryListener) Register(d *Device)   { l.registered <- d }
func (l *fakeDiscoveryListener) Unregister(d *Device) { l.unregistered <- d }

// sendStateService crafts and sends a minimal StateService(service=1) reply
// as if from a device with the given MAC, advertising port.
func sendStateService(t *testing.T, from *net.UDPConn, to *net.UDPAddr, mac [6]byte, port uint32) {
	t.Helper()
	hdr := header{
		target:  macToTarget(mac),
		msgType: pktStateService,
	}
	payload := make([]byte, 5)
	payload[0] = 1 // service = UDP
	putUint32(payload, 1, port)
	msg := encodeMessage(hdr, payload)
	if _, err := from.WriteToUDP(msg, to); err != nil {
		t.Fatalf("sendStateService: %v", err)
	}
}

// Scenario 1: discovery of one bulb via a synthetic StateService.
func TestDiscoveryRegistersOnStateService(t *testing.T) {
	listener := newFakeDiscoveryListener()
	disc, err := NewDiscovery(DiscoveryConfig{BindAddr: net.IPv4(127, 0, 0, 1)}, listener)
	if err != nil {
		t.Fatalf("NewDiscovery: %v", err)
	}
	defer disc.Close()

	discAddr := disc.client.conn.LocalAddr().(*net.UDPAddr)

	injector, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listening as fake device: %v", err)
	}
	defer injector.Close()

	mac := [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	sendStateService(t, injector, discAddr, mac, 56700)

	select {
	case dev := <-listener.registered:
		if dev.Serial != mac {
			t.Errorf("registered device Serial = %x, want %x", dev.Serial, mac)
		}
		if dev.Addr.Port != 56700 {
			t.Errorf("registered device port = %d, want 56700", dev.Addr.Port)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Register was never called")
	}

	devs := disc.Devices()
	if _, ok := devs[mac]; !ok {
		t.Errorf("Devices() does not contain %x", mac)
	}
}

// A second StateService for an already-registered MAC is a no-op: Register
// must not fire again.
func TestDiscoveryNoOpOnAlreadyRegistered(t *testing.T) {
	listener := newFakeDiscoveryListener()
	disc, err := NewDiscovery(DiscoveryConfig{BindAddr: net.IPv4(127, 0, 0, 1)}, listener)
	if err != nil {
		t.Fatalf("NewDiscovery: %v", err)
	}
	defer disc.Close()

	discAddr := disc.client.conn.LocalAddr().(*net.UDPAddr)
	injector, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listening as fake device: %v", err)
	}
	defer injector.Close()

	mac := [6]byte{1, 2, 3, 4, 5, 6}
	sendStateService(t, injector, discAddr, mac, 56700)

	select {
	case <-listener.registered:
	case <-time.After(2 * time.Second):
		t.Fatal("Register was never called for the first StateService")
	}

	sendStateService(t, injector, discAddr, mac, 56700)

	select {
	case <-listener.registered:
		t.Fatal("Register fired a second time for an already-registered MAC")
	case <-time.After(300 * time.Millisecond):
		// Expected: no-op.
	}
}

// Ignores a StateService whose target is still the all-zero broadcast MAC
// (a malformed or mid-negotiation reply, per handlePacket's guard).
func TestDiscoveryIgnoresBroadcastTargetReply(t *testing.T) {
	listener := newFakeDiscoveryListener()
	disc, err := NewDiscovery(DiscoveryConfig{BindAddr: net.IPv4(127, 0, 0, 1)}, listener)
	if err != nil {
		t.Fatalf("NewDiscovery: %v", err)
	}
	defer disc.Close()

	discAddr := disc.client.conn.LocalAddr().(*net.UDPAddr)
	injector, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listening as fake device: %v", err)
	}
	defer injector.Close()

	sendStateService(t, injector, discAddr, [6]byte{}, 56700)

	select {
	case <-listener.registered:
		t.Fatal("Register fired for a reply still addressed to the broadcast MAC")
	case <-time.After(300 * time.Millisecond):
		// Expected: dropped.
	}
}

// Once a Device's retries exhaust and it subsequently deregisters (per
// spec.md §4.2's asymmetric rule), the Discovery Controller must forward
// that transition to its DiscoveryListener's Unregister.
func TestDiscoveryUnregistersOnExhaustion(t *testing.T) {
	listener := newFakeDiscoveryListener()
	disc, err := NewDiscovery(DiscoveryConfig{BindAddr: net.IPv4(127, 0, 0, 1)}, listener)
	if err != nil {
		t.Fatalf("NewDiscovery: %v", err)
	}
	defer disc.Close()

	discAddr := disc.client.conn.LocalAddr().(*net.UDPAddr)
	injector, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listening as fake device: %v", err)
	}
	defer injector.Close()

	mac := [6]byte{9, 8, 7, 6, 5, 4}
	sendStateService(t, injector, discAddr, mac, uint32(injector.LocalAddr().(*net.UDPAddr).Port))

	var dev *Device
	select {
	case dev = <-listener.registered:
	case <-time.After(2 * time.Second):
		t.Fatal("Register was never called")
	}

	// A successful outbound send marks the endpoint as having made first
	// contact, per spec §4.2's "outbound or inbound" rule.
	if _, err := dev.send(context.Background(), 0, pktGetLabel, 0, nil, false, false); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !dev.isRegistered() {
		t.Fatal("device should be registered after a successful outbound send")
	}

	// Simulate a retry loop reporting exhaustion; unregisterTimeout has
	// already elapsed relative to the zero-value lastInbound, so this
	// should immediately flip registered to false and notify the listener.
	dev.noteExhausted()

	select {
	case unreg := <-listener.unregistered:
		if unreg != dev {
			t.Errorf("Unregister called with the wrong Device")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Unregister was never called after exhaustion")
	}
}

// The countdown starts at zero, so a freshly-started Discovery broadcasts
// GetService immediately rather than waiting a full Interval.
func TestDiscoveryBroadcastsImmediatelyOnStart(t *testing.T) {
	fakeDevice, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: stdPort})
	if err != nil {
		t.Skipf("could not bind the well-known LIFX port for this test: %v", err)
	}
	defer fakeDevice.Close()

	disc, err := NewDiscovery(DiscoveryConfig{
		BindAddr:    net.IPv4(127, 0, 0, 1),
		BroadcastIP: net.IPv4(127, 0, 0, 1),
		Step:        20 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewDiscovery: %v", err)
	}
	defer disc.Close()

	fakeDevice.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, _, err := fakeDevice.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("did not observe an immediate GetService broadcast: %v", err)
	}
	hdr, _, err := decodeMessage(buf[:n])
	if err != nil {
		t.Fatalf("decodeMessage: %v", err)
	}
	if hdr.msgType != pktGetService {
		t.Errorf("msgType = %d, want pktGetService", hdr.msgType)
	}
	if !hdr.tagged {
		t.Errorf("tagged = false for a broadcast GetService, want true")
	}
}

// Rediscover forces an out-of-band broadcast regardless of the countdown.
func TestDiscoveryRediscoverForcesBroadcast(t *testing.T) {
	fakeDevice, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: stdPort})
	if err != nil {
		t.Skipf("could not bind the well-known LIFX port for this test: %v", err)
	}
	defer fakeDevice.Close()

	disc, err := NewDiscovery(DiscoveryConfig{
		BindAddr:    net.IPv4(127, 0, 0, 1),
		BroadcastIP: net.IPv4(127, 0, 0, 1),
		Interval:    time.Hour, // long enough that only Rediscover could trigger a second broadcast
		Step:        20 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewDiscovery: %v", err)
	}
	defer disc.Close()

	// Drain the immediate first broadcast.
	fakeDevice.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	if _, _, err := fakeDevice.ReadFromUDP(buf); err != nil {
		t.Fatalf("did not observe the immediate first broadcast: %v", err)
	}

	disc.Rediscover()

	fakeDevice.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := fakeDevice.ReadFromUDP(buf); err != nil {
		t.Fatalf("Rediscover did not trigger a second broadcast: %v", err)
	}
}
