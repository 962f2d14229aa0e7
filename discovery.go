package lifx

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DiscoveryListener is the host collaborator notified as the Discovery
// Controller learns about devices on the LAN. Register fires on first
// contact (outbound or inbound) with a MAC; Unregister fires once a
// device's send retries are exhausted AND no inbound message has arrived
// within unregisterTimeout — the asymmetry is deliberate, to protect
// against spurious deregistration under bursty loss from an otherwise
// responsive device.
type DiscoveryListener interface {
	Register(d *Device)
	Unregister(d *Device)
}

// DiscoveryConfig parameterizes a Discovery Controller.
type DiscoveryConfig struct {
	// Interval between broadcasts absent any forced rediscovery. Default 180s.
	Interval time.Duration
	// Step is the controller's tick granularity; it reduces its countdown
	// by Step every tick until it reaches zero, at which point it
	// broadcasts and resets. Default 5s.
	Step time.Duration
	// BroadcastIP is the destination for GetService broadcasts. Default
	// 255.255.255.255.
	BroadcastIP net.IP
	// IPv6Prefix, if set, makes the controller synthesize each device's
	// address via EUI-64 instead of using the observed source IP.
	IPv6Prefix net.IP
	// BindAddr, if set, binds the controller's own socket to one local
	// interface instead of all of them. Used by Scanner.
	BindAddr net.IP
}

func (c *DiscoveryConfig) setDefaults() {
	if c.Interval == 0 {
		c.Interval = 180 * time.Second
	}
	if c.Step == 0 {
		c.Step = 5 * time.Second
	}
	if c.BroadcastIP == nil {
		c.BroadcastIP = net.IPv4bcast
	}
}

// Discovery periodically broadcasts GetService and demultiplexes the
// replies into Device Endpoints, notifying a DiscoveryListener as devices
// register, rebind or go silent. It owns its own Client (and so its own
// UDP socket) independent of any Client the caller already has, since the
// Scanner needs one per local interface.
type Discovery struct {
	client   *Client
	cfg      DiscoveryConfig
	listener DiscoveryListener
	logger   *slog.Logger

	unregisterListener func()
	recvCh             chan discoveryPacket

	mu      sync.Mutex
	devices map[[6]byte]*Device

	forceTick chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewDiscovery starts a Discovery Controller. listener may be nil, in
// which case register/unregister events are simply not reported anywhere
// (the endpoints are still reachable via Devices).
func NewDiscovery(cfg DiscoveryConfig, listener DiscoveryListener) (*Discovery, error) {
	cfg.setDefaults()

	var opts []ClientOption
	if cfg.BindAddr != nil {
		opts = append(opts, WithBindAddr(cfg.BindAddr))
	}
	client, err := NewClient(opts...)
	if err != nil {
		return nil, err
	}

	d := &Discovery{
		client:    client,
		cfg:       cfg,
		listener:  listener,
		logger:    slog.Default(),
		recvCh:    make(chan discoveryPacket, 64),
		devices:   make(map[[6]byte]*Device),
		forceTick: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	d.unregisterListener = client.listen(d.recvCh)

	d.wg.Add(1)
	go d.run()
	return d, nil
}

// Rediscover forces the next tick to broadcast immediately, regardless of
// where the countdown currently stands.
func (d *Discovery) Rediscover() {
	select {
	case d.forceTick <- struct{}{}:
	default:
	}
}

// Devices returns every currently-registered device, keyed by MAC.
func (d *Discovery) Devices() map[[6]byte]*Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[[6]byte]*Device, len(d.devices))
	for k, v := range d.devices {
		out[k] = v
	}
	return out
}

// Close stops the broadcast loop, stops listening for replies, and closes
// every device endpoint this controller created.
func (d *Discovery) Close() error {
	close(d.done)
	d.wg.Wait()
	d.unregisterListener()

	d.mu.Lock()
	for mac, dev := range d.devices {
		dev.Close()
		delete(d.devices, mac)
	}
	d.mu.Unlock()

	return d.client.Close()
}

// run is the controller's single owning goroutine: it alone mutates the
// countdown and the devices map, per the one-owner-goroutine shape used
// throughout this package.
func (d *Discovery) run() {
	defer d.wg.Done()

	countdown := time.Duration(0) // first tick discovers immediately
	ticker := time.NewTicker(d.cfg.Step)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return

		case <-d.forceTick:
			countdown = 0

		case <-ticker.C:
			if countdown <= 0 {
				if err := d.broadcastGetService(); err != nil {
					d.logger.Debug("lifx: discovery broadcast failed", "err", err)
				}
				countdown = d.cfg.Interval
			} else {
				countdown -= d.cfg.Step
			}

		case pkt := <-d.recvCh:
			d.handlePacket(pkt)
		}
	}
}

func (d *Discovery) broadcastGetService() error {
	hdr := header{
		tagged:   true,
		sourceID: d.client.source,
		target:   broadcastTarget,
		msgType:  pktGetService,
	}
	msg := encodeMessage(hdr, nil)
	dst := &net.UDPAddr{IP: d.cfg.BroadcastIP, Port: stdPort}
	if _, err := d.client.conn.WriteToUDP(msg, dst); err != nil {
		return &TransportError{Op: "discovery broadcast", Err: err}
	}
	return nil
}

// handlePacket demultiplexes one volunteered or solicited packet into a
// register/rebind decision, per spec.md §4.4's reply-handling rules.
func (d *Discovery) handlePacket(pkt discoveryPacket) {
	if isBroadcastTarget(pkt.hdr.target) {
		return // ignore replies that still carry the all-zero broadcast MAC
	}
	var mac [6]byte
	copy(mac[:], pkt.hdr.target[:6])

	var port int
	switch pkt.hdr.msgType {
	case pktStateService:
		if len(pkt.payload) != 5 {
			d.logger.Debug("lifx: malformed StateService", "len", len(pkt.payload))
			return
		}
		if pkt.payload[0] != 1 { // service=UDP only
			return
		}
		port = int(getUint32(pkt.payload, 1))
	case pktLightState:
		// Volunteered state after boot: treat as an implicit announcement,
		// always on the standard port.
		port = stdPort
	default:
		return
	}
	if port <= 0 || port > 0xffff {
		d.logger.Debug("lifx: StateService illegal port", "port", port)
		return
	}

	ip := pkt.raddr.IP
	if d.cfg.IPv6Prefix != nil {
		ip = macToIPv6LinkLocal(mac, d.cfg.IPv6Prefix)
	}
	addr := net.UDPAddr{IP: ip, Port: port}

	d.mu.Lock()
	existing, known := d.devices[mac]
	d.mu.Unlock()

	switch {
	case !known:
		d.registerDevice(mac, addr)
	case known && !existing.isRegistered():
		// Known but deregistered: close out the stale endpoint and rebind
		// to the (possibly new) address by standing up a fresh one.
		existing.Close()
		d.registerDevice(mac, addr)
	default:
		// Known and already registered: no-op.
	}
}

// registerDevice creates a fresh Device for mac at addr, wires its
// deregistration hook back to this controller's listener, sends it one
// GetVersion, records it, and notifies the listener of the registration.
func (d *Discovery) registerDevice(mac [6]byte, addr net.UDPAddr) {
	dev := d.client.NewDevice(addr, mac)
	dev.onDeregister = func() {
		d.mu.Lock()
		if d.devices[mac] == dev {
			delete(d.devices, mac)
		}
		d.mu.Unlock()
		if d.listener != nil {
			d.listener.Unregister(dev)
		}
	}
	// This outbound send is the new endpoint's first contact, so it is
	// registered from here on and a repeated StateService is a no-op.
	if _, err := dev.send(context.Background(), 0, pktGetVersion, 0, nil, false, false); err != nil {
		d.logger.Debug("lifx: GetVersion to new device failed", "device", addr, "err", err)
	}

	d.mu.Lock()
	d.devices[mac] = dev
	d.mu.Unlock()
	if d.listener != nil {
		d.listener.Register(dev)
	}
}

// Discover is a one-shot convenience built directly on an already-open
// Client: it broadcasts a single GetService and collects distinct
// responding MACs into Devices until ctx is done. Unlike the Discovery
// Controller, it does not repeat the broadcast or notify a listener; it's
// meant for short-lived CLI-style uses where a full Discovery Controller
// would be overkill.
func (c *Client) Discover(ctx context.Context) ([]*Device, error) {
	recvCh := make(chan discoveryPacket, 64)
	unregister := c.listen(recvCh)
	defer unregister()

	hdr := header{
		tagged:   true,
		sourceID: c.source,
		target:   broadcastTarget,
		msgType:  pktGetService,
	}
	msg := encodeMessage(hdr, nil)
	dst := &net.UDPAddr{IP: net.IPv4bcast, Port: stdPort}
	if _, err := c.conn.WriteToUDP(msg, dst); err != nil {
		return nil, &TransportError{Op: "discover broadcast", Err: err}
	}

	seen := make(map[[6]byte]*Device)
	for {
		select {
		case <-ctx.Done():
			out := make([]*Device, 0, len(seen))
			for _, d := range seen {
				out = append(out, d)
			}
			return out, nil

		case pkt := <-recvCh:
			if pkt.hdr.msgType != pktStateService || isBroadcastTarget(pkt.hdr.target) {
				continue
			}
			if len(pkt.payload) != 5 || pkt.payload[0] != 1 {
				continue
			}
			port := int(getUint32(pkt.payload, 1))
			if port <= 0 || port > 0xffff {
				continue
			}
			var mac [6]byte
			copy(mac[:], pkt.hdr.target[:6])
			if _, ok := seen[mac]; ok {
				continue
			}
			seen[mac] = c.NewDevice(net.UDPAddr{IP: pkt.raddr.IP, Port: port}, mac)
		}
	}
}

// Scanner runs one Discovery Controller per local IPv4 interface and
// reports which interfaces saw at least one device respond within timeout.
type Scanner struct {
	Timeout time.Duration // default 1s
}

type scannerListener struct {
	once sync.Once
	seen chan struct{}
}

func (l *scannerListener) Register(*Device)   { l.once.Do(func() { close(l.seen) }) }
func (l *scannerListener) Unregister(*Device) {}

// Scan returns the local IPv4 addresses on which at least one device
// answered a GetService broadcast within s.Timeout.
func (s *Scanner) Scan(ctx context.Context) ([]net.IP, error) {
	timeout := s.Timeout
	if timeout == 0 {
		timeout = time.Second
	}

	addrs, err := localIPv4Addrs()
	if err != nil {
		return nil, err
	}

	type result struct {
		ip   net.IP
		seen bool
	}
	results := make([]result, len(addrs))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, addr := range addrs {
		i, addr := i, addr
		eg.Go(func() error {
			l := &scannerListener{seen: make(chan struct{})}
			disc, err := NewDiscovery(DiscoveryConfig{BindAddr: addr}, l)
			if err != nil {
				return fmt.Errorf("lifx: scanning %s: %w", addr, err)
			}
			defer disc.Close()

			select {
			case <-l.seen:
				results[i] = result{ip: addr, seen: true}
			case <-time.After(timeout):
			case <-egCtx.Done():
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var out []net.IP
	for _, r := range results {
		if r.seen {
			out = append(out, r.ip)
		}
	}
	return out, nil
}

// localIPv4Addrs returns every non-loopback IPv4 address bound to a local
// interface that's up.
func localIPv4Addrs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("lifx: listing interfaces: %w", err)
	}

	var out []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			var ip net.IP
			switch v := a.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if v4 := ip.To4(); v4 != nil {
				out = append(out, v4)
			}
		}
	}
	return out, nil
}
