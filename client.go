package lifx

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"sync"
	"syscall"
)

const stdPort = 56700

// Client owns the single UDP socket a process uses to talk to every LIFX
// device and controller it knows about. One goroutine (recvLoop) reads the
// socket and demultiplexes inbound datagrams by remote address to the
// matching Device, or to any registered discovery listener when no Device
// claims the packet — this is the channel-ownership translation of the
// single-threaded event loop described in SPEC_FULL.md §5.
type Client struct {
	conn   *net.UDPConn
	source uint32
	logger *slog.Logger

	mu        sync.Mutex
	devices   map[string]*Device // keyed by remote UDP address
	listeners map[chan<- discoveryPacket]struct{}

	closed chan struct{}
}

// discoveryPacket is a decoded datagram handed to anything listening for
// packets that didn't match a known Device (principally the Discovery
// Controller, which is interested in StateService and volunteered light
// state from devices it hasn't registered yet).
type discoveryPacket struct {
	hdr     header
	payload []byte
	raddr   *net.UDPAddr
}

// clientConfig collects ClientOption settings before the socket is opened,
// since some of them (bindIP) need to be known at ListenUDP time.
type clientConfig struct {
	logger *slog.Logger
	bindIP net.IP
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

// WithLogger sets the structured logger used for trace-level diagnostics.
// The default is slog.Default().
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *clientConfig) { c.logger = l }
}

// WithBindAddr binds the underlying socket to a specific local interface
// address rather than the default of all interfaces (0.0.0.0). The Scanner
// uses this to run one independent Client (and Discovery Controller) per
// local IPv4 interface.
func WithBindAddr(ip net.IP) ClientOption {
	return func(c *clientConfig) { c.bindIP = ip }
}

// NewClient opens the shared UDP socket and starts the receive loop.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := clientConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	laddr := &net.UDPAddr{}
	if cfg.bindIP != nil {
		laddr.IP = cfg.bindIP
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("lifx: opening UDP socket: %w", err)
	}
	if err := conn.SetReadBuffer(1 << 20); err != nil {
		// Not fatal; just means we're more likely to drop packets under load.
	}
	if err := enableBroadcast(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("lifx: enabling broadcast: %w", err)
	}

	c := &Client{
		conn:      conn,
		source:    rand.Uint32(),
		logger:    cfg.logger,
		devices:   make(map[string]*Device),
		listeners: make(map[chan<- discoveryPacket]struct{}),
		closed:    make(chan struct{}),
	}

	go c.recvLoop()
	return c, nil
}

// enableBroadcast sets SO_BROADCAST on the socket; without it, sending to
// 255.255.255.255 fails with EACCES on most platforms.
func enableBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return sockErr
}

// Close shuts down the socket and stops the receive loop. Any Device created
// from this Client stops receiving replies once this returns.
func (c *Client) Close() error {
	close(c.closed)
	return c.conn.Close()
}

// NewDevice returns a Device bound to this Client's socket, identified by
// addr and its 6-byte MAC (serial).
func (c *Client) NewDevice(addr net.UDPAddr, serial [6]byte) *Device {
	d := newDevice(c, addr, serial)
	c.mu.Lock()
	c.devices[addr.String()] = d
	c.mu.Unlock()
	return d
}

// forgetDevice removes d from the dispatch table; called from Device.Close.
func (c *Client) forgetDevice(d *Device) {
	c.mu.Lock()
	if c.devices[d.Addr.String()] == d {
		delete(c.devices, d.Addr.String())
	}
	c.mu.Unlock()
}

// listen registers ch to receive packets that don't match a known Device.
// The returned func removes the registration.
func (c *Client) listen(ch chan<- discoveryPacket) func() {
	c.mu.Lock()
	c.listeners[ch] = struct{}{}
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, ch)
		c.mu.Unlock()
	}
}

// broadcast sends payload, tagged, to the LAN broadcast address with the
// given message type. Used by discovery (GetService) and anything else that
// needs to address every device at once.
func (c *Client) broadcast(kind msgType, payload []byte) error {
	hdr := header{
		tagged:   true,
		sourceID: c.source,
		target:   broadcastTarget,
		msgType:  kind,
	}
	msg := encodeMessage(hdr, payload)
	dst := &net.UDPAddr{IP: net.IPv4bcast, Port: stdPort}
	if _, err := c.conn.WriteToUDP(msg, dst); err != nil {
		return &TransportError{Op: "broadcast", Err: err}
	}
	return nil
}

func (c *Client) recvLoop() {
	var scratch [4 << 10]byte
	for {
		n, raddr, err := c.conn.ReadFromUDP(scratch[:])
		if err != nil {
			select {
			case <-c.closed:
				return
			default:
			}
			c.logger.Debug("lifx: recv error", "err", err)
			continue
		}

		// The decoded payload is handed to other goroutines, so it must not
		// alias scratch, which the next read overwrites.
		datagram := append([]byte(nil), scratch[:n]...)
		hdr, payload, err := decodeMessage(datagram)
		if err != nil {
			c.logger.Debug("lifx: dropping malformed datagram", "err", err, "from", raddr)
			continue
		}
		// Note: source_id is deliberately NOT filtered here. A reply whose
		// source_id doesn't match ours still needs to reach the owning
		// Device so it can remove the stale pending entry (see the reply
		// correlation rules in device.go); it's routed by remote address
		// here, then correlated by sequence number and checked for source
		// there.

		c.mu.Lock()
		d := c.devices[raddr.String()]
		c.mu.Unlock()

		if d != nil {
			select {
			case d.inbox <- inboundMsg{hdr: hdr, payload: payload}:
			default:
				c.logger.Debug("lifx: device inbox full, dropping packet", "device", d.Addr)
			}
			continue
		}

		pkt := discoveryPacket{hdr: hdr, payload: payload, raddr: raddr}
		c.mu.Lock()
		for ch := range c.listeners {
			select {
			case ch <- pkt:
			default:
			}
		}
		c.mu.Unlock()
	}
}

// ctxDone adapts ctx.Done() for select statements where ctx may be nil in
// tests; production call sites always pass a real context.
func ctxDone(ctx context.Context) <-chan struct{} {
	if ctx == nil {
		return nil
	}
	return ctx.Done()
}
