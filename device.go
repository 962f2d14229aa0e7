package lifx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/davecgh/go-spew/spew"
)

// Device represents a single LIFX device reachable on the LAN. Addr and
// Serial are fixed at construction; the sequence counter and pending-request
// table are owned exclusively by the goroutine started in newDevice (see
// run, below) — callers only ever reach them by sending on a channel, which
// is the CSP translation of the single-threaded event loop this package's
// reply correlation rules are modeled on.
type Device struct {
	Addr   net.UDPAddr
	Serial [6]byte

	// Tracef, if set, receives a line for every retry attempt this device
	// makes. Intended for ad hoc debugging; nil by default, in which case
	// traces go to the Client's slog.Logger at debug level instead.
	Tracef func(ctx context.Context, format string, args ...any)

	client *Client
	logger *slog.Logger

	inbox     chan inboundMsg
	regCh     chan *registration
	seqCh     chan seqRequest
	regQuery  chan chan bool
	exhausted chan struct{}
	done      chan struct{}

	// onDeregister, if set, is called from the owning goroutine exactly
	// once, the moment registered transitions from true to false. The
	// Discovery Controller uses it to forward the transition to its
	// DiscoveryListener without needing to poll isRegistered.
	onDeregister func()

	// caps is set by Identify and read by the AsX() façade accessors. It's
	// only ever written from the goroutine that calls Identify; concurrent
	// Identify calls on the same Device aren't supported, matching the
	// single-conversation-per-endpoint model this package assumes.
	caps *Capabilities
}

type inboundMsg struct {
	hdr     header
	payload []byte
}

// seqRequest asks run's owning goroutine to hand out the next sequence
// number and advance its counter.
type seqRequest struct {
	reply chan uint8
}

// registration is how a caller asks the owning goroutine to send one
// datagram and, if it wants an ack or a response, register a pending wait
// for it under the given sequence number. Retries reuse the same seq; the
// caller (retrySeq, below) is responsible for resending with it.
type registration struct {
	seq      uint8
	reqType  msgType
	respType msgType // only meaningful when wantAck or wantResp is set
	payload  []byte
	wantAck  bool
	wantResp bool

	// multi, if set, means this request's logical reply may span more than
	// one datagram (the legacy multi-zone partial-read protocol: a strip
	// with more than 8 zones answers one GetColorZones with several
	// StateMultiZone messages). add is called for every matching reply and
	// reports whether the collector now has everything it needs.
	multi *multiCollector

	reply chan pendingReply
}

// multiCollector accumulates the payloads of several datagrams that all
// answer one logical request.
type multiCollector struct {
	add func(payload []byte) (done bool)
}

type pendingReply struct {
	payload []byte
	err     error
}

func newDevice(c *Client, addr net.UDPAddr, serial [6]byte) *Device {
	d := &Device{
		Addr:      addr,
		Serial:    serial,
		client:    c,
		logger:    c.logger,
		inbox:     make(chan inboundMsg, 16),
		regCh:     make(chan *registration),
		seqCh:     make(chan seqRequest),
		regQuery:  make(chan chan bool),
		exhausted: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

// Close stops the device's owning goroutine and forgets it from the
// Client's dispatch table. Any requests in flight receive ErrExhausted.
func (d *Device) Close() {
	close(d.done)
	d.client.forgetDevice(d)
}

// run is the sole owner of the sequence counter and the pending-request
// table; nothing outside this goroutine ever touches either, so no mutex is
// needed over them.
func (d *Device) run() {
	var seq uint8
	pending := make(map[uint8]*registration)

	// registered and lastInbound implement spec §4.2's asymmetric
	// registration rule: true on any first contact, false only once a send
	// retry has been exhausted AND nothing has arrived within
	// unregisterTimeout of that exhaustion.
	var registered bool
	var lastInbound time.Time

	flushPending := func(err error) {
		for s, reg := range pending {
			reg.reply <- pendingReply{err: err}
			delete(pending, s)
		}
	}

	for {
		select {
		case <-d.done:
			flushPending(ErrExhausted)
			return

		case req := <-d.seqCh:
			seq = (seq + 1) % 128 // 7-bit wraparound, per the wire's documented sequence space; pre-incremented, so the first allocated value is 1
			req.reply <- seq

		case reply := <-d.regQuery:
			reply <- registered

		case <-d.exhausted:
			if registered && time.Since(lastInbound) >= unregisterTimeout {
				registered = false
				if d.onDeregister != nil {
					d.onDeregister()
				}
			}

		case reg := <-d.regCh:
			hdr := header{
				sourceID:          d.client.source,
				target:            macToTarget(d.Serial),
				ackRequested:      reg.wantAck,
				responseRequested: reg.wantResp,
				seqNum:            reg.seq,
				msgType:           reg.reqType,
			}
			msg := encodeMessage(hdr, reg.payload)

			if _, err := d.client.conn.WriteToUDP(msg, &d.Addr); err != nil {
				terr := &TransportError{Op: "send", Err: err}
				if reg.wantAck || reg.wantResp {
					// A transport-level failure invalidates every other
					// outstanding request on this endpoint too.
					flushPending(terr)
				}
				reg.reply <- pendingReply{err: terr}
				continue
			}
			registered = true // first contact is outbound or inbound, per spec

			if !reg.wantAck && !reg.wantResp {
				reg.reply <- pendingReply{}
				continue
			}
			pending[reg.seq] = reg

		case msg := <-d.inbox:
			registered = true
			lastInbound = time.Now()

			reg, ok := pending[msg.hdr.seqNum]
			if !ok {
				d.logger.Debug("lifx: unmatched reply", "device", d.Addr, "seq", msg.hdr.seqNum, "type", msg.hdr.msgType)
				continue
			}
			switch {
			case msg.hdr.msgType == reg.respType && msg.hdr.sourceID == d.client.source:
				if reg.multi != nil && !reg.multi.add(msg.payload) {
					// More datagrams expected; leave the pending entry in
					// place and keep waiting instead of completing now.
					continue
				}
				delete(pending, msg.hdr.seqNum)
				d.logger.Debug("lifx: matched reply", "device", d.Addr, "seq", msg.hdr.seqNum, "payload", spew.Sdump(msg.payload))
				reg.reply <- pendingReply{payload: msg.payload}
			case reg.wantResp && msg.hdr.msgType == pktAcknowledgement:
				// Intermediate ack while awaiting a response: ignore, keep waiting.
			default:
				// Either the wrong kind or the wrong source_id replied with
				// this sequence number. Drop the entry; the retry loop will
				// observe its absence and try again.
				delete(pending, msg.hdr.seqNum)
			}
		}
	}
}

// Automatic retry parameters: a fixed per-attempt timeout and a fixed
// attempt count, with no backoff.
//
// UDP doesn't have reliability guarantees. LIFX devices are usually pretty
// good on a LAN, but in the event a packet is dropped we can set a strict
// fixed timeout and aggressively retry to improve reliability.
const (
	attemptTimeout    = 500 * time.Millisecond
	maxAttempts       = 3
	fireForgetGap     = 50 * time.Millisecond // device ingress rate limit: ~20 msg/s
	fireForgetCount   = 3
	unregisterTimeout = 60 * time.Second
	maxCollectTimeout = 5 * time.Second
)

// isRegistered reports the endpoint's current registration state, per
// spec §4.2. Used by the Discovery Controller to decide whether a known
// MAC's new StateService reply means "still fine" or "rebind".
func (d *Device) isRegistered() bool {
	reply := make(chan bool, 1)
	select {
	case d.regQuery <- reply:
	case <-d.done:
		return false
	}
	return <-reply
}

// noteExhausted tells the owning goroutine that a send retry exhausted its
// attempts, so it can apply the asymmetric deregistration rule.
func (d *Device) noteExhausted() {
	select {
	case d.exhausted <- struct{}{}:
	default:
	}
}

// allocSeq hands out the next sequence number from the owning goroutine.
func (d *Device) allocSeq(ctx context.Context) (uint8, error) {
	req := seqRequest{reply: make(chan uint8, 1)}
	select {
	case d.seqCh <- req:
	case <-d.done:
		return 0, ErrExhausted
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case s := <-req.reply:
		return s, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// send performs one register-and-transmit round trip for the given
// sequence number, waiting for either a matched reply or ctx's deadline.
func (d *Device) send(ctx context.Context, seq uint8, reqType, respType msgType, payload []byte, wantAck, wantResp bool) ([]byte, error) {
	reg := &registration{
		seq:      seq,
		reqType:  reqType,
		respType: respType,
		payload:  payload,
		wantAck:  wantAck,
		wantResp: wantResp,
		reply:    make(chan pendingReply, 1),
	}

	select {
	case d.regCh <- reg:
	case <-d.done:
		return nil, ErrExhausted
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case rep := <-reg.reply:
		return rep.payload, rep.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// retrySeq retries the same sequence number, with a fixed per-attempt
// timeout, until it succeeds, ctx is done, or max_attempts is exhausted.
// Only timeouts are retried; any other error is returned immediately.
func (d *Device) retrySeq(ctx context.Context, seq uint8, reqType, respType msgType, payload []byte, wantAck, wantResp bool) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		d.tracef(ctx, "LIFX op (seq=%d type=%d) attempt %d, timeout %v", seq, reqType, attempt, attemptTimeout)
		t0 := time.Now()
		sub, cancel := context.WithTimeout(ctx, attemptTimeout)
		out, err := d.send(sub, seq, reqType, respType, payload, wantAck, wantResp)
		cancel()

		if err == nil {
			d.tracef(ctx, "LIFX op (seq=%d type=%d) finished after %v", seq, reqType, time.Since(t0))
			return out, nil
		}
		if !retryableErr(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			d.tracef(ctx, "LIFX op (seq=%d type=%d) giving up: %v", seq, reqType, ctx.Err())
			return nil, ctx.Err()
		}
		if attempt+1 >= maxAttempts {
			d.tracef(ctx, "LIFX op (seq=%d type=%d) exhausted retries", seq, reqType)
			d.noteExhausted()
			return nil, ErrExhausted
		}
	}
}

// retryableErr reports whether the error should cause another try.
func retryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var neterr net.Error
	if errors.As(err, &neterr) && neterr.Timeout() {
		return true
	}
	return false // any other error is probably permanent
}

// fireAndForget sends reqType with neither ack nor response requested,
// repeating it fireForgetCount times at a fixed pace to respect the
// device's documented ingress rate, per SPEC_FULL.md §4.2. There is no
// confirmation of delivery.
func (d *Device) fireAndForget(ctx context.Context, reqType msgType, payload []byte) error {
	for i := 0; i < fireForgetCount; i++ {
		if _, err := d.send(ctx, 0, reqType, 0, payload, false, false); err != nil {
			return err
		}
		if i+1 < fireForgetCount {
			select {
			case <-time.After(fireForgetGap):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// requestAck sends reqType and retries, reusing the same sequence number,
// until an Acknowledgement arrives, ctx expires, or retries are exhausted.
func (d *Device) requestAck(ctx context.Context, reqType msgType, payload []byte) error {
	seq, err := d.allocSeq(ctx)
	if err != nil {
		return err
	}
	_, err = d.retrySeq(ctx, seq, reqType, pktAcknowledgement, payload, true, false)
	return err
}

// requestResponse sends reqType and retries, reusing the same sequence
// number, until a respType reply arrives, ctx expires, or retries are
// exhausted.
func (d *Device) requestResponse(ctx context.Context, reqType, respType msgType, payload []byte) ([]byte, error) {
	seq, err := d.allocSeq(ctx)
	if err != nil {
		return nil, err
	}
	return d.retrySeq(ctx, seq, reqType, respType, payload, false, true)
}

// collectResponses sends reqType once and accumulates respType replies via
// collector until it reports itself done, ctx is cancelled, or
// maxCollectTimeout elapses. Unlike retrySeq, a timeout here is terminal:
// the legacy multi-zone partial-read protocol's several replies normally
// arrive back-to-back, so there is no notion of "retry" once the request
// itself was delivered.
func (d *Device) collectResponses(ctx context.Context, reqType, respType msgType, payload []byte, collector *multiCollector) error {
	seq, err := d.allocSeq(ctx)
	if err != nil {
		return err
	}

	sub, cancel := context.WithTimeout(ctx, maxCollectTimeout)
	defer cancel()

	reg := &registration{
		seq:      seq,
		reqType:  reqType,
		respType: respType,
		payload:  payload,
		wantResp: true,
		multi:    collector,
		reply:    make(chan pendingReply, 1),
	}
	select {
	case d.regCh <- reg:
	case <-d.done:
		return ErrExhausted
	case <-sub.Done():
		return sub.Err()
	}
	select {
	case rep := <-reg.reply:
		return rep.err
	case <-sub.Done():
		return sub.Err()
	}
}

// query is the teacher's original shorthand for a request/response pair;
// kept so the many Get* methods in this package read the same way they did
// before the transport was rewritten.
func (d *Device) query(ctx context.Context, reqType, respType msgType, payload []byte) ([]byte, error) {
	return d.requestResponse(ctx, reqType, respType, payload)
}

// set is the teacher's original shorthand for a fire-and-wait-for-ack
// operation.
func (d *Device) set(ctx context.Context, reqType msgType, payload []byte) error {
	return d.requestAck(ctx, reqType, payload)
}

func (d *Device) tracef(ctx context.Context, format string, args ...any) {
	if d.Tracef != nil {
		d.Tracef(ctx, format, args...)
		return
	}
	d.logger.DebugContext(ctx, fmt.Sprintf(format, args...))
}
