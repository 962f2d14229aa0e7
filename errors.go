package lifx

import (
	"errors"
	"fmt"
)

// Error taxonomy for the LIFX LAN client.
//
// DecodeError wraps malformed-datagram failures; it is always safe to log
// and drop without touching any pending-request state. TransportError wraps
// delivery failures reported by the OS (as opposed to a plain timeout,
// which is not an error at this layer — see Device.retrySeq).
var (
	// ErrExhausted is the error value returned from blocking Get/Set calls
	// when a request-with-ack or request-with-response primitive used up
	// all of its retry attempts without a matching reply.
	ErrExhausted = errors.New("lifx: request exhausted retries without a reply")

	// ErrCapabilityMismatch is returned by Device.QuietOn when the device's
	// resolved product capabilities don't include the Light operation
	// group. (The AsX() accessors report the same condition as ok=false.)
	// Call sites are expected to treat this as "this device doesn't do
	// that", not a transient failure.
	ErrCapabilityMismatch = errors.New("lifx: device does not support this operation group")

	// ErrUnknownVendor and ErrUnknownProduct are returned by the capability
	// resolver (see capability.go) when a (vendor, product) pair isn't in
	// the static product table.
	ErrUnknownVendor  = errors.New("lifx: unknown vendor ID")
	ErrUnknownProduct = errors.New("lifx: unknown product ID")

	// ErrNotEncodable is returned by Switch.SetButton, whose payload format
	// the protocol never actually defined, so it has no client-side
	// encoding.
	ErrNotEncodable = errors.New("lifx: this message kind has no client-side encoding")
)

// DecodeError reports a malformed inbound datagram.
type DecodeError struct {
	MessageType msgType
	Reason      string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("lifx: decode error (message type %d): %s", e.MessageType, e.Reason)
}

// TransportError wraps a UDP delivery failure reported by the OS, as
// distinct from a per-attempt timeout (which is retryable; see the retry
// loop in device.go).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("lifx: transport error during %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }
