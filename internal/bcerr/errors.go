// Package bcerr defines the error kinds reported across bitchat's
// subsystems. Errors cross component boundaries as normal Go
// error values — never as panics — and are either a plain sentinel or a
// *Error carrying the peer/context the failure happened against.
package bcerr

import (
	"errors"
	"fmt"
)

// Sentinel errors with no associated context.
var (
	ErrTransportUnavailable = errors.New("bcerr: transport unavailable")
	ErrUnreachable          = errors.New("bcerr: peer unreachable")
	ErrHandshakeTimeout     = errors.New("bcerr: handshake timeout")
	ErrHandshakeFailed      = errors.New("bcerr: handshake failed")
	ErrAuthenticationFailed = errors.New("bcerr: authentication failed")
	ErrReplayDetected       = errors.New("bcerr: replay detected")
	ErrMalformedPacket      = errors.New("bcerr: malformed packet")
	ErrUnknownVersion       = errors.New("bcerr: unknown protocol version")
	ErrUnsupportedType      = errors.New("bcerr: unsupported message type")
	ErrFragmentTimeout      = errors.New("bcerr: fragment reassembly timeout")
	ErrQuotaExceeded        = errors.New("bcerr: quota exceeded")
	ErrNotFound             = errors.New("bcerr: not found")
	ErrBlocked              = errors.New("bcerr: peer is blocked")
	ErrRecipientRequired    = errors.New("bcerr: operation requires a specific recipient")
	ErrBroadcastUnsupported = errors.New("bcerr: transport does not support broadcast")
)

// InvalidKeyLengthError reports that a cryptographic key had the wrong size.
type InvalidKeyLengthError struct {
	Expected int
	Got      int
}

func (e *InvalidKeyLengthError) Error() string {
	return fmt.Sprintf("bcerr: invalid key length: expected %d, got %d", e.Expected, e.Got)
}

// InvalidNonceLengthError reports that an AEAD nonce had the wrong size.
type InvalidNonceLengthError struct {
	Expected int
	Got      int
}

func (e *InvalidNonceLengthError) Error() string {
	return fmt.Sprintf("bcerr: invalid nonce length: expected %d, got %d", e.Expected, e.Got)
}

// PeerError wraps one of the sentinel kinds with the peer it concerns.
type PeerError struct {
	Peer string
	Kind error
}

func (e *PeerError) Error() string { return fmt.Sprintf("bcerr: peer %s: %v", e.Peer, e.Kind) }

func (e *PeerError) Unwrap() error { return e.Kind }

// WithPeer wraps kind with the given peer identifier for richer logs while
// remaining matchable via errors.Is(err, kind).
func WithPeer(peer string, kind error) error {
	return &PeerError{Peer: peer, Kind: kind}
}
