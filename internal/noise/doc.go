// Package noise implements the Noise_XX_25519_ChaChaPoly_SHA256 handshake
// pattern and the per-peer transport ciphers and session lifecycle built on
// top of it.
//
// # Handshake
//
// Three messages complete an XX handshake:
//
//	Initiator -> Responder: e
//	Responder -> Initiator: e, ee, s, es
//	Initiator -> Responder: s, se
//
// Both sides track the standard Noise symmetric state (ck, h); a fixed
// prologue (application identifier + protocol version byte) is mixed into h
// before the first message. On completion the symmetric state splits into
// two CipherStates — the initiator's send direction is the responder's
// receive direction, and vice versa.
//
// # Transport
//
// Transport messages use 64-bit little-endian nonces starting at zero.
// ReplayWindow enforces sliding-window replay protection per direction.
// Session composes a HandshakeState, the resulting CipherStates, and the
// per-peer state machine (None -> HandshakeInProgress -> Established -> Dead).
//
// Concurrency: HandshakeState is not safe for concurrent use. Session
// guards its state with its own mutex, which Manager holds around every
// handshake, encrypt and decrypt step for that peer.
package noise
