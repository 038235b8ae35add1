package noise

import (
	"fmt"

	"bitchat/internal/crypto"
	"bitchat/internal/domain"
)

// Role identifies which side of the XX pattern a HandshakeState plays.
type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

// HandshakeState drives one XX handshake to completion. It is single-use:
// once Split has been called (after message 3), construct a new
// HandshakeState for the next handshake with this peer.
type HandshakeState struct {
	sym  *symmetricState
	role Role

	staticPriv domain.X25519Private
	staticPub  domain.X25519Public

	ephPriv domain.X25519Private
	ephPub  domain.X25519Public

	remoteEphemeral domain.X25519Public
	remoteStatic    domain.X25519Public

	step int
}

// NewHandshakeState starts a handshake for role, seeded with our long-term
// static key and a prologue binding the application identifier and wire
// version.
func NewHandshakeState(role Role, staticPriv domain.X25519Private, staticPub domain.X25519Public, prologue []byte) *HandshakeState {
	return &HandshakeState{
		sym:        newSymmetricState(prologue),
		role:       role,
		staticPriv: staticPriv,
		staticPub:  staticPub,
	}
}

// RemoteStatic returns the peer's static public key, valid once it has been
// received (after message 2 for the initiator, after message 3 for the
// responder).
func (h *HandshakeState) RemoteStatic() domain.X25519Public { return h.remoteStatic }

// WriteMessage produces the next outbound handshake message carrying an
// optional payload (Noise allows payloads on every message; bitchat sends
// none on the wire today, but the plumbing supports it).
func (h *HandshakeState) WriteMessage(payload []byte) ([]byte, error) {
	switch {
	case h.role == RoleInitiator && h.step == 0:
		return h.writeMessage1(payload)
	case h.role == RoleResponder && h.step == 1:
		return h.writeMessage2(payload)
	case h.role == RoleInitiator && h.step == 2:
		return h.writeMessage3(payload)
	default:
		return nil, fmt.Errorf("noise: %v may not write at step %d", h.role, h.step)
	}
}

// ReadMessage consumes an inbound handshake message and returns its payload.
func (h *HandshakeState) ReadMessage(msg []byte) ([]byte, error) {
	switch {
	case h.role == RoleResponder && h.step == 0:
		return h.readMessage1(msg)
	case h.role == RoleInitiator && h.step == 1:
		return h.readMessage2(msg)
	case h.role == RoleResponder && h.step == 2:
		return h.readMessage3(msg)
	default:
		return nil, fmt.Errorf("noise: %v may not read at step %d", h.role, h.step)
	}
}

// Done reports whether the third handshake message has been processed.
func (h *HandshakeState) Done() bool { return h.step == 3 }

// Split derives the two transport CipherStates once Done is true. The
// caller's send cipher is cs1 for the initiator and cs2 for the responder
// (so the initiator's send equals the responder's receive, and vice versa).
func (h *HandshakeState) Split() (send, recv *CipherState) {
	cs1, cs2 := h.sym.split()
	if h.role == RoleInitiator {
		return cs1, cs2
	}
	return cs2, cs1
}

func (h *HandshakeState) generateEphemeral() error {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}
	h.ephPriv, h.ephPub = priv, pub
	return nil
}

// -- Initiator: -> e

func (h *HandshakeState) writeMessage1(payload []byte) ([]byte, error) {
	if err := h.generateEphemeral(); err != nil {
		return nil, err
	}
	h.sym.mixHash(h.ephPub[:])
	ct, err := h.sym.encryptAndHash(payload)
	if err != nil {
		return nil, err
	}
	h.step = 1
	return append(append([]byte{}, h.ephPub[:]...), ct...), nil
}

func (h *HandshakeState) readMessage1(msg []byte) ([]byte, error) {
	if len(msg) < 32 {
		return nil, fmt.Errorf("noise: message 1 too short")
	}
	copy(h.remoteEphemeral[:], msg[:32])
	h.sym.mixHash(h.remoteEphemeral[:])
	pt, err := h.sym.decryptAndHash(msg[32:])
	if err != nil {
		return nil, err
	}
	h.step = 1
	return pt, nil
}

// -- Responder: <- e, ee, s, es

func (h *HandshakeState) writeMessage2(payload []byte) ([]byte, error) {
	if err := h.generateEphemeral(); err != nil {
		return nil, err
	}
	h.sym.mixHash(h.ephPub[:])

	dh1, err := crypto.DH(h.ephPriv, h.remoteEphemeral)
	if err != nil {
		return nil, err
	}
	h.sym.mixKey(dh1[:])

	sCT, err := h.sym.encryptAndHash(h.staticPub[:])
	if err != nil {
		return nil, err
	}

	dh2, err := crypto.DH(h.staticPriv, h.remoteEphemeral)
	if err != nil {
		return nil, err
	}
	h.sym.mixKey(dh2[:])

	payloadCT, err := h.sym.encryptAndHash(payload)
	if err != nil {
		return nil, err
	}

	h.step = 2
	out := append([]byte{}, h.ephPub[:]...)
	out = append(out, sCT...)
	out = append(out, payloadCT...)
	return out, nil
}

func (h *HandshakeState) readMessage2(msg []byte) ([]byte, error) {
	if len(msg) < 32 {
		return nil, fmt.Errorf("noise: message 2 too short")
	}
	copy(h.remoteEphemeral[:], msg[:32])
	h.sym.mixHash(h.remoteEphemeral[:])
	rest := msg[32:]

	dh1, err := crypto.DH(h.ephPriv, h.remoteEphemeral)
	if err != nil {
		return nil, err
	}
	h.sym.mixKey(dh1[:])

	// The encrypted remote static key is 32 plaintext bytes + a 16-byte tag.
	if len(rest) < 48 {
		return nil, fmt.Errorf("noise: message 2 missing static key")
	}
	sPub, err := h.sym.decryptAndHash(rest[:48])
	if err != nil {
		return nil, err
	}
	copy(h.remoteStatic[:], sPub)

	dh2, err := crypto.DH(h.ephPriv, h.remoteStatic)
	if err != nil {
		return nil, err
	}
	h.sym.mixKey(dh2[:])

	pt, err := h.sym.decryptAndHash(rest[48:])
	if err != nil {
		return nil, err
	}
	h.step = 2
	return pt, nil
}

// -- Initiator: -> s, se

func (h *HandshakeState) writeMessage3(payload []byte) ([]byte, error) {
	sCT, err := h.sym.encryptAndHash(h.staticPub[:])
	if err != nil {
		return nil, err
	}

	dh, err := crypto.DH(h.staticPriv, h.remoteEphemeral)
	if err != nil {
		return nil, err
	}
	h.sym.mixKey(dh[:])

	payloadCT, err := h.sym.encryptAndHash(payload)
	if err != nil {
		return nil, err
	}

	h.step = 3
	return append(sCT, payloadCT...), nil
}

func (h *HandshakeState) readMessage3(msg []byte) ([]byte, error) {
	if len(msg) < 48 {
		return nil, fmt.Errorf("noise: message 3 missing static key")
	}
	sPub, err := h.sym.decryptAndHash(msg[:48])
	if err != nil {
		return nil, err
	}
	copy(h.remoteStatic[:], sPub)

	dh, err := crypto.DH(h.ephPriv, h.remoteStatic)
	if err != nil {
		return nil, err
	}
	h.sym.mixKey(dh[:])

	pt, err := h.sym.decryptAndHash(msg[48:])
	if err != nil {
		return nil, err
	}
	h.step = 3
	return pt, nil
}

// String implements fmt.Stringer for log messages.
func (r Role) String() string {
	if r == RoleInitiator {
		return "initiator"
	}
	return "responder"
}
