package domain

// X25519Public is a Curve25519 public key, used for Noise DH and for the
// long-term identity key whose hash seeds a PeerID/Fingerprint.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key (clamped per RFC 7748).
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// Ed25519Public is an Ed25519 signing public key, used to verify the
// signature a node's Announce packet carries over its own payload.
type Ed25519Public [32]byte

// Slice returns the key as a []byte.
func (p Ed25519Public) Slice() []byte { return p[:] }

// Ed25519Private is an Ed25519 signing private key.
type Ed25519Private [64]byte

// Slice returns the key as a []byte.
func (k Ed25519Private) Slice() []byte { return k[:] }

// Identity holds the long-term key material a node owns: a Curve25519 pair
// used as the Noise static key (and hashed to derive PeerID/Fingerprint),
// and an Ed25519 pair used to sign outbound packets.
type Identity struct {
	XPub   X25519Public   `json:"x_pub"`
	XPriv  X25519Private  `json:"x_priv"`
	EdPub  Ed25519Public  `json:"ed_pub"`
	EdPriv Ed25519Private `json:"ed_priv"`
	// Nickname is the display name announced alongside this identity.
	Nickname string `json:"nickname"`
}
