package noise

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"bitchat/internal/crypto"
)

const (
	hashSize = 32
	keySize  = 32
)

// protocolName is mixed into the initial hash per Noise's handshake naming
// convention; prologue additionally binds the application identifier and
// wire version so a handshake cannot be replayed across protocol revisions.
const protocolName = "Noise_XX_25519_ChaChaPoly_SHA256"

// symmetricState tracks the running chaining key and transcript hash shared
// by both parties during a handshake (Noise spec §5.2).
type symmetricState struct {
	ck [hashSize]byte
	h  [hashSize]byte
	k  []byte // set once MixKey has run at least once
	n  uint64
}

func newSymmetricState(prologue []byte) *symmetricState {
	s := &symmetricState{}
	if len(protocolName) <= hashSize {
		copy(s.h[:], protocolName)
	} else {
		s.h = sha256.Sum256([]byte(protocolName))
	}
	s.ck = s.h
	s.mixHash(prologue)
	return s
}

func (s *symmetricState) mixHash(data []byte) {
	h := sha256.New()
	h.Write(s.h[:])
	h.Write(data)
	copy(s.h[:], h.Sum(nil))
}

// mixKey runs Noise's two-output HKDF over the chaining key and derives a
// fresh handshake encryption key.
func (s *symmetricState) mixKey(ikm []byte) {
	r := hkdf.New(sha256.New, ikm, s.ck[:], nil)
	out := make([]byte, hashSize+keySize)
	if _, err := io.ReadFull(r, out); err != nil {
		panic("noise: hkdf expand failed: " + err.Error())
	}
	copy(s.ck[:], out[:hashSize])
	s.k = out[hashSize:]
	s.n = 0
}

func (s *symmetricState) hasKey() bool { return s.k != nil }

func (s *symmetricState) encryptAndHash(plaintext []byte) ([]byte, error) {
	var ct []byte
	if s.hasKey() {
		nonce := encodeNonce(s.n)
		sealed, err := crypto.Seal(s.k, nonce, s.h[:], plaintext)
		if err != nil {
			return nil, err
		}
		ct = sealed
		s.n++
	} else {
		ct = plaintext
	}
	s.mixHash(ct)
	return ct, nil
}

func (s *symmetricState) decryptAndHash(ciphertext []byte) ([]byte, error) {
	var pt []byte
	if s.hasKey() {
		nonce := encodeNonce(s.n)
		opened, err := crypto.Open(s.k, nonce, s.h[:], ciphertext)
		if err != nil {
			return nil, err
		}
		pt = opened
		s.n++
	} else {
		pt = ciphertext
	}
	s.mixHash(ciphertext)
	return pt, nil
}

// split derives the two transport CipherStates once the handshake
// transcript is complete.
func (s *symmetricState) split() (c1, c2 *CipherState) {
	r := hkdf.New(sha256.New, nil, s.ck[:], nil)
	out := make([]byte, keySize*2)
	if _, err := io.ReadFull(r, out); err != nil {
		panic("noise: hkdf expand failed: " + err.Error())
	}
	c1 = &CipherState{}
	c2 = &CipherState{}
	copy(c1.key[:], out[:keySize])
	copy(c2.key[:], out[keySize:])
	return c1, c2
}

// encodeNonce renders n as the 12-byte little-endian nonce ChaCha20-Poly1305
// expects, with the first 4 bytes zero per the Noise spec's convention for
// 64-bit nonces.
func encodeNonce(n uint64) []byte {
	nonce := make([]byte, 12)
	for i := 0; i < 8; i++ {
		nonce[4+i] = byte(n >> (8 * i))
	}
	return nonce
}
