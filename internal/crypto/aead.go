package crypto

import (
	"crypto/cipher"

	"golang.org/x/crypto/chacha20poly1305"

	"bitchat/internal/bcerr"
)

// Seal encrypts plaintext with the standard ChaCha20-Poly1305 construction:
// a 32-byte key and a 12-byte nonce, counted per Noise transport direction.
func Seal(key, nonce, aad, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, &bcerr.InvalidNonceLengthError{Expected: aead.NonceSize(), Got: len(nonce)}
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open decrypts ciphertext sealed with Seal. A tampered ciphertext, tag,
// key, or aad causes this to fail with bcerr.ErrAuthenticationFailed.
func Open(key, nonce, aad, ciphertext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, &bcerr.InvalidNonceLengthError{Expected: aead.NonceSize(), Got: len(nonce)}
	}
	pt, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, bcerr.ErrAuthenticationFailed
	}
	return pt, nil
}

// SealX encrypts plaintext with XChaCha20-Poly1305: a 32-byte key and a
// 24-byte nonce that may be sampled randomly rather than counted, used for
// file chunks where per-message nonce coordination across peers is
// impractical. Internally this derives a per-message subkey from the first
// 16 nonce bytes via HChaCha20 and applies standard ChaCha20-Poly1305 with
// the remaining 8 bytes zero-extended to 12 — exactly what
// golang.org/x/crypto/chacha20poly1305.NewX implements.
func SealX(key, nonce, aad, plaintext []byte) ([]byte, error) {
	aead, err := newXAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, &bcerr.InvalidNonceLengthError{Expected: aead.NonceSize(), Got: len(nonce)}
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// OpenX decrypts ciphertext sealed with SealX.
func OpenX(key, nonce, aad, ciphertext []byte) ([]byte, error) {
	aead, err := newXAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, &bcerr.InvalidNonceLengthError{Expected: aead.NonceSize(), Got: len(nonce)}
	}
	pt, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, bcerr.ErrAuthenticationFailed
	}
	return pt, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, &bcerr.InvalidKeyLengthError{Expected: chacha20poly1305.KeySize, Got: len(key)}
	}
	return chacha20poly1305.New(key)
}

func newXAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, &bcerr.InvalidKeyLengthError{Expected: chacha20poly1305.KeySize, Got: len(key)}
	}
	return chacha20poly1305.NewX(key)
}
