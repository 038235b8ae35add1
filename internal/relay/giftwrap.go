package relay

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"bitchat/internal/bcerr"
	"bitchat/internal/crypto"
	"bitchat/internal/domain"
)

// sealInfo binds the derived key to this specific use, so the same static
// DH secret can never be replayed as a key for a different protocol that
// happens to reuse the same two identities.
const sealInfo = "bitchat-relay-seal-v1"

// Seal encrypts body for recipientPub. The key is derived from the static
// X25519 Diffie-Hellman secret between senderPriv and recipientPub via
// HKDF-SHA256, then used for XChaCha20-Poly1305 with a random 24-byte
// nonce prefixed to the ciphertext.
//
// Unlike the mesh's Noise sessions, this has no ratchet: the same shared
// secret seals every message between a pair of peers until one of them
// rotates its identity key. That trade-off is accepted for the relay
// fallback path — it is a store-and-forward path of last resort, not the
// primary transport, and session state for every relay-known peer would be
// a second place forward secrecy could silently lapse out of sync with the
// mesh's.
func Seal(senderPriv domain.X25519Private, recipientPub domain.X25519Public, body []byte) ([]byte, error) {
	key, err := sealKey(senderPriv, recipientPub)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ciphertext, err := crypto.SealX(key, nonce, nil, body)
	if err != nil {
		return nil, err
	}
	return append(nonce, ciphertext...), nil
}

// Open decrypts a payload produced by Seal. senderPub is the claimed
// publisher's identity key (the event's pubkey field); a tampered or
// misattributed payload fails to authenticate rather than decoding wrong.
func Open(recipientPriv domain.X25519Private, senderPub domain.X25519Public, sealed []byte) ([]byte, error) {
	key, err := sealKey(recipientPriv, senderPub)
	if err != nil {
		return nil, err
	}
	nonceLen := chacha20poly1305.NonceSizeX
	if len(sealed) < nonceLen {
		return nil, bcerr.ErrMalformedPacket
	}
	nonce, ciphertext := sealed[:nonceLen], sealed[nonceLen:]
	return crypto.OpenX(key, nonce, nil, ciphertext)
}

func sealKey(priv domain.X25519Private, pub domain.X25519Public) ([]byte, error) {
	secret, err := crypto.DH(priv, pub)
	if err != nil {
		return nil, err
	}
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, secret[:], nil, []byte(sealInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
