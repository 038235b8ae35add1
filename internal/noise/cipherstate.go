package noise

import "bitchat/internal/crypto"

// CipherState is one direction of an established transport session: a
// 32-byte key and a strictly monotonic 64-bit nonce counter.
type CipherState struct {
	key   [keySize]byte
	nonce uint64
}

// Encrypt seals plaintext under the current nonce and advances the counter.
func (c *CipherState) Encrypt(aad, plaintext []byte) (nonce uint64, ciphertext []byte, err error) {
	nonce = c.nonce
	ciphertext, err = crypto.Seal(c.key[:], encodeNonce(nonce), aad, plaintext)
	if err != nil {
		return 0, nil, err
	}
	c.nonce++
	return nonce, ciphertext, nil
}

// DecryptAt opens ciphertext sealed under the given explicit nonce. Callers
// are responsible for replay-window bookkeeping (see ReplayWindow); this
// method does not mutate c's counter, since receive-side ordering is
// arbitrary within the replay window.
func (c *CipherState) DecryptAt(nonce uint64, aad, ciphertext []byte) ([]byte, error) {
	return crypto.Open(c.key[:], encodeNonce(nonce), aad, ciphertext)
}
