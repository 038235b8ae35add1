package crypto

import "crypto/sha256"

// Fingerprint hashes pub with SHA-256. Callers truncate the result to
// derive a PeerID (first 8 bytes) or keep the full 32 bytes as a
// domain.Fingerprint.
func Fingerprint(pub []byte) [32]byte {
	return sha256.Sum256(pub)
}
