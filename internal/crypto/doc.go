// Package crypto exposes the minimal primitives the rest of bitchat builds
// on:
//
//   - X25519 key generation, clamping, and Diffie-Hellman (GenerateX25519, DH)
//   - Ed25519 key generation, signing, and verification (GenerateEd25519,
//     Sign, Verify) — used to sign and verify mesh Announce packets
//   - ChaCha20-Poly1305 transport AEAD (Seal, Open) and the XChaCha20-Poly1305
//     variant used for file chunks, where the per-message nonce is sampled
//     randomly rather than counted (SealX, OpenX)
//   - SHA-256 fingerprints for PeerID/Fingerprint derivation (Fingerprint)
//
// Keys are returned as the fixed-size array types defined in internal/domain;
// signatures and AEAD output are byte slices. Callers that finish with a secret should
// pass it to internal/util/memzero.Zero to shorten its lifetime in memory.
package crypto
