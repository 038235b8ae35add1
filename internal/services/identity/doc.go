// Package identity manages creation, encryption and loading of the local
// node's long-term identity.
//
// It enforces passphrase policy, generates the X25519 static key pair
// (Noise + PeerID/Fingerprint) and Ed25519 signing pair, and persists
// them via domain.IdentityStore.
package identity
