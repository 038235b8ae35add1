// Package relay implements the WebSocket side of the Relay Transport: a
// client for one or more Nostr-style relays, a small JSON event envelope,
// and the end-to-end content sealing (ECDH + XChaCha20-Poly1305) that keeps
// relay-carried payloads opaque to the relay itself.
//
// A full NIP-17 gift wrap hides the sender's long-term pubkey from the
// relay behind a throwaway signing key per event; this package seals the
// payload but names the publisher's real identity in each event's pubkey
// field and does not sign events, a simplification recorded in the
// project's design notes.
// The relay sees who is talking to whom, but never the plaintext.
package relay
