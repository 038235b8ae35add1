// Package relaytransport implements domain.Transport over one or more
// relay.WSClient connections: it resolves a peer's reachability by mapping
// its PeerID to a Fingerprint and looking that up in the favorites store's
// Fingerprint-to-Nostr-pubkey mapping, seals outbound
// payloads, and surfaces decrypted inbound ones through the same
// domain.ApplicationSink the mesh transport uses, so the message router
// and the host application cannot tell which transport a message arrived
// over.
package relaytransport
