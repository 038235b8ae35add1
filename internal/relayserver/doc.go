// Package relayserver implements the Nostr-style store-and-forward relay
// the Relay Transport's WSClient (internal/relay) dials: it accepts
// "EVENT" publishes, fans each one out to every "REQ" subscriber whose
// filter matches the event's recipient tag and kind, and holds no other
// state. Events are never persisted past the in-memory fan-out — matching
// the ephemeral event-kind range the client publishes in.
package relayserver
