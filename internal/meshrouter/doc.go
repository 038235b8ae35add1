// Package meshrouter implements flood routing over the mesh: per-packet
// deduplication with a bounded, time-windowed LRU, and the TTL
// decrement/forward decision every inbound packet goes through.
package meshrouter
