// Package messagerouter implements the Message Router: an ordered list
// of domain.Transport values (mesh first, relay as fallback) selected
// per-operation by reachability, with a per-peer outbox for private sends
// that find no reachable transport yet.
//
// This is distinct from internal/meshrouter, which does flood/dedup/TTL
// routing of packets inside the mesh transport itself — one layer down
// and unaware that a relay transport even exists.
package messagerouter
