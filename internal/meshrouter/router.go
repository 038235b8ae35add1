package meshrouter

import "bitchat/internal/domain"

// Decision is the outcome of routing one inbound packet.
type Decision struct {
	Dropped        bool // loopback, blocked sender, or duplicate; nothing further to do
	DeliverLocally bool
	Forward        bool
	Forwarded      domain.Packet // valid when Forward is true: TTL already decremented
}

// Router applies dedup, blocked-sender suppression, and TTL-decrement
// flood-routing to inbound packets for one local node.
type Router struct {
	self  domain.PeerID
	dedup *DedupIndex

	isBlocked func(domain.PeerID) bool
}

// NewRouter creates a Router for self, using idx for duplicate suppression.
// idx may be shared with nothing else; it is not safe to reuse across
// nodes.
func NewRouter(self domain.PeerID, idx *DedupIndex) *Router {
	if idx == nil {
		idx = NewDedupIndex(0, 0)
	}
	return &Router{self: self, dedup: idx}
}

// SetBlockedCheck installs the predicate Route consults to silently drop
// every packet from a blocked sender, before dedup or delivery/forwarding
// is even considered. internal/app wires this to a FavoritesStore lookup
// keyed through the same PeerID-to-Fingerprint resolver OnIdentityLearned
// feeds, so a block takes effect the moment a peer's identity is known.
func (r *Router) SetBlockedCheck(isBlocked func(domain.PeerID) bool) {
	r.isBlocked = isBlocked
}

// Route decides whether p should be delivered locally, forwarded on, both,
// or dropped outright.
func (r *Router) Route(p domain.Packet) Decision {
	if p.SenderID == r.self {
		return Decision{Dropped: true}
	}
	if r.isBlocked != nil && r.isBlocked(p.SenderID) {
		return Decision{Dropped: true}
	}
	if r.dedup.Seen(DedupKey(p)) {
		return Decision{Dropped: true}
	}

	deliverLocally := p.IsBroadcast() || (p.HasRecipient && p.RecipientID == r.self)

	directedToSelfOnly := p.HasRecipient && !p.IsBroadcast() && p.RecipientID == r.self
	forward := p.TTL > 1 && !directedToSelfOnly

	d := Decision{DeliverLocally: deliverLocally, Forward: forward}
	if forward {
		fwd := p
		fwd.TTL = p.TTL - 1
		d.Forwarded = fwd
	}
	return d
}
