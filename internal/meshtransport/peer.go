package meshtransport

import (
	"sync"
	"time"

	"bitchat/internal/domain"
)

// peerInfo tracks what is known about one mesh peer: which BLE link
// address currently reaches it, its announced nickname and static Noise
// key, and when it was last heard from.
type peerInfo struct {
	addr      string
	nickname  string
	static    domain.X25519Public
	hasStatic bool
	lastSeen  time.Time
}

// registry maps between BLE link addresses and the PeerIDs announced over
// them, in both directions, plus the metadata learned from each peer's
// Announce packets.
type registry struct {
	mu         sync.RWMutex
	byPeer     map[domain.PeerID]*peerInfo
	addrToPeer map[string]domain.PeerID
}

func newRegistry() *registry {
	return &registry{
		byPeer:     make(map[domain.PeerID]*peerInfo),
		addrToPeer: make(map[string]domain.PeerID),
	}
}

// Touch records that an Announce (or any traffic) for peer arrived over
// addr, updating its nickname/static key/lastSeen.
func (r *registry) Touch(peer domain.PeerID, addr string, nickname string, static domain.X25519Public, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byPeer[peer]
	if !ok {
		info = &peerInfo{}
		r.byPeer[peer] = info
	}
	info.addr = addr
	info.nickname = nickname
	info.static = static
	info.hasStatic = true
	info.lastSeen = now
	r.addrToPeer[addr] = peer
}

// TouchSeen records link-level traffic from peer without new Announce
// metadata (e.g. any decoded packet), refreshing lastSeen only.
func (r *registry) TouchSeen(peer domain.PeerID, addr string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byPeer[peer]
	if !ok {
		info = &peerInfo{}
		r.byPeer[peer] = info
	}
	info.addr = addr
	info.lastSeen = now
	r.addrToPeer[addr] = peer
}

func (r *registry) PeerForAddr(addr string) (domain.PeerID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.addrToPeer[addr]
	return p, ok
}

func (r *registry) AddrForPeer(peer domain.PeerID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byPeer[peer]
	if !ok || info.addr == "" {
		return "", false
	}
	return info.addr, true
}

func (r *registry) StaticKey(peer domain.PeerID) (domain.X25519Public, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byPeer[peer]
	if !ok || !info.hasStatic {
		return domain.X25519Public{}, false
	}
	return info.static, true
}

func (r *registry) Nickname(peer domain.PeerID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if info, ok := r.byPeer[peer]; ok {
		return info.nickname
	}
	return ""
}

// LastSeen reports when peer was last heard from, and whether it has ever
// been heard from at all.
func (r *registry) LastSeen(peer domain.PeerID) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byPeer[peer]
	if !ok {
		return time.Time{}, false
	}
	return info.lastSeen, true
}

// Forget drops every mapping to addr, called when its link goes down.
func (r *registry) Forget(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	peer, ok := r.addrToPeer[addr]
	if !ok {
		return
	}
	delete(r.addrToPeer, addr)
	if info, ok := r.byPeer[peer]; ok && info.addr == addr {
		info.addr = ""
	}
}

// ConnectedAddrs returns every currently-mapped link address, for
// broadcast fan-out.
func (r *registry) ConnectedAddrs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.addrToPeer))
	for addr := range r.addrToPeer {
		out = append(out, addr)
	}
	return out
}
