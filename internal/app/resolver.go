package app

import (
	"sync"

	"bitchat/internal/crypto"
	"bitchat/internal/domain"
)

// identityResolver is the PeerID-to-Fingerprint mapping fed by the mesh
// transport's Announce handling and shared by the message router and the
// mesh's inbound blocked-sender check. The relay transport keeps its own
// registry for reachability; Wire feeds it from the same Announce callback.
type identityResolver struct {
	mu   sync.RWMutex
	byID map[domain.PeerID]domain.Fingerprint
}

func newIdentityResolver() *identityResolver {
	return &identityResolver{byID: make(map[domain.PeerID]domain.Fingerprint)}
}

func (r *identityResolver) learn(peer domain.PeerID, pub domain.X25519Public) domain.Fingerprint {
	fp := domain.Fingerprint(crypto.Fingerprint(pub.Slice()))
	r.mu.Lock()
	r.byID[peer] = fp
	r.mu.Unlock()
	return fp
}

func (r *identityResolver) resolve(peer domain.PeerID) (domain.Fingerprint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fp, ok := r.byID[peer]
	return fp, ok
}
