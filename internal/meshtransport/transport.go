package meshtransport

import (
	"context"
	"sync"
	"time"

	"bitchat/internal/bcerr"
	"bitchat/internal/blelink"
	"bitchat/internal/crypto"
	"bitchat/internal/domain"
	"bitchat/internal/meshpacket"
	"bitchat/internal/meshrouter"
	"bitchat/internal/noise"
)

var _ domain.Transport = (*Mesh)(nil)

// DefaultBroadcastTTL is the hop budget given to a freshly originated
// broadcast message.
const DefaultBroadcastTTL = 7

// HousekeepingInterval is how often the mesh loop sweeps Noise sessions,
// reaps stale reassembly buffers, and expires overdue private sends.
const HousekeepingInterval = 1 * time.Second

// Config carries the local node's identity and tunables for a Mesh.
type Config struct {
	Nickname     string
	Identity     domain.Identity
	MTU          int
	BroadcastTTL uint8
}

// Mesh implements domain.Transport over a caller-managed set of BLE links:
// it encodes/decodes/fragments/reassembles packets, drives Noise sessions,
// applies dedup/TTL routing, and fans the results out to the pipeline and
// application sinks.
type Mesh struct {
	cfg  Config
	self domain.PeerID

	reg         *registry
	noiseMgr    *noise.Manager
	router      *meshrouter.Router
	reassembler *meshpacket.Reassembler
	links       *blelink.Manager
	sendQ       *sendQueue

	emitter    domain.EventEmitter
	publicSink domain.PipelineSink
	appSink    domain.ApplicationSink

	onIdentityLearned func(domain.PeerID, domain.X25519Public)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// OnIdentityLearned registers a callback invoked with a peer's static
// public key whenever an Announce arrives from a peer the registry does not
// currently hold. internal/app wires this to the PeerID-to-Fingerprint
// resolver the message router and the blocked-sender check consult, and
// passes each learned Fingerprint on to the relay transport.
func (m *Mesh) OnIdentityLearned(cb func(domain.PeerID, domain.X25519Public)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onIdentityLearned = cb
}

// SetBlockedCheck installs a block predicate on the underlying router: every
// inbound packet from a peer whose resolved Fingerprint is blocked is
// dropped before delivery or forwarding, the same as the message router's
// outbound check. internal/app calls this with the favorites store and the
// same PeerID-to-Fingerprint resolver OnIdentityLearned feeds.
func (m *Mesh) SetBlockedCheck(favorites domain.FavoritesStore, fingerprintOf func(domain.PeerID) (domain.Fingerprint, bool)) {
	m.router.SetBlockedCheck(func(peer domain.PeerID) bool {
		fp, ok := fingerprintOf(peer)
		if !ok {
			return false
		}
		return favorites.IsBlocked(fp)
	})
}

// NewMesh builds a Mesh for the given identity. The returned Mesh owns its
// own blelink.Manager; callers connect real or simulated links to it via
// AddLink.
func NewMesh(cfg Config, emitter domain.EventEmitter, publicSink domain.PipelineSink, appSink domain.ApplicationSink) *Mesh {
	if cfg.MTU <= 0 {
		cfg.MTU = meshpacket.DefaultMTU
	}
	if cfg.BroadcastTTL == 0 {
		cfg.BroadcastTTL = DefaultBroadcastTTL
	}

	self := deriveSelfPeerID(cfg.Identity.XPub)
	prologue := []byte{domain.ProtocolVersion}

	m := &Mesh{
		cfg:         cfg,
		self:        self,
		reg:         newRegistry(),
		noiseMgr:    noise.NewManager(cfg.Identity.XPriv, cfg.Identity.XPub, prologue),
		reassembler: meshpacket.NewReassembler(),
		sendQ:       newSendQueue(),
		emitter:     emitter,
		publicSink:  publicSink,
		appSink:     appSink,
	}
	m.router = meshrouter.NewRouter(self, meshrouter.NewDedupIndex(meshrouter.DefaultDedupCapacity, meshrouter.DefaultDedupWindow))
	m.links = blelink.NewManager(m.handleInboundFrame, m.buildAnnounceFrame)
	return m
}

func deriveSelfPeerID(pub domain.X25519Public) domain.PeerID {
	h := crypto.Fingerprint(pub.Slice())
	var p domain.PeerID
	copy(p[:], h[:8])
	return p
}

// Name identifies this transport for router ordering and logs.
func (m *Mesh) Name() string { return "mesh" }

// MyPeerID returns the local node's session identifier.
func (m *Mesh) MyPeerID() domain.PeerID { return m.self }

// MyNickname returns the local node's announced display name.
func (m *Mesh) MyNickname() string { return m.cfg.Nickname }

// Start begins the housekeeping loop (Noise session sweeps, reassembly
// reaping, private-send expiry). Idempotent.
func (m *Mesh) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true
	go m.housekeepingLoop(loopCtx)
}

// Stop halts the housekeeping loop and closes every connected link.
// Idempotent.
func (m *Mesh) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	cancel()
	<-done
	for _, addr := range m.links.Peers() {
		m.RemoveLink(addr)
	}
}

// EmergencyDisconnect tears everything down synchronously and wipes
// in-flight state: every link is closed, every Noise session is killed,
// and every queued private send is discarded without an Unreachable event
// (the caller asked to disappear, not to fail cleanly).
func (m *Mesh) EmergencyDisconnect() {
	m.Stop()
	m.sendQ.Clear()
	m.noiseMgr.DropAll()
}

// AddLink registers a newly connected BLE link and sends the initial
// Announce over it.
func (m *Mesh) AddLink(ctx context.Context, link blelink.Link, role blelink.Role) {
	m.links.AddLink(ctx, link, role)
}

// RemoveLink tears a link down and forgets its peer mapping.
func (m *Mesh) RemoveLink(addr string) {
	m.links.RemoveLink(addr)
	m.reg.Forget(addr)
}

// IsPeerConnected reports whether a live BLE link currently reaches peer.
func (m *Mesh) IsPeerConnected(peer domain.PeerID) bool {
	addr, ok := m.reg.AddrForPeer(peer)
	if !ok {
		return false
	}
	return m.links.Connected(addr)
}

// IsPeerReachable reports the same as IsPeerConnected: the mesh counts a
// peer as reachable only while a live link reaches it. When the peer was
// last heard from is not considered.
func (m *Mesh) IsPeerReachable(peer domain.PeerID) bool {
	return m.IsPeerConnected(peer)
}

// buildAnnounceFrame renders this node's Announce, Ed25519-signed over its
// payload so a receiver can confirm the claimed static/Ed25519 key pair
// travelled together and were not substituted in transit, before ever
// trusting the announced identity enough to start a handshake with it.
func (m *Mesh) buildAnnounceFrame() []byte {
	body := encodeAnnounce(announceBody{
		StaticPub: m.cfg.Identity.XPub,
		EdPub:     m.cfg.Identity.EdPub,
		Nickname:  m.cfg.Nickname,
	})
	p := domain.Packet{
		Version:   domain.ProtocolVersion,
		Type:      domain.TypeAnnounce,
		TTL:       1,
		Timestamp: uint64(time.Now().UnixMilli()),
		SenderID:  m.self,
		Payload:   body,
		Signature: crypto.Sign(m.cfg.Identity.EdPriv, body),
	}
	frame, err := meshpacket.Encode(p, false)
	if err != nil {
		return nil
	}
	return frame
}

func (m *Mesh) housekeepingLoop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(HousekeepingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.houseKeep(time.Now())
		}
	}
}

func (m *Mesh) houseKeep(now time.Time) {
	for _, swept := range m.noiseMgr.Sweep(now) {
		if m.emitter != nil {
			m.emitter.Emit(domain.Event{At: now, SessionLost: &domain.SessionLostEvent{Peer: swept.Peer, Reason: swept.Reason}})
		}
	}
	m.reassembler.Reap()
	for _, exp := range m.sendQ.Expire(now) {
		if m.emitter != nil {
			m.emitter.Emit(domain.Event{At: now, Unreachable: &domain.UnreachableEvent{Peer: exp.Peer, MessageID: exp.Item.messageID}})
		}
	}
}

// bestAddrFor resolves the BLE link address currently mapped to peer, or
// ("", false) if none.
func (m *Mesh) bestAddrFor(peer domain.PeerID) (string, bool) {
	return m.reg.AddrForPeer(peer)
}

// packetAAD binds a decrypted/encrypted body to the envelope metadata it
// travels with, so a ciphertext cannot be replayed under a different
// type/sender/recipient/timestamp.
func packetAAD(p domain.Packet) []byte {
	aad := make([]byte, 0, 1+8+8+8)
	aad = append(aad, byte(p.Type))
	aad = append(aad, p.SenderID.Slice()...)
	aad = append(aad, p.RecipientID.Slice()...)
	var ts [8]byte
	for i := 0; i < 8; i++ {
		ts[i] = byte(p.Timestamp >> (8 * (7 - i)))
	}
	return append(aad, ts[:]...)
}

// sendEncrypted encrypts body under the established session for peer and
// writes the resulting packet to peer's link. ok is false if no session is
// established yet (caller should queue and/or start a handshake).
func (m *Mesh) sendEncrypted(ctx context.Context, peer domain.PeerID, kind domain.MessageType, body []byte) (ok bool, err error) {
	session, found := m.noiseMgr.Session(peer)
	if !found || !session.Established() {
		return false, nil
	}

	p := domain.Packet{
		Version:      domain.ProtocolVersion,
		Type:         kind,
		TTL:          m.cfg.BroadcastTTL,
		Timestamp:    uint64(time.Now().UnixMilli()),
		SenderID:     m.self,
		RecipientID:  peer,
		HasRecipient: true,
	}
	aad := packetAAD(p)
	nonce, ciphertext, err := m.noiseMgr.Encrypt(peer, aad, body)
	if err != nil {
		return false, err
	}
	p.Payload = encodeTransportPayload(nonce, ciphertext)

	if err := m.writeToPeer(ctx, peer, p); err != nil {
		return false, err
	}
	return true, nil
}

// writeToPeer encodes p, fragmenting if needed, and writes every resulting
// frame to peer's link.
func (m *Mesh) writeToPeer(ctx context.Context, peer domain.PeerID, p domain.Packet) error {
	addr, ok := m.bestAddrFor(peer)
	if !ok {
		return bcerr.WithPeer(peer.String(), bcerr.ErrTransportUnavailable)
	}
	return m.writeToAddr(ctx, addr, p)
}

func (m *Mesh) writeToAddr(ctx context.Context, addr string, p domain.Packet) error {
	fragments, err := meshpacket.Fragment(p, m.cfg.MTU)
	if err != nil {
		return err
	}
	for _, frag := range fragments {
		frame, err := meshpacket.Encode(frag, false)
		if err != nil {
			return err
		}
		if ok, err := m.links.Send(ctx, addr, frame); err != nil {
			return err
		} else if !ok {
			return bcerr.ErrTransportUnavailable
		}
	}
	return nil
}

// broadcast writes p, fragmenting as needed, to every connected link.
func (m *Mesh) broadcast(ctx context.Context, p domain.Packet) error {
	var firstErr error
	for _, addr := range m.reg.ConnectedAddrs() {
		if err := m.writeToAddr(ctx, addr, p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ensureHandshake starts a handshake with peer if none is already
// established or in progress, using its previously-announced static key.
func (m *Mesh) ensureHandshake(ctx context.Context, peer domain.PeerID) error {
	if session, ok := m.noiseMgr.Session(peer); ok && (session.Established() || session.State() == noise.StateHandshakeInProgress) {
		return nil
	}
	static, ok := m.reg.StaticKey(peer)
	if !ok {
		return bcerr.WithPeer(peer.String(), bcerr.ErrTransportUnavailable)
	}
	msg, err := m.noiseMgr.StartHandshake(peer, static)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil // we are the responder; wait for their first message
	}
	p := domain.Packet{
		Version:      domain.ProtocolVersion,
		Type:         domain.TypeNoiseHandshakeInit,
		TTL:          1,
		Timestamp:    uint64(time.Now().UnixMilli()),
		SenderID:     m.self,
		RecipientID:  peer,
		HasRecipient: true,
		Payload:      msg,
	}
	return m.writeToPeer(ctx, peer, p)
}

// flushQueue sends every item queued for peer now that its session is
// established.
func (m *Mesh) flushQueue(ctx context.Context, peer domain.PeerID) {
	for _, item := range m.sendQ.Drain(peer) {
		ok, err := m.sendEncrypted(ctx, peer, item.packetType, item.body)
		if err != nil || !ok {
			// Could not deliver even though the session just established;
			// requeue with the original deadline rather than dropping it.
			if time.Now().Before(item.deadline) {
				m.sendQ.Push(peer, item)
			}
		}
	}
}
