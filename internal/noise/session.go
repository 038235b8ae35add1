package noise

import (
	"bytes"
	"sync"
	"time"

	"bitchat/internal/bcerr"
	"bitchat/internal/domain"
	"bitchat/internal/util/memzero"
)

// SessionState is the lifecycle of a per-peer Noise session.
type SessionState int

const (
	StateNone SessionState = iota
	StateHandshakeInProgress
	StateEstablished
	StateDead
)

func (s SessionState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateHandshakeInProgress:
		return "handshake-in-progress"
	case StateEstablished:
		return "established"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// HandshakeTimeout bounds how long a handshake may remain in progress before
// a session is considered dead and must be restarted.
const HandshakeTimeout = 10 * time.Second

// IdleTimeout is how long an established session may go without traffic
// before it is torn down, forcing a fresh handshake on next use.
const IdleTimeout = 15 * time.Minute

// ReorderBudget is the reorder allowance for out-of-order transport nonces.
// Nothing in this package reads it: Decrypt accepts any nonce the session's
// ReplayWindow accepts, i.e. any unseen nonce within DefaultReplayWindow of
// the highest nonce seen.
const ReorderBudget = 32

// Session is one peer's Noise state: either an in-progress handshake or an
// established pair of transport ciphers.
type Session struct {
	mu sync.Mutex

	peer  domain.PeerID
	role  Role
	state SessionState

	hs *HandshakeState

	send *CipherState
	recv *CipherState
	rw   *ReplayWindow

	startedAt time.Time
	touchedAt time.Time
}

// resolveRole decides which side initiates when both peers might attempt a
// handshake at once: the higher static public key, compared byte-lexically,
// initiates. Both sides learn the peer's static key from its Announce
// packet before either dials, so this is evaluated identically on both ends
// without further negotiation.
func resolveRole(ourStatic, theirStatic domain.X25519Public) Role {
	if bytes.Compare(ourStatic[:], theirStatic[:]) > 0 {
		return RoleInitiator
	}
	return RoleResponder
}

// newSession allocates a session in StateNone for peer, with role already
// resolved against their advertised static key.
func newSession(peer domain.PeerID, ourStatic, theirStatic domain.X25519Public) *Session {
	return &Session{
		peer: peer,
		role: resolveRole(ourStatic, theirStatic),
	}
}

// Role reports which side of the handshake this session plays.
func (s *Session) Role() Role { return s.role }

// State reports the session's current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Established reports whether the session can currently encrypt/decrypt
// transport messages.
func (s *Session) Established() bool { return s.State() == StateEstablished }

// Expired reports whether a handshake has overrun HandshakeTimeout, or an
// established session has gone silent past IdleTimeout, as of now.
func (s *Session) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired, _ := s.expiredReasonLocked(now)
	return expired
}

// expiredReasonLocked is Expired plus the reason a timed-out session died,
// as bcerr.ErrHandshakeTimeout for a stalled handshake or a plain
// "idle-timeout" string for an established session gone quiet. Callers
// must hold s.mu.
func (s *Session) expiredReasonLocked(now time.Time) (bool, string) {
	switch s.state {
	case StateHandshakeInProgress:
		if now.Sub(s.startedAt) > HandshakeTimeout {
			return true, bcerr.ErrHandshakeTimeout.Error()
		}
	case StateEstablished:
		if now.Sub(s.touchedAt) > IdleTimeout {
			return true, "idle-timeout"
		}
	}
	return false, ""
}

// Manager owns the set of live sessions, keyed by peer, and the local
// identity used to seed every handshake.
type Manager struct {
	mu sync.Mutex

	staticPriv domain.X25519Private
	staticPub  domain.X25519Public
	prologue   []byte

	sessions map[domain.PeerID]*Session
	now      func() time.Time
}

// NewManager creates a session manager for the local static identity.
// prologue should bind an application identifier and wire version so
// handshakes from a different protocol revision are rejected outright.
func NewManager(staticPriv domain.X25519Private, staticPub domain.X25519Public, prologue []byte) *Manager {
	return &Manager{
		staticPriv: staticPriv,
		staticPub:  staticPub,
		prologue:   append([]byte{}, prologue...),
		sessions:   make(map[domain.PeerID]*Session),
		now:        time.Now,
	}
}

// StartHandshake begins (or restarts) a handshake with peer, whose static
// key must already be known (learned from their Announce). It returns the
// first wire message to send when this side is the initiator, or nil when
// this side must wait for the peer to initiate.
func (m *Manager) StartHandshake(peer domain.PeerID, theirStatic domain.X25519Public) ([]byte, error) {
	m.mu.Lock()
	now := m.now()
	s := newSession(peer, m.staticPub, theirStatic)
	s.startedAt = now
	s.touchedAt = now
	s.state = StateHandshakeInProgress
	s.hs = NewHandshakeState(s.role, m.staticPriv, m.staticPub, m.prologue)
	m.sessions[peer] = s
	m.mu.Unlock()

	if s.role != RoleInitiator {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hs.WriteMessage(nil)
}

// HandleHandshakeMessage advances the session's handshake with an inbound
// wire message, creating a responder session on first contact if none
// exists yet. It returns the next message to send, if any, and whether the
// handshake just completed.
func (m *Manager) HandleHandshakeMessage(peer domain.PeerID, theirStatic domain.X25519Public, msg []byte) (reply []byte, established bool, err error) {
	m.mu.Lock()
	s, ok := m.sessions[peer]
	if !ok || s.state == StateDead {
		now := m.now()
		s = newSession(peer, m.staticPub, theirStatic)
		s.startedAt = now
		s.touchedAt = now
		s.state = StateHandshakeInProgress
		s.hs = NewHandshakeState(RoleResponder, m.staticPriv, m.staticPub, m.prologue)
		m.sessions[peer] = s
	}
	m.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateHandshakeInProgress {
		return nil, false, bcerr.WithPeer(peer.String(), bcerr.ErrHandshakeFailed)
	}

	if _, err := s.hs.ReadMessage(msg); err != nil {
		s.state = StateDead
		return nil, false, bcerr.WithPeer(peer.String(), bcerr.ErrHandshakeFailed)
	}
	s.touchedAt = m.now()

	if s.hs.Done() {
		s.send, s.recv = s.hs.Split()
		s.rw = NewReplayWindow(DefaultReplayWindow)
		s.state = StateEstablished
		s.hs = nil
		return nil, true, nil
	}

	reply, err = s.hs.WriteMessage(nil)
	if err != nil {
		s.state = StateDead
		return nil, false, err
	}
	if s.hs.Done() {
		s.send, s.recv = s.hs.Split()
		s.rw = NewReplayWindow(DefaultReplayWindow)
		s.state = StateEstablished
		s.hs = nil
		return reply, true, nil
	}
	return reply, false, nil
}

// Session returns the live session for peer, if any.
func (m *Manager) Session(peer domain.PeerID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[peer]
	return s, ok
}

// Encrypt seals a transport message for an established session.
func (m *Manager) Encrypt(peer domain.PeerID, aad, plaintext []byte) (nonce uint64, ciphertext []byte, err error) {
	s, ok := m.Session(peer)
	if !ok || !s.Established() {
		return 0, nil, bcerr.WithPeer(peer.String(), bcerr.ErrTransportUnavailable)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = m.now()
	return s.send.Encrypt(aad, plaintext)
}

// Decrypt opens a transport message for an established session, enforcing
// replay protection across the session's ReplayWindow.
func (m *Manager) Decrypt(peer domain.PeerID, nonce uint64, aad, ciphertext []byte) ([]byte, error) {
	s, ok := m.Session(peer)
	if !ok || !s.Established() {
		return nil, bcerr.WithPeer(peer.String(), bcerr.ErrTransportUnavailable)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rw.Accept(nonce); err != nil {
		return nil, bcerr.WithPeer(peer.String(), err)
	}
	pt, err := s.recv.DecryptAt(nonce, aad, ciphertext)
	if err != nil {
		return nil, bcerr.WithPeer(peer.String(), bcerr.ErrAuthenticationFailed)
	}
	s.touchedAt = m.now()
	return pt, nil
}

// Drop tears a session down, forcing a fresh handshake on next use. Used on
// explicit peer disconnect (Leave) and on handshake/decrypt failure paths
// that should not be silently retried with stale state.
func (m *Manager) Drop(peer domain.PeerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[peer]; ok {
		s.mu.Lock()
		s.state = StateDead
		s.mu.Unlock()
	}
}

// DropAll kills every live session and discards the session table outright,
// zeroing their cipher and handshake state. Used for a panic/emergency
// clear, where no SessionLost bookkeeping is wanted for individual peers.
func (m *Manager) DropAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.mu.Lock()
		s.state = StateDead
		if s.send != nil {
			memzero.Zero(s.send.key[:])
		}
		if s.recv != nil {
			memzero.Zero(s.recv.key[:])
		}
		if s.hs != nil {
			memzero.Zero(s.hs.staticPriv[:])
			memzero.Zero(s.hs.ephPriv[:])
			memzero.Zero(s.hs.sym.ck[:])
			memzero.Zero(s.hs.sym.k)
		}
		s.send = nil
		s.recv = nil
		s.hs = nil
		s.mu.Unlock()
	}
	m.sessions = make(map[domain.PeerID]*Session)
}

// SweptSession reports one session Sweep tore down and why, so callers can
// emit a SessionLost event with the specific timeout reason rather than a
// generic one.
type SweptSession struct {
	Peer   domain.PeerID
	Reason string
}

// Sweep tears down sessions that have exceeded their handshake or idle
// timeout, returning the peers affected. Callers invoke this periodically
// (the mesh loop's housekeeping tick).
func (m *Manager) Sweep(now time.Time) []SweptSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	var dead []SweptSession
	for peer, s := range m.sessions {
		s.mu.Lock()
		expired, reason := s.expiredReasonLocked(now)
		if expired {
			s.state = StateDead
		}
		s.mu.Unlock()
		if expired {
			dead = append(dead, SweptSession{Peer: peer, Reason: reason})
		}
	}
	return dead
}
