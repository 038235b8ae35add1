package blelink

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AnnounceInterval is how often a connected link re-sends its Announce
// heartbeat.
const AnnounceInterval = 10 * time.Second

// Initial and maximum delay for the connection-supervision backoff applied
// between reconnect attempts to a peer that dropped off.
const (
	minBackoff = 1 * time.Second
	maxBackoff = 30 * time.Second
	jitterFrac = 0.20
)

// peerLink tracks one connected link plus the errgroup-supervised read-pump
// and heartbeat goroutines serving it.
type peerLink struct {
	link Link
	role Role
	grp  *errgroup.Group
	stop context.CancelFunc
}

// Manager owns every connected Link for one local node: it runs each link's
// read pump, fans inbound frames out to onFrame, and emits periodic
// Announce heartbeats. It computes reconnect delays (NextBackoff) but does
// not itself reconnect a link that has dropped.
type Manager struct {
	mu    sync.Mutex
	links map[string]*peerLink // keyed by RemoteAddr

	onFrame  func(remoteAddr string, frame []byte)
	announce func() []byte // builds a fresh Announce frame on demand

	rng *rand.Rand
}

// NewManager creates a link manager. onFrame is called (from an internal
// goroutine, one at a time per link) for every inbound frame. announce
// builds the Announce payload to send on link-up and on each heartbeat tick.
func NewManager(onFrame func(remoteAddr string, frame []byte), announce func() []byte) *Manager {
	return &Manager{
		links:    make(map[string]*peerLink),
		onFrame:  onFrame,
		announce: announce,
		rng:      rand.New(rand.NewSource(1)),
	}
}

// AddLink registers a freshly connected link, starts its read pump and
// heartbeat, and sends the initial Announce.
func (m *Manager) AddLink(ctx context.Context, link Link, role Role) {
	ctx, cancel := context.WithCancel(ctx)
	grp, grpCtx := errgroup.WithContext(ctx)

	pl := &peerLink{link: link, role: role, grp: grp, stop: cancel}

	m.mu.Lock()
	m.links[link.RemoteAddr()] = pl
	m.mu.Unlock()

	grp.Go(func() error {
		m.readPump(grpCtx, link)
		return nil
	})
	grp.Go(func() error {
		m.heartbeat(grpCtx, link)
		return nil
	})

	if m.announce != nil {
		_ = link.Write(ctx, m.announce())
	}
}

// RemoveLink tears a link down and stops its workers. It does not itself
// attempt reconnection; a new Link for the same address is registered with
// AddLink.
func (m *Manager) RemoveLink(remoteAddr string) {
	m.mu.Lock()
	pl, ok := m.links[remoteAddr]
	delete(m.links, remoteAddr)
	m.mu.Unlock()
	if !ok {
		return
	}
	pl.stop()
	_ = pl.link.Close()
	_ = pl.grp.Wait()
}

// Send writes frame to the link for remoteAddr. It reports whether a link
// for that address exists; write failures (e.g. ErrQueueFull) are returned
// as the error.
func (m *Manager) Send(ctx context.Context, remoteAddr string, frame []byte) (bool, error) {
	m.mu.Lock()
	pl, ok := m.links[remoteAddr]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, pl.link.Write(ctx, frame)
}

// Connected reports whether a link is currently up for remoteAddr.
func (m *Manager) Connected(remoteAddr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.links[remoteAddr]
	return ok
}

// Peers lists the remote addresses of every currently connected link.
func (m *Manager) Peers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.links))
	for addr := range m.links {
		out = append(out, addr)
	}
	return out
}

func (m *Manager) readPump(ctx context.Context, link Link) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-link.Frames():
			if !ok {
				return
			}
			if m.onFrame != nil {
				m.onFrame(link.RemoteAddr(), frame)
			}
		}
	}
}

func (m *Manager) heartbeat(ctx context.Context, link Link) {
	ticker := time.NewTicker(AnnounceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.announce == nil {
				continue
			}
			_ = link.Write(ctx, m.announce())
		}
	}
}

// NextBackoff returns the delay before the next reconnect attempt given the
// number of consecutive failures so far (0 for the first attempt),
// exponential from minBackoff to maxBackoff with +/-20% jitter.
func (m *Manager) NextBackoff(attempt int) time.Duration {
	base := minBackoff << uint(attempt)
	if base > maxBackoff || base <= 0 {
		base = maxBackoff
	}
	jitter := float64(base) * jitterFrac * (2*m.rng.Float64() - 1)
	d := time.Duration(float64(base) + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// Close tears down every connected link and stops its workers.
func (m *Manager) Close() error {
	m.mu.Lock()
	addrs := make([]string, 0, len(m.links))
	for addr := range m.links {
		addrs = append(addrs, addr)
	}
	m.mu.Unlock()

	for _, addr := range addrs {
		m.RemoveLink(addr)
	}
	return nil
}
