package pendingfile

import (
	"container/list"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bitchat/internal/bcerr"
	"bitchat/internal/domain"
	"bitchat/internal/timer"
)

// DefaultMaxPendingCount bounds how many inbound transfers may wait for a
// decision at once.
const DefaultMaxPendingCount = 10

// DefaultMaxTotalBytes bounds the combined size of every queued transfer.
const DefaultMaxTotalBytes = 5 * 1024 * 1024

// DefaultExpirationSeconds is how long a transfer may sit undecided before
// it is expired and removed.
const DefaultExpirationSeconds = 300

// ExpirySweepInterval is how often the expiry tick runs.
const ExpirySweepInterval = 30 * time.Second

// Config carries the manager's admission tunables.
type Config struct {
	MaxPendingCount   int
	MaxTotalBytes     int
	ExpirationSeconds int
}

// SaveHandler persists an accepted transfer's content and returns where it
// was written.
type SaveHandler func(domain.PendingFileTransfer) (string, error)

// Manager is the Pending File Manager: a bounded, FIFO-evicting,
// time-expiring queue of inbound file transfers awaiting accept/decline.
type Manager struct {
	cfg   Config
	clock timer.Clock
	sink  domain.PendingFileSink

	mu         sync.Mutex
	order      *list.List // front = oldest
	index      map[string]*list.Element
	totalBytes int

	cancel context.CancelFunc
	done   chan struct{}
}

type entry struct {
	transfer domain.PendingFileTransfer
}

// New builds a Manager. Zero-value Config fields fall back to their
// defaults. clock defaults to timer.SystemClock{} when nil.
func New(cfg Config, clock timer.Clock, sink domain.PendingFileSink) *Manager {
	if cfg.MaxPendingCount <= 0 {
		cfg.MaxPendingCount = DefaultMaxPendingCount
	}
	if cfg.MaxTotalBytes <= 0 {
		cfg.MaxTotalBytes = DefaultMaxTotalBytes
	}
	if cfg.ExpirationSeconds <= 0 {
		cfg.ExpirationSeconds = DefaultExpirationSeconds
	}
	if clock == nil {
		clock = timer.SystemClock{}
	}
	return &Manager{
		cfg:   cfg,
		clock: clock,
		sink:  sink,
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

// Start begins the 30-second expiry sweep. Idempotent.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.run(loopCtx)
}

// Stop halts the expiry sweep and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	ticker := m.clock.NewTicker(ExpirySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			m.expire()
		}
	}
}

// Add admits a new inbound transfer, evicting oldest entries as needed to
// make room. It returns bcerr.ErrQuotaExceeded if the transfer cannot fit
// even after evicting every other queued entry.
func (m *Manager) Add(sender domain.PeerID, nickname, fileName, mime string, content []byte, isPrivate bool) (domain.PendingFileTransfer, error) {
	m.mu.Lock()

	var evicted []string
	if m.order.Len() >= m.cfg.MaxPendingCount {
		if id := m.evictOldest(); id != "" {
			evicted = append(evicted, id)
		}
	}
	for m.totalBytes+len(content) > m.cfg.MaxTotalBytes && m.order.Len() > 0 {
		if id := m.evictOldest(); id != "" {
			evicted = append(evicted, id)
		}
	}
	if m.totalBytes+len(content) > m.cfg.MaxTotalBytes {
		m.mu.Unlock()
		m.notifyRemoved(evicted, "evicted")
		return domain.PendingFileTransfer{}, bcerr.ErrQuotaExceeded
	}

	transfer := domain.PendingFileTransfer{
		ID:             uuid.NewString(),
		SenderPeerID:   sender,
		SenderNickname: nickname,
		FileName:       fileName,
		MimeType:       mime,
		Content:        content,
		Timestamp:      m.clock.Now(),
		IsPrivate:      isPrivate,
	}
	el := m.order.PushBack(&entry{transfer: transfer})
	m.index[transfer.ID] = el
	m.totalBytes += len(content)
	m.mu.Unlock()

	m.notifyRemoved(evicted, "evicted")
	if m.sink != nil {
		m.sink.OnPendingFileAdded(transfer)
	}
	return transfer, nil
}

func (m *Manager) notifyRemoved(ids []string, reason string) {
	if m.sink == nil {
		return
	}
	for _, id := range ids {
		m.sink.OnPendingFileRemoved(id, reason)
	}
}

// Get returns the transfer with the given id, if still queued.
func (m *Manager) Get(id string) (domain.PendingFileTransfer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.index[id]
	if !ok {
		return domain.PendingFileTransfer{}, false
	}
	return el.Value.(*entry).transfer, true
}

// All returns every queued transfer, sorted by timestamp descending.
func (m *Manager) All() []domain.PendingFileTransfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.PendingFileTransfer, 0, m.order.Len())
	for el := m.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry).transfer)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Accept removes the transfer from the queue, then calls save to persist
// it, returning the path save reports. The removal happens before save is
// invoked so a slow or failing save handler never leaves the transfer
// double-counted against the queue's bounds.
func (m *Manager) Accept(id string, save SaveHandler) (string, error) {
	transfer, ok := m.remove(id, "accepted")
	if !ok {
		return "", bcerr.ErrNotFound
	}
	return save(transfer)
}

// Decline removes the transfer from the queue without persisting it.
func (m *Manager) Decline(id string) error {
	if _, ok := m.remove(id, "declined"); !ok {
		return bcerr.ErrNotFound
	}
	return nil
}

// ClearAll empties the queue without emitting per-id removal events; used
// by panic-clear, which wipes everything synchronously.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = list.New()
	m.index = make(map[string]*list.Element)
	m.totalBytes = 0
}

// Stats reports the current queue depth and combined byte size.
func (m *Manager) Stats() (count int, totalBytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len(), m.totalBytes
}

func (m *Manager) remove(id string, reason string) (domain.PendingFileTransfer, bool) {
	m.mu.Lock()
	el, ok := m.index[id]
	if !ok {
		m.mu.Unlock()
		return domain.PendingFileTransfer{}, false
	}
	transfer := el.Value.(*entry).transfer
	m.order.Remove(el)
	delete(m.index, id)
	m.totalBytes -= len(transfer.Content)
	m.mu.Unlock()

	if m.sink != nil {
		m.sink.OnPendingFileRemoved(id, reason)
	}
	return transfer, true
}

// evictOldest drops the front (oldest) entry and returns its id, or "" if
// the queue was already empty. Caller holds m.mu; the sink is notified
// after the caller releases it.
func (m *Manager) evictOldest() string {
	el := m.order.Front()
	if el == nil {
		return ""
	}
	transfer := el.Value.(*entry).transfer
	m.order.Remove(el)
	delete(m.index, transfer.ID)
	m.totalBytes -= len(transfer.Content)
	return transfer.ID
}

// expire removes every entry older than ExpirationSeconds.
func (m *Manager) expire() {
	cutoff := m.clock.Now().Add(-time.Duration(m.cfg.ExpirationSeconds) * time.Second)

	m.mu.Lock()
	var expired []string
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		transfer := el.Value.(*entry).transfer
		if transfer.Timestamp.Before(cutoff) {
			m.order.Remove(el)
			delete(m.index, transfer.ID)
			m.totalBytes -= len(transfer.Content)
			expired = append(expired, transfer.ID)
		}
		el = next
	}
	m.mu.Unlock()

	m.notifyRemoved(expired, "expired")
}
