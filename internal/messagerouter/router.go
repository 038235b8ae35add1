package messagerouter

import (
	"context"
	"sync"
	"time"

	"bitchat/internal/bcerr"
	"bitchat/internal/domain"
	"bitchat/internal/timer"
)

// DefaultOutboxTTL bounds how long a queued private send or file transfer
// waits for a reachable transport before it is abandoned with Unreachable.
const DefaultOutboxTTL = 5 * time.Minute

// OutboxSweepInterval is how often queued outbox items are checked for
// expiry.
const OutboxSweepInterval = 30 * time.Second

// FavoriteWatcher is the subset of eventbus.Bus the router needs to learn
// when a peer's reachability bookkeeping changes.
type FavoriteWatcher interface {
	OnFavoriteStatusChanged(handler func(domain.FavoriteStatusChangedEvent)) (stop func())
}

// Config carries the router's tunables.
type Config struct {
	OutboxTTL time.Duration
}

type queuedKind int

const (
	queuedPrivateMessage queuedKind = iota
	queuedFileTransfer
)

type queuedItem struct {
	kind               queuedKind
	content            string
	recipientNickname  string
	messageID          string
	fileName, mimeType string
	fileContent        []byte
	deadline           time.Time
}

// Router is the Message Router: an ordered list of transports consulted
// by reachability, with a per-peer outbox for private sends and file
// transfers that find no reachable transport at send time.
type Router struct {
	cfg        Config
	transports    []domain.Transport
	favorites     domain.FavoritesStore
	fingerprintOf func(domain.PeerID) (domain.Fingerprint, bool)
	emitter       domain.EventEmitter
	clock         timer.Clock

	mu     sync.Mutex
	outbox map[domain.PeerID][]queuedItem

	unsubscribe func()

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Router over transports in priority order (mesh should
// come before relay). favorites and fingerprintOf may be nil, in which
// case blocked-peer suppression is skipped. watcher may be nil, in which
// case the outbox is only ever flushed by expiry, never by a favorite
// change. clock defaults to timer.SystemClock{} when nil.
func New(
	cfg Config,
	transports []domain.Transport,
	favorites domain.FavoritesStore,
	fingerprintOf func(domain.PeerID) (domain.Fingerprint, bool),
	emitter domain.EventEmitter,
	watcher FavoriteWatcher,
	clock timer.Clock,
) *Router {
	if cfg.OutboxTTL <= 0 {
		cfg.OutboxTTL = DefaultOutboxTTL
	}
	if clock == nil {
		clock = timer.SystemClock{}
	}
	r := &Router{
		cfg:           cfg,
		transports:    transports,
		favorites:     favorites,
		fingerprintOf: fingerprintOf,
		emitter:       emitter,
		clock:         clock,
		outbox:        make(map[domain.PeerID][]queuedItem),
	}
	if watcher != nil {
		r.unsubscribe = watcher.OnFavoriteStatusChanged(func(evt domain.FavoriteStatusChangedEvent) {
			r.FlushOutbox(evt.Peer)
		})
	}
	return r
}

// Start begins the outbox expiry sweep. Idempotent.
func (r *Router) Start(ctx context.Context) {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.mu.Unlock()

	go r.run(loopCtx)
}

// Stop halts the expiry sweep and waits for it to exit.
func (r *Router) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Close stops the sweep and unsubscribes from the favorite watcher.
// Idempotent.
func (r *Router) Close() {
	r.Stop()
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

func (r *Router) run(ctx context.Context) {
	defer close(r.done)
	ticker := r.clock.NewTicker(OutboxSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			r.expire()
		}
	}
}

// SendPublicMessage always routes to the mesh transport; public messages
// are never queued and never fall back to relay.
func (r *Router) SendPublicMessage(content string, messageID string) error {
	for _, t := range r.transports {
		if t.Name() == "mesh" {
			return t.SendPublicMessage(content, messageID)
		}
	}
	return bcerr.ErrTransportUnavailable
}

// SendPrivateMessage dispatches through the first reachable transport, or
// queues the send for to if none is currently reachable.
func (r *Router) SendPrivateMessage(ctx context.Context, content string, to domain.PeerID, recipientNickname string, messageID string) error {
	if r.blocked(to) {
		return bcerr.ErrBlocked
	}
	if t, ok := r.reachable(to); ok {
		return t.SendPrivateMessage(ctx, content, to, recipientNickname, messageID)
	}
	r.enqueue(to, queuedItem{
		kind:              queuedPrivateMessage,
		content:           content,
		recipientNickname: recipientNickname,
		messageID:         messageID,
		deadline:          r.clock.Now().Add(r.cfg.OutboxTTL),
	})
	return nil
}

// SendFileTransfer dispatches through the first reachable transport, or
// queues the transfer for to if none is currently reachable.
func (r *Router) SendFileTransfer(ctx context.Context, name, mime string, content []byte, to *domain.PeerID) error {
	if to == nil {
		return bcerr.ErrRecipientRequired
	}
	if r.blocked(*to) {
		return bcerr.ErrBlocked
	}
	if t, ok := r.reachable(*to); ok {
		return t.SendFileTransfer(ctx, name, mime, content, to)
	}
	r.enqueue(*to, queuedItem{
		kind:        queuedFileTransfer,
		fileName:    name,
		mimeType:    mime,
		fileContent: content,
		deadline:    r.clock.Now().Add(r.cfg.OutboxTTL),
	})
	return nil
}

// SendReadReceipt is best-effort: it dispatches through the first
// reachable transport and is never queued.
func (r *Router) SendReadReceipt(receipt domain.ReadReceipt, to domain.PeerID) error {
	t, ok := r.reachable(to)
	if !ok {
		return bcerr.ErrUnreachable
	}
	return t.SendReadReceipt(receipt, to)
}

// SendDeliveryAck is best-effort: it dispatches through the first
// reachable transport and is never queued.
func (r *Router) SendDeliveryAck(messageID string, to domain.PeerID) error {
	t, ok := r.reachable(to)
	if !ok {
		return bcerr.ErrUnreachable
	}
	return t.SendDeliveryAck(messageID, to)
}

// SendFavoriteNotification is best-effort: it dispatches through the
// first reachable transport and is never queued.
func (r *Router) SendFavoriteNotification(to domain.PeerID, isFavorite bool) error {
	t, ok := r.reachable(to)
	if !ok {
		return bcerr.ErrUnreachable
	}
	return t.SendFavoriteNotification(to, isFavorite)
}

// FlushOutbox retries every queued item for peer: items that find a
// reachable transport are dispatched and dropped from the queue; items
// that still cannot route, or that fail to send, remain queued.
func (r *Router) FlushOutbox(peer domain.PeerID) {
	r.mu.Lock()
	items := r.outbox[peer]
	delete(r.outbox, peer)
	r.mu.Unlock()

	if len(items) == 0 {
		return
	}

	t, ok := r.reachable(peer)
	if !ok {
		r.requeue(peer, items)
		return
	}

	var remaining []queuedItem
	for _, it := range items {
		if err := r.dispatchQueued(t, peer, it); err != nil {
			remaining = append(remaining, it)
		}
	}
	if len(remaining) > 0 {
		r.requeue(peer, remaining)
	}
}

func (r *Router) dispatchQueued(t domain.Transport, peer domain.PeerID, it queuedItem) error {
	switch it.kind {
	case queuedFileTransfer:
		return t.SendFileTransfer(context.Background(), it.fileName, it.mimeType, it.fileContent, &peer)
	default:
		return t.SendPrivateMessage(context.Background(), it.content, peer, it.recipientNickname, it.messageID)
	}
}

func (r *Router) enqueue(peer domain.PeerID, item queuedItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outbox[peer] = append(r.outbox[peer], item)
}

// requeue puts items back at the head of peer's outbox, ahead of any
// newly queued items that arrived while the flush was in flight.
func (r *Router) requeue(peer domain.PeerID, items []queuedItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outbox[peer] = append(append([]queuedItem(nil), items...), r.outbox[peer]...)
}

func (r *Router) reachable(peer domain.PeerID) (domain.Transport, bool) {
	for _, t := range r.transports {
		if t.IsPeerReachable(peer) {
			return t, true
		}
	}
	return nil, false
}

func (r *Router) blocked(peer domain.PeerID) bool {
	if r.favorites == nil || r.fingerprintOf == nil {
		return false
	}
	fp, ok := r.fingerprintOf(peer)
	if !ok {
		return false
	}
	return r.favorites.IsBlocked(fp)
}

func (r *Router) expire() {
	now := r.clock.Now()
	type expired struct {
		peer      domain.PeerID
		messageID string
	}
	var fired []expired

	r.mu.Lock()
	for peer, items := range r.outbox {
		kept := items[:0:0]
		for _, it := range items {
			if now.After(it.deadline) {
				fired = append(fired, expired{peer: peer, messageID: it.messageID})
				continue
			}
			kept = append(kept, it)
		}
		if len(kept) == 0 {
			delete(r.outbox, peer)
		} else {
			r.outbox[peer] = kept
		}
	}
	r.mu.Unlock()

	if r.emitter == nil {
		return
	}
	for _, e := range fired {
		r.emitter.Emit(domain.Event{At: now, Unreachable: &domain.UnreachableEvent{Peer: e.peer, MessageID: e.messageID}})
	}
}

// OutboxLen reports how many items are currently queued for peer, mostly
// useful for tests.
func (r *Router) OutboxLen(peer domain.PeerID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outbox[peer])
}
