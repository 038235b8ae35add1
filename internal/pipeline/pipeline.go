package pipeline

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bitchat/internal/domain"
	"bitchat/internal/timer"
)

// DefaultBatchWindow is how long the pipeline collects inbound public
// messages before sorting, deduplicating, and flushing them.
const DefaultBatchWindow = 100 * time.Millisecond

// DefaultDedupWindow is how long a normalized content key is considered a
// duplicate once seen, measured against the messages' own timestamps (not
// wall-clock arrival time).
const DefaultDedupWindow = 30 * time.Second

// Config carries the pipeline's tunables.
type Config struct {
	BatchWindow time.Duration
	DedupWindow time.Duration
}

type dedupEntry struct {
	contentKey string
	seen       time.Time
}

// Pipeline batches inbound public messages, sorts each flush by timestamp
// then messageID, drops near-duplicates by normalized content, and
// delivers the survivors to a domain.PipelineSink in order.
type Pipeline struct {
	cfg   Config
	clock timer.Clock
	sink  domain.PipelineSink

	mu      sync.Mutex
	pending []domain.PublicMessage
	dedup   map[string]time.Time
	horizon time.Time // latest message timestamp seen across flushes

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Pipeline. Zero-value Config fields fall back to their
// defaults. clock defaults to timer.SystemClock{} when nil.
func New(cfg Config, clock timer.Clock, sink domain.PipelineSink) *Pipeline {
	if cfg.BatchWindow <= 0 {
		cfg.BatchWindow = DefaultBatchWindow
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = DefaultDedupWindow
	}
	if clock == nil {
		clock = timer.SystemClock{}
	}
	return &Pipeline{
		cfg:   cfg,
		clock: clock,
		sink:  sink,
		dedup: make(map[string]time.Time),
	}
}

// Enqueue adds msg to the current batch. Safe to call from any goroutine,
// including concurrently with a flush.
func (p *Pipeline) Enqueue(msg domain.PublicMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, msg)
}

// Start begins the batch-flush loop. Idempotent; a second call while
// already running is a no-op.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	// The ticker exists before Start returns, so a clock advanced right
	// after Start already counts toward the first flush.
	ticker := p.clock.NewTicker(p.cfg.BatchWindow)
	go p.run(loopCtx, ticker)
}

// Stop halts the flush loop and waits for it to exit. It does not flush:
// messages enqueued since the last flush stay pending until the next Flush.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Pipeline) run(ctx context.Context, ticker timer.Ticker) {
	defer close(p.done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			p.Flush()
		}
	}
}

// Flush sorts, deduplicates, and delivers the current batch, then clears
// it. Exposed directly so callers (and tests) can force a flush without
// waiting on the ticker.
func (p *Pipeline) Flush() {
	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	sort.SliceStable(batch, func(i, j int) bool {
		if !batch[i].Timestamp.Equal(batch[j].Timestamp) {
			return batch[i].Timestamp.Before(batch[j].Timestamp)
		}
		return batch[i].ID < batch[j].ID
	})

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, msg := range batch {
		if msg.Timestamp.After(p.horizon) {
			p.horizon = msg.Timestamp
		}
		key := normalize(msg.Content)
		if seen, ok := p.dedup[key]; ok {
			if absDuration(msg.Timestamp.Sub(seen)) < p.cfg.DedupWindow {
				continue
			}
		}
		p.dedup[key] = msg.Timestamp
		if p.sink != nil {
			p.sink.DeliverPublicMessage(msg)
		}
	}
	p.pruneDedup()
}

// pruneDedup drops entries older than the dedup window relative to the
// newest message timestamp seen so far, bounding the index's growth
// without conflating a message's logical timestamp with wall-clock time.
func (p *Pipeline) pruneDedup() {
	if p.horizon.IsZero() {
		return
	}
	cutoff := p.horizon.Add(-p.cfg.DedupWindow)
	for key, seen := range p.dedup {
		if seen.Before(cutoff) {
			delete(p.dedup, key)
		}
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// normalize computes the dedup content key: lowercase, trimmed, with
// internal whitespace collapsed to single spaces.
func normalize(content string) string {
	return strings.Join(strings.Fields(strings.ToLower(content)), " ")
}
