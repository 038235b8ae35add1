package meshrouter

import (
	"container/list"
	"crypto/sha256"
	"sync"
	"time"

	"bitchat/internal/domain"
)

// DefaultDedupCapacity bounds the number of entries the dedup index holds
// regardless of how fresh they are.
const DefaultDedupCapacity = 4096

// DefaultDedupWindow is how long a dedup key is considered a duplicate
// once seen.
const DefaultDedupWindow = 60 * time.Second

// dedupPrefixLen is how many leading payload bytes feed the dedup hash,
// enough to make accidental collisions between distinct messages
// vanishingly unlikely while staying cheap to hash per forwarded packet.
const dedupPrefixLen = 16

// DedupKey computes the packet identity used for duplicate suppression:
// hash(senderID || timestamp || first 16 bytes of payload).
func DedupKey(p domain.Packet) [32]byte {
	h := sha256.New()
	h.Write(p.SenderID.Slice())

	var tsBuf [8]byte
	ts := p.Timestamp
	for i := 7; i >= 0; i-- {
		tsBuf[i] = byte(ts)
		ts >>= 8
	}
	h.Write(tsBuf[:])

	n := len(p.Payload)
	if n > dedupPrefixLen {
		n = dedupPrefixLen
	}
	h.Write(p.Payload[:n])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

type dedupEntry struct {
	key  [32]byte
	seen time.Time
}

// DedupIndex is a capacity-bounded, time-windowed set of recently seen
// dedup keys. Entries older than the window are treated as absent even if
// still resident; eviction by capacity removes the least recently
// inserted entry.
type DedupIndex struct {
	mu       sync.Mutex
	capacity int
	window   time.Duration
	order    *list.List // front = oldest
	index    map[[32]byte]*list.Element
	now      func() time.Time
}

// NewDedupIndex creates an index with the given capacity and freshness
// window. capacity <= 0 uses DefaultDedupCapacity; window <= 0 uses
// DefaultDedupWindow.
func NewDedupIndex(capacity int, window time.Duration) *DedupIndex {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &DedupIndex{
		capacity: capacity,
		window:   window,
		order:    list.New(),
		index:    make(map[[32]byte]*list.Element),
		now:      time.Now,
	}
}

// Seen reports whether key was already recorded within the freshness
// window, and records it if not. Stale entries (outside the window) are
// treated as new and their timestamp refreshed.
func (d *DedupIndex) Seen(key [32]byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if el, ok := d.index[key]; ok {
		entry := el.Value.(*dedupEntry)
		if now.Sub(entry.seen) < d.window {
			return true
		}
		entry.seen = now
		d.order.MoveToBack(el)
		return false
	}

	el := d.order.PushBack(&dedupEntry{key: key, seen: now})
	d.index[key] = el

	for d.order.Len() > d.capacity {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.index, oldest.Value.(*dedupEntry).key)
	}
	return false
}

// Len returns the number of entries currently resident (including any
// that have fallen outside the freshness window but not yet evicted).
func (d *DedupIndex) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
