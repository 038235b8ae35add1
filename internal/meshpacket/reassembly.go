package meshpacket

import (
	"sync"
	"time"

	"bitchat/internal/domain"
)

// DefaultReassemblyTimeout is how long a reassembly buffer may sit
// incomplete before it is reaped.
const DefaultReassemblyTimeout = 30 * time.Second

type reassemblyKey struct {
	sender     domain.PeerID
	fragmentID [8]byte
}

type reassemblyBuffer struct {
	total     uint16
	innerType domain.MessageType
	received  map[uint16]bool
	chunks    [][]byte
	firstSeen time.Time
}

// Reassembler collects Fragment packets sharing (senderID, fragmentID) and
// emits the original packet once every index has arrived. Out-of-order and
// duplicate fragments are handled transparently; a fragment whose index is
// out of range, or whose total or inner type disagrees with a prior
// fragment in the same group, poisons only that group. A fragment whose
// header cannot be parsed is rejected without touching any group.
type Reassembler struct {
	mu      sync.Mutex
	pending map[reassemblyKey]*reassemblyBuffer
	timeout time.Duration
	now     func() time.Time
}

// NewReassembler creates a Reassembler with DefaultReassemblyTimeout.
func NewReassembler() *Reassembler {
	return &Reassembler{
		pending: make(map[reassemblyKey]*reassemblyBuffer),
		timeout: DefaultReassemblyTimeout,
		now:     time.Now,
	}
}

// HandleFragment ingests one Fragment packet's payload. It returns the
// reassembled Packet once complete, or (zero-value, false, nil) while more
// fragments are still expected. A header that cannot be parsed is reported
// as an error and changes nothing. A header with an out-of-range index, or
// whose (total, innerType) conflicts with the rest of its group, drops the
// whole group and is reported as an error; other groups are unaffected.
func (r *Reassembler) HandleFragment(sender domain.PeerID, payload []byte) (domain.Packet, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reapLocked()

	header, err := DecodeFragmentHeader(payload)
	if err != nil {
		return domain.Packet{}, false, err
	}

	key := reassemblyKey{sender: sender, fragmentID: header.FragmentID}

	if header.Total == 0 || header.Index >= header.Total {
		delete(r.pending, key)
		return domain.Packet{}, false, ErrTruncatedHeader
	}

	buf, ok := r.pending[key]
	if !ok {
		buf = &reassemblyBuffer{
			total:     header.Total,
			innerType: header.InnerType,
			received:  make(map[uint16]bool, header.Total),
			chunks:    make([][]byte, header.Total),
			firstSeen: r.now(),
		}
		r.pending[key] = buf
	} else if buf.total != header.Total || buf.innerType != header.InnerType {
		delete(r.pending, key)
		return domain.Packet{}, false, ErrTruncatedHeader
	}

	if buf.received[header.Index] {
		return domain.Packet{}, false, nil // duplicate, ignored
	}
	buf.received[header.Index] = true
	buf.chunks[header.Index] = header.Chunk

	if len(buf.received) != int(buf.total) {
		return domain.Packet{}, false, nil
	}

	delete(r.pending, key)
	full := make([]byte, 0)
	for _, c := range buf.chunks {
		full = append(full, c...)
	}
	packet, err := Decode(full)
	if err != nil {
		return domain.Packet{}, false, err
	}
	return packet, true, nil
}

// Reap discards groups older than the reassembly timeout. Callers also get
// this for free on every HandleFragment call; an explicit periodic tick
// bounds memory even when no new fragments arrive for a stalled group.
func (r *Reassembler) Reap() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reapLocked()
}

func (r *Reassembler) reapLocked() {
	now := r.now()
	for key, buf := range r.pending {
		if now.Sub(buf.firstSeen) > r.timeout {
			delete(r.pending, key)
		}
	}
}

// Pending returns the number of in-progress reassembly groups, for tests
// and diagnostics.
func (r *Reassembler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
