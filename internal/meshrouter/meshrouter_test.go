package meshrouter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bitchat/internal/domain"
	"bitchat/internal/meshrouter"
)

func peerID(b byte) domain.PeerID {
	var p domain.PeerID
	p[0] = b
	return p
}

func TestDedupIndex_SameKeyOnlySeenOnceWithinWindow(t *testing.T) {
	idx := meshrouter.NewDedupIndex(16, time.Minute)
	p := domain.Packet{SenderID: peerID(1), Timestamp: 100, Payload: []byte("hello")}
	key := meshrouter.DedupKey(p)

	require.False(t, idx.Seen(key))
	require.True(t, idx.Seen(key))
	require.True(t, idx.Seen(key))
}

func TestDedupIndex_DifferentPayloadPrefixDifferentKey(t *testing.T) {
	a := domain.Packet{SenderID: peerID(1), Timestamp: 100, Payload: []byte("hello")}
	b := domain.Packet{SenderID: peerID(1), Timestamp: 100, Payload: []byte("world")}
	require.NotEqual(t, meshrouter.DedupKey(a), meshrouter.DedupKey(b))
}

func TestDedupIndex_CapacityEvictsOldest(t *testing.T) {
	idx := meshrouter.NewDedupIndex(4, time.Hour)
	var keys [][32]byte
	for i := byte(0); i < 6; i++ {
		p := domain.Packet{SenderID: peerID(i), Timestamp: 1, Payload: []byte{i}}
		key := meshrouter.DedupKey(p)
		keys = append(keys, key)
		idx.Seen(key)
	}
	require.Equal(t, 4, idx.Len())
	// The earliest two should have been evicted, so they're reported unseen again.
	require.False(t, idx.Seen(keys[0]))
}

func TestRouter_DropsLoopback(t *testing.T) {
	self := peerID(1)
	r := meshrouter.NewRouter(self, nil)
	p := domain.Packet{SenderID: self, TTL: 5, Timestamp: 1}
	d := r.Route(p)
	require.True(t, d.Dropped)
}

func TestRouter_DropsDuplicate(t *testing.T) {
	self := peerID(1)
	r := meshrouter.NewRouter(self, nil)
	p := domain.Packet{SenderID: peerID(2), TTL: 5, Timestamp: 1, Payload: []byte("x")}

	d1 := r.Route(p)
	require.False(t, d1.Dropped)

	d2 := r.Route(p)
	require.True(t, d2.Dropped)
}

// TestRouter_TTLMonotonicity checks that forwarded packets always carry
// ttl-1, and packets with incoming ttl <= 1 are never forwarded.
func TestRouter_TTLMonotonicity(t *testing.T) {
	self := peerID(1)

	for ttl := byte(0); ttl < 10; ttl++ {
		r := meshrouter.NewRouter(self, nil)
		p := domain.Packet{SenderID: peerID(2), TTL: ttl, Timestamp: uint64(ttl) + 1, Payload: []byte{ttl}}
		d := r.Route(p)
		require.False(t, d.Dropped)
		if ttl <= 1 {
			require.False(t, d.Forward, "ttl=%d should not forward", ttl)
			continue
		}
		require.True(t, d.Forward, "ttl=%d should forward", ttl)
		require.Equal(t, ttl-1, d.Forwarded.TTL)
	}
}

func TestRouter_BroadcastDeliversAndForwards(t *testing.T) {
	self := peerID(1)
	r := meshrouter.NewRouter(self, nil)
	p := domain.Packet{SenderID: peerID(2), TTL: 5, Timestamp: 1, Payload: []byte("broadcast")}
	d := r.Route(p)
	require.True(t, d.DeliverLocally)
	require.True(t, d.Forward)
}

func TestRouter_DirectedToSelfOnlyDoesNotForward(t *testing.T) {
	self := peerID(1)
	r := meshrouter.NewRouter(self, nil)
	p := domain.Packet{
		SenderID: peerID(2), RecipientID: self, HasRecipient: true,
		TTL: 5, Timestamp: 1, Payload: []byte("for-me"),
	}
	d := r.Route(p)
	require.True(t, d.DeliverLocally)
	require.False(t, d.Forward)
}

func TestRouter_BlockedSenderIsDropped(t *testing.T) {
	self := peerID(1)
	blocked := peerID(2)
	r := meshrouter.NewRouter(self, nil)
	r.SetBlockedCheck(func(peer domain.PeerID) bool { return peer == blocked })

	p := domain.Packet{SenderID: blocked, TTL: 5, Timestamp: 1, Payload: []byte("broadcast")}
	d := r.Route(p)
	require.True(t, d.Dropped)
	require.False(t, d.DeliverLocally)
	require.False(t, d.Forward)
}

func TestRouter_BlockedCheckDoesNotAffectOtherSenders(t *testing.T) {
	self := peerID(1)
	blocked := peerID(2)
	other := peerID(3)
	r := meshrouter.NewRouter(self, nil)
	r.SetBlockedCheck(func(peer domain.PeerID) bool { return peer == blocked })

	p := domain.Packet{SenderID: other, TTL: 5, Timestamp: 1, Payload: []byte("broadcast")}
	d := r.Route(p)
	require.False(t, d.Dropped)
	require.True(t, d.DeliverLocally)
}

func TestRouter_DirectedToOtherForwardsOnly(t *testing.T) {
	self := peerID(1)
	other := peerID(3)
	r := meshrouter.NewRouter(self, nil)
	p := domain.Packet{
		SenderID: peerID(2), RecipientID: other, HasRecipient: true,
		TTL: 5, Timestamp: 1, Payload: []byte("not-for-me"),
	}
	d := r.Route(p)
	require.False(t, d.DeliverLocally)
	require.True(t, d.Forward)
}
