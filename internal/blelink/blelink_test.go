package blelink_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bitchat/internal/blelink"
)

func TestSimLinkPair_WriteDeliversToPeer(t *testing.T) {
	central, peripheral := blelink.NewSimLinkPair("central-addr", "peripheral-addr")
	defer central.Close()
	defer peripheral.Close()

	require.Equal(t, "peripheral-addr", central.RemoteAddr())
	require.Equal(t, "central-addr", peripheral.RemoteAddr())

	ctx := context.Background()
	require.NoError(t, central.Write(ctx, []byte("hello")))

	select {
	case frame := <-peripheral.Frames():
		require.Equal(t, []byte("hello"), frame)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestSimLinkPair_Bidirectional(t *testing.T) {
	central, peripheral := blelink.NewSimLinkPair("a", "b")
	defer central.Close()
	defer peripheral.Close()

	ctx := context.Background()
	require.NoError(t, central.Write(ctx, []byte("ping")))
	require.NoError(t, peripheral.Write(ctx, []byte("pong")))

	require.Equal(t, []byte("ping"), <-peripheral.Frames())
	require.Equal(t, []byte("pong"), <-central.Frames())
}

func TestManager_AddLinkSendsAnnounceAndRoutesFrames(t *testing.T) {
	central, peripheral := blelink.NewSimLinkPair("central", "peripheral")

	received := make(chan []byte, 4)
	mgr := blelink.NewManager(func(remoteAddr string, frame []byte) {
		received <- frame
	}, func() []byte { return []byte("announce") })
	defer mgr.Close()

	ctx := context.Background()
	mgr.AddLink(ctx, central, blelink.RoleCentral)

	select {
	case frame := <-peripheral.Frames():
		require.Equal(t, []byte("announce"), frame)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for announce")
	}

	require.NoError(t, peripheral.Write(ctx, []byte("inbound")))
	select {
	case frame := <-received:
		require.Equal(t, []byte("inbound"), frame)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for routed frame")
	}

	require.True(t, mgr.Connected("peripheral"))
	require.Contains(t, mgr.Peers(), "peripheral")
}

func TestManager_SendUnknownAddrReportsNotFound(t *testing.T) {
	mgr := blelink.NewManager(nil, nil)
	defer mgr.Close()

	ok, err := mgr.Send(context.Background(), "nowhere", []byte("x"))
	require.False(t, ok)
	require.NoError(t, err)
}

func TestManager_RemoveLinkStopsRouting(t *testing.T) {
	central, peripheral := blelink.NewSimLinkPair("central", "peripheral")

	received := make(chan []byte, 4)
	mgr := blelink.NewManager(func(remoteAddr string, frame []byte) {
		received <- frame
	}, nil)
	defer mgr.Close()

	ctx := context.Background()
	mgr.AddLink(ctx, central, blelink.RoleCentral)
	require.True(t, mgr.Connected("peripheral"))

	mgr.RemoveLink("peripheral")
	require.False(t, mgr.Connected("peripheral"))

	_ = peripheral.Write(ctx, []byte("too-late"))
	select {
	case <-received:
		t.Fatal("should not route frames after link removal")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestManager_NextBackoffGrowsAndCapsWithJitter(t *testing.T) {
	mgr := blelink.NewManager(nil, nil)

	d0 := mgr.NextBackoff(0)
	require.InDelta(t, time.Second, d0, float64(200*time.Millisecond))

	dLarge := mgr.NextBackoff(10)
	require.InDelta(t, 30*time.Second, dLarge, float64(6*time.Second))
	require.LessOrEqual(t, dLarge, 36*time.Second)
}

func TestWriteQueue_FullReturnsErrQueueFull(t *testing.T) {
	central, _ := blelink.NewSimLinkPair("a", "b")
	defer central.Close()

	ctx := context.Background()
	var lastErr error
	// The write queue, the peer's inbox and the frame in flight between them
	// absorb at most 2*capacity+1 frames, so 3*capacity writes must overflow.
	for i := 0; i < blelink.DefaultQueueCapacity*3; i++ {
		if err := central.Write(ctx, []byte{byte(i)}); err != nil {
			lastErr = err
			break
		}
	}
	require.ErrorIs(t, lastErr, blelink.ErrQueueFull)
}

func TestSimLink_CloseIsIdempotentAndRejectsWrites(t *testing.T) {
	central, peripheral := blelink.NewSimLinkPair("a", "b")
	defer peripheral.Close()

	require.NoError(t, central.Close())
	require.NoError(t, central.Close())

	err := central.Write(context.Background(), []byte("after-close"))
	require.ErrorIs(t, err, blelink.ErrClosed)
}
