package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bitchat/internal/domain"
)

func TestBus_EmitFansOutToAllSubscribers(t *testing.T) {
	b := New()
	ch1, stop1 := b.Subscribe()
	defer stop1()
	ch2, stop2 := b.Subscribe()
	defer stop2()

	var peer domain.PeerID
	b.Emit(domain.Event{PeerConnected: &domain.PeerConnectedEvent{Peer: peer}})

	for _, ch := range []<-chan domain.Event{ch1, ch2} {
		select {
		case e := <-ch:
			require.NotNil(t, e.PeerConnected)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe()
	unsubscribe()

	b.Emit(domain.Event{Unreachable: &domain.UnreachableEvent{MessageID: "m1"}})

	_, open := <-ch
	require.False(t, open)
}

func TestBus_OnFavoriteStatusChanged_FiltersOtherEvents(t *testing.T) {
	b := New()
	got := make(chan domain.FavoriteStatusChangedEvent, 1)
	stop := b.OnFavoriteStatusChanged(func(e domain.FavoriteStatusChangedEvent) { got <- e })
	defer stop()

	b.Emit(domain.Event{Unreachable: &domain.UnreachableEvent{MessageID: "ignored"}})
	b.Emit(domain.Event{FavoriteStatusChanged: &domain.FavoriteStatusChangedEvent{IsFavorite: true}})

	select {
	case e := <-got:
		require.True(t, e.IsFavorite)
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked for FavoriteStatusChanged")
	}
}

func TestBus_FullSubscriberQueueDropsRatherThanBlocks(t *testing.T) {
	b := New()
	ch, stop := b.Subscribe()
	defer stop()

	for i := 0; i < SubscriberCapacity+10; i++ {
		b.Emit(domain.Event{Unreachable: &domain.UnreachableEvent{MessageID: "x"}})
	}
	require.Len(t, ch, SubscriberCapacity)
}
