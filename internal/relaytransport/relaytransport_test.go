package relaytransport

import (
	"context"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bitchat/internal/crypto"
	"bitchat/internal/domain"
)

// fakeClient is an in-process domain.RelayClient: Publish hands the event
// straight to whichever Subscribe call is currently registered for the
// recipient pubkey, skipping the wire entirely.
type fakeClient struct {
	mu   sync.Mutex
	subs map[string]func(string, []byte)
}

func newFakeClient() *fakeClient { return &fakeClient{subs: make(map[string]func(string, []byte))} }

func (f *fakeClient) Publish(ctx context.Context, toPubKey string, sealed []byte) error {
	fromPubKeyHex, _ := ctx.Value(fromKeyCtxKey{}).(string)
	f.mu.Lock()
	handler, ok := f.subs[toPubKey]
	f.mu.Unlock()
	if ok {
		handler(fromPubKeyHex, sealed)
	}
	return nil
}

func (f *fakeClient) Subscribe(ctx context.Context, selfPubKey string, handler func(string, []byte)) error {
	f.mu.Lock()
	f.subs[selfPubKey] = handler
	f.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeClient) Close() error { return nil }

type fromKeyCtxKey struct{}

type fakeFavorites struct {
	mu      sync.Mutex
	nostr   map[domain.Fingerprint]string
	favs    map[domain.Fingerprint]bool
	blocked map[domain.Fingerprint]bool
}

func newFakeFavorites() *fakeFavorites {
	return &fakeFavorites{
		nostr:   make(map[domain.Fingerprint]string),
		favs:    make(map[domain.Fingerprint]bool),
		blocked: make(map[domain.Fingerprint]bool),
	}
}

func (f *fakeFavorites) SetFavorite(fp domain.Fingerprint, isFavorite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favs[fp] = isFavorite
	return nil
}
func (f *fakeFavorites) IsFavorite(fp domain.Fingerprint) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.favs[fp]
}
func (f *fakeFavorites) Block(fp domain.Fingerprint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked[fp] = true
	return nil
}
func (f *fakeFavorites) Unblock(fp domain.Fingerprint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blocked, fp)
	return nil
}
func (f *fakeFavorites) IsBlocked(fp domain.Fingerprint) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocked[fp]
}
func (f *fakeFavorites) SetNostrPublicKey(fp domain.Fingerprint, pub string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nostr[fp] = pub
	return nil
}
func (f *fakeFavorites) NostrPublicKey(fp domain.Fingerprint) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pub, ok := f.nostr[fp]
	return pub, ok
}
func (f *fakeFavorites) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nostr = make(map[domain.Fingerprint]string)
	f.favs = make(map[domain.Fingerprint]bool)
	f.blocked = make(map[domain.Fingerprint]bool)
	return nil
}

type fakeAppSink struct {
	private chan string
}

func (s *fakeAppSink) DeliverPrivateMessage(from domain.PeerID, senderNickname, content, messageID string) {
	s.private <- content
}
func (s *fakeAppSink) DeliverFileTransfer(from domain.PeerID, senderNickname, fileName, mimeType string, content []byte, isPrivate bool) {
}
func (s *fakeAppSink) DeliverReadReceipt(from domain.PeerID, receipt domain.ReadReceipt) {}
func (s *fakeAppSink) DeliverDeliveryAck(from domain.PeerID, messageID string)           {}
func (s *fakeAppSink) DeliverFavoriteNotification(from domain.PeerID, isFavorite bool)   {}

func newIdentity(t *testing.T) domain.Identity {
	t.Helper()
	xPriv, xPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	edPriv, edPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	return domain.Identity{XPriv: xPriv, XPub: xPub, EdPriv: edPriv, EdPub: edPub}
}

func TestRelay_IsPeerReachable_FollowsFavoritesEntry(t *testing.T) {
	idA := newIdentity(t)
	favorites := newFakeFavorites()
	sink := &fakeAppSink{private: make(chan string, 1)}
	rel := NewRelay(Config{Identity: idA, Favorites: favorites}, newFakeClient(), sink)

	var peer domain.PeerID
	fp := domain.Fingerprint{0xAA}
	rel.LearnIdentity(peer, fp)

	require.False(t, rel.IsPeerReachable(peer))

	_, bPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	require.NoError(t, favorites.SetNostrPublicKey(fp, hex.EncodeToString(bPub.Slice())))

	require.True(t, rel.IsPeerReachable(peer))
	require.False(t, rel.IsPeerConnected(peer))
}

func TestRelay_SendPublicMessage_Unsupported(t *testing.T) {
	idA := newIdentity(t)
	rel := NewRelay(Config{Identity: idA, Favorites: newFakeFavorites()}, newFakeClient(), &fakeAppSink{private: make(chan string, 1)})
	require.Error(t, rel.SendPublicMessage("x", "m1"))
}

func TestRelay_PrivateMessage_SealedEndToEnd(t *testing.T) {
	idA := newIdentity(t)
	idB := newIdentity(t)

	client := newFakeClient()
	favoritesA := newFakeFavorites()
	sinkB := &fakeAppSink{private: make(chan string, 1)}

	relA := NewRelay(Config{Identity: idA, Favorites: favoritesA}, client, &fakeAppSink{private: make(chan string, 1)})
	relB := NewRelay(Config{Identity: idB, Favorites: newFakeFavorites()}, client, sinkB)

	fpB := crypto.Fingerprint(idB.XPub.Slice())
	var peerB domain.PeerID
	copy(peerB[:], fpB[:8])
	relA.LearnIdentity(peerB, fpB)
	require.NoError(t, favoritesA.SetNostrPublicKey(fpB, hex.EncodeToString(idB.XPub.Slice())))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Subscribe(ctx, relB.selfPub, relB.handleInbound) }()
	time.Sleep(10 * time.Millisecond)

	sendCtx := context.WithValue(ctx, fromKeyCtxKey{}, relA.selfPub)
	require.NoError(t, relA.SendPrivateMessage(sendCtx, "hi over relay", peerB, "a", "m1"))

	select {
	case got := <-sinkB.private:
		require.Equal(t, "hi over relay", got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relayed private message")
	}
}

func TestRelay_HandleInbound_DropsBlockedSender(t *testing.T) {
	idA := newIdentity(t)
	idB := newIdentity(t)

	client := newFakeClient()
	favoritesB := newFakeFavorites()
	sinkB := &fakeAppSink{private: make(chan string, 1)}

	relA := NewRelay(Config{Identity: idA, Favorites: newFakeFavorites()}, client, &fakeAppSink{private: make(chan string, 1)})
	relB := NewRelay(Config{Identity: idB, Favorites: favoritesB}, client, sinkB)

	fpA := crypto.Fingerprint(idA.XPub.Slice())
	require.NoError(t, favoritesB.Block(fpA))

	var peerB domain.PeerID
	fpB := crypto.Fingerprint(idB.XPub.Slice())
	copy(peerB[:], fpB[:8])
	relA.LearnIdentity(peerB, fpB)
	require.NoError(t, relA.cfg.Favorites.SetNostrPublicKey(fpB, hex.EncodeToString(idB.XPub.Slice())))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Subscribe(ctx, relB.selfPub, relB.handleInbound) }()
	time.Sleep(10 * time.Millisecond)

	sendCtx := context.WithValue(ctx, fromKeyCtxKey{}, relA.selfPub)
	require.NoError(t, relA.SendPrivateMessage(sendCtx, "should be dropped", peerB, "a", "m1"))

	select {
	case <-sinkB.private:
		t.Fatal("blocked sender's message should never reach the application sink")
	case <-time.After(200 * time.Millisecond):
	}
}
