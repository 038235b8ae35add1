package relaytransport

import (
	"context"
	"encoding/hex"
	"time"

	"bitchat/internal/bcerr"
	"bitchat/internal/crypto"
	"bitchat/internal/domain"
	"bitchat/internal/relay"
)

var _ domain.Transport = (*Relay)(nil)

// Config carries the local identity and the store this transport consults
// for peer reachability.
type Config struct {
	Identity  domain.Identity
	Favorites domain.FavoritesStore
}

// Relay implements domain.Transport as the Nostr-style store-and-forward
// fallback: it never reports a peer as "connected" (it has no live link,
// only a relay that may or may not still be holding undelivered events for
// them), and SendPublicMessage is unsupported — broadcast is mesh-only per
// the router's transport-selection policy, so a caller reaching this
// method has already violated that policy.
type Relay struct {
	cfg Config

	client  domain.RelayClient
	selfPub string // hex-encoded local X25519 public key, this node's relay identity

	identities *identityRegistry
	appSink    domain.ApplicationSink

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRelay builds a Relay transport over an already-dialed client (see
// relay.NewWSClient). The caller owns the client's lifecycle beyond Close,
// which Stop calls.
func NewRelay(cfg Config, client domain.RelayClient, appSink domain.ApplicationSink) *Relay {
	return &Relay{
		cfg:        cfg,
		client:     client,
		selfPub:    hex.EncodeToString(cfg.Identity.XPub.Slice()),
		identities: newIdentityRegistry(),
		appSink:    appSink,
	}
}

func (r *Relay) Name() string { return "relay" }

// LearnIdentity records peer's Fingerprint so later reachability checks and
// sends can resolve it to a favorites entry. Callers wire this to whichever
// transport or store first observes a peer's full identity key (typically
// the mesh transport's Announce handling).
func (r *Relay) LearnIdentity(peer domain.PeerID, fp domain.Fingerprint) {
	r.identities.Learn(peer, fp)
}

// Start launches the subscribe loop against the configured client in a
// goroutine and returns at once, without waiting for the subscription
// request to be sent; delivery runs in the background until Stop is called
// or ctx is cancelled.
func (r *Relay) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		_ = r.client.Subscribe(loopCtx, r.selfPub, r.handleInbound)
	}()
}

// Stop cancels the subscribe loop and closes the underlying client.
func (r *Relay) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
	_ = r.client.Close()
}

// IsPeerConnected is always false: the relay path never establishes a live
// connection to a peer, only to the relay itself.
func (r *Relay) IsPeerConnected(peer domain.PeerID) bool { return false }

// IsPeerReachable reports whether the favorites store has a Nostr public
// key on file for peer's Fingerprint.
func (r *Relay) IsPeerReachable(peer domain.PeerID) bool {
	_, ok := r.recipientKey(peer)
	return ok
}

func (r *Relay) recipientKey(peer domain.PeerID) (domain.X25519Public, bool) {
	var zero domain.X25519Public
	fp, ok := r.identities.FingerprintFor(peer)
	if !ok || r.cfg.Favorites == nil {
		return zero, false
	}
	pubHex, ok := r.cfg.Favorites.NostrPublicKey(fp)
	if !ok {
		return zero, false
	}
	raw, err := hex.DecodeString(pubHex)
	if err != nil || len(raw) != len(zero) {
		return zero, false
	}
	var pub domain.X25519Public
	copy(pub[:], raw)
	return pub, true
}

// SendPublicMessage is unsupported: broadcast has no relay form.
func (r *Relay) SendPublicMessage(content string, messageID string) error {
	return bcerr.ErrBroadcastUnsupported
}

func (r *Relay) publish(ctx context.Context, to domain.PeerID, b body) error {
	pub, ok := r.recipientKey(to)
	if !ok {
		return bcerr.WithPeer(to.String(), bcerr.ErrTransportUnavailable)
	}
	plaintext, err := encodeBody(b)
	if err != nil {
		return err
	}
	sealed, err := relay.Seal(r.cfg.Identity.XPriv, pub, plaintext)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, hex.EncodeToString(pub.Slice()), sealed)
}

func (r *Relay) SendPrivateMessage(ctx context.Context, content string, to domain.PeerID, recipientNickname string, messageID string) error {
	return r.publish(ctx, to, body{Kind: kindPrivateMessage, MessageID: messageID, Content: content})
}

func (r *Relay) SendFileTransfer(ctx context.Context, name, mime string, content []byte, to *domain.PeerID) error {
	if to == nil {
		return bcerr.ErrRecipientRequired
	}
	return r.publish(ctx, *to, body{Kind: kindFileTransfer, FileName: name, MimeType: mime, FileBytes: content})
}

func (r *Relay) SendReadReceipt(receipt domain.ReadReceipt, to domain.PeerID) error {
	return r.publish(context.Background(), to, body{
		Kind:            kindReadReceipt,
		MessageID:       receipt.MessageID,
		TimestampMillis: receipt.Timestamp.UnixMilli(),
	})
}

func (r *Relay) SendDeliveryAck(messageID string, to domain.PeerID) error {
	return r.publish(context.Background(), to, body{Kind: kindDeliveryAck, MessageID: messageID})
}

func (r *Relay) SendFavoriteNotification(to domain.PeerID, isFavorite bool) error {
	return r.publish(context.Background(), to, body{Kind: kindFavorite, IsFavorite: isFavorite})
}

// handleInbound is the relay.WSClient Subscribe callback: it resolves the
// publisher's identity key, opens the sealed payload, and dispatches the
// decoded body to the application sink exactly as the mesh transport
// would, so the host application cannot distinguish the two paths.
func (r *Relay) handleInbound(fromPubKeyHex string, sealed []byte) {
	raw, err := hex.DecodeString(fromPubKeyHex)
	if err != nil || len(raw) != 32 {
		return
	}
	var senderPub domain.X25519Public
	copy(senderPub[:], raw)

	plaintext, err := relay.Open(r.cfg.Identity.XPriv, senderPub, sealed)
	if err != nil {
		return
	}
	b, err := decodeBody(plaintext)
	if err != nil || r.appSink == nil {
		return
	}

	fp := crypto.Fingerprint(senderPub.Slice())
	if r.cfg.Favorites != nil && r.cfg.Favorites.IsBlocked(fp) {
		return
	}
	peer := peerIDFromFingerprint(fp)
	r.identities.Learn(peer, fp)

	// Favorites has no nickname lookup; a relay-sourced message arrives
	// with no display name, same as mesh traffic from a peer the local
	// node has not yet heard Announce from.
	const nickname = ""

	switch b.Kind {
	case kindPrivateMessage:
		r.appSink.DeliverPrivateMessage(peer, nickname, b.Content, b.MessageID)
	case kindFileTransfer:
		r.appSink.DeliverFileTransfer(peer, nickname, b.FileName, b.MimeType, b.FileBytes, true)
	case kindDeliveryAck:
		r.appSink.DeliverDeliveryAck(peer, b.MessageID)
	case kindReadReceipt:
		r.appSink.DeliverReadReceipt(peer, domain.ReadReceipt{
			MessageID: b.MessageID,
			Timestamp: time.UnixMilli(b.TimestampMillis),
		})
	case kindFavorite:
		r.appSink.DeliverFavoriteNotification(peer, b.IsFavorite)
	}
}

func peerIDFromFingerprint(fp domain.Fingerprint) domain.PeerID {
	var p domain.PeerID
	copy(p[:], fp[:8])
	return p
}
