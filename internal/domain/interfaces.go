package domain

import "context"

// Transport is the narrow interface the Message Router dispatches over. The
// mesh transport and the relay transport both implement it, so the router
// (and tests) can treat them uniformly.
type Transport interface {
	// Name identifies the transport for logs and router ordering ("mesh", "relay").
	Name() string

	IsPeerConnected(peer PeerID) bool
	IsPeerReachable(peer PeerID) bool

	SendPublicMessage(content string, messageID string) error
	SendPrivateMessage(ctx context.Context, content string, to PeerID, recipientNickname string, messageID string) error
	SendFileTransfer(ctx context.Context, name, mime string, content []byte, to *PeerID) error
	SendReadReceipt(receipt ReadReceipt, to PeerID) error
	SendDeliveryAck(messageID string, to PeerID) error
	SendFavoriteNotification(to PeerID, isFavorite bool) error
}

// IdentityStore persists the local node's long-term identity.
type IdentityStore interface {
	SaveIdentity(passphrase string, id Identity) error
	LoadIdentity(passphrase string) (Identity, error)
	Clear() error
}

// FavoritesStore persists the favorites map, the blocked-fingerprint set,
// and the peer-to-Nostr-pubkey mapping the Relay Transport uses to decide
// reachability.
type FavoritesStore interface {
	SetFavorite(fp Fingerprint, isFavorite bool) error
	IsFavorite(fp Fingerprint) bool

	Block(fp Fingerprint) error
	Unblock(fp Fingerprint) error
	IsBlocked(fp Fingerprint) bool

	SetNostrPublicKey(fp Fingerprint, pub string) error
	NostrPublicKey(fp Fingerprint) (string, bool)

	Clear() error
}

// PipelineSink receives public messages once the Public Message Pipeline has
// batched, sorted, and deduplicated them.
type PipelineSink interface {
	DeliverPublicMessage(msg PublicMessage)
}

// PendingFileSink receives pending-file lifecycle notifications from the
// Pending File Manager.
type PendingFileSink interface {
	OnPendingFileAdded(transfer PendingFileTransfer)
	OnPendingFileRemoved(id string, reason string)
}

// RelayClient is how the Relay Transport talks to one or more Nostr-style
// relays: publish a sealed event addressed to a recipient's long-term
// pubkey, and subscribe to events tagged to the local pubkey.
type RelayClient interface {
	Publish(ctx context.Context, toPubKey string, sealed []byte) error
	Subscribe(ctx context.Context, selfPubKey string, handler func(fromPubKey string, sealed []byte)) error
	Close() error
}

// ApplicationSink receives decrypted per-peer application events the mesh
// transport and relay transport both produce once a payload has been
// authenticated, but neither is responsible for interpreting further (that
// is the Message Router's and the host application's job).
type ApplicationSink interface {
	DeliverPrivateMessage(from PeerID, senderNickname, content, messageID string)
	DeliverFileTransfer(from PeerID, senderNickname, fileName, mimeType string, content []byte, isPrivate bool)
	DeliverReadReceipt(from PeerID, receipt ReadReceipt)
	DeliverDeliveryAck(from PeerID, messageID string)
	DeliverFavoriteNotification(from PeerID, isFavorite bool)
}

// EventEmitter publishes typed events onto the host's event bus
// "Cross-component notifications become typed events").
type EventEmitter interface {
	Emit(Event)
}
