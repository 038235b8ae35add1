package domain

import "time"

// Event is the payload typed events carry through the event bus (see
// internal/eventbus). Exactly one of the pointer fields is set.
type Event struct {
	At time.Time

	SessionLost            *SessionLostEvent
	FavoriteStatusChanged  *FavoriteStatusChangedEvent
	PendingFileAdded       *PendingFileAddedEvent
	PendingFileRemoved     *PendingFileRemovedEvent
	PeerConnected          *PeerConnectedEvent
	PeerDisconnected       *PeerDisconnectedEvent
	Unreachable            *UnreachableEvent
}

// SessionLostEvent fires when a Noise session dies (auth failure, leave,
// idle timeout).
type SessionLostEvent struct {
	Peer   PeerID
	Reason string
}

// FavoriteStatusChangedEvent fires when a peer's favorite/reachability
// bookkeeping changes, prompting the Message Router to flush its outbox.
type FavoriteStatusChangedEvent struct {
	Peer       PeerID
	IsFavorite bool
}

// PendingFileAddedEvent fires when the Pending File Manager admits a new
// inbound transfer.
type PendingFileAddedEvent struct {
	Transfer PendingFileTransfer
}

// PendingFileRemovedEvent fires when a pending transfer is removed, whether
// by accept, decline, eviction, or expiration.
type PendingFileRemovedEvent struct {
	ID     string
	Reason string
}

// PeerConnectedEvent fires when a BLE link comes up for a peer.
type PeerConnectedEvent struct {
	Peer PeerID
}

// PeerDisconnectedEvent fires when a BLE link to a peer goes down.
type PeerDisconnectedEvent struct {
	Peer PeerID
}

// UnreachableEvent fires when a queued private send's deadline expires
// without finding a reachable transport.
type UnreachableEvent struct {
	Peer      PeerID
	MessageID string
}
