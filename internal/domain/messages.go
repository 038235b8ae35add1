package domain

import "time"

// ReadReceipt acknowledges that a specific private message was read.
type ReadReceipt struct {
	MessageID string
	Timestamp time.Time
}

// Channel identifies where a public message is displayed: the local mesh
// timeline, or a geohash (location) channel. The Public Pipeline's
// insertion policy differs between the two.
type Channel struct {
	Geohash string // empty means the local mesh view
}

// IsGeohash reports whether c names a location channel.
func (c Channel) IsGeohash() bool { return c.Geohash != "" }

// PublicMessage is a broadcast chat message flowing through the Public
// Message Pipeline.
type PublicMessage struct {
	ID             string
	SenderPeerID   PeerID
	SenderNickname string
	Content        string
	Timestamp      time.Time
	Channel        Channel
}
