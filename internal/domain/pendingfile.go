package domain

import (
	"strings"
	"time"
)

// PendingFileTransfer is an inbound file transfer awaiting user accept or
// decline. Content lives only in memory; pending files are never persisted.
type PendingFileTransfer struct {
	ID             string
	SenderPeerID   PeerID
	SenderNickname string
	FileName       string // optional
	MimeType       string // optional
	Content        []byte
	Timestamp      time.Time
	IsPrivate      bool
}

// FileSize returns the length of Content in bytes.
func (p PendingFileTransfer) FileSize() int { return len(p.Content) }

// DisplayName returns FileName if set, otherwise a name synthesized from
// MimeType's subtype (e.g. "file.png"), or "file.bin" as a last resort.
func (p PendingFileTransfer) DisplayName() string {
	if p.FileName != "" {
		return p.FileName
	}
	ext := extFromMime(p.MimeType)
	if ext == "" {
		ext = "bin"
	}
	return "file." + ext
}

func extFromMime(mime string) string {
	if mime == "" {
		return ""
	}
	parts := strings.SplitN(mime, "/", 2)
	if len(parts) != 2 {
		return ""
	}
	sub := parts[1]
	if i := strings.IndexByte(sub, '+'); i >= 0 {
		sub = sub[:i]
	}
	if i := strings.IndexByte(sub, ';'); i >= 0 {
		sub = sub[:i]
	}
	return sub
}
