package app

import (
	"log/slog"

	"bitchat/internal/domain"
	"bitchat/internal/pendingfile"
)

// applicationSink implements domain.ApplicationSink. Private messages, read
// receipts, delivery acks and favorite notifications have no core-owned
// persistence or further routing to do once authenticated — delivering them
// to the chat view is the host application's job (out of scope per
// spec.md §1) — so this sink's only stateful responsibility is admitting
// inbound file transfers into the Pending File Manager. Everything else is
// logged at debug level so operators can see traffic without a UI attached.
type applicationSink struct {
	log     *slog.Logger
	pending *pendingfile.Manager
}

func newApplicationSink(log *slog.Logger, pending *pendingfile.Manager) *applicationSink {
	return &applicationSink{log: log.With("component", "applicationsink"), pending: pending}
}

var _ domain.ApplicationSink = (*applicationSink)(nil)

func (s *applicationSink) DeliverPrivateMessage(from domain.PeerID, senderNickname, content, messageID string) {
	s.log.Debug("private message delivered",
		"from", from.String(), "sender", senderNickname, "message_id", messageID)
}

func (s *applicationSink) DeliverFileTransfer(from domain.PeerID, senderNickname, fileName, mimeType string, content []byte, isPrivate bool) {
	if _, err := s.pending.Add(from, senderNickname, fileName, mimeType, content, isPrivate); err != nil {
		s.log.Warn("file transfer rejected",
			"from", from.String(), "file", fileName, "size", len(content), "err", err)
	}
}

func (s *applicationSink) DeliverReadReceipt(from domain.PeerID, receipt domain.ReadReceipt) {
	s.log.Debug("read receipt delivered", "from", from.String(), "message_id", receipt.MessageID)
}

func (s *applicationSink) DeliverDeliveryAck(from domain.PeerID, messageID string) {
	s.log.Debug("delivery ack delivered", "from", from.String(), "message_id", messageID)
}

func (s *applicationSink) DeliverFavoriteNotification(from domain.PeerID, isFavorite bool) {
	s.log.Debug("favorite notification delivered", "from", from.String(), "is_favorite", isFavorite)
}
