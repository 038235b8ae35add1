package meshtransport

import (
	"context"
	"time"

	"bitchat/internal/bcerr"
	"bitchat/internal/domain"
)

// SendPublicMessage broadcasts content unsigned to every connected peer.
// Public sends are fire-and-forget: a link with no connected peers simply
// delivers to nobody, and partial delivery to some peers is not reported
// as an error.
func (m *Mesh) SendPublicMessage(content string, messageID string) error {
	p := domain.Packet{
		Version:   domain.ProtocolVersion,
		Type:      domain.TypeMessage,
		TTL:       m.cfg.BroadcastTTL,
		Timestamp: uint64(time.Now().UnixMilli()),
		SenderID:  m.self,
		Payload:   encodePrivateMessage(privateMessageBody{MessageID: messageID, Content: content}),
	}
	_ = m.broadcast(context.Background(), p)
	return nil
}

// SendPrivateMessage queues content for to if no established session
// exists yet (starting a handshake if one is not already under way), or
// sends it immediately through the established Noise transport. The queued
// item is abandoned with Unreachable after PrivateMessageTTL.
func (m *Mesh) SendPrivateMessage(ctx context.Context, content string, to domain.PeerID, recipientNickname string, messageID string) error {
	body := encodePrivateMessage(privateMessageBody{MessageID: messageID, Content: content})

	if ok, err := m.sendEncrypted(ctx, to, domain.TypePrivateMessage, body); err != nil {
		return err
	} else if ok {
		return nil
	}

	m.sendQ.Push(to, queuedSend{
		packetType: domain.TypePrivateMessage,
		body:       body,
		messageID:  messageID,
		deadline:   time.Now().Add(PrivateMessageTTL),
	})
	return m.ensureHandshake(ctx, to)
}

// SendFileTransfer fragments content as needed (via the underlying packet
// codec, since file payloads routinely exceed the link MTU) and delivers
// it through the established session for to, queuing behind a handshake
// the same way SendPrivateMessage does. to == nil is rejected: file
// transfer has no broadcast form.
func (m *Mesh) SendFileTransfer(ctx context.Context, name, mime string, content []byte, to *domain.PeerID) error {
	if to == nil {
		return bcerr.ErrRecipientRequired
	}
	body := encodeFileTransfer(fileTransferBody{FileName: name, MimeType: mime, Content: content})

	if ok, err := m.sendEncrypted(ctx, *to, domain.TypeFileTransfer, body); err != nil {
		return err
	} else if ok {
		return nil
	}

	m.sendQ.Push(*to, queuedSend{
		packetType: domain.TypeFileTransfer,
		body:       body,
		deadline:   time.Now().Add(PrivateMessageTTL),
	})
	return m.ensureHandshake(ctx, *to)
}

// SendReadReceipt delivers receipt to to if reachable now; it is not
// queued on handshake, matching the best-effort semantics read receipts
// and delivery acks share.
func (m *Mesh) SendReadReceipt(receipt domain.ReadReceipt, to domain.PeerID) error {
	body := encodeReadReceipt(readReceiptBody{
		MessageID:       receipt.MessageID,
		TimestampMillis: uint64(receipt.Timestamp.UnixMilli()),
	})
	_, err := m.sendEncrypted(context.Background(), to, domain.TypeReadReceipt, body)
	return err
}

// SendDeliveryAck delivers a delivery acknowledgment to to if reachable
// now; best-effort, not queued.
func (m *Mesh) SendDeliveryAck(messageID string, to domain.PeerID) error {
	body := encodeDeliveryAck(deliveryAckBody{MessageID: messageID})
	_, err := m.sendEncrypted(context.Background(), to, domain.TypeDeliveryAck, body)
	return err
}

// SendFavoriteNotification tells to that the local node changed its
// favorite status for them; best-effort, not queued.
func (m *Mesh) SendFavoriteNotification(to domain.PeerID, isFavorite bool) error {
	body := encodeFavorite(favoriteBody{IsFavorite: isFavorite})
	_, err := m.sendEncrypted(context.Background(), to, domain.TypeFavorite, body)
	return err
}
