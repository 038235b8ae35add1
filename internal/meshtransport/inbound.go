package meshtransport

import (
	"context"
	"time"

	"bitchat/internal/crypto"
	"bitchat/internal/domain"
	"bitchat/internal/meshpacket"
	"bitchat/internal/noise"
)

// handleInboundFrame is the blelink.Manager onFrame callback: it decodes
// one wire frame from addr and runs it through dedup/TTL routing,
// reassembly, and finally per-type dispatch.
func (m *Mesh) handleInboundFrame(addr string, frame []byte) {
	p, err := meshpacket.Decode(frame)
	if err != nil {
		return
	}
	if p.Type == domain.TypeFragment {
		m.handleFragmentPacket(addr, p)
		return
	}
	m.routeDeliverForward(addr, p)
}

func (m *Mesh) handleFragmentPacket(addr string, p domain.Packet) {
	d := m.router.Route(p)
	if d.Dropped {
		return
	}
	if d.Forward {
		m.forwardPacket(addr, d.Forwarded)
	}
	if !d.DeliverLocally {
		return
	}
	full, complete, err := m.reassembler.HandleFragment(p.SenderID, p.Payload)
	if err != nil || !complete {
		return
	}
	m.dispatchPacket(addr, full)
}

func (m *Mesh) routeDeliverForward(addr string, p domain.Packet) {
	d := m.router.Route(p)
	if d.Dropped {
		return
	}
	if d.Forward {
		m.forwardPacket(addr, d.Forwarded)
	}
	if d.DeliverLocally {
		m.dispatchPacket(addr, p)
	}
}

// forwardPacket re-encodes p (already TTL-decremented by the router) and
// writes it to every connected link except the one it arrived on.
func (m *Mesh) forwardPacket(originAddr string, p domain.Packet) {
	for _, addr := range m.reg.ConnectedAddrs() {
		if addr == originAddr {
			continue
		}
		_ = m.writeToAddr(context.Background(), addr, p)
	}
}

func (m *Mesh) dispatchPacket(addr string, p domain.Packet) {
	switch p.Type {
	case domain.TypeAnnounce:
		m.handleAnnounce(addr, p)
	case domain.TypeMessage:
		m.deliverPublicMessage(p)
	case domain.TypeNoiseHandshakeInit, domain.TypeNoiseHandshakeResp:
		m.handleNoiseHandshake(addr, p)
	case domain.TypePrivateMessage, domain.TypeFileTransfer, domain.TypeDeliveryAck,
		domain.TypeReadReceipt, domain.TypeFavorite:
		m.handleEncrypted(p)
	case domain.TypeLeave:
		m.handleLeave(p)
	}
}

func (m *Mesh) handleAnnounce(addr string, p domain.Packet) {
	body, err := decodeAnnounce(p.Payload)
	if err != nil {
		return
	}
	if !p.HasSignature() || !crypto.Verify(domain.Ed25519Public(body.EdPub), p.Payload, p.Signature) {
		return // unsigned or forged Announce: never trust the claimed identity
	}
	_, hadPeer := m.reg.AddrForPeer(p.SenderID)
	m.reg.Touch(p.SenderID, addr, body.Nickname, domain.X25519Public(body.StaticPub), time.Now())
	if !hadPeer {
		if m.emitter != nil {
			m.emitter.Emit(domain.Event{At: time.Now(), PeerConnected: &domain.PeerConnectedEvent{Peer: p.SenderID}})
		}
		if m.onIdentityLearned != nil {
			m.onIdentityLearned(p.SenderID, domain.X25519Public(body.StaticPub))
		}
	}
}

func (m *Mesh) deliverPublicMessage(p domain.Packet) {
	if m.publicSink == nil {
		return
	}
	body, err := decodePrivateMessage(p.Payload)
	if err != nil {
		return
	}
	m.publicSink.DeliverPublicMessage(domain.PublicMessage{
		ID:             body.MessageID,
		SenderPeerID:   p.SenderID,
		SenderNickname: m.reg.Nickname(p.SenderID),
		Content:        body.Content,
		Timestamp:      time.UnixMilli(int64(p.Timestamp)),
	})
}

// handleNoiseHandshake advances (or starts, as responder) a handshake with
// the packet's sender, replying over the link it arrived on — Announce is
// single-hop, so a handshake partner is always a direct neighbor.
func (m *Mesh) handleNoiseHandshake(addr string, p domain.Packet) {
	static, ok := m.reg.StaticKey(p.SenderID)
	if !ok {
		return // peer must announce before we'll handshake with it
	}
	reply, established, err := m.noiseMgr.HandleHandshakeMessage(p.SenderID, static, p.Payload)
	if err != nil {
		return
	}
	if reply != nil {
		replyType := domain.TypeNoiseHandshakeResp
		if session, ok := m.noiseMgr.Session(p.SenderID); ok && session.Role() == noise.RoleInitiator {
			replyType = domain.TypeNoiseHandshakeInit
		}
		out := domain.Packet{
			Version:      domain.ProtocolVersion,
			Type:         replyType,
			TTL:          1,
			Timestamp:    uint64(time.Now().UnixMilli()),
			SenderID:     m.self,
			RecipientID:  p.SenderID,
			HasRecipient: true,
			Payload:      reply,
		}
		_ = m.writeToAddr(context.Background(), addr, out)
	}
	if established {
		m.flushQueue(context.Background(), p.SenderID)
	}
}

// handleEncrypted opens the Noise transport payload carried by a private,
// file-transfer, ack, receipt, or favorite packet and hands the decoded
// body to the application sink. A failed decrypt kills the session and
// reports SessionLost, matching an established session's fate on any
// authentication failure.
func (m *Mesh) handleEncrypted(p domain.Packet) {
	nonce, ciphertext, err := decodeTransportPayload(p.Payload)
	if err != nil {
		return
	}
	plaintext, err := m.noiseMgr.Decrypt(p.SenderID, nonce, packetAAD(p), ciphertext)
	if err != nil {
		m.noiseMgr.Drop(p.SenderID)
		if m.emitter != nil {
			m.emitter.Emit(domain.Event{At: time.Now(), SessionLost: &domain.SessionLostEvent{Peer: p.SenderID, Reason: "authentication-failed"}})
		}
		return
	}

	nickname := m.reg.Nickname(p.SenderID)
	switch p.Type {
	case domain.TypePrivateMessage:
		body, err := decodePrivateMessage(plaintext)
		if err != nil || m.appSink == nil {
			return
		}
		m.appSink.DeliverPrivateMessage(p.SenderID, nickname, body.Content, body.MessageID)
	case domain.TypeFileTransfer:
		body, err := decodeFileTransfer(plaintext)
		if err != nil || m.appSink == nil {
			return
		}
		m.appSink.DeliverFileTransfer(p.SenderID, nickname, body.FileName, body.MimeType, body.Content, true)
	case domain.TypeDeliveryAck:
		body, err := decodeDeliveryAck(plaintext)
		if err != nil || m.appSink == nil {
			return
		}
		m.appSink.DeliverDeliveryAck(p.SenderID, body.MessageID)
	case domain.TypeReadReceipt:
		body, err := decodeReadReceipt(plaintext)
		if err != nil || m.appSink == nil {
			return
		}
		m.appSink.DeliverReadReceipt(p.SenderID, domain.ReadReceipt{
			MessageID: body.MessageID,
			Timestamp: time.UnixMilli(int64(body.TimestampMillis)),
		})
	case domain.TypeFavorite:
		body, err := decodeFavorite(plaintext)
		if err != nil || m.appSink == nil {
			return
		}
		m.appSink.DeliverFavoriteNotification(p.SenderID, body.IsFavorite)
	}
}

func (m *Mesh) handleLeave(p domain.Packet) {
	m.noiseMgr.Drop(p.SenderID)
	if addr, ok := m.reg.AddrForPeer(p.SenderID); ok {
		m.reg.Forget(addr)
	}
	if m.emitter != nil {
		m.emitter.Emit(domain.Event{At: time.Now(), PeerDisconnected: &domain.PeerDisconnectedEvent{Peer: p.SenderID}})
	}
}
