package meshtransport

import (
	"encoding/binary"

	"bitchat/internal/bcerr"
)

// The application kinds carried one-per-packet on domain.Packet.Type for
// every post-handshake private send (PrivateMessage, FileTransfer,
// DeliveryAck, ReadReceipt, Favorite). Each body below is encrypted as the
// Noise transport plaintext; the outer Packet.Type already tells the
// receiver which of these to decode, so no further inner tag is needed.

func putString(buf []byte, s string) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

func takeString(data []byte) (string, []byte, error) {
	if len(data) < 2 {
		return "", nil, bcerr.ErrMalformedPacket
	}
	n := int(binary.BigEndian.Uint16(data))
	data = data[2:]
	if len(data) < n {
		return "", nil, bcerr.ErrMalformedPacket
	}
	return string(data[:n]), data[n:], nil
}

type privateMessageBody struct {
	MessageID string
	Content   string
}

func encodePrivateMessage(b privateMessageBody) []byte {
	buf := putString(nil, b.MessageID)
	return putString(buf, b.Content)
}

func decodePrivateMessage(data []byte) (privateMessageBody, error) {
	var b privateMessageBody
	var err error
	b.MessageID, data, err = takeString(data)
	if err != nil {
		return b, err
	}
	b.Content, _, err = takeString(data)
	return b, err
}

type fileTransferBody struct {
	FileName string
	MimeType string
	Content  []byte
}

func encodeFileTransfer(b fileTransferBody) []byte {
	buf := putString(nil, b.FileName)
	buf = putString(buf, b.MimeType)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b.Content)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, b.Content...)
}

func decodeFileTransfer(data []byte) (fileTransferBody, error) {
	var b fileTransferBody
	var err error
	b.FileName, data, err = takeString(data)
	if err != nil {
		return b, err
	}
	b.MimeType, data, err = takeString(data)
	if err != nil {
		return b, err
	}
	if len(data) < 4 {
		return b, bcerr.ErrMalformedPacket
	}
	n := binary.BigEndian.Uint32(data)
	data = data[4:]
	if uint32(len(data)) < n {
		return b, bcerr.ErrMalformedPacket
	}
	b.Content = append([]byte{}, data[:n]...)
	return b, nil
}

type deliveryAckBody struct {
	MessageID string
}

func encodeDeliveryAck(b deliveryAckBody) []byte {
	return putString(nil, b.MessageID)
}

func decodeDeliveryAck(data []byte) (deliveryAckBody, error) {
	var b deliveryAckBody
	var err error
	b.MessageID, _, err = takeString(data)
	return b, err
}

type readReceiptBody struct {
	MessageID       string
	TimestampMillis uint64
}

func encodeReadReceipt(b readReceiptBody) []byte {
	buf := putString(nil, b.MessageID)
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], b.TimestampMillis)
	return append(buf, tsBuf[:]...)
}

func decodeReadReceipt(data []byte) (readReceiptBody, error) {
	var b readReceiptBody
	var rest []byte
	var err error
	b.MessageID, rest, err = takeString(data)
	if err != nil {
		return b, err
	}
	if len(rest) < 8 {
		return b, bcerr.ErrMalformedPacket
	}
	b.TimestampMillis = binary.BigEndian.Uint64(rest)
	return b, nil
}

type favoriteBody struct {
	IsFavorite bool
}

func encodeFavorite(b favoriteBody) []byte {
	if b.IsFavorite {
		return []byte{1}
	}
	return []byte{0}
}

func decodeFavorite(data []byte) (favoriteBody, error) {
	if len(data) < 1 {
		return favoriteBody{}, bcerr.ErrMalformedPacket
	}
	return favoriteBody{IsFavorite: data[0] == 1}, nil
}

// encodeTransportPayload/decodeTransportPayload frame a Noise transport
// message for the wire: nonce[8 BE] | ciphertext. The nonce travels
// explicitly since reassembly and BLE delivery reorder packets, so the
// receiver cannot infer it from arrival order.
func encodeTransportPayload(nonce uint64, ciphertext []byte) []byte {
	var nonceBuf [8]byte
	binary.BigEndian.PutUint64(nonceBuf[:], nonce)
	return append(nonceBuf[:], ciphertext...)
}

func decodeTransportPayload(data []byte) (nonce uint64, ciphertext []byte, err error) {
	if len(data) < 8 {
		return 0, nil, bcerr.ErrMalformedPacket
	}
	return binary.BigEndian.Uint64(data), data[8:], nil
}

// announceBody carries the sender's claimed Noise static key, its Ed25519
// signing key (so the Announce's Packet.Signature can be verified without
// a prior handshake), and its nickname.
type announceBody struct {
	StaticPub [32]byte
	EdPub     [32]byte
	Nickname  string
}

func encodeAnnounce(b announceBody) []byte {
	buf := append([]byte{}, b.StaticPub[:]...)
	buf = append(buf, b.EdPub[:]...)
	return putString(buf, b.Nickname)
}

func decodeAnnounce(data []byte) (announceBody, error) {
	var b announceBody
	if len(data) < 64 {
		return b, bcerr.ErrMalformedPacket
	}
	copy(b.StaticPub[:], data[:32])
	copy(b.EdPub[:], data[32:64])
	var err error
	b.Nickname, _, err = takeString(data[64:])
	return b, err
}
