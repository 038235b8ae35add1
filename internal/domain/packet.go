package domain

// ProtocolVersion is the current wire version. Decoders reject any other
// value with ErrUnknownVersion.
const ProtocolVersion uint8 = 2

// MessageType enumerates the single-byte packet kinds carried in Packet.Type.
type MessageType uint8

const (
	TypeAnnounce MessageType = iota + 1
	TypeMessage
	TypePrivateMessage
	TypeFileTransfer
	TypeDeliveryAck
	TypeReadReceipt
	TypeFragment
	TypeNoiseHandshakeInit
	TypeNoiseHandshakeResp
	TypeNoiseTransport
	TypeFavorite
	TypeLeave
)

// String gives a short human-readable label, used in logs.
func (t MessageType) String() string {
	switch t {
	case TypeAnnounce:
		return "announce"
	case TypeMessage:
		return "message"
	case TypePrivateMessage:
		return "private-message"
	case TypeFileTransfer:
		return "file-transfer"
	case TypeDeliveryAck:
		return "delivery-ack"
	case TypeReadReceipt:
		return "read-receipt"
	case TypeFragment:
		return "fragment"
	case TypeNoiseHandshakeInit:
		return "noise-handshake-init"
	case TypeNoiseHandshakeResp:
		return "noise-handshake-resp"
	case TypeNoiseTransport:
		return "noise-transport"
	case TypeFavorite:
		return "favorite"
	case TypeLeave:
		return "leave"
	default:
		return "unknown"
	}
}

// Packet is the wire unit exchanged between mesh nodes. See
// internal/meshpacket for the binary encoding.
type Packet struct {
	Version     uint8
	Type        MessageType
	TTL         uint8
	Timestamp   uint64 // milliseconds since epoch, sender-stamped
	SenderID    PeerID
	RecipientID PeerID // zero value means broadcast/absent
	HasRecipient bool
	Payload     []byte
	Signature   []byte // nil, or exactly 64 bytes
}

// HasSignature reports whether the packet carries an Ed25519 signature.
func (p Packet) HasSignature() bool { return len(p.Signature) == 64 }

// IsBroadcast reports whether the packet has no specific recipient.
func (p Packet) IsBroadcast() bool { return !p.HasRecipient || p.RecipientID.IsZero() }

// FragmentHeader is the structure of Packet.Payload when Packet.Type ==
// TypeFragment: fragmentID[8] | index[u16 BE] | total[u16 BE] | innerType[u8] | chunk[...].
type FragmentHeader struct {
	FragmentID [8]byte
	Index      uint16
	Total      uint16
	InnerType  MessageType
	Chunk      []byte
}
