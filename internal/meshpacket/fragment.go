package meshpacket

import (
	"crypto/rand"
	"encoding/binary"

	"bitchat/internal/bcerr"
	"bitchat/internal/domain"
)

// DefaultMTU is the assumed link MTU after BLE ATT overhead.
const DefaultMTU = 512

// fragmentHeaderOverhead is len(fragmentID) + len(index) + len(total) + len(innerType).
const fragmentHeaderOverhead = 8 + 2 + 2 + 1

// EncodeFragmentHeader renders a FragmentHeader as
// fragmentID[8] | index[u16 BE] | total[u16 BE] | innerType[u8] | chunk.
func EncodeFragmentHeader(h domain.FragmentHeader) []byte {
	buf := make([]byte, fragmentHeaderOverhead+len(h.Chunk))
	copy(buf, h.FragmentID[:])
	binary.BigEndian.PutUint16(buf[8:], h.Index)
	binary.BigEndian.PutUint16(buf[10:], h.Total)
	buf[12] = byte(h.InnerType)
	copy(buf[13:], h.Chunk)
	return buf
}

// DecodeFragmentHeader parses a Fragment packet's payload. A payload
// shorter than fragmentHeaderOverhead cannot be a valid fragment header.
func DecodeFragmentHeader(payload []byte) (domain.FragmentHeader, error) {
	var h domain.FragmentHeader
	if len(payload) < fragmentHeaderOverhead {
		return h, bcerr.ErrMalformedPacket
	}
	copy(h.FragmentID[:], payload[:8])
	h.Index = binary.BigEndian.Uint16(payload[8:10])
	h.Total = binary.BigEndian.Uint16(payload[10:12])
	h.InnerType = domain.MessageType(payload[12])
	if len(payload) > fragmentHeaderOverhead {
		h.Chunk = append([]byte{}, payload[fragmentHeaderOverhead:]...)
	}
	return h, nil
}

// Fragment splits original's wire encoding into chunks of at most mtu minus
// fragment-header overhead, and wraps each chunk in its own Fragment
// packet sharing a random fragmentID. mtu <= 0 uses DefaultMTU. Fragment
// returns a single-element slice (no fragmentation) when original already
// fits.
func Fragment(original domain.Packet, mtu int) ([]domain.Packet, error) {
	if mtu <= 0 {
		mtu = DefaultMTU
	}
	chunkSize := mtu - fragmentHeaderOverhead
	if chunkSize <= 0 {
		return nil, bcerr.ErrMalformedPacket
	}

	encoded, err := Encode(original, false)
	if err != nil {
		return nil, err
	}
	if len(encoded) <= mtu {
		return []domain.Packet{original}, nil
	}

	total := (len(encoded) + chunkSize - 1) / chunkSize
	if total > 0xFFFF {
		return nil, bcerr.ErrMalformedPacket
	}

	var fragmentID [8]byte
	if _, err := rand.Read(fragmentID[:]); err != nil {
		return nil, err
	}

	fragments := make([]domain.Packet, 0, total)
	for idx := 0; idx < total; idx++ {
		start := idx * chunkSize
		end := start + chunkSize
		if end > len(encoded) {
			end = len(encoded)
		}
		header := domain.FragmentHeader{
			FragmentID: fragmentID,
			Index:      uint16(idx),
			Total:      uint16(total),
			InnerType:  original.Type,
			Chunk:      encoded[start:end],
		}
		fragments = append(fragments, domain.Packet{
			Version:      domain.ProtocolVersion,
			Type:         domain.TypeFragment,
			TTL:          original.TTL,
			Timestamp:    original.Timestamp,
			SenderID:     original.SenderID,
			HasRecipient: original.HasRecipient,
			RecipientID:  original.RecipientID,
			Payload:      EncodeFragmentHeader(header),
		})
	}
	return fragments, nil
}
