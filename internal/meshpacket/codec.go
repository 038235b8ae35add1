package meshpacket

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"bitchat/internal/bcerr"
	"bitchat/internal/domain"
)

// PaddingBuckets are the fixed frame sizes Encode pads into when asked to
// hide a packet's true length. Interop requires both ends agree on this
// list.
var PaddingBuckets = []int{256, 512, 1024, 2048, 4096}

// ErrTruncatedHeader and ErrTruncatedPayload both wrap
// bcerr.ErrMalformedPacket so callers that only care about the general
// kind can still match on it with errors.Is, while logs get a more
// specific cause.
var (
	ErrTruncatedHeader  = fmt.Errorf("truncated header: %w", bcerr.ErrMalformedPacket)
	ErrTruncatedPayload = fmt.Errorf("truncated payload: %w", bcerr.ErrMalformedPacket)
)

const (
	coreHeaderLen  = 1 + 1 + 1 + 8 + 8 + 1 // version,type,ttl,timestamp,senderID,hasRecipient
	signatureLen   = 64
	paddingTrailer = 2
)

// Encode renders p as its wire form. When pad is true, the frame is grown
// with random bytes to the next entry in PaddingBuckets (if p already fits
// within the largest bucket) and a 2-byte trailer records the true length;
// Decode recognizes a padded frame by its buffer landing exactly on a
// bucket boundary.
func Encode(p domain.Packet, pad bool) ([]byte, error) {
	if len(p.Payload) > 0xFFFF {
		return nil, bcerr.ErrMalformedPacket
	}
	core := encodeCore(p)
	if !pad {
		return core, nil
	}
	bucket := nextBucket(len(core) + paddingTrailer)
	if bucket == 0 {
		return core, nil // too large to pad into any bucket; send unpadded
	}
	buf := make([]byte, bucket)
	copy(buf, core)
	if _, err := rand.Read(buf[len(core) : bucket-paddingTrailer]); err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint16(buf[bucket-paddingTrailer:], uint16(len(core)))
	return buf, nil
}

func nextBucket(n int) int {
	for _, b := range PaddingBuckets {
		if n <= b {
			return b
		}
	}
	return 0
}

func isBucketSize(n int) bool {
	for _, b := range PaddingBuckets {
		if n == b {
			return true
		}
	}
	return false
}

// Decode parses a wire frame back into a Packet, first stripping padding
// if the frame's length matches a known bucket.
func Decode(data []byte) (domain.Packet, error) {
	if isBucketSize(len(data)) {
		trailerAt := len(data) - paddingTrailer
		origLen := int(binary.BigEndian.Uint16(data[trailerAt:]))
		if origLen <= trailerAt {
			data = data[:origLen]
		}
	}
	return decodeCore(data)
}

func encodeCore(p domain.Packet) []byte {
	hasRecipient := p.HasRecipient && !p.RecipientID.IsZero()
	size := coreHeaderLen
	if hasRecipient {
		size += 8
	}
	size += 2 + len(p.Payload)
	size += 1
	if p.HasSignature() {
		size += signatureLen
	}

	buf := make([]byte, size)
	i := 0
	buf[i] = p.Version
	i++
	buf[i] = byte(p.Type)
	i++
	buf[i] = p.TTL
	i++
	binary.BigEndian.PutUint64(buf[i:], p.Timestamp)
	i += 8
	copy(buf[i:], p.SenderID.Slice())
	i += 8
	if hasRecipient {
		buf[i] = 1
		i++
		copy(buf[i:], p.RecipientID.Slice())
		i += 8
	} else {
		buf[i] = 0
		i++
	}
	binary.BigEndian.PutUint16(buf[i:], uint16(len(p.Payload)))
	i += 2
	copy(buf[i:], p.Payload)
	i += len(p.Payload)
	if p.HasSignature() {
		buf[i] = 1
		i++
		copy(buf[i:], p.Signature)
		i += signatureLen
	} else {
		buf[i] = 0
		i++
	}
	return buf[:i]
}

func decodeCore(data []byte) (domain.Packet, error) {
	var p domain.Packet
	if len(data) < coreHeaderLen {
		return p, ErrTruncatedHeader
	}
	i := 0
	p.Version = data[i]
	i++
	if p.Version != domain.ProtocolVersion {
		return p, bcerr.ErrUnknownVersion
	}
	t := data[i]
	i++
	if t < byte(domain.TypeAnnounce) || t > byte(domain.TypeLeave) {
		return p, bcerr.ErrUnsupportedType
	}
	p.Type = domain.MessageType(t)
	p.TTL = data[i]
	i++
	p.Timestamp = binary.BigEndian.Uint64(data[i:])
	i += 8
	copy(p.SenderID[:], data[i:i+8])
	i += 8

	if i >= len(data) {
		return p, ErrTruncatedHeader
	}
	hasRecipient := data[i] == 1
	i++
	if hasRecipient {
		if i+8 > len(data) {
			return p, ErrTruncatedHeader
		}
		copy(p.RecipientID[:], data[i:i+8])
		i += 8
		p.HasRecipient = true
	}

	if i+2 > len(data) {
		return p, ErrTruncatedHeader
	}
	payloadLen := int(binary.BigEndian.Uint16(data[i:]))
	i += 2
	if i+payloadLen > len(data) {
		return p, ErrTruncatedPayload
	}
	if payloadLen > 0 {
		p.Payload = append([]byte{}, data[i:i+payloadLen]...)
	}
	i += payloadLen

	if i >= len(data) {
		return p, ErrTruncatedPayload
	}
	hasSignature := data[i] == 1
	i++
	if hasSignature {
		if i+signatureLen > len(data) {
			return p, ErrTruncatedPayload
		}
		p.Signature = append([]byte{}, data[i:i+signatureLen]...)
		i += signatureLen
	}

	return p, nil
}
