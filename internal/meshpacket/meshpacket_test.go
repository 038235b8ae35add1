package meshpacket_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"bitchat/internal/domain"
	"bitchat/internal/meshpacket"
)

func makePacket(payload []byte) domain.Packet {
	var sender domain.PeerID
	copy(sender[:], []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88})
	return domain.Packet{
		Version:   domain.ProtocolVersion,
		Type:      domain.TypeMessage,
		TTL:       5,
		Timestamp: 1_700_000_000_000,
		SenderID:  sender,
		Payload:   payload,
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	p := makePacket([]byte("hello mesh"))
	p.Signature = make([]byte, 64)
	p.Signature[0] = 0x9

	encoded, err := meshpacket.Encode(p, false)
	require.NoError(t, err)

	got, err := meshpacket.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, p.Version, got.Version)
	require.Equal(t, p.Type, got.Type)
	require.Equal(t, p.TTL, got.TTL)
	require.Equal(t, p.Timestamp, got.Timestamp)
	require.Equal(t, p.SenderID, got.SenderID)
	require.Equal(t, p.Payload, got.Payload)
	require.Equal(t, p.Signature, got.Signature)
}

func TestCodec_PaddedRoundTrip(t *testing.T) {
	p := makePacket([]byte("padded"))
	encoded, err := meshpacket.Encode(p, true)
	require.NoError(t, err)
	require.Contains(t, meshpacket.PaddingBuckets, len(encoded))

	got, err := meshpacket.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, p.Payload, got.Payload)
}

func TestCodec_RejectsUnknownVersion(t *testing.T) {
	p := makePacket([]byte("x"))
	p.Version = 99
	encoded, err := meshpacket.Encode(p, false)
	require.NoError(t, err)
	_, err = meshpacket.Decode(encoded)
	require.Error(t, err)
}

func TestCodec_RejectsTruncatedHeader(t *testing.T) {
	_, err := meshpacket.Decode([]byte{domain.ProtocolVersion, byte(domain.TypeMessage)})
	require.ErrorIs(t, err, meshpacket.ErrTruncatedHeader)
}

// TestReassembly_ShuffledFragments covers a multi-kilobyte message split
// into many fragments delivered out of order.
func TestReassembly_ShuffledFragments(t *testing.T) {
	payload := make([]byte, 3000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	original := makePacket(payload)

	fragments, err := meshpacket.Fragment(original, 400)
	require.NoError(t, err)
	require.Greater(t, len(fragments), 1)

	rng := rand.New(rand.NewSource(1))
	rng.Shuffle(len(fragments), func(i, j int) { fragments[i], fragments[j] = fragments[j], fragments[i] })

	r := meshpacket.NewReassembler()
	var delivered []domain.Packet
	for _, frag := range fragments {
		packet, complete, err := r.HandleFragment(original.SenderID, frag.Payload)
		require.NoError(t, err)
		if complete {
			delivered = append(delivered, packet)
		}
	}

	require.Len(t, delivered, 1)
	require.Equal(t, payload, delivered[0].Payload)
	require.Equal(t, 0, r.Pending())
}

func TestReassembly_DuplicateFragmentIgnored(t *testing.T) {
	payload := make([]byte, 3000)
	original := makePacket(payload)
	fragments, err := meshpacket.Fragment(original, 400)
	require.NoError(t, err)

	r := meshpacket.NewReassembler()
	var callbacks int
	deliver := func(frag domain.Packet) {
		_, complete, err := r.HandleFragment(original.SenderID, frag.Payload)
		require.NoError(t, err)
		if complete {
			callbacks++
		}
	}

	deliver(fragments[0])
	deliver(fragments[0]) // duplicate
	for _, frag := range fragments[1:] {
		deliver(frag)
	}

	require.Equal(t, 1, callbacks)
}

func TestReassembly_CorruptFragmentHeaderIsolatesGroup(t *testing.T) {
	payload := make([]byte, 3000)
	original := makePacket(payload)
	fragments, err := meshpacket.Fragment(original, 400)
	require.NoError(t, err)

	r := meshpacket.NewReassembler()

	_, _, err = r.HandleFragment(original.SenderID, []byte{0x00, 0x01, 0x02})
	require.Error(t, err)

	var callbacks int
	for _, frag := range fragments[1:] {
		_, complete, err := r.HandleFragment(original.SenderID, frag.Payload)
		require.NoError(t, err)
		if complete {
			callbacks++
		}
	}
	require.Equal(t, 0, callbacks)
}

// TestReassembly_UnrelatedGroupUnaffected confirms a poisoned group does
// not prevent a second, independent group from completing normally.
func TestReassembly_UnrelatedGroupUnaffected(t *testing.T) {
	badPayload := make([]byte, 3000)
	bad := makePacket(badPayload)
	badFragments, err := meshpacket.Fragment(bad, 400)
	require.NoError(t, err)

	goodPayload := make([]byte, 3000)
	for i := range goodPayload {
		goodPayload[i] = 0x42
	}
	good := makePacket(goodPayload)
	good.Timestamp++
	goodFragments, err := meshpacket.Fragment(good, 400)
	require.NoError(t, err)

	r := meshpacket.NewReassembler()

	// Corrupt the first bad fragment's header so its group is poisoned.
	corrupt := append([]byte{}, badFragments[0].Payload...)
	corrupt[12] = 0xFF // flip the innerType byte after the group is seeded below
	_, _, err = r.HandleFragment(bad.SenderID, badFragments[1].Payload)
	require.NoError(t, err)
	_, _, err = r.HandleFragment(bad.SenderID, corrupt)
	require.Error(t, err)

	var delivered []domain.Packet
	for _, frag := range goodFragments {
		packet, complete, err := r.HandleFragment(good.SenderID, frag.Payload)
		require.NoError(t, err)
		if complete {
			delivered = append(delivered, packet)
		}
	}
	require.Len(t, delivered, 1)
	require.Equal(t, goodPayload, delivered[0].Payload)
}
