package noise_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bitchat/internal/bcerr"
	"bitchat/internal/crypto"
	"bitchat/internal/domain"
	"bitchat/internal/noise"
)

func genIdentity(t *testing.T) (domain.X25519Private, domain.X25519Public) {
	t.Helper()
	priv, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	return priv, pub
}

// TestHandshake_RoundTrip drives a full XX handshake end to end between an
// initiator and a responder HandshakeState and checks both sides derive
// matching transport ciphers.
func TestHandshake_RoundTrip(t *testing.T) {
	iPriv, iPub := genIdentity(t)
	rPriv, rPub := genIdentity(t)
	prologue := []byte("bitchat-v2")

	i := noise.NewHandshakeState(noise.RoleInitiator, iPriv, iPub, prologue)
	r := noise.NewHandshakeState(noise.RoleResponder, rPriv, rPub, prologue)

	msg1, err := i.WriteMessage(nil)
	require.NoError(t, err)
	_, err = r.ReadMessage(msg1)
	require.NoError(t, err)

	msg2, err := r.WriteMessage(nil)
	require.NoError(t, err)
	_, err = i.ReadMessage(msg2)
	require.NoError(t, err)

	msg3, err := i.WriteMessage(nil)
	require.NoError(t, err)
	_, err = r.ReadMessage(msg3)
	require.NoError(t, err)

	require.True(t, i.Done())
	require.True(t, r.Done())
	require.Equal(t, rPub, i.RemoteStatic())
	require.Equal(t, iPub, r.RemoteStatic())

	iSend, iRecv := i.Split()
	rSend, rRecv := r.Split()

	nonce, ct, err := iSend.Encrypt(nil, []byte("hello responder"))
	require.NoError(t, err)
	pt, err := rRecv.DecryptAt(nonce, nil, ct)
	require.NoError(t, err)
	require.Equal(t, "hello responder", string(pt))

	nonce, ct, err = rSend.Encrypt(nil, []byte("hello initiator"))
	require.NoError(t, err)
	pt, err = iRecv.DecryptAt(nonce, nil, ct)
	require.NoError(t, err)
	require.Equal(t, "hello initiator", string(pt))
}

// TestHandshake_WrongPrologueFails checks a mismatched application/version
// prologue causes the handshake transcript to diverge and decryption to
// fail rather than silently succeeding with the wrong keys.
func TestHandshake_WrongPrologueFails(t *testing.T) {
	iPriv, iPub := genIdentity(t)
	rPriv, rPub := genIdentity(t)

	i := noise.NewHandshakeState(noise.RoleInitiator, iPriv, iPub, []byte("v2"))
	r := noise.NewHandshakeState(noise.RoleResponder, rPriv, rPub, []byte("v3"))

	msg1, err := i.WriteMessage(nil)
	require.NoError(t, err)
	_, err = r.ReadMessage(msg1)
	require.NoError(t, err) // message 1 carries no key material yet

	msg2, err := r.WriteMessage(nil)
	require.NoError(t, err)
	_, err = i.ReadMessage(msg2)
	require.Error(t, err)
}

func TestResolveRole_HigherStaticKeyInitiates(t *testing.T) {
	var low, high domain.X25519Public
	low[0] = 0x01
	high[0] = 0x02

	m1 := noise.NewManager(domain.X25519Private{}, high, []byte("p"))
	m2 := noise.NewManager(domain.X25519Private{}, low, []byte("p"))

	var peerOfM1, peerOfM2 domain.PeerID
	peerOfM1[0] = 0xAA
	peerOfM2[0] = 0xBB

	// m1 (higher static key) sees m2's lower key and must initiate.
	msg, err := m1.StartHandshake(peerOfM2, low)
	require.NoError(t, err)
	require.NotNil(t, msg)

	// m2 (lower static key) sees m1's higher key and must wait.
	msg, err = m2.StartHandshake(peerOfM1, high)
	require.NoError(t, err)
	require.Nil(t, msg)
}

// TestManager_FullHandshakeAndTransport exercises the Manager pair end to
// end: StartHandshake on one side, HandleHandshakeMessage on the other,
// alternating until both sides report Established, then a transport
// message each way through Encrypt/Decrypt.
func TestManager_FullHandshakeAndTransport(t *testing.T) {
	aPriv, aPub := genIdentity(t)
	bPriv, bPub := genIdentity(t)
	prologue := []byte("bitchat-v2")

	var aPeer, bPeer domain.PeerID
	aPeer[0] = 0x01
	bPeer[0] = 0x02

	mgrA := noise.NewManager(aPriv, aPub, prologue)
	mgrB := noise.NewManager(bPriv, bPub, prologue)

	// Force a deterministic initiator regardless of random key ordering by
	// driving the handshake from whichever side StartHandshake actually
	// produces a message for.
	msg, err := mgrA.StartHandshake(bPeer, bPub)
	require.NoError(t, err)

	initiator, responder := mgrA, mgrB
	initiatorOfPeer, responderOfPeer := bPeer, aPeer
	if msg == nil {
		msg, err = mgrB.StartHandshake(aPeer, aPub)
		require.NoError(t, err)
		require.NotNil(t, msg)
		initiator, responder = mgrB, mgrA
		initiatorOfPeer, responderOfPeer = aPeer, bPeer
	}

	reply, established, err := responder.HandleHandshakeMessage(responderOfPeer, func() domain.X25519Public {
		if responder == mgrA {
			return bPub
		}
		return aPub
	}(), msg)
	require.NoError(t, err)
	require.False(t, established)
	require.NotNil(t, reply)

	reply2, established, err := initiator.HandleHandshakeMessage(initiatorOfPeer, func() domain.X25519Public {
		if initiator == mgrA {
			return bPub
		}
		return aPub
	}(), reply)
	require.NoError(t, err)
	require.True(t, established)
	require.NotNil(t, reply2)

	_, established, err = responder.HandleHandshakeMessage(responderOfPeer, func() domain.X25519Public {
		if responder == mgrA {
			return bPub
		}
		return aPub
	}(), reply2)
	require.NoError(t, err)
	require.True(t, established)

	sA, ok := mgrA.Session(bPeer)
	require.True(t, ok)
	require.True(t, sA.Established())
	sB, ok := mgrB.Session(aPeer)
	require.True(t, ok)
	require.True(t, sB.Established())

	nonce, ct, err := mgrA.Encrypt(bPeer, nil, []byte("ping"))
	require.NoError(t, err)
	pt, err := mgrB.Decrypt(aPeer, nonce, nil, ct)
	require.NoError(t, err)
	require.Equal(t, "ping", string(pt))
}

func TestReplayWindow_RejectsDuplicateAndStale(t *testing.T) {
	w := noise.NewReplayWindow(64)

	require.NoError(t, w.Accept(10))
	require.Error(t, w.Accept(10)) // duplicate

	require.NoError(t, w.Accept(11))
	require.NoError(t, w.Accept(9)) // within window, not yet seen

	require.Error(t, w.Accept(9)) // now a duplicate

	// Jump far ahead; anything from the old window is now stale.
	require.NoError(t, w.Accept(1000))
	require.Error(t, w.Accept(10))
}

func TestReplayWindow_AcceptsOutOfOrderWithinBudget(t *testing.T) {
	w := noise.NewReplayWindow(noise.DefaultReplayWindow)

	order := []uint64{5, 3, 4, 1, 2, 0, 6}
	for _, n := range order {
		require.NoError(t, w.Accept(n), "nonce %d", n)
	}
	require.Error(t, w.Accept(3))
}

func TestSession_ExpiredHandshakeIsSwept(t *testing.T) {
	aPriv, aPub := genIdentity(t)
	_, bPub := genIdentity(t)
	mgr := noise.NewManager(aPriv, aPub, []byte("p"))

	var peer domain.PeerID
	peer[0] = 0x09

	_, err := mgr.StartHandshake(peer, bPub)
	require.NoError(t, err)

	dead := mgr.Sweep(time.Now().Add(noise.HandshakeTimeout + time.Second))
	require.Len(t, dead, 1)
	require.Equal(t, peer, dead[0].Peer)
	require.Equal(t, bcerr.ErrHandshakeTimeout.Error(), dead[0].Reason)

	s, ok := mgr.Session(peer)
	require.True(t, ok)
	require.Equal(t, noise.StateDead, s.State())
}
