package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"bitchat/internal/crypto"
)

func TestSealOpen_RoundTrip(t *testing.T) {
	aPriv, aPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	bPriv, bPub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	sealed, err := Seal(aPriv, bPub, []byte("hello relay"))
	require.NoError(t, err)

	plaintext, err := Open(bPriv, aPub, sealed)
	require.NoError(t, err)
	require.Equal(t, "hello relay", string(plaintext))
}

func TestSealOpen_WrongRecipientFails(t *testing.T) {
	aPriv, _, err := crypto.GenerateX25519()
	require.NoError(t, err)
	_, bPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	cPriv, _, err := crypto.GenerateX25519()
	require.NoError(t, err)

	sealed, err := Seal(aPriv, bPub, []byte("for bob only"))
	require.NoError(t, err)

	_, err = Open(cPriv, bPub, sealed)
	require.Error(t, err)
}

func TestSealOpen_ProducesDistinctCiphertextsEachCall(t *testing.T) {
	aPriv, _, err := crypto.GenerateX25519()
	require.NoError(t, err)
	_, bPub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	s1, err := Seal(aPriv, bPub, []byte("same content"))
	require.NoError(t, err)
	s2, err := Seal(aPriv, bPub, []byte("same content"))
	require.NoError(t, err)
	require.NotEqual(t, s1, s2)
}

func TestEvent_TagRoundTrip(t *testing.T) {
	ev := newEvent(KindEphemeralDM, "sender-hex", "recipient-hex", []byte{1, 2, 3}, 1000)
	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded event
	require.NoError(t, json.Unmarshal(raw, &decoded))

	to, ok := decoded.taggedRecipient()
	require.True(t, ok)
	require.Equal(t, "recipient-hex", to)

	sealed, err := decoded.sealedBytes()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, sealed)
}

// fakeRelayServer is a minimal relay that echoes every published EVENT back
// to every subscriber, regardless of filter — enough to exercise WSClient's
// publish/subscribe framing without needing a real relay implementation.
func fakeRelayServer(t *testing.T) (*httptest.Server, func()) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	var mu sync.Mutex
	var subscribers []*websocket.Conn

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		subscribers = append(subscribers, conn)
		mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame []json.RawMessage
			if err := json.Unmarshal(data, &frame); err != nil || len(frame) < 2 {
				continue
			}
			var verb string
			_ = json.Unmarshal(frame[0], &verb)
			if verb != "EVENT" {
				continue
			}
			out, err := json.Marshal([]json.RawMessage{frame[0], frame[1]})
			if err != nil {
				continue
			}
			mu.Lock()
			for _, sub := range subscribers {
				_ = sub.WriteMessage(websocket.TextMessage, out)
			}
			mu.Unlock()
		}
	}))
	return srv, func() { srv.Close() }
}

func TestWSClient_PublishSubscribeRoundTrip(t *testing.T) {
	srv, cleanup := fakeRelayServer(t)
	defer cleanup()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bobPub := "bob-hex-pub"
	publisher, err := NewWSClient(ctx, wsURL, "alice-hex-pub")
	require.NoError(t, err)
	defer publisher.Close()

	subscriber, err := NewWSClient(ctx, wsURL, bobPub)
	require.NoError(t, err)
	defer subscriber.Close()

	received := make(chan []byte, 1)
	go func() {
		_ = subscriber.Subscribe(ctx, bobPub, func(from string, sealed []byte) {
			require.Equal(t, "alice-hex-pub", from)
			received <- sealed
		})
	}()

	time.Sleep(50 * time.Millisecond) // let the REQ land before we publish
	require.NoError(t, publisher.Publish(ctx, bobPub, []byte("sealed-bytes")))

	select {
	case got := <-received:
		require.Equal(t, []byte("sealed-bytes"), got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relayed event")
	}
}
