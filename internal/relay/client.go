package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"bitchat/internal/domain"
)

// DialTimeout bounds how long connecting to a relay may take.
const DialTimeout = 10 * time.Second

// WriteTimeout bounds how long a single Publish write may block.
const WriteTimeout = 5 * time.Second

// WSClient is a domain.RelayClient over a single relay's WebSocket
// endpoint. It does not retry or pool connections across relays — a
// multi-relay fan-out, if the caller wants one, is a matter of holding
// several WSClients, not a concern of this type.
type WSClient struct {
	url    string
	pubKey string // hex-encoded identity this client publishes events as

	mu   sync.Mutex
	conn *websocket.Conn

	now func() time.Time
}

var _ domain.RelayClient = (*WSClient)(nil)

// NewWSClient dials url and returns a client that publishes events under
// pubKey (the local node's hex-encoded long-term X25519 public key), set as
// each event's pubkey field. Events are not signed.
func NewWSClient(ctx context.Context, url string, pubKey string) (*WSClient, error) {
	dialer := websocket.Dialer{HandshakeTimeout: DialTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("relay dial %s: %w", url, err)
	}
	return &WSClient{url: url, pubKey: pubKey, conn: conn, now: time.Now}, nil
}

// Publish sends a sealed payload addressed to toPubKey as a single
// ephemeral-DM event.
func (c *WSClient) Publish(ctx context.Context, toPubKey string, sealed []byte) error {
	ev := newEvent(KindEphemeralDM, c.pubKey, toPubKey, sealed, c.now().Unix())
	frame, err := json.Marshal(clientMessage{Verb: "EVENT", Args: []any{ev}})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("relay %s: not connected", c.url)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(WriteTimeout)
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// Subscribe opens a REQ filtered to events tagged to selfPubKey and invokes
// handler for each sealed payload received, until ctx is cancelled or the
// connection fails. It blocks; callers run it in its own goroutine.
func (c *WSClient) Subscribe(ctx context.Context, selfPubKey string, handler func(fromPubKey string, sealed []byte)) error {
	sub := json.RawMessage(fmt.Sprintf(`{"#p":["%s"],"kinds":[%d]}`, selfPubKey, KindEphemeralDM))
	frame, err := json.Marshal(clientMessage{Verb: "REQ", Args: []any{"bitchat-sub", sub}})
	if err != nil {
		return err
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("relay %s: not connected", c.url)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			c.dispatch(data, selfPubKey, handler)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// dispatch unwraps one relay-framed message. Relays frame pushed events as
// ["EVENT", "<subID>", event]; anything else (EOSE, NOTICE, OK) is ignored.
func (c *WSClient) dispatch(raw []byte, selfPubKey string, handler func(string, []byte)) {
	var frame []json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil || len(frame) < 2 {
		return
	}
	var verb string
	if err := json.Unmarshal(frame[0], &verb); err != nil || verb != "EVENT" {
		return
	}
	var ev event
	if err := json.Unmarshal(frame[len(frame)-1], &ev); err != nil {
		return
	}
	if to, ok := ev.taggedRecipient(); !ok || to != selfPubKey {
		return
	}
	sealed, err := ev.sealedBytes()
	if err != nil {
		return
	}
	handler(ev.PubKey, sealed)
}

// Close terminates the underlying WebSocket connection. Idempotent.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
