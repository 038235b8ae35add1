package app_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"bitchat/internal/app"
	"bitchat/internal/crypto"
	"bitchat/internal/domain"
	"bitchat/internal/relayserver"
)

var testUpgrader = websocket.Upgrader{}

func testIdentity(t *testing.T) domain.Identity {
	t.Helper()
	xpriv, xpub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("generate x25519: %v", err)
	}
	edpriv, edpub, err := crypto.GenerateEd25519()
	if err != nil {
		t.Fatalf("generate ed25519: %v", err)
	}
	return domain.Identity{XPub: xpub, XPriv: xpriv, EdPub: edpub, EdPriv: edpriv, Nickname: "tester"}
}

func TestNewWire_MeshOnlyWhenNoRelayURL(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wire, err := app.NewWire(ctx, app.Config{Home: t.TempDir(), Nickname: "tester"}, testIdentity(t))
	if err != nil {
		t.Fatalf("new wire: %v", err)
	}
	if wire.Relay != nil {
		t.Fatal("expected no relay transport when RelayURL is empty")
	}
	if wire.Mesh == nil || wire.Router == nil || wire.Pipeline == nil || wire.Pending == nil {
		t.Fatal("expected every core component to be built")
	}
}

func TestNewWire_BuildsRelayWhenURLSet(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := relayserver.NewHub(log)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		hub.Serve(ws)
	}))
	defer srv.Close()

	relayURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wire, err := app.NewWire(ctx, app.Config{
		Home: t.TempDir(), Nickname: "tester", RelayURL: relayURL,
	}, testIdentity(t))
	if err != nil {
		t.Fatalf("new wire: %v", err)
	}
	if wire.Relay == nil {
		t.Fatal("expected relay transport to be built when RelayURL is set")
	}
}

func TestNewWire_FailsOnUnreachableRelay(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := app.NewWire(ctx, app.Config{
		Home: t.TempDir(), Nickname: "tester", RelayURL: "ws://127.0.0.1:1/unreachable",
	}, testIdentity(t))
	if err == nil {
		t.Fatal("expected an error dialing an unreachable relay")
	}
}
