// Command relay runs the standalone WebSocket relay server the Relay
// Transport's WSClient dials: a Nostr-style event fan-out with no
// persistence, health check, and Prometheus metrics.
package main

import (
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"bitchat/internal/logging"
	"bitchat/internal/relayserver"
)

func main() {
	_ = godotenv.Load()

	log := logging.New(logging.Config{ServiceName: "bitchat-relay", Level: os.Getenv("RELAY_LOG_LEVEL")})
	relayserver.MustRegister()

	hub := relayserver.NewHub(log)
	router := relayserver.NewRouter(hub, log, relayserver.ServerConfig{
		AllowedOrigins: originsFromEnv("RELAY_CORS_ORIGINS"),
	})

	addr := envOr("RELAY_LISTEN_ADDR", ":8080")
	log.Info("relay listening", "addr", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Error("relay server exited", "err", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func originsFromEnv(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, o := range strings.Split(v, ",") {
		if s := strings.TrimSpace(o); s != "" {
			out = append(out, s)
		}
	}
	return out
}
