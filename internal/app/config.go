package app

import "time"

// Config carries the runtime wiring options for building a Wire. Values
// are typically layered from environment variables and an optional .env
// file (see cmd/bitchat/commands, which loads both via godotenv before
// constructing a Config).
type Config struct {
	// Home is the directory identity.json.enc and favorites.json live in.
	Home string

	// Nickname is the display name advertised in this node's Announce
	// packets.
	Nickname string

	// RelayURL, if set, is the WebSocket relay the Relay Transport dials
	// on Start. Left empty, the Relay Transport is not constructed and
	// the Message Router falls back to mesh-only delivery.
	RelayURL string

	// MTU and BroadcastTTL tune the Mesh Transport; zero values take the
	// transport's own defaults.
	MTU          int
	BroadcastTTL uint8

	// OutboxTTL bounds how long the Message Router holds an undeliverable
	// private send or file transfer before giving up. Zero takes
	// messagerouter.DefaultOutboxTTL.
	OutboxTTL time.Duration

	// LogLevel is one of "debug", "info", "warn", "error"; empty defaults
	// to "info" (see internal/logging).
	LogLevel string
}
