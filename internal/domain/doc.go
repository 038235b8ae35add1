// Package domain defines the core wire types, state records, and narrow
// interfaces shared across bitchat's transport, crypto, and service layers.
//
// It contains plain data (wire/state) and contracts (interfaces) only — no
// behaviour. Every external collaborator the core needs (a transport, an
// identity store, a pipeline sink, a pending-file sink) is captured by a
// small interface here so the core can be exercised with in-memory fakes.
package domain
