// Package app wires application dependencies for the CLI.
//
// It builds the concrete stores, transports, router, pipeline and pending
// file manager from Config, exposing them via the Wire struct for commands
// to use.
package app
