// Package commands implements the bitchat CLI: identity management,
// favorite/block bookkeeping, the long-running start loop, and the
// panic data wipe.
package commands
