// Package pipeline implements the Public Message Pipeline: a short
// batching window that collects inbound public messages from any
// transport, then on flush sorts, deduplicates, and hands each surviving
// message to a domain.PipelineSink in order.
//
// The batching/flush loop follows the same ticker-driven housekeeping
// shape internal/meshtransport uses for its own loop, generalized to run
// off a timer.Clock so tests can drive it with a VirtualClock instead of
// sleeping real milliseconds.
package pipeline
