// Package meshtransport composes the packet codec, fragmenter/reassembler,
// Noise session manager, dedup/TTL router, and BLE link manager into the
// public Mesh Transport contract (domain.Transport): peer lifecycle,
// broadcast and private sends, file transfer, and the receipt/ack/favorite
// side channels, all running against a caller-supplied BLE link abstraction
// so the same logic drives both real radios and the in-process simulator.
package meshtransport
