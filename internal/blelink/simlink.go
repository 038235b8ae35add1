package blelink

import (
	"context"
	"sync"
)

// SimLink is an in-process Link backed by Go channels instead of a radio.
// NewSimLinkPair wires two SimLinks together so a test or a simulated mesh
// of goroutines can exercise the rest of the transport stack without real
// BLE hardware.
type SimLink struct {
	remoteAddr string
	role       Role
	queue      *writeQueue
	inbox      chan []byte

	peer *SimLink // the other end of the pair; set by NewSimLinkPair

	mu     sync.Mutex
	closed bool
}

// NewSimLinkPair returns two connected SimLinks: central simulates the
// node at addrCentral dialing addrPeripheral, peripheral simulates the
// other side.
// Frames written to one arrive on the other's Frames channel.
func NewSimLinkPair(addrCentral, addrPeripheral string) (central, peripheral *SimLink) {
	central = &SimLink{
		remoteAddr: addrPeripheral,
		role:       RoleCentral,
		queue:      newWriteQueue(DefaultQueueCapacity),
		inbox:      make(chan []byte, DefaultQueueCapacity),
	}
	peripheral = &SimLink{
		remoteAddr: addrCentral,
		role:       RolePeripheral,
		queue:      newWriteQueue(DefaultQueueCapacity),
		inbox:      make(chan []byte, DefaultQueueCapacity),
	}
	central.peer = peripheral
	peripheral.peer = central

	go central.queue.drain(central.deliverToPeer)
	go peripheral.queue.drain(peripheral.deliverToPeer)

	return central, peripheral
}

func (s *SimLink) deliverToPeer(frame []byte) error {
	s.mu.Lock()
	peer := s.peer
	s.mu.Unlock()
	if peer == nil {
		return ErrClosed
	}
	select {
	case peer.inbox <- frame:
		return nil
	case <-peer.queue.done:
		return ErrClosed
	}
}

func (s *SimLink) RemoteAddr() string { return s.remoteAddr }

func (s *SimLink) Write(ctx context.Context, frame []byte) error {
	return s.queue.enqueue(ctx, frame)
}

func (s *SimLink) Frames() <-chan []byte { return s.inbox }

func (s *SimLink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.queue.close()
	return nil
}
