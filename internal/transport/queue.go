// Package transport holds pieces shared by the tcp and ws transports.
package transport

import (
	"errors"
	"sync"
)

var (
	// ErrClosed is returned by Send after the queue was closed.
	ErrClosed = errors.New("connection closed")
	// ErrQueueFull is returned by Send when the peer is not draining fast enough.
	ErrQueueFull = errors.New("send queue full")
)

// Queue is a bounded outbound buffer drained by a connection's write loop.
// Send never blocks: a full queue drops the frame.
type Queue struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

// NewQueue creates a queue holding up to size frames.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{ch: make(chan []byte, size)}
}

// Send enqueues data.
func (q *Queue) Send(data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting frames and ends the write loop once the buffer drains.
// It is safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// C returns the channel the write loop ranges over.
func (q *Queue) C() <-chan []byte {
	return q.ch
}
