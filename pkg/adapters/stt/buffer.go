package stt

import "sync"

// Buffer decouples SDK callbacks from the session loop. Push never blocks and
// never drops: events queue without bound and a forwarder delivers them on
// Events in push order. Pushes after Close are ignored, since callbacks may
// fire on their own goroutines after the handle is released.
type Buffer struct {
	mu     sync.Mutex
	queue  []Event
	closed bool
	wake   chan struct{}
	stop   chan struct{}
	out    chan Event
}

func NewBuffer() *Buffer {
	b := &Buffer{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		out:  make(chan Event),
	}
	go b.forward()
	return b
}

// Push queues ev. It reports false only when the buffer is closed.
func (b *Buffer) Push(ev Event) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.queue = append(b.queue, ev)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of events not yet handed to the reader.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Close stops delivery and closes Events. Undelivered events are discarded.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		b.queue = nil
		close(b.stop)
	}
}

func (b *Buffer) Events() <-chan Event { return b.out }

func (b *Buffer) forward() {
	defer close(b.out)
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return
		}
		if len(b.queue) == 0 {
			b.mu.Unlock()
			select {
			case <-b.wake:
				continue
			case <-b.stop:
				return
			}
		}
		ev := b.queue[0]
		b.queue[0] = Event{}
		b.queue = b.queue[1:]
		b.mu.Unlock()

		select {
		case b.out <- ev:
		case <-b.stop:
			return
		}
	}
}
