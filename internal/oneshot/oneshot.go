// Package oneshot implements a single-use value channel, grounded on the
// same mutex/condvar shape as internal/mpmc but specialised to a single
// transfer. internal/procpool uses three per spawned child, one for each of
// its stdin/stdout/stderr IO goroutines, to join them back to the manager
// goroutine that builds the Result.
package oneshot

import "sync"

type shared[T any] struct {
	mu     sync.Mutex
	cond   sync.Cond
	value  T
	filled bool
	closed bool
}

// Sender is the single-use producer half of a channel created by New.
type Sender[T any] struct {
	s *shared[T]
}

// Receiver is the single-use consumer half of a channel created by New.
type Receiver[T any] struct {
	s *shared[T]
}

// New creates a paired Sender and Receiver.
func New[T any]() (Sender[T], Receiver[T]) {
	s := &shared[T]{}
	s.cond.L = &s.mu
	return Sender[T]{s: s}, Receiver[T]{s: s}
}

// Send deposits value and wakes the receiver. It fails, returning value back
// via ClosedError, if the receiver has already dropped the channel.
//
// Unlike the Rust original this method does not consume the Sender by value
// (Go has no move semantics), but callers must still only call it once; a
// second Send on the same Sender is a programming error and panics, matching
// the "sender not yet consumed or dropped" assertion it is grounded on.
func (x Sender[T]) Send(value T) error {
	x.s.mu.Lock()
	defer x.s.mu.Unlock()
	if x.s.filled {
		panic("oneshot: send called more than once")
	}
	if x.s.closed {
		return &ClosedError[T]{Value: value}
	}
	x.s.value = value
	x.s.filled = true
	x.s.cond.Signal()
	return nil
}

// Close drops the sender without sending, marking the channel closed so a
// blocked or future Receiver.Recv returns ok == false. Safe to call after a
// successful Send (no-op in that case).
func (x Sender[T]) Close() {
	x.s.mu.Lock()
	if !x.s.filled {
		x.s.closed = true
		x.s.cond.Signal()
	}
	x.s.mu.Unlock()
}

// Recv blocks until a value has been sent or the sender has closed without
// sending, in which case ok is false.
func (x Receiver[T]) Recv() (value T, ok bool) {
	x.s.mu.Lock()
	defer x.s.mu.Unlock()
	for !x.s.filled && !x.s.closed {
		x.s.cond.Wait()
	}
	if x.s.filled {
		return x.s.value, true
	}
	return value, false
}

// Close drops the receiver without waiting for a value. A Sender.Send racing
// with this call observes the channel as closed and returns ClosedError.
func (x Receiver[T]) Close() {
	x.s.mu.Lock()
	x.s.closed = true
	x.s.cond.Signal()
	x.s.mu.Unlock()
}

// ClosedError is returned by Sender.Send when the receiver has already
// dropped the channel. It carries the value that couldn't be delivered.
type ClosedError[T any] struct {
	Value T
}

func (e *ClosedError[T]) Error() string {
	return "oneshot: send on channel with no receiver"
}
