// Package watch provides an observable value with ordered, lossless
// fan-out to any number of subscribers.
package watch

import (
	"context"
	"sync"
)

// Value holds the latest T and delivers every stored value to each
// subscriber in store order. Store never blocks on slow subscribers;
// each subscriber owns an unbounded queue drained by its own goroutine.
type Value[T any] struct {
	mu     sync.Mutex
	cur    T
	set    bool
	closed bool
	subs   map[*subscriber[T]]struct{}
}

type subscriber[T any] struct {
	mu    sync.Mutex
	queue []T
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// New returns a Value with nothing stored yet.
func New[T any]() *Value[T] {
	return &Value[T]{subs: make(map[*subscriber[T]]struct{})}
}

// NewWith returns a Value holding initial.
func NewWith[T any](initial T) *Value[T] {
	v := New[T]()
	v.cur = initial
	v.set = true
	return v
}

// Load returns the latest value and whether one was ever stored.
func (v *Value[T]) Load() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur, v.set
}

// Store records x and queues it for every subscriber.
// Stores after Close are ignored.
func (v *Value[T]) Store(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.cur = x
	v.set = true
	for s := range v.subs {
		s.push(x)
	}
}

// Subscribe returns a channel that first yields the current value (if any)
// and then every subsequent Store. The channel is closed when ctx ends or
// the Value is closed; values queued before Close are still delivered.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	out := make(chan T)
	s := &subscriber[T]{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		close(out)
		return out
	}
	if v.set {
		s.push(v.cur)
	}
	v.subs[s] = struct{}{}
	v.mu.Unlock()

	go v.pump(ctx, s, out)
	return out
}

// Close ends all subscriptions.
func (v *Value[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	for s := range v.subs {
		s.stop()
		delete(v.subs, s)
	}
}

func (v *Value[T]) pump(ctx context.Context, s *subscriber[T], out chan<- T) {
	defer close(out)
	defer v.remove(s)

	for {
		stopping := false
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-s.done:
			stopping = true
		}

		for _, item := range s.take() {
			select {
			case out <- item:
			case <-ctx.Done():
				return
			}
		}
		if stopping {
			return
		}
	}
}

func (v *Value[T]) remove(s *subscriber[T]) {
	v.mu.Lock()
	delete(v.subs, s)
	v.mu.Unlock()
	s.stop()
}

func (s *subscriber[T]) push(x T) {
	s.mu.Lock()
	s.queue = append(s.queue, x)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber[T]) take() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.queue
	s.queue = nil
	return items
}

func (s *subscriber[T]) stop() {
	s.once.Do(func() { close(s.done) })
}
