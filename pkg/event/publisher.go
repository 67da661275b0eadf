// Package event provides a small typed publish/subscribe hub that remembers
// the last published value and replays it to new subscribers.
package event

import (
	"slices"
	"sync"
)

// Publisher fans values of type T out to subscribers. The zero value is ready to use.
type Publisher[T any] struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]func(T)
	last    T
	hasLast bool
	closed  bool
}

// Subscribe registers fn and, when a value was published before, calls fn with
// it synchronously before returning. The returned func removes the subscription.
// Subscribing to a closed publisher is a no-op.
func (p *Publisher[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return func() {}
	}
	if p.subs == nil {
		p.subs = make(map[int]func(T))
	}
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	last, replay := p.last, p.hasLast
	p.mu.Unlock()

	if replay {
		fn(last)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Publish records v as the latest value and delivers it to every subscriber in
// subscription order. Subscribers run on the publishing goroutine.
func (p *Publisher[T]) Publish(v T) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.last, p.hasLast = v, true
	ids := make([]int, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	fns := make([]func(T), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, p.subs[id])
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Close drops every subscriber and the remembered value. Later Publish and
// Subscribe calls do nothing.
func (p *Publisher[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	var zero T
	p.closed = true
	p.subs = nil
	p.last, p.hasLast = zero, false
}

// Last returns the most recently published value.
func (p *Publisher[T]) Last() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasLast
}
