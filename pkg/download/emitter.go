package download

import (
	"context"
	"sync"

	pkgerrors "github.com/glorpus-work/deskshell/pkg/errors"
	"github.com/glorpus-work/deskshell/pkg/event"
)

// Emitter reports the progress and outcome of one download. Every caller
// requesting the same URL while it is in flight shares the same Emitter.
type Emitter struct {
	url string
	pub event.Publisher[Event]

	once    sync.Once
	done    chan struct{}
	result  Event
	aborted bool
}

func newEmitter(url string) *Emitter {
	return &Emitter{url: url, done: make(chan struct{})}
}

// URL returns the source URL.
func (em *Emitter) URL() string { return em.url }

// Subscribe registers fn and replays the latest event, if any. An aborted
// download publishes nothing, so callers also watch Done or call Wait.
func (em *Emitter) Subscribe(fn func(Event)) (unsubscribe func()) {
	return em.pub.Subscribe(fn)
}

// Done is closed once the download finished, failed or was aborted.
func (em *Emitter) Done() <-chan struct{} { return em.done }

// Wait blocks until the download settles. A failed download returns its
// failed event together with the failure; an aborted one returns ErrAborted.
func (em *Emitter) Wait(ctx context.Context) (Event, error) {
	select {
	case <-em.done:
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
	if em.aborted {
		return Event{}, pkgerrors.ErrAborted
	}
	if em.result.Kind == EventFailed {
		return em.result, em.result.Err
	}
	return em.result, nil
}

func (em *Emitter) progress(percent int) {
	em.pub.Publish(Event{Kind: EventProgress, Percent: percent})
}

func (em *Emitter) settle(ev Event) {
	em.once.Do(func() {
		em.result = ev
		em.pub.Publish(ev)
		close(em.done)
	})
}

func (em *Emitter) abort() {
	em.once.Do(func() {
		em.aborted = true
		em.pub.Close()
		close(em.done)
	})
}
