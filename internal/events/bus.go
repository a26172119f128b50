// SPDX-License-Identifier: EPL-2.0

// Package events fans stream notifications out to subscribers.
package events

import (
	"time"

	"github.com/ik5/pcmring/pcm"
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. It implements pcm.Listener; every
// subscriber runs on its own goroutine, so publishing never blocks the
// stream.
type Bus struct {
	dispatcher *event.Dispatcher
	now        func() time.Time
}

var _ pcm.Listener = (*Bus)(nil)

func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
		now:        time.Now,
	}
}

// Publish publishes an event to all subscribers of its type.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case StateChangedEvent:
		event.Publish(b.dispatcher, e)
	case PeriodElapsedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type it accepts and returns the
// unsubscribe function. Unknown handler types are ignored.
//
//	unsub := bus.Subscribe(func(e StateChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(StateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PeriodElapsedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

func (b *Bus) StateChanged(stream string, from, to pcm.State) {
	b.Publish(StateChangedEvent{Stream: stream, From: from, To: to, At: b.now()})
}

func (b *Bus) PeriodElapsed(stream string, st pcm.Status) {
	b.Publish(PeriodElapsedEvent{Stream: stream, Status: st, At: b.now()})
}
