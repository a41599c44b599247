package service

import (
	"sync"

	"parkfinder/internal/model"
)

// event names a controller-internal state change other concerns react to
type event int

const (
	eventOriginChanged event = iota
	eventFacilityChecked
)

// eventBus is a synchronous publish/subscribe table. Handlers run in the
// publishing goroutine and must not be invoked with the controller lock held.
type eventBus struct {
	mu       sync.RWMutex
	handlers map[event][]func()
}

func newEventBus() *eventBus {
	return &eventBus{handlers: make(map[event][]func())}
}

func (b *eventBus) subscribe(ev event, fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[ev] = append(b.handlers[ev], fn)
}

func (b *eventBus) publish(ev event) {
	b.mu.RLock()
	handlers := append([]func(){}, b.handlers[ev]...)
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn()
	}
}

// observers fans state snapshots out to external listeners such as a map widget
type observers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(model.SessionState)
}

func (o *observers) add(fn func(model.SessionState)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[int]func(model.SessionState))
	}
	id := o.next
	o.next++
	o.fns[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.fns, id)
	}
}

func (o *observers) notify(state model.SessionState) {
	o.mu.Lock()
	fns := make([]func(model.SessionState), 0, len(o.fns))
	for _, fn := range o.fns {
		fns = append(fns, fn)
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(state)
	}
}
