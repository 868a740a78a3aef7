package client

import (
	"slices"
	"sync"

	"github.com/dmitrijs2005/dailybread/internal/client/models"
)

// eventHub fans lifecycle events out to subscribers. emitMu serializes
// deliveries so every subscriber observes the same order.
type eventHub struct {
	emitMu sync.Mutex

	mu       sync.Mutex
	nextID   int
	order    []int
	handlers map[int]func(models.AuthEvent)
}

func (h *eventHub) subscribe(fn func(models.AuthEvent), initial models.AuthEvent) *Subscription {
	h.emitMu.Lock()
	defer h.emitMu.Unlock()

	h.mu.Lock()
	if h.handlers == nil {
		h.handlers = make(map[int]func(models.AuthEvent))
	}
	id := h.nextID
	h.nextID++
	h.handlers[id] = fn
	h.order = append(h.order, id)
	h.mu.Unlock()

	fn(initial)

	return NewSubscription(func() { h.unsubscribe(id) })
}

func (h *eventHub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.handlers, id)
	h.order = slices.DeleteFunc(h.order, func(v int) bool { return v == id })
}

func (h *eventHub) emit(ev models.AuthEvent) {
	h.emitMu.Lock()
	defer h.emitMu.Unlock()

	h.mu.Lock()
	fns := make([]func(models.AuthEvent), 0, len(h.order))
	for _, id := range h.order {
		fns = append(fns, h.handlers[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
