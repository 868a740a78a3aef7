package cache

import (
	"context"
	"sync"
)

type op func(ctx context.Context, c Cache)

// Writer applies cache mutations on a single background goroutine, in the
// order they were submitted. Submitters never wait for the write itself.
type Writer struct {
	cache Cache
	ops   chan op

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewWriter starts the background goroutine. Close stops it after the
// queued operations drain.
func NewWriter(c Cache, queue int) *Writer {
	w := &Writer{
		cache: c,
		ops:   make(chan op, queue),
		done:  make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Writer) loop() {
	defer close(w.done)
	ctx := context.Background()
	for o := range w.ops {
		o(ctx, w.cache)
	}
}

// submit reports false when the writer is already closed.
func (w *Writer) submit(o op) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	w.ops <- o
	return true
}

// Set queues a write.
func (w *Writer) Set(key, value string) {
	w.submit(func(ctx context.Context, c Cache) { c.Set(ctx, key, value) })
}

// RemoveAll queues an erase.
func (w *Writer) RemoveAll(keys []string) {
	keys = append([]string(nil), keys...)
	w.submit(func(ctx context.Context, c Cache) { c.RemoveAll(ctx, keys) })
}

// Do queues an arbitrary step that must run after the writes before it.
func (w *Writer) Do(fn func(ctx context.Context)) {
	w.submit(func(ctx context.Context, _ Cache) { fn(ctx) })
}

// Flush waits until everything queued before the call has been applied.
func (w *Writer) Flush(ctx context.Context) error {
	marker := make(chan struct{})
	if !w.submit(func(context.Context, Cache) { close(marker) }) {
		return nil
	}
	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue and stops the goroutine. Later submissions are dropped.
func (w *Writer) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ops)
	}
	w.mu.Unlock()
	<-w.done
}
