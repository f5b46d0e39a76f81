// Package apicall runs one request at a time on behalf of a consumer that
// only cares about the answer to its latest question.
package apicall

import (
	"context"
	"sync"
)

// Call holds the outcome of the most recent Run. Starting a new Run cancels
// the previous one; a superseded or closed run never changes the result.
type Call[T any] struct {
	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	result  T
	err     error
	loading bool
	closed  bool
}

func New[T any]() *Call[T] {
	return &Call[T]{}
}

// Run cancels any in-flight call and starts fn in a goroutine. The returned
// channel is closed once fn has returned and its outcome was applied or
// discarded.
func (c *Call[T]) Run(parent context.Context, fn func(ctx context.Context) (T, error)) <-chan struct{} {
	done := make(chan struct{})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(done)
		return done
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	seq := c.seq
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.loading = true
	c.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		v, err := fn(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || seq != c.seq {
			return
		}
		c.result, c.err, c.loading = v, err, false
		c.cancel = nil
	}()
	return done
}

// Result returns the latest applied outcome and whether a call is in flight.
func (c *Call[T]) Result() (v T, loading bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.loading, c.err
}

// Close cancels any in-flight call. Later outcomes are discarded and Run
// becomes a no-op.
func (c *Call[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.loading = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Parsed adapts a fetch returning raw data and a parser into a function
// suitable for Run.
func Parsed[R, T any](fetch func(ctx context.Context) (R, error), parse func(R) (T, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		raw, err := fetch(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		return parse(raw)
	}
}
