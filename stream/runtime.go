// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/sync/once"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/strm/errors"
	"github.com/grailbio/strm/log"
	"github.com/grailbio/strm/poll"
	"github.com/grailbio/strm/trace"
	"github.com/grailbio/strm/values"
)

const (
	// DefaultHighWater is the default number of buffered output bytes
	// above which a WriteIO stream applies backpressure.
	DefaultHighWater = 64 << 10
	// DefaultLowWater is the default number of buffered output bytes
	// below which a WriteIO stream releases backpressure.
	DefaultLowWater = 16 << 10
)

// Poller is the readiness notification mechanism used by a Runtime.
// *poll.Poller implements Poller.
type Poller interface {
	// Add starts watching fd for readiness in direction dir.
	Add(fd int, dir poll.Dir) error
	// Remove stops watching fd in direction dir.
	Remove(fd int, dir poll.Dir) error
	// Wait blocks until a watched descriptor is ready or the poller
	// is woken.
	Wait(ctx context.Context) ([]poll.Event, error)
	// Wake interrupts Wait. It must be safe to call concurrently
	// with Wait.
	Wake() error
	// Close releases the poller.
	Close() error
}

// An Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime's logger.
func WithLogger(l *log.Logger) Option {
	return func(rt *Runtime) { rt.Log = l }
}

// WithPoller sets the runtime's poller. By default, a poll.Poller is
// created when the first descriptor is bound.
func WithPoller(p Poller) Option {
	return func(rt *Runtime) { rt.poller = p }
}

// WithHighWater sets the write buffer high watermark for WriteIO
// streams.
func WithHighWater(n int) Option {
	return func(rt *Runtime) { rt.HighWater = n }
}

// WithLowWater sets the write buffer low watermark for WriteIO
// streams.
func WithLowWater(n int) Option {
	return func(rt *Runtime) { rt.LowWater = n }
}

// WithTracer sets the tracer that receives the lifetimes of the
// runtime's streams and descriptor bindings.
func WithTracer(t trace.Tracer) Option {
	return func(rt *Runtime) { rt.tracer = t }
}

type watch struct {
	stream *Stream
	fn     Func
	// done ends the binding's trace span.
	done func()
}

// A Runtime owns a task queue and the streams scheduled on it, and
// drives them with Loop. Independent runtimes may be driven in
// parallel; see RunAll.
type Runtime struct {
	// Log receives runtime and stream diagnostics.
	Log *log.Logger
	// HighWater and LowWater are the write buffer watermarks of
	// WriteIO streams.
	HighWater, LowWater int

	queue  Queue
	tracer trace.Tracer

	nextID  int
	pending []*Stream

	watches map[poll.Event]watch

	pollerOnce once.Task
	mu         sync.Mutex
	poller     Poller
	// sleeping is set while the loop is (about to be) blocked in the
	// poller.
	sleeping int32
}

// New returns a new runtime configured by the provided options.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		HighWater: DefaultHighWater,
		LowWater:  DefaultLowWater,
		watches:   make(map[poll.Event]watch),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.LowWater > rt.HighWater {
		rt.LowWater = rt.HighWater
	}
	rt.Log = rt.Log.Tee(nil, "runtime: ")
	return rt
}

// NewStream creates a new stream with the provided mode, callbacks and
// user data. Start is invoked for each value delivered to the stream,
// or once to kick off a producer; close is invoked when the stream is
// closed. Either may be nil.
func (rt *Runtime) NewStream(mode Mode, start, close Func, data interface{}) *Stream {
	rt.nextID++
	s := &Stream{
		ID:    rt.nextID,
		Mode:  mode,
		Data:  data,
		rt:    rt,
		start: start,
		close: close,
	}
	s.Log = rt.Log.Tee(nil, fmt.Sprintf("stream %d: ", s.ID))
	s.span = trace.Span{Kind: trace.Stream, ID: s.ID, Name: s.String()}
	s.endSpan = trace.Start(rt.tracer, s.span)
	if mode == Producer {
		rt.pending = append(rt.pending, s)
	}
	s.Log.Debugf("new %s", mode)
	return s
}

// Push enqueues a task and wakes the loop if it is blocked. Push may
// be called from any goroutine.
func (rt *Runtime) Push(t *Task) {
	rt.queue.Push(t)
	if atomic.LoadInt32(&rt.sleeping) == 1 {
		rt.wake()
	}
}

// Pending returns the number of queued tasks.
func (rt *Runtime) Pending() int {
	return rt.queue.Size()
}

func (rt *Runtime) wake() {
	rt.mu.Lock()
	p := rt.poller
	rt.mu.Unlock()
	if p == nil {
		return
	}
	if err := p.Wake(); err != nil {
		rt.Log.Errorf("wake: %v", err)
	}
}

// startPending schedules producers that have not yet been started.
func (rt *Runtime) startPending() {
	pending := rt.pending
	rt.pending = nil
	for _, s := range pending {
		s.Start()
	}
}

// Loop drives the runtime: it starts pending producers and runs
// queued tasks until the queue is empty. If descriptors are bound, it
// then blocks until one is ready, schedules its callback, and
// repeats. Loop returns nil once the queue is empty and no
// descriptors are bound, or an error if the context is done or the
// poller fails.
//
// Tasks pushed from other goroutines are run only while the loop is
// active; a loop with no bound descriptors does not wait for them.
func (rt *Runtime) Loop(ctx context.Context) error {
	const op = "stream.Loop"
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			rt.wake()
		case <-done:
		}
	}()
	for {
		if err := ctx.Err(); err != nil {
			return errors.E(op, err)
		}
		rt.startPending()
		for rt.queue.Exec() {
			if err := ctx.Err(); err != nil {
				return errors.E(op, err)
			}
		}
		if len(rt.pending) > 0 {
			continue
		}
		if len(rt.watches) == 0 {
			return nil
		}
		atomic.StoreInt32(&rt.sleeping, 1)
		// Recheck after publishing the sleep so that a concurrent
		// Push either sees it or its task is seen here.
		if rt.queue.NonEmpty() {
			atomic.StoreInt32(&rt.sleeping, 0)
			continue
		}
		events, err := rt.poller.Wait(ctx)
		atomic.StoreInt32(&rt.sleeping, 0)
		if err != nil {
			return errors.E(op, err)
		}
		for _, ev := range events {
			w, ok := rt.watches[ev]
			if !ok {
				continue
			}
			t := NewTask(w.stream, w.fn, values.Int(int64(ev.FD)))
			t.force = true
			rt.queue.Push(t)
		}
	}
}

// Close releases the runtime's poller, if any.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	p := rt.poller
	rt.poller = nil
	rt.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Close()
}

// getPoller returns the runtime's poller, creating it on first use.
func (rt *Runtime) getPoller() (Poller, error) {
	err := rt.pollerOnce.Do(func() error {
		rt.mu.Lock()
		defer rt.mu.Unlock()
		if rt.poller != nil {
			return nil
		}
		p, err := poll.New()
		if err != nil {
			return err
		}
		rt.poller = p
		rt.Log.Debug("created epoll poller")
		return nil
	})
	if err != nil {
		return nil, errors.E("stream.poller", err)
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.poller == nil {
		return nil, errors.E("stream.poller", errors.Closed)
	}
	return rt.poller, nil
}

// RunAll drives the provided runtimes in parallel, each on its own
// goroutine, and returns the first error.
func RunAll(ctx context.Context, rts ...*Runtime) error {
	return traverse.Each(len(rts), func(i int) error {
		return rts[i].Loop(ctx)
	})
}
