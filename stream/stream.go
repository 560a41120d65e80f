// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package stream implements a single-threaded, cooperative dataflow
// runtime. Streams are nodes in a directed graph: producers emit
// values, filters transform them, and consumers absorb them. Every
// unit of work, whether a delivery, a close notification, or an I/O
// readiness callback, is a Task on the owning Runtime's FIFO queue;
// a task runs to completion before the next one starts.
//
// Stream methods are not safe for concurrent use: they must be
// called from the goroutine driving the runtime's loop (or before the
// loop is started). Runtime.Push is the only operation that may be
// called from other goroutines.
package stream

import (
	"fmt"
	"strconv"

	"github.com/grailbio/strm/errors"
	"github.com/grailbio/strm/log"
	"github.com/grailbio/strm/trace"
	"github.com/grailbio/strm/values"
)

// Mode is the role of a stream in the graph.
type Mode int

const (
	// Producer streams originate values. They have no upstreams.
	Producer Mode = iota
	// Filter streams receive values and emit (possibly other) values.
	Filter
	// Consumer streams receive values. They have no destinations.
	Consumer
)

func (m Mode) String() string {
	switch m {
	case Producer:
		return "producer"
	case Filter:
		return "filter"
	case Consumer:
		return "consumer"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Flags is a set of stream status bits.
type Flags int

const (
	// FlagWouldBlock is set when a non-blocking attempt by the stream
	// could not complete.
	FlagWouldBlock Flags = 1 << iota
	// FlagBackpressure is set when the stream's buffer is saturated.
	// Upstream delivery callbacks are deferred while it is set.
	FlagBackpressure
)

// Func is a stream callback. It is invoked with the stream it runs on
// and the task's value: the delivered value for start callbacks of
// filters and consumers, the descriptor for I/O readiness callbacks,
// and values.Null otherwise.
type Func func(s *Stream, v values.T)

type state int

const (
	stateOpen state = iota
	stateClosing
	stateClosed
)

// A Stream is a node in a dataflow graph.
type Stream struct {
	// ID identifies the stream within its runtime.
	ID int
	// Mode is the stream's role.
	Mode Mode
	// Data is user state associated with the stream.
	Data interface{}
	// Log receives the stream's diagnostics. It is prefixed with the
	// stream's ID.
	Log *log.Logger

	rt           *Runtime
	start, close Func
	flags        Flags
	state        state
	started      bool

	// dsts is the fan-out list, in connection order.
	dsts []*Stream
	// srcs are the upstreams; open counts those not yet closed.
	srcs []*Stream
	open int

	// deferred holds delivery callbacks held back by saturated
	// destinations, in emission order.
	deferred []Func

	span    trace.Span
	endSpan func()
	// Counters reported on the stream's trace span.
	ntasks, nbackpressure int
}

// String returns a short description of the stream, e.g.,
// "stream 3 (filter)".
func (s *Stream) String() string {
	return fmt.Sprintf("stream %d (%s)", s.ID, s.Mode)
}

// Runtime returns the runtime that owns the stream.
func (s *Stream) Runtime() *Runtime { return s.rt }

// Flags returns the stream's current flags.
func (s *Stream) Flags() Flags { return s.flags }

// SetFlags sets the provided flags.
func (s *Stream) SetFlags(f Flags) {
	if f&FlagBackpressure != 0 && s.flags&FlagBackpressure == 0 {
		s.Log.Debug("backpressure on")
		s.nbackpressure++
	}
	s.flags |= f
}

// ClearFlags clears the provided flags. Clearing FlagBackpressure
// releases the deferred delivery callbacks of upstream streams that
// are no longer saturated.
func (s *Stream) ClearFlags(f Flags) {
	was := s.flags
	s.flags &^= f
	if was&FlagBackpressure != 0 && s.flags&FlagBackpressure == 0 {
		s.Log.Debug("backpressure off")
		s.releaseUpstream(nil)
	}
}

// Closed tells whether the stream has been closed.
func (s *Stream) Closed() bool { return s.state == stateClosed }

// Saturated tells whether any open destination of the stream has
// FlagBackpressure set. Filters pass saturation through: a stream
// feeding a filter is saturated when the filter is.
func (s *Stream) Saturated() bool {
	return s.saturated(nil)
}

func (s *Stream) saturated(seen map[*Stream]bool) bool {
	for _, d := range s.dsts {
		if d.state == stateClosed {
			continue
		}
		if d.flags&FlagBackpressure != 0 {
			return true
		}
		if d.Mode != Filter || seen[d] {
			continue
		}
		if seen == nil {
			seen = map[*Stream]bool{s: true}
		}
		seen[d] = true
		if d.saturated(seen) {
			return true
		}
	}
	return false
}

// Connect appends dst to src's destinations. Values subsequently
// emitted by src are delivered to dst, and dst is closed when all of
// its upstreams have closed.
func Connect(src, dst *Stream) error {
	const op = "stream.Connect"
	switch {
	case src.rt != dst.rt:
		return errors.E(op, errors.Invalid, errors.Errorf("%v and %v belong to different runtimes", src, dst))
	case src == dst:
		return errors.E(op, errors.Invalid, errors.Errorf("%v connected to itself", src))
	case src.Mode == Consumer:
		return errors.E(op, errors.Invalid, errors.Errorf("%v is a consumer and cannot have destinations", src))
	case dst.Mode == Producer:
		return errors.E(op, errors.Invalid, errors.Errorf("%v is a producer and cannot have upstreams", dst))
	case src.state != stateOpen:
		return errors.E(op, src.String(), errors.Closed)
	case dst.state != stateOpen:
		return errors.E(op, dst.String(), errors.Closed)
	}
	for _, d := range src.dsts {
		if d == dst {
			return errors.E(op, errors.Invalid, errors.Errorf("%v already connected to %v", src, dst))
		}
	}
	src.dsts = append(src.dsts, dst)
	dst.srcs = append(dst.srcs, src)
	dst.open++
	return nil
}

// Start schedules the start callback of a producer that has not yet
// been started. Loop starts pending producers on its own; Start is
// for producers created while the loop is running.
func (s *Stream) Start() {
	if s.started || s.state != stateOpen {
		return
	}
	s.started = true
	s.Log.Debug("start")
	s.rt.Push(NewTask(s, s.start, values.Null))
}

// Emit delivers v to each open destination of s, in connection order,
// by scheduling the destination's start callback. If onDelivered is
// non-nil, it is then scheduled on s with values.Null, unless a
// destination is saturated (or earlier callbacks are still waiting),
// in which case it is deferred until the destinations drain.
//
// Emitting from a closed stream is a no-op. A stream may emit from its
// own close callback.
func (s *Stream) Emit(v values.T, onDelivered Func) {
	if s.state == stateClosed {
		s.Log.Debugf("emit %v after close", v)
		return
	}
	for _, d := range s.dsts {
		if d.state == stateClosed {
			continue
		}
		s.rt.Push(NewTask(d, d.start, v))
	}
	if onDelivered == nil {
		return
	}
	if len(s.deferred) > 0 || s.Saturated() {
		s.deferred = append(s.deferred, onDelivered)
		return
	}
	s.rt.Push(NewTask(s, onDelivered, values.Null))
}

// releaseUpstream releases the upstreams of s, and, through filters,
// their upstreams in turn.
func (s *Stream) releaseUpstream(seen map[*Stream]bool) {
	for _, src := range s.srcs {
		if seen[src] {
			continue
		}
		if seen == nil {
			seen = map[*Stream]bool{s: true}
		}
		seen[src] = true
		src.release()
		if src.Mode == Filter {
			src.releaseUpstream(seen)
		}
	}
}

// release schedules deferred delivery callbacks once s has no
// saturated destination.
func (s *Stream) release() {
	if len(s.deferred) == 0 || s.Saturated() {
		return
	}
	for _, fn := range s.deferred {
		s.rt.Push(NewTask(s, fn, values.Null))
	}
	s.deferred = nil
}

// Close closes the stream: its close callback is invoked, and each
// destination is scheduled to observe the closure after any values
// already queued for it. Close is idempotent.
func (s *Stream) Close() {
	if s.state != stateOpen {
		return
	}
	s.state = stateClosing
	if s.close != nil {
		s.close(s, values.Null)
	}
	s.state = stateClosed
	s.deferred = nil
	s.Log.Debug("closed")
	trace.Note(s.rt.tracer, s.span, "tasks", s.ntasks)
	trace.Note(s.rt.tracer, s.span, "backpressure", s.nbackpressure)
	s.endSpan()
	for _, d := range s.dsts {
		s.rt.Push(NewTask(d, upstreamClosed, values.Null))
	}
	// A closed destination no longer holds its upstreams back.
	if s.flags&FlagBackpressure != 0 {
		s.releaseUpstream(nil)
	}
}

// upstreamClosed runs on a destination when one of its upstreams
// closes; the destination closes along with its last upstream.
func upstreamClosed(s *Stream, _ values.T) {
	if s.open--; s.open <= 0 {
		s.Close()
	}
}
