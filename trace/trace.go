// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package trace provides a tracing system for strm runtimes. Trace
// events are grouped into spans, each of which represents a
// timeline: the lifetime of a stream, or the period during which a
// descriptor is bound to a stream. Notes attach key-value pairs to a
// span.
//
// Tracers are called synchronously from the goroutine driving a
// runtime, so emitting must be cheap and must not block.
package trace

import "time"

// Kind is the type of spans.
type Kind int

const (
	// Stream is the span type for the lifetime of a stream.
	Stream Kind = iota
	// Binding is the span type for a descriptor binding.
	Binding
)

func (k Kind) String() string {
	switch k {
	case Stream:
		return "stream"
	case Binding:
		return "binding"
	default:
		return "unknown"
	}
}

// Span identifies a timeline. Spans of the same kind with the same ID
// are the same timeline.
type Span struct {
	Kind Kind
	ID   int
	Name string
}

// EventKind is the type of trace event.
type EventKind int

const (
	// StartEvent is the start of a trace span.
	StartEvent EventKind = iota
	// EndEvent is the end of a trace span.
	EndEvent
	// NoteEvent is a note on a span.
	NoteEvent
)

// Event stores a single trace event. Each event has a timestamp, a
// span, and an event kind; Key and Value are set for NoteEvents.
type Event struct {
	Time  time.Time
	Span  Span
	Kind  EventKind
	Key   string
	Value interface{}
}

// Tracers are sinks for trace events.
type Tracer interface {
	// Emit is called to emit a new event to the tracer.
	Emit(Event) error
}

var nopFunc = func() {}

// Start emits the start of span to t and returns a function that
// emits its end. Start on a nil tracer does nothing.
func Start(t Tracer, span Span) (done func()) {
	if t == nil {
		return nopFunc
	}
	t.Emit(Event{Time: time.Now(), Span: span, Kind: StartEvent})
	return func() {
		t.Emit(Event{Time: time.Now(), Span: span, Kind: EndEvent})
	}
}

// Note emits the provided key and value as a note on span.
func Note(t Tracer, span Span, key string, value interface{}) {
	if t == nil {
		return
	}
	t.Emit(Event{Time: time.Now(), Span: span, Kind: NoteEvent, Key: key, Value: value})
}
