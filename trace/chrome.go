// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package trace

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/grailbio/strm/errors"
)

// Chrome is a Tracer that accumulates completed spans in the Chrome
// tracing format, viewable with chrome://tracing. Each stream is
// rendered as its own row.
type Chrome struct {
	path string

	mu    sync.Mutex
	open  map[Span]ChromeEvent
	trace ChromeTrace
}

// NewChrome returns a Chrome tracer that writes to the provided path
// on Flush. The path is validated by creating the file.
func NewChrome(path string) (*Chrome, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.E("trace.NewChrome", path, err)
	}
	f.Close()
	return &Chrome{path: path}, nil
}

// Emit implements Tracer.
func (c *Chrome) Emit(e Event) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open == nil {
		c.open = make(map[Span]ChromeEvent)
	}
	switch e.Kind {
	case StartEvent:
		c.open[e.Span] = ChromeEvent{
			Pid:  int(e.Span.Kind),
			Tid:  e.Span.ID,
			Ts:   e.Time.UnixNano() / 1000, // microseconds
			Ph:   "X",
			Name: e.Span.Name,
			Cat:  e.Span.Kind.String(),
			Args: make(map[string]interface{}),
		}
	case EndEvent:
		event, ok := c.open[e.Span]
		if !ok {
			return errors.E("trace.Emit", e.Span.Name, errors.Invalid, errors.New("end of unknown span"))
		}
		delete(c.open, e.Span)
		event.Dur = e.Time.UnixNano()/1000 - event.Ts
		c.trace.Events = append(c.trace.Events, event)
	case NoteEvent:
		event, ok := c.open[e.Span]
		if !ok {
			return errors.E("trace.Emit", e.Span.Name, errors.Invalid, errors.New("note on unknown span"))
		}
		event.Args[e.Key] = e.Value
	default:
		return errors.E("trace.Emit", errors.NotSupported, errors.Errorf("event kind %d", e.Kind))
	}
	return nil
}

// Trace returns the completed spans.
func (c *Chrome) Trace() ChromeTrace {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ChromeTrace{Events: append([]ChromeEvent(nil), c.trace.Events...)}
}

// Flush writes the completed spans to the tracer's path, replacing
// its contents.
func (c *Chrome) Flush() error {
	t := c.Trace()
	f, err := os.Create(c.path)
	if err != nil {
		return errors.E("trace.Flush", c.path, err)
	}
	if err := t.Encode(f); err != nil {
		f.Close()
		return errors.E("trace.Flush", c.path, err)
	}
	return f.Close()
}

// ChromeEvent is a complete ("X") event in the Chrome tracing format.
type ChromeEvent struct {
	Pid  int                    `json:"pid"`
	Tid  int                    `json:"tid"`
	Ts   int64                  `json:"ts"`
	Ph   string                 `json:"ph"`
	Dur  int64                  `json:"dur,omitempty"`
	Name string                 `json:"name"`
	Cat  string                 `json:"cat,omitempty"`
	Args map[string]interface{} `json:"args"`
}

// ChromeTrace is the JSON object format of the Chrome tracing format.
type ChromeTrace struct {
	Events []ChromeEvent `json:"traceEvents"`
}

// Encode JSON encodes t into w.
func (t *ChromeTrace) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(t)
}

// Decode decodes the JSON object format read from r into t.
func (t *ChromeTrace) Decode(r io.Reader) error {
	return json.NewDecoder(r).Decode(t)
}
