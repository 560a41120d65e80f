// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package stream

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/grailbio/strm/errors"
	"github.com/grailbio/strm/poll"
	"github.com/grailbio/strm/trace"
	"github.com/grailbio/strm/values"
	"golang.org/x/sys/unix"
)

const readSize = 32 << 10

// StartRead binds fd to stream s for read readiness: whenever fd is
// readable, fn(s, values.Int(fd)) is scheduled. Readiness callbacks
// continue until Stop is called, even after s is closed.
func (rt *Runtime) StartRead(s *Stream, fd int, fn Func) error {
	return rt.bind(s, poll.Event{FD: fd, Dir: poll.Read}, fn)
}

// StartWrite binds fd to stream s for write readiness.
func (rt *Runtime) StartWrite(s *Stream, fd int, fn Func) error {
	return rt.bind(s, poll.Event{FD: fd, Dir: poll.Write}, fn)
}

func (rt *Runtime) bind(s *Stream, key poll.Event, fn Func) error {
	if s.rt != rt {
		return errors.E("stream.bind", s.String(), errors.Invalid, errors.New("stream belongs to another runtime"))
	}
	p, err := rt.getPoller()
	if err != nil {
		return err
	}
	if w, ok := rt.watches[key]; ok && w.stream != s {
		return errors.E("stream.bind", strconv.Itoa(key.FD), key.Dir.String(), errors.Invalid,
			errors.Errorf("descriptor already bound to %v", w.stream))
	}
	if err := p.Add(key.FD, key.Dir); err != nil {
		return err
	}
	w, ok := rt.watches[key]
	if !ok {
		w.done = trace.Start(rt.tracer, trace.Span{
			Kind: trace.Binding,
			ID:   2*key.FD + int(key.Dir),
			Name: fmt.Sprintf("fd %d %s: %v", key.FD, key.Dir, s),
		})
	}
	w.stream, w.fn = s, fn
	rt.watches[key] = w
	s.Log.Debugf("bound fd %d for %s", key.FD, key.Dir)
	return nil
}

// Stop unbinds fd from stream s in both directions. Stopping an
// unbound descriptor is a no-op.
func (rt *Runtime) Stop(s *Stream, fd int) error {
	var err error
	for _, dir := range []poll.Dir{poll.Read, poll.Write} {
		key := poll.Event{FD: fd, Dir: dir}
		w, ok := rt.watches[key]
		if !ok || w.stream != s {
			continue
		}
		delete(rt.watches, key)
		w.done()
		s.Log.Debugf("unbound fd %d for %s", fd, dir)
		if e := rt.poller.Remove(fd, dir); e != nil && err == nil {
			err = e
		}
	}
	return err
}

type reader struct {
	fd      int
	buf     []byte
	partial []byte
}

// ReadIO returns a producer stream that reads lines from fd and emits
// each line, without its newline, as a string. A final line without a
// newline is emitted at end of file, after which the stream is
// closed. The descriptor is put in non-blocking mode; it remains owned
// by the caller.
func (rt *Runtime) ReadIO(fd int) *Stream {
	r := &reader{fd: fd, buf: make([]byte, readSize)}
	return rt.NewStream(Producer, r.start, nil, r)
}

func (r *reader) start(s *Stream, _ values.T) {
	if err := unix.SetNonblock(r.fd, true); err != nil {
		r.fail(s, errors.E("read", strconv.Itoa(r.fd), err))
		return
	}
	r.resume(s, values.Null)
}

func (r *reader) resume(s *Stream, _ values.T) {
	if err := s.rt.StartRead(s, r.fd, r.ready); err != nil {
		r.fail(s, err)
	}
}

func (r *reader) ready(s *Stream, _ values.T) {
	if s.Closed() {
		stop(s, r.fd)
		return
	}
	n, err := unix.Read(r.fd, r.buf)
	switch {
	case err == unix.EINTR:
		return
	case errors.Transient(err):
		s.SetFlags(FlagWouldBlock)
		return
	case err != nil:
		r.fail(s, errors.E("read", strconv.Itoa(r.fd), err))
		return
	case n == 0:
		if len(r.partial) > 0 {
			s.Emit(values.Str(string(r.partial)), nil)
			r.partial = nil
		}
		stop(s, r.fd)
		s.Close()
		return
	}
	s.ClearFlags(FlagWouldBlock)
	var lines []values.T
	b := r.buf[:n]
	for {
		i := bytes.IndexByte(b, '\n')
		if i < 0 {
			break
		}
		line := b[:i]
		if len(r.partial) > 0 {
			line = append(r.partial, line...)
			r.partial = nil
		}
		lines = append(lines, values.Ptr(values.NewString(line)))
		b = b[i+1:]
	}
	r.partial = append(r.partial, b...)
	if len(lines) == 0 {
		return
	}
	// Pause reading until the lines are delivered, so that saturated
	// destinations throttle the reader.
	stop(s, r.fd)
	for _, v := range lines[:len(lines)-1] {
		s.Emit(v, nil)
	}
	s.Emit(lines[len(lines)-1], r.resume)
}

func (r *reader) fail(s *Stream, err error) {
	s.Log.Error(err)
	stop(s, r.fd)
	s.Close()
}

type writer struct {
	fd    int
	buf   []byte
	bound bool
}

// WriteIO returns a consumer stream that writes each delivered value
// to fd, followed by a newline. Strings are written verbatim; other
// values are rendered with values.T.String. Output that cannot be
// written immediately is buffered until fd is writable; the stream
// applies backpressure while the buffer exceeds the runtime's high
// watermark, and releases it once the buffer drains below the low
// watermark. Buffered output is flushed after the stream is closed.
// The descriptor is put in non-blocking mode; it remains owned by the
// caller.
func (rt *Runtime) WriteIO(fd int) *Stream {
	w := &writer{fd: fd}
	s := rt.NewStream(Consumer, w.write, nil, w)
	if err := unix.SetNonblock(fd, true); err != nil {
		s.Log.Error(errors.E("write", strconv.Itoa(fd), err))
	}
	return s
}

func (w *writer) write(s *Stream, v values.T) {
	if str, ok := values.AsString(v); ok {
		w.buf = append(w.buf, str.Bytes()...)
	} else {
		w.buf = append(w.buf, v.String()...)
	}
	w.buf = append(w.buf, '\n')
	w.flush(s)
}

func (w *writer) ready(s *Stream, _ values.T) {
	w.flush(s)
}

func (w *writer) flush(s *Stream) {
	for len(w.buf) > 0 {
		n, err := unix.Write(w.fd, w.buf)
		if err == unix.EINTR {
			continue
		}
		if errors.Transient(err) {
			break
		}
		if err != nil {
			w.fail(s, errors.E("write", strconv.Itoa(w.fd), err))
			return
		}
		w.buf = w.buf[n:]
	}
	if len(w.buf) == 0 {
		s.ClearFlags(FlagWouldBlock)
		if w.bound {
			w.bound = false
			stop(s, w.fd)
		}
	} else {
		s.SetFlags(FlagWouldBlock)
		if !w.bound {
			if err := s.rt.StartWrite(s, w.fd, w.ready); err != nil {
				w.fail(s, err)
				return
			}
			w.bound = true
		}
	}
	switch rt := s.rt; {
	case len(w.buf) > rt.HighWater:
		s.SetFlags(FlagBackpressure)
	case len(w.buf) <= rt.LowWater:
		s.ClearFlags(FlagBackpressure)
	}
}

// fail drops the writer's output and closes its stream. Upstreams held
// back by the writer are released.
func (w *writer) fail(s *Stream, err error) {
	s.Log.Error(err)
	w.buf = nil
	if w.bound {
		w.bound = false
		stop(s, w.fd)
	}
	s.ClearFlags(FlagWouldBlock | FlagBackpressure)
	s.Close()
}

// stop unbinds fd from s, logging failures.
func stop(s *Stream, fd int) {
	if err := s.rt.Stop(s, fd); err != nil {
		s.Log.Error(err)
	}
}
