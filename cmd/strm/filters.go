// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/grailbio/strm/stream"
	"github.com/grailbio/strm/values"
)

func text(v values.T) string {
	if s, ok := values.AsString(v); ok {
		return s.String()
	}
	return v.String()
}

// numberer prefixes each value with its (1-based) position.
type numberer struct {
	n int64
}

func (nb *numberer) filter(s *stream.Stream, v values.T) {
	nb.n++
	s.Emit(values.Str(fmt.Sprintf("%6d\t%s", nb.n, text(v))), nil)
}

// uniq drops values equal to their predecessor.
type uniq struct {
	last values.T
	any  bool
}

func (u *uniq) filter(s *stream.Stream, v values.T) {
	if u.any && values.Equal(u.last, v) {
		return
	}
	u.last, u.any = v, true
	s.Emit(v, nil)
}

// distinct drops strings that were seen before; other values pass
// through. By default seen strings are interned, so emitted strings
// are shared. With an approximate set, memory stays fixed, at the cost
// of occasionally dropping a string that was not seen before.
type distinct struct {
	seen    *values.Interner
	approx  *values.ApproxSet
	dropped int
}

// newDistinct returns a distinct filter. If approx is nonzero, seen
// strings are tracked in an approximate set sized for approx strings.
func newDistinct(approx uint) *distinct {
	if approx > 0 {
		return &distinct{approx: values.NewApproxSet(approx, approxFalsePositive)}
	}
	return &distinct{seen: values.NewInterner(0)}
}

const approxFalsePositive = 0.001

func (d *distinct) filter(s *stream.Stream, v values.T) {
	str, ok := values.AsString(v)
	if !ok {
		s.Emit(v, nil)
		return
	}
	if d.approx != nil {
		if d.approx.Add(v) {
			d.dropped++
			return
		}
		s.Emit(v, nil)
		return
	}
	b := str.Bytes()
	if _, ok := d.seen.Lookup(b); ok {
		d.dropped++
		return
	}
	s.Emit(values.Ptr(d.seen.Intern(b)), nil)
}

func (d *distinct) close(s *stream.Stream, _ values.T) {
	var n int
	if d.approx != nil {
		n = d.approx.Len()
	} else {
		n = d.seen.Len()
	}
	s.Log.Debugf("%d distinct, %d dropped", n, d.dropped)
}
