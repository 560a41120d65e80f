// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import (
	"strconv"

	"github.com/grailbio/strm/errors"
)

// Seq is a sequence object: an *Array or a *List.
type Seq interface {
	Object
	// Len returns the number of elements in the (flattened) sequence.
	Len() int
	seq()
}

// List is an immutable cons cell. Its tail is either absent (nil),
// another List, or an Array; a list never ends in a bare value. Lists
// cache their flattened length.
type List struct {
	Header
	n   int
	car T
	cdr Seq
}

// NewList returns a new list cell with head car and tail cdr.
func NewList(car T, cdr Seq) *List {
	l := &List{Header: Header{kind: ListKind}, car: car, n: 1}
	if !isNil(cdr) {
		l.cdr = cdr
		l.n += cdr.Len()
	}
	return l
}

// Cons pairs car with cdr. If cdr is Null, the result is a list of
// length one; if cdr is a list or an array, the result is a list cell
// whose tail is cdr. Otherwise the pair cannot form a proper list and
// Cons returns the two-element array [car, cdr].
func Cons(car, cdr T) T {
	if cdr.IsNull() {
		return Ptr(NewList(car, nil))
	}
	if s, ok := AsSeq(cdr); ok {
		return Ptr(NewList(car, s))
	}
	return Ptr(NewArray([]T{car, cdr}))
}

// ListOf returns a list value holding vals, built from cons cells
// terminated by Null. ListOf returns Null when vals is empty.
func ListOf(vals ...T) T {
	var l *List
	for i := len(vals) - 1; i >= 0; i-- {
		l = NewList(vals[i], l)
	}
	return Ptr(l)
}

// Len returns the length of the list, including any array tail.
func (l *List) Len() int { return l.n }

// Car returns the head of the list.
func (l *List) Car() T { return l.car }

// Cdr returns the tail of the list: nil, a *List, or an *Array.
func (l *List) Cdr() Seq { return l.cdr }

func (l *List) seq() {}

func corrupt(op string, l *List, n int) {
	panic(errors.E(op, strconv.Itoa(n), errors.Fatal,
		errors.Errorf("list of cached length %d ends early", l.n)))
}

// Nth returns the n-th element of the (flattened) list. Nth returns
// Null if n is negative or greater than the list's length. An index
// that walks off the end of the chain is a broken invariant, and Nth
// panics with an error of kind errors.Fatal. Note that this is the
// case for n == l.Len().
func (l *List) Nth(n int) T {
	if n < 0 || n > l.n {
		return Null
	}
	i := n
	for cell := l; ; {
		if i == 0 {
			return cell.car
		}
		i--
		switch tail := cell.cdr.(type) {
		case nil:
			corrupt("nth", l, n)
		case *Array:
			if i >= tail.Len() {
				corrupt("nth", l, n)
			}
			return tail.vals[i]
		case *List:
			cell = tail
		}
	}
}

// Each calls fn for each element of the flattened list, in order.
func (l *List) Each(fn func(i int, v T)) {
	each(l, fn)
}

func each(s Seq, fn func(i int, v T)) {
	i := 0
	for s != nil {
		switch x := s.(type) {
		case *Array:
			for _, v := range x.vals {
				fn(i, v)
				i++
			}
			return
		case *List:
			fn(i, x.car)
			i++
			s = x.cdr
		}
	}
}

// Flatten returns an array with the elements of s. Flatten returns s
// itself if it is already an array.
func Flatten(s Seq) *Array {
	if a, ok := s.(*Array); ok {
		return a
	}
	vals := make([]T, 0, s.Len())
	each(s, func(_ int, v T) {
		vals = append(vals, v)
	})
	return NewArray(vals)
}

// SeqEqual tells whether sequences a and b have equal flattened
// contents. Arrays and lists may be compared with each other.
func SeqEqual(a, b Seq) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	if a == b {
		return true
	}
	if a.Len() != b.Len() {
		return false
	}
	for {
		switch x := a.(type) {
		case *Array:
			if y, ok := b.(*Array); ok {
				return ArrayEqual(x, y)
			}
			return listArrayEqual(b.(*List), x)
		case *List:
			if y, ok := b.(*Array); ok {
				return listArrayEqual(x, y)
			}
			y := b.(*List)
			if !Equal(x.car, y.car) {
				return false
			}
			a, b = x.cdr, y.cdr
			if a == nil || b == nil {
				return a == nil && b == nil
			}
		}
	}
}

// listArrayEqual walks list l against successive elements of array a.
// An array tail of l is compared index by index against the rest of a.
func listArrayEqual(l *List, a *Array) bool {
	i := 0
	for s := Seq(l); s != nil; {
		switch x := s.(type) {
		case *Array:
			if x.Len() != a.Len()-i {
				return false
			}
			for j := range x.vals {
				if !Equal(x.vals[j], a.vals[i+j]) {
					return false
				}
			}
			return true
		case *List:
			if i >= a.Len() || !Equal(x.car, a.vals[i]) {
				return false
			}
			i++
			s = x.cdr
		}
	}
	return i == a.Len()
}
