// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

// Array is an immutable, fixed-length sequence of values.
type Array struct {
	Header
	vals []T
}

// NewArray returns a new array backed by vals. The array takes
// ownership of vals: the caller must not retain or modify it.
func NewArray(vals []T) *Array {
	return &Array{Header: Header{kind: ArrayKind}, vals: vals}
}

// Ary returns an array value containing the provided values.
func Ary(vals ...T) T {
	return Ptr(NewArray(vals))
}

// Len returns the number of elements in the array.
func (a *Array) Len() int { return len(a.vals) }

// At returns the array's i-th element. At panics if i is out of
// range.
func (a *Array) At(i int) T { return a.vals[i] }

// Each calls fn for each element of the array, in order.
func (a *Array) Each(fn func(i int, v T)) {
	for i, v := range a.vals {
		fn(i, v)
	}
}

func (a *Array) seq() {}

// ArrayEqual tells whether arrays a and b are element-wise equal.
func ArrayEqual(a, b *Array) bool {
	if a == b {
		return true
	}
	if len(a.vals) != len(b.vals) {
		return false
	}
	for i := range a.vals {
		if !Equal(a.vals[i], b.vals[i]) {
			return false
		}
	}
	return true
}
