// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import (
	"bytes"

	"github.com/grailbio/base/digest"
	"github.com/willf/bloom"
)

// ApproxSet is an approximate set of values, kept in a bloom filter
// keyed by each value's digest. Its size is fixed at creation
// regardless of how many values are added. Membership tests may
// report false positives, but never false negatives. ApproxSet is not
// safe for concurrent use.
type ApproxSet struct {
	filter *bloom.BloomFilter
	buf    bytes.Buffer
	n      int
}

// NewApproxSet returns a set sized for n values at the false
// positive rate fp.
func NewApproxSet(n uint, fp float64) *ApproxSet {
	return &ApproxSet{filter: bloom.NewWithEstimates(n, fp)}
}

func (s *ApproxSet) key(v T) []byte {
	s.buf.Reset()
	if _, err := digest.WriteDigest(&s.buf, Digest(v)); err != nil {
		panic("failed to write digest: " + err.Error())
	}
	return s.buf.Bytes()
}

// Contains tells whether v may be in the set.
func (s *ApproxSet) Contains(v T) bool {
	return s.filter.Test(s.key(v))
}

// Add inserts v and reports whether it may have been present already.
func (s *ApproxSet) Add(v T) bool {
	k := s.key(v)
	if s.filter.Test(k) {
		return true
	}
	s.filter.Add(k)
	s.n++
	return false
}

// Len returns the number of values added that were not (apparently)
// present already.
func (s *ApproxSet) Len() int { return s.n }
