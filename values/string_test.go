// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import (
	"fmt"
	"sync"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestNewStringCopies(t *testing.T) {
	b := []byte("abc")
	s := NewString(b)
	b[0] = 'x'
	expect.EQ(t, s.String(), "abc")
	out := s.Bytes()
	out[0] = 'y'
	expect.EQ(t, s.String(), "abc")
	expect.EQ(t, s.Len(), 3)
	expect.False(t, s.Interned())
}

func TestInterned(t *testing.T) {
	var in Interner
	a := in.Intern([]byte("stream"))
	b := in.Intern([]byte("stream"))
	if a != b {
		t.Fatal("interned strings with equal contents do not share identity")
	}
	expect.True(t, a.Interned())
	expect.EQ(t, in.Len(), 1)

	// Identity fast path.
	expect.True(t, StringEqual(a, b))
	// Byte-wise path: an uninterned copy, and a copy from another interner.
	expect.True(t, StringEqual(a, NewString([]byte("stream"))))
	other := NewInterner(16).Intern([]byte("stream"))
	expect.True(t, other != a)
	expect.True(t, StringEqual(a, other))
	expect.True(t, Equal(Ptr(a), Ptr(other)))

	expect.False(t, StringEqual(a, in.Intern([]byte("streams"))))
	expect.False(t, StringEqual(a, nil))
}

func TestInternerLookup(t *testing.T) {
	in := NewInterner(64)
	if _, ok := in.Lookup([]byte("missing")); ok {
		t.Error("found a string that was never interned")
	}
	expect.EQ(t, in.Len(), 0)
	s := in.Intern([]byte("present"))
	got, ok := in.Lookup([]byte("present"))
	if !ok || got != s {
		t.Errorf("got %v, %v, want %v", got, ok, s)
	}
	if _, ok := in.Lookup([]byte("still missing")); ok {
		t.Error("found a string that was never interned")
	}
}

func TestInternerConcurrent(t *testing.T) {
	const N = 32
	var (
		in  Interner
		wg  sync.WaitGroup
		out = make([]*String, N)
	)
	wg.Add(N)
	for i := 0; i < N; i++ {
		go func(i int) {
			defer wg.Done()
			out[i] = in.Intern([]byte(fmt.Sprint("key", i%4)))
		}(i)
	}
	wg.Wait()
	expect.EQ(t, in.Len(), 4)
	for i := range out {
		if out[i] != out[i%4] {
			t.Errorf("%d: interned instances differ", i)
		}
	}
}
