// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import (
	"bytes"
	"sync"
)

// String is an immutable byte string.
type String struct {
	Header
	b []byte
}

// NewString returns a new string holding a copy of b.
func NewString(b []byte) *String {
	return &String{
		Header: Header{kind: StringKind},
		b:      append([]byte(nil), b...),
	}
}

// Str returns a string value with the contents of s.
func Str(s string) T {
	return Ptr(&String{Header: Header{kind: StringKind}, b: []byte(s)})
}

// Len returns the length of the string in bytes.
func (s *String) Len() int { return len(s.b) }

// Bytes returns a copy of the string's contents.
func (s *String) Bytes() []byte {
	return append([]byte(nil), s.b...)
}

// String returns the string's contents.
func (s *String) String() string { return string(s.b) }

// Interned tells whether the string was produced by an Interner.
func (s *String) Interned() bool {
	return s.flags&FlagInterned != 0
}

// StringEqual tells whether strings a and b have the same contents.
// Interned strings with equal contents share identity and are
// resolved without comparing bytes.
func StringEqual(a, b *String) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || len(a.b) != len(b.b) {
		return false
	}
	// Strings interned by different Interners may still share contents.
	return bytes.Equal(a.b, b.b)
}

// An Interner deduplicates strings: all strings interned with the same
// contents share a single instance. The zero Interner is ready to use.
// Interners are safe for concurrent use.
type Interner struct {
	// Estimate is the expected number of distinct strings; it sizes the
	// interner's table. It must be set before first use.
	Estimate uint

	mu  sync.Mutex
	tab map[string]*String
}

// NewInterner returns an Interner sized for about n distinct strings.
func NewInterner(n uint) *Interner {
	return &Interner{Estimate: n}
}

// Intern returns the interned string with contents b, creating it if
// it does not yet exist.
func (in *Interner) Intern(b []byte) *String {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.tab == nil {
		in.tab = make(map[string]*String, in.Estimate)
	}
	if s, ok := in.tab[string(b)]; ok {
		return s
	}
	s := NewString(b)
	s.flags |= FlagInterned
	in.tab[string(s.b)] = s
	return s
}

// Lookup returns the interned string with contents b, if any. Lookup
// never interns.
func (in *Interner) Lookup(b []byte) (*String, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	s, ok := in.tab[string(b)]
	return s, ok
}

// Len returns the number of interned strings.
func (in *Interner) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.tab)
}
