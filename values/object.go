// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import "strconv"

// Kind is the dynamic type of a heap object.
type Kind uint8

const (
	// ArrayKind is the kind of *Array.
	ArrayKind Kind = iota
	// ListKind is the kind of *List.
	ListKind
	// MapKind is the kind of *Map.
	MapKind
	// StringKind is the kind of *String.
	StringKind
	// NativeFuncKind is the kind of *NativeFunc.
	NativeFuncKind
	// UserKind is the kind of *User.
	UserKind
)

var kindNames = [...]string{
	ArrayKind:      "array",
	ListKind:       "list",
	MapKind:        "map",
	StringKind:     "string",
	NativeFuncKind: "func",
	UserKind:       "user",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Flags is the flags word of an object header.
type Flags uint

// FlagInterned is set on strings that were produced by an Interner.
const FlagInterned Flags = 1

// Header is the common prefix of every heap object.
type Header struct {
	kind  Kind
	flags Flags
}

// Kind returns the object's dynamic kind.
func (h *Header) Kind() Kind { return h.kind }

// Flags returns the object's flags.
func (h *Header) Flags() Flags { return h.flags }

func (h *Header) header() *Header { return h }

// Object is a heap object. The set of objects is closed: it is
// implemented only by *Array, *List, *Map, *String, *NativeFunc and
// *User.
type Object interface {
	Kind() Kind
	Flags() Flags
	header() *Header
}

func isNil(obj Object) bool {
	switch o := obj.(type) {
	case nil:
		return true
	case *Array:
		return o == nil
	case *List:
		return o == nil
	case *Map:
		return o == nil
	case *String:
		return o == nil
	case *NativeFunc:
		return o == nil
	case *User:
		return o == nil
	}
	return false
}

// Obj returns the object referenced by v if it has the given kind.
// It returns false if v is not a pointer value, is Null, or
// references an object of another kind.
func Obj(v T, kind Kind) (Object, bool) {
	obj, ok := v.AsObject()
	if !ok || obj.Kind() != kind {
		return nil, false
	}
	return obj, true
}

// AsString downcasts v to a string.
func AsString(v T) (*String, bool) {
	if v.tag != PtrTag {
		return nil, false
	}
	s, ok := v.obj.(*String)
	return s, ok
}

// AsArray downcasts v to an array.
func AsArray(v T) (*Array, bool) {
	if v.tag != PtrTag {
		return nil, false
	}
	a, ok := v.obj.(*Array)
	return a, ok
}

// AsList downcasts v to a list.
func AsList(v T) (*List, bool) {
	if v.tag != PtrTag {
		return nil, false
	}
	l, ok := v.obj.(*List)
	return l, ok
}

// AsSeq downcasts v to a sequence: an array or a list.
func AsSeq(v T) (Seq, bool) {
	if v.tag != PtrTag {
		return nil, false
	}
	s, ok := v.obj.(Seq)
	return s, ok
}

// AsMap downcasts v to a map.
func AsMap(v T) (*Map, bool) {
	if v.tag != PtrTag {
		return nil, false
	}
	m, ok := v.obj.(*Map)
	return m, ok
}

// AsNativeFunc downcasts v to a native function.
func AsNativeFunc(v T) (*NativeFunc, bool) {
	if v.tag != PtrTag {
		return nil, false
	}
	f, ok := v.obj.(*NativeFunc)
	return f, ok
}

// AsUser downcasts v to a user-defined object.
func AsUser(v T) (*User, bool) {
	if v.tag != PtrTag {
		return nil, false
	}
	u, ok := v.obj.(*User)
	return u, ok
}

// Map is an associative map. Its contents are opaque to the runtime
// core; maps compare by identity.
type Map struct {
	Header
	// Data holds the map's implementation.
	Data interface{}
}

// NewMap returns a new map object wrapping data.
func NewMap(data interface{}) *Map {
	return &Map{Header: Header{kind: MapKind}, Data: data}
}

// NativeFunc is a function implemented in Go.
type NativeFunc struct {
	Header
	// Name is the function's name, used for printing.
	Name string

	fn func(args []T) (T, error)
}

// NewNativeFunc returns a new native function object.
func NewNativeFunc(name string, fn func(args []T) (T, error)) *NativeFunc {
	return &NativeFunc{Header: Header{kind: NativeFuncKind}, Name: name, fn: fn}
}

// Call invokes the function with the provided arguments.
func (f *NativeFunc) Call(args ...T) (T, error) {
	return f.fn(args)
}

// User is an object defined by the host language. It compares by
// identity.
type User struct {
	Header
	// Data is the object's payload.
	Data interface{}
}

// NewUser returns a new user-defined object wrapping data.
func NewUser(data interface{}) *User {
	return &User{Header: Header{kind: UserKind}, Data: data}
}
