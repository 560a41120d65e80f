// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package values defines data structures for representing (runtime)
// values in strm. A value, values.T, is a small tagged union of a
// boolean, an integer, a floating point number, or a pointer to a
// heap object. Heap objects carry a header with a dynamic kind so
// that pointer values may be downcast safely; see Object.
//
// All values are immutable once constructed. Sequences come in two
// representations: flat Arrays and cons-style Lists whose tail is
// either absent, another List, or an Array. The two representations
// compare equal when their flattened contents are equal:
//
//	one, two := values.Int(1), values.Int(2)
//	values.Equal(values.Cons(one, values.Ary(two)), values.Ary(one, two)) // true
package values

import (
	"crypto" // The SHA-256 implementation is required for this package's
	// Digester.
	_ "crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/grailbio/base/digest"
)

// Digester is the digester used to compute value digests.
var Digester = digest.Digester(crypto.SHA256)

// Tag is the variant of a value.
type Tag uint8

const (
	// PtrTag is the tag of pointer values, including Null.
	PtrTag Tag = iota
	// BoolTag is the tag of boolean values.
	BoolTag
	// IntTag is the tag of integer values.
	IntTag
	// FloatTag is the tag of floating point values.
	FloatTag
)

func (t Tag) String() string {
	switch t {
	case PtrTag:
		return "ptr"
	case BoolTag:
		return "bool"
	case IntTag:
		return "int"
	case FloatTag:
		return "float"
	default:
		return "tag(" + strconv.Itoa(int(t)) + ")"
	}
}

// T is the type of value. The zero T is Null.
type T struct {
	tag Tag
	// n stores integers, and booleans as 0 or 1.
	n   int64
	f   float64
	obj Object
}

// Null is the pointer value that references no object. It is the
// canonical absent value.
var Null = T{}

// Bool returns a new boolean value.
func Bool(b bool) T {
	v := T{tag: BoolTag}
	if b {
		v.n = 1
	}
	return v
}

// Int returns a new integer value.
func Int(i int64) T {
	return T{tag: IntTag, n: i}
}

// Float returns a new floating point value.
func Float(f float64) T {
	return T{tag: FloatTag, f: f}
}

// Ptr returns a pointer value referencing the provided object. A nil
// object (including a typed nil) yields Null.
func Ptr(obj Object) T {
	if isNil(obj) {
		return Null
	}
	return T{tag: PtrTag, obj: obj}
}

// Tag returns the value's variant.
func (v T) Tag() Tag { return v.tag }

// IsNull tells whether v is the Null value.
func (v T) IsNull() bool {
	return v.tag == PtrTag && v.obj == nil
}

// Bool returns v's boolean. Bool panics if v is not a boolean.
func (v T) Bool() bool {
	if v.tag != BoolTag {
		panic("values: Bool of " + v.tag.String() + " value")
	}
	return v.n != 0
}

// Int returns v's integer. Int panics if v is not an integer.
func (v T) Int() int64 {
	if v.tag != IntTag {
		panic("values: Int of " + v.tag.String() + " value")
	}
	return v.n
}

// Float returns v's floating point number. Float panics if v is not
// a float.
func (v T) Float() float64 {
	if v.tag != FloatTag {
		panic("values: Float of " + v.tag.String() + " value")
	}
	return v.f
}

// Object returns the object referenced by v; it is nil for Null.
// Object panics if v is not a pointer value.
func (v T) Object() Object {
	if v.tag != PtrTag {
		panic("values: Object of " + v.tag.String() + " value")
	}
	return v.obj
}

// AsBool returns v's boolean, and whether v is a boolean.
func (v T) AsBool() (bool, bool) {
	if v.tag != BoolTag {
		return false, false
	}
	return v.n != 0, true
}

// AsInt returns v's integer, and whether v is an integer.
func (v T) AsInt() (int64, bool) {
	if v.tag != IntTag {
		return 0, false
	}
	return v.n, true
}

// AsFloat returns v's floating point number, and whether v is a float.
func (v T) AsFloat() (float64, bool) {
	if v.tag != FloatTag {
		return 0, false
	}
	return v.f, true
}

// AsObject returns v's object, and whether v is a non-null pointer
// value.
func (v T) AsObject() (Object, bool) {
	if v.tag != PtrTag || v.obj == nil {
		return nil, false
	}
	return v.obj, true
}

// Equal tells whether values v and w are equal. Scalars compare by
// value; strings by content; arrays and lists by their flattened
// contents, so that a list and an array may be equal; all other
// objects by identity.
func Equal(v, w T) bool {
	if v.tag != w.tag {
		return false
	}
	switch v.tag {
	case BoolTag, IntTag:
		return v.n == w.n
	case FloatTag:
		return v.f == w.f
	default:
		return objEqual(v.obj, w.obj)
	}
}

func objEqual(a, b Object) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if as, ok := a.(Seq); ok {
		if bs, ok := b.(Seq); ok {
			return SeqEqual(as, bs)
		}
		return false
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if a.Kind() == StringKind {
		return StringEqual(a.(*String), b.(*String))
	}
	return a == b
}

// String renders value v for diagnostics.
func (v T) String() string {
	switch v.tag {
	case BoolTag:
		if v.n != 0 {
			return "true"
		}
		return "false"
	case IntTag:
		return strconv.FormatInt(v.n, 10)
	case FloatTag:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	}
	switch obj := v.obj.(type) {
	case nil:
		return "nil"
	case *String:
		return strconv.Quote(string(obj.b))
	case Seq:
		elems := make([]string, 0, obj.Len())
		each(obj, func(_ int, e T) {
			elems = append(elems, e.String())
		})
		return fmt.Sprintf("[%s]", strings.Join(elems, ", "))
	case *NativeFunc:
		return fmt.Sprintf("<func %s>", obj.Name)
	case *Map:
		return "<map>"
	default:
		return "<user>"
	}
}

// Digest computes the digest for value v. Values that are Equal have
// equal digests; in particular a List and an Array with the same
// flattened contents digest identically.
func Digest(v T) digest.Digest {
	w := Digester.NewWriter()
	WriteDigest(w, v)
	return w.Digest()
}

var (
	falseByte = []byte{0}
	trueByte  = []byte{1}
)

func writeUint64(w io.Writer, n uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n)
	w.Write(b[:])
}

// WriteDigest writes digest material for value v into the writer w.
func WriteDigest(w io.Writer, v T) {
	w.Write([]byte{byte(v.tag)})
	switch v.tag {
	case BoolTag:
		if v.n != 0 {
			w.Write(trueByte)
		} else {
			w.Write(falseByte)
		}
		return
	case IntTag:
		writeUint64(w, uint64(v.n))
		return
	case FloatTag:
		f := v.f
		if f == 0 {
			// Collapse -0 into +0; they are Equal.
			f = 0
		}
		writeUint64(w, math.Float64bits(f))
		return
	}
	switch obj := v.obj.(type) {
	case nil:
		w.Write(falseByte)
	case *String:
		w.Write([]byte{byte(StringKind)})
		writeUint64(w, uint64(len(obj.b)))
		w.Write(obj.b)
	case Seq:
		// Arrays and lists share digest material.
		w.Write([]byte{byte(ArrayKind)})
		writeUint64(w, uint64(obj.Len()))
		each(obj, func(_ int, e T) {
			WriteDigest(w, e)
		})
	default:
		w.Write([]byte{byte(obj.Kind())})
		io.WriteString(w, fmt.Sprintf("%p", obj))
	}
}
