// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import (
	"math"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func ints(xs ...int64) []T {
	vals := make([]T, len(xs))
	for i, x := range xs {
		vals[i] = Int(x)
	}
	return vals
}

func TestEqual(t *testing.T) {
	var (
		m  = Ptr(NewMap(nil))
		fn = Ptr(NewNativeFunc("id", func(args []T) (T, error) { return args[0], nil }))
		u  = Ptr(NewUser("payload"))
	)
	for _, c := range []struct {
		v, w T
		want bool
	}{
		{Bool(true), Bool(true), true},
		{Bool(true), Bool(false), false},
		{Int(1), Int(1), true},
		{Int(1), Int(2), false},
		{Int(1), Float(1), false},
		{Int(0), Bool(false), false},
		{Float(1.5), Float(1.5), true},
		{Float(math.NaN()), Float(math.NaN()), false},
		{Null, Null, true},
		{Null, Int(0), false},
		{Null, Str(""), false},
		{Str("abc"), Str("abc"), true},
		{Str("abc"), Str("abd"), false},
		{Str("abc"), Str("ab"), false},
		{Ary(ints(1, 2, 3)...), Ary(ints(1, 2, 3)...), true},
		{Ary(ints(1, 2, 3)...), Ary(ints(1, 2)...), false},
		{Ary(ints(1, 2, 3)...), Ary(ints(1, 2, 4)...), false},
		{ListOf(ints(1, 2, 3)...), Ary(ints(1, 2, 3)...), true},
		{Ary(ints(1, 2, 3)...), ListOf(ints(1, 2, 3)...), true},
		{ListOf(ints(1, 2, 3)...), ListOf(ints(1, 2, 3)...), true},
		{ListOf(ints(1)...), ListOf(ints(1)...), true},
		{ListOf(ints(1, 2, 3)...), ListOf(ints(1, 2)...), false},
		{Str("[1]"), Ary(ints(1)...), false},
		{m, m, true},
		{m, Ptr(NewMap(nil)), false},
		{fn, fn, true},
		{u, u, true},
		{u, Ptr(NewUser("payload")), false},
		{m, u, false},
	} {
		if got, want := Equal(c.v, c.w), c.want; got != want {
			t.Errorf("Equal(%v, %v): got %v, want %v", c.v, c.w, got, want)
		}
		if got, want := Equal(c.w, c.v), c.want; got != want {
			t.Errorf("Equal(%v, %v): got %v, want %v (symmetry)", c.w, c.v, got, want)
		}
	}
}

func TestEqualTransitive(t *testing.T) {
	var (
		list   = ListOf(ints(1, 2, 3)...)
		array  = Ary(ints(1, 2, 3)...)
		hybrid = Cons(Int(1), Ary(ints(2, 3)...))
	)
	all := []T{list, array, hybrid}
	for _, v := range all {
		for _, w := range all {
			if !Equal(v, w) {
				t.Errorf("%v != %v", v, w)
			}
		}
	}
}

func TestAccessors(t *testing.T) {
	if got, ok := Int(42).AsInt(); !ok || got != 42 {
		t.Errorf("got %v, %v, want 42, true", got, ok)
	}
	if _, ok := Bool(true).AsInt(); ok {
		t.Error("extracted an int from a bool")
	}
	if _, ok := Float(1).AsBool(); ok {
		t.Error("extracted a bool from a float")
	}
	if _, ok := Null.AsObject(); ok {
		t.Error("extracted an object from null")
	}
	expect.True(t, Null.IsNull())
	expect.False(t, Int(0).IsNull())
	expect.EQ(t, Float(2.5).Float(), 2.5)
	expect.True(t, Bool(true).Bool())
	expect.EQ(t, T{}, Null)

	defer func() {
		if recover() == nil {
			t.Error("expected Int of a float to panic")
		}
	}()
	Float(1).Int()
}

func TestDowncast(t *testing.T) {
	s := Str("hello")
	if _, ok := AsArray(s); ok {
		t.Error("downcast a string to an array")
	}
	if _, ok := AsString(Int(1)); ok {
		t.Error("downcast an int to a string")
	}
	if _, ok := AsString(Null); ok {
		t.Error("downcast null to a string")
	}
	str, ok := AsString(s)
	if !ok {
		t.Fatal("failed to downcast a string")
	}
	expect.EQ(t, str.String(), "hello")
	if obj, ok := Obj(s, StringKind); !ok || obj != Object(str) {
		t.Errorf("got %v, %v", obj, ok)
	}
	if _, ok := Obj(s, ListKind); ok {
		t.Error("downcast a string to a list")
	}
	if _, ok := AsSeq(ListOf(Int(1))); !ok {
		t.Error("a list is a sequence")
	}
	if _, ok := AsSeq(s); ok {
		t.Error("a string is not a sequence")
	}
	var nilList *List
	if v := Ptr(nilList); !v.IsNull() {
		t.Errorf("typed nil pointer should be null, got %v", v)
	}
}

func TestNativeFunc(t *testing.T) {
	add := NewNativeFunc("add", func(args []T) (T, error) {
		return Int(args[0].Int() + args[1].Int()), nil
	})
	v, err := add.Call(Int(1), Int(2))
	if err != nil {
		t.Fatal(err)
	}
	expect.EQ(t, v.Int(), int64(3))
	expect.EQ(t, Ptr(add).String(), "<func add>")
	f, ok := AsNativeFunc(Ptr(add))
	expect.True(t, ok)
	expect.EQ(t, f.Kind(), NativeFuncKind)
}

func TestString(t *testing.T) {
	for _, c := range []struct {
		v    T
		want string
	}{
		{Bool(true), "true"},
		{Int(-3), "-3"},
		{Float(0.5), "0.5"},
		{Null, "nil"},
		{Str("a\"b"), `"a\"b"`},
		{Cons(Int(1), Ary(Int(2), Str("x"))), `[1, 2, "x"]`},
		{Ptr(NewMap(nil)), "<map>"},
		{Ptr(NewUser(nil)), "<user>"},
	} {
		if got, want := c.v.String(), c.want; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestDigest(t *testing.T) {
	equal := [][2]T{
		{ListOf(ints(1, 2, 3)...), Ary(ints(1, 2, 3)...)},
		{Cons(Int(1), Ary(ints(2, 3)...)), ListOf(ints(1, 2, 3)...)},
		{Str("abc"), Str("abc")},
		{Float(0), Float(math.Copysign(0, -1))},
	}
	for _, pair := range equal {
		if !Equal(pair[0], pair[1]) {
			t.Fatalf("%v != %v", pair[0], pair[1])
		}
		if got, want := Digest(pair[0]), Digest(pair[1]); got != want {
			t.Errorf("%v, %v: digests differ: %v, %v", pair[0], pair[1], got, want)
		}
	}
	distinct := []T{
		Null, Bool(false), Bool(true), Int(0), Int(1), Float(1),
		Str(""), Str("1"), Ary(), Ary(Int(1)), ListOf(ints(1, 2)...),
	}
	for i := range distinct {
		for j := range distinct {
			if i == j {
				continue
			}
			if Digest(distinct[i]) == Digest(distinct[j]) {
				t.Errorf("%v, %v: digests collide", distinct[i], distinct[j])
			}
		}
	}
}
