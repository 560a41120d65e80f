// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import (
	"testing"

	"github.com/grailbio/strm/errors"
	"github.com/grailbio/testutil/expect"
)

func mustList(t *testing.T, v T) *List {
	t.Helper()
	l, ok := AsList(v)
	if !ok {
		t.Fatalf("%v is not a list", v)
	}
	return l
}

func TestConsNull(t *testing.T) {
	l := mustList(t, Cons(Int(7), Null))
	expect.EQ(t, l.Len(), 1)
	expect.True(t, Equal(l.Car(), Int(7)))
	expect.True(t, l.Cdr() == nil)
}

func TestConsList(t *testing.T) {
	yz := ListOf(Str("y"), Str("z"))
	l := mustList(t, Cons(Str("x"), yz))
	expect.EQ(t, l.Len(), 3)
	for i, want := range []string{"x", "y", "z"} {
		s, ok := AsString(l.Nth(i))
		if !ok {
			t.Fatalf("nth(%d) is not a string", i)
		}
		expect.EQ(t, s.String(), want)
	}
}

func TestConsScalar(t *testing.T) {
	for _, tail := range []T{Int(2), Bool(false), Float(1), Str("s"), Ptr(NewMap(nil))} {
		v := Cons(Int(1), tail)
		if _, ok := AsList(v); ok {
			t.Errorf("cons(1, %v) produced a list", tail)
		}
		a, ok := AsArray(v)
		if !ok {
			t.Fatalf("cons(1, %v) is not an array", tail)
		}
		expect.EQ(t, a.Len(), 2)
		expect.True(t, Equal(a.At(0), Int(1)))
		expect.True(t, Equal(a.At(1), tail))
	}
}

func TestConsArray(t *testing.T) {
	v := Cons(Int(1), Ary(Int(2), Int(3)))
	l := mustList(t, v)
	expect.EQ(t, l.Len(), 3)
	if _, ok := l.Cdr().(*Array); !ok {
		t.Errorf("expected array tail, got %T", l.Cdr())
	}
	if want := Ary(Int(1), Int(2), Int(3)); !Equal(v, want) {
		t.Errorf("got %v, want %v", v, want)
	}
	// Prepending to a hybrid list keeps the array tail.
	w := Cons(Int(0), v)
	expect.EQ(t, mustList(t, w).Len(), 4)
	if want := ListOf(Int(0), Int(1), Int(2), Int(3)); !Equal(w, want) {
		t.Errorf("got %v, want %v", w, want)
	}
}

func TestSeqEqualHybrid(t *testing.T) {
	var (
		a = Cons(Int(1), Cons(Int(2), Ary(Int(3), Int(4))))
		b = Cons(Int(1), Ary(Int(2), Int(3), Int(4)))
		c = ListOf(Int(1), Int(2), Int(3), Int(4))
		d = Cons(Int(1), Cons(Int(2), Ary(Int(3), Int(5))))
		e = Cons(Int(1), Ary(Int(2), Int(3)))
	)
	for _, pair := range [][2]T{{a, b}, {b, a}, {a, c}, {c, b}} {
		if !Equal(pair[0], pair[1]) {
			t.Errorf("%v != %v", pair[0], pair[1])
		}
	}
	for _, pair := range [][2]T{{a, d}, {d, c}, {b, d}, {a, e}, {e, c}} {
		if Equal(pair[0], pair[1]) {
			t.Errorf("%v == %v", pair[0], pair[1])
		}
	}
}

func TestNth(t *testing.T) {
	const L = 5
	// Build [0, 1, 2, 3, 4] by repeated cons.
	v := Null
	for i := L - 1; i >= 0; i-- {
		v = Cons(Int(int64(i)), v)
	}
	l := mustList(t, v)
	expect.EQ(t, l.Len(), L)
	for i := 0; i < L; i++ {
		if got, want := l.Nth(i), Int(int64(i)); !Equal(got, want) {
			t.Errorf("nth(%d): got %v, want %v", i, got, want)
		}
	}
	expect.True(t, l.Nth(L+1).IsNull())
	expect.True(t, l.Nth(L+10).IsNull())
	expect.True(t, l.Nth(-1).IsNull())

	hybrid := mustList(t, Cons(Int(0), Ary(Int(1), Int(2))))
	for i := 0; i < 3; i++ {
		if got, want := hybrid.Nth(i), Int(int64(i)); !Equal(got, want) {
			t.Errorf("nth(%d): got %v, want %v", i, got, want)
		}
	}
}

// TestNthBoundary pins the boundary of out-of-range access: an index
// strictly greater than the length yields Null, whereas an index equal
// to the length walks off the chain and is treated as corruption.
func TestNthBoundary(t *testing.T) {
	for _, v := range []T{
		ListOf(Int(1), Int(2), Int(3)),
		Cons(Int(1), Ary(Int(2), Int(3))),
	} {
		l := mustList(t, v)
		func() {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatalf("%v: expected nth(%d) to panic", v, l.Len())
				}
				err, ok := r.(error)
				if !ok || !errors.Is(errors.Fatal, err) {
					t.Errorf("%v: got %v, want fatal error", v, r)
				}
			}()
			l.Nth(l.Len())
		}()
		expect.True(t, l.Nth(l.Len()+1).IsNull())
	}
}

func TestEach(t *testing.T) {
	l := mustList(t, Cons(Int(0), Cons(Int(1), Ary(Int(2), Int(3)))))
	var got []int64
	l.Each(func(i int, v T) {
		expect.EQ(t, int64(i), v.Int())
		got = append(got, v.Int())
	})
	expect.EQ(t, got, []int64{0, 1, 2, 3})

	flat := Flatten(l)
	expect.EQ(t, flat.Len(), 4)
	expect.True(t, Equal(Ptr(flat), Ptr(l)))
	a := NewArray(ints(1))
	expect.True(t, Flatten(a) == a)
}

func TestListOf(t *testing.T) {
	expect.True(t, ListOf().IsNull())
	l := mustList(t, ListOf(Int(1), Int(2)))
	expect.EQ(t, l.Len(), 2)
	next, ok := l.Cdr().(*List)
	if !ok {
		t.Fatalf("expected list tail, got %T", l.Cdr())
	}
	expect.EQ(t, next.Len(), 1)
	expect.True(t, next.Cdr() == nil)
}
