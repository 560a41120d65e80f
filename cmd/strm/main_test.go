// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"strings"
	"testing"

	"github.com/grailbio/strm/stream"
	"github.com/grailbio/strm/values"
	"github.com/grailbio/testutil/expect"
)

// run feeds vals through a filter and returns what reaches the end.
func run(t *testing.T, st stage, vals ...values.T) []string {
	t.Helper()
	rt := stream.New()
	var out []string
	p := rt.NewStream(stream.Producer, func(s *stream.Stream, _ values.T) {
		for _, v := range vals {
			s.Emit(v, nil)
		}
		s.Close()
	}, nil, nil)
	f := rt.NewStream(stream.Filter, st.start, st.close, nil)
	c := rt.NewStream(stream.Consumer, func(s *stream.Stream, v values.T) {
		out = append(out, text(v))
	}, nil, nil)
	if err := stream.Connect(p, f); err != nil {
		t.Fatal(err)
	}
	if err := stream.Connect(f, c); err != nil {
		t.Fatal(err)
	}
	if err := rt.Loop(context.Background()); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestNumber(t *testing.T) {
	got := run(t, stage{start: new(numberer).filter}, values.Str("a"), values.Int(2))
	expect.EQ(t, got, []string{"     1\ta", "     2\t2"})
}

func TestUniq(t *testing.T) {
	got := run(t, stage{start: new(uniq).filter},
		values.Str("a"), values.Str("a"), values.Str("b"),
		values.ListOf(values.Int(1)), values.Ary(values.Int(1)),
		values.Str("a"))
	expect.EQ(t, got, []string{"a", "b", "[1]", "a"})
}

func TestDistinct(t *testing.T) {
	for _, approx := range []uint{0, 100} {
		d := newDistinct(approx)
		got := run(t, stage{d.filter, d.close},
			values.Str("a"), values.Str("b"), values.Str("a"), values.Int(1), values.Int(1), values.Str("b"))
		expect.EQ(t, got, []string{"a", "b", "1", "1"})
		expect.EQ(t, d.dropped, 2)
	}
	d := newDistinct(0)
	run(t, stage{d.filter, d.close}, values.Str("x"), values.Str("x"))
	expect.EQ(t, d.seen.Len(), 1)
	d = newDistinct(100)
	run(t, stage{d.filter, d.close}, values.Str("x"), values.Str("y"), values.Str("x"))
	expect.True(t, d.seen == nil)
	expect.EQ(t, d.approx.Len(), 2)
}

func TestPipeline(t *testing.T) {
	in, err := ioutil.TempFile("", "strm-in")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(in.Name())
	defer in.Close()
	out, err := ioutil.TempFile("", "strm-out")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(out.Name())
	defer out.Close()

	if _, err := in.WriteString("x\nx\ny\nx"); err != nil {
		t.Fatal(err)
	}
	if _, err := in.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	rt := stream.New()
	defer rt.Close()
	err = pipeline(rt, int(in.Fd()), int(out.Fd()),
		stage{start: new(uniq).filter},
		stage{start: new(numberer).filter})
	if err != nil {
		t.Fatal(err)
	}
	if err := rt.Loop(context.Background()); err != nil {
		t.Fatal(err)
	}
	b, err := ioutil.ReadFile(out.Name())
	if err != nil {
		t.Fatal(err)
	}
	expect.EQ(t, string(b), "     1\tx\n     2\ty\n     3\tx\n")
}

func TestPrintHelp(t *testing.T) {
	var b bytes.Buffer
	printHelp(&b)
	for _, want := range []string{"logger:\n", "\toff ", "\tstderr,level ", "poller:\n", "\tepoll ", "tracer:\n", "\tchrome,path "} {
		if !strings.Contains(b.String(), want) {
			t.Errorf("help %q does not contain %q", b.String(), want)
		}
	}
}
