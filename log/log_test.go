// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package log_test

import (
	"reflect"
	"testing"

	"github.com/grailbio/strm/log"
)

type outputBuffer struct {
	messages []string
}

func (o *outputBuffer) Output(calldepth int, s string) error {
	o.messages = append(o.messages, s)
	return nil
}

func TestLogger(t *testing.T) {
	var b1, b2 outputBuffer
	l1 := log.New(&b1, log.InfoLevel)
	l2 := l1.Tee(&b2, "stream 2: ")
	l1.Printf("loop started")
	l2.Error("read failed")

	if got, want := b1.messages, ([]string{"loop started", "stream 2: read failed"}); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := b2.messages, ([]string{"read failed"}); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTeeWithPrefix(t *testing.T) {
	var b outputBuffer
	l := log.New(&b, log.InfoLevel)
	l.Printf("hello, world")
	l1 := l.Tee(nil, "runtime: ")
	l1.Printf("draining")
	l2 := l1.Tee(nil, "stream 1: ")
	l2.Printf("closed")

	if got, want := b.messages, ([]string{
		"hello, world",
		"runtime: draining",
		"runtime: stream 1: closed",
	}); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLevels(t *testing.T) {
	var b outputBuffer
	l := log.New(&b, log.ErrorLevel)
	l.Print("this message should be dropped")
	l.Debug("this too")
	l.Error("i should see this message")
	l.Error("and this")
	if got, want := b.messages, ([]string{"i should see this message", "and this"}); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	for _, level := range []log.Level{log.InfoLevel, log.DebugLevel} {
		if l.At(level) {
			t.Errorf("logger at %v", level)
		}
	}
	if !l.At(log.ErrorLevel) {
		t.Error("not at ErrorLevel")
	}
}

func TestNilLogger(t *testing.T) {
	l := log.New(nil, log.OffLevel)
	if l != nil {
		t.Fatal("expected nil logger at OffLevel")
	}
	// Nil loggers discard everything, including tees.
	l.Tee(nil, "x: ").Printf("dropped")
	if l.At(log.ErrorLevel) {
		t.Error("nil logger should not be at any level")
	}
}

func TestParseLevel(t *testing.T) {
	for _, level := range []log.Level{log.OffLevel, log.ErrorLevel, log.InfoLevel, log.DebugLevel} {
		got, err := log.ParseLevel(level.String())
		if err != nil {
			t.Fatal(err)
		}
		if got != level {
			t.Errorf("got %v, want %v", got, level)
		}
	}
	if got, err := log.ParseLevel(" DEBUG "); err != nil || got != log.DebugLevel {
		t.Errorf("got %v, %v, want debug", got, err)
	}
	if _, err := log.ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}
