// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package errors

import (
	"context"
	"os"
	"syscall"
	"testing"
)

func TestE(t *testing.T) {
	e := E("loop", context.DeadlineExceeded)
	if got, want := e, E("loop", Timeout); !Match(want, got) {
		t.Errorf("got %v, want %v", got, want)
	}
	e = E("loop", context.Canceled)
	if !Is(Canceled, e) {
		t.Errorf("expected %v to be canceled", e)
	}

	// Collapse errors
	e = E("emit", Closed, E("deliver", Closed))
	if got, want := e, E("emit", Closed, E("deliver")); !Match(want, got) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestError(t *testing.T) {
	e := E("poll", "kqueue", NotSupported, New("no poller for this platform"))
	if got, want := e.Error(), "poll kqueue: operation not supported: no poller for this platform"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	e = E("connect", "stream 1", E(Invalid))
	if got, want := e.Error(), "connect stream 1: invalid"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	e = E("write", "fd 3", E("flush", "fd 3", Closed, os.ErrClosed))
	if got, want := e.Error(), "write fd 3: closed:\n\tflush fd 3: "+os.ErrClosed.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

type isTemporary bool

func (t isTemporary) Error() string   { return "maybe a temporary error" }
func (t isTemporary) Temporary() bool { return bool(t) }

func TestIs(t *testing.T) {
	for kind := Other; kind < maxKind; kind++ {
		if got, want := Is(kind, E(kind)), kind != Other; got != want {
			t.Errorf("%v: got %v, want %v", kind, got, want)
		}
	}
	for _, temp := range []bool{true, false} {
		if got, want := Is(Temporary, isTemporary(temp)), temp; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
	if Is(Fatal, nil) {
		t.Error("nil error has no kind")
	}
	if !Is(Fatal, E("nth", E(Fatal, "tail too short"))) {
		t.Error("expected fatal kind to be found through the chain")
	}
}

func TestTransient(t *testing.T) {
	for _, tc := range []struct {
		err       error
		transient bool
	}{
		{nil, false},
		{New("some error"), false},
		{syscall.EAGAIN, true},
		{syscall.EPIPE, false},
		{E(Timeout, "wait"), true},
		{E(Unavailable, "poll"), true},
		{E(Fatal, "nth"), false},
		{E("read", isTemporary(true)), true},
		{E(Invalid, "connect"), false},
	} {
		if got, want := Transient(tc.err), tc.transient; got != want {
			t.Errorf("Transient(%v): got %v, want %v", tc.err, got, want)
		}
	}
}

func TestKindString(t *testing.T) {
	if got, want := Closed.String(), "closed"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := Kind(-1).String(), "unknown error"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
