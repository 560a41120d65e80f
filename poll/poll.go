// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package poll implements descriptor readiness notification for the
// strm runtime. A Poller watches a set of descriptors for read or
// write readiness; Wait blocks until at least one is ready, or until
// the poller is woken.
//
// Pollers are level-triggered: a descriptor that remains ready is
// reported by every call to Wait until it is consumed or removed.
package poll

// Dir is the direction of readiness.
type Dir int

const (
	// Read is readiness to read without blocking.
	Read Dir = iota
	// Write is readiness to write without blocking.
	Write
)

func (d Dir) String() string {
	switch d {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

// Event reports readiness of descriptor FD in direction Dir.
type Event struct {
	FD  int
	Dir Dir
}
