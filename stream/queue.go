// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package stream

import (
	"sync"

	"github.com/grailbio/strm/values"
)

// A Task is a unit of deferred work: a callback to be invoked on a
// stream with a value. Tasks are immutable once created.
type Task struct {
	stream *Stream
	fn     Func
	value  values.T
	// force runs the task even if its stream has closed. It is set for
	// I/O readiness tasks, which are governed by descriptor bindings
	// rather than stream state.
	force bool

	next *Task
}

// NewTask returns a task that invokes fn(s, v).
func NewTask(s *Stream, fn Func, v values.T) *Task {
	return &Task{stream: s, fn: fn, value: v}
}

// Stream returns the task's target stream.
func (t *Task) Stream() *Stream { return t.stream }

// Value returns the task's value.
func (t *Task) Value() values.T { return t.value }

// run invokes the task. Tasks targeting closed streams are dropped.
func (t *Task) run() {
	if t.fn == nil {
		return
	}
	if t.stream != nil {
		if t.stream.state == stateClosed && !t.force {
			return
		}
		t.stream.ntasks++
	}
	t.fn(t.stream, t.value)
}

// A Queue is a FIFO of tasks. Queues may be pushed from any
// goroutine; tasks are run by the goroutine calling Exec or Drain.
type Queue struct {
	mu         sync.Mutex
	head, tail *Task
	n          int
}

// Push appends a task to the queue.
func (q *Queue) Push(t *Task) {
	q.mu.Lock()
	t.next = nil
	if q.tail == nil {
		q.head = t
	} else {
		q.tail.next = t
	}
	q.tail = t
	q.n++
	q.mu.Unlock()
}

func (q *Queue) pop() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	t := q.head
	if t == nil {
		return nil
	}
	q.head = t.next
	if q.head == nil {
		q.tail = nil
	}
	t.next = nil
	q.n--
	return t
}

// Exec pops and runs the oldest task. It returns false if the queue
// was empty. The queue lock is not held while the task runs, so tasks
// may push further tasks.
func (q *Queue) Exec() bool {
	t := q.pop()
	if t == nil {
		return false
	}
	t.run()
	return true
}

// Drain runs tasks until the queue is empty, including tasks pushed
// while draining, and returns the number of tasks run.
func (q *Queue) Drain() int {
	var n int
	for q.Exec() {
		n++
	}
	return n
}

// Size returns the number of queued tasks.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// NonEmpty tells whether the queue has tasks.
func (q *Queue) NonEmpty() bool {
	return q.Size() > 0
}
