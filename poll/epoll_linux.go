// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package poll

import (
	"context"
	"strconv"
	"sync"

	"github.com/grailbio/strm/errors"
	"golang.org/x/sys/unix"
)

const maxEvents = 128

// Poller is an epoll-based Poller. Descriptors that epoll refuses
// (regular files, which are always ready) are tracked separately and
// reported ready by every Wait.
type Poller struct {
	epfd int
	// wake is a self-pipe; writing to wake[1] interrupts Wait.
	wake [2]int

	mu     sync.Mutex
	masks  map[int]uint32
	always map[int]uint32
	closed bool

	events []unix.EpollEvent
}

// New returns a new poller.
func New() (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.E("poll.New", "epoll_create", err)
	}
	p := &Poller{
		epfd:   epfd,
		masks:  make(map[int]uint32),
		always: make(map[int]uint32),
		events: make([]unix.EpollEvent, maxEvents),
	}
	if err := unix.Pipe2(p.wake[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		unix.Close(epfd)
		return nil, errors.E("poll.New", "pipe", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(p.wake[0])}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, p.wake[0], &ev); err != nil {
		p.Close()
		return nil, errors.E("poll.New", "epoll_ctl", err)
	}
	return p, nil
}

func dirMask(dir Dir) uint32 {
	if dir == Write {
		return unix.EPOLLOUT
	}
	return unix.EPOLLIN
}

// Add starts watching fd for readiness in direction dir.
func (p *Poller) Add(fd int, dir Dir) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.E("poll.Add", strconv.Itoa(fd), errors.Closed)
	}
	if mask, ok := p.always[fd]; ok {
		p.always[fd] = mask | dirMask(dir)
		return nil
	}
	mask, ok := p.masks[fd]
	mask |= dirMask(dir)
	op := unix.EPOLL_CTL_ADD
	if ok {
		op = unix.EPOLL_CTL_MOD
	}
	ev := unix.EpollEvent{Events: mask, Fd: int32(fd)}
	switch err := unix.EpollCtl(p.epfd, op, fd, &ev); err {
	case nil:
		p.masks[fd] = mask
	case unix.EPERM:
		p.always[fd] = mask
	default:
		return errors.E("poll.Add", strconv.Itoa(fd), dir.String(), err)
	}
	return nil
}

// Remove stops watching fd in direction dir. Removing a descriptor
// that is not watched is a no-op.
func (p *Poller) Remove(fd int, dir Dir) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.E("poll.Remove", strconv.Itoa(fd), errors.Closed)
	}
	if mask, ok := p.always[fd]; ok {
		if mask &^= dirMask(dir); mask == 0 {
			delete(p.always, fd)
		} else {
			p.always[fd] = mask
		}
		return nil
	}
	mask, ok := p.masks[fd]
	if !ok || mask&dirMask(dir) == 0 {
		return nil
	}
	mask &^= dirMask(dir)
	var err error
	if mask == 0 {
		delete(p.masks, fd)
		err = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	} else {
		p.masks[fd] = mask
		ev := unix.EpollEvent{Events: mask, Fd: int32(fd)}
		err = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	}
	// The descriptor may have been closed underneath us, in which case
	// the kernel already dropped it.
	if err != nil && err != unix.EBADF && err != unix.ENOENT {
		return errors.E("poll.Remove", strconv.Itoa(fd), dir.String(), err)
	}
	return nil
}

// Wait blocks until at least one watched descriptor is ready or the
// poller is woken, and returns the ready events. A wakeup with no
// ready descriptors returns an empty slice. Wait must not be called
// concurrently with itself.
func (p *Poller) Wait(ctx context.Context) ([]Event, error) {
	var ready []Event
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.E("poll.Wait", errors.Closed)
	}
	for fd, mask := range p.always {
		ready = appendEvents(ready, fd, mask, mask)
	}
	p.mu.Unlock()
	timeout := -1
	if len(ready) > 0 {
		timeout = 0
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.E("poll.Wait", err)
		}
		n, err := unix.EpollWait(p.epfd, p.events, timeout)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, errors.E("poll.Wait", err)
		}
		p.mu.Lock()
		for _, ev := range p.events[:n] {
			fd := int(ev.Fd)
			if fd == p.wake[0] {
				p.drain()
				continue
			}
			// Errors and hangups are reported in every watched
			// direction; the subsequent read or write observes them.
			got := ev.Events
			if got&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				got |= unix.EPOLLIN | unix.EPOLLOUT
			}
			ready = appendEvents(ready, fd, p.masks[fd], got)
		}
		p.mu.Unlock()
		return ready, nil
	}
}

func appendEvents(ready []Event, fd int, mask, got uint32) []Event {
	if mask&got&unix.EPOLLIN != 0 {
		ready = append(ready, Event{FD: fd, Dir: Read})
	}
	if mask&got&unix.EPOLLOUT != 0 {
		ready = append(ready, Event{FD: fd, Dir: Write})
	}
	return ready
}

func (p *Poller) drain() {
	var b [64]byte
	for {
		n, err := unix.Read(p.wake[0], b[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Wake interrupts a pending or the next call to Wait. It is safe to
// call from any goroutine.
func (p *Poller) Wake() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	_, err := unix.Write(p.wake[1], []byte{0})
	if err == unix.EAGAIN {
		// The pipe is full: a wakeup is already pending.
		err = nil
	}
	if err != nil {
		return errors.E("poll.Wake", err)
	}
	return nil
}

// Close releases the poller's descriptors. Watched descriptors are not
// closed.
func (p *Poller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	var err error
	for _, fd := range []int{p.wake[0], p.wake[1], p.epfd} {
		if e := unix.Close(fd); e != nil && err == nil {
			err = errors.E("poll.Close", e)
		}
	}
	return err
}
