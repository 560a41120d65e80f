// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// +build !linux

package poll

import (
	"context"

	"github.com/grailbio/strm/errors"
)

// Poller is unavailable on this platform.
type Poller struct{}

// New returns an error of kind errors.NotSupported.
func New() (*Poller, error) {
	return nil, errors.E("poll.New", errors.NotSupported, errors.New("epoll is only available on linux"))
}

func (*Poller) Add(fd int, dir Dir) error    { return errors.E("poll.Add", errors.NotSupported) }
func (*Poller) Remove(fd int, dir Dir) error { return errors.E("poll.Remove", errors.NotSupported) }
func (*Poller) Wake() error                  { return errors.E("poll.Wake", errors.NotSupported) }
func (*Poller) Close() error                 { return nil }

func (*Poller) Wait(ctx context.Context) ([]Event, error) {
	return nil, errors.E("poll.Wait", errors.NotSupported)
}
