// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package config

import (
	"github.com/grailbio/strm/poll"
	"github.com/grailbio/strm/stream"
)

func init() {
	Register(Poller, "epoll", "", "create an epoll poller up front (linux only)",
		func(cfg Config, arg string) (Config, error) {
			return &epollPoller{cfg}, nil
		},
	)
	Register(Poller, "lazy", "", "let the runtime create its poller when a descriptor is first bound",
		func(cfg Config, arg string) (Config, error) {
			return &lazyPoller{cfg}, nil
		},
	)
}

type epollPoller struct {
	Config
}

func (c *epollPoller) Poller() (stream.Poller, error) {
	p, err := poll.New()
	if err != nil {
		return nil, err
	}
	return p, nil
}

type lazyPoller struct {
	Config
}

func (c *lazyPoller) Poller() (stream.Poller, error) {
	return nil, nil
}
