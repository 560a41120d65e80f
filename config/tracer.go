// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package config

import (
	"github.com/grailbio/strm/errors"
	"github.com/grailbio/strm/trace"
)

func init() {
	Register(Tracer, "chrome", "path", "record stream lifetimes to path in Chrome trace event format",
		func(cfg Config, arg string) (Config, error) {
			if arg == "" {
				return nil, errors.E(errors.Invalid, errors.New("chrome tracer requires a path"))
			}
			return &chromeTracer{Config: cfg, path: arg}, nil
		},
	)
	Register(Tracer, "off", "", "disable tracing",
		func(cfg Config, arg string) (Config, error) {
			return &offTracer{cfg}, nil
		},
	)
}

type chromeTracer struct {
	Config
	path string
}

func (c *chromeTracer) Tracer() (trace.Tracer, error) {
	return trace.NewChrome(c.path)
}

type offTracer struct {
	Config
}

func (c *offTracer) Tracer() (trace.Tracer, error) {
	return nil, nil
}
