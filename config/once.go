// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package config

import (
	"github.com/grailbio/base/sync/once"
	"github.com/grailbio/strm/log"
	"github.com/grailbio/strm/stream"
	"github.com/grailbio/strm/trace"
)

// OnceConfig memoizes the first call of the following methods to the
// underlying config: Logger, Poller and Tracer.
type OnceConfig struct {
	Config

	loggerOnce once.Task
	logger     *log.Logger

	pollerOnce once.Task
	poller     stream.Poller

	tracerOnce once.Task
	tracer     trace.Tracer
}

// Once constructs a new OnceConfig using the provided
// underlying configuration.
func Once(cfg Config) *OnceConfig {
	return &OnceConfig{Config: cfg}
}

// Logger returns the result of the first call to the underlying
// configuration's Logger.
func (o *OnceConfig) Logger() (*log.Logger, error) {
	err := o.loggerOnce.Do(func() (err error) {
		o.logger, err = o.Config.Logger()
		return
	})
	return o.logger, err
}

// Poller returns the result of the first call to the underlying
// configuration's Poller.
func (o *OnceConfig) Poller() (stream.Poller, error) {
	err := o.pollerOnce.Do(func() (err error) {
		o.poller, err = o.Config.Poller()
		return
	})
	return o.poller, err
}

// Tracer returns the result of the first call to the underlying
// configuration's Tracer.
func (o *OnceConfig) Tracer() (trace.Tracer, error) {
	err := o.tracerOnce.Do(func() (err error) {
		o.tracer, err = o.Config.Tracer()
		return
	})
	return o.tracer, err
}
