// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package config

import (
	golog "log"
	"os"

	"github.com/grailbio/strm/log"
)

func init() {
	Register(Logger, "stderr", "level", "log to standard error at the given level (off, error, info, debug)",
		func(cfg Config, arg string) (Config, error) {
			level := log.InfoLevel
			if arg != "" {
				var err error
				if level, err = log.ParseLevel(arg); err != nil {
					return nil, err
				}
			}
			return &stderrLogger{cfg, level}, nil
		},
	)
	Register(Logger, "off", "", "turn logging off",
		func(cfg Config, arg string) (Config, error) {
			return &loggerOff{cfg}, nil
		},
	)
}

type stderrLogger struct {
	Config
	level log.Level
}

func (c *stderrLogger) Logger() (*log.Logger, error) {
	return log.New(golog.New(os.Stderr, "", golog.LstdFlags), c.level), nil
}

type loggerOff struct {
	Config
}

func (c *loggerOff) Logger() (*log.Logger, error) {
	// A nil logger discards everything.
	return nil, nil
}
