// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Command strm copies standard input to standard output, line by
// line, through a dataflow pipeline driven by a single strm runtime.
// Optional filters transform the lines in flight:
//
//	strm -uniq -number < input
//
// Configuration is read from the YAML file named by -config; see
// -help-config for the available providers.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/signal"
	"sort"

	"github.com/grailbio/strm/config"
	"github.com/grailbio/strm/errors"
	"github.com/grailbio/strm/log"
	"github.com/grailbio/strm/stream"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		configFlag     = flag.String("config", "", "YAML configuration file")
		levelFlag      = flag.String("level", "", "log level (off, error, info, debug); shorthand for -logger stderr,<level>")
		numberFlag     = flag.Bool("number", false, "prefix each line with its line number")
		uniqFlag       = flag.Bool("uniq", false, "drop lines equal to the preceding line")
		distinctFlag   = flag.Bool("distinct", false, "drop lines that appeared before")
		approxFlag     = flag.Uint("distinct-approx", 0, "with -distinct, track seen lines in a fixed-size bloom filter sized for this many lines instead of an exact table")
		helpConfigFlag = flag.Bool("help-config", false, "print the configuration providers and exit")
		dumpConfigFlag = flag.Bool("dump-config", false, "print the marshaled configuration and exit")
		flagConfig     config.Flag
	)
	flagConfig.Init(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: strm [flags] < input > output\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *helpConfigFlag {
		printHelp(os.Stdout)
		return
	}

	base := make(config.Base)
	if *configFlag != "" {
		b, err := ioutil.ReadFile(*configFlag)
		if err != nil {
			log.Fatal(err)
		}
		if err := config.Unmarshal(b, config.Keys(base)); err != nil {
			log.Fatalf("%s: %v", *configFlag, err)
		}
	}
	flagConfig.Config = base
	var cfg config.Config = &flagConfig
	if *levelFlag != "" {
		cfg = &config.Override{Config: cfg, Key: config.Logger, Val: "stderr," + *levelFlag}
	}
	cfg, err := config.Make(cfg)
	if err != nil {
		log.Fatal(err)
	}
	cfg = config.Once(cfg)
	if *dumpConfigFlag {
		b, err := config.Marshal(cfg)
		if err != nil {
			log.Fatal(err)
		}
		os.Stdout.Write(b)
		return
	}

	rt, err := config.NewRuntime(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer rt.Close()

	var stages []stage
	if *uniqFlag {
		stages = append(stages, stage{start: new(uniq).filter})
	}
	if *distinctFlag {
		d := newDistinct(*approxFlag)
		stages = append(stages, stage{d.filter, d.close})
	}
	if *numberFlag {
		stages = append(stages, stage{start: new(numberer).filter})
	}
	if err := pipeline(rt, int(os.Stdin.Fd()), int(os.Stdout.Fd()), stages...); err != nil {
		log.Fatal(err)
	}

	// Cancel the runtime on the first interrupt; exit on the second.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return rt.Loop(ctx)
	})
	g.Go(func() error {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt)
		defer signal.Stop(sigc)
		select {
		case <-sigc:
			rt.Log.Print("interrupted, stopping")
			cancel()
		case <-ctx.Done():
			return nil
		}
		select {
		case <-sigc:
			os.Exit(1)
		case <-ctx.Done():
		}
		return nil
	})
	err = g.Wait()
	flushTrace(cfg)
	if err != nil {
		if errors.Is(errors.Canceled, err) {
			os.Exit(1)
		}
		log.Fatal(err)
	}
}

// flushTrace writes out the configured tracer, if it buffers.
func flushTrace(cfg config.Config) {
	tracer, err := cfg.Tracer()
	if err != nil {
		log.Error(err)
		return
	}
	if f, ok := tracer.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			log.Errorf("trace: %v", err)
		}
	}
}

// A stage is a filter's callbacks.
type stage struct {
	start, close stream.Func
}

// pipeline connects a reader of fd in, through the provided filter
// stages in order, to a writer of fd out.
func pipeline(rt *stream.Runtime, in, out int, stages ...stage) error {
	src := rt.ReadIO(in)
	for _, st := range stages {
		f := rt.NewStream(stream.Filter, st.start, st.close, nil)
		if err := stream.Connect(src, f); err != nil {
			return err
		}
		src = f
	}
	return stream.Connect(src, rt.WriteIO(out))
}

func printHelp(w io.Writer) {
	help := config.Help()
	var keys []string
	for key := range help {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(w, "%s:\n", key)
		for _, u := range help[key] {
			name := u.Kind
			if u.Arg != "" {
				name += "," + u.Arg
			}
			fmt.Fprintf(w, "\t%-20s %s\n", name, u.Usage)
		}
	}
}
