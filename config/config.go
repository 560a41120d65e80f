// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package config defines an interface for configuring a strm
// runtime. This interface can be composed in multiple ways, allowing
// for layered configuration.
//
// A configuration is a set of keys (corresponding to toplevel keys
// in a YAML document). A subset of keys, defined by the package's
// AllKeys, correspond to objects that are configured by the Config
// interface. These keys are provisioned by globally registered
// providers; the keys must be string formatted, and contain the
// (registered) name of the provider, followed by an optional comma
// and string argument. For example:
//
//	logger: stderr,debug
//
// Configures the logger key (corresponding to Config.Logger) using
// the stderr provider; the argument "debug" sets its level.
//
//	tracer: chrome,/tmp/strm.trace
//
// Records stream lifetimes in Chrome's trace event format.
//
// Other keys carry plain values. The runtime key is a map of
// scheduler parameters:
//
//	runtime:
//	  highwater: 65536
//	  lowwater: 16384
package config

import (
	"fmt"
	"io/ioutil"
	golog "log"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/grailbio/strm/errors"
	"github.com/grailbio/strm/log"
	"github.com/grailbio/strm/stream"
	"github.com/grailbio/strm/trace"
	yaml "gopkg.in/yaml.v2"
)

// The following are the set of keys provisioned by Config.
const (
	Logger  = "logger"
	Poller  = "poller"
	Tracer  = "tracer"
	Runtime = "runtime"
)

// AllKeys defines the order in which provider keys are provisioned.
// Providers for keys later in the list may use configuration
// provided by providers for keys earlier in the list.
var AllKeys = []string{
	Logger,
	Poller,
	Tracer,
}

// Keys is a map of string keys to configuration values.
type Keys map[string]interface{}

// RuntimeParams holds the scheduler parameters of a runtime.
type RuntimeParams struct {
	// HighWater and LowWater are the write buffer watermarks of
	// output streams.
	HighWater, LowWater int
}

// A Config provides the objects used to assemble a strm runtime. It
// is safe to call each method multiple times, but they should not be
// called concurrently.
type Config interface {
	// Logger returns the configured logger.
	Logger() (*log.Logger, error)

	// Poller returns the configured readiness poller. A nil poller
	// defers poller creation to the runtime.
	Poller() (stream.Poller, error)

	// Tracer returns the configured tracer. A nil tracer disables
	// tracing.
	Tracer() (trace.Tracer, error)

	// Runtime returns the configured scheduler parameters.
	Runtime() (RuntimeParams, error)

	// Value returns the value of the given key.
	Value(key string) interface{}

	// Marshal marshals the current configuration into keys.
	Marshal(keys Keys) error

	// Keys returns all the keys as defined by this config.
	Keys() Keys
}

// Base defines a base configuration with reasonable defaults
// where they apply.
type Base Keys

// Logger returns a logger that outputs to standard error.
func (b Base) Logger() (*log.Logger, error) {
	return log.New(golog.New(os.Stderr, "", golog.LstdFlags), log.InfoLevel), nil
}

// Poller returns a nil poller: the runtime creates its own.
func (b Base) Poller() (stream.Poller, error) {
	return nil, nil
}

// Tracer returns a nil tracer.
func (b Base) Tracer() (trace.Tracer, error) {
	return nil, nil
}

// Runtime returns the parameters in the "runtime" key, using the
// stream package's defaults for missing parameters. A default low
// watermark above a configured high watermark is lowered to match it.
func (b Base) Runtime() (RuntimeParams, error) {
	params := RuntimeParams{
		HighWater: stream.DefaultHighWater,
		LowWater:  stream.DefaultLowWater,
	}
	v, ok := b[Runtime]
	if !ok || v == nil {
		return params, nil
	}
	m, ok := v.(map[interface{}]interface{})
	if !ok {
		return params, errors.E("config.Runtime", errors.Invalid, errors.Errorf("expected map for key %s, got %T", Runtime, v))
	}
	var lowSet bool
	for k, v := range m {
		name := fmt.Sprint(k)
		n, ok := v.(int)
		if !ok || n < 0 {
			return params, errors.E("config.Runtime", name, errors.Invalid, errors.Errorf("expected non-negative integer, got %v", v))
		}
		switch name {
		case "highwater":
			params.HighWater = n
		case "lowwater":
			params.LowWater, lowSet = n, true
		default:
			return params, errors.E("config.Runtime", name, errors.Invalid, errors.New("unknown runtime parameter"))
		}
	}
	if params.LowWater > params.HighWater {
		if !lowSet {
			params.LowWater = params.HighWater
			return params, nil
		}
		return params, errors.E("config.Runtime", errors.Invalid,
			errors.Errorf("lowwater %d exceeds highwater %d", params.LowWater, params.HighWater))
	}
	return params, nil
}

// Keys returns the configured keys.
func (b Base) Keys() Keys {
	return Keys(b)
}

// Value returns the value for the provided key.
func (b Base) Value(key string) interface{} {
	return b[key]
}

// Marshal populates the provided key dictionary with the keys
// present in this configuration.
func (b Base) Marshal(keys Keys) error {
	for k, v := range b {
		keys[k] = v
	}
	return nil
}

// NewRuntime assembles a runtime from the configuration's provisioned
// objects and scheduler parameters.
func NewRuntime(cfg Config) (*stream.Runtime, error) {
	logger, err := cfg.Logger()
	if err != nil {
		return nil, errors.E("config.NewRuntime", Logger, err)
	}
	poller, err := cfg.Poller()
	if err != nil {
		return nil, errors.E("config.NewRuntime", Poller, err)
	}
	tracer, err := cfg.Tracer()
	if err != nil {
		return nil, errors.E("config.NewRuntime", Tracer, err)
	}
	params, err := cfg.Runtime()
	if err != nil {
		return nil, errors.E("config.NewRuntime", Runtime, err)
	}
	opts := []stream.Option{
		stream.WithLogger(logger),
		stream.WithHighWater(params.HighWater),
		stream.WithLowWater(params.LowWater),
	}
	if poller != nil {
		opts = append(opts, stream.WithPoller(poller))
	}
	if tracer != nil {
		opts = append(opts, stream.WithTracer(tracer))
	}
	return stream.New(opts...), nil
}

// Unmarshal unmarshals the (YAML-configured) configuration in b into
// keys.
func Unmarshal(b []byte, keys Keys) error {
	return yaml.Unmarshal(b, keys)
}

// Marshal marshals the given keys into YAML-formatted bytes.
func Marshal(cfg Config) ([]byte, error) {
	keys := make(Keys)
	if err := cfg.Marshal(keys); err != nil {
		return nil, err
	}
	return yaml.Marshal(keys)
}

// Make evaluates a config's keys: for each key in AllKeys (and in
// the order defined by AllKeys), Make parses its provider, and
// provisions the key accordingly. Make returns errors if a provider
// cannot be found or if the provider fails to configure the given
// key.
func Make(cfg Config) (Config, error) {
	for _, key := range AllKeys {
		v := cfg.Value(key)
		if v == nil {
			continue
		}
		vstr, ok := v.(string)
		if !ok {
			return nil, errors.E("config.Make", key, errors.Invalid, errors.Errorf("expected string, got %T", v))
		}
		name, arg := peel(vstr, ",")
		provider, ok := Lookup(key, name)
		if !ok {
			return nil, errors.E("config.Make", key, errors.NotSupported, errors.Errorf("provider %s not defined", name))
		}
		var err error
		cfg, err = provider.Configure(cfg, arg)
		if err != nil {
			return nil, errors.E("config.Make", key, name, err)
		}
	}
	return cfg, nil
}

// Parse parses and provisions a configuration from the
// YAML-formatted bytes b.
func Parse(b []byte) (Config, error) {
	base := make(Base)
	if err := Unmarshal(b, Keys(base)); err != nil {
		return nil, errors.E("config.Parse", errors.Invalid, err)
	}
	return Make(base)
}

// ParseFile reads and then parses the configuration from the
// provided filename.
func ParseFile(filename string) (Config, error) {
	b, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.E("config.ParseFile", filename, err)
	}
	return Parse(b)
}

// A Provider provisions a single key in a configuration. Providers
// must be registered via the package's Register function.
type Provider struct {
	Configure        func(cfg Config, arg string) (Config, error)
	Kind, Arg, Usage string
}

var (
	providers = make(map[string]map[string]Provider)
	mu        sync.Mutex
)

// Register the configuration provider kind for the given key. The
// arg and usage string should describe the provider's argument.
// Register panics if the kind is already registered for the key.
func Register(key, kind, arg, usage string, configure func(Config, string) (Config, error)) {
	mu.Lock()
	defer mu.Unlock()
	kindmap := providers[key]
	if kindmap == nil {
		kindmap = make(map[string]Provider)
		providers[key] = kindmap
	}
	if _, ok := kindmap[kind]; ok {
		panic(fmt.Sprintf("provider %s already registered for key %s", kind, key))
	}
	kindmap[kind] = Provider{
		Configure: configure,
		Kind:      kind,
		Arg:       arg,
		Usage:     usage,
	}
}

// Lookup returns the Provider of kind for key.
func Lookup(key, kind string) (Provider, bool) {
	mu.Lock()
	defer mu.Unlock()
	p, ok := providers[key][kind]
	return p, ok
}

// Usage contains usage information for a provider.
type Usage struct {
	Kind, Arg, Usage string
}

// Help returns Usages, organized by key and sorted by kind.
func Help() map[string][]Usage {
	mu.Lock()
	defer mu.Unlock()
	help := make(map[string][]Usage)
	for key, keyProviders := range providers {
		var usages []Usage
		for name, provider := range keyProviders {
			usages = append(usages, Usage{
				Kind:  name,
				Arg:   provider.Arg,
				Usage: provider.Usage,
			})
		}
		sort.Slice(usages, func(i, j int) bool { return usages[i].Kind < usages[j].Kind })
		help[key] = usages
	}
	return help
}

func peel(s, sep string) (head, tail string) {
	switch parts := strings.SplitN(s, sep, 2); len(parts) {
	case 1:
		return parts[0], ""
	case 2:
		return parts[0], parts[1]
	default:
		panic("bug")
	}
}
