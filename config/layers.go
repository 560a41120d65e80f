// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package config

import (
	"flag"
	"fmt"
)

// Default layers a default value for a key over a configuration. The
// value is used (and marshaled) only when the underlying
// configuration has none.
type Default struct {
	Config
	Key string
	Val interface{}
}

// Value returns the underlying value for key, or the default.
func (d *Default) Value(key string) interface{} {
	v := d.Config.Value(key)
	if key == d.Key && v == nil {
		return d.Val
	}
	return v
}

// Marshal marshals the underlying configuration, adding the default
// if the key is absent.
func (d *Default) Marshal(keys Keys) error {
	if err := d.Config.Marshal(keys); err != nil {
		return err
	}
	if _, ok := keys[d.Key]; !ok {
		keys[d.Key] = d.Val
	}
	return nil
}

// Override layers a value for a key over a configuration,
// replacing whatever value the configuration has.
type Override struct {
	Config
	Key string
	Val interface{}
}

// Value returns the override for its key, and the underlying value
// otherwise.
func (o *Override) Value(key string) interface{} {
	if key == o.Key {
		return o.Val
	}
	return o.Config.Value(key)
}

// Marshal marshals the underlying configuration with the override in
// place.
func (o *Override) Marshal(keys Keys) error {
	if err := o.Config.Marshal(keys); err != nil {
		return err
	}
	keys[o.Key] = o.Val
	return nil
}

// Flag overrides provider keys from command line flags. Init must
// be called before the flags are parsed.
type Flag struct {
	Config

	vals map[string]*string
}

// Init registers a flag for each key in AllKeys with the provided
// flag set.
func (f *Flag) Init(flags *flag.FlagSet) {
	f.vals = make(map[string]*string)
	for _, key := range AllKeys {
		f.vals[key] = flags.String(key, "", fmt.Sprintf("override the %s provider from config", key))
	}
}

// Value returns the flag value for key, if it was set, or else the
// underlying value.
func (f *Flag) Value(key string) interface{} {
	if s := f.vals[key]; s != nil && *s != "" {
		return *s
	}
	return f.Config.Value(key)
}

// Marshal marshals the underlying configuration with the values of
// the flags that were set.
func (f *Flag) Marshal(keys Keys) error {
	if err := f.Config.Marshal(keys); err != nil {
		return err
	}
	for key, s := range f.vals {
		if *s != "" {
			keys[key] = *s
		}
	}
	return nil
}
