// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package contract

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/sync/singleflight"
)

// Row is the persisted form of a contract binding. Either column may be nil
// when the owning output is not bound to a contract.
type Row struct {
	Source    []byte
	Arguments []byte
}

// IsBound reports whether both columns are present.
func (r Row) IsBound() bool {
	return r.Source != nil && r.Arguments != nil
}

// Context caches compiled programs keyed by their source and arguments. The
// first program stored under a key wins: later additions of the same pair
// return the cached instance, so every caller observes one shared *Program.
//
// A Context is safe for concurrent use. Concurrent additions of the same key
// share a single compilation.
type Context struct {
	compiler Compiler

	mu       sync.RWMutex
	programs map[Key]*Program

	compiles singleflight.Group
}

// NewContext returns an empty cache compiling programs with compiler.
func NewContext(compiler Compiler) *Context {
	return &Context{
		compiler: compiler,
		programs: make(map[Key]*Program),
	}
}

// Len returns the number of cached programs.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.programs)
}

// Add compiles source with args and caches the result. If a program is
// already cached under the same key, the cached program is returned and the
// freshly compiled one is discarded. A failed compilation leaves the cache
// unchanged.
func (c *Context) Add(source string, args Arguments) (*Program, error) {
	key, err := NewKey(source, args)
	if err != nil {
		return nil, err
	}

	v, err, shared := c.compiles.Do(key.String(), func() (interface{},
		error) {

		artifact, err := c.compiler.Compile(source, args)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompile, err)
		}

		return &Program{
			key:      key,
			source:   source,
			args:     args.Clone(),
			artifact: artifact,
		}, nil
	})
	if err != nil {
		log.Debugf("Compilation of program %v failed: %v", key, err)
		return nil, err
	}
	if shared {
		log.Tracef("Shared compilation of program %v", key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.programs[key]; ok {
		return existing, nil
	}

	program := v.(*Program)
	c.programs[key] = program
	log.Debugf("Cached program %v", key)

	return program, nil
}

// Get returns the cached program for source and args, if any. It never
// compiles.
func (c *Context) Get(source string, args Arguments) (fn.Option[*Program],
	error) {

	key, err := NewKey(source, args)
	if err != nil {
		return fn.None[*Program](), err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if program, ok := c.programs[key]; ok {
		return fn.Some(program), nil
	}

	return fn.None[*Program](), nil
}

// decodeRow turns a bound row into its source and arguments.
func decodeRow(row Row) (string, Arguments, error) {
	if !utf8.Valid(row.Source) {
		return "", nil, ErrDecodeSource
	}

	args, err := DecodeArguments(row.Arguments)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrDecodeArguments, err)
	}

	return string(row.Source), args, nil
}

// AddFromRow behaves like Add for a persisted binding. An unbound row yields
// None. A bound row that cannot be decoded is an error and is never treated
// as unbound.
func (c *Context) AddFromRow(row Row) (fn.Option[*Program], error) {
	if !row.IsBound() {
		return fn.None[*Program](), nil
	}

	source, args, err := decodeRow(row)
	if err != nil {
		return fn.None[*Program](), err
	}

	program, err := c.Add(source, args)
	if err != nil {
		return fn.None[*Program](), err
	}

	return fn.Some(program), nil
}

// GetFromRow behaves like Get for a persisted binding, with the same
// treatment of unbound and undecodable rows as AddFromRow.
func (c *Context) GetFromRow(row Row) (fn.Option[*Program], error) {
	if !row.IsBound() {
		return fn.None[*Program](), nil
	}

	source, args, err := decodeRow(row)
	if err != nil {
		return fn.None[*Program](), err
	}

	return c.Get(source, args)
}

// Bind returns the cached program for a persisted binding, compiling and
// caching it on first use.
func (c *Context) Bind(row Row) (fn.Option[*Program], error) {
	cached, err := c.GetFromRow(row)
	if err != nil || cached.IsSome() {
		return cached, err
	}

	return c.AddFromRow(row)
}
