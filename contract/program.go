// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	// ErrCompile is returned when the compiler rejects a source and
	// argument pair.
	ErrCompile = errors.New("contract compilation failed")

	// ErrDecodeSource is returned when a persisted source is not valid
	// UTF-8.
	ErrDecodeSource = errors.New("contract source is not valid utf-8")

	// ErrDecodeArguments is returned when persisted arguments cannot be
	// decoded.
	ErrDecodeArguments = errors.New("malformed contract arguments")
)

// Key identifies a compiled program by its source and arguments.
type Key [sha256.Size]byte

// String returns the hex encoding of the key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// NewKey computes the cache key of a source and argument pair as the SHA-256
// of the raw source bytes followed by the canonical argument encoding.
func NewKey(source string, args Arguments) (Key, error) {
	encoded, err := args.Encode()
	if err != nil {
		return Key{}, err
	}

	h := sha256.New()
	_, _ = h.Write([]byte(source))
	_, _ = h.Write(encoded)

	var k Key
	copy(k[:], h.Sum(nil))

	return k, nil
}

// SourceTag returns the digest used to group persisted contracts by source.
func SourceTag(source string) [sha256.Size]byte {
	return sha256.Sum256([]byte(source))
}

// Artifact is the result of compiling a program.
type Artifact interface {
	// CommitmentRoot returns the commitment merkle root identifying the
	// compiled program.
	CommitmentRoot() [32]byte
}

// Compiler turns a contract source and its arguments into an Artifact.
// Implementations must be safe for concurrent use.
type Compiler interface {
	Compile(source string, args Arguments) (Artifact, error)
}

// CompilerFunc adapts a plain function to the Compiler interface.
type CompilerFunc func(source string, args Arguments) (Artifact, error)

// Compile calls f(source, args).
func (f CompilerFunc) Compile(source string, args Arguments) (Artifact,
	error) {

	return f(source, args)
}

// Program is a compiled contract together with the inputs it was compiled
// from. Programs are immutable once created and are shared by every holder
// obtained from the same Context.
type Program struct {
	key      Key
	source   string
	args     Arguments
	artifact Artifact
}

// Key returns the cache key of the program.
func (p *Program) Key() Key {
	return p.key
}

// Source returns the program source.
func (p *Program) Source() string {
	return p.source
}

// Arguments returns a copy of the arguments the program was compiled with.
func (p *Program) Arguments() Arguments {
	return p.args.Clone()
}

// Artifact returns the compiled form of the program.
func (p *Program) Artifact() Artifact {
	return p.artifact
}
