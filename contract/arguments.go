// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package contract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/lightningnetwork/lnd/tlv"
)

const (
	// argNameType is the TLV type of an argument name.
	argNameType tlv.Type = 1

	// argValueType is the TLV type of an argument value.
	argValueType tlv.Type = 2
)

// Arguments maps the named parameters of a contract program to their encoded
// values.
type Arguments map[string][]byte

// Clone returns a deep copy of the arguments.
func (a Arguments) Clone() Arguments {
	c := make(Arguments, len(a))
	for name, value := range a {
		c[name] = bytes.Clone(value)
	}

	return c
}

// Equal reports whether both argument sets bind the same names to the same
// values.
func (a Arguments) Equal(b Arguments) bool {
	if len(a) != len(b) {
		return false
	}
	for name, value := range a {
		other, ok := b[name]
		if !ok || !bytes.Equal(value, other) {
			return false
		}
	}

	return true
}

// names returns the argument names in ascending byte order.
func (a Arguments) names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Encode returns the canonical serialization of the arguments. Each argument
// is written as a length prefixed TLV stream holding its name and value, in
// ascending name order, so equal argument sets always encode to the same
// bytes.
func (a Arguments) Encode() ([]byte, error) {
	var (
		b   bytes.Buffer
		buf [8]byte
	)
	for _, name := range a.names() {
		nameBytes := []byte(name)
		value := a[name]
		if value == nil {
			value = []byte{}
		}

		stream, err := tlv.NewStream(
			tlv.MakePrimitiveRecord(argNameType, &nameBytes),
			tlv.MakePrimitiveRecord(argValueType, &value),
		)
		if err != nil {
			return nil, err
		}

		var inner bytes.Buffer
		if err := stream.Encode(&inner); err != nil {
			return nil, err
		}

		err = tlv.WriteVarInt(&b, uint64(inner.Len()), &buf)
		if err != nil {
			return nil, err
		}
		if _, err := b.Write(inner.Bytes()); err != nil {
			return nil, err
		}
	}

	return b.Bytes(), nil
}

// DecodeArguments parses arguments written by Encode. Names must appear in
// strictly ascending order and every entry must carry both a name and a
// value.
func DecodeArguments(b []byte) (Arguments, error) {
	var (
		r    = bytes.NewReader(b)
		buf  [8]byte
		args = make(Arguments)
		last string
	)
	for i := 0; r.Len() > 0; i++ {
		innerLen, err := tlv.ReadVarInt(r, &buf)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		if innerLen > uint64(r.Len()) {
			return nil, fmt.Errorf("argument %d: length %d exceeds "+
				"remaining %d bytes", i, innerLen, r.Len())
		}

		var name, value []byte
		stream, err := tlv.NewStream(
			tlv.MakePrimitiveRecord(argNameType, &name),
			tlv.MakePrimitiveRecord(argValueType, &value),
		)
		if err != nil {
			return nil, err
		}

		innerReader := &io.LimitedReader{R: r, N: int64(innerLen)}
		parsed, err := stream.DecodeWithParsedTypes(innerReader)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		if innerReader.N != 0 {
			return nil, fmt.Errorf("argument %d: %d unread bytes", i,
				innerReader.N)
		}
		if _, ok := parsed[argNameType]; !ok {
			return nil, fmt.Errorf("argument %d: missing name", i)
		}
		if _, ok := parsed[argValueType]; !ok {
			return nil, fmt.Errorf("argument %d: missing value", i)
		}

		n := string(name)
		if i > 0 && n <= last {
			return nil, errors.New("argument names not in canonical " +
				"order")
		}
		last = n
		if value == nil {
			value = []byte{}
		}
		args[n] = value
	}

	return args, nil
}
