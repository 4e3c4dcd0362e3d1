// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
)

// AmountFlag holds an asset amount in base units and implements the
// flags.Marshaler and Unmarshaler interfaces so it can be used as a config
// struct field. Values are accepted either as a whole number of base units or
// as a decimal amount with eight fractional digits, optionally followed by a
// unit suffix.
type AmountFlag struct {
	Value uint64
}

// NewAmountFlag creates an AmountFlag with a default value in base units.
func NewAmountFlag(defaultValue uint64) *AmountFlag {
	return &AmountFlag{Value: defaultValue}
}

// MarshalFlag satisfies the flags.Marshaler interface.
func (a *AmountFlag) MarshalFlag() (string, error) {
	return strconv.FormatUint(a.Value, 10), nil
}

// UnmarshalFlag satisfies the flags.Unmarshaler interface.
func (a *AmountFlag) UnmarshalFlag(value string) error {
	value = strings.TrimSpace(value)
	if i := strings.IndexByte(value, ' '); i >= 0 {
		value = value[:i]
	}

	if !strings.Contains(value, ".") {
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		a.Value = v
		return nil
	}

	valueF64, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	amount, err := btcutil.NewAmount(valueF64)
	if err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("negative amount %v", value)
	}
	a.Value = uint64(amount)

	return nil
}
