// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import "encoding/hex"

// HexFlag holds bytes given as a hex string on the command line. It records
// whether it was set so an empty value can be told apart from an absent
// flag.
type HexFlag struct {
	Bytes         []byte
	explicitlySet bool
}

// ExplicitlySet returns whether the flag was set through the
// flags.Unmarshaler interface.
func (h *HexFlag) ExplicitlySet() bool { return h.explicitlySet }

// MarshalFlag implements the flags.Marshaler interface.
func (h *HexFlag) MarshalFlag() (string, error) {
	return hex.EncodeToString(h.Bytes), nil
}

// UnmarshalFlag implements the flags.Unmarshaler interface.
func (h *HexFlag) UnmarshalFlag(value string) error {
	b, err := hex.DecodeString(value)
	if err != nil {
		return err
	}
	h.Bytes = b
	h.explicitlySet = true
	return nil
}
