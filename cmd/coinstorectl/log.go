// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/dexkit/coinstore/coinselect"
	"github.com/dexkit/coinstore/coinstore"
	"github.com/dexkit/coinstore/contract"
)

// backendLog is the logging backend used to create all subsystem loggers.
var backendLog = btclog.NewBackend(os.Stderr)

var (
	log       = backendLog.Logger("CTL")
	cstrLog   = backendLog.Logger("CSTR")
	ctrcLog   = backendLog.Logger("CTRC")
	cselLog   = backendLog.Logger("CSEL")
	subsystem = map[string]btclog.Logger{
		"CTL":  log,
		"CSTR": cstrLog,
		"CTRC": ctrcLog,
		"CSEL": cselLog,
	}
)

// Initialize package-global logger variables.
func init() {
	coinstore.UseLogger(cstrLog)
	contract.UseLogger(ctrcLog)
	coinselect.UseLogger(cselLog)
}

// setLogLevels sets the log level of every subsystem.
func setLogLevels(levelStr string) error {
	level, ok := btclog.LevelFromString(levelStr)
	if !ok {
		return fmt.Errorf("invalid log level %q", levelStr)
	}

	for _, logger := range subsystem {
		logger.SetLevel(level)
	}

	return nil
}
