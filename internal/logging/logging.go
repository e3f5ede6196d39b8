// Package logging wires the process-wide zap logger used by every
// component. A single process-level logger is created once and child
// loggers are derived with Named() per component, matching the "global
// state initialized once per process" convention in §9.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu   sync.Mutex
	base *zap.Logger
)

// Init installs the process logger. dev=true uses zap's human-readable
// development encoder; production uses JSON. Safe to call more than once
// (e.g. from tests) — the latest call wins.
func Init(dev bool) (*zap.Logger, error) {
	mu.Lock()
	defer mu.Unlock()

	var l *zap.Logger
	var err error
	if dev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	base = l
	return base, nil
}

// L returns the process logger, lazily falling back to a no-op logger if
// Init was never called (keeps library packages usable in isolation,
// e.g. from tests that don't call Init).
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		base = zap.NewNop()
	}
	return base
}

// Named returns a child logger scoped to a component, e.g. Named("engine").
func Named(component string) *zap.Logger {
	return L().Named(component)
}

// Reset tears down the process logger, restoring the no-op default. Tests
// use this for isolation per the reset-hook requirement in §9.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	base = nil
}
