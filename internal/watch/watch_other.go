//go:build !linux

package watch

import (
	"fmt"
	"runtime"
)

// Watcher is the non-Linux stand-in: this compiler only targets Linux
// executables, and the watch implementation is inotify-specific, so
// --watch simply isn't available off Linux.
type Watcher struct{}

// New always fails on non-Linux platforms.
func New(path string, onChange func()) (*Watcher, error) {
	return nil, fmt.Errorf("--watch is unsupported on %s", runtime.GOOS)
}

// Run never blocks; New always fails first.
func (w *Watcher) Run() error { return nil }

// Close is a no-op.
func (w *Watcher) Close() error { return nil }
