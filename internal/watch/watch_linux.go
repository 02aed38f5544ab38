//go:build linux

// Package watch implements the `--watch` flag shared by the build and run
// subcommands: block until the input file changes, then call back so the
// caller can rebuild (or re-run) it. Grounded on an inotify-based file
// watcher from the broader example pack, trimmed from a multi-file,
// debounced watcher down to the single path this compiler ever needs.
package watch

import (
	"fmt"
	"path/filepath"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Watcher watches one file for modify/close-write events and invokes a
// callback, debounced, whenever one arrives.
type Watcher struct {
	fd       int
	wd       int
	path     string
	onChange func()
}

// New opens an inotify instance and arms a watch on path.
func New(path string, onChange func()) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init failed: %w", err)
	}
	wd, err := unix.InotifyAddWatch(fd, absPath, unix.IN_MODIFY|unix.IN_CLOSE_WRITE)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to watch %s: %w", absPath, err)
	}
	return &Watcher{fd: fd, wd: wd, path: absPath, onChange: onChange}, nil
}

// Run blocks, invoking onChange each time the watched file is modified,
// until Close is called. Events arriving within quietPeriod of the last
// callback are coalesced into a single call, since an editor's save
// typically produces more than one inotify event per write.
func (w *Watcher) Run() error {
	const quietPeriod = 200 * time.Millisecond
	buf := make([]byte, unix.SizeofInotifyEvent*8)
	var lastFired time.Time

	for {
		n, err := unix.Read(w.fd, buf)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		if n <= 0 {
			return nil // fd closed
		}

		offset := 0
		touched := false
		for offset < n {
			event := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			offset += unix.SizeofInotifyEvent + int(event.Len)
			if int(event.Wd) == w.wd && event.Mask&(unix.IN_MODIFY|unix.IN_CLOSE_WRITE) != 0 {
				touched = true
			}
		}
		if !touched {
			continue
		}
		if now := time.Now(); now.Sub(lastFired) >= quietPeriod {
			lastFired = now
			w.onChange()
		}
	}
}

// Close releases the inotify file descriptor.
func (w *Watcher) Close() error {
	return unix.Close(w.fd)
}
