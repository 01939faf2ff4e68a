package util

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// InterruptContext derives a context cancelled on SIGINT/SIGTERM. The
// chapter loop polls it between images, so an interrupt stops the run
// cleanly and keeps the pages already on disk.
func InterruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// RemoveIfEmpty deletes dir when nothing was written into it.
func RemoveIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	if len(entries) == 0 {
		_ = os.Remove(dir)
	}
}
