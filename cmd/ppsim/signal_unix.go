//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals cancel the command context. A run then stops between ticks
// and still records its status.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
