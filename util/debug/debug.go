/*
 * shiresim - Per-subsystem debug logging, gated by registered flags.
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on the teacher's util/debug/debug.go: a package-level log file
 * plus a Debugf(tag, mask, level, format, args) helper that only writes
 * when the caller's level bit is set in its debug mask. The teacher keyed
 * messages by device number and channel number; this chip has no devices
 * or channels, so the key becomes the subsystem name (esr, csr, mmu,
 * tensor, sched, trap) from config/debugconfig's flag registration.
 */
package debug

import (
	"fmt"
	"os"
)

var logFile *os.File = os.Stderr

// SetOutput redirects subsystem debug output, which goes to stderr until
// then; a nil file leaves the current output in place.
func SetOutput(f *os.File) {
	if f != nil {
		logFile = f
	}
}

// Debugf writes a subsystem debug message when level is set in mask
// (config/debugconfig.Mask(subsystem)).
func Debugf(subsystem string, mask, level int, format string, a ...interface{}) {
	if mask&level == 0 {
		return
	}
	fmt.Fprintf(logFile, subsystem+": "+format+"\n", a...)
}
