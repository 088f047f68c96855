package util

import (
	"os"
	"sync"

	"golang.org/x/term"
)

var globalMu sync.Mutex
var globalRestore func() error

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// SaveTerminal remembers the current state of stdin so RestoreGlobal can put
// it back after an interrupted prompt left it in raw mode.
func SaveTerminal() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	state, err := term.GetState(fd)
	if err != nil {
		return
	}
	once := sync.Once{}
	SetGlobalRestore(func() error {
		var rerr error
		once.Do(func() { rerr = term.Restore(fd, state) })
		return rerr
	})
}

// SetGlobalRestore sets the global restore function (overwrites previous).
func SetGlobalRestore(restore func() error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalRestore = restore
}

// RestoreGlobal calls the stored global restore (if any) and clears it.
func RestoreGlobal() error {
	globalMu.Lock()
	r := globalRestore
	globalRestore = nil
	globalMu.Unlock()
	if r == nil {
		return nil
	}
	return r()
}
