package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

type SafePrinter struct {
	mu        sync.Mutex
	out       io.Writer
	suspended bool
	// statusOpen is set while a status line without newline is on screen.
	statusOpen bool
}

// Default is the shared SafePrinter used across the application so that
// goroutines (watcher, progress callbacks) never interleave their output.
var Default = NewPrinter(os.Stdout)

func NewPrinter(out io.Writer) *SafePrinter {
	return &SafePrinter{out: out}
}

// SetOutput redirects the printer, mainly for tests.
func (s *SafePrinter) SetOutput(out io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = out
}

func (s *SafePrinter) endStatus() {
	if s.statusOpen {
		fmt.Fprint(s.out, "\r\x1b[K")
		s.statusOpen = false
	}
}

func (s *SafePrinter) Print(a ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	s.endStatus()
	fmt.Fprint(s.out, a...)
}

func (s *SafePrinter) Printf(format string, a ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	s.endStatus()
	fmt.Fprintf(s.out, format, a...)
}

func (s *SafePrinter) Println(a ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	s.endStatus()
	fmt.Fprintln(s.out, a...)
}

// Status overwrites the current line with line and leaves the cursor on it.
// The next regular print clears it first.
func (s *SafePrinter) Status(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	fmt.Fprint(s.out, "\r\x1b[K"+line)
	s.statusOpen = true
}

// PrintBlock prints a multi-line block atomically, ending it with a newline.
func (s *SafePrinter) PrintBlock(block string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	s.endStatus()
	fmt.Fprint(s.out, block)
	if !strings.HasSuffix(block, "\n") {
		fmt.Fprint(s.out, "\n")
	}
}

// Suspend silences all subsequent prints until Resume is called, so that
// interactive prompts own the terminal.
func (s *SafePrinter) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = true
}

func (s *SafePrinter) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = false
}

func (s *SafePrinter) IsSuspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}
