package inputrouter

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
)

// RawTerminal puts the controlling terminal into raw mode and enables SGR
// mouse + bracketed-paste reporting for the lifetime of one session,
// mirroring the raw-mode setup/teardown pair every PTY-fronting terminal
// app needs (grounded on the same term.MakeRaw/term.Restore idiom used
// elsewhere in the pack for interactive stdin handling).
type RawTerminal struct {
	fd       int
	restored *term.State
}

// EnterRaw switches stdin into raw mode and turns on SGR mouse tracking
// (DECSET 1000/1006) and bracketed paste (DECSET 2004).
func EnterRaw() (*RawTerminal, error) {
	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	os.Stdout.WriteString("\x1b[?1000h\x1b[?1006h\x1b[?2004h")
	return &RawTerminal{fd: fd, restored: state}, nil
}

// Restore disables mouse/paste reporting and returns the terminal to
// cooked mode.
func (t *RawTerminal) Restore() {
	os.Stdout.WriteString("\x1b[?1000l\x1b[?1006l\x1b[?2004l")
	term.Restore(t.fd, t.restored)
}

// Size reports the controlling terminal's current column/row count.
func (t *RawTerminal) Size() (cols, rows int, err error) {
	return term.GetSize(t.fd)
}

// WatchResize delivers SIGWINCH notifications on a channel the caller's
// event loop can select on, cancelled by calling the returned stop func.
func WatchResize() (ch <-chan os.Signal, stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	return sigCh, func() { signal.Stop(sigCh) }
}
