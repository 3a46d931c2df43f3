package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentmux/agentmux/internal/compositor"
	"github.com/agentmux/agentmux/internal/inputrouter"
	"github.com/agentmux/agentmux/internal/layout"
	"github.com/agentmux/agentmux/internal/logging"
)

// eventLoop is spec.md §5's single-threaded cooperative scheduler: one
// select statement multiplexing the draw timer, OS signals, decoded stdin
// events, and agent-exit notifications. Every case runs to completion
// before the next iteration, so nothing here needs its own locking beyond
// what session.Session and acl.Bus already do for the toolserver's
// separate accept-loop goroutines.
func (a *app) eventLoop(exitCh chan agentExit) error {
	rawCh := make(chan []byte, 64)
	go readStdin(rawCh)

	sigCh := make(chan os.Signal, 8)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGCONT, syscall.SIGWINCH)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(drawInterval)
	defer ticker.Stop()

	dec := inputrouter.NewDecoder()
	var escTimer *time.Timer
	var escTimerC <-chan time.Time

	a.redraw()

	for {
		select {
		case <-ticker.C:
			if a.dirty {
				a.redraw()
				a.dirty = false
			}

		case sig := <-sigCh:
			if done, code := a.handleSignal(sig); done {
				return a.shutdown(code)
			}

		case raw, ok := <-rawCh:
			if !ok {
				return a.shutdown(0)
			}
			var evs []inputrouter.Event
			evs = dec.Feed(raw, evs[:0])
			for _, ev := range evs {
				a.handleEvent(ev)
			}
			if escTimer == nil {
				escTimer = time.NewTimer(30 * time.Millisecond)
			} else {
				if !escTimer.Stop() {
					select {
					case <-escTimer.C:
					default:
					}
				}
				escTimer.Reset(30 * time.Millisecond)
			}
			escTimerC = escTimer.C

		case <-escTimerC:
			if ev, ok := dec.Timeout(); ok {
				a.handleEvent(ev)
			}
			escTimerC = nil

		case exit := <-exitCh:
			if a.handleAgentExit(exit) {
				return a.shutdown(exit.code)
			}
		}
	}
}

// readStdin feeds raw bytes off the controlling terminal to the event
// loop; it closes rawCh when stdin hits EOF so the loop can shut down
// cleanly (e.g. the controlling terminal went away).
func readStdin(rawCh chan<- []byte) {
	buf := make([]byte, 4096)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			b := make([]byte, n)
			copy(b, buf[:n])
			rawCh <- b
		}
		if err != nil {
			close(rawCh)
			return
		}
	}
}

// handleSignal implements spec.md §5/§6's signal chain. done is true once
// the process should exit its event loop (SIGINT/SIGTERM); the last pane
// closing is handled by handleAgentExit, not here.
func (a *app) handleSignal(sig os.Signal) (done bool, code int) {
	switch sig {
	case syscall.SIGINT, syscall.SIGTERM:
		return true, 0
	case syscall.SIGTSTP:
		for _, ag := range a.sess.Agents() {
			ag.Process.Signal(syscall.SIGSTOP)
		}
		a.rt.Restore()
		syscall.Kill(os.Getpid(), syscall.SIGSTOP)
		return false, 0
	case syscall.SIGCONT:
		for _, ag := range a.sess.Agents() {
			ag.Process.Signal(syscall.SIGCONT)
		}
		os.Stdout.WriteString("\x1b[?1049h\x1b[?1000h\x1b[?1006h\x1b[?2004h\x1b[?25l")
		a.dirty = true
		a.redraw()
		return false, 0
	case syscall.SIGWINCH:
		a.handleResize()
		return false, 0
	}
	return false, 0
}

// handleResize rereads the physical terminal size and propagates it to
// every agent's PTY and the layout tree (spec.md §6).
func (a *app) handleResize() {
	cols, rows, err := a.rt.Size()
	if err != nil || cols == 0 || rows == 0 {
		return
	}
	a.width, a.height = cols, rows
	a.tree.Resize(layout.Bounds{X: 0, Y: 0, W: cols, H: rows})
	virtualRows := rows
	if a.cfg.Rows > 0 {
		virtualRows = a.cfg.Rows
	}
	for _, leaf := range a.tree.Leaves() {
		ag, ok := a.sess.Get(leaf.ID)
		if !ok {
			continue
		}
		innerW, innerH := leaf.Bounds.W-2, virtualRows
		if leaf.Bounds.H-2 < innerH {
			innerH = leaf.Bounds.H - 2
		}
		if innerW < 1 {
			innerW = 1
		}
		if innerH < 1 {
			innerH = 1
		}
		if err := ag.Process.Resize(innerW, innerH); err != nil {
			logging.Warn().Str("component", "ptysup").Str("agent_id", leaf.ID).Err(err).Msg("resize failed")
		}
	}
	a.dirty = true
}

// handleAgentExit closes the pane belonging to a terminated agent,
// reporting whether the whole session should now shut down (spec.md
// §4.B: "the session converts into pane close + host exit when the last
// agent exits").
func (a *app) handleAgentExit(exit agentExit) bool {
	delete(a.panes, exit.id)
	a.sess.Remove(exit.id)

	// CloseFocused only acts on the currently-focused leaf; steer focus
	// onto the exiting pane first so the right leaf closes even when a
	// background split exited.
	if a.tree.FocusedPaneID() != exit.id {
		a.focusPane(exit.id)
	}
	stillOpen := a.tree.CloseFocused()
	a.focused = a.tree.FocusedPaneID()
	a.dirty = true

	if !stillOpen {
		return true
	}
	return false
}

// focusPane is a best-effort helper used only to steer CloseFocused at the
// exiting leaf; layout.Tree has no direct "focus this id" operation beyond
// cycling, so this walks leaves looking for an exact id match via repeated
// CycleFocus, bounded by the leaf count to guarantee termination.
func (a *app) focusPane(id string) {
	leaves := a.tree.Leaves()
	for range leaves {
		if a.tree.FocusedPaneID() == id {
			return
		}
		a.tree.CycleFocus(true)
	}
}

func (a *app) redraw() {
	frame := compositor.Frame{
		Tree:          a.tree,
		Panes:         a.panes,
		Focused:       a.focused,
		ModeName:      a.currentModeName(),
		Overlays:      a.overlays,
		SelectionDesc: a.selectionDesc(),
		SearchDesc:    a.searchDesc(),
		Width:         a.width,
		Height:        a.height,
	}
	os.Stdout.WriteString(compositor.Render(frame))
}

// shutdown runs the first step of spec.md §7's shutdown chain: stop every
// child PTY. Closing the socket, unlinking the discovery file and
// restoring the terminal happen in run()'s deferred teardown so they still
// execute on every return path.
func (a *app) shutdown(exitCode int) error {
	for _, ag := range a.sess.Agents() {
		ag.Process.Stop(shutdownGrace)
	}
	a.exitCode = exitCode
	return nil
}
