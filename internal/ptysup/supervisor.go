// Package ptysup supervises one PTY-backed child process per hosted
// agent (spec.md §4.B): spawn, non-blocking read into a vtgrid.Grid,
// write-on-focus, resize, and reap-on-exit. Process lifecycle (signal
// forwarding, graceful-then-forceful stop) follows the shape of
// peakyragnar-subluminal/pkg/adapter/mcpstdio/process.go's
// UpstreamProcess, adapted to wrap a PTY master instead of plain pipes.
package ptysup

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/agentmux/agentmux/internal/vtgrid"
)

// ExitEvent is delivered on Process.Done() when the child exits.
type ExitEvent struct {
	Code int
	Err  error
}

// Process owns one PTY master/slave pair, the child command running on
// it, and the Grid + Parser that its output is fed into.
type Process struct {
	Cmd  string
	Args []string

	cmd    *exec.Cmd
	master *os.File

	Grid   *vtgrid.Grid
	parser *vtgrid.Parser

	mu       sync.Mutex
	alive    bool
	exitCode int

	done     chan ExitEvent
	doneOnce sync.Once
}

// Spawn starts cmd/args with env in a new PTY sized cols x rows, and
// begins the non-blocking read loop that feeds a fresh Grid.
func Spawn(cmdName string, args []string, env []string, dir string, cols, rows, scrollbackMax int) (*Process, error) {
	c := exec.Command(cmdName, args...)
	c.Env = env
	c.Dir = dir

	master, err := pty.StartWithSize(c, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("spawn pty for %s: %w", cmdName, err)
	}

	grid := vtgrid.NewGrid(rows, cols, scrollbackMax)
	p := &Process{
		Cmd:      cmdName,
		Args:     args,
		cmd:      c,
		master:   master,
		Grid:     grid,
		parser:   vtgrid.NewParser(grid),
		alive:    true,
		exitCode: -1,
		done:     make(chan ExitEvent, 1),
	}

	go p.readLoop()
	go p.waitLoop()
	return p, nil
}

// OnParseError wires the parser's malformed-sequence diagnostic to fn, the
// "[viewport]"-prefixed logging hook from spec.md §4.A.
func (p *Process) OnParseError(fn func(reason string)) { p.parser.OnError = fn }

// OnOSC52 wires the parser's clipboard-write hook to fn (spec.md §4.F).
func (p *Process) OnOSC52(fn func(selection, b64 string)) { p.parser.OnOSC52 = fn }

func (p *Process) readLoop() {
	buf := make([]byte, 64*1024)
	for {
		n, err := p.master.Read(buf)
		if n > 0 {
			p.parser.Write(buf[:n])
		}
		if err != nil {
			if err == io.EOF {
				return
			}
			if pe, ok := err.(*os.PathError); ok && pe.Err == syscall.EAGAIN {
				continue // transient-io: read retried
			}
			return
		}
	}
}

func (p *Process) waitLoop() {
	err := p.cmd.Wait()
	code := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	p.mu.Lock()
	p.alive = false
	p.exitCode = code
	p.mu.Unlock()

	p.master.Close()
	p.doneOnce.Do(func() {
		p.done <- ExitEvent{Code: code, Err: err}
		close(p.done)
	})
}

// Done returns the channel the session's event loop selects on to learn
// of this process's exit (spec.md §4.B).
func (p *Process) Done() <-chan ExitEvent { return p.done }

// Write pushes bytes to the PTY's input. The caller (the input router) is
// responsible for only calling this when the owning pane is focused and
// in INSERT mode (spec.md §4.B).
func (p *Process) Write(b []byte) (int, error) {
	if !p.IsAlive() {
		return 0, fmt.Errorf("ptysup: process %s is not alive", p.Cmd)
	}
	return p.master.Write(b)
}

// Resize propagates new dimensions to the PTY and the Grid.
func (p *Process) Resize(cols, rows int) error {
	if err := pty.Setsize(p.master, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		return fmt.Errorf("resize pty: %w", err)
	}
	p.Grid.Resize(rows, cols)
	return nil
}

// IsAlive reports whether the child process has not yet exited.
func (p *Process) IsAlive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alive
}

// ExitCode returns the child's exit code, or -1 if it is still running or
// the code is unknown.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// Pid returns the child process's OS pid, used for ancestor-pid identity
// matching in the tool server (spec.md §4.I/§9).
func (p *Process) Pid() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

// Signal delivers sig to the child (used for SIGSTOP/SIGCONT on
// SIGTSTP/SIGCONT, spec.md §5).
func (p *Process) Signal(sig os.Signal) error {
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Signal(sig)
}

// Stop gracefully stops the child: SIGTERM, then SIGKILL after timeout if
// it hasn't exited (spec.md §7's shutdown chain: "kill PTYs").
func (p *Process) Stop(timeout time.Duration) {
	if !p.IsAlive() {
		return
	}
	p.Signal(syscall.SIGTERM)
	select {
	case <-p.done:
	case <-time.After(timeout):
		p.Signal(syscall.SIGKILL)
		<-p.done
	}
}
