// Command agentmux is the terminal multiplexer's compositor process: it
// owns the physical terminal, hosts one PTY per agent, and runs the
// single select loop that drives the layout, the modal input router, and
// the 60 Hz redraw timer (spec.md §5).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentmux/agentmux/internal/acl"
	"github.com/agentmux/agentmux/internal/compositor"
	"github.com/agentmux/agentmux/internal/config"
	"github.com/agentmux/agentmux/internal/inputrouter"
	"github.com/agentmux/agentmux/internal/layout"
	"github.com/agentmux/agentmux/internal/logging"
	"github.com/agentmux/agentmux/internal/overlay"
	"github.com/agentmux/agentmux/internal/ptysup"
	"github.com/agentmux/agentmux/internal/session"
	"github.com/agentmux/agentmux/internal/toolserver"
)

// drawInterval is the 60 Hz coalescing tick spec.md §4.D specifies.
const drawInterval = 16 * time.Millisecond

// shutdownGrace bounds how long a child PTY gets to exit after SIGTERM
// before the supervisor escalates to SIGKILL (spec.md §7's shutdown
// chain).
const shutdownGrace = 3 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "agentmux: "+err.Error())
		os.Exit(1)
	}
}

// app bundles every piece of session-lifetime state the event loop in
// loop.go closes over; it exists so dispatch.go's handlers can be methods
// instead of a pile of closures capturing loose locals.
type app struct {
	cfg *config.Config

	sess  *session.Session
	tree  *layout.Tree
	bus   *acl.Bus
	tools *toolserver.Server

	panes    map[string]*compositor.Pane
	overlays *overlay.Stack

	focused string

	width, height int

	dirty bool

	searchMatches []searchMatch
	searchIndex   int
	searchNeedle  string

	leaderPending bool
	pendingFind   string // "f"/"F"/"t"/"T" awaiting its target rune

	cmdBuf    []rune // COMMAND-mode accumulated text
	searchBuf []rune // SEARCH-mode accumulated text

	agentSeq int
	exitCh   chan agentExit

	rt *inputrouter.RawTerminal

	discoveryPath string

	exitCode int
}

type searchMatch struct {
	Line, Col, Len int
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logging.Init(logging.DefaultConfig(cfg.LogDir, cfg.Pid)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Close()

	rt, err := inputrouter.EnterRaw()
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	cols, rows, err := rt.Size()
	if err != nil || cols == 0 || rows == 0 {
		cols, rows = 80, 24
	}

	// Alternate screen + hidden cursor (spec.md §6); the compositor draws
	// its own cursor glyph via inverse video, so the physical cursor stays
	// parked off-screen for the whole session.
	os.Stdout.WriteString("\x1b[?1049h\x1b[?25l")
	defer func() {
		os.Stdout.WriteString("\x1b[?1000l\x1b[?1006l\x1b[?2004l\x1b[?25h\x1b[?1049l")
		rt.Restore()
	}()

	a := &app{
		cfg:      cfg,
		sess:     session.New(),
		panes:    make(map[string]*compositor.Pane),
		overlays: &overlay.Stack{},
		width:    cols,
		height:   rows,
		dirty:    true,
		rt:       rt,
	}

	a.bus = acl.NewBus(a.sess)
	a.tools = toolserver.NewServer(cfg.SocketPath, a.bus, a.sess)
	if err := a.tools.Listen(); err != nil {
		return fmt.Errorf("listen on tool socket: %w", err)
	}
	defer a.tools.Close()
	go func() {
		if err := a.tools.Serve(); err != nil {
			logging.Warn().Str("component", "toolserver").Err(err).Msg("serve loop exited")
		}
	}()

	if path, err := writeDiscoveryFile(cfg); err != nil {
		logging.Warn().Str("component", "bridge").Err(err).Msg("write discovery file failed")
	} else {
		a.discoveryPath = path
		defer os.Remove(path)
	}

	exitCh := make(chan agentExit, 8)
	a.exitCh = exitCh
	virtualRows := rows
	if cfg.Rows > 0 {
		virtualRows = cfg.Rows
	}
	firstID, err := a.spawnAgent(initialAgentType(), cols, virtualRows, exitCh)
	if err != nil {
		return fmt.Errorf("spawn initial agent: %w", err)
	}
	a.tree = layout.NewTree(firstID, layout.Bounds{X: 0, Y: 0, W: cols, H: rows})
	a.focused = firstID

	return a.eventLoop(exitCh)
}

// agentExit is delivered when a hosted PTY's child process terminates
// (spec.md §4.B's exit(code) event).
type agentExit struct {
	id   string
	code int
}

// initialAgentType picks the command this process hosts as its first
// agent. The hosted agents' own command lines are opaque and out of this
// module's scope (spec.md §1): the caller's argv is handed to exec.Command
// verbatim, defaulting to the user's login shell when none is given.
func initialAgentType() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/sh"
}

func (a *app) spawnCommand(agentType string) (string, []string) {
	if len(os.Args) > 2 && agentType == os.Args[1] {
		return agentType, os.Args[2:]
	}
	return agentType, nil
}

func (a *app) nextAgentID() string {
	a.agentSeq++
	return fmt.Sprintf("agent%d", a.agentSeq)
}

// spawnAgent starts a new PTY-backed agent, wires its grid into a
// compositor pane, and starts the goroutine that forwards its exit event
// onto exitCh so the single-threaded event loop learns of it without
// selecting on a dynamically-sized channel set.
func (a *app) spawnAgent(agentType string, cols, rows int, exitCh chan<- agentExit) (string, error) {
	id := a.nextAgentID()
	cmdName, args := a.spawnCommand(agentType)
	proc, err := ptysup.Spawn(cmdName, args, a.cfg.ChildEnv(), "", cols, rows, a.cfg.Scrollback)
	if err != nil {
		return "", err
	}
	proc.OnParseError(func(reason string) {
		logging.Warn().Str("component", "vtgrid").Str("agent_id", id).Msg(reason)
	})
	proc.OnOSC52(func(selection, b64 string) {
		fmt.Fprintf(os.Stdout, "\x1b]52;%s;%s\x07", selection, b64)
	})

	ag := session.NewAgent(id, agentType, proc)
	ag.Registers.OnClipboard = func(b64 string) {
		fmt.Fprintf(os.Stdout, "\x1b]52;c;%s\x07", b64)
	}
	a.sess.Add(ag)

	a.panes[id] = &compositor.Pane{ID: id, Label: ag.Label, Grid: proc.Grid, FollowTail: true}

	go func() {
		ev := <-proc.Done()
		exitCh <- agentExit{id: id, code: ev.Code}
	}()

	return id, nil
}

// writeDiscoveryFile publishes this session's tool socket under
// ~/.agentmux/sockets/<pid> so a bridge without an explicit socket path
// can find it via bridge.Discover, which dials every entry in that
// directory directly. A symlink to the real socket path (which may live
// elsewhere, e.g. under $TMPDIR) keeps that entry itself dialable.
func writeDiscoveryFile(cfg *config.Config) (string, error) {
	if err := os.MkdirAll(cfg.DiscoveryDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(cfg.DiscoveryDir, fmt.Sprintf("%d", cfg.Pid))
	os.Remove(path)
	if err := os.Symlink(cfg.SocketPath, path); err != nil {
		return "", err
	}
	return path, nil
}
