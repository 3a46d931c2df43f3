// Package bridge implements the per-agent sidecar of spec.md §4.J: a
// process a hosted agent's own MCP client talks to over stdio, which
// relays calls to the real tool server's Unix socket once it can reach
// one, and serves a static tool catalog in the meantime so the agent's
// tool-using harness doesn't see a broken connection during session
// startup.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/agentmux/agentmux/internal/bridge/procmatch"
	"github.com/agentmux/agentmux/internal/toolserver"
)

// ancestorDepth bounds the /proc walk procmatch does on this bridge's own
// pid: the hosted agent's harness is typically one or two hops up from
// the bridge itself, with agentmux a couple more past that.
const ancestorDepth = 8

// Bridge relays line-delimited JSON-RPC between stdin/stdout and the real
// tool server's socket.
type Bridge struct {
	In  io.Reader
	Out io.Writer

	SocketPath string
	DiscoverDir string
	LegacyPath  string

	mu   sync.Mutex
	conn net.Conn

	// OnLog receives diagnostic lines (connect attempts, disconnects);
	// nil is a valid no-op logger.
	OnLog func(msg string)
}

// New creates a Bridge that relays between in/out and the socket at
// socketPath (if non-empty) or whatever Discover finds under discoverDir.
func New(in io.Reader, out io.Writer, socketPath, discoverDir, legacyPath string) *Bridge {
	return &Bridge{In: in, Out: out, SocketPath: socketPath, DiscoverDir: discoverDir, LegacyPath: legacyPath}
}

func (b *Bridge) log(msg string) {
	if b.OnLog != nil {
		b.OnLog(msg)
	}
}

// Run drives the bridge until stdin closes or a read from it fails. It
// starts the background connect loop, which stops when ctx is cancelled,
// and then services stdin requests, falling back to the static catalog for
// initialize/tools/list until connected. Cancelling ctx does not interrupt
// a blocked stdin read.
func (b *Bridge) Run(ctx context.Context) error {
	go b.connectLoop(ctx)

	scanner := bufio.NewScanner(b.In)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		b.handleLine(append([]byte(nil), line...))
	}
	return scanner.Err()
}

func (b *Bridge) activeConn() net.Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn
}

func (b *Bridge) setConn(c net.Conn) {
	b.mu.Lock()
	b.conn = c
	b.mu.Unlock()
}

// connectLoop dials the socket with exponential backoff (grounded on the
// pack's cenkalti/backoff/v4 retry idiom for flaky external connections),
// re-discovering the socket path on every attempt since a session's
// socket can move between restarts.
func (b *Bridge) connectLoop(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 0 // retry forever; the socket may not exist yet
	withCtx := backoff.WithContext(bo, ctx)

	for {
		if b.activeConn() != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
				continue
			}
		}
		path := b.resolveSocketPath()
		if path == "" {
			d := withCtx.NextBackOff()
			if d == backoff.Stop {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(d):
			}
			continue
		}
		conn, err := net.DialTimeout("unix", path, time.Second)
		if err != nil {
			b.log("bridge: connect failed: " + err.Error())
			d := withCtx.NextBackOff()
			if d == backoff.Stop {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(d):
			}
			continue
		}
		bo.Reset()
		b.setConn(conn)
		b.log("bridge: connected to " + path)
	}
}

func (b *Bridge) resolveSocketPath() string {
	if b.SocketPath != "" {
		if probeSocket(b.SocketPath) {
			return b.SocketPath
		}
	}
	if path, ok := Discover(b.DiscoverDir, b.LegacyPath); ok {
		return path
	}
	return ""
}

func (b *Bridge) handleLine(line []byte) {
	var req toolserver.Request
	if err := json.Unmarshal(line, &req); err != nil {
		b.writeResponse(&toolserver.Response{JSONRPC: "2.0", Error: &toolserver.Error{
			Code: toolserver.ErrCodeParseError, Message: "parse error",
		}})
		return
	}

	if req.Method == "initialize" {
		line = b.withAncestorPids(line, &req)
	}

	conn := b.activeConn()
	if conn != nil {
		if err := b.relay(conn, line, &req); err == nil {
			return
		}
		// relay failed (peer gone mid-call): drop the connection so
		// connectLoop redials, and fall through to the static fallback
		// below rather than hanging the caller.
		conn.Close()
		b.mu.Lock()
		if b.conn == conn {
			b.conn = nil
		}
		b.mu.Unlock()
	}

	switch req.Method {
	case "initialize":
		b.writeResponse(&toolserver.Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo":      map[string]any{"name": "agentmux-bridge", "version": "0.1.0"},
			"capabilities":    map[string]any{"tools": map[string]any{"listChanged": true}},
		}})
	case "tools/list":
		b.writeResponse(&toolserver.Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{
			"tools": toolserver.StaticCatalog(0),
		}})
	default:
		if req.ID != nil {
			b.writeResponse(&toolserver.Response{JSONRPC: "2.0", ID: req.ID, Error: &toolserver.Error{
				Code: toolserver.ErrCodeInternalError, Message: "not connected to the agentmux tool server yet",
			}})
		}
	}
}

// relay forwards line to conn and copies back exactly one response line
// (or none, for a notification).
func (b *Bridge) relay(conn net.Conn, line []byte, req *toolserver.Request) error {
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Write(append(line, '\n')); err != nil {
		return err
	}
	if req.ID == nil {
		return nil // notification: no response expected
	}
	reader := bufio.NewReader(conn)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	resp, err := reader.ReadBytes('\n')
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.Out.Write(resp)
	b.mu.Unlock()
	return nil
}

// withAncestorPids stamps this bridge process's own /proc ancestor chain
// into an outgoing initialize call's params, so the tool server's identity
// resolver (spec.md §4.I) can match the connection to the agent hosting it
// by pid even when the agent's own MCP client never sets agentId. A caller
// that already set ancestorPids keeps its own list unmodified; req/line are
// returned as-is if params can't be parsed as a JSON object.
func (b *Bridge) withAncestorPids(line []byte, req *toolserver.Request) []byte {
	var params map[string]any
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return line
		}
	}
	if params == nil {
		params = make(map[string]any)
	}
	if _, ok := params["ancestorPids"]; !ok {
		if pids := procmatch.AncestorPids(os.Getpid(), ancestorDepth); len(pids) > 0 {
			params["ancestorPids"] = pids
		}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return line
	}
	req.Params = raw
	out, err := json.Marshal(req)
	if err != nil {
		return line
	}
	return out
}

func (b *Bridge) writeResponse(resp *toolserver.Response) {
	data, _ := json.Marshal(resp)
	b.mu.Lock()
	b.Out.Write(data)
	b.Out.Write([]byte("\n"))
	b.mu.Unlock()
}
