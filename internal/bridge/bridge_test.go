package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentmux/agentmux/internal/toolserver"
)

func TestHandleLineServesStaticCatalogBeforeConnect(t *testing.T) {
	in := bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n")
	var out bytes.Buffer
	b := New(in, &out, "", t.TempDir(), "")

	b.handleLine([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))

	var resp toolserver.Response
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("result = %+v, want a map with tools", resp.Result)
	}
	if _, ok := result["tools"]; !ok {
		t.Fatal("expected the static catalog under 'tools'")
	}
}

func TestHandleLineRelaysWhenConnected(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "test.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		var req toolserver.Request
		json.Unmarshal([]byte(line), &req)
		resp := toolserver.Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"echo": true}}
		data, _ := json.Marshal(resp)
		conn.Write(append(data, '\n'))
	}()

	var out bytes.Buffer
	b := New(&bytes.Buffer{}, &out, sockPath, t.TempDir(), "")

	conn, err := net.DialTimeout("unix", sockPath, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	b.setConn(conn)

	b.handleLine([]byte(`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"fipa_inform"}}`))

	var resp toolserver.Response
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp); err != nil {
		t.Fatalf("decode relayed response: %v", err)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok || result["echo"] != true {
		t.Fatalf("result = %+v, want the relayed echo", resp.Result)
	}
}

func TestDiscoverPrunesStaleSocketFile(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "dead.sock")
	if err := os.WriteFile(stale, []byte{}, 0644); err != nil {
		t.Fatalf("write stale file: %v", err)
	}

	_, ok := Discover(dir, "")
	if ok {
		t.Fatal("expected no live socket to be found")
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("expected the stale socket file to be pruned")
	}
}

func TestDiscoverFindsLiveSocket(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "live.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	found, ok := Discover(dir, "")
	if !ok || found != sockPath {
		t.Fatalf("Discover = %q, %v, want %q, true", found, ok, sockPath)
	}
}

func TestRunReturnsAtStdinEOFWithCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := bytes.NewBufferString("")
	var out bytes.Buffer
	b := New(in, &out, "", t.TempDir(), "")
	if err := b.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
