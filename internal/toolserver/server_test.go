package toolserver

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentmux/agentmux/internal/acl"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct{ known map[string]bool }

func (f fakeRegistry) AgentExists(id string) bool             { return f.known[id] }
func (f fakeRegistry) AgentIDForPid(pid int) (string, bool)    { return "", false }

func startTestServer(t *testing.T) (*Server, *acl.Bus, string) {
	t.Helper()
	reg := fakeRegistry{known: map[string]bool{"claude-1": true, "codex-1": true}}
	bus := acl.NewBus(reg)
	path := filepath.Join(t.TempDir(), "agentmux-test.sock")
	srv := NewServer(path, bus, reg)
	require.NoError(t, srv.Listen())
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv, bus, path
}

func dial(t *testing.T, path string) (net.Conn, *bufio.Reader) {
	t.Helper()
	var c net.Conn
	var err error
	for i := 0; i < 50; i++ {
		c, err = net.Dial("unix", path)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, bufio.NewReader(c)
}

func sendLine(t *testing.T, c net.Conn, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	_, err = c.Write(append(b, '\n'))
	require.NoError(t, err)
}

func readResponse(t *testing.T, r *bufio.Reader) Response {
	t.Helper()
	line, err := r.ReadBytes('\n')
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	return resp
}

func TestInitializeAssignsExplicitAgentID(t *testing.T) {
	_, _, path := startTestServer(t)
	c, r := dial(t, path)

	sendLine(t, c, Request{JSONRPC: "2.0", ID: 1, Method: "initialize", Params: json.RawMessage(`{"agentId":"claude-1"}`)})
	resp := readResponse(t, r)
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]any)
	require.Equal(t, "claude-1", result["assignedAgentId"])
}

func TestToolsListIncludesPerformativesAndManagement(t *testing.T) {
	_, _, path := startTestServer(t)
	c, r := dial(t, path)
	sendLine(t, c, Request{JSONRPC: "2.0", ID: 1, Method: "initialize", Params: json.RawMessage(`{"agentId":"claude-1"}`)})
	readResponse(t, r)

	sendLine(t, c, Request{JSONRPC: "2.0", ID: 2, Method: "tools/list"})
	resp := readResponse(t, r)
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]any)
	tools := result["tools"].([]any)
	require.NotEmpty(t, tools)

	var names []string
	for _, raw := range tools {
		m := raw.(map[string]any)
		names = append(names, m["name"].(string))
	}
	require.Contains(t, names, "fipa_request")
	require.Contains(t, names, "get_pending_messages")
	require.Contains(t, names, "list_agents")
}

func TestACLRoundTripEndToEnd(t *testing.T) {
	_, _, path := startTestServer(t)

	claude, rc := dial(t, path)
	sendLine(t, claude, Request{JSONRPC: "2.0", ID: 1, Method: "initialize", Params: json.RawMessage(`{"agentId":"claude-1"}`)})
	readResponse(t, rc)

	codex, rx := dial(t, path)
	sendLine(t, codex, Request{JSONRPC: "2.0", ID: 1, Method: "initialize", Params: json.RawMessage(`{"agentId":"codex-1"}`)})
	readResponse(t, rx)

	sendLine(t, claude, Request{
		JSONRPC: "2.0", ID: 2, Method: "tools/call",
		Params: json.RawMessage(`{"name":"fipa_request","arguments":{"to":"codex-1","content":"build"}}`),
	})
	resp := readResponse(t, rc)
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]any)
	require.Equal(t, true, result["success"])
	convID := result["conversationId"].(string)
	require.NotEmpty(t, convID)

	// codex-1's connection should see a list_changed push.
	codex.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := rx.ReadBytes('\n')
	require.NoError(t, err)
	var note Notification
	require.NoError(t, json.Unmarshal(line, &note))
	require.Equal(t, notificationToolsListChanged, note.Method)

	sendLine(t, codex, Request{
		JSONRPC: "2.0", ID: 2, Method: "tools/call",
		Params: json.RawMessage(`{"name":"get_pending_messages","arguments":{"limit":10}}`),
	})
	resp2 := readResponse(t, rx)
	require.Nil(t, resp2.Error)
	result2 := resp2.Result.(map[string]any)
	msgs := result2["messages"].([]any)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	require.Equal(t, "request", msg["performative"])
	require.Equal(t, "claude-1", msg["sender"])
	require.Equal(t, convID, msg["conversationId"])
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	_, _, path := startTestServer(t)
	c, r := dial(t, path)
	sendLine(t, c, Request{JSONRPC: "2.0", ID: 1, Method: "bogus"})
	resp := readResponse(t, r)
	require.NotNil(t, resp.Error)
	require.Equal(t, ErrCodeMethodNotFound, resp.Error.Code)
}

func TestMalformedLineReturnsParseError(t *testing.T) {
	_, _, path := startTestServer(t)
	c, r := dial(t, path)
	_, err := c.Write([]byte("{not json\n"))
	require.NoError(t, err)
	resp := readResponse(t, r)
	require.NotNil(t, resp.Error)
	require.Equal(t, ErrCodeParseError, resp.Error.Code)
}
