package toolserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/agentmux/agentmux/internal/acl"
	"github.com/agentmux/agentmux/internal/logging"
	"github.com/mark3labs/mcp-go/mcp"
)

const protocolVersion = "2024-11-05"

// Server is the Unix-socket JSON-RPC server (spec.md §4.I). It accepts
// multiple concurrent clients, each running its own read loop on its own
// goroutine, but funnels every ACL Bus mutation through acl.Bus's own
// mutex so state changes are still effectively serialized the way
// spec.md §5 describes for the single-threaded event loop.
type Server struct {
	Path string

	bus      *acl.Bus
	identity *identityResolver
	registry AgentRegistry

	mu      sync.Mutex
	clients map[*conn]struct{}

	listener net.Listener
}

// conn is one accepted connection: its resolved identity and a writer
// guarded by its own mutex (notifications and responses can race).
type conn struct {
	id         string
	writeMu    sync.Mutex
	w          *bufio.Writer
	registered bool
}

func (c *conn) send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := c.w.Write(b); err != nil {
		return err
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return err
	}
	return c.w.Flush()
}

// NewServer creates a Server for path. It does not touch the socket file;
// Listen unlinks a stale one (spec.md §4.I: "Stale socket files on startup
// are unlinked").
func NewServer(path string, bus *acl.Bus, registry AgentRegistry) *Server {
	return &Server{
		Path:     path,
		bus:      bus,
		identity: newIdentityResolver(registry),
		registry: registry,
		clients:  make(map[*conn]struct{}),
	}
}

// Listen unlinks any stale socket at s.Path, binds it chmod 0666, and
// subscribes to the bus so every queued message pushes a
// notifications/tools/list_changed to its recipient's connection.
func (s *Server) Listen() error {
	if _, err := os.Stat(s.Path); err == nil {
		os.Remove(s.Path)
	}
	l, err := net.Listen("unix", s.Path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Path, err)
	}
	if err := os.Chmod(s.Path, 0o666); err != nil {
		logging.Warn().Str("component", "toolserver").Err(err).Msg("chmod socket failed")
	}
	s.listener = l

	s.bus.Subscribe(acl.EventMessageReceived, func(ev acl.Event) {
		s.notifyListChanged(ev.ReceiverID)
	})
	return nil
}

// Serve accepts connections until the listener is closed. Each connection
// runs its own read loop; Serve itself returns when Close is called.
func (s *Server) Serve() error {
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handle(nc)
	}
}

// Close shuts down the listener and unlinks whatever non-directory file
// is at s.Path (spec.md §4.I).
func (s *Server) Close() error {
	if s.listener != nil {
		s.listener.Close()
	}
	if info, err := os.Stat(s.Path); err == nil && !info.IsDir() {
		os.Remove(s.Path)
	}
	return nil
}

func (s *Server) handle(nc net.Conn) {
	defer nc.Close()
	c := &conn{w: bufio.NewWriter(nc)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}()

	scanner := bufio.NewScanner(nc)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytesTrim(line)) == 0 {
			continue
		}
		resp := s.dispatch(c, line)
		if resp == nil {
			continue // notification: no response
		}
		if err := c.send(resp); err != nil {
			logging.Warn().Str("component", "toolserver").Err(err).Msg("write response failed")
			return
		}
	}
}

func bytesTrim(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && (b[start] == ' ' || b[start] == '\t') {
		start++
	}
	for end > start && (b[end-1] == ' ' || b[end-1] == '\t' || b[end-1] == '\r') {
		end--
	}
	return b[start:end]
}

func (s *Server) dispatch(c *conn, line []byte) *Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse(nil, ErrCodeParseError, "parse error")
	}
	if isNotification(&req) {
		return nil
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(c, req)
	case "tools/list":
		return s.handleToolsList(c, req)
	case "tools/call":
		return s.handleToolsCall(c, req)
	default:
		return errorResponse(req.ID, ErrCodeMethodNotFound, "method not found: "+req.Method)
	}
}

func (s *Server) handleInitialize(c *conn, req Request) *Response {
	var p initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(req.ID, ErrCodeInvalidParams, "invalid initialize params")
		}
	}
	c.id = s.identity.resolve(p)
	c.registered = c.id != ""

	var assigned any
	if c.id != "" {
		assigned = c.id
	}
	return resultResponse(req.ID, map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": true},
		},
		"serverInfo":      map[string]any{"name": "agentmux-toolserver", "version": "1.0.0"},
		"assignedAgentId": assigned,
	})
}

func (s *Server) handleToolsList(c *conn, req Request) *Response {
	pending := 0
	if c.id != "" {
		pending = s.bus.PendingCount(c.id)
	}
	tools := append(performativeTools(), managementTools(pending)...)
	return resultResponse(req.ID, map[string]any{"tools": tools})
}

func (s *Server) handleToolsCall(c *conn, req Request) *Response {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, ErrCodeInvalidParams, "invalid tools/call params")
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}
	caller := fallbackCallerID(c.id, params.Arguments)

	if perf, ok := performativeFor(params.Name); ok {
		return s.dispatchPerformative(req.ID, caller, perf, params.Arguments)
	}
	switch params.Name {
	case "list_agents":
		return s.dispatchListAgents(req.ID)
	case "get_pending_messages":
		return s.dispatchGetPending(req.ID, caller, params.Arguments)
	case "get_conversations":
		return s.dispatchGetConversations(req.ID, params.Arguments)
	case "register_agent":
		return s.dispatchRegisterAgent(c, req.ID, params.Arguments)
	default:
		return errorResponse(req.ID, ErrCodeToolError, "unknown tool: "+params.Name)
	}
}

func (s *Server) dispatchPerformative(id any, caller, perf string, args map[string]any) *Response {
	if caller == "" {
		return toolResult(id, "caller identity is unknown; call initialize or pass _callerAgentId")
	}
	to, _ := args["to"].(string)
	if to == "" && perf != "cfp" {
		return toolResult(id, "\"to\" is required")
	}
	content, _ := args["content"].(string)
	ontology, _ := args["ontology"].(string)
	convID, _ := args["conversationId"].(string)

	receivers := splitCommaList(to)
	if perf == "cfp" && len(receivers) == 0 {
		receivers = s.allAgentsExcept(caller)
	}

	res, err := s.bus.Send(acl.SendParams{
		Performative:   acl.Performative(strings.ReplaceAll(perf, "_", "-")),
		Sender:         caller,
		Receiver:       receivers,
		Content:        content,
		ConversationID: convID,
		Ontology:       ontology,
	})
	if err != nil {
		return s.errAsToolResult(id, err)
	}
	return resultResponse(id, map[string]any{
		"success":        true,
		"conversationId": res.ConversationID,
		"messageIds":     res.MessageIDs,
	})
}

func (s *Server) errAsToolResult(id any, err error) *Response {
	switch e := err.(type) {
	case acl.ErrUnknownAgent:
		return toolResult(id, e.Error())
	case acl.ErrUnknownConversation:
		return toolResult(id, e.Error())
	default:
		return errorResponse(id, ErrCodeToolError, err.Error())
	}
}

func (s *Server) dispatchListAgents(id any) *Response {
	type agentRow struct {
		ID string `json:"id"`
	}
	// AgentRegistry only exposes existence/pid lookups; the richer listing
	// (agentId, agentType, alive) comes from internal/session's ListAgents,
	// found on the registry by structural typing.
	if lister, ok := s.registry.(interface{ ListAgents() []map[string]any }); ok {
		return resultResponse(id, map[string]any{"agents": lister.ListAgents()})
	}
	return resultResponse(id, map[string]any{"agents": []agentRow{}})
}

func (s *Server) dispatchGetPending(id any, caller string, args map[string]any) *Response {
	if caller == "" {
		return toolResult(id, "caller identity is unknown")
	}
	limit := 0
	if v, ok := args["limit"].(float64); ok {
		limit = int(v)
	}
	msgs := s.bus.GetPendingMessages(caller, limit)
	return resultResponse(id, map[string]any{"messages": msgs})
}

func (s *Server) dispatchGetConversations(id any, args map[string]any) *Response {
	if cid, ok := args["conversationId"].(string); ok && cid != "" {
		conv, found := s.bus.Conversation(cid)
		if !found {
			return toolResult(id, fmt.Sprintf("unknown-conversation: %s", cid))
		}
		return resultResponse(id, map[string]any{"conversations": []*acl.Conversation{conv}})
	}
	return resultResponse(id, map[string]any{"conversations": s.bus.Conversations()})
}

func (s *Server) dispatchRegisterAgent(c *conn, id any, args map[string]any) *Response {
	agentID, _ := args["agentId"].(string)
	if agentID == "" {
		return toolResult(id, "\"agentId\" is required")
	}
	c.id = agentID
	c.registered = true
	return resultResponse(id, map[string]any{"success": true, "agentId": agentID})
}

func (s *Server) allAgentsExcept(sender string) []string {
	if lister, ok := s.registry.(interface{ AllAgentIDs() []string }); ok {
		var out []string
		for _, id := range lister.AllAgentIDs() {
			if id != sender {
				out = append(out, id)
			}
		}
		return out
	}
	return nil
}

// notifyListChanged pushes notifications/tools/list_changed to receiver's
// currently-connected client, the canonical wake-up signal of spec.md
// §4.I, within the same tick the message was queued (spec.md §8).
func (s *Server) notifyListChanged(receiver string) {
	s.mu.Lock()
	var targets []*conn
	for c := range s.clients {
		if c.id == receiver {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()
	for _, c := range targets {
		_ = c.send(Notification{JSONRPC: "2.0", Method: notificationToolsListChanged})
	}
}

func toolResult(id any, text string) *Response {
	return resultResponse(id, mcp.NewToolResultText(text))
}

func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
