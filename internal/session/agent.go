// Package session implements the Session type of spec.md §3: the sole
// owner of every hosted Agent (its PTY process, VT grid, modal state, and
// register set). The tool server and ACL bus read it through narrow
// interfaces declared on their side rather than reaching into Session
// directly. The layout tree is held by cmd/agentmux, not by Session.
package session

import (
	"fmt"
	"sync"

	"github.com/agentmux/agentmux/internal/modal"
	"github.com/agentmux/agentmux/internal/ptysup"
	"github.com/agentmux/agentmux/internal/registers"
)

// Agent is one hosted pane: a live PTY-backed process, its modal input
// state, and its own register set (spec.md §3: "registers are
// per-agent").
type Agent struct {
	ID    string
	Type  string // "claude" | "codex" | "gemini" | ... (spec.md §4.G picker)
	Label string

	Process   *ptysup.Process
	Modal     *modal.State
	Registers *registers.Set
}

// NewAgent wraps an already-spawned PTY process as a hosted Agent.
func NewAgent(id, agentType string, proc *ptysup.Process) *Agent {
	return &Agent{
		ID:        id,
		Type:      agentType,
		Label:     fmt.Sprintf("%s:%s", agentType, id),
		Process:   proc,
		Modal:     modal.NewState(),
		Registers: registers.NewSet(),
	}
}

// Session owns every Agent. Other packages reach it through the Get and
// Agents lookups or through the interfaces it implements
// (toolserver.AgentRegistry, acl.KnownAgents), which are declared in those
// packages.
type Session struct {
	mu     sync.Mutex
	agents map[string]*Agent
	order  []string // insertion order, for stable list_agents output
}

// New creates an empty Session.
func New() *Session {
	return &Session{agents: make(map[string]*Agent)}
}

// Add registers a newly spawned agent with the session.
func (s *Session) Add(a *Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.agents[a.ID]; !exists {
		s.order = append(s.order, a.ID)
	}
	s.agents[a.ID] = a
}

// Remove drops an agent from the session (after its PTY has exited and
// the pane closed).
func (s *Session) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.agents, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Get returns the agent by id.
func (s *Session) Get(id string) (*Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	return a, ok
}

// Agents returns every live agent in insertion order, for callers (the
// compositor's frame builder, the event loop's pane/agent lookups) that
// need to walk the whole roster rather than look up a single id.
func (s *Session) Agents() []*Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Agent, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.agents[id])
	}
	return out
}

// AgentExists implements acl.KnownAgents and toolserver.AgentRegistry.
func (s *Session) AgentExists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.agents[id]
	return ok
}

// AgentIDForPid implements toolserver.AgentRegistry's ancestor-pid
// identity matching (spec.md §4.I).
func (s *Session) AgentIDForPid(pid int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.agents {
		if a.Process != nil && a.Process.Pid() == pid {
			return id, true
		}
	}
	return "", false
}

// ListAgents implements the optional richer listing toolserver.Server
// looks for via structural typing, feeding the list_agents tool.
func (s *Session) ListAgents() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.order))
	for _, id := range s.order {
		a := s.agents[id]
		alive := a.Process != nil && a.Process.IsAlive()
		out = append(out, map[string]any{
			"agentId":   a.ID,
			"agentType": a.Type,
			"alive":     alive,
		})
	}
	return out
}

// AllAgentIDs implements the optional broadcast-default lookup
// toolserver.Server looks for (cfp's "all agents minus sender").
func (s *Session) AllAgentIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
