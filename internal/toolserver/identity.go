package toolserver

import (
	"fmt"
	"sync"
)

// AgentRegistry is the read-only view into the Session the tool server
// needs: whether an id names a live agent, and which agent (if any) a
// given OS pid belongs to (for ancestor-pid identity matching). It also
// satisfies acl.KnownAgents.
type AgentRegistry interface {
	AgentExists(id string) bool
	AgentIDForPid(pid int) (string, bool)
}

// initializeParams is the subset of initialize's params this server acts
// on; unrecognized fields are ignored.
type initializeParams struct {
	AgentID      string `json:"agentId"`
	AncestorPids []int  `json:"ancestorPids"`
	AgentType    string `json:"agentType"`
}

// identityResolver assigns a stable identity to each accepted client
// connection, following spec.md §4.I's priority order. It is shared by
// all connections on one server so the "{agentType}-ext-<n>" counter is
// global, not per-connection.
type identityResolver struct {
	registry AgentRegistry

	mu      sync.Mutex
	extSeq  map[string]int
}

func newIdentityResolver(reg AgentRegistry) *identityResolver {
	return &identityResolver{registry: reg, extSeq: make(map[string]int)}
}

// resolve implements the four-step priority order: explicit agentId,
// ancestor-pid match, allocated external id, or "" (null) if agentType is
// also absent.
func (r *identityResolver) resolve(p initializeParams) string {
	if p.AgentID != "" {
		return p.AgentID
	}
	if r.registry != nil {
		for _, pid := range p.AncestorPids {
			if id, ok := r.registry.AgentIDForPid(pid); ok {
				return id
			}
		}
	}
	if p.AgentType != "" {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.extSeq[p.AgentType]++
		return fmt.Sprintf("%s-ext-%d", p.AgentType, r.extSeq[p.AgentType])
	}
	return ""
}

// fallbackCallerID implements the "_callerAgentId argument is honored as
// a fallback identity" rule from spec.md §4.I for tools/call: a
// connection's resolved identity wins when set, otherwise the argument.
func fallbackCallerID(connIdentity string, args map[string]any) string {
	if connIdentity != "" {
		return connIdentity
	}
	if v, ok := args["_callerAgentId"].(string); ok {
		return v
	}
	return ""
}
