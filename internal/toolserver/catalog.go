package toolserver

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// performativeTools enumerates the ACL-performative tools every client's
// tools/list includes, built with mcp-go's schema builders (spec.md §4.I)
// so each advertises a real JSON Schema instead of a hand-assembled map.
func performativeTools() []mcp.Tool {
	perf := func(name, desc string) mcp.Tool {
		return mcp.NewTool(name,
			mcp.WithDescription(desc),
			mcp.WithString("to", mcp.Required(), mcp.Description("recipient agent id, or a comma-separated list for a broadcast")),
			mcp.WithString("content", mcp.Description("message content/payload")),
			mcp.WithString("conversationId", mcp.Description("existing conversation id to continue; omit to start a new one")),
			mcp.WithString("ontology", mcp.Description("domain vocabulary tag for the content, e.g. a task or protocol name")),
		)
	}
	return []mcp.Tool{
		perf("fipa_inform", "Send an inform performative: state a fact to another agent."),
		perf("fipa_request", "Send a request performative: ask another agent to perform an action."),
		perf("fipa_query_if", "Send a query-if performative: ask whether a proposition holds."),
		perf("fipa_query_ref", "Send a query-ref performative: ask for the referent of an expression."),
		perf("fipa_cfp", "Broadcast a call-for-proposals to one or more agents."),
		perf("fipa_propose", "Send a propose performative in response to a cfp."),
		perf("fipa_agree", "Agree to a pending request or proposal."),
		perf("fipa_refuse", "Refuse a pending request, query, or proposal."),
		perf("fipa_subscribe", "Subscribe to future informs from another agent on a topic."),
		perf("fipa_cancel", "Cancel an in-flight conversation."),
	}
}

// managementTools enumerates the non-performative ACL tools: agent
// discovery, inbox draining, conversation inspection, and registration.
// get_pending_messages' description is rewritten per connection (see
// Server.handleToolsList) to include the caller's live pending count.
func managementTools(pendingCount int) []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool("list_agents", mcp.WithDescription("List every agent known to this session, live or exited.")),
		mcp.NewTool("get_pending_messages",
			mcp.WithDescription(fmt.Sprintf("Drain this agent's inbox (currently %d pending).", pendingCount)),
			mcp.WithNumber("limit", mcp.Description("maximum messages to return; omit or 0 for all pending")),
		),
		mcp.NewTool("get_conversations",
			mcp.WithDescription("List known conversations, optionally filtered to one id."),
			mcp.WithString("conversationId", mcp.Description("if set, return only this conversation")),
		),
		mcp.NewTool("register_agent",
			mcp.WithDescription("Explicitly register this connection's agent id, overriding identity inference."),
			mcp.WithString("agentId", mcp.Required(), mcp.Description("the agent id to register as")),
		),
	}
}

// StaticCatalog returns the full tool list (performatives + management)
// with pendingCount baked into get_pending_messages' description. The
// bridge sidecar uses this, with pendingCount 0, as its pre-connect
// tools/list fallback (spec.md §4.J) so a caller polling tools/list
// before the socket is up still sees a stable catalog.
func StaticCatalog(pendingCount int) []mcp.Tool {
	return append(performativeTools(), managementTools(pendingCount)...)
}

// performativeFor maps a tool name to the ACL performative it sends; ok is
// false for management tools that aren't ACL sends at all.
func performativeFor(name string) (string, bool) {
	switch name {
	case "fipa_inform", "fipa_request", "fipa_query_if", "fipa_query_ref",
		"fipa_cfp", "fipa_propose", "fipa_agree", "fipa_refuse",
		"fipa_subscribe", "fipa_cancel":
		return name[len("fipa_"):], true
	default:
		return "", false
	}
}
