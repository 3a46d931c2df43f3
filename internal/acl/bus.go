package acl

import (
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event is the event-emitter fan-out design note from spec.md §9: rather
// than a Node-style EventEmitter, a map of subscriber lists dispatched
// synchronously on the event-loop goroutine.
type Event struct {
	Kind           string // "message:received" | "conversation:started" | "conversation:completed"
	ConversationID string
	ReceiverID     string
	Message        *Message
}

const (
	EventMessageReceived      = "message:received"
	EventConversationStarted  = "conversation:started"
	EventConversationComplete = "conversation:completed"
)

// ErrUnknownAgent is returned when a send targets a recipient the bus has
// never heard of (spec.md §4.H); its Error text is "Unknown agent: <id>".
type ErrUnknownAgent struct{ AgentID string }

func (e ErrUnknownAgent) Error() string { return fmt.Sprintf("Unknown agent: %s", e.AgentID) }

// ErrUnknownConversation is returned when a caller-supplied conversation
// id does not exist.
type ErrUnknownConversation struct{ ConversationID string }

func (e ErrUnknownConversation) Error() string {
	return fmt.Sprintf("unknown-conversation: %s", e.ConversationID)
}

// KnownAgents resolves whether an agent id is valid to send to. The bus
// itself owns no agent registry (spec.md's ownership note: "Agents are
// strangers to it except via id"); the tool server supplies this lookup.
type KnownAgents interface {
	AgentExists(id string) bool
}

// Bus is the ACL Bus (spec.md §4.H): conversations, per-agent inboxes, and
// a synchronous subscriber fan-out. All mutation happens on the caller's
// goroutine; the tool server calls in from one goroutine per accepted
// connection, and the mutex here serializes those calls.
type Bus struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
	inboxes       map[string]*Inbox
	subscribers   map[string][]func(Event)
	agents        KnownAgents
}

// NewBus creates an empty Bus. agents resolves whether a receiver id is
// known; pass nil to accept any non-empty id (used in tests).
func NewBus(agents KnownAgents) *Bus {
	return &Bus{
		conversations: make(map[string]*Conversation),
		inboxes:       make(map[string]*Inbox),
		subscribers:   make(map[string][]func(Event)),
		agents:        agents,
	}
}

// Subscribe registers fn to be invoked, synchronously, for every Event of
// the given kind.
func (b *Bus) Subscribe(kind string, fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[kind] = append(b.subscribers[kind], fn)
}

func (b *Bus) emit(ev Event) {
	for _, fn := range b.subscribers[ev.Kind] {
		fn(ev)
	}
}

func (b *Bus) knownAgent(id string) bool {
	if id == UserAgentID {
		return true
	}
	if b.agents == nil {
		return id != ""
	}
	return b.agents.AgentExists(id)
}

// SendParams is the caller-supplied shape of an outgoing performative;
// ConversationID is optional (empty allocates a fresh conversation).
type SendParams struct {
	Performative   Performative
	Sender         string
	Receiver       []string
	Content        string
	ConversationID string
	Ontology       string
	Language       string
	ReplyBy        *time.Time
}

// SendResult is returned to the tool-call caller.
type SendResult struct {
	ConversationID string
	MessageIDs     []string
}

// Send validates and delivers a performative to every listed receiver,
// creating or advancing the conversation, appending to each receiver's
// inbox, and emitting notifications (spec.md §4.H).
func (b *Bus) Send(p SendParams) (SendResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(p.Receiver) == 0 {
		return SendResult{}, fmt.Errorf("acl: send requires at least one receiver")
	}
	for _, r := range p.Receiver {
		if !b.knownAgent(r) {
			return SendResult{}, ErrUnknownAgent{AgentID: r}
		}
	}

	conv, started, err := b.resolveConversation(p)
	if err != nil {
		return SendResult{}, err
	}

	now := time.Now()
	var ids []string
	for _, receiver := range p.Receiver {
		msg := Message{
			ID:             ulid.Make().String(),
			Timestamp:      now,
			Performative:   p.Performative,
			Sender:         p.Sender,
			Receiver:       []string{receiver},
			Content:        p.Content,
			ConversationID: conv.ID,
			Ontology:       p.Ontology,
			Language:       p.Language,
			ReplyBy:        p.ReplyBy,
		}
		ids = append(ids, msg.ID)

		conv.Participants[p.Sender] = true
		conv.Participants[receiver] = true
		conv.Messages = append(conv.Messages, msg)
		conv.LastActivity = now

		inbox := b.inboxes[receiver]
		if inbox == nil {
			inbox = &Inbox{}
			b.inboxes[receiver] = inbox
		}
		inbox.push(msg)

		b.emit(Event{Kind: EventMessageReceived, ConversationID: conv.ID, ReceiverID: receiver, Message: &msg})
	}

	conv.State = advance(conv.State, conv.Protocol, p.Performative)
	if started {
		b.emit(Event{Kind: EventConversationStarted, ConversationID: conv.ID})
	}
	if conv.State.terminal() {
		b.emit(Event{Kind: EventConversationComplete, ConversationID: conv.ID})
	}

	return SendResult{ConversationID: conv.ID, MessageIDs: ids}, nil
}

func (b *Bus) resolveConversation(p SendParams) (*Conversation, bool, error) {
	if p.ConversationID == "" {
		conv := &Conversation{
			ID:           ulid.Make().String(),
			Initiator:    p.Sender,
			Participants: map[string]bool{p.Sender: true},
			Protocol:     inferProtocol(p.Performative),
			State:        StateInitiated,
			CreatedAt:    time.Now(),
			LastActivity: time.Now(),
		}
		b.conversations[conv.ID] = conv
		return conv, true, nil
	}
	conv, ok := b.conversations[p.ConversationID]
	if !ok {
		return nil, false, ErrUnknownConversation{ConversationID: p.ConversationID}
	}
	return conv, false, nil
}

// Broadcast sends one cfp fan-out (spec.md §4.H): every entry in
// recipients gets its own inbox entry sharing one conversation id. It
// fills in no default recipient list; the tool server applies the
// all-agents-minus-sender default before sending.
func (b *Bus) Broadcast(sender string, content string, ontology string, recipients []string) (SendResult, error) {
	return b.Send(SendParams{
		Performative: CFP,
		Sender:       sender,
		Receiver:     recipients,
		Content:      content,
		Ontology:     ontology,
	})
}

// GetPendingMessages atomically takes up to limit queued messages for
// receiver, in FIFO order (spec.md §8's "ACL per-receiver FIFO" property).
func (b *Bus) GetPendingMessages(receiver string, limit int) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	inbox := b.inboxes[receiver]
	if inbox == nil {
		return nil
	}
	return inbox.take(limit)
}

// PendingCount reports how many messages are queued for receiver without
// consuming them, used to rewrite get_pending_messages' tool description
// (spec.md §4.I).
func (b *Bus) PendingCount(receiver string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	inbox := b.inboxes[receiver]
	if inbox == nil {
		return 0
	}
	return len(inbox.Messages)
}

// Conversations returns a snapshot of every known conversation.
func (b *Bus) Conversations() []*Conversation {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Conversation, 0, len(b.conversations))
	for _, c := range b.conversations {
		out = append(out, c)
	}
	return out
}

// Conversation looks up one conversation by id.
func (b *Bus) Conversation(id string) (*Conversation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.conversations[id]
	return c, ok
}
