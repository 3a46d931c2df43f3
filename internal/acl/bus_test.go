package acl

import "testing"

type fakeAgents struct{ known map[string]bool }

func (f fakeAgents) AgentExists(id string) bool { return f.known[id] }

func newTestBus() *Bus {
	return NewBus(fakeAgents{known: map[string]bool{
		"claude-1": true, "codex-1": true, "gemini-1": true,
	}})
}

func TestSendAllocatesConversation(t *testing.T) {
	b := newTestBus()
	res, err := b.Send(SendParams{Performative: Request, Sender: "claude-1", Receiver: []string{"codex-1"}, Content: "build"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.ConversationID == "" {
		t.Fatal("expected a conversation id")
	}
	conv, ok := b.Conversation(res.ConversationID)
	if !ok {
		t.Fatal("conversation not recorded")
	}
	if conv.State != StatePending {
		t.Fatalf("state = %s, want pending", conv.State)
	}
	if conv.Initiator != "claude-1" {
		t.Fatalf("initiator = %s, want claude-1", conv.Initiator)
	}
}

func TestSendUnknownConversationFails(t *testing.T) {
	b := newTestBus()
	_, err := b.Send(SendParams{Performative: Agree, Sender: "codex-1", Receiver: []string{"claude-1"}, ConversationID: "nope"})
	if _, ok := err.(ErrUnknownConversation); !ok {
		t.Fatalf("err = %v, want ErrUnknownConversation", err)
	}
}

func TestSendUnknownAgentFails(t *testing.T) {
	b := newTestBus()
	_, err := b.Send(SendParams{Performative: Request, Sender: "claude-1", Receiver: []string{"ghost-1"}})
	if _, ok := err.(ErrUnknownAgent); !ok {
		t.Fatalf("err = %v, want ErrUnknownAgent", err)
	}
}

func TestPerReceiverFIFO(t *testing.T) {
	b := newTestBus()
	var convID string
	for i := 0; i < 5; i++ {
		res, err := b.Send(SendParams{
			Performative:   Inform,
			Sender:         "claude-1",
			Receiver:       []string{"codex-1"},
			Content:        string(rune('a' + i)),
			ConversationID: convID,
		})
		if err != nil {
			t.Fatalf("Send #%d: %v", i, err)
		}
		convID = res.ConversationID
	}

	first := b.GetPendingMessages("codex-1", 2)
	if len(first) != 2 || first[0].Content != "a" || first[1].Content != "b" {
		t.Fatalf("unexpected first batch: %+v", first)
	}
	rest := b.GetPendingMessages("codex-1", 10)
	if len(rest) != 3 || rest[0].Content != "c" || rest[2].Content != "e" {
		t.Fatalf("unexpected rest batch: %+v", rest)
	}
}

func TestInboxBoundedOldestDrop(t *testing.T) {
	b := newTestBus()
	var convID string
	for i := 0; i < inboxCapacity+10; i++ {
		res, err := b.Send(SendParams{Performative: Inform, Sender: "claude-1", Receiver: []string{"codex-1"}, ConversationID: convID})
		if err != nil {
			t.Fatalf("Send #%d: %v", i, err)
		}
		convID = res.ConversationID
	}
	if got := b.PendingCount("codex-1"); got != inboxCapacity {
		t.Fatalf("PendingCount = %d, want %d", got, inboxCapacity)
	}
}

func TestConversationClosureIsSticky(t *testing.T) {
	b := newTestBus()
	res, err := b.Send(SendParams{Performative: Request, Sender: "claude-1", Receiver: []string{"codex-1"}})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := b.Send(SendParams{Performative: Refuse, Sender: "codex-1", Receiver: []string{"claude-1"}, ConversationID: res.ConversationID}); err != nil {
		t.Fatalf("refuse: %v", err)
	}
	conv, _ := b.Conversation(res.ConversationID)
	if conv.State != StateRefused {
		t.Fatalf("state = %s, want refused", conv.State)
	}

	// A further inform must not revive the conversation.
	if _, err := b.Send(SendParams{Performative: Inform, Sender: "codex-1", Receiver: []string{"claude-1"}, ConversationID: res.ConversationID}); err != nil {
		t.Fatalf("inform: %v", err)
	}
	conv, _ = b.Conversation(res.ConversationID)
	if conv.State != StateRefused {
		t.Fatalf("state after terminal = %s, want still refused", conv.State)
	}
}

func TestBroadcastSharesOneConversation(t *testing.T) {
	b := newTestBus()
	res, err := b.Broadcast("claude-1", "who can build?", "build-task", []string{"codex-1", "gemini-1"})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if b.PendingCount("codex-1") != 1 || b.PendingCount("gemini-1") != 1 {
		t.Fatal("expected one inbox entry per recipient")
	}
	conv, ok := b.Conversation(res.ConversationID)
	if !ok {
		t.Fatal("conversation missing")
	}
	if len(conv.ParticipantList()) != 3 {
		t.Fatalf("participants = %v, want 3 (sender + 2 recipients)", conv.ParticipantList())
	}
}

func TestMessageReceivedNotifiesSubscriber(t *testing.T) {
	b := newTestBus()
	var notified []string
	b.Subscribe(EventMessageReceived, func(ev Event) {
		notified = append(notified, ev.ReceiverID)
	})
	if _, err := b.Send(SendParams{Performative: Inform, Sender: "claude-1", Receiver: []string{"codex-1"}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(notified) != 1 || notified[0] != "codex-1" {
		t.Fatalf("notified = %v, want [codex-1]", notified)
	}
}

func TestUserPseudoAgentAlwaysExists(t *testing.T) {
	b := newTestBus()
	if _, err := b.Send(SendParams{Performative: Inform, Sender: "claude-1", Receiver: []string{UserAgentID}}); err != nil {
		t.Fatalf("Send to user: %v", err)
	}
}
