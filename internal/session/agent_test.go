package session

import "testing"

func TestAddGetRemove(t *testing.T) {
	s := New()
	a := &Agent{ID: "claude-1", Type: "claude"}
	s.Add(a)

	if !s.AgentExists("claude-1") {
		t.Fatal("expected agent to exist after Add")
	}
	got, ok := s.Get("claude-1")
	if !ok || got != a {
		t.Fatalf("Get = %+v, %v", got, ok)
	}

	s.Remove("claude-1")
	if s.AgentExists("claude-1") {
		t.Fatal("expected agent to be gone after Remove")
	}
}

func TestAllAgentIDsPreservesInsertionOrder(t *testing.T) {
	s := New()
	s.Add(&Agent{ID: "a", Type: "claude"})
	s.Add(&Agent{ID: "b", Type: "codex"})
	s.Add(&Agent{ID: "c", Type: "gemini"})

	ids := s.AllAgentIDs()
	want := []string{"a", "b", "c"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestAgentIDForPidUnknownReturnsFalse(t *testing.T) {
	s := New()
	s.Add(&Agent{ID: "a", Type: "claude"})
	if _, ok := s.AgentIDForPid(99999); ok {
		t.Fatal("expected no match for an unused pid")
	}
}
