package overlay

import (
	"testing"

	"github.com/agentmux/agentmux/internal/inputrouter"
)

func key(name string) inputrouter.Event {
	return inputrouter.Event{Kind: inputrouter.KeyEvent, Name: name}
}

func rune_(r rune) inputrouter.Event {
	return inputrouter.Event{Kind: inputrouter.KeyEvent, Rune: r}
}

func TestOnlyTopOverlayReceivesInput(t *testing.T) {
	var s Stack
	s.Push(NewPicker("first", []Item{{Key: "a", Label: "A"}}))
	s.Push(NewConfirm("close pane?"))

	res := s.Dispatch(key("enter"))
	if !res.Resolved || !res.Confirmed {
		t.Fatalf("expected the confirm overlay (top of stack) to resolve, got %+v", res)
	}
}

func TestPickerNavigationAndSelection(t *testing.T) {
	items := []Item{{Key: "c", Label: "claude"}, {Key: "x", Label: "codex"}, {Key: "g", Label: "gemini"}}
	var s Stack
	s.Push(NewPicker("agents", items))

	s.Dispatch(key("down"))
	s.Dispatch(key("down"))
	s.Dispatch(key("up"))
	res := s.Dispatch(key("enter"))
	if !res.Resolved || res.SelectedKey != "x" {
		t.Fatalf("expected selection of codex (x), got %+v", res)
	}
}

func TestPickerCancelledByEsc(t *testing.T) {
	var s Stack
	s.Push(NewPicker("agents", []Item{{Key: "c", Label: "claude"}}))
	res := s.Dispatch(key("esc"))
	if !res.Resolved || !res.Cancelled {
		t.Fatalf("expected cancellation, got %+v", res)
	}
}

func TestPickerHotkeySelectsDirectly(t *testing.T) {
	items := []Item{{Key: "c", Label: "claude"}, {Key: "x", Label: "codex"}}
	var s Stack
	s.Push(NewPicker("agents", items))
	res := s.Dispatch(rune_('x'))
	if !res.Resolved || res.SelectedKey != "x" {
		t.Fatalf("hotkey selection = %+v", res)
	}
}

func TestConfirmYesNoKeys(t *testing.T) {
	var s Stack
	s.Push(NewConfirm("really?"))
	res := s.Dispatch(rune_('n'))
	if !res.Resolved || res.Confirmed {
		t.Fatalf("expected cancellation via 'n', got %+v", res)
	}
}

func TestPromptEditingAndSubmit(t *testing.T) {
	var submitted string
	var s Stack
	s.Push(NewPrompt("name:", func(text string) { submitted = text }))

	for _, r := range "agent1" {
		s.Dispatch(rune_(r))
	}
	s.Dispatch(key("backspace"))
	res := s.Dispatch(rune_('0'))
	if res.Resolved {
		t.Fatalf("typing should not resolve the prompt, got %+v", res)
	}
	res = s.Dispatch(key("enter"))
	if !res.Resolved || res.Text != "agent0" {
		t.Fatalf("submitted text = %+v, want agent0", res)
	}
	if submitted != "agent0" {
		t.Fatalf("OnSubmit got %q, want agent0", submitted)
	}
}

func TestStackPopRemovesTopOverlay(t *testing.T) {
	var s Stack
	s.Push(NewPicker("a", nil))
	s.Push(NewConfirm("b"))
	s.Pop()
	if s.Top().Kind != Picker {
		t.Fatalf("after pop, top = %v, want Picker", s.Top().Kind)
	}
	s.Pop()
	if !s.Empty() {
		t.Fatal("expected stack to be empty")
	}
}
