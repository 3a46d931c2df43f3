// Package overlay implements the picker, confirm-modal, and text-prompt
// surfaces of spec.md §4.G: a small stack of modal UI elements that
// capture all input while open, rendered by internal/render's
// RenderPicker/RenderConfirmModal/OverlayCentered.
package overlay

import "github.com/agentmux/agentmux/internal/inputrouter"

// Kind identifies which overlay surface is active.
type Kind int

const (
	Picker Kind = iota
	Confirm
	Prompt
)

// Result is returned by Dispatch when an overlay key press resolves the
// overlay (selection made, confirmed, cancelled, or text submitted).
type Result struct {
	Resolved bool
	Cancelled bool
	// SelectedKey is the PickerItem.Key chosen, set only for Kind == Picker.
	SelectedKey string
	// Confirmed is the yes/no answer, set only for Kind == Confirm.
	Confirmed bool
	// Text is the submitted prompt text, set only for Kind == Prompt.
	Text string
}

// Item mirrors render.PickerItem without importing the rendering package,
// keeping overlay's state machine decoupled from lipgloss.
type Item struct {
	Key   string
	Label string
	Desc  string
}

// Overlay is one entry on the stack spec.md §4.G describes: only the top
// entry receives input.
type Overlay struct {
	Kind Kind

	Title string

	// Picker state.
	Items  []Item
	Cursor int

	// Confirm state.
	Prompt string

	// Prompt (text input) state.
	Input     []rune
	InputPos  int
	Label     string
	OnSubmit  func(text string)
}

// Stack holds the open overlays, most-recently-pushed last.
type Stack struct {
	entries []*Overlay
}

// Push opens a new overlay on top of the stack.
func (s *Stack) Push(o *Overlay) { s.entries = append(s.entries, o) }

// Top returns the active overlay, or nil if the stack is empty.
func (s *Stack) Top() *Overlay {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[len(s.entries)-1]
}

// Pop closes the active overlay.
func (s *Stack) Pop() {
	if len(s.entries) == 0 {
		return
	}
	s.entries = s.entries[:len(s.entries)-1]
}

// Empty reports whether any overlay is open.
func (s *Stack) Empty() bool { return len(s.entries) == 0 }

// NewPicker creates a picker overlay listing items, cursor starting at 0.
func NewPicker(title string, items []Item) *Overlay {
	return &Overlay{Kind: Picker, Title: title, Items: items}
}

// NewConfirm creates a yes/no confirmation overlay.
func NewConfirm(prompt string) *Overlay {
	return &Overlay{Kind: Confirm, Prompt: prompt}
}

// NewPrompt creates a single-line text input overlay.
func NewPrompt(label string, onSubmit func(text string)) *Overlay {
	return &Overlay{Kind: Prompt, Label: label, OnSubmit: onSubmit}
}

// Dispatch routes one decoded input event to the active overlay, per
// spec.md §4.G's "keys route to the top overlay and nothing else" rule.
// The caller is responsible for popping the stack when Result.Resolved is
// true.
func (s *Stack) Dispatch(ev inputrouter.Event) Result {
	top := s.Top()
	if top == nil {
		return Result{}
	}
	switch top.Kind {
	case Picker:
		return top.dispatchPicker(ev)
	case Confirm:
		return top.dispatchConfirm(ev)
	case Prompt:
		return top.dispatchPrompt(ev)
	default:
		return Result{}
	}
}

func (o *Overlay) dispatchPicker(ev inputrouter.Event) Result {
	if ev.Kind != inputrouter.KeyEvent {
		return Result{}
	}
	switch ev.Name {
	case "up":
		if o.Cursor > 0 {
			o.Cursor--
		}
	case "down":
		if o.Cursor < len(o.Items)-1 {
			o.Cursor++
		}
	case "enter":
		if o.Cursor >= 0 && o.Cursor < len(o.Items) {
			return Result{Resolved: true, SelectedKey: o.Items[o.Cursor].Key}
		}
	case "esc":
		return Result{Resolved: true, Cancelled: true}
	default:
		for _, it := range o.Items {
			if len(it.Key) == 1 && ev.Rune == rune(it.Key[0]) {
				return Result{Resolved: true, SelectedKey: it.Key}
			}
		}
	}
	return Result{}
}

func (o *Overlay) dispatchConfirm(ev inputrouter.Event) Result {
	if ev.Kind != inputrouter.KeyEvent {
		return Result{}
	}
	switch ev.Name {
	case "enter":
		return Result{Resolved: true, Confirmed: true}
	case "esc":
		return Result{Resolved: true, Cancelled: true}
	default:
		switch ev.Rune {
		case 'y', 'Y':
			return Result{Resolved: true, Confirmed: true}
		case 'n', 'N':
			return Result{Resolved: true, Cancelled: true}
		}
	}
	return Result{}
}

func (o *Overlay) dispatchPrompt(ev inputrouter.Event) Result {
	if ev.Kind != inputrouter.KeyEvent {
		return Result{}
	}
	switch ev.Name {
	case "enter":
		text := string(o.Input)
		if o.OnSubmit != nil {
			o.OnSubmit(text)
		}
		return Result{Resolved: true, Text: text}
	case "esc":
		return Result{Resolved: true, Cancelled: true}
	case "backspace":
		if o.InputPos > 0 {
			o.Input = append(o.Input[:o.InputPos-1], o.Input[o.InputPos:]...)
			o.InputPos--
		}
	case "left":
		if o.InputPos > 0 {
			o.InputPos--
		}
	case "right":
		if o.InputPos < len(o.Input) {
			o.InputPos++
		}
	default:
		if ev.Rune != 0 {
			o.Input = append(o.Input[:o.InputPos], append([]rune{ev.Rune}, o.Input[o.InputPos:]...)...)
			o.InputPos++
		}
	}
	return Result{}
}

// InputText returns the prompt overlay's current text, for rendering.
func (o *Overlay) InputText() string { return string(o.Input) }
