// Package modal implements the modal input state machine of spec.md
// §3/§4.E: INSERT/NORMAL/VISUAL/V-LINE modes, the count accumulator, the
// pending-operator buffer, and register selection. Per the design note in
// spec.md §9, this is an explicit state machine on the input router, not
// per-handler closure state, so it survives across reads and is cleared
// uniformly on mode change and Esc.
package modal

// Mode is the modal input layer's current mode.
type Mode int

const (
	Insert Mode = iota
	Normal
	Visual
	VLine
	// Overlay is the pseudo-mode spec.md §4.G describes: keys route to the
	// top overlay and nothing else. It is tracked here so the router can
	// ask "is input captured elsewhere" without a separate bit.
	Overlay
	// Command is the ":"-prompt mode (spec.md §4.E), an external
	// collaborator surface; only entry/exit and the accumulated text are
	// modeled here.
	Command
	// Search is the "/"-prompt mode.
	Search
)

func (m Mode) String() string {
	switch m {
	case Insert:
		return "INSERT"
	case Normal:
		return "NORMAL"
	case Visual:
		return "VISUAL"
	case VLine:
		return "V-LINE"
	case Overlay:
		return "OVERLAY"
	case Command:
		return "COMMAND"
	case Search:
		return "SEARCH"
	default:
		return "?"
	}
}

// Position is a (line, col) pair in absolute grid coordinates (line 0 =
// oldest scrollback line), matching spec.md §3's ModalState fields.
type Position struct {
	Line, Col int
}

// State is the per-session ModalState of spec.md §3.
type State struct {
	Mode Mode

	// CommandPending is true after the leader key, awaiting the mode
	// letter (n/v/V).
	CommandPending bool

	NormalCursor Position
	VisualAnchor Position
	VisualCursor Position

	// count accumulates a NORMAL/VISUAL motion's numeric prefix.
	count int

	// PendingOperator holds an operator awaiting its motion (e.g. "y"),
	// or a multi-key prefix awaiting its second key (e.g. "g" awaiting
	// "g", or "f" awaiting a target rune).
	PendingOperator string

	// RegisterSelector is set by a `"<name>` prefix and applies to the
	// next yank/paste; cleared after it is consumed.
	RegisterSelector string

	// PreviousMode records what to return to when a pseudo-mode
	// (Overlay/Command/Search) is cancelled with Esc.
	PreviousMode Mode
}

// NewState returns a fresh ModalState starting in INSERT, per spec.md
// §4.E's "initial state: INSERT, per session".
func NewState() *State {
	return &State{Mode: Insert}
}

// Count returns the accumulated count, defaulting to 1 when none was
// typed (the universal NORMAL/VISUAL motion-count convention).
func (s *State) Count() int {
	if s.count <= 0 {
		return 1
	}
	return s.count
}

// PushDigit folds d into the count accumulator. A leading "0" (no digits
// yet accumulated) is not a count digit — spec.md §4.E routes it to the
// "first column" motion instead — so callers must check HasCount or
// handle '0' specially before calling PushDigit.
func (s *State) PushDigit(d int) {
	s.count = s.count*10 + d
}

// HasCount reports whether any count digits have been accumulated yet.
func (s *State) HasCount() bool { return s.count > 0 }

// ResetCount clears the accumulator, done after a motion consumes it.
func (s *State) ResetCount() { s.count = 0 }

// ClearPending clears the pending-operator buffer, the count accumulator,
// and the register selector — the uniform reset spec.md §9 requires "on
// mode change and on Esc".
func (s *State) ClearPending() {
	s.PendingOperator = ""
	s.count = 0
	s.RegisterSelector = ""
}

// EnterInsert switches to INSERT and clears all pending input state.
func (s *State) EnterInsert() {
	s.Mode = Insert
	s.CommandPending = false
	s.ClearPending()
}

// EnterNormal switches to NORMAL, seeding the virtual cursor at the
// agent's current VT cursor position (spec.md §4.E).
func (s *State) EnterNormal(at Position) {
	s.Mode = Normal
	s.CommandPending = false
	s.NormalCursor = at
	s.ClearPending()
}

// EnterVisual switches to VISUAL or V-LINE, anchoring the selection at
// the current virtual cursor (from NORMAL) or agent cursor (from INSERT).
func (s *State) EnterVisual(line bool, at Position) {
	if line {
		s.Mode = VLine
	} else {
		s.Mode = Visual
	}
	s.CommandPending = false
	s.VisualAnchor = at
	s.VisualCursor = at
	s.ClearPending()
}

// EnterPseudoMode switches to Overlay/Command/Search, remembering the mode
// to restore on cancellation.
func (s *State) EnterPseudoMode(m Mode) {
	if s.Mode != Overlay && s.Mode != Command && s.Mode != Search {
		s.PreviousMode = s.Mode
	}
	s.Mode = m
	s.ClearPending()
}

// CancelPseudoMode restores PreviousMode, used when Esc cancels a
// SEARCH/COMMAND/OVERLAY prompt (spec.md §4.E: "cancelling a SEARCH input
// keeps previously-computed matches highlighted").
func (s *State) CancelPseudoMode() {
	s.Mode = s.PreviousMode
	if s.Mode == Insert {
		s.EnterInsert()
	}
}

// SelectionRange returns the normalized (start, end) pair for the current
// VISUAL/V-LINE selection, with start always ordering before end (spec.md
// §8's Selection correctness property: "min(anchor,cursor) and
// max(anchor,cursor)").
func (s *State) SelectionRange() (start, end Position) {
	a, c := s.VisualAnchor, s.VisualCursor
	if positionLess(c, a) {
		return c, a
	}
	return a, c
}

func positionLess(a, b Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Col < b.Col
}
