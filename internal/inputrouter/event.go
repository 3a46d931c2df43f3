// Package inputrouter turns raw bytes read off the controlling terminal's
// stdin into named key, mouse, and paste events (spec.md §4.E). The key
// name vocabulary (up/down/pgup/pgdown/enter/tab/shift+tab/esc/ctrl+c/...)
// is kept from the teacher's internal/app/keys.go KeyMap naming, even
// though the matching mechanism here is raw-byte-driven rather than
// bubbletea's tea.KeyMsg.
package inputrouter

// Kind distinguishes the three event families the router decodes.
type Kind int

const (
	KeyEvent Kind = iota
	MouseEvent
	PasteEvent
)

// MouseButton identifies an SGR mouse report's button field.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseMiddle
	MouseRight
	MouseWheelUp
	MouseWheelDown
	MouseNone
)

// Event is one decoded input event. Only the fields relevant to Kind are
// populated.
type Event struct {
	Kind Kind

	// KeyEvent fields. Name is the teacher's key-name vocabulary ("up",
	// "down", "pgup", "pgdown", "enter", "tab", "shift+tab", "esc",
	// "ctrl+c", "left", "right", ...) when the key maps to one of those;
	// otherwise Name is empty and Rune carries a printable character.
	Name string
	Rune rune
	Ctrl bool
	Alt  bool

	// MouseEvent fields (spec.md §4.E: SGR mouse reporting, `ESC [ < ... M/m`).
	Button   MouseButton
	X, Y     int
	Released bool

	// PasteEvent fields (spec.md §4.E: bracketed paste, `ESC [ 200~ ... ESC [ 201~`).
	Text string
}
