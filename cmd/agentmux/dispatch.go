package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agentmux/agentmux/internal/compositor"
	"github.com/agentmux/agentmux/internal/inputrouter"
	"github.com/agentmux/agentmux/internal/layout"
	"github.com/agentmux/agentmux/internal/modal"
	"github.com/agentmux/agentmux/internal/overlay"
	"github.com/agentmux/agentmux/internal/registers"
	"github.com/agentmux/agentmux/internal/session"
	"github.com/agentmux/agentmux/internal/vtgrid"
)

// leaderName is Ctrl-Space's raw byte (NUL) as the decoder's generic
// ctrl-letter fallback names it (spec.md §4.E's default leader).
const leaderName = "ctrl+`"

// handleEvent is the input router's single entry point: overlays first
// (spec.md §4.G, "keys route to the top overlay and nothing else"), then
// viewport keys (work in any mode), then the focused agent's mode machine.
func (a *app) handleEvent(ev inputrouter.Event) {
	a.dirty = true

	if !a.overlays.Empty() {
		a.dispatchOverlayEvent(ev)
		return
	}

	switch ev.Kind {
	case inputrouter.MouseEvent:
		a.handleMouse(ev)
		return
	case inputrouter.PasteEvent:
		a.handlePaste(ev)
		return
	}

	if a.handleViewportKey(ev) {
		return
	}

	ag, ok := a.sess.Get(a.focused)
	if !ok {
		return
	}

	if a.leaderPending {
		a.leaderPending = false
		a.handleLeaderCommand(ag, ev)
		return
	}
	if ev.Kind == inputrouter.KeyEvent && ev.Name == leaderName {
		a.leaderPending = true
		return
	}

	switch ag.Modal.Mode {
	case modal.Insert:
		a.handleInsert(ag, ev)
	case modal.Normal, modal.Visual, modal.VLine:
		a.handleNormalOrVisual(ag, ev)
	case modal.Command:
		a.handleCommandMode(ag, ev)
	case modal.Search:
		a.handleSearchMode(ag, ev)
	}
}

func (a *app) currentModeName() string {
	ag, ok := a.sess.Get(a.focused)
	if !ok {
		return modal.Insert.String()
	}
	return ag.Modal.Mode.String()
}

func (a *app) selectionDesc() string {
	ag, ok := a.sess.Get(a.focused)
	if !ok || (ag.Modal.Mode != modal.Visual && ag.Modal.Mode != modal.VLine) {
		return ""
	}
	start, end := ag.Modal.SelectionRange()
	return fmt.Sprintf("%d,%d-%d,%d", start.Line+1, start.Col+1, end.Line+1, end.Col+1)
}

func (a *app) searchDesc() string {
	if a.searchNeedle == "" {
		return ""
	}
	return fmt.Sprintf("/%s [%d/%d]", a.searchNeedle, a.searchIndex+1, len(a.searchMatches))
}

// handleViewportKey implements spec.md §4.E's "work in any mode, never
// forwarded" key set: PageUp/PageDown paging and Ctrl-L redraw. No
// single-line scroll key is handled here.
func (a *app) handleViewportKey(ev inputrouter.Event) bool {
	if ev.Kind != inputrouter.KeyEvent {
		return false
	}
	pane := a.panes[a.focused]
	switch ev.Name {
	case "pgup":
		if pane != nil {
			a.scrollPane(pane, a.paneHeight(a.focused))
		}
		return true
	case "pgdown":
		if pane != nil {
			a.scrollPane(pane, -a.paneHeight(a.focused))
		}
		return true
	case "ctrl+l":
		a.dirty = true
		a.redraw()
		return true
	}
	return false
}

func (a *app) paneHeight(id string) int {
	for _, leaf := range a.tree.Leaves() {
		if leaf.ID == id {
			h := leaf.Bounds.H - 2
			if h < 1 {
				h = 1
			}
			return h
		}
	}
	return 1
}

// scrollPane adjusts a pane's scroll offset by delta lines (positive =
// scroll back into history), disabling/re-enabling follow-tail per
// spec.md §4.D.
func (a *app) scrollPane(p *compositor.Pane, delta int) {
	p.ScrollOffset += delta
	if p.ScrollOffset < 0 {
		p.ScrollOffset = 0
	}
	max := p.Grid.TotalLines() - 1
	if p.ScrollOffset > max {
		p.ScrollOffset = max
	}
	p.FollowTail = p.ScrollOffset == 0
}

func (a *app) handleMouse(ev inputrouter.Event) {
	var targetID string
	for _, leaf := range a.tree.Leaves() {
		b := leaf.Bounds
		if ev.X >= b.X && ev.X < b.X+b.W && ev.Y >= b.Y && ev.Y < b.Y+b.H {
			targetID = leaf.ID
			break
		}
	}
	if targetID == "" {
		return
	}
	p := a.panes[targetID]
	if p == nil {
		return
	}
	switch ev.Button {
	case inputrouter.MouseWheelUp:
		a.scrollPane(p, 3)
	case inputrouter.MouseWheelDown:
		a.scrollPane(p, -3)
	}
}

func (a *app) handlePaste(ev inputrouter.Event) {
	ag, ok := a.sess.Get(a.focused)
	if !ok || ag.Modal.Mode != modal.Insert {
		return
	}
	ag.Process.Write([]byte("\x1b[200~" + ev.Text + "\x1b[201~"))
}

// handleInsert forwards almost everything straight to the child PTY,
// except the leader combos (handled by the caller) and Esc, which
// spec.md §4.E says is still forwarded in INSERT ("agents expect to
// receive it").
func (a *app) handleInsert(ag *session.Agent, ev inputrouter.Event) {
	ag.Process.Write(reconstructBytes(ev))
}

// reconstructBytes re-encodes a decoded Event back into the raw bytes a
// child PTY expects, since inputrouter.Decoder discards the original
// sequence once it names the key.
func reconstructBytes(ev inputrouter.Event) []byte {
	prefix := []byte{}
	if ev.Alt {
		prefix = []byte{0x1b}
	}
	switch ev.Kind {
	case inputrouter.KeyEvent:
		switch ev.Name {
		case "esc":
			return append(prefix, 0x1b)
		case "enter":
			return append(prefix, '\r')
		case "tab":
			return append(prefix, '\t')
		case "shift+tab":
			return append(prefix, []byte("\x1b[Z")...)
		case "backspace":
			return append(prefix, 0x7f)
		case "up":
			return append(prefix, []byte("\x1b[A")...)
		case "down":
			return append(prefix, []byte("\x1b[B")...)
		case "right":
			return append(prefix, []byte("\x1b[C")...)
		case "left":
			return append(prefix, []byte("\x1b[D")...)
		case "pgup":
			return append(prefix, []byte("\x1b[5~")...)
		case "pgdown":
			return append(prefix, []byte("\x1b[6~")...)
		case "ctrl+c":
			return append(prefix, 0x03)
		case "ctrl+d":
			return append(prefix, 0x04)
		case "ctrl+f":
			return append(prefix, 0x06)
		case "ctrl+b":
			return append(prefix, 0x02)
		case "ctrl+u":
			return append(prefix, 0x15)
		case "ctrl+l":
			return append(prefix, 0x0c)
		}
		if ev.Rune != 0 {
			return append(prefix, []byte(string(ev.Rune))...)
		}
	}
	return prefix
}

// handleLeaderCommand dispatches the key following the leader (spec.md
// §4.E's mode-switch bindings plus the layout operations of §4.C, which
// have no dedicated chord of their own in the spec and so share the
// leader namespace the way a tmux-style multiplexer's prefix table does).
func (a *app) handleLeaderCommand(ag *session.Agent, ev inputrouter.Event) {
	if ev.Kind != inputrouter.KeyEvent {
		return
	}
	switch ev.Name {
	case "left":
		a.tree.FocusDirection(layout.Left)
		a.focused = a.tree.FocusedPaneID()
		return
	case "right":
		a.tree.FocusDirection(layout.Right)
		a.focused = a.tree.FocusedPaneID()
		return
	case "up":
		a.tree.FocusDirection(layout.Up)
		a.focused = a.tree.FocusedPaneID()
		return
	case "down":
		a.tree.FocusDirection(layout.Down)
		a.focused = a.tree.FocusedPaneID()
		return
	}
	switch ev.Rune {
	case 'n':
		ag.Modal.EnterNormal(vtCursorPos(ag.Process.Grid))
	case 'v':
		ag.Modal.EnterVisual(false, currentCursor(ag))
	case 'V':
		ag.Modal.EnterVisual(true, currentCursor(ag))
	case 'a':
		a.overlays.Push(overlay.NewPrompt("new agent type", func(text string) {
			a.openSplit(text, layout.Right)
		}))
	case '\\':
		a.openSplit(ag.Type, layout.Right)
	case '-':
		a.openSplit(ag.Type, layout.Down)
	case 'x':
		go ag.Process.Stop(shutdownGrace)
	case 'o':
		a.tree.CycleFocus(true)
		a.focused = a.tree.FocusedPaneID()
	case 'O':
		a.tree.CycleFocus(false)
		a.focused = a.tree.FocusedPaneID()
	case 'z':
		a.tree.ToggleZoom()
	case '=':
		a.tree.Equalize()
	case 'h':
		a.tree.ResizeFocused(true, -0.05)
	case 'l':
		a.tree.ResizeFocused(true, 0.05)
	case 'H':
		a.tree.ResizeFocused(false, -0.05)
	case 'L':
		a.tree.ResizeFocused(false, 0.05)
	}
}

// openSplit spawns a new agent of agentType and splits it into the
// layout in direction d, focusing the new pane (spec.md §4.C's split
// operation).
func (a *app) openSplit(agentType string, d layout.Direction) {
	if agentType == "" {
		return
	}
	h := a.paneHeight(a.focused)
	id, err := a.spawnAgent(agentType, a.width/2, h, a.exitCh)
	if err != nil {
		return
	}
	if err := a.tree.Split(d, id); err != nil {
		delete(a.panes, id)
		a.sess.Remove(id)
		return
	}
	a.focused = a.tree.FocusedPaneID()
}

// currentCursor returns the position VISUAL anchors from: the virtual
// cursor when already in NORMAL, otherwise the agent's live VT cursor.
func currentCursor(ag *session.Agent) modal.Position {
	if ag.Modal.Mode == modal.Normal {
		return ag.Modal.NormalCursor
	}
	return vtCursorPos(ag.Process.Grid)
}

// vtCursorPos converts a grid's viewport-relative cursor into the
// absolute line coordinates spec.md §4.E's ModalState uses. The raw
// CursorRow can sit one past the last printed row (a trailing "\r\n"
// advances it via lineFeed without printing anything there), so the
// result is clamped to ContentHeight's high-water mark, mirroring
// grid.go's own exclusion of that phantom row.
func vtCursorPos(g *vtgrid.Grid) modal.Position {
	base := g.TotalLines() - g.Rows
	line := base + g.CursorRow
	if max := g.ContentHeight() - 1; line > max {
		line = max
	}
	if line < 0 {
		line = 0
	}
	return modal.Position{Line: line, Col: g.CursorCol}
}

// handleNormalOrVisual implements spec.md §4.E's NORMAL/VISUAL movement
// grammar: optional count, motions, the "y" yank operator, and Esc.
func (a *app) handleNormalOrVisual(ag *session.Agent, ev inputrouter.Event) {
	g := ag.Process.Grid
	st := ag.Modal

	if ev.Kind != inputrouter.KeyEvent {
		return
	}

	if ev.Name == "esc" {
		if st.PendingOperator != "" || st.HasCount() || st.RegisterSelector != "" {
			st.ClearPending()
			return
		}
		if st.Mode == modal.Visual || st.Mode == modal.VLine {
			st.EnterInsert()
			a.dirty = true
			return
		}
		st.EnterInsert()
		return
	}

	if a.pendingFind != "" {
		a.resolveFindChar(ag, ev)
		return
	}

	switch ev.Name {
	case "up":
		a.applyMotion(ag, modal.MoveLine(g, cursorOf(st), -st.Count()))
		st.ResetCount()
		return
	case "down":
		a.applyMotion(ag, modal.MoveLine(g, cursorOf(st), st.Count()))
		st.ResetCount()
		return
	case "left":
		a.applyMotion(ag, modal.MoveChar(g, cursorOf(st), -st.Count()))
		st.ResetCount()
		return
	case "right":
		a.applyMotion(ag, modal.MoveChar(g, cursorOf(st), st.Count()))
		st.ResetCount()
		return
	case "ctrl+f":
		a.applyMotion(ag, modal.PageMotion(g, cursorOf(st), a.paneHeight(a.focused), false, true))
		return
	case "ctrl+b":
		a.applyMotion(ag, modal.PageMotion(g, cursorOf(st), a.paneHeight(a.focused), false, false))
		return
	}

	r := ev.Rune
	switch {
	case r >= '1' && r <= '9':
		st.PushDigit(int(r - '0'))
		return
	case r == '0' && st.HasCount():
		st.PushDigit(0)
		return
	case r == '0':
		a.applyMotion(ag, modal.LineStart(cursorOf(st)))
		return
	case r == '"':
		// Register selector: the rune that follows names the register
		// (spec.md §4.E); stash a pending marker and consume the next rune
		// in the register-name branch below.
		st.RegisterSelector = "\x00" // sentinel: "awaiting name"
		return
	case st.RegisterSelector == "\x00" && r != 0:
		st.RegisterSelector = string(r)
		return
	}

	switch r {
	case 'h':
		a.applyMotion(ag, modal.MoveChar(g, cursorOf(st), -st.Count()))
		st.ResetCount()
	case 'l':
		a.applyMotion(ag, modal.MoveChar(g, cursorOf(st), st.Count()))
		st.ResetCount()
	case 'j':
		a.applyMotion(ag, modal.MoveLine(g, cursorOf(st), st.Count()))
		st.ResetCount()
	case 'k':
		a.applyMotion(ag, modal.MoveLine(g, cursorOf(st), -st.Count()))
		st.ResetCount()
	case '^':
		a.applyMotion(ag, modal.LineFirstNonBlank(g, cursorOf(st)))
	case '$':
		a.applyMotion(ag, modal.LineEnd(g, cursorOf(st)))
	case 'w':
		a.applyMotionN(ag, func(p modal.Position) modal.Position { return modal.WordForward(g, p, false) })
	case 'W':
		a.applyMotionN(ag, func(p modal.Position) modal.Position { return modal.WordForward(g, p, true) })
	case 'b':
		a.applyMotionN(ag, func(p modal.Position) modal.Position { return modal.WordBackward(g, p, false) })
	case 'B':
		a.applyMotionN(ag, func(p modal.Position) modal.Position { return modal.WordBackward(g, p, true) })
	case 'e':
		a.applyMotionN(ag, func(p modal.Position) modal.Position { return modal.WordEnd(g, p, false) })
	case 'E':
		a.applyMotionN(ag, func(p modal.Position) modal.Position { return modal.WordEnd(g, p, true) })
	case 'f', 'F', 't', 'T':
		a.pendingFind = string(r)
	case 'G':
		if st.HasCount() {
			a.applyMotion(ag, modal.Position{Line: st.Count() - 1, Col: 0})
		} else {
			a.applyMotion(ag, modal.LastLine(g))
		}
		st.ResetCount()
	case 'g':
		if st.PendingOperator == "g" {
			st.PendingOperator = ""
			a.applyMotion(ag, modal.FirstLine(g))
		} else if st.PendingOperator == "y" {
			// "ygg": yank from cursor to the first line.
			a.finishOperator(ag, st.ApplyMotion(modal.FirstLine(g)))
		} else {
			st.PendingOperator = "g"
		}
	case 'y':
		if st.Mode == modal.Visual || st.Mode == modal.VLine {
			a.yankVisual(ag)
			return
		}
		if st.PendingOperator == "y" {
			a.finishOperator(ag, st.ApplyLineOperator("y"))
			return
		}
		st.BeginOperator("y")
	case 'd':
		// Read-only history: "d" is a documented no-op that still clears
		// pending state (spec.md §4.E).
		st.PendingOperator = ""
		st.ResetCount()
	case 'v':
		if st.Mode == modal.Normal {
			st.EnterVisual(false, st.NormalCursor)
		} else {
			st.EnterNormal(st.VisualCursor)
		}
	case 'V':
		if st.Mode == modal.Normal {
			st.EnterVisual(true, st.NormalCursor)
		} else {
			st.EnterNormal(st.VisualCursor)
		}
	case ':':
		st.EnterPseudoMode(modal.Command)
		a.cmdBuf = nil
	case '/':
		if st.Mode == modal.Visual || st.Mode == modal.VLine {
			a.extendVisualToNextMatch(ag)
			return
		}
		st.EnterPseudoMode(modal.Search)
		a.searchBuf = nil
	case 'n':
		a.jumpSearch(ag, true)
	case 'N':
		a.jumpSearch(ag, false)
	}
}

// cursorOf returns the position a plain (non-operator) motion should
// move: the VISUAL cursor in VISUAL/V-LINE, otherwise the NORMAL virtual
// cursor.
func cursorOf(st *modal.State) modal.Position {
	if st.Mode == modal.Visual || st.Mode == modal.VLine {
		return st.VisualCursor
	}
	return st.NormalCursor
}

// applyMotion feeds a single resolved position through the mode's
// ApplyMotion, performing the pending yank if one was just satisfied.
func (a *app) applyMotion(ag *session.Agent, pos modal.Position) {
	res := ag.Modal.ApplyMotion(pos)
	a.finishOperator(ag, res)
}

// applyMotionN applies a count-repeated motion function, since word/char
// motions in spec.md §4.E's grammar take a numeric prefix ("3w", etc.).
func (a *app) applyMotionN(ag *session.Agent, step func(modal.Position) modal.Position) {
	pos := cursorOf(ag.Modal)
	for i := 0; i < ag.Modal.Count(); i++ {
		pos = step(pos)
	}
	ag.Modal.ResetCount()
	a.applyMotion(ag, pos)
}

func (a *app) resolveFindChar(ag *session.Agent, ev inputrouter.Event) {
	op := a.pendingFind
	a.pendingFind = ""
	if ev.Rune == 0 {
		return
	}
	g := ag.Process.Grid
	forward := op == "f" || op == "t"
	before := op == "t" || op == "T"
	pos := cursorOf(ag.Modal)
	for i := 0; i < ag.Modal.Count(); i++ {
		next, ok := modal.FindChar(g, pos, ev.Rune, forward, before)
		if !ok {
			ag.Modal.ResetCount()
			return
		}
		pos = next
	}
	ag.Modal.ResetCount()
	a.applyMotion(ag, pos)
}

// finishOperator performs the yank a satisfied operator describes,
// mirrors it into registers per any pending selector, and returns NORMAL
// mode (spec.md §4.F).
func (a *app) finishOperator(ag *session.Agent, res *modal.OperatorResult) {
	if res == nil {
		return
	}
	text := modal.ExtractText(ag.Process.Grid, *res)
	name := ag.Modal.RegisterSelector
	if name == "\x00" {
		name = ""
	}
	ag.Modal.RegisterSelector = ""
	ag.Registers.Yank(name, text, registers.Kind(res.Kind))
}

// yankVisual yanks the current VISUAL/V-LINE selection and, per spec.md
// §4.E, returns to INSERT for a quick-paste workflow.
func (a *app) yankVisual(ag *session.Agent) {
	st := ag.Modal
	start, end := st.SelectionRange()
	kind := modal.KindChar
	if st.Mode == modal.VLine {
		kind = modal.KindLine
	}
	text := modal.ExtractText(ag.Process.Grid, modal.OperatorResult{Start: start, End: end, Kind: kind})
	name := st.RegisterSelector
	if name == "\x00" {
		name = ""
	}
	st.RegisterSelector = ""
	ag.Registers.Yank(name, text, registers.Kind(kind))
	st.EnterInsert()
}

func (a *app) extendVisualToNextMatch(ag *session.Agent) {
	if len(a.searchMatches) == 0 {
		return
	}
	a.jumpSearch(ag, true)
	m := a.searchMatches[a.searchIndex]
	ag.Modal.VisualCursor = modal.Position{Line: m.Line, Col: m.Col}
}

func (a *app) handleCommandMode(ag *session.Agent, ev inputrouter.Event) {
	if ev.Kind != inputrouter.KeyEvent {
		return
	}
	switch ev.Name {
	case "esc":
		ag.Modal.CancelPseudoMode()
	case "enter":
		a.runCommand(string(a.cmdBuf))
		ag.Modal.CancelPseudoMode()
	case "backspace":
		if len(a.cmdBuf) > 0 {
			a.cmdBuf = a.cmdBuf[:len(a.cmdBuf)-1]
		}
	default:
		if ev.Rune != 0 {
			a.cmdBuf = append(a.cmdBuf, ev.Rune)
		}
	}
}

// runCommand recognizes the external-collaborator command vocabulary of
// spec.md §4.E ("w [name]", "wq"/"x", "sessions", "restore <id|name>",
// "name <n>"). Session persistence is explicitly out of this module's
// scope (spec.md §1), so every command beyond quit is accepted and
// ignored: it is neither acted on nor logged.
func (a *app) runCommand(cmd string) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "wq", "x", "q", "quit":
		go func() {
			for _, ag := range a.sess.Agents() {
				ag.Process.Stop(shutdownGrace)
			}
		}()
	}
}

func (a *app) handleSearchMode(ag *session.Agent, ev inputrouter.Event) {
	if ev.Kind != inputrouter.KeyEvent {
		return
	}
	switch ev.Name {
	case "esc":
		// Cancelling a SEARCH input keeps previously-computed matches
		// highlighted (spec.md §4.E).
		ag.Modal.CancelPseudoMode()
	case "enter":
		a.runSearch(ag, string(a.searchBuf))
		ag.Modal.CancelPseudoMode()
	case "backspace":
		if len(a.searchBuf) > 0 {
			a.searchBuf = a.searchBuf[:len(a.searchBuf)-1]
		}
	default:
		if ev.Rune != 0 {
			a.searchBuf = append(a.searchBuf, ev.Rune)
		}
	}
}

// runSearch compiles needle as a case-insensitive regex (an invalid
// pattern yields no matches rather than an error, per spec.md §4.E) and
// scans every line of the focused pane's grid.
func (a *app) runSearch(ag *session.Agent, needle string) {
	a.searchNeedle = needle
	a.searchMatches = nil
	a.searchIndex = 0
	if needle == "" {
		return
	}
	re, err := regexp.Compile("(?i)" + needle)
	if err != nil {
		return
	}
	g := ag.Process.Grid
	for line := 0; line < g.TotalLines(); line++ {
		plain := g.GetLine(line).PlainText()
		for _, loc := range re.FindAllStringIndex(plain, -1) {
			runeCol := len([]rune(plain[:loc[0]]))
			runeLen := len([]rune(plain[loc[0]:loc[1]]))
			a.searchMatches = append(a.searchMatches, searchMatch{Line: line, Col: runeCol, Len: runeLen})
		}
	}
	if p := a.panes[a.focused]; p != nil {
		p.SearchHighlight = needle
	}
	// Seed one before the first match so jumpSearch's unconditional
	// advance lands on index 0, not 1 (spec.md §8 scenario 3: the first
	// jump after Enter is match 0, with n/n cycling 0->1->0 from there).
	a.searchIndex = -1
	a.jumpSearch(ag, true)
}

// jumpSearch cycles to the next/previous match with wraparound, scrolling
// the focused pane so the match is roughly centered (spec.md §4.E).
func (a *app) jumpSearch(ag *session.Agent, forward bool) {
	if len(a.searchMatches) == 0 {
		return
	}
	if forward {
		a.searchIndex = (a.searchIndex + 1) % len(a.searchMatches)
	} else {
		a.searchIndex = (a.searchIndex - 1 + len(a.searchMatches)) % len(a.searchMatches)
	}
	m := a.searchMatches[a.searchIndex]
	p := a.panes[a.focused]
	if p == nil {
		return
	}
	h := a.paneHeight(a.focused)
	top := m.Line - h/2
	if top < 0 {
		top = 0
	}
	bottom := p.Grid.TotalLines() - 1 - top - h + 1
	p.ScrollOffset = bottom
	if p.ScrollOffset < 0 {
		p.ScrollOffset = 0
	}
	p.FollowTail = false
}

// dispatchOverlayEvent routes input to the top overlay and applies its
// resolution (spec.md §4.G).
func (a *app) dispatchOverlayEvent(ev inputrouter.Event) {
	res := a.overlays.Dispatch(ev)
	if !res.Resolved {
		return
	}
	a.overlays.Pop()
}
