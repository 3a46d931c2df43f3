// Package compositor builds the single frame written to the physical
// terminal each tick: every pane's bordered, titled content; the focused
// pane's status bar; any open overlay; all wrapped in a DEC 2026
// synchronized-update envelope so the physical terminal never paints a
// half-composited frame (spec.md §4.D).
package compositor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/agentmux/agentmux/internal/layout"
	"github.com/agentmux/agentmux/internal/overlay"
	"github.com/agentmux/agentmux/internal/render"
	"github.com/agentmux/agentmux/internal/vtgrid"
)

// syncBegin/syncEnd are DECSET/DECRST 2026, the "synchronized update"
// private mode every modern terminal emulator honors to suppress
// intermediate repaints while a frame is being written.
const (
	syncBegin = "\x1b[?2026h"
	syncEnd   = "\x1b[?2026l"
)

// Pane is one leaf's renderable state: the agent's VT grid, its current
// scroll position, and whether it is following the live tail.
type Pane struct {
	ID           string
	Label        string
	Grid         *vtgrid.Grid
	ScrollOffset int // lines back from the live tail; 0 == following
	FollowTail   bool

	// SearchHighlight, if non-empty, is the current search needle; lines
	// containing it are rendered with a highlight background.
	SearchHighlight string
}

// VisibleTop returns the absolute line index (0 = oldest scrollback) of
// the first row this pane should display, given its viewport height.
func (p *Pane) VisibleTop(viewportH int) int {
	total := p.Grid.TotalLines()
	bottom := total - 1 - p.ScrollOffset
	top := bottom - viewportH + 1
	if top < 0 {
		top = 0
	}
	return top
}

// AtTop/AtBottom describe the scroll position for the status bar.
func (p *Pane) AtTop(viewportH int) bool { return p.VisibleTop(viewportH) == 0 }
func (p *Pane) AtBottom() bool           { return p.ScrollOffset == 0 }

// Frame is the compositor's input: the pane layout, the pane contents
// keyed by leaf ID, which pane is focused, the modal-mode label for the
// status bar, and any open overlay.
type Frame struct {
	Tree     *layout.Tree
	Panes    map[string]*Pane
	Focused  string
	ModeName string
	Overlays *overlay.Stack

	// SelectionDesc/SearchDesc feed the focused pane's status line
	// (spec.md §4.D).
	SelectionDesc string
	SearchDesc    string

	Width, Height int
}

// Render composites one full frame as a single string ready to write to
// the physical terminal, wrapped in a synchronized-update envelope.
func Render(f Frame) string {
	var b strings.Builder
	b.WriteString(syncBegin)
	b.WriteString("\x1b[H")

	canvas := make([]string, f.Height)
	for i := range canvas {
		canvas[i] = strings.Repeat(" ", f.Width)
	}

	for _, leaf := range f.Tree.Leaves() {
		pane := f.Panes[leaf.ID]
		if pane == nil {
			continue
		}
		focused := leaf.ID == f.Focused
		rendered := renderPane(pane, leaf.Bounds, focused)
		splicePane(canvas, rendered, leaf.Bounds)
	}

	body := strings.Join(canvas, "\n")

	if top := f.Overlays.Top(); top != nil {
		body = renderOverlayOn(body, top, f.Width, f.Height)
	} else if p := f.Panes[f.Focused]; p != nil {
		statusRow := f.Height - 1
		innerH := focusedInnerHeight(f)
		status := statusBarFor(p, f.ModeName, f.Width, innerH, f.SelectionDesc, f.SearchDesc)
		lines := strings.Split(body, "\n")
		if statusRow >= 0 && statusRow < len(lines) {
			lines[statusRow] = status
		}
		body = strings.Join(lines, "\n")
	}

	b.WriteString(body)
	b.WriteString(syncEnd)
	return b.String()
}

func renderPane(p *Pane, bounds layout.Bounds, focused bool) string {
	innerH := bounds.H - 2
	if innerH < 1 {
		innerH = 1
	}
	top := p.VisibleTop(innerH)

	var lines []string
	for i := 0; i < innerH; i++ {
		line := top + i
		if line >= p.Grid.TotalLines() {
			lines = append(lines, "")
			continue
		}
		rendered := p.Grid.RenderLine(line)
		if p.SearchHighlight != "" {
			plain := p.Grid.GetLine(line).PlainText()
			if strings.Contains(plain, p.SearchHighlight) {
				rendered = highlightSearch(rendered, plain, p.SearchHighlight)
			}
		}
		lines = append(lines, rendered)
	}
	content := strings.Join(lines, "\n")

	box := render.PanelStyle(bounds.W, bounds.H, focused).Render(content)
	title := render.TitleStyle(focused).Render(fmt.Sprintf(" %s ", p.Label))
	box = render.InjectTitle(box, title)
	box = render.OverlayScrollbar(box, p.Grid.TotalLines(), innerH, top, focused)
	return box
}

// highlightSearch wraps the first occurrence of needle in plainLine within
// the already-SGR-rendered line, preserving styling on both sides of the
// splice (spec.md §4.D's "search-hit highlighting composited over the
// existing SGR-escaped content").
func highlightSearch(rendered, plainLine, needle string) string {
	idx := strings.Index(plainLine, needle)
	if idx < 0 {
		return rendered
	}
	startByte := render.VisualOffsetToByte(rendered, idx)
	endByte := render.VisualOffsetToByte(rendered, idx+len([]rune(needle)))
	if startByte < 0 {
		return rendered
	}
	if endByte < 0 {
		endByte = len(rendered)
	}
	hl := lipgloss.NewStyle().Background(render.HintColor).Foreground(lipgloss.Color("0"))
	return rendered[:startByte] + hl.Render(rendered[startByte:endByte]) + "\x1b[0m" + rendered[endByte:]
}

// focusedInnerHeight finds the focused leaf's bounds in the same tree
// Render just laid out panes from, and returns the same innerH renderPane
// used for it, so the status bar's line range matches what's on screen.
func focusedInnerHeight(f Frame) int {
	for _, leaf := range f.Tree.Leaves() {
		if leaf.ID != f.Focused {
			continue
		}
		innerH := leaf.Bounds.H - 2
		if innerH < 1 {
			innerH = 1
		}
		return innerH
	}
	return 1
}

func statusBarFor(p *Pane, mode string, width, innerH int, selDesc, searchDesc string) string {
	total := p.Grid.TotalLines()
	from := p.VisibleTop(innerH) + 1
	to := from + innerH - 1
	if to > total {
		to = total
	}
	if to < from {
		to = from
	}
	return render.RenderStatusBar(width, render.StatusBarInfo{
		Mode:          mode,
		AgentLabel:    p.Label,
		From:          from,
		To:            to,
		Total:         total,
		AtTop:         p.AtTop(innerH),
		AtBot:         p.AtBottom(),
		SelectionDesc: selDesc,
		SearchDesc:    searchDesc,
	})
}

func renderOverlayOn(body string, top *overlay.Overlay, width, height int) string {
	var fg string
	switch top.Kind {
	case overlay.Picker:
		items := make([]render.PickerItem, len(top.Items))
		for i, it := range top.Items {
			items[i] = render.PickerItem{Key: it.Key, Label: it.Label, Desc: it.Desc}
		}
		fg = render.RenderPicker(items, top.Cursor, width/2, height/2, top.Title)
	case overlay.Confirm:
		fg = render.RenderConfirmModal(top.Prompt, width, height)
	case overlay.Prompt:
		fg = render.RenderInputBar(width, top.Label, top.InputText())
		return replaceLastLine(body, fg)
	}
	return render.OverlayCentered(body, fg, width, height)
}

func replaceLastLine(body, line string) string {
	lines := strings.Split(body, "\n")
	if len(lines) == 0 {
		return line
	}
	lines[len(lines)-1] = line
	return strings.Join(lines, "\n")
}

// splicePane writes rendered (a bordered pane box) into canvas at bounds,
// row by row.
func splicePane(canvas []string, rendered string, bounds layout.Bounds) {
	lines := strings.Split(rendered, "\n")
	for i, l := range lines {
		row := bounds.Y + i
		if row < 0 || row >= len(canvas) {
			continue
		}
		canvas[row] = spliceRow(canvas[row], l, bounds.X)
	}
}

func spliceRow(row, insert string, atCol int) string {
	startByte := render.VisualOffsetToByte(row, atCol)
	endByte := render.VisualOffsetToByte(row, atCol+lipgloss.Width(insert))
	if startByte < 0 {
		startByte = len(row)
	}
	if endByte < 0 {
		endByte = len(row)
	}
	return row[:startByte] + insert + "\x1b[0m" + row[endByte:]
}
