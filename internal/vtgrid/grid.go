package vtgrid

import "strings"

// Line is a fixed-width sequence of Cells. Trailing default-style blanks are
// not significant (they never affect RenderLine's output).
type Line struct {
	Cells []Cell
}

func newLine(cols int) Line {
	cells := make([]Cell, cols)
	for i := range cells {
		cells[i] = BlankCell()
	}
	return Line{Cells: cells}
}

func (l *Line) ensureWidth(cols int) {
	for len(l.Cells) < cols {
		l.Cells = append(l.Cells, BlankCell())
	}
}

// PlainText returns the line's text with trailing blanks trimmed.
func (l Line) PlainText() string {
	var b strings.Builder
	last := -1
	for i, c := range l.Cells {
		if !c.IsBlank() {
			last = i
		}
	}
	for i := 0; i <= last; i++ {
		if l.Cells[i].Width == 0 {
			continue
		}
		b.WriteRune(l.Cells[i].Ch)
	}
	return b.String()
}

// Grid is a circular buffer of Lines: a visible viewport of rows x cols,
// up to scrollbackMax lines of history above it, a cursor in viewport
// coordinates, and the current SGR state that new writes inherit.
type Grid struct {
	Rows, Cols    int
	ScrollbackMax int

	scrollback []Line // oldest first, bounded to ScrollbackMax
	viewport   []Line // exactly Rows lines

	CursorRow, CursorCol int
	cur                  Style

	// DECAWM: autowrap at right margin. Default on.
	autowrap bool
	// pending wrap: cursor parked past the right margin, next printable
	// char triggers the wrap instead of overflowing immediately (standard
	// xterm "last column" behavior).
	wrapPending bool

	// DECSTBM scroll region, inclusive, viewport-relative rows.
	scrollTop, scrollBottom int

	// alternate screen buffer (DECSET 1049): swapped in for full-screen apps.
	altActive  bool
	altSaved   *Grid
	saveCursor [2]int // saved cursor for 1049 restore

	// contentHeight is a high-water mark over (scrollback_used + row + 1)
	// updated only when a cell is actually printed, not merely when the
	// cursor moves past written content on a trailing newline. This keeps
	// a bare trailing "\r\n" from inflating content_height with a phantom
	// blank line, matching how a shell prompt's final newline reads.
	contentHeight int
}

// NewGrid creates a fresh grid sized rows x cols with the given scrollback
// capacity.
func NewGrid(rows, cols, scrollbackMax int) *Grid {
	g := &Grid{
		Rows:          rows,
		Cols:          cols,
		ScrollbackMax: scrollbackMax,
		autowrap:      true,
		cur:           DefaultStyle,
		contentHeight: 1,
	}
	g.viewport = make([]Line, rows)
	for i := range g.viewport {
		g.viewport[i] = newLine(cols)
	}
	g.scrollTop = 0
	g.scrollBottom = rows - 1
	return g
}

// ContentHeight is scrollback_used + cursor_row + 1 at the last point any
// cell was actually printed: it grows monotonically as content is produced
// and plateaus once scrollback is full.
func (g *Grid) ContentHeight() int {
	return g.contentHeight
}

// GetLine returns line i (0 = oldest in scrollback) of the combined
// scrollback+viewport buffer.
func (g *Grid) GetLine(i int) Line {
	if i < 0 {
		return Line{}
	}
	if i < len(g.scrollback) {
		return g.scrollback[i]
	}
	vi := i - len(g.scrollback)
	if vi < 0 || vi >= len(g.viewport) {
		return Line{}
	}
	return g.viewport[vi]
}

// TotalLines is the number of addressable lines (scrollback + viewport).
func (g *Grid) TotalLines() int {
	return len(g.scrollback) + len(g.viewport)
}

func (g *Grid) lineAt(row int) *Line {
	g.viewport[row].ensureWidth(g.Cols)
	return &g.viewport[row]
}

// Resize changes the viewport dimensions. Cols growth pads lines; cols
// shrink truncates. Rows growth appends blank lines at the bottom; rows
// shrink pushes the removed top lines into scrollback, mirroring a real
// terminal's behavior when the window gets smaller.
func (g *Grid) Resize(rows, cols int) {
	if rows <= 0 || cols <= 0 {
		return
	}
	if cols != g.Cols {
		for i := range g.viewport {
			if cols < g.Cols {
				if len(g.viewport[i].Cells) > cols {
					g.viewport[i].Cells = g.viewport[i].Cells[:cols]
				}
			} else {
				g.viewport[i].ensureWidth(cols)
			}
		}
		if g.CursorCol >= cols {
			g.CursorCol = cols - 1
		}
		g.Cols = cols
	}
	if rows > len(g.viewport) {
		for len(g.viewport) < rows {
			g.viewport = append(g.viewport, newLine(g.Cols))
		}
	} else if rows < len(g.viewport) {
		overflow := len(g.viewport) - rows
		g.pushScrollback(g.viewport[:overflow]...)
		g.viewport = g.viewport[overflow:]
		g.CursorRow -= overflow
		if g.CursorRow < 0 {
			g.CursorRow = 0
		}
	}
	g.Rows = rows
	g.scrollTop = 0
	g.scrollBottom = rows - 1
	if g.CursorRow >= rows {
		g.CursorRow = rows - 1
	}
}

func (g *Grid) pushScrollback(lines ...Line) {
	if g.altActive {
		return // alternate screen keeps no scrollback
	}
	g.scrollback = append(g.scrollback, lines...)
	if g.ScrollbackMax > 0 && len(g.scrollback) > g.ScrollbackMax {
		drop := len(g.scrollback) - g.ScrollbackMax
		g.scrollback = g.scrollback[drop:]
	}
}

// scrollUp moves the top line of the scroll region into scrollback (if it's
// the whole-screen region) and shifts the region up by one, inserting a
// blank line at the bottom of the region.
func (g *Grid) scrollUp() {
	top, bot := g.scrollTop, g.scrollBottom
	if top == 0 {
		g.pushScrollback(g.viewport[top])
	}
	copy(g.viewport[top:bot], g.viewport[top+1:bot+1])
	g.viewport[bot] = newLine(g.Cols)
}

func (g *Grid) scrollDown() {
	top, bot := g.scrollTop, g.scrollBottom
	copy(g.viewport[top+1:bot+1], g.viewport[top:bot])
	g.viewport[top] = newLine(g.Cols)
}

func (g *Grid) lineFeed() {
	g.wrapPending = false
	if g.CursorRow == g.scrollBottom {
		g.scrollUp()
		return
	}
	if g.CursorRow < g.Rows-1 {
		g.CursorRow++
	}
}

func (g *Grid) reverseLineFeed() {
	g.wrapPending = false
	if g.CursorRow == g.scrollTop {
		g.scrollDown()
		return
	}
	if g.CursorRow > 0 {
		g.CursorRow--
	}
}

// EnterAltScreen swaps in a scrollback-less buffer of the same dimensions,
// saving the primary buffer's content and cursor (DECSET 1049).
func (g *Grid) EnterAltScreen() {
	if g.altActive {
		return
	}
	g.saveCursor = [2]int{g.CursorRow, g.CursorCol}
	saved := &Grid{
		Rows: g.Rows, Cols: g.Cols, ScrollbackMax: g.ScrollbackMax,
		scrollback: g.scrollback, viewport: g.viewport,
		CursorRow: g.CursorRow, CursorCol: g.CursorCol,
		cur: g.cur, autowrap: g.autowrap,
		scrollTop: g.scrollTop, scrollBottom: g.scrollBottom,
	}
	g.altSaved = saved
	g.scrollback = nil
	g.viewport = make([]Line, g.Rows)
	for i := range g.viewport {
		g.viewport[i] = newLine(g.Cols)
	}
	g.CursorRow, g.CursorCol = 0, 0
	g.altActive = true
}

// ExitAltScreen restores the primary buffer (DECRST 1049).
func (g *Grid) ExitAltScreen() {
	if !g.altActive || g.altSaved == nil {
		return
	}
	saved := g.altSaved
	g.scrollback = saved.scrollback
	g.viewport = saved.viewport
	g.cur = saved.cur
	g.scrollTop, g.scrollBottom = saved.scrollTop, saved.scrollBottom
	g.CursorRow, g.CursorCol = g.saveCursor[0], g.saveCursor[1]
	g.altActive = false
	g.altSaved = nil
}

func (g *Grid) IsAlternateScreen() bool { return g.altActive }
