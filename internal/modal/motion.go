package modal

import (
	"unicode"

	"github.com/agentmux/agentmux/internal/vtgrid"
)

// isWordRune classifies runes the way vim's "word" (w/b/e) motions do:
// alnum-or-underscore is one class, other non-blank punctuation is a
// second class, and whitespace is a boundary between both.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func classOf(r rune) int {
	switch {
	case unicode.IsSpace(r):
		return 0
	case isWordRune(r):
		return 1
	default:
		return 2
	}
}

// runeAt returns the rune at (line, col) in g, or 0 past the line's text.
func runeAt(g *vtgrid.Grid, line, col int) rune {
	if line < 0 || line >= g.TotalLines() || col < 0 {
		return 0
	}
	text := []rune(g.GetLine(line).PlainText())
	if col >= len(text) {
		return 0
	}
	return text[col]
}

func lineLen(g *vtgrid.Grid, line int) int {
	if line < 0 || line >= g.TotalLines() {
		return 0
	}
	return len([]rune(g.GetLine(line).PlainText()))
}

func clampCol(g *vtgrid.Grid, line, col int) int {
	n := lineLen(g, line)
	if n == 0 {
		return 0
	}
	if col >= n {
		return n - 1
	}
	if col < 0 {
		return 0
	}
	return col
}

// MoveChar implements h/l: one column left/right, clamped to the line.
// It does not wrap to the previous/next line, matching vim's default
// (non-whichwrap) h/l.
func MoveChar(g *vtgrid.Grid, at Position, delta int) Position {
	at.Col = clampCol(g, at.Line, at.Col+delta)
	return at
}

// MoveLine implements j/k: one line up/down, preserving column where
// possible and clamping to the new line's length.
func MoveLine(g *vtgrid.Grid, at Position, delta int) Position {
	line := at.Line + delta
	if line < 0 {
		line = 0
	}
	if max := g.TotalLines() - 1; line > max {
		line = max
	}
	return Position{Line: line, Col: clampCol(g, line, at.Col)}
}

// LineStart implements 0: absolute column 0.
func LineStart(at Position) Position {
	at.Col = 0
	return at
}

// LineFirstNonBlank implements ^: the first non-whitespace column.
func LineFirstNonBlank(g *vtgrid.Grid, at Position) Position {
	text := []rune(g.GetLine(at.Line).PlainText())
	for i, r := range text {
		if !unicode.IsSpace(r) {
			at.Col = i
			return at
		}
	}
	at.Col = 0
	return at
}

// LineEnd implements $: the last non-blank column of the line.
func LineEnd(g *vtgrid.Grid, at Position) Position {
	n := lineLen(g, at.Line)
	if n == 0 {
		at.Col = 0
		return at
	}
	at.Col = n - 1
	return at
}

// FirstLine implements gg: line 0, first non-blank column.
func FirstLine(g *vtgrid.Grid) Position {
	return LineFirstNonBlank(g, Position{Line: 0, Col: 0})
}

// LastLine implements G: the final addressable line, first non-blank
// column.
func LastLine(g *vtgrid.Grid) Position {
	line := g.TotalLines() - 1
	if line < 0 {
		line = 0
	}
	return LineFirstNonBlank(g, Position{Line: line, Col: 0})
}

// WordForward implements w/W: the start of the next word. bigWord selects
// W's whitespace-delimited "WORD" instead of w's class-aware word.
func WordForward(g *vtgrid.Grid, at Position, bigWord bool) Position {
	line, col := at.Line, at.Col
	cls := func(r rune) int {
		if bigWord && r != 0 && !unicode.IsSpace(r) {
			return 1
		}
		return classOf(r)
	}
	start := cls(runeAt(g, line, col))
	for {
		col++
		if col >= lineLen(g, line) {
			if line >= g.TotalLines()-1 {
				return Position{Line: line, Col: max0(lineLen(g, line) - 1)}
			}
			line++
			col = -1 // becomes 0 on the next loop iteration's increment below
			start = 0
			if lineLen(g, line) == 0 {
				return Position{Line: line, Col: 0}
			}
			continue
		}
		r := runeAt(g, line, col)
		c := cls(r)
		if c != 0 && c != start {
			return Position{Line: line, Col: col}
		}
		if c == 0 {
			start = 0
		}
	}
}

// WordBackward implements b/B: the start of the previous word.
func WordBackward(g *vtgrid.Grid, at Position, bigWord bool) Position {
	line, col := at.Line, at.Col
	cls := func(r rune) int {
		if bigWord && r != 0 && !unicode.IsSpace(r) {
			return 1
		}
		return classOf(r)
	}
	for {
		col--
		if col < 0 {
			if line == 0 {
				return Position{Line: 0, Col: 0}
			}
			line--
			col = lineLen(g, line)
			if col == 0 {
				return Position{Line: line, Col: 0}
			}
			col--
			continue
		}
		cur := cls(runeAt(g, line, col))
		if cur == 0 {
			continue
		}
		prevCol, prevLine := col-1, line
		var prev rune
		if prevCol < 0 {
			if prevLine == 0 {
				return Position{Line: line, Col: col}
			}
			prev = 0
		} else {
			prev = runeAt(g, prevLine, prevCol)
		}
		if cls(prev) != cur || prev == 0 {
			return Position{Line: line, Col: col}
		}
	}
}

// WordEnd implements e/E: the end of the current or next word.
func WordEnd(g *vtgrid.Grid, at Position, bigWord bool) Position {
	line, col := at.Line, at.Col
	cls := func(r rune) int {
		if bigWord && r != 0 && !unicode.IsSpace(r) {
			return 1
		}
		return classOf(r)
	}
	for {
		col++
		if col >= lineLen(g, line) {
			if line >= g.TotalLines()-1 {
				return Position{Line: line, Col: max0(lineLen(g, line) - 1)}
			}
			line++
			col = 0
			continue
		}
		cur := cls(runeAt(g, line, col))
		if cur == 0 {
			continue
		}
		next := runeAt(g, line, col+1)
		if col+1 >= lineLen(g, line) || cls(next) != cur {
			return Position{Line: line, Col: col}
		}
	}
}

// FindChar implements f/F/t/T: search the current line for ch. forward
// selects f/t over F/T; before selects t/T's "stop just before" behavior.
// The bool return is false when ch does not occur.
func FindChar(g *vtgrid.Grid, at Position, ch rune, forward, before bool) (Position, bool) {
	text := []rune(g.GetLine(at.Line).PlainText())
	if forward {
		for i := at.Col + 1; i < len(text); i++ {
			if text[i] == ch {
				col := i
				if before {
					col--
				}
				return Position{Line: at.Line, Col: col}, true
			}
		}
		return at, false
	}
	for i := at.Col - 1; i >= 0; i-- {
		if text[i] == ch {
			col := i
			if before {
				col++
			}
			return Position{Line: at.Line, Col: col}, true
		}
	}
	return at, false
}

// PageMotion implements Ctrl-f/Ctrl-b/Ctrl-d/Ctrl-u: scroll by a full or
// half viewport height.
func PageMotion(g *vtgrid.Grid, at Position, rows int, half bool, forward bool) Position {
	delta := rows
	if half {
		delta = rows / 2
	}
	if !forward {
		delta = -delta
	}
	return MoveLine(g, at, delta)
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
