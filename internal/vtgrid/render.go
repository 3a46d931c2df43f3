package vtgrid

import (
	"strconv"
	"strings"
)

// RenderLine renders absolute line i as a string carrying SGR escapes,
// emitting a reset only when the effective attribute set changes between
// adjacent cells, and a trailing reset iff any non-default style was used.
func (g *Grid) RenderLine(i int) string {
	line := g.GetLine(i)
	return renderLine(line)
}

func renderLine(line Line) string {
	// Trim trailing default-style blanks: they carry no information.
	last := -1
	for idx, c := range line.Cells {
		if !c.IsBlank() {
			last = idx
		}
	}
	if last < 0 {
		return ""
	}

	var b strings.Builder
	cur := DefaultStyle
	wroteStyled := false
	for idx := 0; idx <= last; idx++ {
		c := line.Cells[idx]
		if c.Width == 0 {
			continue // continuation cell of a wide rune
		}
		if c.Style != cur {
			b.WriteString(sgrFor(c.Style))
			cur = c.Style
			if !c.Style.IsDefault() {
				wroteStyled = true
			}
		}
		if c.Ch == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteRune(c.Ch)
		}
	}
	if wroteStyled {
		b.WriteString("\x1b[0m")
	}
	return b.String()
}

// sgrFor renders the minimal CSI ... m sequence that sets style exactly.
// It always resets first (0) then reapplies, which is simpler and just as
// minimal in byte count for the common case of a handful of attributes.
func sgrFor(s Style) string {
	if s.IsDefault() {
		return "\x1b[0m"
	}
	codes := []string{"0"}
	if s.Flags&FlagBold != 0 {
		codes = append(codes, "1")
	}
	if s.Flags&FlagDim != 0 {
		codes = append(codes, "2")
	}
	if s.Flags&FlagItalic != 0 {
		codes = append(codes, "3")
	}
	if s.Flags&FlagUnderline != 0 {
		codes = append(codes, "4")
	}
	if s.Flags&FlagBlink != 0 {
		codes = append(codes, "5")
	}
	if s.Flags&FlagInverse != 0 {
		codes = append(codes, "7")
	}
	if s.Flags&FlagInvisible != 0 {
		codes = append(codes, "8")
	}
	if s.Flags&FlagStrikethrough != 0 {
		codes = append(codes, "9")
	}
	codes = append(codes, colorCodes(s.FG, true)...)
	codes = append(codes, colorCodes(s.BG, false)...)
	return "\x1b[" + strings.Join(codes, ";") + "m"
}

func colorCodes(c Color, fg bool) []string {
	base := 30
	ext := 38
	if !fg {
		base = 40
		ext = 48
	}
	switch c.Kind {
	case ColorDefault:
		return nil
	case ColorIndexed16:
		if c.Index < 8 {
			return []string{strconv.Itoa(base + int(c.Index))}
		}
		bright := base + 60
		return []string{strconv.Itoa(bright + int(c.Index-8))}
	case ColorIndexed256:
		return []string{strconv.Itoa(ext), "5", strconv.Itoa(int(c.Index))}
	case ColorRGB:
		return []string{strconv.Itoa(ext), "2", strconv.Itoa(int(c.R)), strconv.Itoa(int(c.G)), strconv.Itoa(int(c.B))}
	}
	return nil
}

// String renders the full visible viewport as newline-joined plain text,
// useful for tests and for feeding the search scanner.
func (g *Grid) String() string {
	var b strings.Builder
	for r := 0; r < g.Rows; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(g.GetLine(len(g.scrollback) + r).PlainText())
	}
	return b.String()
}
