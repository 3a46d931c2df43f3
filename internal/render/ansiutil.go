package render

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// InjectTitle replaces part of a rendered panel's top border with a title,
// operating on raw bytes so it never corrupts an ANSI escape sequence.
func InjectTitle(rendered, title string) string {
	lines := strings.Split(rendered, "\n")
	if len(lines) == 0 {
		return rendered
	}

	top := lines[0]
	title_w := lipgloss.Width(title)
	top_w := lipgloss.Width(top)
	if title_w+4 > top_w {
		return rendered
	}

	insert_byte := VisualOffsetToByte(top, 2)
	end_byte := VisualOffsetToByte(top, 2+title_w)
	if insert_byte < 0 || end_byte < 0 || end_byte > len(top) {
		return rendered
	}

	border_color := ExtractANSIPrefix(top)
	lines[0] = top[:insert_byte] + title + border_color + top[end_byte:]
	return strings.Join(lines, "\n")
}

// ExtractANSIPrefix returns the leading run of ANSI SGR escapes from s.
func ExtractANSIPrefix(s string) string {
	var result string
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && s[j] != 'm' {
				j++
			}
			if j < len(s) {
				result += s[i : j+1]
				i = j + 1
				continue
			}
		}
		break
	}
	return result
}

// VisualOffsetToByte finds the byte index of the target_col'th displayed
// column in s, skipping over ANSI CSI sequences that consume no width and
// counting each rune by its display width (via go-runewidth, the
// CJK/emoji-aware width table lipgloss.Width relies on; vtgrid/parser.go's
// runeWidth is a separate range heuristic) rather than one column per
// rune, so a row
// containing a double-width rune splices at the same offsets lipgloss.Width
// would report. Returns -1 if s is shorter than target_col columns.
func VisualOffsetToByte(s string, target_col int) int {
	col := 0
	i := 0
	for i < len(s) && col < target_col {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && s[j] >= 0x20 && s[j] <= 0x3f {
				j++
			}
			if j < len(s) {
				j++
			}
			i = j
			continue
		}
		r, size := decodeRune(s[i:])
		i += size
		col += runewidth.RuneWidth(r)
	}
	if col == target_col {
		return i
	}
	return -1
}

func decodeRune(s string) (rune, int) {
	return utf8.DecodeRuneInString(s)
}
