package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// OverlayScrollbar draws a thumb on a rendered panel's right border when its
// content overflows the visible height. total is content lines, visible is
// the panel's inner height, offset is the current scroll position.
func OverlayScrollbar(rendered string, total, visible, offset int, focused bool) string {
	track_h := visible
	if total <= track_h || track_h <= 0 {
		return rendered
	}

	thumb_h := track_h * track_h / total
	if thumb_h < 1 {
		thumb_h = 1
	}
	max_offset := total - track_h
	if offset > max_offset {
		offset = max_offset
	}
	if offset < 0 {
		offset = 0
	}
	thumb_pos := 0
	if max_offset > 0 {
		thumb_pos = offset * (track_h - thumb_h) / max_offset
	}

	thumb_color := BorderColor
	if focused {
		thumb_color = FocusBorderColor
	}
	thumb_style := lipgloss.NewStyle().Foreground(thumb_color)

	lines := strings.Split(rendered, "\n")
	for i := 0; i < track_h && (i+1) < len(lines)-1; i++ {
		line := lines[i+1]

		var indicator string
		if i >= thumb_pos && i < thumb_pos+thumb_h {
			indicator = thumb_style.Render("█")
		} else {
			indicator = thumb_style.Render("│")
		}

		last_border := strings.LastIndex(line, "│")
		if last_border >= 0 {
			lines[i+1] = line[:last_border] + indicator + line[last_border+len("│"):]
		}
	}

	return strings.Join(lines, "\n")
}
