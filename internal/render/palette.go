// Package render draws pane borders, the status bar, overlays, and the
// compositor's scroll/selection chrome — everything that isn't a plain
// dump of a vtgrid.Grid onto the terminal.
package render

import "github.com/charmbracelet/lipgloss"

// Palette — one consistent set of colors for every panel, overlay and bar.
var (
	BorderColor      = lipgloss.Color("240")
	FocusBorderColor = lipgloss.Color("34")
	DimTextColor     = lipgloss.Color("250")
	HighlightColor   = lipgloss.Color("34")
	SelectedBgColor  = lipgloss.Color("25")
	ModeInsertColor  = lipgloss.Color("34")
	ModeNormalColor  = lipgloss.Color("33")
	ModeVisualColor  = lipgloss.Color("214")
	ErrorColor       = lipgloss.Color("160")
	HintColor        = lipgloss.Color("214")
)

// PanelStyle returns the bordered box style for a pane, focused or not.
func PanelStyle(width, height int, focused bool) lipgloss.Style {
	border_color := BorderColor
	if focused {
		border_color = FocusBorderColor
	}
	return lipgloss.NewStyle().
		Width(width - 2).
		Height(height - 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border_color)
}

// TitleStyle renders a pane's border title, bold+bright when focused.
func TitleStyle(focused bool) lipgloss.Style {
	if focused {
		return lipgloss.NewStyle().Bold(true).Foreground(FocusBorderColor)
	}
	return lipgloss.NewStyle().Foreground(DimTextColor)
}

// VisibleWindow returns the [start, end) slice of a total-length list that
// fits within max_lines while keeping cursor visible.
func VisibleWindow(total, cursor, max_lines int) (int, int) {
	if total <= max_lines {
		return 0, total
	}
	start := 0
	if cursor >= max_lines {
		start = cursor - max_lines + 1
	}
	end := start + max_lines
	if end > total {
		end = total
		start = end - max_lines
	}
	if start < 0 {
		start = 0
	}
	return start, end
}
