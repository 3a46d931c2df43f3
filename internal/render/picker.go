package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PickerItem is one selectable row in an overlay picker (e.g. the new-pane
// agent launcher, listing claude/codex/gemini, or a command palette entry).
type PickerItem struct {
	Key   string
	Label string
	Desc  string
}

// RenderPicker draws a bordered, titled list of PickerItems with the row at
// cursor highlighted.
func RenderPicker(items []PickerItem, cursor int, width, height int, title string) string {
	picker_style := lipgloss.NewStyle().
		Width(width - 2).
		Height(height - 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(FocusBorderColor)

	title_rendered := lipgloss.NewStyle().
		Bold(true).
		Foreground(FocusBorderColor).
		Render(fmt.Sprintf(" %s ", title))

	var lines []string
	inner_w := width - 4
	for i, it := range items {
		if i == cursor {
			key_plain := lipgloss.NewStyle().Width(3).Render(it.Key)
			label_plain := lipgloss.NewStyle().Width(14).Render(it.Label)
			line := fmt.Sprintf(" %s %s %s", key_plain, label_plain, it.Desc)
			line = lipgloss.NewStyle().
				Background(SelectedBgColor).
				Foreground(lipgloss.Color("255")).
				Bold(true).
				Width(inner_w).
				Render(line)
			lines = append(lines, line)
			continue
		}

		key_rendered := lipgloss.NewStyle().
			Bold(true).
			Foreground(FocusBorderColor).
			Width(3).
			Render(it.Key)
		label_rendered := lipgloss.NewStyle().Width(14).Render(it.Label)
		desc_rendered := lipgloss.NewStyle().Foreground(DimTextColor).Render(it.Desc)

		lines = append(lines, fmt.Sprintf(" %s %s %s", key_rendered, label_rendered, desc_rendered))
	}

	content := strings.Join(lines, "\n")
	styled := picker_style.Render(content)
	return InjectTitle(styled, title_rendered)
}
