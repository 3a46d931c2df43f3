package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StatusBarInfo carries everything RenderStatusBar needs to draw the bottom
// line for the focused pane: mode, scroll position, an active selection (if
// any), and a live search match count.
type StatusBarInfo struct {
	Mode          string // "INSERT", "NORMAL", "VISUAL", "V-LINE"
	AgentLabel    string
	From, To      int // 1-based visible line range
	Total         int
	AtTop, AtBot  bool
	SelectionDesc string // e.g. "12 lines" or "" when no selection
	SearchDesc    string // e.g. "/needle 3/7" or "" when not searching
}

var modeColors = map[string]lipgloss.Color{
	"INSERT":  ModeInsertColor,
	"NORMAL":  ModeNormalColor,
	"VISUAL":  ModeVisualColor,
	"V-LINE":  ModeVisualColor,
	"OVERLAY": HintColor,
}

func modeColor(mode string) lipgloss.Color {
	if c, ok := modeColors[mode]; ok {
		return c
	}
	return ModeNormalColor
}

// RenderStatusBar draws the one-line status bar for the focused pane:
// " MODE  agent-label  ...  selection  search  [from-to/total] {pos} ".
func RenderStatusBar(width int, info StatusBarInfo) string {
	mode_style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Background(modeColor(info.Mode)).Padding(0, 1)
	dim_style := lipgloss.NewStyle().Foreground(DimTextColor)

	left := mode_style.Render(info.Mode)
	if info.AgentLabel != "" {
		left += "  " + dim_style.Render(info.AgentLabel)
	}
	if info.SelectionDesc != "" {
		left += "  " + lipgloss.NewStyle().Foreground(ModeVisualColor).Render(info.SelectionDesc)
	}
	if info.SearchDesc != "" {
		left += "  " + lipgloss.NewStyle().Foreground(HintColor).Render(info.SearchDesc)
	}

	right := positionIndicator(info)

	pad := width - lipgloss.Width(left) - lipgloss.Width(right) - 1
	if pad < 1 {
		pad = 1
	}

	return lipgloss.NewStyle().Width(width).Render(" " + left + strings.Repeat(" ", pad) + right)
}

// positionIndicator renders spec.md §4.D's exact label vocabulary,
// `{Top|Bot|N%}` — a pane whose whole content fits the viewport (both
// ends visible at once) still reads "Bot", since follow-tail pins
// scroll_offset at the bottom in that case (spec.md §8 scenario 1).
func positionIndicator(info StatusBarInfo) string {
	pos := "Top"
	switch {
	case info.AtBot:
		pos = "Bot"
	case !info.AtTop:
		if info.Total > 0 {
			pct := info.To * 100 / info.Total
			pos = fmt.Sprintf("%d%%", pct)
		}
	}
	return fmt.Sprintf("[%d-%d/%d] %s ", info.From, info.To, info.Total, pos)
}

var spinFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// RenderActivityBar draws a spinner line, used while an agent bridge is
// reconnecting or a long tool call is pending.
func RenderActivityBar(width int, activity string, spin_frame int) string {
	frame := spinFrames[spin_frame%len(spinFrames)]
	icon := lipgloss.NewStyle().Foreground(HintColor).Render(frame)
	text := lipgloss.NewStyle().Foreground(HintColor).Render(" " + activity)
	return lipgloss.NewStyle().Width(width).Render(" " + icon + text)
}

// RenderInputBar draws the prompt line used by overlay text input (search,
// rename, command entry).
func RenderInputBar(width int, prompt string, value string) string {
	prompt_style := lipgloss.NewStyle().Bold(true).Foreground(FocusBorderColor)
	cursor := lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(FocusBorderColor).Render(" ")
	esc_hint := lipgloss.NewStyle().Foreground(DimTextColor).Render("  (Esc to cancel)")

	content := prompt_style.Render(prompt+": ") + value + cursor + esc_hint
	return lipgloss.NewStyle().Width(width).Render(" " + content)
}
