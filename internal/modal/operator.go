package modal

import "github.com/agentmux/agentmux/internal/vtgrid"

// OperatorResult is returned by ApplyMotion when a pending operator (a
// yank) has just been satisfied by a motion, giving the caller the text
// range to hand to registers.Set.Yank.
type OperatorResult struct {
	Operator string
	Start    Position
	End      Position
	Kind     int // registers.Char or registers.Line, left untyped here to
	// avoid an import cycle between modal and registers; the inputrouter
	// glue converts.
}

const (
	KindChar = 0
	KindLine = 1
)

// BeginOperator stashes op ("y" is the only yank operator spec.md §4.E
// names) as pending, awaiting its motion. "yy"/"dd"-style doubled letters
// are detected by the caller before calling this (same letter while
// already pending means "whole line").
func (s *State) BeginOperator(op string) {
	s.PendingOperator = op
}

// ApplyMotion moves the cursor appropriate to the current mode (NORMAL's
// virtual cursor, or VISUAL/V-LINE's selection cursor) to pos. If an
// operator was pending in NORMAL mode, it is consumed here and an
// OperatorResult describing the affected range is returned; the caller
// performs the actual yank and returns the state to NORMAL.
func (s *State) ApplyMotion(pos Position) *OperatorResult {
	switch s.Mode {
	case Visual, VLine:
		s.VisualCursor = pos
		return nil
	case Normal:
		if s.PendingOperator == "" {
			s.NormalCursor = pos
			return nil
		}
		start, end := s.NormalCursor, pos
		if positionLess(end, start) {
			start, end = end, start
		}
		op := s.PendingOperator
		s.PendingOperator = ""
		s.NormalCursor = start
		s.ResetCount()
		return &OperatorResult{Operator: op, Start: start, End: end, Kind: KindChar}
	default:
		return nil
	}
}

// ApplyLineOperator handles "yy": the operator applies to the whole
// current line without waiting for a motion.
func (s *State) ApplyLineOperator(op string) *OperatorResult {
	s.PendingOperator = ""
	s.ResetCount()
	line := s.NormalCursor.Line
	return &OperatorResult{
		Operator: op,
		Start:    Position{Line: line, Col: 0},
		End:      Position{Line: line, Col: 0},
		Kind:     KindLine,
	}
}

// ExtractText reads the text spec.md §4.F's yank needs out of g for the
// given range. charwise end is inclusive of the end column (vim's yank
// semantics); linewise reads whole lines from start.Line to end.Line
// inclusive.
func ExtractText(g *vtgrid.Grid, r OperatorResult) string {
	if r.Kind == KindLine {
		out := ""
		for line := r.Start.Line; line <= r.End.Line; line++ {
			out += g.GetLine(line).PlainText() + "\n"
		}
		return out
	}
	if r.Start.Line == r.End.Line {
		text := []rune(g.GetLine(r.Start.Line).PlainText())
		end := r.End.Col + 1
		if end > len(text) {
			end = len(text)
		}
		if r.Start.Col >= end {
			return ""
		}
		return string(text[r.Start.Col:end])
	}
	out := ""
	first := []rune(g.GetLine(r.Start.Line).PlainText())
	if r.Start.Col < len(first) {
		out += string(first[r.Start.Col:])
	}
	out += "\n"
	for line := r.Start.Line + 1; line < r.End.Line; line++ {
		out += g.GetLine(line).PlainText() + "\n"
	}
	last := []rune(g.GetLine(r.End.Line).PlainText())
	end := r.End.Col + 1
	if end > len(last) {
		end = len(last)
	}
	out += string(last[:end])
	return out
}
