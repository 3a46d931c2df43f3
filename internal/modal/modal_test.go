package modal

import (
	"testing"

	"github.com/agentmux/agentmux/internal/vtgrid"
)

func TestModeTransitionsClearPending(t *testing.T) {
	s := NewState()
	if s.Mode != Insert {
		t.Fatalf("initial mode = %v, want INSERT", s.Mode)
	}
	s.EnterNormal(Position{Line: 2, Col: 3})
	if s.Mode != Normal || s.NormalCursor != (Position{Line: 2, Col: 3}) {
		t.Fatalf("EnterNormal: mode=%v cursor=%+v", s.Mode, s.NormalCursor)
	}
	s.PushDigit(4)
	s.BeginOperator("y")
	s.EnterInsert()
	if s.HasCount() || s.PendingOperator != "" {
		t.Fatal("EnterInsert must clear count and pending operator")
	}
}

func TestVisualSelectionRangeNormalizes(t *testing.T) {
	s := NewState()
	s.EnterNormal(Position{Line: 0, Col: 0})
	s.EnterVisual(false, Position{Line: 3, Col: 5})
	s.VisualCursor = Position{Line: 1, Col: 2}

	start, end := s.SelectionRange()
	if start != (Position{Line: 1, Col: 2}) || end != (Position{Line: 3, Col: 5}) {
		t.Fatalf("SelectionRange = %+v..%+v, want (1,2)..(3,5)", start, end)
	}
}

func TestPseudoModeCancelRestoresPrevious(t *testing.T) {
	s := NewState()
	s.EnterNormal(Position{})
	s.EnterPseudoMode(Search)
	if s.Mode != Search {
		t.Fatalf("mode = %v, want SEARCH", s.Mode)
	}
	s.CancelPseudoMode()
	if s.Mode != Normal {
		t.Fatalf("mode after cancel = %v, want NORMAL", s.Mode)
	}
}

func TestCountDefaultsToOne(t *testing.T) {
	s := NewState()
	if s.Count() != 1 {
		t.Fatalf("Count() with no digits = %d, want 1", s.Count())
	}
	s.PushDigit(1)
	s.PushDigit(2)
	if s.Count() != 12 {
		t.Fatalf("Count() = %d, want 12", s.Count())
	}
}

func gridWithLines(lines ...string) *vtgrid.Grid {
	g := vtgrid.NewGrid(len(lines), 40, 0)
	p := vtgrid.NewParser(g)
	for i, l := range lines {
		p.Write([]byte(l))
		if i != len(lines)-1 {
			p.Write([]byte("\r\n"))
		}
	}
	return g
}

func TestWordForwardSkipsPunctuationAndSpace(t *testing.T) {
	g := gridWithLines("foo.bar  baz")
	pos := WordForward(g, Position{Line: 0, Col: 0}, false)
	if pos.Col != 3 {
		t.Fatalf("w from col 0 = %d, want 3 (at '.')", pos.Col)
	}
	pos = WordForward(g, pos, false)
	if pos.Col != 4 {
		t.Fatalf("w from col 3 = %d, want 4 (at 'bar')", pos.Col)
	}
}

func TestBigWordForwardTreatsPunctuationAsWord(t *testing.T) {
	g := gridWithLines("foo.bar  baz")
	pos := WordForward(g, Position{Line: 0, Col: 0}, true)
	if pos.Col != 9 {
		t.Fatalf("W from col 0 = %d, want 9 (at 'baz')", pos.Col)
	}
}

func TestLineStartEndFirstNonBlank(t *testing.T) {
	g := gridWithLines("   hi")
	p := LineFirstNonBlank(g, Position{Line: 0, Col: 4})
	if p.Col != 3 {
		t.Fatalf("^ col = %d, want 3", p.Col)
	}
	p = LineEnd(g, Position{Line: 0, Col: 0})
	if p.Col != 4 {
		t.Fatalf("$ col = %d, want 4", p.Col)
	}
}

func TestFindCharForwardAndBefore(t *testing.T) {
	g := gridWithLines("abcXdefXg")
	pos, ok := FindChar(g, Position{Line: 0, Col: 0}, 'X', true, false)
	if !ok || pos.Col != 3 {
		t.Fatalf("f X = %+v, ok=%v, want col 3", pos, ok)
	}
	pos, ok = FindChar(g, Position{Line: 0, Col: 0}, 'X', true, true)
	if !ok || pos.Col != 2 {
		t.Fatalf("t X = %+v, ok=%v, want col 2", pos, ok)
	}
}

func TestApplyMotionWithPendingOperatorReturnsRange(t *testing.T) {
	g := gridWithLines("hello world")
	s := NewState()
	s.EnterNormal(Position{Line: 0, Col: 0})
	s.BeginOperator("y")
	// y$-style: land the motion on the last column of "hello" (inclusive
	// charwise ranges include the landing column, per vim's f/t/$ family).
	res := s.ApplyMotion(Position{Line: 0, Col: 4})
	if res == nil || res.Operator != "y" {
		t.Fatalf("ApplyMotion result = %+v, want yank op", res)
	}
	if s.PendingOperator != "" {
		t.Fatal("pending operator must be cleared after motion consumes it")
	}
	text := ExtractText(g, *res)
	if text != "hello" {
		t.Fatalf("extracted text = %q, want %q", text, "hello")
	}
}

func TestApplyLineOperatorYanksWholeLine(t *testing.T) {
	g := gridWithLines("first", "second", "third")
	s := NewState()
	s.EnterNormal(Position{Line: 1, Col: 2})
	s.BeginOperator("y")
	res := s.ApplyLineOperator("y")
	text := ExtractText(g, *res)
	if text != "second\n" {
		t.Fatalf("yy text = %q, want %q", text, "second\n")
	}
}
