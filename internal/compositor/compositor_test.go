package compositor

import (
	"strings"
	"testing"

	"github.com/agentmux/agentmux/internal/layout"
	"github.com/agentmux/agentmux/internal/overlay"
	"github.com/agentmux/agentmux/internal/vtgrid"
)

func newPane(id string, rows, cols int, text string) *Pane {
	g := vtgrid.NewGrid(rows, cols, 1000)
	p := vtgrid.NewParser(g)
	p.Write([]byte(text))
	return &Pane{ID: id, Label: id, Grid: g}
}

func TestRenderWrapsInSyncUpdate(t *testing.T) {
	tr := layout.NewTree("A", layout.Bounds{X: 0, Y: 0, W: 40, H: 10})
	f := Frame{
		Tree:     tr,
		Panes:    map[string]*Pane{"A": newPane("A", 8, 38, "hello")},
		Focused:  "A",
		ModeName: "NORMAL",
		Overlays: &overlay.Stack{},
		Width:    40, Height: 10,
	}
	out := Render(f)
	if !strings.HasPrefix(out, syncBegin+"\x1b[H") {
		t.Fatalf("frame does not start with sync-update begin + home: %q", out[:20])
	}
	if !strings.HasSuffix(out, syncEnd) {
		t.Fatalf("frame does not end with sync-update end")
	}
}

func TestRenderShowsStatusBarWhenNoOverlay(t *testing.T) {
	tr := layout.NewTree("A", layout.Bounds{X: 0, Y: 0, W: 40, H: 10})
	f := Frame{
		Tree:     tr,
		Panes:    map[string]*Pane{"A": newPane("A", 8, 38, "x")},
		Focused:  "A",
		ModeName: "VISUAL",
		Overlays: &overlay.Stack{},
		Width:    40, Height: 10,
	}
	out := Render(f)
	if !strings.Contains(out, "VISUAL") {
		t.Fatal("expected status bar to render the current mode name")
	}
}

// TestStatusBarShowsFullRangeForShortContent reproduces spec.md §8
// scenario 1: a two-line pane ("hello"/"world") in a pane tall enough to
// show both lines should report "[1-2/2] Bot", not a collapsed
// single-line range.
func TestStatusBarShowsFullRangeForShortContent(t *testing.T) {
	// A PTY is resized to its pane's inner bounds in production (spec.md
	// §6), so its grid's row count always matches innerH; mirror that
	// here rather than over-provisioning the grid.
	tr := layout.NewTree("A", layout.Bounds{X: 0, Y: 0, W: 80, H: 4})
	f := Frame{
		Tree:     tr,
		Panes:    map[string]*Pane{"A": newPane("A", 2, 78, "hello\r\nworld")},
		Focused:  "A",
		ModeName: "NORMAL",
		Overlays: &overlay.Stack{},
		Width:    80, Height: 4,
	}
	out := Render(f)
	if !strings.Contains(out, "[1-2/2] Bot") {
		t.Fatalf("expected status bar to contain %q, got frame:\n%s", "[1-2/2] Bot", out)
	}
}

func TestRenderPrefersOverlayOverStatusBar(t *testing.T) {
	tr := layout.NewTree("A", layout.Bounds{X: 0, Y: 0, W: 40, H: 10})
	stack := &overlay.Stack{}
	stack.Push(overlay.NewConfirm("close pane?"))
	f := Frame{
		Tree:     tr,
		Panes:    map[string]*Pane{"A": newPane("A", 8, 38, "x")},
		Focused:  "A",
		ModeName: "NORMAL",
		Overlays: stack,
		Width:    40, Height: 10,
	}
	out := Render(f)
	if !strings.Contains(out, "close pane?") {
		t.Fatal("expected the confirm overlay's prompt to be composited into the frame")
	}
}

func TestPaneVisibleTopFollowsTailByDefault(t *testing.T) {
	p := newPane("A", 3, 20, "")
	if p.VisibleTop(3) != 0 {
		t.Fatalf("VisibleTop = %d, want 0 for a pane shorter than the viewport", p.VisibleTop(3))
	}
	if !p.AtBottom() {
		t.Fatal("a pane with ScrollOffset 0 should report AtBottom")
	}
}
