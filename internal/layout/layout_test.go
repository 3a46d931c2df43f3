package layout

import "testing"

func full() Bounds { return Bounds{X: 0, Y: 0, W: 80, H: 23} }

func TestSplitCloseRoundTrip(t *testing.T) {
	tr := NewTree("A", full())
	if err := tr.Split(Right, "B"); err != nil {
		t.Fatalf("Split: %v", err)
	}
	if tr.FocusedPaneID() != "B" {
		t.Fatalf("focused = %s, want B", tr.FocusedPaneID())
	}
	leaves := tr.Leaves()
	if len(leaves) != 2 {
		t.Fatalf("leaves = %d, want 2", len(leaves))
	}
	var a, b Leaf
	for _, l := range leaves {
		if l.ID == "A" {
			a = l
		} else {
			b = l
		}
	}
	if a.Bounds.X != 0 || a.Bounds.W != 40 {
		t.Fatalf("A bounds = %+v, want x=0 w=40", a.Bounds)
	}
	if b.Bounds.X != 40 || b.Bounds.W != 40 {
		t.Fatalf("B bounds = %+v, want x=40 w=40", b.Bounds)
	}

	if !tr.CloseFocused() {
		t.Fatal("CloseFocused reported empty tree, want A to survive")
	}
	leaves = tr.Leaves()
	if len(leaves) != 1 || leaves[0].ID != "A" {
		t.Fatalf("leaves after close = %+v, want [A]", leaves)
	}
	if leaves[0].Bounds != full() {
		t.Fatalf("A bounds after close = %+v, want full screen", leaves[0].Bounds)
	}
}

// TestCloseFocusedPicksInOrderPredecessor builds A|B|C (three leaves,
// in-order A, B, C), closes the middle one, and expects focus to land on
// A (the in-order predecessor) rather than an arbitrary survivor.
func TestCloseFocusedPicksInOrderPredecessor(t *testing.T) {
	tr := NewTree("A", full())
	if err := tr.Split(Right, "B"); err != nil {
		t.Fatalf("Split B: %v", err)
	}
	if err := tr.Split(Right, "C"); err != nil {
		t.Fatalf("Split C: %v", err)
	}
	leaves := tr.Leaves()
	if len(leaves) != 3 {
		t.Fatalf("leaves = %d, want 3", len(leaves))
	}

	// Focus B (the in-order middle leaf) before closing it.
	for tr.FocusedPaneID() != "B" {
		tr.CycleFocus(true)
	}
	if !tr.CloseFocused() {
		t.Fatal("CloseFocused reported empty tree, want A and C to survive")
	}
	if got := tr.FocusedPaneID(); got != "A" {
		t.Fatalf("focused after closing B = %s, want A (in-order predecessor)", got)
	}

	leaves = tr.Leaves()
	if len(leaves) != 2 {
		t.Fatalf("leaves after close = %d, want 2", len(leaves))
	}
}

// TestCloseFocusedFallsBackToSuccessor closes the first leaf in-order,
// which has no predecessor, and expects focus to fall forward to the
// next surviving leaf instead.
func TestCloseFocusedFallsBackToSuccessor(t *testing.T) {
	tr := NewTree("A", full())
	if err := tr.Split(Right, "B"); err != nil {
		t.Fatalf("Split B: %v", err)
	}
	if err := tr.Split(Right, "C"); err != nil {
		t.Fatalf("Split C: %v", err)
	}

	for tr.FocusedPaneID() != "A" {
		tr.CycleFocus(true)
	}
	if !tr.CloseFocused() {
		t.Fatal("CloseFocused reported empty tree, want B and C to survive")
	}
	if got := tr.FocusedPaneID(); got != "B" {
		t.Fatalf("focused after closing A = %s, want B (in-order successor)", got)
	}
}

func TestCloseLastPaneEmptiesTree(t *testing.T) {
	tr := NewTree("A", full())
	if tr.CloseFocused() {
		t.Fatal("CloseFocused on the only leaf should report empty tree")
	}
	if !tr.IsEmpty() {
		t.Fatal("tree should be empty")
	}
}

func TestLeafBoundsTileWithoutGapsOrOverlaps(t *testing.T) {
	tr := NewTree("A", full())
	tr.Split(Right, "B")
	tr.Split(Down, "C") // splits B (the focused leaf)

	leaves := tr.Leaves()
	area := 0
	for _, l := range leaves {
		if l.Bounds.W < minCols || l.Bounds.H < minRows {
			t.Fatalf("leaf %s too small: %+v", l.ID, l.Bounds)
		}
		area += l.Bounds.W * l.Bounds.H
	}
	want := full().W * full().H
	if area != want {
		t.Fatalf("total leaf area = %d, want %d (no gaps/overlaps)", area, want)
	}
}

func TestCycleFocusReturnsToStart(t *testing.T) {
	tr := NewTree("A", full())
	tr.Split(Right, "B")
	tr.Split(Down, "C")
	n := len(tr.Leaves())
	start := tr.FocusedPaneID()
	for i := 0; i < n; i++ {
		tr.CycleFocus(true)
	}
	if tr.FocusedPaneID() != start {
		t.Fatalf("after %d cycles, focused = %s, want back to %s", n, tr.FocusedPaneID(), start)
	}
}

func TestFocusDirectionIdempotentAtEdge(t *testing.T) {
	tr := NewTree("A", full())
	tr.Split(Right, "B")
	// A is the leftmost pane; focusing left again should not move.
	tr.focused = "A"
	tr.FocusDirection(Left)
	if tr.FocusedPaneID() != "A" {
		t.Fatalf("focused = %s, want A (no leftward neighbor)", tr.FocusedPaneID())
	}
}

func TestFocusDirectionFindsNeighbor(t *testing.T) {
	tr := NewTree("A", full())
	tr.Split(Right, "B")
	tr.focused = "A"
	tr.FocusDirection(Right)
	if tr.FocusedPaneID() != "B" {
		t.Fatalf("focused = %s, want B", tr.FocusedPaneID())
	}
}

func TestToggleZoom(t *testing.T) {
	tr := NewTree("A", full())
	tr.Split(Right, "B")
	if tr.ZoomPaneID() != "" {
		t.Fatal("expected no zoom initially")
	}
	tr.ToggleZoom()
	if tr.ZoomPaneID() != "B" {
		t.Fatalf("ZoomPaneID = %s, want B", tr.ZoomPaneID())
	}
	tr.ToggleZoom()
	if tr.ZoomPaneID() != "" {
		t.Fatal("expected zoom cleared on toggle-off")
	}
}

func TestEqualizeResetsRatios(t *testing.T) {
	tr := NewTree("A", full())
	tr.Split(Right, "B")
	tr.ResizeFocused(true, 0.4) // B is focused; push the vertical split far
	tr.Equalize()
	leaves := tr.Leaves()
	for _, l := range leaves {
		if l.ID == "A" && l.Bounds.W != 40 {
			t.Fatalf("A width after equalize = %d, want 40", l.Bounds.W)
		}
	}
}

func TestResizeFocusedClampsToMinRatio(t *testing.T) {
	tr := NewTree("A", full())
	tr.Split(Right, "B")
	for i := 0; i < 50; i++ {
		tr.ResizeFocused(true, -0.1) // push A's width down repeatedly
	}
	leaves := tr.Leaves()
	for _, l := range leaves {
		if l.Bounds.W < minCols {
			t.Fatalf("leaf %s width = %d, below minCols", l.ID, l.Bounds.W)
		}
	}
}

func TestSplitOnNonexistentFocusErrors(t *testing.T) {
	tr := NewTree("A", full())
	tr.focused = "ghost"
	if err := tr.Split(Right, "B"); err == nil {
		t.Fatal("expected error splitting on a missing focused leaf")
	}
}
