// Package layout implements the binary split tree (spec.md §3, §4.C):
// split/close/focus/resize/zoom over panes identified by id, generalizing
// the teacher's fixed four-panel percentage split
// (worktree-dash/internal/ui/layout.go's Layout.Resize) into an arbitrary
// binary tree of horizontal/vertical splits with per-split ratios.
package layout

import "fmt"

type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

// minCols/minRows are the minimum dimensions a leaf must retain, which
// bounds how far a split's ratio can be pushed (spec.md §3's invariant 3).
const (
	minCols = 4
	minRows = 2
)

// Bounds is a pane's rectangle in terminal cell coordinates.
type Bounds struct {
	X, Y, W, H int
}

// node is a LayoutNode: either a leaf carrying a pane id, or a split with
// exactly two children.
type node struct {
	// leaf fields
	isLeaf bool
	paneID string

	// split fields
	orientation Orientation
	ratio       float64
	left, right *node

	bounds Bounds
}

func newLeaf(paneID string) *node { return &node{isLeaf: true, paneID: paneID} }

// Tree is the layout tree for one session: a root LayoutNode plus the
// designated focused/zoomed pane ids (spec.md §3).
type Tree struct {
	root    *node
	focused string
	zoomed  string
}

// NewTree creates a layout with a single leaf pane filling bounds.
func NewTree(paneID string, bounds Bounds) *Tree {
	t := &Tree{root: newLeaf(paneID), focused: paneID}
	t.root.bounds = bounds
	return t
}

// FocusedPaneID returns the currently focused leaf's pane id.
func (t *Tree) FocusedPaneID() string { return t.focused }

// ZoomPaneID returns the zoomed pane id, or "" if no pane is zoomed.
func (t *Tree) ZoomPaneID() string { return t.zoomed }

// ToggleZoom sets the zoom pane to the focused pane, or clears it if
// already zoomed on that pane (spec.md §4.C).
func (t *Tree) ToggleZoom() {
	if t.zoomed == t.focused {
		t.zoomed = ""
		return
	}
	t.zoomed = t.focused
}

func (t *Tree) findLeaf(paneID string) *node {
	return findLeaf(t.root, paneID)
}

func findLeaf(n *node, paneID string) *node {
	if n == nil {
		return nil
	}
	if n.isLeaf {
		if n.paneID == paneID {
			return n
		}
		return nil
	}
	if found := findLeaf(n.left, paneID); found != nil {
		return found
	}
	return findLeaf(n.right, paneID)
}

func findParent(n, child *node) (*node, bool) {
	if n == nil || n.isLeaf {
		return nil, false
	}
	if n.left == child || n.right == child {
		return n, true
	}
	if p, ok := findParent(n.left, child); ok {
		return p, true
	}
	return findParent(n.right, child)
}

// Orientation for a split direction: left/right splits are vertical
// (side-by-side columns), up/down splits are horizontal (stacked rows).
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

func orientationFor(d Direction) Orientation {
	if d == Up || d == Down {
		return Horizontal
	}
	return Vertical
}

// Split replaces the focused leaf with a split whose two children are the
// original leaf and a new leaf for newPaneID; focus moves to the new leaf
// (spec.md §4.C).
func (t *Tree) Split(d Direction, newPaneID string) error {
	target := t.findLeaf(t.focused)
	if target == nil {
		return fmt.Errorf("layout: no focused leaf %q", t.focused)
	}
	orig := newLeaf(target.paneID)
	fresh := newLeaf(newPaneID)

	target.isLeaf = false
	target.paneID = ""
	target.orientation = orientationFor(d)
	target.ratio = 0.5

	if d == Left || d == Up {
		target.left, target.right = fresh, orig
	} else {
		target.left, target.right = orig, fresh
	}

	t.focused = newPaneID
	t.recompute()
	return nil
}

// CloseFocused removes the focused leaf; its sibling replaces the parent
// split. Focus moves to the nearest surviving leaf in in-order traversal.
// Returns true if the tree still has at least one leaf after the close.
func (t *Tree) CloseFocused() bool {
	target := t.findLeaf(t.focused)
	if target == nil {
		return !t.IsEmpty()
	}
	if t.root == target {
		t.root = nil
		t.focused = ""
		t.zoomed = ""
		return false
	}

	parent, ok := findParent(t.root, target)
	if !ok {
		return !t.IsEmpty()
	}

	// Capture the in-order position of the closing leaf before the tree
	// changes shape, so focus can land on its nearest surviving neighbor
	// (the leaf before it, or failing that the leaf after it) rather than
	// an arbitrary one.
	before := t.Leaves()
	closingIdx := -1
	for i, l := range before {
		if l.ID == target.paneID {
			closingIdx = i
			break
		}
	}

	var sibling *node
	if parent.left == target {
		sibling = parent.right
	} else {
		sibling = parent.left
	}

	grandparent, hasGrandparent := findParent(t.root, parent)
	sibling.bounds = parent.bounds
	if hasGrandparent {
		if grandparent.left == parent {
			grandparent.left = sibling
		} else {
			grandparent.right = sibling
		}
	} else {
		t.root = sibling
	}

	leaves := t.Leaves()
	if len(leaves) > 0 {
		t.focused = nearestSurvivor(before, closingIdx, leaves)
	} else {
		t.focused = ""
	}
	if t.zoomed == target.paneID {
		t.zoomed = ""
	}
	t.recompute()
	return len(leaves) > 0
}

// nearestSurvivor picks the surviving leaf adjacent to the one that just
// closed, preferring its in-order predecessor and falling back to its
// successor, per spec.md §4.C.
func nearestSurvivor(before []Leaf, closingIdx int, after []Leaf) string {
	survivors := make(map[string]bool, len(after))
	for _, l := range after {
		survivors[l.ID] = true
	}
	if closingIdx >= 0 {
		for i := closingIdx - 1; i >= 0; i-- {
			if survivors[before[i].ID] {
				return before[i].ID
			}
		}
		for i := closingIdx + 1; i < len(before); i++ {
			if survivors[before[i].ID] {
				return before[i].ID
			}
		}
	}
	return after[0].ID
}

// IsEmpty reports whether the tree has no root (the last pane was closed).
func (t *Tree) IsEmpty() bool { return t.root == nil }

// Leaf is a leaf's public view: pane id and current bounds.
type Leaf struct {
	ID     string
	Bounds Bounds
}

// Leaves returns every leaf in in-order (left, self, right) traversal,
// which is the order cycle_focus and close_focused's "nearest surviving
// leaf" rule use (spec.md §4.C).
func (t *Tree) Leaves() []Leaf {
	var out []Leaf
	collectLeaves(t.root, &out)
	return out
}

func collectLeaves(n *node, out *[]Leaf) {
	if n == nil {
		return
	}
	if n.isLeaf {
		*out = append(*out, Leaf{ID: n.paneID, Bounds: n.bounds})
		return
	}
	collectLeaves(n.left, out)
	collectLeaves(n.right, out)
}

// CycleFocus moves focus to the next (forward=true) or previous leaf in
// in-order traversal, wrapping around.
func (t *Tree) CycleFocus(forward bool) {
	leaves := t.Leaves()
	if len(leaves) < 2 {
		return
	}
	idx := 0
	for i, l := range leaves {
		if l.ID == t.focused {
			idx = i
			break
		}
	}
	if forward {
		idx = (idx + 1) % len(leaves)
	} else {
		idx = (idx - 1 + len(leaves)) % len(leaves)
	}
	t.focused = leaves[idx].ID
}

// FocusDirection moves focus to the leaf whose bounds' edge facing d is
// nearest to the current pane's opposite edge, ties broken by the closest
// center on the perpendicular axis (spec.md §4.C). A no-op at the edge
// (testable property in spec.md §8).
func (t *Tree) FocusDirection(d Direction) {
	cur := t.findLeaf(t.focused)
	if cur == nil {
		return
	}
	leaves := t.Leaves()
	var best *Leaf
	var bestDist, bestPerp int
	for i := range leaves {
		l := &leaves[i]
		if l.ID == t.focused {
			continue
		}
		dist, perp, ok := candidateScore(cur.bounds, l.Bounds, d)
		if !ok {
			continue
		}
		if best == nil || dist < bestDist || (dist == bestDist && perp < bestPerp) {
			best, bestDist, bestPerp = l, dist, perp
		}
	}
	if best != nil {
		t.focused = best.ID
	}
}

// candidateScore reports whether candidate lies in direction d from cur,
// and if so, the edge-to-edge distance and perpendicular center offset
// used to rank candidates.
func candidateScore(cur, cand Bounds, d Direction) (dist, perp int, ok bool) {
	switch d {
	case Left:
		if cand.X+cand.W > cur.X {
			return 0, 0, false
		}
		return cur.X - (cand.X + cand.W), absInt(centerY(cur) - centerY(cand)), true
	case Right:
		if cand.X < cur.X+cur.W {
			return 0, 0, false
		}
		return cand.X - (cur.X + cur.W), absInt(centerY(cur) - centerY(cand)), true
	case Up:
		if cand.Y+cand.H > cur.Y {
			return 0, 0, false
		}
		return cur.Y - (cand.Y + cand.H), absInt(centerX(cur) - centerX(cand)), true
	case Down:
		if cand.Y < cur.Y+cur.H {
			return 0, 0, false
		}
		return cand.Y - (cur.Y + cur.H), absInt(centerX(cur) - centerX(cand)), true
	}
	return 0, 0, false
}

func centerX(b Bounds) int { return b.X + b.W/2 }
func centerY(b Bounds) int { return b.Y + b.H/2 }
func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// minRatioFor returns the ratio bound that guarantees each child at least
// minCols columns (vertical splits) or minRows rows (horizontal splits),
// for a split node of total size total.
func minRatioFor(o Orientation, total int) float64 {
	min := minRows
	if o == Vertical {
		min = minCols
	}
	if total <= 0 {
		return 0
	}
	r := float64(min) / float64(total)
	if r > 0.45 {
		r = 0.45
	}
	return r
}

// ResizeFocused finds the nearest ancestor split whose orientation
// matches the resize axis and adjusts its ratio by delta, clamped by
// min_ratio (spec.md §4.C). horizontalAxis selects which splits are
// eligible: true resizes vertical (left/right) splits, false resizes
// horizontal (up/down) splits.
func (t *Tree) ResizeFocused(horizontalAxis bool, delta float64) {
	target := t.findLeaf(t.focused)
	if target == nil {
		return
	}
	wantOrientation := Vertical
	if !horizontalAxis {
		wantOrientation = Horizontal
	}
	anc := nearestAncestorSplit(t.root, target, wantOrientation)
	if anc == nil {
		return
	}
	total := anc.bounds.W
	if anc.orientation == Horizontal {
		total = anc.bounds.H
	}
	min := minRatioFor(anc.orientation, total)
	anc.ratio = clampFloat(anc.ratio+delta, min, 1-min)
	t.recompute()
}

func nearestAncestorSplit(root, target *node, orientation Orientation) *node {
	path := pathTo(root, target, nil)
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].orientation == orientation && !path[i].isLeaf {
			return path[i]
		}
	}
	return nil
}

func pathTo(n, target *node, acc []*node) []*node {
	if n == nil {
		return nil
	}
	acc = append(acc, n)
	if n == target {
		return acc
	}
	if n.isLeaf {
		return nil
	}
	if p := pathTo(n.left, target, acc); p != nil {
		return p
	}
	return pathTo(n.right, target, acc)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Equalize sets every split's ratio to 0.5 (spec.md §4.C).
func (t *Tree) Equalize() {
	equalize(t.root)
	t.recompute()
}

func equalize(n *node) {
	if n == nil || n.isLeaf {
		return
	}
	n.ratio = 0.5
	equalize(n.left)
	equalize(n.right)
}

// recompute recomputes every leaf's bounds from the root outward
// (spec.md §4.C: "After every mutation the tree recomputes each leaf's
// bounds").
func (t *Tree) recompute() {
	if t.root != nil {
		layoutNode(t.root, t.root.bounds)
	}
}

// Resize changes the overall layout bounds (e.g. on SIGWINCH) and
// recomputes every leaf.
func (t *Tree) Resize(bounds Bounds) {
	if t.root == nil {
		return
	}
	t.root.bounds = bounds
	t.recompute()
}

func layoutNode(n *node, b Bounds) {
	n.bounds = b
	if n.isLeaf {
		return
	}
	if n.orientation == Vertical {
		leftW := int(float64(b.W) * n.ratio)
		layoutNode(n.left, Bounds{X: b.X, Y: b.Y, W: leftW, H: b.H})
		layoutNode(n.right, Bounds{X: b.X + leftW, Y: b.Y, W: b.W - leftW, H: b.H})
	} else {
		topH := int(float64(b.H) * n.ratio)
		layoutNode(n.left, Bounds{X: b.X, Y: b.Y, W: b.W, H: topH})
		layoutNode(n.right, Bounds{X: b.X, Y: b.Y + topH, W: b.W, H: b.H - topH})
	}
}
