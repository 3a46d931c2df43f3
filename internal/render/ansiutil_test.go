package render

import "testing"

func TestVisualOffsetToByteCountsAsciiByRune(t *testing.T) {
	s := "hello"
	if got := VisualOffsetToByte(s, 3); got != 3 {
		t.Fatalf("VisualOffsetToByte(%q, 3) = %d, want 3", s, got)
	}
}

func TestVisualOffsetToByteSkipsANSIEscapes(t *testing.T) {
	s := "\x1b[1mhe\x1b[0mllo"
	// Columns: h=0, e=1, l=2, l=3, o=4 (the two escapes consume no column).
	got := VisualOffsetToByte(s, 3)
	if got < 0 || s[got:] != "llo" {
		t.Fatalf("VisualOffsetToByte(%q, 3) = %d, want offset of \"llo\"", s, got)
	}
}

// TestVisualOffsetToByteCountsDoubleWidthRunes reproduces the corruption a
// one-column-per-rune count produces: a double-width CJK rune must consume
// two columns, matching lipgloss.Width's own accounting, so a splice after
// it lands on the correct byte boundary instead of one column short.
func TestVisualOffsetToByteCountsDoubleWidthRunes(t *testing.T) {
	s := "a世b" // "a" (col 0), "世" (cols 1-2, width 2), "b" (col 3)
	got := VisualOffsetToByte(s, 3)
	if got < 0 || s[got:] != "b" {
		t.Fatalf("VisualOffsetToByte(%q, 3) = %d, want offset of \"b\"", s, got)
	}
	// Splitting mid-wide-rune (column 2, the rune's second cell) should
	// fail to land on a rune boundary match and report -1 rather than
	// silently truncating the wide rune.
	if got := VisualOffsetToByte(s, 2); got != -1 {
		t.Fatalf("VisualOffsetToByte(%q, 2) = %d, want -1 (mid-rune column)", s, got)
	}
}
