package vtgrid

import "testing"

func TestSplashBypassViewport(t *testing.T) {
	g := NewGrid(24, 80, 10000)
	p := NewParser(g)
	p.Write([]byte("hello\r\n"))
	p.Write([]byte("world\r\n"))

	if got := g.ContentHeight(); got != 2 {
		// content_height is a high-water mark over lines that actually
		// received a printed cell: the trailing "\r\n" after "world" moves
		// the cursor to a third, still-blank row, which doesn't count.
		t.Fatalf("content height = %d, want 2", got)
	}
	if got := g.GetLine(0).PlainText(); got != "hello" {
		t.Fatalf("line 0 = %q, want hello", got)
	}
	if got := g.GetLine(1).PlainText(); got != "world" {
		t.Fatalf("line 1 = %q, want world", got)
	}
}

func TestEraseDisplayAndHome(t *testing.T) {
	g := NewGrid(5, 20, 100)
	p := NewParser(g)
	p.Write([]byte("garbage on screen"))
	p.Write([]byte("\x1b[2J\x1b[Hknown phrase"))

	first := g.GetLine(len(g.scrollback)).PlainText()
	if first != "known phrase" {
		t.Fatalf("first line after ED+CUP = %q, want %q", first, "known phrase")
	}
}

func TestCursorMotions(t *testing.T) {
	g := NewGrid(10, 20, 0)
	p := NewParser(g)
	p.Write([]byte("\x1b[5;10Hx"))
	if g.CursorRow != 4 || g.CursorCol != 10 {
		t.Fatalf("cursor after CUP+print = (%d,%d), want (4,10)", g.CursorRow, g.CursorCol)
	}
	p.Write([]byte("\x1b[2A"))
	if g.CursorRow != 2 {
		t.Fatalf("cursor row after CUU 2 = %d, want 2", g.CursorRow)
	}
}

func TestScrollbackMonotonicAndCapped(t *testing.T) {
	g := NewGrid(3, 10, 5)
	p := NewParser(g)
	for i := 0; i < 20; i++ {
		p.Write([]byte("line\r\n"))
	}
	if got := g.ContentHeight(); got != 5+g.CursorRow+1 {
		t.Fatalf("content height = %d, want capped form", got)
	}
	if len(g.scrollback) != 5 {
		t.Fatalf("scrollback len = %d, want capped at 5", len(g.scrollback))
	}
}

func TestSGRMinimalReset(t *testing.T) {
	g := NewGrid(1, 20, 0)
	p := NewParser(g)
	p.Write([]byte("\x1b[1mbold\x1b[0mplain"))
	rendered := g.RenderLine(0)
	if rendered == "" {
		t.Fatal("expected non-empty render")
	}
	// A trailing reset must be present since bold was used somewhere on the line.
	if rendered[len(rendered)-4:] != "\x1b[0m" {
		t.Fatalf("expected trailing reset, got %q", rendered)
	}
}

func TestAlternateScreenNoScrollback(t *testing.T) {
	g := NewGrid(3, 10, 100)
	p := NewParser(g)
	p.Write([]byte("primary\r\n"))
	p.Write([]byte("\x1b[?1049h"))
	if !g.IsAlternateScreen() {
		t.Fatal("expected alternate screen active")
	}
	for i := 0; i < 10; i++ {
		p.Write([]byte("altline\r\n"))
	}
	if len(g.scrollback) != 0 {
		t.Fatalf("alt screen must not accumulate scrollback, got %d", len(g.scrollback))
	}
	p.Write([]byte("\x1b[?1049l"))
	if g.IsAlternateScreen() {
		t.Fatal("expected primary screen restored")
	}
	if g.GetLine(0).PlainText() != "primary" {
		t.Fatalf("primary buffer content lost after alt screen round-trip")
	}
}

func TestUnknownCSIDoesNotDesync(t *testing.T) {
	g := NewGrid(2, 20, 0)
	p := NewParser(g)
	// A bogus CSI sequence with an unsupported final byte, followed by
	// normal text: the parser must consume through the final byte and
	// keep parsing correctly afterward.
	p.Write([]byte("\x1b[99;31zhello"))
	if g.GetLine(0).PlainText() != "hello" {
		t.Fatalf("parser desynchronized after unknown CSI: %q", g.GetLine(0).PlainText())
	}
}

func TestResizeShrinkPushesScrollback(t *testing.T) {
	g := NewGrid(5, 10, 100)
	p := NewParser(g)
	p.Write([]byte("a\r\nb\r\nc\r\nd\r\ne"))
	g.Resize(2, 10)
	if g.Rows != 2 {
		t.Fatalf("rows after resize = %d, want 2", g.Rows)
	}
	if len(g.scrollback) != 3 || g.GetLine(0).PlainText() != "a" {
		t.Fatalf("scrollback after shrink = %d lines, want the 3 removed top lines starting with a", len(g.scrollback))
	}
}
