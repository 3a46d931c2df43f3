package vtgrid

import (
	"unicode/utf8"
)

// parserState tracks where we are in an escape sequence across Write calls,
// so a split read (e.g. a CSI sequence straddling two PTY reads) still
// parses correctly.
type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateCSI
	stateOSC
	stateOSCEscape // saw ESC inside OSC, waiting for \ (ST) or BEL already handled
)

// Parser decodes a VT/ANSI byte stream into Grid mutations. It never
// panics and never desynchronizes: an unrecognized CSI/OSC sequence is
// consumed through its final byte and otherwise ignored.
type Parser struct {
	grid  *Grid
	state parserState

	csiParams []int
	csiPrivate bool // '?' prefix, e.g. CSI ? 25 h
	curParam   int
	haveParam  bool

	oscBuf []byte

	// OnOSC52 is invoked with the base64 payload when an OSC 52 clipboard
	// write is parsed, so the host can forward it to the physical terminal.
	OnOSC52 func(selection string, b64 string)
	// OnError is invoked (if set) on malformed-sequence recovery, so the
	// host can log it the way spec.md's "[viewport]"-prefixed diagnostic
	// requires (see internal/logging).
	OnError func(reason string)
}

func NewParser(g *Grid) *Parser {
	return &Parser{grid: g}
}

// Write feeds raw PTY output bytes into the parser.
func (p *Parser) Write(data []byte) {
	i := 0
	for i < len(data) {
		b := data[i]
		switch p.state {
		case stateGround:
			i += p.handleGround(data[i:])
		case stateEscape:
			i += p.handleEscape(data[i:])
		case stateCSI:
			i += p.handleCSI(data[i:])
		case stateOSC:
			i += p.handleOSC(data[i:])
		default:
			p.state = stateGround
			_ = b
			i++
		}
	}
}

func (p *Parser) handleGround(data []byte) int {
	b := data[0]
	switch b {
	case 0x1b:
		p.state = stateEscape
		return 1
	case '\r':
		p.grid.CursorCol = 0
		p.grid.wrapPending = false
		return 1
	case '\n':
		p.grid.lineFeed()
		return 1
	case '\b':
		if p.grid.CursorCol > 0 {
			p.grid.CursorCol--
		}
		p.grid.wrapPending = false
		return 1
	case '\t':
		next := (p.grid.CursorCol/8 + 1) * 8
		if next >= p.grid.Cols {
			next = p.grid.Cols - 1
		}
		p.grid.CursorCol = next
		return 1
	case 0x07: // BEL outside OSC: ignore
		return 1
	}
	if b < 0x20 {
		return 1 // unsupported control byte, consumed and dropped
	}
	r, size := utf8.DecodeRune(data)
	if r == utf8.RuneError && size <= 1 {
		return 1
	}
	p.printRune(r)
	return size
}

func (p *Parser) printRune(r rune) {
	w := runeWidth(r)
	if w == 0 {
		return
	}
	g := p.grid
	if g.wrapPending {
		g.CursorCol = 0
		g.lineFeed()
		g.wrapPending = false
	}
	line := g.lineAt(g.CursorRow)
	line.ensureWidth(g.CursorCol + w)
	line.Cells[g.CursorCol] = Cell{Ch: r, Width: w, Style: g.cur}
	for k := 1; k < w; k++ {
		line.Cells[g.CursorCol+k] = Cell{Width: 0, Style: g.cur}
	}
	if g.CursorCol+w >= g.Cols {
		if g.autowrap {
			g.CursorCol = g.Cols - 1
			g.wrapPending = true
		}
	} else {
		g.CursorCol += w
	}
	if h := len(g.scrollback) + g.CursorRow + 1; h > g.contentHeight {
		g.contentHeight = h
	}
}

func runeWidth(r rune) int {
	if r == 0 {
		return 0
	}
	// Combining marks and other zero-width runes occupy no cell; a full
	// East-Asian-width table is out of scope, a 2-wide heuristic for the
	// common wide ranges is enough to keep layout stable.
	switch {
	case r >= 0x300 && r <= 0x36f:
		return 0
	case r >= 0x1100 && r <= 0x115f,
		r >= 0x2e80 && r <= 0xa4cf,
		r >= 0xac00 && r <= 0xd7a3,
		r >= 0xf900 && r <= 0xfaff,
		r >= 0xff00 && r <= 0xff60,
		r >= 0x20000 && r <= 0x3fffd:
		return 2
	default:
		return 1
	}
}

func (p *Parser) handleEscape(data []byte) int {
	b := data[0]
	switch b {
	case '[':
		p.state = stateCSI
		p.csiParams = p.csiParams[:0]
		p.csiPrivate = false
		p.curParam = 0
		p.haveParam = false
		return 1
	case ']':
		p.state = stateOSC
		p.oscBuf = p.oscBuf[:0]
		return 1
	case 'D': // IND
		p.grid.lineFeed()
		p.state = stateGround
		return 1
	case 'M': // RI
		p.grid.reverseLineFeed()
		p.state = stateGround
		return 1
	case 'c': // RIS
		p.resetGrid()
		p.state = stateGround
		return 1
	case '7': // DECSC
		p.grid.saveCursor = [2]int{p.grid.CursorRow, p.grid.CursorCol}
		p.state = stateGround
		return 1
	case '8': // DECRC
		p.grid.CursorRow, p.grid.CursorCol = p.grid.saveCursor[0], p.grid.saveCursor[1]
		p.state = stateGround
		return 1
	default:
		// Unknown single-char escape: consumed, ignored.
		p.state = stateGround
		return 1
	}
}

func (p *Parser) resetGrid() {
	g := p.grid
	for i := range g.viewport {
		g.viewport[i] = newLine(g.Cols)
	}
	g.CursorRow, g.CursorCol = 0, 0
	g.cur = DefaultStyle
	g.wrapPending = false
}

func (p *Parser) handleCSI(data []byte) int {
	b := data[0]
	if b == '?' && len(p.csiParams) == 0 && !p.haveParam {
		p.csiPrivate = true
		return 1
	}
	if b >= '0' && b <= '9' {
		p.curParam = p.curParam*10 + int(b-'0')
		p.haveParam = true
		return 1
	}
	if b == ';' {
		p.csiParams = append(p.csiParams, p.curParam)
		p.curParam = 0
		p.haveParam = false
		return 1
	}
	// Intermediate bytes (0x20-0x2F) before the final byte: consume and
	// ignore, keeping desync-proof behavior for sequences we don't model.
	if b >= 0x20 && b <= 0x2f {
		return 1
	}
	if p.haveParam || len(p.csiParams) == 0 {
		p.csiParams = append(p.csiParams, p.curParam)
	}
	p.dispatchCSI(b, p.csiParams, p.csiPrivate)
	p.state = stateGround
	return 1
}

func (p *Parser) param(params []int, i, def int) int {
	if i >= len(params) {
		return def
	}
	if params[i] == 0 {
		return def
	}
	return params[i]
}

func (p *Parser) dispatchCSI(final byte, params []int, private bool) {
	g := p.grid
	if private {
		p.dispatchDEC(final, params)
		return
	}
	switch final {
	case 'A': // CUU
		n := p.param(params, 0, 1)
		g.CursorRow -= n
		if g.CursorRow < 0 {
			g.CursorRow = 0
		}
		g.wrapPending = false
	case 'B': // CUD
		n := p.param(params, 0, 1)
		g.CursorRow += n
		if g.CursorRow > g.Rows-1 {
			g.CursorRow = g.Rows - 1
		}
		g.wrapPending = false
	case 'C': // CUF
		n := p.param(params, 0, 1)
		g.CursorCol += n
		if g.CursorCol > g.Cols-1 {
			g.CursorCol = g.Cols - 1
		}
		g.wrapPending = false
	case 'D': // CUB
		n := p.param(params, 0, 1)
		g.CursorCol -= n
		if g.CursorCol < 0 {
			g.CursorCol = 0
		}
		g.wrapPending = false
	case 'H', 'f': // CUP / HVP
		row := p.param(params, 0, 1) - 1
		col := p.param(params, 1, 1) - 1
		g.CursorRow = clamp(row, 0, g.Rows-1)
		g.CursorCol = clamp(col, 0, g.Cols-1)
		g.wrapPending = false
	case 'J': // ED
		p.eraseDisplay(p.param(params, 0, 0))
	case 'K': // EL
		p.eraseLine(p.param(params, 0, 0))
	case 'm': // SGR
		p.applySGR(params)
	case 'r': // DECSTBM
		top := p.param(params, 0, 1) - 1
		bot := p.param(params, 1, g.Rows) - 1
		if top < 0 {
			top = 0
		}
		if bot > g.Rows-1 {
			bot = g.Rows - 1
		}
		if top < bot {
			g.scrollTop, g.scrollBottom = top, bot
		} else {
			g.scrollTop, g.scrollBottom = 0, g.Rows-1
		}
		g.CursorRow, g.CursorCol = 0, 0
	case 'd': // VPA
		row := p.param(params, 0, 1) - 1
		g.CursorRow = clamp(row, 0, g.Rows-1)
	case 'G': // CHA
		col := p.param(params, 0, 1) - 1
		g.CursorCol = clamp(col, 0, g.Cols-1)
	default:
		if p.OnError != nil {
			p.OnError("unhandled CSI final byte")
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (p *Parser) dispatchDEC(final byte, params []int) {
	g := p.grid
	set := final == 'h'
	if final != 'h' && final != 'l' {
		return
	}
	for _, mode := range params {
		switch mode {
		case 1049, 47, 1047:
			if set {
				g.EnterAltScreen()
			} else {
				g.ExitAltScreen()
			}
		case 7: // DECAWM
			g.autowrap = set
		case 25, 1000, 1006, 2026:
			// cursor visibility / mouse reporting / sync-update: these are
			// host-terminal concerns (see internal/inputrouter's RawTerminal
			// and cmd/agentmux's terminal setup), not grid state;
			// recognized here only so they don't fall through to OnError.
		default:
			if p.OnError != nil {
				p.OnError("unhandled DEC private mode")
			}
		}
	}
}

func (p *Parser) eraseDisplay(mode int) {
	g := p.grid
	switch mode {
	case 0: // cursor to end of screen
		p.eraseLine(0)
		for r := g.CursorRow + 1; r < g.Rows; r++ {
			g.viewport[r] = newLine(g.Cols)
		}
	case 1: // start of screen to cursor
		p.eraseLine(1)
		for r := 0; r < g.CursorRow; r++ {
			g.viewport[r] = newLine(g.Cols)
		}
	case 2, 3: // entire screen
		for r := range g.viewport {
			g.viewport[r] = newLine(g.Cols)
		}
	}
}

func (p *Parser) eraseLine(mode int) {
	g := p.grid
	line := g.lineAt(g.CursorRow)
	switch mode {
	case 0: // cursor to end of line
		for c := g.CursorCol; c < len(line.Cells); c++ {
			line.Cells[c] = BlankCell()
		}
	case 1: // start of line to cursor
		for c := 0; c <= g.CursorCol && c < len(line.Cells); c++ {
			line.Cells[c] = BlankCell()
		}
	case 2: // entire line
		for c := range line.Cells {
			line.Cells[c] = BlankCell()
		}
	}
}

func (p *Parser) applySGR(params []int) {
	g := p.grid
	if len(params) == 0 {
		g.cur = DefaultStyle
		return
	}
	i := 0
	for i < len(params) {
		code := params[i]
		switch {
		case code == 0:
			g.cur = DefaultStyle
		case code == 1:
			g.cur.Flags |= FlagBold
		case code == 2:
			g.cur.Flags |= FlagDim
		case code == 3:
			g.cur.Flags |= FlagItalic
		case code == 4:
			g.cur.Flags |= FlagUnderline
		case code == 5:
			g.cur.Flags |= FlagBlink
		case code == 7:
			g.cur.Flags |= FlagInverse
		case code == 8:
			g.cur.Flags |= FlagInvisible
		case code == 9:
			g.cur.Flags |= FlagStrikethrough
		case code == 22:
			g.cur.Flags &^= FlagBold | FlagDim
		case code == 23:
			g.cur.Flags &^= FlagItalic
		case code == 24:
			g.cur.Flags &^= FlagUnderline
		case code == 25:
			g.cur.Flags &^= FlagBlink
		case code == 27:
			g.cur.Flags &^= FlagInverse
		case code == 28:
			g.cur.Flags &^= FlagInvisible
		case code == 29:
			g.cur.Flags &^= FlagStrikethrough
		case code >= 30 && code <= 37:
			g.cur.FG = Indexed16(uint8(code - 30))
		case code == 38:
			consumed := p.extendedColor(params[i:], true)
			i += consumed - 1
		case code == 39:
			g.cur.FG = DefaultColor
		case code >= 40 && code <= 47:
			g.cur.BG = Indexed16(uint8(code - 40))
		case code == 48:
			consumed := p.extendedColor(params[i:], false)
			i += consumed - 1
		case code == 49:
			g.cur.BG = DefaultColor
		case code >= 90 && code <= 97:
			g.cur.FG = Indexed16(uint8(code - 90 + 8))
		case code >= 100 && code <= 107:
			g.cur.BG = Indexed16(uint8(code - 100 + 8))
		}
		i++
	}
}

// extendedColor parses "38;5;N" or "38;2;R;G;B" (and the 48;... background
// forms) starting at params[0] == 38 or 48. Returns how many params were
// consumed.
func (p *Parser) extendedColor(params []int, fg bool) int {
	if len(params) < 2 {
		return len(params)
	}
	switch params[1] {
	case 5:
		if len(params) < 3 {
			return len(params)
		}
		c := Indexed256(uint8(params[2]))
		if fg {
			p.grid.cur.FG = c
		} else {
			p.grid.cur.BG = c
		}
		return 3
	case 2:
		if len(params) < 5 {
			return len(params)
		}
		c := RGB(uint8(params[2]), uint8(params[3]), uint8(params[4]))
		if fg {
			p.grid.cur.FG = c
		} else {
			p.grid.cur.BG = c
		}
		return 5
	}
	return len(params)
}

func (p *Parser) handleOSC(data []byte) int {
	b := data[0]
	if b == 0x07 { // BEL terminates OSC
		p.finishOSC()
		p.state = stateGround
		return 1
	}
	if b == 0x1b && len(data) > 1 && data[1] == '\\' { // ST terminates OSC
		p.finishOSC()
		p.state = stateGround
		return 2
	}
	p.oscBuf = append(p.oscBuf, b)
	return 1
}

func (p *Parser) finishOSC() {
	// OSC body is "<Ps>;<Pt>"; we care about 10/11 (bg/fg color query,
	// answered negatively — we simply don't respond, matching spec.md's
	// "answered negatively by the host") and 52 (clipboard, forwarded).
	body := p.oscBuf
	semi := -1
	for i, c := range body {
		if c == ';' {
			semi = i
			break
		}
	}
	if semi < 0 {
		return
	}
	code := string(body[:semi])
	rest := string(body[semi+1:])
	if code == "52" {
		semi2 := -1
		for i := 0; i < len(rest); i++ {
			if rest[i] == ';' {
				semi2 = i
				break
			}
		}
		if semi2 < 0 {
			return
		}
		selection := rest[:semi2]
		b64 := rest[semi2+1:]
		if p.OnOSC52 != nil {
			p.OnOSC52(selection, b64)
		}
	}
	// OSC 10/11: intentionally not answered (host has no real background).
}
