// Package vtgrid implements a scroll-backed grid of styled terminal cells
// and a parser that turns a byte stream of VT/ANSI output into that grid.
package vtgrid

// ColorKind tags the variant held by a Color value.
type ColorKind int

const (
	ColorDefault ColorKind = iota
	ColorIndexed16
	ColorIndexed256
	ColorRGB
)

// Color is a tagged union over the terminal color space SGR can select.
type Color struct {
	Kind ColorKind
	// Index holds the palette index for ColorIndexed16/ColorIndexed256.
	Index uint8
	// R, G, B hold the channel values for ColorRGB.
	R, G, B uint8
}

// DefaultColor is the unset/inherit-from-terminal color.
var DefaultColor = Color{Kind: ColorDefault}

func Indexed16(i uint8) Color  { return Color{Kind: ColorIndexed16, Index: i} }
func Indexed256(i uint8) Color { return Color{Kind: ColorIndexed256, Index: i} }
func RGB(r, g, b uint8) Color  { return Color{Kind: ColorRGB, R: r, G: g, B: b} }

// StyleFlags is a bitset of SGR text attributes.
type StyleFlags uint16

const (
	FlagBold StyleFlags = 1 << iota
	FlagDim
	FlagItalic
	FlagUnderline
	FlagBlink
	FlagInverse
	FlagInvisible
	FlagStrikethrough
)

// Style bundles the SGR attribute state that applies to a Cell.
type Style struct {
	Flags StyleFlags
	FG    Color
	BG    Color
}

// DefaultStyle is the style in effect after a full SGR reset.
var DefaultStyle = Style{Flags: 0, FG: DefaultColor, BG: DefaultColor}

// IsDefault reports whether the style carries no non-default attribute,
// used to decide whether a trailing SGR reset must be emitted.
func (s Style) IsDefault() bool {
	return s.Flags == 0 && s.FG == DefaultColor && s.BG == DefaultColor
}

// Cell is a single grapheme cluster plus the style it was written with.
// The zero Cell is a blank default-style space.
type Cell struct {
	Ch    rune
	Width int // display width of Ch, 1 or 2; 0 for an unwritten (blank) cell
	Style Style
}

// BlankCell returns the default-style blank cell used to pad lines and
// clear regions.
func BlankCell() Cell {
	return Cell{Ch: ' ', Width: 1, Style: DefaultStyle}
}

func (c Cell) IsBlank() bool {
	return c.Width == 0 || (c.Ch == ' ' && c.Style.IsDefault())
}
