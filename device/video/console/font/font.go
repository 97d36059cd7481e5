// Package font provides the bitmap fonts used by the framebuffer console and
// rasterizes characters into fixed-size intensity grids.
package font

import (
	"fbkernel/kernel"
	"image"
	"image/color"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// FallbackRune is drawn in place of characters that a font does not cover.
const FallbackRune = '�'

var (
	// The list of available fonts.
	availableFonts []*Font

	errMissingFallbackGlyph = &kernel.Error{Module: "font", Message: "font defines neither the requested nor the fallback glyph"}
)

// Font describes a fixed-width bitmap font that can be used by a console
// device.
type Font struct {
	// The name of the font
	Name string

	// The size of each glyph cell in pixels.
	GlyphWidth  int
	GlyphHeight int

	// The recommended console resolution for this font.
	RecommendedWidth  int
	RecommendedHeight int

	// Font priority (lower is better). When auto-detecting a font to use, the font with
	// the lowest priority will be preferred
	Priority int

	// Fallback is rasterized for characters without a glyph. Defaults to
	// FallbackRune if zero.
	Fallback rune

	// Face supplies the glyph masks.
	Face xfont.Face
}

// Glyph is a rasterized character: one intensity byte (0-255) per pixel,
// stored row by row.
type Glyph struct {
	Width  int
	Height int
	Pix    []uint8
}

// At returns the intensity of the glyph pixel at (x, y).
func (g *Glyph) At(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

// Rasterize returns the glyph for r. Characters that the font does not cover
// are replaced by the font's fallback glyph. A font that lacks the fallback
// glyph as well is a configuration error and causes a panic.
func (f *Font) Rasterize(r rune) Glyph {
	if g, ok := f.rasterize(r); ok {
		return g
	}

	fallback := f.Fallback
	if fallback == 0 {
		fallback = FallbackRune
	}

	g, ok := f.rasterize(fallback)
	if !ok {
		panic(errMissingFallbackGlyph)
	}
	return g
}

// rasterize draws r into a GlyphWidth x GlyphHeight cell whose baseline sits
// at the face ascent. It returns false if the face has no glyph for r.
func (f *Font) rasterize(r rune) (Glyph, bool) {
	dot := fixed.Point26_6{Y: f.Face.Metrics().Ascent}
	dr, mask, maskp, _, ok := f.Face.Glyph(dot, r)
	if !ok || mask == nil {
		return Glyph{}, false
	}

	g := Glyph{
		Width:  f.GlyphWidth,
		Height: f.GlyphHeight,
		Pix:    make([]uint8, f.GlyphWidth*f.GlyphHeight),
	}

	// Only the part of the glyph mask that overlaps the cell is copied.
	cell := image.Rect(0, 0, f.GlyphWidth, f.GlyphHeight).Intersect(dr)
	for y := cell.Min.Y; y < cell.Max.Y; y++ {
		for x := cell.Min.X; x < cell.Max.X; x++ {
			a := color.AlphaModel.Convert(mask.At(maskp.X+x-dr.Min.X, maskp.Y+y-dr.Min.Y)).(color.Alpha)
			g.Pix[y*g.Width+x] = a.A
		}
	}

	return g, true
}

// Register adds f to the list of fonts that FindByName and BestFit choose
// from.
func Register(f *Font) {
	availableFonts = append(availableFonts, f)
}

// FindByName looks up a font instance by name. If the font is not found then
// the function returns nil.
func FindByName(name string) *Font {
	for _, f := range availableFonts {
		if f.Name == name {
			return f
		}
	}

	return nil
}

// BestFit returns the best font from the available font list given the
// specified console dimensions. If multiple fonts match the dimension criteria
// then their priority attribute is used to select one.
//
// The algorithm for selecting the best font is the following:
//  For each font:
//    - calculate the sum of abs differences between the font recommended dimension
//      and the console dimensions.
//    - if the font score is lower than the current best font's score then the
//      font becomes the new best font.
//    - if the font score is equal to the current best font's score then the
//      font with the lowest priority becomes the new best font.
func BestFit(consoleWidth, consoleHeight int) *Font {
	var (
		best      *Font
		bestDelta int
	)

	for _, f := range availableFonts {
		delta := absDiff(f.RecommendedWidth, consoleWidth) + absDiff(f.RecommendedHeight, consoleHeight)

		switch {
		case best == nil,
			delta < bestDelta,
			delta == bestDelta && f.Priority < best.Priority:
			best, bestDelta = f, delta
		}
	}

	return best
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
