package font

import (
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/inconsolata"
)

// fromBasicFace builds a Font whose glyph cell matches the advance and line
// height of a fixed-width basicfont face.
func fromBasicFace(name string, face *basicfont.Face, recW, recH, priority int) *Font {
	return &Font{
		Name:              name,
		GlyphWidth:        face.Advance,
		GlyphHeight:       face.Ascent + face.Descent,
		RecommendedWidth:  recW,
		RecommendedHeight: recH,
		Priority:          priority,
		Fallback:          FallbackRune,
		Face:              face,
	}
}

func init() {
	// Names carry the glyph cell size. The descent of the inconsolata
	// faces makes their cell 17 rows tall.
	Register(fromBasicFace("7x13", basicfont.Face7x13, 640, 480, 0))
	Register(fromBasicFace("inconsolata-8x17", inconsolata.Regular8x16, 1024, 768, 0))
	Register(fromBasicFace("inconsolata-bold-8x17", inconsolata.Bold8x16, 1024, 768, 1))
}
