// Package console implements a text console on top of a linear pixel
// framebuffer. Characters are drawn into fixed-size glyph cells; when the
// cursor runs past the bottom of the screen the console clears itself instead
// of scrolling.
package console

import (
	"fbkernel/device/video/console/font"
	"fbkernel/kernel"
	"fbkernel/kernel/sync"
	"unicode/utf8"
)

const (
	// BorderPadding is the gap in pixels kept between text and each
	// framebuffer edge.
	BorderPadding = 2

	// LineSpacing is the additional vertical space between lines.
	LineSpacing = 2

	// LetterSpacing is the additional horizontal space between characters.
	LetterSpacing = 0

	// Backspace moves the cursor one glyph cell back and erases it.
	Backspace = '\b'

	// Keep can be passed to SetCursor to leave a coordinate unchanged.
	Keep = -1
)

var (
	errNotInstalled = &kernel.Error{Module: "console", Message: "write to console before a framebuffer was installed"}
	errNoFont       = &kernel.Error{Module: "console", Message: "no font selected"}
)

// Console renders text into a framebuffer. The zero value is a console
// without a framebuffer; Install must be called before writing to it.
//
// All methods are safe to call from multiple tasks but must not be called
// from interrupt context.
type Console struct {
	lock sync.Spinlock

	fb   []byte
	geom Geometry
	font *font.Font

	// Cursor position in pixels.
	x, y int

	// Bytes of a partially written UTF-8 sequence.
	partial    [utf8.UTFMax]byte
	partialLen int
}

// New returns a console that renders text using f. The console has no
// framebuffer until Install is called.
func New(f *font.Font) *Console {
	return &Console{font: f}
}

// SetFont selects the bitmap font used by the console. Passing a nil font is a
// no-op.
func (c *Console) SetFont(f *font.Font) {
	if f == nil {
		return
	}

	c.lock.Acquire()
	c.font = f
	c.lock.Release()
}

// Install hands fb over to the console, clears it and moves the cursor to the
// top-left corner. Calling Install on a console that already owns a
// framebuffer replaces it.
func (c *Console) Install(fb []byte, geom Geometry) *kernel.Error {
	if c.font == nil {
		return errNoFont
	}

	if err := geom.validate(len(fb)); err != nil {
		return err
	}

	c.lock.Acquire()
	c.fb = fb
	c.geom = geom
	c.partialLen = 0
	c.clearScreen()
	c.lock.Release()

	return nil
}

// Installed returns true if the console owns a framebuffer.
func (c *Console) Installed() bool {
	c.lock.Acquire()
	defer c.lock.Release()

	return c.fb != nil
}

// Geometry returns the geometry of the installed framebuffer.
func (c *Console) Geometry() Geometry {
	c.lock.Acquire()
	defer c.lock.Release()

	return c.geom
}

// CellSize returns the width and height in pixels of a glyph cell including
// letter and line spacing.
func (c *Console) CellSize() (int, int) {
	c.lock.Acquire()
	defer c.lock.Release()

	return c.font.GlyphWidth + LetterSpacing, c.font.GlyphHeight + LineSpacing
}

// Cursor returns the cursor position in pixels.
func (c *Console) Cursor() (int, int) {
	c.lock.Acquire()
	defer c.lock.Release()

	return c.x, c.y
}

// SetCursor moves the cursor to the pixel position (x, y). A negative
// coordinate (such as Keep) leaves that coordinate unchanged. Coordinates are
// not validated; a cursor outside the framebuffer is corrected by the next
// write.
func (c *Console) SetCursor(x, y int) {
	c.lock.Acquire()
	if x >= 0 {
		c.x = x
	}
	if y >= 0 {
		c.y = y
	}
	c.lock.Release()
}

// Clear erases the framebuffer contents and moves the cursor to the top-left
// corner.
func (c *Console) Clear() {
	c.lock.Acquire()
	defer c.lock.Release()

	c.mustBeInstalled()
	c.clearScreen()
}

// WriteText renders each character of text in order.
func (c *Console) WriteText(text []rune) {
	c.lock.Acquire()
	defer c.lock.Release()

	c.mustBeInstalled()
	for _, r := range text {
		c.writeRune(r)
	}
}

// Write implements io.Writer. The data is decoded as UTF-8; a multi-byte
// sequence split across calls to Write is reassembled before rendering.
// Invalid sequences are rendered as utf8.RuneError.
func (c *Console) Write(p []byte) (int, error) {
	c.lock.Acquire()
	defer c.lock.Release()

	c.mustBeInstalled()
	for _, b := range p {
		c.partial[c.partialLen] = b
		c.partialLen++

		// An invalid sequence decodes with size 1; the bytes after it
		// may already form a complete rune.
		for c.partialLen != 0 && utf8.FullRune(c.partial[:c.partialLen]) {
			r, size := utf8.DecodeRune(c.partial[:c.partialLen])
			c.writeRune(r)
			c.partialLen = copy(c.partial[:], c.partial[size:c.partialLen])
		}
	}

	return len(p), nil
}

// WriteString implements io.StringWriter.
func (c *Console) WriteString(s string) (int, error) {
	return c.Write([]byte(s))
}

// View invokes fn with the framebuffer contents and geometry while holding the
// console lock. fn must not retain fb or call back into the console.
func (c *Console) View(fn func(fb []byte, geom Geometry)) {
	c.lock.Acquire()
	defer c.lock.Release()

	fn(c.fb, c.geom)
}

func (c *Console) mustBeInstalled() {
	if c.fb == nil {
		panic(errNotInstalled)
	}
}

// clearScreen zeroes the framebuffer and resets the cursor.
func (c *Console) clearScreen() {
	c.x = BorderPadding
	c.y = BorderPadding
	clear(c.fb)
}

// writeRune interprets the following special characters:
//   - \r (carriage-return)
//   - \n (line-feed; implies carriage-return)
//   - \b (backspace; erases the previous glyph cell)
//
// Any other character is drawn at the cursor. The cursor wraps to a new line
// when the glyph would not fit on the current one and the screen is cleared
// when the glyph would not fit above the bottom border.
func (c *Console) writeRune(r rune) {
	switch r {
	case Backspace:
		c.backspace()
	case '\n':
		c.newline()
	case '\r':
		c.carriageReturn()
	default:
		if c.x+c.font.GlyphWidth >= c.geom.Width {
			c.newline()
		}

		if c.y+c.font.GlyphHeight+BorderPadding >= c.geom.Height {
			c.clearScreen()
		}

		c.drawGlyph(c.font.Rasterize(r))
	}
}

func (c *Console) newline() {
	c.y += c.font.GlyphHeight + LineSpacing
	c.carriageReturn()
}

func (c *Console) carriageReturn() {
	c.x = BorderPadding
}

// backspace erases the glyph cell before the cursor. Stepping back past the
// left border moves the cursor to the last cell of the previous line; on the
// first line it does nothing.
//
// The erase is done by drawing a blank glyph, which advances the cursor, and
// then stepping back one cell. When wrapping, the cell that was stepped into
// is blanked before moving up a line and the last cell of the previous line
// is blanked after.
func (c *Console) backspace() {
	var (
		glyphWidth = c.font.GlyphWidth
		linePitch  = c.font.GlyphHeight + LineSpacing
		newX       = c.x - glyphWidth
		blank      = c.font.Rasterize(' ')
	)

	if newX < BorderPadding {
		if c.y-linePitch < BorderPadding {
			return
		}

		c.x = newX
		c.drawGlyph(blank)
		c.y -= linePitch
		c.x = c.geom.Width - glyphWidth - BorderPadding
	} else {
		c.x = newX
	}

	c.drawGlyph(blank)
	c.x -= glyphWidth
}

// drawGlyph blits g with its top-left corner at the cursor and advances the
// cursor past it. Pixels that fall outside the framebuffer are skipped.
func (c *Console) drawGlyph(g font.Glyph) {
	for gy := 0; gy < g.Height; gy++ {
		py := c.y + gy
		if py < 0 || py >= c.geom.Height {
			continue
		}

		for gx := 0; gx < g.Width; gx++ {
			px := c.x + gx
			if px < 0 || px >= c.geom.Width {
				continue
			}

			c.writePixel(px, py, g.At(gx, gy))
		}
	}

	c.x += g.Width + LetterSpacing
}
