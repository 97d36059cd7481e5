package console

// writePixel stores a glyph intensity at (x, y) converting it to the pixel
// format of the framebuffer. Only the first BytesPerPixel bytes of the
// converted color are written.
func (c *Console) writePixel(x, y int, intensity uint8) {
	var color [4]uint8

	switch c.geom.Format {
	case PixelFormatRGB:
		color = [4]uint8{intensity, intensity, intensity / 2, 0}
	case PixelFormatBGR:
		color = [4]uint8{intensity / 2, intensity, intensity, 0}
	case PixelFormatU8:
		if intensity > 200 {
			color[0] = 0xf
		}
	default:
		// Switch to a supported format before panicking so that the
		// panic message can still be rendered.
		c.geom.Format = PixelFormatRGB
		panic(errUnsupportedFormat)
	}

	offset := c.geom.fbOffset(x, y)
	copy(c.fb[offset:offset+c.geom.BytesPerPixel], color[:c.geom.BytesPerPixel])
	readBackFn(c.fb, offset)
}

// readBackFn is mocked by tests to observe the read issued after each pixel
// write.
var readBackFn = readBack

// readBack reads the byte at offset after it has been written. Real display
// hardware maps the framebuffer as write-combining memory and some emulators
// only notice a write once the location is read back; the read forces the
// preceding write to become visible. readBack must not be inlined so the
// compiler cannot drop the load.
//
//go:noinline
func readBack(fb []byte, offset int) uint8 {
	return fb[offset]
}
