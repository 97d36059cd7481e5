package console

import "fbkernel/kernel"

// PixelFormat describes how a pixel's color components are laid out in the
// framebuffer.
type PixelFormat uint8

// The supported list of pixel formats.
const (
	// PixelFormatRGB stores the red, green and blue components in that
	// byte order.
	PixelFormatRGB PixelFormat = iota

	// PixelFormatBGR stores the blue, green and red components in that
	// byte order.
	PixelFormatBGR

	// PixelFormatU8 stores a single grayscale channel per pixel.
	PixelFormatU8
)

// String implements fmt.Stringer.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGB:
		return "rgb"
	case PixelFormatBGR:
		return "bgr"
	case PixelFormatU8:
		return "u8"
	default:
		return "unknown"
	}
}

// ParsePixelFormat returns the PixelFormat whose String value is s.
func ParsePixelFormat(s string) (PixelFormat, bool) {
	for f := PixelFormatRGB; f <= PixelFormatU8; f++ {
		if f.String() == s {
			return f, true
		}
	}
	return 0, false
}

// Geometry describes the layout of a linear framebuffer.
type Geometry struct {
	// Framebuffer dimensions in pixels.
	Width  int
	Height int

	// Size of a row in bytes. Some framebuffers pad each row so Pitch may
	// exceed Width * BytesPerPixel.
	Pitch int

	// The number of bytes used by each pixel.
	BytesPerPixel int

	// Format describes the byte layout of each pixel.
	Format PixelFormat
}

var (
	errBadDimensions     = &kernel.Error{Module: "console", Message: "framebuffer dimensions must be positive"}
	errBadBytesPerPixel  = &kernel.Error{Module: "console", Message: "framebuffer bytes per pixel must be between 1 and 4"}
	errPitchTooSmall     = &kernel.Error{Module: "console", Message: "framebuffer pitch is smaller than a row of pixels"}
	errBufferTooSmall    = &kernel.Error{Module: "console", Message: "framebuffer is smaller than its geometry"}
	errUnsupportedFormat = &kernel.Error{Module: "console", Message: "unsupported pixel format"}
)

// validate checks that g describes a framebuffer that fits in bufLen bytes.
func (g Geometry) validate(bufLen int) *kernel.Error {
	switch {
	case g.Width <= 0 || g.Height <= 0:
		return errBadDimensions
	case g.BytesPerPixel < 1 || g.BytesPerPixel > 4:
		return errBadBytesPerPixel
	case g.Pitch < g.Width*g.BytesPerPixel:
		return errPitchTooSmall
	case bufLen < (g.Height-1)*g.Pitch+g.Width*g.BytesPerPixel:
		return errBufferTooSmall
	case g.Format > PixelFormatU8:
		return errUnsupportedFormat
	}

	return nil
}

// fbOffset returns the linear offset into the framebuffer that corresponds to
// the pixel at (x,y).
func (g Geometry) fbOffset(x, y int) int {
	return y*g.Pitch + x*g.BytesPerPixel
}
