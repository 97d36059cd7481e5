package main

import (
	"fbkernel/device/video/console"
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/bmp"
)

// framebufferImage converts the contents of fb to an image.
func framebufferImage(fb []byte, geom console.Geometry) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, geom.Width, geom.Height))

	for y := 0; y < geom.Height; y++ {
		for x := 0; x < geom.Width; x++ {
			offset := y*geom.Pitch + x*geom.BytesPerPixel

			var px [4]uint8
			copy(px[:], fb[offset:offset+geom.BytesPerPixel])

			var c color.RGBA
			switch geom.Format {
			case console.PixelFormatRGB:
				c = color.RGBA{R: px[0], G: px[1], B: px[2], A: 0xff}
			case console.PixelFormatBGR:
				c = color.RGBA{R: px[2], G: px[1], B: px[0], A: 0xff}
			default:
				// 4-bit intensity
				v := (px[0] & 0xf) * 0x11
				c = color.RGBA{R: v, G: v, B: v, A: 0xff}
			}
			img.SetRGBA(x, y, c)
		}
	}

	return img
}

// writeSnapshot stores the framebuffer contents as a BMP image at path.
func writeSnapshot(path string, fb []byte, geom console.Geometry) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing snapshot: %w", cerr)
		}
	}()

	if err := bmp.Encode(f, framebufferImage(fb, geom)); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	return nil
}
