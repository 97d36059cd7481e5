package main

import (
	"fbkernel/device/video/console"

	"github.com/gdamore/tcell/v2"
)

const (
	// Each terminal cell shows a block of 2x4 braille dots.
	dotsPerCellX = 2
	dotsPerCellY = 4

	brailleBase = 0x2800
)

// brailleDots maps the dot at (x, y) inside a cell to its bit in a braille
// pattern.
var brailleDots = [dotsPerCellY][dotsPerCellX]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// pixelLit returns true if any byte of the pixel at (x, y) is non-zero.
func pixelLit(fb []byte, geom console.Geometry, x, y int) bool {
	offset := y*geom.Pitch + x*geom.BytesPerPixel
	for _, b := range fb[offset : offset+geom.BytesPerPixel] {
		if b != 0 {
			return true
		}
	}
	return false
}

// scaleFor returns the number of framebuffer pixels per braille dot needed
// to fit geom in a cols x rows cell area.
func scaleFor(geom console.Geometry, cols, rows int) int {
	scale := 1
	if cols > 0 {
		scale = max(scale, ceilDiv(geom.Width, cols*dotsPerCellX))
	}
	if rows > 0 {
		scale = max(scale, ceilDiv(geom.Height, rows*dotsPerCellY))
	}
	return scale
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// brailleCell returns the braille pattern for the terminal cell (col, row).
// A dot is raised if any pixel of the scale x scale block it covers is lit.
func brailleCell(fb []byte, geom console.Geometry, scale, col, row int) rune {
	var pattern rune

	for dy := 0; dy < dotsPerCellY; dy++ {
		for dx := 0; dx < dotsPerCellX; dx++ {
			x0 := (col*dotsPerCellX + dx) * scale
			y0 := (row*dotsPerCellY + dy) * scale

		block:
			for y := y0; y < y0+scale && y < geom.Height; y++ {
				for x := x0; x < x0+scale && x < geom.Width; x++ {
					if pixelLit(fb, geom, x, y) {
						pattern |= brailleDots[dy][dx]
						break block
					}
				}
			}
		}
	}

	return brailleBase + pattern
}

// drawFramebuffer renders fb onto screen, reserving the last row for the
// status line.
func drawFramebuffer(screen tcell.Screen, fb []byte, geom console.Geometry, status string) {
	cols, rows := screen.Size()
	rows--

	scale := scaleFor(geom, cols, rows)
	cellsX := min(cols, ceilDiv(geom.Width, scale*dotsPerCellX))
	cellsY := min(rows, ceilDiv(geom.Height, scale*dotsPerCellY))

	screen.Clear()
	style := tcell.StyleDefault.Foreground(tcell.ColorLightGray)
	for row := 0; row < cellsY; row++ {
		for col := 0; col < cellsX; col++ {
			screen.SetContent(col, row, brailleCell(fb, geom, scale, col, row), nil, style)
		}
	}

	statusStyle := tcell.StyleDefault.Reverse(true)
	col := 0
	for _, r := range status {
		if col >= cols {
			break
		}
		screen.SetContent(col, rows, r, nil, statusStyle)
		col++
	}

	screen.Show()
}
