package console

import (
	"fbkernel/device/video/console/font"
	"fbkernel/kernel"
	"fbkernel/kernel/kfmt"
	"io"
	"strconv"
)

// Driver exposes a Console as a device.Driver so that the hal can initialize
// it alongside the other detected hardware. The framebuffer is handed over to
// the console when DriverInit is invoked.
type Driver struct {
	*Console

	fb   []byte
	geom Geometry
}

// NewDriver returns a driver for a console that will render into fb.
func NewDriver(fb []byte, geom Geometry) *Driver {
	return &Driver{
		Console: New(nil),
		fb:      fb,
		geom:    geom,
	}
}

// DriverName returns the name of this driver.
func (drv *Driver) DriverName() string {
	return "fb_console"
}

// DriverVersion returns the version of this driver.
func (drv *Driver) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit selects a font, installs the framebuffer and clears it.
//
// The font is picked by the consoleFont boot command line argument; if that is
// missing or names an unknown font, the registered font that best fits the
// framebuffer dimensions is used instead. The consoleTop argument reserves the
// given number of pixel rows at the top of the screen for the first line of
// text.
func (drv *Driver) DriverInit(w io.Writer) *kernel.Error {
	cmdLine := getBootCmdLineFn()

	if drv.font == nil {
		drv.SetFont(selectFont(cmdLine, drv.geom))
	}

	if err := drv.Install(drv.fb, drv.geom); err != nil {
		return err
	}

	if top, err := strconv.Atoi(cmdLine["consoleTop"]); err == nil && top > BorderPadding && top < drv.geom.Height {
		drv.SetCursor(Keep, top)
	}

	kfmt.Fprintf(w, "%dx%d %s framebuffer (%d bytes per pixel, pitch %d), font %s\n",
		drv.geom.Width, drv.geom.Height, drv.geom.Format, drv.geom.BytesPerPixel, drv.geom.Pitch, drv.font.Name,
	)

	return nil
}

// selectFont returns the font requested via the consoleFont command line
// argument or the font that best fits geom.
func selectFont(cmdLine map[string]string, geom Geometry) *font.Font {
	if name, ok := cmdLine["consoleFont"]; ok {
		if f := font.FindByName(name); f != nil {
			return f
		}
	}

	return font.BestFit(geom.Width, geom.Height)
}
