package main

import (
	"errors"
	"fbkernel/device/video/console"
	"fbkernel/multiboot"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// envPrefix is prepended to the upper-cased flag name to form the name of the
// environment variable that provides the flag's default value.
const envPrefix = "FBSIM_"

// config describes the simulated machine.
type config struct {
	Width    int
	Height   int
	PitchPad int
	Bpp      int
	Format   string
	Font     string
	CmdLine  string
	Snapshot string
	LogFile  string
	LogLevel string
	EnvFile  string
}

func defaultConfig() *config {
	return &config{
		Width:    640,
		Height:   480,
		Bpp:      4,
		Format:   console.PixelFormatBGR.String(),
		LogFile:  "fbsim.log",
		LogLevel: "info",
		EnvFile:  ".env",
	}
}

// registerFlags binds the configuration fields to flags.
func (c *config) registerFlags(flags *pflag.FlagSet) {
	flags.IntVar(&c.Width, "width", c.Width, "framebuffer width in pixels")
	flags.IntVar(&c.Height, "height", c.Height, "framebuffer height in pixels")
	flags.IntVar(&c.PitchPad, "pitch-pad", c.PitchPad, "padding bytes appended to each framebuffer row")
	flags.IntVar(&c.Bpp, "bpp", c.Bpp, "framebuffer bytes per pixel (1-4)")
	flags.StringVar(&c.Format, "format", c.Format, "framebuffer pixel format (rgb, bgr or u8)")
	flags.StringVar(&c.Font, "font", c.Font, "console font; picked by the kernel if empty")
	flags.StringVar(&c.CmdLine, "cmdline", c.CmdLine, "additional kernel command line arguments")
	flags.StringVar(&c.Snapshot, "snapshot", c.Snapshot, "write a BMP image of the framebuffer to this file on exit")
	flags.StringVar(&c.LogFile, "log-file", c.LogFile, "simulator log file")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "simulator log level (debug, info, warn or error)")
	flags.StringVar(&c.EnvFile, "env-file", c.EnvFile, "dotenv file with FBSIM_* defaults")
}

// envName returns the environment variable that configures flag name.
func envName(name string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// loadEnv loads the dotenv file selected by the env-file flag and applies
// the FBSIM_* variables to every flag not set on the command line. Variables
// already present in the process environment take precedence over the file.
// A missing dotenv file is only an error if it was requested explicitly.
func loadEnv(flags *pflag.FlagSet, lookup func(string) (string, bool)) error {
	envFile := flags.Lookup("env-file")
	if !envFile.Changed {
		if v, ok := lookup(envName(envFile.Name)); ok {
			if err := flags.Set(envFile.Name, v); err != nil {
				return err
			}
		}
	}

	fileVars, err := godotenv.Read(envFile.Value.String())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || envFile.Changed {
			return fmt.Errorf("loading %s: %w", envFile.Value.String(), err)
		}
	}

	var setErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || setErr != nil {
			return
		}

		v, ok := lookup(envName(f.Name))
		if !ok {
			v, ok = fileVars[envName(f.Name)]
		}
		if !ok {
			return
		}

		if err := flags.Set(f.Name, v); err != nil {
			setErr = fmt.Errorf("%s: %w", envName(f.Name), err)
		}
	})

	return setErr
}

// geometry returns the framebuffer geometry described by c.
func (c *config) geometry() (console.Geometry, error) {
	format, ok := console.ParsePixelFormat(c.Format)
	if !ok {
		return console.Geometry{}, fmt.Errorf("unknown pixel format %q", c.Format)
	}

	switch {
	case c.Width <= 0 || c.Height <= 0:
		return console.Geometry{}, fmt.Errorf("invalid framebuffer size %dx%d", c.Width, c.Height)
	case c.Bpp < 1 || c.Bpp > 4:
		return console.Geometry{}, fmt.Errorf("invalid bytes per pixel %d", c.Bpp)
	case c.PitchPad < 0:
		return console.Geometry{}, fmt.Errorf("invalid pitch padding %d", c.PitchPad)
	case format != console.PixelFormatU8 && c.Bpp < 3:
		return console.Geometry{}, fmt.Errorf("pixel format %s needs at least 3 bytes per pixel", format)
	}

	return console.Geometry{
		Width:         c.Width,
		Height:        c.Height,
		Pitch:         c.Width*c.Bpp + c.PitchPad,
		BytesPerPixel: c.Bpp,
		Format:        format,
	}, nil
}

// bootCmdLine returns the kernel command line.
func (c *config) bootCmdLine() string {
	args := strings.Fields(c.CmdLine)
	if c.Font != "" {
		args = append(args, "consoleFont="+c.Font)
	}
	return strings.Join(args, " ")
}

// framebufferTag describes a framebuffer with geometry geom the way a
// boot loader reports it.
func framebufferTag(geom console.Geometry, physAddr uintptr) (multiboot.FramebufferInfo, multiboot.FramebufferRGBColorInfo) {
	info := multiboot.FramebufferInfo{
		PhysAddr: uint64(physAddr),
		Pitch:    uint32(geom.Pitch),
		Width:    uint32(geom.Width),
		Height:   uint32(geom.Height),
		Bpp:      uint8(geom.BytesPerPixel * 8),
		Type:     multiboot.FramebufferTypeRGB,
	}

	var colorInfo multiboot.FramebufferRGBColorInfo
	switch geom.Format {
	case console.PixelFormatU8:
		info.Type = multiboot.FramebufferTypeIndexed
	case console.PixelFormatRGB:
		colorInfo = multiboot.FramebufferRGBColorInfo{RedPosition: 0, RedMaskSize: 8, GreenPosition: 8, GreenMaskSize: 8, BluePosition: 16, BlueMaskSize: 8}
	case console.PixelFormatBGR:
		colorInfo = multiboot.FramebufferRGBColorInfo{RedPosition: 16, RedMaskSize: 8, GreenPosition: 8, GreenMaskSize: 8, BluePosition: 0, BlueMaskSize: 8}
	}

	return info, colorInfo
}
