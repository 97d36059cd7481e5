package main

import (
	"fbkernel/device/video/console"
	"fbkernel/multiboot"
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func parseFlags(t *testing.T, args ...string) (*config, *pflag.FlagSet) {
	t.Helper()

	cfg := defaultConfig()
	flags := pflag.NewFlagSet("fbsim", pflag.ContinueOnError)
	cfg.registerFlags(flags)
	if err := flags.Parse(args); err != nil {
		t.Fatal(err)
	}

	return cfg, flags
}

func writeEnvFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fbsim.env")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEnv(t *testing.T) {
	envFile := writeEnvFile(t, "FBSIM_WIDTH=800\nFBSIM_HEIGHT=600\nFBSIM_FORMAT=rgb\n")

	cfg, flags := parseFlags(t, "--env-file", envFile, "--height", "768")
	env := map[string]string{
		"FBSIM_FORMAT": "u8",
		"FBSIM_BPP":    "1",
	}

	if err := loadEnv(flags, mapLookup(env)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exp := defaultConfig()
	exp.EnvFile = envFile
	exp.Width = 800   // dotenv file
	exp.Height = 768  // flag beats dotenv file
	exp.Format = "u8" // environment beats dotenv file
	exp.Bpp = 1       // environment
	if diff := cmp.Diff(exp, cfg); diff != "" {
		t.Fatalf("unexpected config (-exp +got):\n%s", diff)
	}
}

func TestLoadEnvFileFromEnvironment(t *testing.T) {
	envFile := writeEnvFile(t, "FBSIM_FONT=7x13\n")

	cfg, flags := parseFlags(t)
	if err := loadEnv(flags, mapLookup(map[string]string{"FBSIM_ENV_FILE": envFile})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.EnvFile != envFile || cfg.Font != "7x13" {
		t.Fatalf("expected the dotenv file named by FBSIM_ENV_FILE to be loaded; got %+v", cfg)
	}
}

func TestLoadEnvErrors(t *testing.T) {
	t.Run("missing default env file", func(t *testing.T) {
		_, flags := parseFlags(t, "--width", "100")
		if err := flags.Set("env-file", filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Fatal(err)
		}
		// Setting the flag programmatically marks it as changed.
		flags.Lookup("env-file").Changed = false

		if err := loadEnv(flags, mapLookup(nil)); err != nil {
			t.Fatalf("expected a missing default dotenv file to be ignored; got %v", err)
		}
	})

	t.Run("missing explicit env file", func(t *testing.T) {
		_, flags := parseFlags(t, "--env-file", filepath.Join(t.TempDir(), "missing.env"))
		if err := loadEnv(flags, mapLookup(nil)); err == nil {
			t.Fatal("expected an error for a missing dotenv file passed on the command line")
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		_, flags := parseFlags(t, "--env-file", writeEnvFile(t, ""))
		if err := loadEnv(flags, mapLookup(map[string]string{"FBSIM_WIDTH": "wide"})); err == nil {
			t.Fatal("expected an error for a non-numeric width")
		}
	})
}

func TestConfigGeometry(t *testing.T) {
	specs := []struct {
		mutate func(*config)
		exp    console.Geometry
		expErr bool
	}{
		{
			func(*config) {},
			console.Geometry{Width: 640, Height: 480, Pitch: 2560, BytesPerPixel: 4, Format: console.PixelFormatBGR},
			false,
		},
		{
			func(c *config) { c.Bpp, c.PitchPad, c.Format = 3, 64, "rgb" },
			console.Geometry{Width: 640, Height: 480, Pitch: 640*3 + 64, BytesPerPixel: 3, Format: console.PixelFormatRGB},
			false,
		},
		{
			func(c *config) { c.Bpp, c.Format = 1, "u8" },
			console.Geometry{Width: 640, Height: 480, Pitch: 640, BytesPerPixel: 1, Format: console.PixelFormatU8},
			false,
		},
		{func(c *config) { c.Format = "yuv" }, console.Geometry{}, true},
		{func(c *config) { c.Width = 0 }, console.Geometry{}, true},
		{func(c *config) { c.Bpp = 5 }, console.Geometry{}, true},
		{func(c *config) { c.PitchPad = -1 }, console.Geometry{}, true},
		{func(c *config) { c.Bpp = 2 }, console.Geometry{}, true},
	}

	for specIndex, spec := range specs {
		cfg := defaultConfig()
		spec.mutate(cfg)

		got, err := cfg.geometry()
		if (err != nil) != spec.expErr {
			t.Errorf("[spec %d] expected error: %t; got %v", specIndex, spec.expErr, err)
			continue
		}

		if got != spec.exp {
			t.Errorf("[spec %d] expected geometry %+v; got %+v", specIndex, spec.exp, got)
		}
	}
}

func TestBootCmdLine(t *testing.T) {
	cfg := defaultConfig()
	if got := cfg.bootCmdLine(); got != "" {
		t.Fatalf("expected an empty command line; got %q", got)
	}

	cfg.CmdLine = "  consoleTop=40  quiet "
	cfg.Font = "inconsolata-8x17"
	if exp, got := "consoleTop=40 quiet consoleFont=inconsolata-8x17", cfg.bootCmdLine(); got != exp {
		t.Fatalf("expected command line %q; got %q", exp, got)
	}
}

func TestFramebufferTag(t *testing.T) {
	defer multiboot.SetInfoPtr(0)

	// The geometry reported to the kernel must match the simulated one.
	for _, format := range []string{"rgb", "bgr", "u8"} {
		cfg := defaultConfig()
		cfg.Format, cfg.PitchPad = format, 16
		if format == "u8" {
			cfg.Bpp = 1
		}

		geom, err := cfg.geometry()
		if err != nil {
			t.Fatal(err)
		}

		fbInfo, colorInfo := framebufferTag(geom, 0xfd000000)
		blob := new(multiboot.InfoBuilder).AddFramebuffer(fbInfo, colorInfo).Build()
		multiboot.SetInfoPtr(uintptr(unsafe.Pointer(&blob[0])))

		got, ok := console.GeometryFromFramebufferInfo(multiboot.GetFramebufferInfo())
		if !ok {
			t.Fatalf("[%s] expected the framebuffer tag to be usable by the console", format)
		}

		if got != geom {
			t.Fatalf("[%s] expected geometry %+v; got %+v", format, geom, got)
		}
	}
}
