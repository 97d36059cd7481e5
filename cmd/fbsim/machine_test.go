package main

import (
	"bytes"
	"fbkernel/device/video/console"
	"fbkernel/device/video/console/font"
	"fbkernel/kernel/cpu"
	"fbkernel/kernel/hal"
	"fbkernel/kernel/kmain"
	"io"
	"log/slog"
	"testing"
	"time"
)

// waitFor polls cond until it returns true. It fails the test if the kernel
// halts or cond does not hold within a few seconds.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for !cond() {
		select {
		case <-cpu.Halted():
			t.Fatalf("kernel halted while waiting for %s", what)
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(time.Millisecond):
		}
	}
}

// lineBand returns a copy of the framebuffer rows occupied by the text line
// starting at y.
func lineBand(cons *console.Console, y int) []byte {
	var band []byte
	_, cellH := cons.CellSize()
	cons.View(func(fb []byte, geom console.Geometry) {
		band = append(band, fb[y*geom.Pitch:(y+cellH-console.LineSpacing)*geom.Pitch]...)
	})
	return band
}

func TestMachineEchoesLines(t *testing.T) {
	cfg := defaultConfig()
	cfg.Font = "7x13"

	m, err := newMachine(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	m.boot()

	// The kernel enables interrupts right before showing the first prompt.
	waitFor(t, "interrupts", cpu.InterruptsEnabled)

	cons := hal.ActiveConsole()
	if cons == nil {
		t.Fatal("expected the kernel to initialize a console")
	}
	if got := cons.Geometry(); got != m.geom {
		t.Fatalf("expected console geometry %+v; got %+v", m.geom, got)
	}

	cellW, cellH := cons.CellSize()
	promptX := console.BorderPadding + len(kmain.Prompt)*cellW
	cursorAt := func(x, y int) func() bool {
		return func() bool {
			cx, cy := cons.Cursor()
			return cx == x && (y < 0 || cy == y)
		}
	}

	expLine := console.New(font.FindByName(cfg.Font))
	if err := expLine.Install(make([]byte, len(m.vram)), m.geom); err != nil {
		t.Fatal(err)
	}

	specs := []struct {
		input  string
		output string
	}{
		{"hi\r", "String entered is 'hi'"},
		{"ab\x1b", "String entered is ''"},
		{"xy\bz\r", "String entered is 'xz'"},
	}

	for specIndex, spec := range specs {
		waitFor(t, "prompt", cursorAt(promptX, -1))
		_, promptY := cons.Cursor()

		x := promptX
		for _, r := range spec.input {
			if !m.typeRune(r) {
				t.Fatalf("[spec %d] no key for %q", specIndex, r)
			}

			switch r {
			case '\r', '\x1b':
				// The result line is followed by a new prompt.
				waitFor(t, "result", cursorAt(promptX, promptY+2*cellH))
			case '\b':
				x -= cellW
				waitFor(t, "erase", cursorAt(x, promptY))
			default:
				x += cellW
				waitFor(t, "echo", cursorAt(x, promptY))
			}
		}

		resultY := promptY + cellH
		expLine.Clear()
		expLine.SetCursor(console.BorderPadding, resultY)
		if _, err := expLine.WriteString(spec.output); err != nil {
			t.Fatal(err)
		}

		if !bytes.Equal(lineBand(cons, resultY), lineBand(expLine, resultY)) {
			t.Errorf("[spec %d] expected line at y=%d to read %q", specIndex, resultY, spec.output)
		}
	}
}
