package kfmt

import (
	"bytes"
	"errors"
	"fbkernel/kernel"
	"testing"
)

func TestPanic(t *testing.T) {
	defer func(origHaltFn func()) {
		cpuHaltFn = origHaltFn
		outputSink = nil
	}(cpuHaltFn)

	var cpuHaltCalled bool
	cpuHaltFn = func() {
		cpuHaltCalled = true
	}

	specs := []struct {
		name   string
		arg    interface{}
		expErr string
	}{
		{"with *kernel.Error", &kernel.Error{Module: "console", Message: "unsupported pixel format"}, "[console] unrecoverable error: unsupported pixel format\n"},
		{"with error", errors.New("go error"), "[rt] unrecoverable error: go error\n"},
		{"with string", "string error", "[rt] unrecoverable error: string error\n"},
		{"with other value", 42, "[rt] unrecoverable error: 42\n"},
		{"without error", nil, ""},
	}

	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			cpuHaltCalled = false

			var buf bytes.Buffer
			SetOutputSink(&buf)

			Panic(spec.arg)

			exp := "\n-----------------------------------\n" + spec.expErr + "*** kernel panic: system halted ***\n-----------------------------------\n"
			if got := buf.String(); got != exp {
				t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
			}

			if !cpuHaltCalled {
				t.Fatal("expected cpu.Halt() to be called by Panic")
			}
		})
	}
}
