package kfmt

import (
	"bytes"
	"testing"
)

func TestPrintfToRingBuffer(t *testing.T) {
	defer func() {
		outputSink = nil
		earlyPrintBuffer = ringBuffer{}
	}()

	outputSink = nil
	Printf("[%s] %dx%d\n", "console", 640, 480)

	if GetOutputSink() != &earlyPrintBuffer {
		t.Fatal("expected GetOutputSink to return the early print buffer while no sink is attached")
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)

	exp := "[console] 640x480\n"
	if got := buf.String(); got != exp {
		t.Fatalf("expected SetOutputSink to replay buffered output %q; got %q", exp, got)
	}

	Printf("String entered is '%s'\n", "hi")
	exp += "String entered is 'hi'\n"
	if got := buf.String(); got != exp {
		t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
	}

	if GetOutputSink() != &buf {
		t.Fatal("expected GetOutputSink to return the attached sink")
	}
}

func TestFprintf(t *testing.T) {
	var buf bytes.Buffer

	Fprintf(&buf, "%c%s %q", 'h', "ello", "world")

	if exp, got := "hello \"world\"", buf.String(); got != exp {
		t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
	}
}
