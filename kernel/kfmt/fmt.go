// Package kfmt provides the kernel's formatted output entry points. All
// kernel subsystems print through Printf; output produced before a console is
// available is kept in a ring buffer and replayed once SetOutputSink attaches
// one.
package kfmt

import (
	"fmt"
	"io"
)

var (
	// earlyPrintBuffer is a ring buffer that stores Printf output before the
	// console is initialized.
	earlyPrintBuffer ringBuffer

	// outputSink is a io.Writer where Printf will send its output. If set
	// to nil, then the output will be redirected to the earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the default target for calls to Printf to w and copies
// any data accumulated in the earlyPrintBuffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the default target for calls to Printf. If no sink
// has been attached yet, the early print buffer is returned.
func GetOutputSink() io.Writer {
	if outputSink == nil {
		return &earlyPrintBuffer
	}
	return outputSink
}

// Printf formats according to a format specifier and writes the result to the
// active output sink. It accepts the same verbs as fmt.Printf. This is the
// only console entry point other kernel subsystems should use.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves exactly like Printf but it writes the formatted output to
// the specified io.Writer. A nil writer selects the early print buffer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	if w == nil {
		w = &earlyPrintBuffer
	}

	// Console writes never fail; a failing sink has nowhere to report to.
	_, _ = fmt.Fprintf(w, format, args...)
}
