// Package tty implements line-oriented input on top of a key source and an
// echo sink.
package tty

import (
	"fbkernel/kernel/cpu"
	"fbkernel/kernel/kfmt"
	"io"
)

// Characters with a special meaning to the line editor.
const (
	// Terminator completes the line being edited.
	Terminator = '\r'

	// Backspace erases the last accepted character.
	Backspace = '\b'

	// Escape cancels the line being edited.
	Escape = '\x1b'

	// LineFeed cancels the line being edited; keyboards deliver Terminator
	// for the Enter key.
	LineFeed = '\n'

	// MaskChar is echoed in place of each character when EchoMask is used.
	MaskChar = '*'
)

// EchoPolicy controls how accepted characters are echoed back while a line
// is being edited.
type EchoPolicy uint8

// The supported echo policies.
const (
	// EchoOn echoes each character as typed.
	EchoOn EchoPolicy = iota

	// EchoOff echoes nothing.
	EchoOff

	// EchoMask echoes MaskChar for each character.
	EchoMask
)

var (
	disableInterruptsFn = cpu.DisableInterrupts
	enableInterruptsFn  = cpu.EnableInterrupts
	waitForInterruptFn  = cpu.WaitForInterrupt
)

// KeySource is implemented by objects that deliver key presses one
// character at a time. Take must be safe to call with interrupts disabled.
type KeySource interface {
	// Take removes and returns the next pending character. It returns
	// false if no character is pending.
	Take() (rune, bool)
}

// LineEditor reads lines from a KeySource. While a line is being edited the
// CPU idles between key presses.
type LineEditor struct {
	keys KeySource
	echo io.Writer

	line []rune
}

// NewLineEditor returns a line editor that reads characters from keys and
// echoes them to echo.
func NewLineEditor(keys KeySource, echo io.Writer) *LineEditor {
	return &LineEditor{
		keys: keys,
		echo: echo,
	}
}

// ReadLine blocks until a complete line has been typed and returns it
// together with true. If the line is canceled the partial input is discarded
// and ReadLine returns an empty string and false.
//
// Backspace removes the last accepted character; it is ignored while the
// line is empty so the cursor never moves before the start of the line.
// Neither the terminator nor the cancel characters are echoed.
func (e *LineEditor) ReadLine(policy EchoPolicy) (string, bool) {
	e.line = e.line[:0]

	for {
		switch r := e.nextKey(); r {
		case Backspace:
			if len(e.line) == 0 {
				continue
			}

			e.line = e.line[:len(e.line)-1]
			if policy != EchoOff {
				e.echoRune(Backspace)
			}
		case Escape, LineFeed:
			e.line = e.line[:0]
			return "", false
		case Terminator:
			return string(e.line), true
		default:
			e.line = append(e.line, r)
			switch policy {
			case EchoOn:
				e.echoRune(r)
			case EchoMask:
				e.echoRune(MaskChar)
			}
		}
	}
}

// Prompt writes prompt to the echo sink and reads a line with EchoOn. A
// canceled line is returned as an empty string.
func (e *LineEditor) Prompt(prompt string) string {
	kfmt.Fprintf(e.echo, "%s", prompt)

	line, _ := e.ReadLine(EchoOn)
	return line
}

// nextKey returns the next character from the key source, idling the CPU
// until one becomes available.
//
// Interrupts are disabled while the key source is checked; if it is empty,
// waitForInterruptFn atomically re-enables them and halts so a key press
// that arrives after the check still wakes the CPU. Interrupts from other
// devices also wake the CPU and cause the source to be checked again.
func (e *LineEditor) nextKey() rune {
	for {
		disableInterruptsFn()
		if r, ok := e.keys.Take(); ok {
			enableInterruptsFn()
			return r
		}

		waitForInterruptFn()
	}
}

func (e *LineEditor) echoRune(r rune) {
	kfmt.Fprintf(e.echo, "%c", r)
}
