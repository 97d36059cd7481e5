// Package kmain contains the Go entrypoint of the kernel.
package kmain

import (
	"fbkernel/kernel"
	"fbkernel/kernel/cpu"
	"fbkernel/kernel/hal"
	"fbkernel/kernel/kfmt"
	"fbkernel/multiboot"
)

// Prompt is shown before each line of input is read.
const Prompt = "Enter string: "

var (
	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

	halInitFn          = hal.Init
	promptFn           = hal.Prompt
	enableInterruptsFn = cpu.EnableInterrupts
	panicFn            = kfmt.Panic

	// maxLines limits the number of lines read by Kmain. Zero means no
	// limit.
	maxLines int
)

// Kmain is the kernel entrypoint. With the baremetal build tag it is called
// from main in stub.go; the fbsim simulator runs it in its own goroutine. In
// both cases multibootInfoPtr is the address of a multiboot2 information
// block describing the framebuffer and the kernel command line.
//
// Fatal errors raised with panic anywhere below Kmain are recovered once the
// panicking code has released its locks and reported through kfmt.Panic,
// which halts the CPU. Kmain is not expected to return.
//
//go:noinline
func Kmain(multibootInfoPtr uintptr) {
	defer func() {
		if err := recover(); err != nil {
			panicFn(err)
		}
	}()

	multiboot.SetInfoPtr(multibootInfoPtr)

	if err := halInitFn(); err != nil {
		panicFn(err)
		return
	}

	if name := multiboot.GetBootLoaderName(); name != "" {
		kfmt.Printf("Booted by %s\n", name)
	}
	kfmt.Printf("Starting fbkernel\n")

	// Keyboard interrupts are delivered from here on.
	enableInterruptsFn()

	for lines := 0; maxLines == 0 || lines < maxLines; lines++ {
		echoLine()
	}

	// Use kfmt.Panic instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	panicFn(errKmainReturned)
}

// echoLine reads a line of input and prints it back. A canceled line is
// printed as an empty string.
func echoLine() {
	input := promptFn(Prompt)
	kfmt.Printf("\nString entered is '%s'\n", input)
}
