// Package irq routes hardware interrupt requests raised through the legacy
// 8259 programmable interrupt controllers to Go handlers.
package irq

import (
	"fbkernel/kernel"
	"fbkernel/kernel/cpu"
)

// Line identifies one of the 16 IRQ lines served by the master/slave PIC pair.
type Line uint8

const (
	// Timer is wired to the programmable interval timer.
	Timer = Line(0)

	// Keyboard is wired to the PS/2 controller's first port.
	Keyboard = Line(1)

	// Cascade connects the slave PIC to the master; it never fires.
	Cascade = Line(2)

	// NumLines is the number of IRQ lines.
	NumLines = 16
)

const (
	// VectorOffset is the interrupt vector that IRQ 0 is remapped to. IRQs
	// 0-7 use vectors 0x20-0x27 and IRQs 8-15 use 0x28-0x2f so they do not
	// collide with the CPU exception vectors.
	VectorOffset = 0x20

	masterCmdPort  = 0x20
	masterDataPort = 0x21
	slaveCmdPort   = 0xa0
	slaveDataPort  = 0xa1

	icw1Init     = 0x11 // ICW1: edge triggered, cascade mode, ICW4 needed
	icw4Mode8086 = 0x01
	cmdEOI       = 0x20
)

// Handler is invoked in interrupt context when its IRQ line fires. Handlers
// run with interrupts disabled and must not block.
type Handler func()

var (
	portWriteByteFn = cpu.PortWriteByte
	portReadByteFn  = cpu.PortReadByte

	handlers [NumLines]Handler

	errInvalidLine = &kernel.Error{Module: "irq", Message: "invalid IRQ line"}
)

// Init remaps both PICs so that IRQs are delivered at VectorOffset and masks
// every line. Lines are unmasked as handlers get registered.
func Init() {
	portWriteByteFn(masterCmdPort, icw1Init)
	portWriteByteFn(slaveCmdPort, icw1Init)
	portWriteByteFn(masterDataPort, VectorOffset)
	portWriteByteFn(slaveDataPort, VectorOffset+8)
	portWriteByteFn(masterDataPort, 1<<uint8(Cascade)) // slave attached to IRQ 2
	portWriteByteFn(slaveDataPort, uint8(Cascade))     // slave cascade identity
	portWriteByteFn(masterDataPort, icw4Mode8086)
	portWriteByteFn(slaveDataPort, icw4Mode8086)

	// Mask everything except the cascade line.
	portWriteByteFn(masterDataPort, ^uint8(1<<uint8(Cascade)))
	portWriteByteFn(slaveDataPort, 0xff)
}

// HandleIRQ registers h as the handler for line and unmasks the line. Passing
// a nil handler masks the line again.
func HandleIRQ(line Line, h Handler) *kernel.Error {
	if line >= NumLines || line == Cascade {
		return errInvalidLine
	}

	handlers[line] = h
	setMasked(line, h == nil)
	return nil
}

// Dispatch is the entrypoint invoked by the platform interrupt trampolines
// for vectors VectorOffset to VectorOffset+15. It runs the handler registered
// for line (if any) and acknowledges the interrupt so the PIC can deliver the
// next one. Lines without a handler are acknowledged and otherwise ignored.
func Dispatch(line Line) {
	if line >= NumLines {
		return
	}

	if h := handlers[line]; h != nil {
		h()
	}

	if line >= 8 {
		portWriteByteFn(slaveCmdPort, cmdEOI)
	}
	portWriteByteFn(masterCmdPort, cmdEOI)
}

// setMasked updates the PIC interrupt mask register bit for line.
func setMasked(line Line, masked bool) {
	port, bit := uint16(masterDataPort), uint8(line)
	if line >= 8 {
		port, bit = slaveDataPort, uint8(line-8)
	}

	mask := portReadByteFn(port)
	if masked {
		mask |= 1 << bit
	} else {
		mask &^= 1 << bit
	}
	portWriteByteFn(port, mask)
}
