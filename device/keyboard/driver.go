// Package keyboard implements a driver for the PS/2 keyboard. Key presses are
// decoded in interrupt context and handed to regular kernel code through a
// single-slot Mailbox.
package keyboard

import (
	"fbkernel/device"
	"fbkernel/kernel"
	"fbkernel/kernel/cpu"
	"fbkernel/kernel/irq"
	"fbkernel/kernel/kfmt"
	"io"
)

const (
	dataPort   = 0x60
	statusPort = 0x64

	// statusOutputFull is set in the status register while the
	// controller has a byte waiting in the data port.
	statusOutputFull = 1 << 0

	// maxDrainReads bounds the number of stale bytes discarded while
	// initializing the controller.
	maxDrainReads = 16
)

var (
	portReadByteFn = cpu.PortReadByte
	handleIRQFn    = irq.HandleIRQ
)

// Driver services the interrupts raised by the PS/2 keyboard and publishes
// the decoded characters to its Mailbox.
type Driver struct {
	decoder Decoder
	mailbox Mailbox
}

// Mailbox returns the mailbox that receives the characters typed on the
// keyboard.
func (drv *Driver) Mailbox() *Mailbox {
	return &drv.mailbox
}

// HandleInterrupt reads the pending scan code from the controller and
// publishes the character it produces, if any. It is invoked in interrupt
// context for each IRQ raised by the keyboard.
func (drv *Driver) HandleInterrupt() {
	code := portReadByteFn(dataPort)
	if r, ok := drv.decoder.Feed(code); ok {
		drv.mailbox.Publish(r)
	}
}

// DriverName returns the name of this driver.
func (drv *Driver) DriverName() string {
	return "ps2_keyboard"
}

// DriverVersion returns the version of this driver.
func (drv *Driver) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit discards any scan codes buffered by the controller before the
// driver was loaded and registers the keyboard interrupt handler.
func (drv *Driver) DriverInit(w io.Writer) *kernel.Error {
	var drained int
	for ; drained < maxDrainReads && portReadByteFn(statusPort)&statusOutputFull != 0; drained++ {
		portReadByteFn(dataPort)
	}

	if drained != 0 {
		kfmt.Fprintf(w, "discarded %d stale scan codes\n", drained)
	}

	if err := handleIRQFn(irq.Keyboard, drv.HandleInterrupt); err != nil {
		return err
	}

	kfmt.Fprintf(w, "listening on IRQ %d\n", irq.Keyboard)
	return nil
}

// probeForPS2Keyboard checks for the presence of a PS/2 controller. Reading
// the status register of a missing controller returns 0xff.
func probeForPS2Keyboard() device.Driver {
	if portReadByteFn(statusPort) == 0xff {
		return nil
	}

	return new(Driver)
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderNormal,
		Probe: probeForPS2Keyboard,
	})
}
