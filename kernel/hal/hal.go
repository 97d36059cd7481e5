// Package hal detects the hardware the kernel runs on and exposes the text
// console and line-oriented keyboard input to the rest of the kernel.
package hal

import (
	"bytes"
	"fbkernel/device"
	"fbkernel/device/keyboard"
	"fbkernel/device/tty"
	"fbkernel/device/video/console"
	"fbkernel/kernel"
	"fbkernel/kernel/irq"
	"fbkernel/kernel/kfmt"
	"sort"
)

// managedDevices contains the devices discovered by the HAL.
type managedDevices struct {
	activeConsole *console.Driver
	activeKeys    *keyboard.Mailbox
	lineEditor    *tty.LineEditor

	// activeDrivers tracks all initialized device drivers.
	activeDrivers []device.Driver
}

var (
	devices managedDevices
	strBuf  bytes.Buffer

	irqInitFn    = irq.Init
	driverListFn = device.DriverList
	panicFn      = kfmt.Panic

	errNoConsole = &kernel.Error{Module: "hal", Message: "no usable framebuffer console detected"}
	errNoInput   = &kernel.Error{Module: "hal", Message: "line input requested before a console and a keyboard were initialized"}
)

// ActiveConsole returns the currently active console or nil if no console
// has been initialized.
func ActiveConsole() *console.Console {
	if devices.activeConsole == nil {
		return nil
	}
	return devices.activeConsole.Console
}

// Init sets up the interrupt controller and probes for hardware. It returns
// an error if no console could be initialized. Init expects the multiboot
// info pointer to be set.
func Init() *kernel.Error {
	irqInitFn()
	DetectHardware()

	if devices.activeConsole == nil {
		return errNoConsole
	}

	return nil
}

// InitFramebuffer initializes a console that renders into fb and makes it the
// active console. It is meant for callers that set up a framebuffer without
// help from the boot loader.
func InitFramebuffer(fb []byte, geom console.Geometry) *kernel.Error {
	var w = kfmt.PrefixWriter{Sink: kfmt.GetOutputSink()}
	return initDriver(console.NewDriver(fb, geom), &w)
}

// DetectHardware probes for hardware devices and initializes the appropriate
// drivers.
func DetectHardware() {
	// Get driver list and sort by detection priority
	drivers := driverListFn()
	sort.Sort(drivers)

	probe(drivers)
}

// ReadLine reads a line of keyboard input, echoing it to the active console
// according to policy. It returns false if the line was canceled.
//
// Calling ReadLine before both a console and a keyboard have been initialized
// causes a kernel panic.
func ReadLine(policy tty.EchoPolicy) (string, bool) {
	return activeLineEditor().ReadLine(policy)
}

// Prompt prints prompt on the active console and reads a line of input. A
// canceled line is returned as an empty string.
func Prompt(prompt string) string {
	return activeLineEditor().Prompt(prompt)
}

func activeLineEditor() *tty.LineEditor {
	if devices.lineEditor == nil {
		if devices.activeConsole == nil || devices.activeKeys == nil {
			panicFn(errNoInput)
			return nil
		}

		devices.lineEditor = tty.NewLineEditor(devices.activeKeys, devices.activeConsole)
	}

	return devices.lineEditor
}

// probe executes the probe function for each driver and invokes
// onDriverInit for each successfully initialized driver.
func probe(driverInfoList device.DriverInfoList) {
	var w kfmt.PrefixWriter

	for _, info := range driverInfoList {
		drv := info.Probe()
		if drv == nil {
			continue
		}

		// The output sink changes once a console is initialized.
		w.Sink = kfmt.GetOutputSink()
		_ = initDriver(drv, &w)
	}
}

// initDriver initializes drv logging its output through w and invokes
// onDriverInit if the initialization succeeds.
func initDriver(drv device.Driver, w *kfmt.PrefixWriter) *kernel.Error {
	strBuf.Reset()
	major, minor, patch := drv.DriverVersion()
	kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
	w.Prefix = strBuf.Bytes()

	if err := drv.DriverInit(w); err != nil {
		kfmt.Fprintf(w, "init failed: %s\n", err.Message)
		return err
	}

	kfmt.Fprintf(w, "initialized\n")
	onDriverInit(drv)
	devices.activeDrivers = append(devices.activeDrivers, drv)
	return nil
}

// onDriverInit is invoked by probe() whenever a piece of hardware is detected
// and successfully initialized.
func onDriverInit(drv device.Driver) {
	switch drvImpl := drv.(type) {
	case *console.Driver:
		onConsoleInit(drvImpl)
	case *keyboard.Driver:
		if devices.activeKeys != nil {
			return
		}

		devices.activeKeys = drvImpl.Mailbox()
	}
}

// onConsoleInit is invoked whenever a console is initialized. If this is the
// first found console it automatically becomes the active console and the
// sink for kernel output; anything printed so far is replayed to it.
func onConsoleInit(cons *console.Driver) {
	if devices.activeConsole != nil {
		return
	}

	devices.activeConsole = cons
	kfmt.SetOutputSink(cons)
}
