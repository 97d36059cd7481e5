package main

import (
	"fbkernel/device/keyboard"
	"fbkernel/device/video/console"
	"fbkernel/kernel/cpu"
	"fbkernel/kernel/irq"
	"fbkernel/kernel/kmain"
	"fbkernel/multiboot"
	"log/slog"
	"unsafe"
)

// machine is a simulated PC: video memory, a PS/2 keyboard and the boot
// information handed to the kernel.
type machine struct {
	geom console.Geometry

	// vram backs the framebuffer. The kernel accesses it through the
	// physical address published in the boot information.
	vram []byte

	// bootInfo holds the multiboot information block; it must stay
	// reachable while the kernel runs.
	bootInfo []byte

	ps2    *ps2Controller
	logger *slog.Logger
}

func newMachine(cfg *config, logger *slog.Logger) (*machine, error) {
	geom, err := cfg.geometry()
	if err != nil {
		return nil, err
	}

	m := &machine{
		geom:   geom,
		vram:   make([]byte, geom.Height*geom.Pitch),
		ps2:    newPS2Controller(logger),
		logger: logger,
	}

	fbInfo, colorInfo := framebufferTag(geom, uintptr(unsafe.Pointer(&m.vram[0])))
	m.bootInfo = new(multiboot.InfoBuilder).
		AddBootLoaderName("fbsim").
		AddCmdLine(cfg.bootCmdLine()).
		AddFramebuffer(fbInfo, colorInfo).
		Build()

	return m, nil
}

// boot attaches the emulated devices and starts the kernel in a new
// goroutine. The kernel never returns; cpu.Halted is closed once a fatal
// kernel error halts it.
func (m *machine) boot() {
	cpu.AttachPortBus(m.ps2)

	m.logger.Info("booting kernel",
		"width", m.geom.Width,
		"height", m.geom.Height,
		"pitch", m.geom.Pitch,
		"bpp", m.geom.BytesPerPixel,
		"format", m.geom.Format.String(),
	)

	go kmain.Kmain(uintptr(unsafe.Pointer(&m.bootInfo[0])))
}

// typeRune emulates typing r on the keyboard. Each scan code of the key
// raises IRQ 1 if the kernel has unmasked it. It returns false if no key
// produces r.
func (m *machine) typeRune(r rune) bool {
	codes, ok := keyboard.Encode(r)
	if !ok {
		m.logger.Debug("no key for rune", "rune", string(r))
		return false
	}

	for _, code := range codes {
		if !m.ps2.push(code) {
			m.logger.Warn("keyboard buffer full; dropping scan code", "code", code)
			continue
		}
		m.deliverKeyboardIRQ()
	}

	return true
}

// deliverKeyboardIRQ raises IRQ 1 for each buffered scan code.
func (m *machine) deliverKeyboardIRQ() {
	for m.ps2.hasPending() && m.ps2.irqEnabled(uint8(irq.Keyboard)) {
		irq.Dispatch(irq.Keyboard)
		cpu.RaiseInterrupt()
	}
}
