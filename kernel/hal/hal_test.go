package hal

import (
	"bytes"
	"fbkernel/device"
	"fbkernel/device/keyboard"
	"fbkernel/device/tty"
	"fbkernel/device/video/console"
	"fbkernel/kernel"
	"fbkernel/kernel/cpu"
	"fbkernel/kernel/irq"
	"fbkernel/kernel/kfmt"
	"fbkernel/multiboot"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
	"unsafe"
)

// fakePS2Bus emulates the PS/2 controller and the PIC mask registers.
type fakePS2Bus struct {
	mu      sync.Mutex
	pending []uint8
	masks   map[uint16]uint8
}

func newFakePS2Bus() *fakePS2Bus {
	return &fakePS2Bus{masks: make(map[uint16]uint8)}
}

func (b *fakePS2Bus) ReadPort(port uint16) uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch port {
	case 0x64:
		if len(b.pending) != 0 {
			return 1
		}
		return 0
	case 0x60:
		if len(b.pending) == 0 {
			return 0
		}
		code := b.pending[0]
		b.pending = b.pending[1:]
		return code
	}
	return b.masks[port]
}

func (b *fakePS2Bus) WritePort(port uint16, val uint8) {
	b.mu.Lock()
	b.masks[port] = val
	b.mu.Unlock()
}

// press emulates a key press: each scan code raises IRQ 1.
func (b *fakePS2Bus) press(t *testing.T, r rune) {
	codes, ok := keyboard.Encode(r)
	if !ok {
		t.Fatalf("no key produces %q", r)
	}

	for _, code := range codes {
		b.mu.Lock()
		b.pending = append(b.pending, code)
		b.mu.Unlock()

		irq.Dispatch(irq.Keyboard)
		cpu.RaiseInterrupt()
	}
}

type bootEnv struct {
	fb   []byte
	bus  *fakePS2Bus
	info []byte
}

// setupBootEnv builds a multiboot info block describing a framebuffer backed
// by a Go slice and attaches a fake PS/2 controller.
func setupBootEnv(t *testing.T, cmdLine string, withFramebuffer bool) *bootEnv {
	t.Helper()

	env := &bootEnv{
		fb:  make([]byte, 320*4*200),
		bus: newFakePS2Bus(),
	}

	builder := new(multiboot.InfoBuilder).AddCmdLine(cmdLine)
	if withFramebuffer {
		builder.AddFramebuffer(
			multiboot.FramebufferInfo{
				PhysAddr: uint64(uintptr(unsafe.Pointer(&env.fb[0]))),
				Pitch:    320 * 4,
				Width:    320,
				Height:   200,
				Bpp:      32,
				Type:     multiboot.FramebufferTypeRGB,
			},
			multiboot.FramebufferRGBColorInfo{RedPosition: 16, RedMaskSize: 8, GreenPosition: 8, GreenMaskSize: 8, BlueMaskSize: 8},
		)
	}
	env.info = builder.Build()

	multiboot.SetInfoPtr(uintptr(unsafe.Pointer(&env.info[0])))
	cpu.AttachPortBus(env.bus)

	t.Cleanup(func() {
		devices = managedDevices{}
		kfmt.SetOutputSink(nil)
		multiboot.SetInfoPtr(0)
		cpu.AttachPortBus(nil)
		_ = irq.HandleIRQ(irq.Keyboard, nil)
	})

	return env
}

func TestInit(t *testing.T) {
	env := setupBootEnv(t, "consoleFont=inconsolata-8x17", true)

	// Output printed before the console exists is replayed to it.
	kfmt.Printf("booting\n")

	if err := Init(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cons := ActiveConsole()
	if cons == nil {
		t.Fatal("expected an active console")
	}

	if got := cons.Geometry(); got.Width != 320 || got.Height != 200 || got.Format != console.PixelFormatBGR {
		t.Fatalf("unexpected console geometry %+v", got)
	}

	if w, h := cons.CellSize(); w != 8 || h != 17+console.LineSpacing {
		t.Fatalf("expected the font requested on the command line to be used; got %dx%d cells", w, h)
	}

	var names []string
	for _, drv := range devices.activeDrivers {
		names = append(names, drv.DriverName())
	}

	if exp := "fb_console,ps2_keyboard"; strings.Join(names, ",") != exp {
		t.Fatalf("expected initialized drivers %q; got %q", exp, strings.Join(names, ","))
	}

	if devices.activeKeys == nil {
		t.Fatal("expected the keyboard mailbox to be attached")
	}

	if bytes.Equal(env.fb, make([]byte, len(env.fb))) {
		t.Fatal("expected the boot log to be rendered to the framebuffer")
	}
}

func TestInitWithoutFramebuffer(t *testing.T) {
	setupBootEnv(t, "", false)

	if err := Init(); err != errNoConsole {
		t.Fatalf("expected errNoConsole; got %v", err)
	}

	if ActiveConsole() != nil {
		t.Fatal("expected no active console")
	}
}

func TestInitFramebuffer(t *testing.T) {
	setupBootEnv(t, "", false)

	fb := make([]byte, 64*64)
	geom := console.Geometry{Width: 64, Height: 64, Pitch: 64, BytesPerPixel: 1, Format: console.PixelFormatU8}

	if err := InitFramebuffer(fb[:10], geom); err == nil {
		t.Fatal("expected an error for a framebuffer smaller than its geometry")
	}

	if ActiveConsole() != nil {
		t.Fatal("expected a failed init not to change the active console")
	}

	if err := InitFramebuffer(fb, geom); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ActiveConsole() == nil {
		t.Fatal("expected InitFramebuffer to set the active console")
	}

	// A second console does not replace the active one.
	first := ActiveConsole()
	if err := InitFramebuffer(make([]byte, 64*64), geom); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ActiveConsole() != first {
		t.Fatal("expected the first console to remain active")
	}
}

func TestProbeSkipsFailedDrivers(t *testing.T) {
	setupBootEnv(t, "", false)
	defer func() { driverListFn = device.DriverList }()

	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)

	driverListFn = func() device.DriverInfoList {
		return device.DriverInfoList{
			{Order: device.DetectOrderLast, Probe: func() device.Driver { return nil }},
			{Order: device.DetectOrderNormal, Probe: func() device.Driver { return &failingDriver{} }},
		}
	}

	DetectHardware()

	if len(devices.activeDrivers) != 0 {
		t.Fatalf("expected no active drivers; got %d", len(devices.activeDrivers))
	}

	if exp := "[hal] failing(1.2.3): init failed: no device\n"; buf.String() != exp {
		t.Fatalf("expected log output %q; got %q", exp, buf.String())
	}
}

func TestReadLine(t *testing.T) {
	env := setupBootEnv(t, "", true)
	if err := Init(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cons := ActiveConsole()

	// pressAndWait types r and waits for it to be echoed.
	pressAndWait := func(r rune) {
		x, y := cons.Cursor()
		env.bus.press(t, r)

		for deadline := time.Now().Add(5 * time.Second); time.Now().Before(deadline); time.Sleep(time.Millisecond) {
			if nx, ny := cons.Cursor(); nx != x || ny != y {
				return
			}
		}
		t.Fatalf("timed out waiting for %q to be echoed", r)
	}

	specs := []struct {
		keys    string
		last    rune
		expLine string
		expOK   bool
	}{
		{"hi", '\r', "hi", true},
		{"hi", keyboard.Escape, "", false},
		{"h\bi", '\r', "i", true},
	}

	for specIndex, spec := range specs {
		type result struct {
			line string
			ok   bool
		}
		resCh := make(chan result, 1)

		go func() {
			line, ok := ReadLine(tty.EchoOn)
			resCh <- result{line, ok}
		}()

		for _, r := range spec.keys {
			pressAndWait(r)
		}

		select {
		case res := <-resCh:
			t.Fatalf("[spec %d] ReadLine returned (%q, %t) before the line was complete", specIndex, res.line, res.ok)
		default:
		}

		env.bus.press(t, spec.last)

		select {
		case res := <-resCh:
			if res.line != spec.expLine || res.ok != spec.expOK {
				t.Errorf("[spec %d] expected (%q, %t); got (%q, %t)", specIndex, spec.expLine, spec.expOK, res.line, res.ok)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("[spec %d] timed out waiting for ReadLine to return", specIndex)
		}
	}
}

func TestReadLineBeforeInit(t *testing.T) {
	setupBootEnv(t, "", false)
	defer func() { panicFn = kfmt.Panic }()

	panicFn = func(e interface{}) { panic(e) }

	defer func() {
		if err := recover(); err != errNoInput {
			t.Fatalf("expected panic with errNoInput; got %v", err)
		}
	}()

	ReadLine(tty.EchoOn)
}

type failingDriver struct{}

func (*failingDriver) DriverName() string                     { return "failing" }
func (*failingDriver) DriverVersion() (uint16, uint16, uint16) { return 1, 2, 3 }
func (*failingDriver) DriverInit(_ io.Writer) *kernel.Error {
	return &kernel.Error{Module: "test", Message: "no device"}
}
