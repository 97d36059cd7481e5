//go:build !baremetal

package cpu

import (
	"sync"
	"sync/atomic"
)

// PortBus is implemented by objects that emulate the devices behind the x86
// I/O port space when the kernel runs as a hosted process.
type PortBus interface {
	ReadPort(port uint16) uint8
	WritePort(port uint16, val uint8)
}

var (
	interruptFlag atomic.Bool
	wakeCh        = make(chan struct{}, 1)

	haltOnce sync.Once
	haltCh   = make(chan struct{})

	busMu sync.RWMutex
	bus   PortBus
)

// AttachPortBus routes all port I/O to b. Reads from an unattached bus return
// 0xff, which is what an ISA bus returns for an empty port.
func AttachPortBus(b PortBus) {
	busMu.Lock()
	bus = b
	busMu.Unlock()
}

// RaiseInterrupt wakes a CPU idling in WaitForInterrupt. A wakeup raised while
// the CPU is busy is latched so the next WaitForInterrupt returns at once.
func RaiseInterrupt() {
	select {
	case wakeCh <- struct{}{}:
	default:
	}
}

// Halted returns a channel that is closed once Halt has been called.
func Halted() <-chan struct{} {
	return haltCh
}

// EnableInterrupts enables interrupt handling.
func EnableInterrupts() {
	interruptFlag.Store(true)
}

// DisableInterrupts disables interrupt handling.
func DisableInterrupts() {
	interruptFlag.Store(false)
}

// InterruptsEnabled returns true if the emulated interrupt flag is set.
func InterruptsEnabled() bool {
	return interruptFlag.Load()
}

// Halt disables interrupts and parks the calling goroutine forever.
func Halt() {
	interruptFlag.Store(false)
	haltOnce.Do(func() { close(haltCh) })
	select {}
}

// WaitForInterrupt enables interrupts and blocks until RaiseInterrupt is
// called.
func WaitForInterrupt() {
	interruptFlag.Store(true)
	<-wakeCh
}

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(port uint16, val uint8) {
	busMu.RLock()
	b := bus
	busMu.RUnlock()

	if b != nil {
		b.WritePort(port, val)
	}
}

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8 {
	busMu.RLock()
	b := bus
	busMu.RUnlock()

	if b == nil {
		return 0xff
	}
	return b.ReadPort(port)
}
