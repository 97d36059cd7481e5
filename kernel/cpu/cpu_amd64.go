//go:build baremetal

package cpu

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// InterruptsEnabled returns true if the interrupt flag is set for the
// current CPU.
func InterruptsEnabled() bool

// Halt disables interrupts and stops instruction execution. Calls to Halt
// never return.
func Halt()

// WaitForInterrupt enables interrupts and idles the CPU until the next
// interrupt arrives. The sti/hlt pair executes atomically so an interrupt
// that fires right after interrupts are enabled still wakes the CPU.
func WaitForInterrupt()

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(port uint16, val uint8)

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8
