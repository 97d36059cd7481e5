package main

import (
	"log/slog"
	"sync"
)

const (
	ps2DataPort   = 0x60
	ps2StatusPort = 0x64

	picMasterCmdPort  = 0x20
	picMasterDataPort = 0x21
	picSlaveCmdPort   = 0xa0
	picSlaveDataPort  = 0xa1

	ps2StatusOutputFull = 1 << 0

	// ps2BufferSize is the number of scan codes buffered by the emulated
	// controller; codes arriving while the buffer is full are dropped.
	ps2BufferSize = 64
)

// ps2Controller emulates the port-mapped devices the kernel talks to: the
// PS/2 keyboard controller and the mask registers of the 8259 PIC pair. It
// implements cpu.PortBus.
type ps2Controller struct {
	mu sync.Mutex

	pending []uint8
	masks   [2]uint8
	eois    int

	logger *slog.Logger
}

func newPS2Controller(logger *slog.Logger) *ps2Controller {
	return &ps2Controller{
		masks:  [2]uint8{0xff, 0xff},
		logger: logger,
	}
}

// ReadPort implements cpu.PortBus.
func (c *ps2Controller) ReadPort(port uint16) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch port {
	case ps2StatusPort:
		if len(c.pending) != 0 {
			return ps2StatusOutputFull
		}
		return 0
	case ps2DataPort:
		if len(c.pending) == 0 {
			return 0
		}
		code := c.pending[0]
		c.pending = c.pending[1:]
		return code
	case picMasterDataPort:
		return c.masks[0]
	case picSlaveDataPort:
		return c.masks[1]
	}

	c.logger.Debug("read from unmapped port", "port", port)
	return 0xff
}

// WritePort implements cpu.PortBus.
func (c *ps2Controller) WritePort(port uint16, val uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch port {
	case picMasterDataPort:
		c.masks[0] = val
	case picSlaveDataPort:
		c.masks[1] = val
	case picMasterCmdPort, picSlaveCmdPort:
		if val == 0x20 {
			c.eois++
		}
	default:
		c.logger.Debug("write to unmapped port", "port", port, "value", val)
	}
}

// push queues a scan code. It returns false if the code was dropped.
func (c *ps2Controller) push(code uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) >= ps2BufferSize {
		return false
	}

	c.pending = append(c.pending, code)
	return true
}

// irqEnabled returns true if the PIC delivers the given IRQ line.
func (c *ps2Controller) irqEnabled(line uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if line >= 8 {
		return c.masks[1]&(1<<(line-8)) == 0 && c.masks[0]&(1<<2) == 0
	}
	return c.masks[0]&(1<<line) == 0
}

// hasPending returns true if the controller holds unread scan codes.
func (c *ps2Controller) hasPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending) != 0
}
