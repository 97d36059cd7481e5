// Package sync provides synchronization primitive implementations for spinlocks
// that can be shared between regular kernel code and interrupt handlers.
package sync

import (
	"fbkernel/kernel/cpu"
	"sync/atomic"
)

const attemptsBeforeYielding = 64

var (
	// yieldFn is invoked by spinning tasks after attemptsBeforeYielding
	// failed attempts. It is nil until a scheduler exists.
	yieldFn func()

	interruptsEnabledFn = cpu.InterruptsEnabled
	disableInterruptsFn = cpu.DisableInterrupts
	enableInterruptsFn  = cpu.EnableInterrupts
)

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	for {
		for i := 0; i < attemptsBeforeYielding; i++ {
			if atomic.CompareAndSwapUint32(&l.state, 0, 1) {
				return
			}
		}

		if yieldFn != nil {
			yieldFn()
		}
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}

// IRQSpinlock is a Spinlock that masks interrupts on the local CPU while it is
// held. It must be used for any state shared with an interrupt handler: if the
// handler fired while regular code held a plain Spinlock it would spin forever
// on a lock whose owner can never run again.
//
// Acquire records whether interrupts were enabled and Release restores that
// state, so the lock can be taken from inside an interrupt handler (where
// interrupts are already masked) as well as from regular code.
type IRQSpinlock struct {
	lock    Spinlock
	restore bool
}

// Acquire masks interrupts and acquires the lock.
func (l *IRQSpinlock) Acquire() {
	enabled := interruptsEnabledFn()
	disableInterruptsFn()
	l.lock.Acquire()
	l.restore = enabled
}

// Release releases the lock and re-enables interrupts if they were enabled
// when Acquire was called.
func (l *IRQSpinlock) Release() {
	restore := l.restore
	l.restore = false
	l.lock.Release()

	if restore {
		enableInterruptsFn()
	}
}
