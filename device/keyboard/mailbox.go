package keyboard

import "fbkernel/kernel/sync"

// Mailbox is a single-slot hand-off between the keyboard interrupt handler
// (producer) and regular kernel code (consumer). Publishing into a full
// mailbox overwrites the pending character; a slow consumer only ever sees
// the most recent key press.
//
// Both methods may be called from interrupt context.
type Mailbox struct {
	lock sync.IRQSpinlock

	ch      rune
	pending bool
}

// Publish stores r as the pending character, replacing any character that
// has not been taken yet.
func (mb *Mailbox) Publish(r rune) {
	mb.lock.Acquire()
	mb.ch, mb.pending = r, true
	mb.lock.Release()
}

// Take removes and returns the pending character. The second return value is
// false if no character was pending.
func (mb *Mailbox) Take() (rune, bool) {
	mb.lock.Acquire()
	r, ok := mb.ch, mb.pending
	mb.ch, mb.pending = 0, false
	mb.lock.Release()

	return r, ok
}
