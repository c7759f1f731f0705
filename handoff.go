package filterbank

import (
	"sync"
	"sync/atomic"
)

// AbortSignal is the process-wide cooperative cancellation flag. The signal
// handler and the sentinel-state check only ever Set it; all real cleanup
// happens in the acquirer and writer loops at their checkpoints.
type AbortSignal struct {
	flag atomic.Bool
}

// Set raises the flag. Safe to call from any goroutine, repeatedly.
func (a *AbortSignal) Set() { a.flag.Store(true) }

// IsSet reports whether cancellation has been requested.
func (a *AbortSignal) IsSet() bool { return a.flag.Load() }

// Handoff is the single-slot rendezvous that transfers exclusive ownership
// of a filled SweepBuffer from the acquirer to the writer. It holds at most
// one pending buffer; the double-buffer alternation in the acquirer
// guarantees the slot has been drained before it is filled again. If that
// invariant is ever violated the behavior is last-writer-wins, which is an
// accepted limitation rather than a guarantee.
type Handoff struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending BufferID
	closed  bool
}

// NewHandoff returns an empty, open Handoff.
func NewHandoff() *Handoff {
	h := &Handoff{pending: BufNone}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish makes the given buffer available to the writer and wakes it.
// It never blocks: the slot is a mailbox, not a queue.
func (h *Handoff) Publish(id BufferID) {
	h.mu.Lock()
	if h.pending != BufNone {
		ProblemLogger.Printf("handoff slot overwritten: buffer %v replaced by %v before it was taken", h.pending, id)
	}
	h.pending = id
	h.mu.Unlock()
	h.cond.Signal()
}

// Take blocks until a buffer is pending or the handoff is closed. It
// atomically claims and clears the slot. The second return value is false
// only when the handoff is closed and nothing is pending: the writer should
// then terminate. A buffer published before Close is still delivered.
func (h *Handoff) Take() (BufferID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for h.pending == BufNone && !h.closed {
		h.cond.Wait()
	}
	if h.pending == BufNone {
		return BufNone, false
	}
	id := h.pending
	h.pending = BufNone
	return id, true
}

// Close marks the end of production and wakes a blocked Take. Closing twice
// is harmless.
func (h *Handoff) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.cond.Broadcast()
}

// Pending returns the current slot value without claiming it. Used by tests
// and status reporting only.
func (h *Handoff) Pending() BufferID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending
}
