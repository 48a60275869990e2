package session

import (
	"context"

	"golang.org/x/time/rate"
)

// pointerRateLimit caps the rate of outbound PointerMove writes; bursts up
// to pointerBurst pass through untouched. Pacing is enforced by dropping
// superseded samples at flush time via Limiter.Allow — never by blocking —
// so Advance still suspends only on transport I/O. A PointerMove with no
// newer sample behind it is always written, whatever the limiter says, so
// the pointer always lands on its final position. Key events, clipboard
// text and refresh requests are never rate-limited.
const (
	pointerRateLimit = rate.Limit(60) // events/sec
	pointerBurst     = 8
)

// Input queues one caller event for the next Advance call. It never
// performs I/O itself.
func (e *Engine) Input(ev InputEvent) error {
	if e.state == stateClosed {
		return ErrClosed
	}
	if r, ok := ev.(Refresh); ok {
		ev = e.clampRefresh(r)
	}
	e.inQueue = append(e.inQueue, ev)
	return nil
}

// clampRefresh enforces InvalidInput handling locally: an out-of-bounds
// refresh rectangle is clamped to the known framebuffer size rather than
// surfaced as an error.
func (e *Engine) clampRefresh(r Refresh) Refresh {
	if r.X < 0 {
		r.X = 0
	}
	if r.Y < 0 {
		r.Y = 0
	}
	if r.X > e.fb.Width {
		r.X = e.fb.Width
	}
	if r.Y > e.fb.Height {
		r.Y = e.fb.Height
	}
	if r.X+r.W > e.fb.Width {
		r.W = e.fb.Width - r.X
	}
	if r.Y+r.H > e.fb.Height {
		r.H = e.fb.Height - r.Y
	}
	if r.W < 0 {
		r.W = 0
	}
	if r.H < 0 {
		r.H = 0
	}
	return r
}

// flushInputQueue writes every queued input event to the wire in
// submission order. PointerMove samples that have a newer sample queued
// behind them may be coalesced away by the rate limiter; everything else
// is written unconditionally.
func (e *Engine) flushInputQueue(ctx context.Context) error {
	lastPointer := -1
	for i, ev := range e.inQueue {
		if _, ok := ev.(PointerMove); ok {
			lastPointer = i
		}
	}
	for i, ev := range e.inQueue {
		e.writeInputEvent(ev, i < lastPointer)
	}
	e.inQueue = e.inQueue[:0]
	if err := e.conn.Flush(ctx); err != nil {
		return e.fail("TransportClosed", "failed flushing input events", err)
	}
	return nil
}

// writeInputEvent buffers one event's wire form. superseded is true for a
// PointerMove with a newer sample still queued behind it, making it safe
// to coalesce away when the limiter denies it a slot.
func (e *Engine) writeInputEvent(ev InputEvent, superseded bool) {
	switch v := ev.(type) {
	case PointerMove:
		if e.limiter == nil {
			e.limiter = rate.NewLimiter(pointerRateLimit, pointerBurst)
		}
		if superseded && !e.limiter.Allow() {
			return
		}
		e.conn.WriteU8(5)
		e.conn.WriteU8(v.Buttons)
		e.conn.WriteU16(uint16(v.X))
		e.conn.WriteU16(uint16(v.Y))
	case Key:
		e.conn.WriteU8(4)
		if v.Pressed {
			e.conn.WriteU8(1)
		} else {
			e.conn.WriteU8(0)
		}
		e.conn.WriteU16(0)
		e.conn.WriteU32(v.Keysym)
	case ClipboardText:
		e.conn.WriteU8(6)
		e.conn.WriteU8(0)
		e.conn.WriteU16(0)
		e.conn.WriteString(v.UTF8)
	case Refresh:
		e.writeFramebufferUpdateRequest(v.Incremental, v.X, v.Y, v.W, v.H)
	case SetEncodings:
		e.acceptedEncodings = v.List
		e.writeSetEncodings(v.List)
	}
}
