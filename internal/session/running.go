package session

import "context"

// Advance progresses the session by exactly one step: if the handshake has
// not completed, it drives the handshake to completion (or failure); once
// Running, it flushes queued input, then reads and dispatches one server
// message. It blocks only on ctx-respecting transport I/O and never
// partially applies a message.
func (e *Engine) Advance(ctx context.Context) error {
	if e.state == stateClosed {
		return ErrClosed
	}
	if e.state == stateAwaitingVersion {
		return e.runHandshake(ctx)
	}
	if err := e.flushInputQueue(ctx); err != nil {
		return err
	}
	return e.readServerMessage(ctx)
}
