package vncengine

import (
	"context"

	"github.com/rjsadow/vncengine/internal/session"
)

// Client is a thin facade over the session engine: Advance drives the
// handshake and one round of the running loop, PollEvent drains decoded
// output, Input submits pointer/key/clipboard/refresh requests, and Close
// tears the connection down. Not safe for concurrent use.
type Client struct {
	engine *session.Engine
}

// Advance performs the next unit of protocol work: the handshake on first
// call, then one FramebufferUpdate (or other server message) per call
// afterward, flushing any queued input first. Blocks on ctx, so callers
// wanting a timeout race it against their own timer.
func (c *Client) Advance(ctx context.Context) error {
	return c.engine.Advance(ctx)
}

// PollEvent removes and returns the oldest pending OutputEvent, if any.
func (c *Client) PollEvent() (OutputEvent, bool) {
	return c.engine.PollEvent()
}

// Input submits a client-to-server event. It is queued, not written
// immediately; the next Advance call flushes the queue before reading.
func (c *Client) Input(ev InputEvent) error {
	return c.engine.Input(ev)
}

// Close flushes any buffered writes and marks the session closed.
func (c *Client) Close() error {
	return c.engine.Close(context.Background())
}

// FramebufferState reports the negotiated framebuffer dimensions, pixel
// format, and accepted encodings. Only meaningful once Advance has
// completed the handshake.
func (c *Client) FramebufferState() FramebufferState {
	w, h, format, encodings := c.engine.Framebuffer()
	return FramebufferState{Width: w, Height: h, Format: format, Encodings: encodings}
}
