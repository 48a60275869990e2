package session

import (
	"context"

	"github.com/rjsadow/vncengine/internal/pixfmt"
	"github.com/rjsadow/vncengine/internal/security"
)

// runHandshake drives AwaitingVersion through AwaitingServerInit in one
// shot; Advance calls this once, before the session ever reaches Running.
func (e *Engine) runHandshake(ctx context.Context) error {
	result, err := security.Negotiate(ctx, e.conn, e.securityOpts)
	if err != nil {
		return e.wrapSecurityError(err)
	}
	e.conn = result.Conn
	e.state = stateSendClientInit

	e.conn.WriteU8(e.sharedFlag)
	if err := e.conn.Flush(ctx); err != nil {
		return e.fail("TransportClosed", "failed writing ClientInit", err)
	}
	e.state = stateAwaitingServerInit

	if err := e.readServerInit(ctx); err != nil {
		return err
	}

	e.state = stateRunning
	return e.enterRunning(ctx)
}

func (e *Engine) readServerInit(ctx context.Context) error {
	b, err := e.conn.ReadFull(ctx, 4)
	if err != nil {
		return e.fail("TransportClosed", "failed reading ServerInit dimensions", err)
	}
	e.fb.Width = int(uint16(b[0])<<8 | uint16(b[1]))
	e.fb.Height = int(uint16(b[2])<<8 | uint16(b[3]))

	pf, err := e.conn.ReadFull(ctx, pixfmt.WireSize)
	if err != nil {
		return e.fail("TransportClosed", "failed reading ServerInit pixel format", err)
	}
	e.format = pixfmt.Decode(pf)
	e.depth = e.format.Depth

	if _, err := e.conn.ReadString(ctx); err != nil {
		return e.fail("TransportClosed", "failed reading ServerInit desktop name", err)
	}
	// Surface the initial dimensions the same way later DesktopSize
	// changes arrive, so the front-end allocates before the first
	// rectangle shows up.
	e.emit(Resize{W: e.fb.Width, H: e.fb.Height})
	return nil
}

// enterRunning sends the engine's preferred pixel format (if configured),
// the supported-encoding list, and a full FramebufferUpdateRequest.
func (e *Engine) enterRunning(ctx context.Context) error {
	if e.hasPreference {
		e.writeSetPixelFormat(e.preferredFormat)
		e.format = e.preferredFormat
		e.depth = e.preferredFormat.Depth
	}
	e.writeSetEncodings(e.acceptedEncodings)
	e.writeFramebufferUpdateRequest(false, 0, 0, e.fb.Width, e.fb.Height)
	if err := e.conn.Flush(ctx); err != nil {
		return e.fail("TransportClosed", "failed flushing initial requests", err)
	}
	e.limiter = nil // constructed lazily on first PointerMove, see inputqueue.go
	return nil
}

func (e *Engine) writeSetPixelFormat(d pixfmt.Descriptor) {
	e.conn.WriteU8(0)
	e.conn.WriteU8(0)
	e.conn.WriteU16(0)
	e.conn.WriteBytes(d.Encode())
}

func (e *Engine) writeSetEncodings(list []int32) {
	e.conn.WriteU8(2)
	e.conn.WriteU8(0)
	e.conn.WriteU16(uint16(len(list)))
	for _, enc := range list {
		e.conn.WriteI32(enc)
	}
}

func (e *Engine) writeFramebufferUpdateRequest(incremental bool, x, y, w, h int) {
	e.conn.WriteU8(3)
	if incremental {
		e.conn.WriteU8(1)
	} else {
		e.conn.WriteU8(0)
	}
	e.conn.WriteU16(uint16(x))
	e.conn.WriteU16(uint16(y))
	e.conn.WriteU16(uint16(w))
	e.conn.WriteU16(uint16(h))
}

func (e *Engine) wrapSecurityError(err error) error {
	if secErr, ok := err.(*security.Error); ok {
		return e.fail(secErr.Kind, secErr.Reason, secErr.Err)
	}
	return e.fail("TransportClosed", "security negotiation failed", err)
}
