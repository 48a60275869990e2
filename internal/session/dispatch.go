package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rjsadow/vncengine/internal/decode"
)

// readServerMessage reads and dispatches exactly one server message while
// Running: FramebufferUpdate(0), SetColourMapEntries(1), Bell(2) or
// ServerCutText(3).
func (e *Engine) readServerMessage(ctx context.Context) error {
	msgType, err := e.conn.ReadU8(ctx)
	if err != nil {
		return e.fail("TransportClosed", "failed reading server message type", err)
	}
	switch msgType {
	case 0:
		return e.readFramebufferUpdate(ctx)
	case 1:
		return e.readSetColourMapEntries(ctx)
	case 2:
		e.emit(Bell{})
		return nil
	case 3:
		return e.readServerCutText(ctx)
	default:
		return e.fail("ProtocolViolation", fmt.Sprintf("unknown server message type %d", msgType), nil)
	}
}

func (e *Engine) readFramebufferUpdate(ctx context.Context) error {
	count, err := e.conn.ReadFBUpdateHeader(ctx)
	if err != nil {
		return e.fail("TransportClosed", "failed reading FramebufferUpdate header", err)
	}

	for i := uint16(0); i < count; i++ {
		rect, err := e.conn.ReadRectHeader(ctx)
		if err != nil {
			return e.fail("TransportClosed", "failed reading rectangle header", err)
		}
		if rect.Encoding == decode.EncodingLastRect {
			break
		}

		dc := &decode.Context{
			Conn:    e.conn,
			Pool:    e.pool,
			Format:  e.format,
			Depth:   e.depth,
			Colours: &e.colours,
			JPEG:    e.jpeg,
			FB:      &e.fb,
		}
		result, err := decode.Decode(ctx, dc, rect)
		if err != nil {
			return e.decodeFailure(err)
		}
		e.emitDecodeResult(result)
	}

	e.writeFramebufferUpdateRequest(true, 0, 0, e.fb.Width, e.fb.Height)
	if err := e.conn.Flush(ctx); err != nil {
		return e.fail("TransportClosed", "failed flushing incremental refresh request", err)
	}
	return nil
}

func (e *Engine) decodeFailure(err error) error {
	var reserved *decode.ErrReserved
	if errors.As(err, &reserved) {
		return e.fail("ProtocolViolation", err.Error(), err)
	}
	return e.fail("DecodeError", "rectangle decode failed", err)
}

func (e *Engine) emitDecodeResult(result decode.Result) {
	switch result.Kind {
	case decode.KindPixels:
		e.emit(DecodedRect{X: result.X, Y: result.Y, W: result.W, H: result.H, Pixels: result.Pixels})
	case decode.KindCopyRect:
		e.emit(DecodedRect{X: result.X, Y: result.Y, W: result.W, H: result.H, IsCopyRect: true, SrcX: result.SrcX, SrcY: result.SrcY})
	case decode.KindDesktopSize:
		e.emit(Resize{W: result.NewWidth, H: result.NewHeight})
	case decode.KindCursor:
		if result.Cursor != nil {
			e.emit(Cursor{Shape: *result.Cursor})
		}
	}
}

// readSetColourMapEntries reads a palette update: padding, first-colour
// and count, then count RGB triples of 16-bit intensities. For an
// indexed-colour session the entries are installed in the colour map the
// decoders look pixel values up in; in true-colour mode the message
// carries nothing the session needs and is discarded.
func (e *Engine) readSetColourMapEntries(ctx context.Context) error {
	hdr, err := e.conn.ReadFull(ctx, 5)
	if err != nil {
		return e.fail("TransportClosed", "failed reading SetColourMapEntries header", err)
	}
	firstColour := int(hdr[1])<<8 | int(hdr[2])
	numColours := int(hdr[3])<<8 | int(hdr[4])
	body, err := e.conn.ReadFull(ctx, numColours*6)
	if err != nil {
		return e.fail("TransportClosed", "failed reading colour map entries", err)
	}
	if e.format.TrueColour {
		return nil
	}
	colours := make([][3]uint16, numColours)
	for i := range colours {
		off := i * 6
		colours[i] = [3]uint16{
			uint16(body[off])<<8 | uint16(body[off+1]),
			uint16(body[off+2])<<8 | uint16(body[off+3]),
			uint16(body[off+4])<<8 | uint16(body[off+5]),
		}
	}
	e.colours.Set(firstColour, colours)
	return nil
}

func (e *Engine) readServerCutText(ctx context.Context) error {
	if _, err := e.conn.ReadFull(ctx, 3); err != nil {
		return e.fail("TransportClosed", "failed reading ServerCutText padding", err)
	}
	text, err := e.conn.ReadString(ctx)
	if err != nil {
		return e.fail("TransportClosed", "failed reading ServerCutText body", err)
	}
	e.emit(ClipboardText{UTF8: text})
	return nil
}
