// Package ws provides a vncengine.Transport backed by a gorilla/websocket
// connection carrying binary RFB frames, one per WebSocket message. Since
// RFB is a raw byte stream and WebSocket is message-framed, ReadSome must
// carry over whatever part of a previously-read message the caller's buffer
// couldn't hold yet.
package ws

import (
	"context"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
)

// Transport adapts a *websocket.Conn to vncengine.Transport. Binary
// WebSocket messages are treated as an undifferentiated byte stream:
// ReadSome buffers any leftover bytes from a message that didn't fit in the
// caller's buffer and serves those before reading another frame.
type Transport struct {
	conn *websocket.Conn

	carry []byte // unread tail of the most recently read WebSocket message
}

// New wraps an already-established *websocket.Conn. The connection must
// negotiate a binary subprotocol; text frames are rejected by ReadSome.
func New(conn *websocket.Conn) *Transport {
	return &Transport{conn: conn}
}

// ReadSome returns bytes from a carried-over partial message if any remain,
// otherwise blocks for the next binary WebSocket message and returns as
// much of it as fits in buf, carrying the remainder for the next call.
func (t *Transport) ReadSome(ctx context.Context, buf []byte) (int, error) {
	if len(t.carry) == 0 {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if deadline, ok := ctx.Deadline(); ok {
			_ = t.conn.SetReadDeadline(deadline)
		}
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			if err == io.EOF {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("websocket read: %w", err)
		}
		if kind != websocket.BinaryMessage {
			return 0, fmt.Errorf("websocket: expected binary message, got type %d", kind)
		}
		t.carry = data
	}
	n := copy(buf, t.carry)
	t.carry = t.carry[n:]
	return n, nil
}

// WriteAll sends buf as a single binary WebSocket message.
func (t *Transport) WriteAll(ctx context.Context, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
	}
	data := make([]byte, len(buf))
	copy(data, buf)
	if err := t.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Shutdown sends a close frame and closes the underlying connection.
func (t *Transport) Shutdown() error {
	_ = t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.conn.Close()
}
