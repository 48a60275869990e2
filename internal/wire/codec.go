// Package wire implements the length-prefixed, big-endian primitive
// encoding RFB uses on the wire, plus the small amount of read-ahead
// buffering needed to turn a Transport's ReadSome into the "awaitable"
// exact-length reads the protocol state machine wants.
package wire

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
)

// Transport is the minimal duplex byte-stream contract the codec is built
// on. It mirrors the public vncengine.Transport interface; wire does not
// import the root package to avoid a cycle, so callers pass any value
// satisfying this shape.
type Transport interface {
	ReadSome(ctx context.Context, buf []byte) (int, error)
	WriteAll(ctx context.Context, buf []byte) error
}

// Conn wraps a Transport with read-ahead buffering and a write buffer.
type Conn struct {
	t       Transport
	pending []byte // bytes read but not yet consumed
	wbuf    bytes.Buffer
}

func NewConn(t Transport) *Conn {
	return &Conn{t: t}
}

// Transport returns the underlying byte-stream, e.g. so a security
// negotiator can wrap it in TLS and build a fresh Conn on top.
func (c *Conn) Transport() Transport {
	return c.t
}

// ReadFull returns exactly n bytes, reading from the transport as many
// times as needed. It never partially consumes: on error the internal
// buffer still holds whatever had already arrived.
func (c *Conn) ReadFull(ctx context.Context, n int) ([]byte, error) {
	for len(c.pending) < n {
		chunk := make([]byte, 4096)
		read, err := c.t.ReadSome(ctx, chunk)
		if read > 0 {
			c.pending = append(c.pending, chunk[:read]...)
		}
		if err != nil {
			return nil, err
		}
		if read == 0 {
			// Nothing ready and no error: transport contract says this
			// means "try again" rather than EOF; loop.
			continue
		}
	}
	out := c.pending[:n]
	c.pending = c.pending[n:]
	return out, nil
}

func (c *Conn) ReadU8(ctx context.Context) (uint8, error) {
	b, err := c.ReadFull(ctx, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Conn) ReadU16(ctx context.Context) (uint16, error) {
	b, err := c.ReadFull(ctx, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *Conn) ReadU32(ctx context.Context) (uint32, error) {
	b, err := c.ReadFull(ctx, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *Conn) ReadI32(ctx context.Context) (int32, error) {
	v, err := c.ReadU32(ctx)
	return int32(v), err
}

// ReadString reads a u32 length prefix followed by that many bytes.
func (c *Conn) ReadString(ctx context.Context) (string, error) {
	n, err := c.ReadU32(ctx)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b, err := c.ReadFull(ctx, int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// RectHeader is the 12-byte (x, y, w, h, encoding) rectangle header.
type RectHeader struct {
	X, Y, W, H uint16
	Encoding   int32
}

func (c *Conn) ReadRectHeader(ctx context.Context) (RectHeader, error) {
	b, err := c.ReadFull(ctx, 12)
	if err != nil {
		return RectHeader{}, err
	}
	return RectHeader{
		X:        binary.BigEndian.Uint16(b[0:2]),
		Y:        binary.BigEndian.Uint16(b[2:4]),
		W:        binary.BigEndian.Uint16(b[4:6]),
		H:        binary.BigEndian.Uint16(b[6:8]),
		Encoding: int32(binary.BigEndian.Uint32(b[8:12])),
	}, nil
}

// ReadFBUpdateHeader reads the rest of the FramebufferUpdate message header
// (msgtype(1) is already consumed by the caller): padding(1), count(2),
// and returns the rectangle count.
func (c *Conn) ReadFBUpdateHeader(ctx context.Context) (count uint16, err error) {
	b, err := c.ReadFull(ctx, 3)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[1:3]), nil
}

// ReadTightVarint reads Tight's 1-3 byte length varint: 7 bits per byte,
// continuation in the high bit, little endian byte order (least
// significant 7 bits first).
func (c *Conn) ReadTightVarint(ctx context.Context) (int, error) {
	var result int
	for shift := 0; shift < 21; shift += 7 {
		b, err := c.ReadU8(ctx)
		if err != nil {
			return 0, err
		}
		result |= int(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
	}
	return 0, fmt.Errorf("tight varint too long")
}

// --- writes ---

func (c *Conn) WriteU8(v uint8) {
	c.wbuf.WriteByte(v)
}

func (c *Conn) WriteU16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	c.wbuf.Write(b[:])
}

func (c *Conn) WriteU32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	c.wbuf.Write(b[:])
}

func (c *Conn) WriteI32(v int32) {
	c.WriteU32(uint32(v))
}

func (c *Conn) WriteBytes(b []byte) {
	c.wbuf.Write(b)
}

// WriteString writes a u32 length prefix followed by the bytes.
func (c *Conn) WriteString(s string) {
	c.WriteU32(uint32(len(s)))
	c.wbuf.WriteString(s)
}

// Flush sends everything buffered by the Write* methods.
func (c *Conn) Flush(ctx context.Context) error {
	if c.wbuf.Len() == 0 {
		return nil
	}
	b := c.wbuf.Bytes()
	c.wbuf.Reset()
	return c.t.WriteAll(ctx, b)
}
