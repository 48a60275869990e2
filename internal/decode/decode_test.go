package decode

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rjsadow/vncengine/internal/pixfmt"
	"github.com/rjsadow/vncengine/internal/wire"
	"github.com/rjsadow/vncengine/internal/zlibstream"
)

// memTransport is a minimal wire.Transport over an in-memory buffer.
type memTransport struct {
	r *bytes.Reader
}

func newMemTransport(data []byte) *memTransport {
	return &memTransport{r: bytes.NewReader(data)}
}

func (m *memTransport) ReadSome(ctx context.Context, buf []byte) (int, error) {
	n, err := m.r.Read(buf)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (m *memTransport) WriteAll(ctx context.Context, buf []byte) error { return nil }

func newContext(t *testing.T, data []byte) *Context {
	t.Helper()
	return &Context{
		Conn:   wire.NewConn(newMemTransport(data)),
		Pool:   zlibstream.NewPool(),
		Format: pixfmt.DefaultDescriptor,
		Depth:  24,
		FB:     &FramebufferSize{},
	}
}

func TestDecodeRaw(t *testing.T) {
	// 2x1 pixels, 4 bytes each (B,G,R,pad little-endian).
	data := []byte{
		0x00, 0x00, 0xFF, 0x00, // red
		0xFF, 0x00, 0x00, 0x00, // blue
	}
	dc := newContext(t, data)
	rect := wire.RectHeader{X: 1, Y: 2, W: 2, H: 1, Encoding: EncodingRaw}

	result, err := Decode(context.Background(), dc, rect)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if result.Kind != KindPixels || result.X != 1 || result.Y != 2 || result.W != 2 || result.H != 1 {
		t.Fatalf("unexpected result header: %+v", result)
	}
	want := []byte{0xFF, 0x00, 0x00, 255, 0x00, 0x00, 0xFF, 255}
	if !bytes.Equal(result.Pixels, want) {
		t.Fatalf("Pixels = %v, want %v", result.Pixels, want)
	}
}

func TestDecodeRawIndexedColour(t *testing.T) {
	// 8bpp indexed format: pixel values are colour-map indices.
	var colours pixfmt.ColourMap
	colours.Set(0, [][3]uint16{
		{0xFFFF, 0x0000, 0x0000},
		{0x0000, 0x0000, 0xFFFF},
	})

	dc := newContext(t, []byte{0, 1, 1})
	dc.Format = pixfmt.Descriptor{BitsPerPixel: 8, Depth: 8}
	dc.Depth = 8
	dc.Colours = &colours
	rect := wire.RectHeader{W: 3, H: 1, Encoding: EncodingRaw}

	result, err := Decode(context.Background(), dc, rect)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []byte{
		0xFF, 0x00, 0x00, 255,
		0x00, 0x00, 0xFF, 255,
		0x00, 0x00, 0xFF, 255,
	}
	if !bytes.Equal(result.Pixels, want) {
		t.Fatalf("Pixels = %v, want %v", result.Pixels, want)
	}
}

func TestDecodeCopyRect(t *testing.T) {
	data := []byte{0x00, 0x05, 0x00, 0x0A} // srcX=5, srcY=10
	dc := newContext(t, data)
	rect := wire.RectHeader{X: 20, Y: 30, W: 8, H: 8, Encoding: EncodingCopyRect}

	result, err := Decode(context.Background(), dc, rect)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if result.Kind != KindCopyRect || result.SrcX != 5 || result.SrcY != 10 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestDecodeDesktopSizeUpdatesFramebuffer(t *testing.T) {
	dc := newContext(t, nil)
	rect := wire.RectHeader{W: 1024, H: 768, Encoding: EncodingDesktopSize}

	result, err := Decode(context.Background(), dc, rect)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if result.Kind != KindDesktopSize || result.NewWidth != 1024 || result.NewHeight != 768 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if dc.FB.Width != 1024 || dc.FB.Height != 768 {
		t.Fatalf("FramebufferSize not updated: %+v", dc.FB)
	}
}

func TestDecodeCursorShape(t *testing.T) {
	// 2x2 cursor at hotspot (3,4): four compact pixels, then a
	// 1-bit-per-pixel mask of one byte per row.
	data := []byte{
		0x00, 0x00, 0xFF, // red
		0x00, 0xFF, 0x00, // green
		0xFF, 0x00, 0x00, // blue
		0x00, 0x00, 0x00, // black
		0b1000_0000,      // mask row 0: first pixel visible
		0b0100_0000,      // mask row 1: second pixel visible
	}
	dc := newContext(t, data)
	rect := wire.RectHeader{X: 3, Y: 4, W: 2, H: 2, Encoding: EncodingCursor}

	result, err := Decode(context.Background(), dc, rect)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if result.Kind != KindCursor || result.Cursor == nil {
		t.Fatalf("unexpected result: %+v", result)
	}
	shape := result.Cursor
	if shape.HotX != 3 || shape.HotY != 4 || shape.W != 2 || shape.H != 2 {
		t.Fatalf("unexpected shape header: %+v", shape)
	}
	wantPixels := []byte{
		0xFF, 0x00, 0x00, 255,
		0x00, 0xFF, 0x00, 255,
		0x00, 0x00, 0xFF, 255,
		0x00, 0x00, 0x00, 255,
	}
	if !bytes.Equal(shape.Pixels, wantPixels) {
		t.Fatalf("Pixels = %v, want %v", shape.Pixels, wantPixels)
	}
	if !bytes.Equal(shape.Mask, []byte{0b1000_0000, 0b0100_0000}) {
		t.Fatalf("Mask = %v", shape.Mask)
	}
}

func TestDecodeLastRect(t *testing.T) {
	dc := newContext(t, nil)
	rect := wire.RectHeader{Encoding: EncodingLastRect}

	result, err := Decode(context.Background(), dc, rect)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if result.Kind != KindLastRect {
		t.Fatalf("Kind = %v, want KindLastRect", result.Kind)
	}
}

func TestDecodeUnsupportedEncodingWrapsErrReserved(t *testing.T) {
	dc := newContext(t, nil)
	rect := wire.RectHeader{Encoding: 999}

	_, err := Decode(context.Background(), dc, rect)
	if err == nil {
		t.Fatal("expected error for unsupported encoding")
	}
	var reserved *ErrReserved
	if !errors.As(err, &reserved) {
		t.Fatalf("errors.As(*ErrReserved) failed on %v", err)
	}
	if reserved.Got != 999 {
		t.Fatalf("ErrReserved.Got = %d, want 999", reserved.Got)
	}
}
