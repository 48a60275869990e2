// Package decode turns a framed rectangle payload into decoded pixels (or
// a pseudo-rectangle side effect). TRLE and ZRLE share a sub-tile decoder
// (tile.go); Tight, Raw, CopyRect and the pseudo-encodings each get their
// own file.
package decode

import (
	"context"
	"fmt"

	"github.com/rjsadow/vncengine/internal/pixfmt"
	"github.com/rjsadow/vncengine/internal/wire"
	"github.com/rjsadow/vncengine/internal/zlibstream"
)

// Encoding tags, as sent in SetEncodings and received in rectangle headers.
const (
	EncodingRaw         int32 = 0
	EncodingCopyRect    int32 = 1
	EncodingTight       int32 = 7
	EncodingTRLE        int32 = 15
	EncodingZRLE        int32 = 16
	EncodingDesktopSize int32 = -223
	EncodingCursor      int32 = -239
	EncodingLastRect    int32 = -224
)

// Kind distinguishes the DecodedRect variants a caller may receive.
type Kind int

const (
	KindPixels Kind = iota
	KindCopyRect
	KindDesktopSize
	KindCursor
	KindLastRect
)

// CursorShape is a decoded cursor: hotspot, dimensions, RGBA pixels and a
// 1-bit-per-pixel mask.
type CursorShape struct {
	HotX, HotY int
	W, H       int
	Pixels     []byte // w*h*4 RGBA
	Mask       []byte // floor((w+7)/8)*h bytes, MSB-first
}

// Result is the decoder's output: either a tightly packed RGBA buffer, a
// CopyRect blit instruction, or a pseudo-rectangle side effect.
type Result struct {
	Kind   Kind
	X, Y   int
	W, H   int
	Pixels []byte // KindPixels only, w*h*4 RGBA row-major

	SrcX, SrcY int // KindCopyRect only

	NewWidth, NewHeight int // KindDesktopSize only

	Cursor *CursorShape // KindCursor only
}

// JPEGDecoder turns a JPEG byte sequence into RGBA pixels with its own
// width/height, used only by Tight's JPEG subtype.
type JPEGDecoder interface {
	Decode(data []byte) (pix []byte, w, h int, err error)
}

// FramebufferSize is the mutable width/height DesktopSize rectangles
// update; it is owned by the session, decoders only read/write it through
// this narrow interface.
type FramebufferSize struct {
	Width, Height int
}

// Context bundles everything a decoder needs beyond the rectangle header
// itself.
type Context struct {
	Conn    *wire.Conn
	Pool    *zlibstream.Pool
	Format  pixfmt.Descriptor
	Depth   uint8             // pixel format depth, needed for cpixel eligibility
	Colours *pixfmt.ColourMap // installed palette when Format is not true-colour
	JPEG    JPEGDecoder
	FB      *FramebufferSize
}

// convertPixel turns one raw wire pixel into canonical RGBA: packed
// channel extraction for true-colour formats, a colour-map lookup for
// indexed ones.
func (dc *Context) convertPixel(b []byte) [4]byte {
	if !dc.Format.TrueColour && dc.Colours != nil {
		return dc.Colours.Lookup(dc.Format.ReadPixel(b))
	}
	return dc.Format.ConvertPixel(b)
}

// convertRaw converts a tightly packed buffer of w*h raw wire pixels into
// a w*h*4 RGBA buffer.
func (dc *Context) convertRaw(src []byte, w, h int) []byte {
	if dc.Format.TrueColour || dc.Colours == nil {
		return dc.Format.ConvertRaw(src, w, h)
	}
	bpp := dc.Format.BytesPerPixel()
	out := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		off := i * bpp
		if off+bpp > len(src) {
			break
		}
		px := dc.Colours.Lookup(dc.Format.ReadPixel(src[off : off+bpp]))
		copy(out[i*4:i*4+4], px[:])
	}
	return out
}

// ErrReserved marks a reserved/impossible encoding sub-value; callers
// should treat it as a protocol violation.
type ErrReserved struct {
	What string
	Got  int
}

func (e *ErrReserved) Error() string {
	return fmt.Sprintf("reserved %s value %d", e.What, e.Got)
}

// Decode dispatches a rectangle to the decoder for its announced encoding.
func Decode(ctx context.Context, dc *Context, rect wire.RectHeader) (Result, error) {
	switch rect.Encoding {
	case EncodingRaw:
		return decodeRaw(ctx, dc, rect)
	case EncodingCopyRect:
		return decodeCopyRect(ctx, dc, rect)
	case EncodingTRLE:
		return decodeTRLE(ctx, dc, rect)
	case EncodingZRLE:
		return decodeZRLE(ctx, dc, rect)
	case EncodingTight:
		return decodeTight(ctx, dc, rect)
	case EncodingDesktopSize:
		return decodeDesktopSize(dc, rect), nil
	case EncodingCursor:
		return decodeCursor(ctx, dc, rect)
	case EncodingLastRect:
		return Result{Kind: KindLastRect}, nil
	default:
		return Result{}, fmt.Errorf("unsupported encoding %d: %w", rect.Encoding, &ErrReserved{What: "encoding", Got: int(rect.Encoding)})
	}
}
