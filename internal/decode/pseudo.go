package decode

import (
	"context"

	"github.com/rjsadow/vncengine/internal/wire"
)

// decodeDesktopSize updates the framebuffer dimensions and surfaces a
// resize; the rectangle carries no pixel payload.
func decodeDesktopSize(dc *Context, rect wire.RectHeader) Result {
	dc.FB.Width = int(rect.W)
	dc.FB.Height = int(rect.H)
	return Result{
		Kind:      KindDesktopSize,
		X:         int(rect.X),
		Y:         int(rect.Y),
		W:         int(rect.W),
		H:         int(rect.H),
		NewWidth:  int(rect.W),
		NewHeight: int(rect.H),
	}
}

// decodeCursor reads w*h cursor pixels (compact 3-byte cpixels when the
// format is eligible) followed by a 1-bit-per-pixel mask, MSB-first,
// floor((w+7)/8)*h bytes.
func decodeCursor(ctx context.Context, dc *Context, rect wire.RectHeader) (Result, error) {
	w, h := int(rect.W), int(rect.H)
	pw, cpixel := pixelWidth(dc.Format, dc.Depth)
	pixN := w * h * pw
	var pixels []byte
	if pixN > 0 {
		raw, err := dc.Conn.ReadFull(ctx, pixN)
		if err != nil {
			return Result{}, err
		}
		if cpixel {
			pixels = make([]byte, w*h*4)
			for i := 0; i < w*h; i++ {
				px := dc.Format.ConvertPixel(dc.Format.ExpandCpixel(raw[i*3 : i*3+3]))
				copy(pixels[i*4:i*4+4], px[:])
			}
		} else {
			pixels = dc.convertRaw(raw, w, h)
		}
	}
	maskRowBytes := (w + 7) / 8
	maskN := maskRowBytes * h
	var mask []byte
	if maskN > 0 {
		m, err := dc.Conn.ReadFull(ctx, maskN)
		if err != nil {
			return Result{}, err
		}
		mask = append([]byte(nil), m...)
	}
	return Result{
		Kind: KindCursor,
		X:    int(rect.X),
		Y:    int(rect.Y),
		W:    w,
		H:    h,
		Cursor: &CursorShape{
			HotX:   int(rect.X),
			HotY:   int(rect.Y),
			W:      w,
			H:      h,
			Pixels: pixels,
			Mask:   mask,
		},
	}, nil
}
