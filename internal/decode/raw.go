package decode

import (
	"context"

	"github.com/rjsadow/vncengine/internal/wire"
)

// decodeRaw reads w*h pixels directly and converts each to RGBA.
func decodeRaw(ctx context.Context, dc *Context, rect wire.RectHeader) (Result, error) {
	w, h := int(rect.W), int(rect.H)
	bpp := dc.Format.BytesPerPixel()
	n := w * h * bpp
	raw, err := dc.Conn.ReadFull(ctx, n)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Kind:   KindPixels,
		X:      int(rect.X),
		Y:      int(rect.Y),
		W:      w,
		H:      h,
		Pixels: dc.convertRaw(raw, w, h),
	}, nil
}
