package decode

import (
	"context"
	"fmt"

	"github.com/rjsadow/vncengine/internal/wire"
)

// decodeZRLE decodes a ZRLE rectangle: a u32 length prefix followed by
// that many zlib-compressed bytes fed into the persistent ZRLE stream
// (stream #0 of the ZRLE context — never reset across rectangles), whose
// inflated output is the same tile stream TRLE decodes.
func decodeZRLE(ctx context.Context, dc *Context, rect wire.RectHeader) (Result, error) {
	w, h := int(rect.W), int(rect.H)

	length, err := dc.Conn.ReadU32(ctx)
	if err != nil {
		return Result{}, err
	}
	compressed, err := dc.Conn.ReadFull(ctx, int(length))
	if err != nil {
		return Result{}, err
	}
	dc.Pool.ZRLE.Feed(compressed)

	read := func(n int) ([]byte, error) {
		buf := make([]byte, n)
		if _, err := dc.Pool.ZRLE.Read(buf); err != nil {
			return nil, fmt.Errorf("zrle inflate: %w", err)
		}
		return buf, nil
	}

	pixels, err := forEachTile(w, h, func(tx, ty, tw, th int) ([]byte, error) {
		return decodeTileStream(read, dc, tw, th)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindPixels, X: int(rect.X), Y: int(rect.Y), W: w, H: h, Pixels: pixels}, nil
}
