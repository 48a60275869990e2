package decode

import (
	"context"

	"github.com/rjsadow/vncengine/internal/wire"
)

const tileSize = 16

// forEachTile walks a rectangle's 16x16 tiling (edge tiles may be smaller)
// in server order, calling fn with the tile's origin and size, and
// compositing its decoded RGBA into the rectangle-sized output buffer.
func forEachTile(w, h int, fn func(tx, ty, tw, th int) ([]byte, error)) ([]byte, error) {
	out := make([]byte, w*h*4)
	for ty := 0; ty < h; ty += tileSize {
		th := tileSize
		if ty+th > h {
			th = h - ty
		}
		for tx := 0; tx < w; tx += tileSize {
			tw := tileSize
			if tx+tw > w {
				tw = w - tx
			}
			tile, err := fn(tx, ty, tw, th)
			if err != nil {
				return nil, err
			}
			for row := 0; row < th; row++ {
				srcOff := row * tw * 4
				dstOff := ((ty+row)*w + tx) * 4
				copy(out[dstOff:dstOff+tw*4], tile[srcOff:srcOff+tw*4])
			}
		}
	}
	return out, nil
}

// decodeTRLE decodes a TRLE rectangle: a plain 16x16 tiling read directly
// from the rectangle payload.
func decodeTRLE(ctx context.Context, dc *Context, rect wire.RectHeader) (Result, error) {
	w, h := int(rect.W), int(rect.H)
	read := func(n int) ([]byte, error) {
		return dc.Conn.ReadFull(ctx, n)
	}
	pixels, err := forEachTile(w, h, func(tx, ty, tw, th int) ([]byte, error) {
		return decodeTileStream(read, dc, tw, th)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindPixels, X: int(rect.X), Y: int(rect.Y), W: w, H: h, Pixels: pixels}, nil
}
