package decode

import (
	"context"

	"github.com/rjsadow/vncengine/internal/wire"
)

// decodeCopyRect reads the src_x/src_y payload and emits a blit
// instruction; the engine does not maintain its own framebuffer mirror.
func decodeCopyRect(ctx context.Context, dc *Context, rect wire.RectHeader) (Result, error) {
	b, err := dc.Conn.ReadFull(ctx, 4)
	if err != nil {
		return Result{}, err
	}
	srcX := int(uint16(b[0])<<8 | uint16(b[1]))
	srcY := int(uint16(b[2])<<8 | uint16(b[3]))
	return Result{
		Kind: KindCopyRect,
		X:    int(rect.X),
		Y:    int(rect.Y),
		W:    int(rect.W),
		H:    int(rect.H),
		SrcX: srcX,
		SrcY: srcY,
	}, nil
}
