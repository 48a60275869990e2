package vncengine

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/rjsadow/vncengine/internal/decode"
)

// JPEGDecoder turns a JPEG byte sequence into RGBA pixels with its own
// width/height, used only by Tight's JPEG subtype. The default
// implementation (DefaultJPEGDecoder) satisfies this with stdlib
// image/jpeg; callers needing faster or hardware-accelerated decoding may
// supply their own.
type JPEGDecoder = decode.JPEGDecoder

// stdlibJPEGDecoder decodes Tight's JPEG subtype with image/jpeg.
type stdlibJPEGDecoder struct{}

// DefaultJPEGDecoder is used when a Builder does not supply its own
// JPEGDecoder.
var DefaultJPEGDecoder JPEGDecoder = stdlibJPEGDecoder{}

func (stdlibJPEGDecoder) Decode(data []byte) ([]byte, int, int, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("jpeg decode: %w", err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]byte, w*h*4)
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == w*4 {
		copy(pix, rgba.Pix)
		return pix, w, h, nil
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			off := (y*w + x) * 4
			pix[off] = byte(r >> 8)
			pix[off+1] = byte(g >> 8)
			pix[off+2] = byte(b >> 8)
			pix[off+3] = 255
		}
	}
	return pix, w, h, nil
}
