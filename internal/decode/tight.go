package decode

import (
	"context"
	"fmt"

	"github.com/rjsadow/vncengine/internal/pixfmt"
	"github.com/rjsadow/vncengine/internal/wire"
)

const (
	tightFilterCopy     = 0
	tightFilterPalette  = 1
	tightFilterGradient = 2
)

// tightPixelSize returns the wire width of one Tight pixel sample. When the
// client format is 32bpp true-colour at depth 24 with full 8-bit channels,
// Tight sends a compact 3-byte pixel in fixed R,G,B order; every other
// format uses the full-width pixel.
func tightPixelSize(d pixfmt.Descriptor) (int, bool) {
	if d.TrueColour && d.BitsPerPixel == 32 && d.Depth == 24 &&
		d.RedMax == 255 && d.GreenMax == 255 && d.BlueMax == 255 {
		return 3, true
	}
	return d.BytesPerPixel(), false
}

// tightPaletteBits returns the palette-filter index width: 1 bit per pixel
// for a two-colour palette, a full byte otherwise.
func tightPaletteBits(n int) int {
	if n == 2 {
		return 1
	}
	return 8
}

func readTightPixel(ctx context.Context, dc *Context) ([4]byte, error) {
	n, compact := tightPixelSize(dc.Format)
	b, err := dc.Conn.ReadFull(ctx, n)
	if err != nil {
		return [4]byte{}, err
	}
	if compact {
		return [4]byte{b[0], b[1], b[2], 255}, nil
	}
	return dc.convertPixel(b), nil
}

// convertTightSamples converts a buffer of w*h Tight pixel samples into a
// w*h*4 RGBA buffer.
func convertTightSamples(dc *Context, data []byte, w, h int) []byte {
	size, compact := tightPixelSize(dc.Format)
	if !compact {
		return dc.convertRaw(data, w, h)
	}
	out := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		off := i * size
		out[i*4], out[i*4+1], out[i*4+2], out[i*4+3] = data[off], data[off+1], data[off+2], 255
	}
	return out
}

// decodeTight decodes a Tight rectangle. The compression-control byte's low
// nibble (bits 0-3) carries per-stream reset flags, applied before any
// other byte in the rectangle is read, including the filter byte. Bit 7
// selects fill/JPEG (bits 4-6 distinguish the two) versus basic compression
// (bit 7 clear); for basic, bits 4-5 select which of the four persistent
// zlib streams carries this rectangle's data, and bit 6 indicates a
// filter-id byte follows.
func decodeTight(ctx context.Context, dc *Context, rect wire.RectHeader) (Result, error) {
	w, h := int(rect.W), int(rect.H)

	ctrl, err := dc.Conn.ReadU8(ctx)
	if err != nil {
		return Result{}, err
	}
	dc.Pool.ResetTight(ctrl & 0x0F)
	top := ctrl >> 4

	switch {
	case top&0x08 == 0: // basic compression
		streamIdx := int(top & 0x03)
		hasFilter := top&0x04 != 0
		pixels, err := decodeTightBasic(ctx, dc, streamIdx, hasFilter, w, h)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: KindPixels, X: int(rect.X), Y: int(rect.Y), W: w, H: h, Pixels: pixels}, nil

	case top == 0x08: // fill: single compact pixel, no compression
		px, err := readTightPixel(ctx, dc)
		if err != nil {
			return Result{}, err
		}
		pixels := make([]byte, w*h*4)
		for i := 0; i < w*h; i++ {
			copy(pixels[i*4:i*4+4], px[:])
		}
		return Result{Kind: KindPixels, X: int(rect.X), Y: int(rect.Y), W: w, H: h, Pixels: pixels}, nil

	case top == 0x09: // JPEG
		if dc.JPEG == nil {
			return Result{}, fmt.Errorf("tight JPEG subtype received but no JPEGDecoder configured")
		}
		n, err := dc.Conn.ReadTightVarint(ctx)
		if err != nil {
			return Result{}, err
		}
		data, err := dc.Conn.ReadFull(ctx, n)
		if err != nil {
			return Result{}, err
		}
		pix, jw, jh, err := dc.JPEG.Decode(data)
		if err != nil {
			return Result{}, fmt.Errorf("tight jpeg decode: %w", err)
		}
		if jw != w || jh != h {
			return Result{}, fmt.Errorf("tight jpeg size mismatch: rect %dx%d, decoded %dx%d", w, h, jw, jh)
		}
		return Result{Kind: KindPixels, X: int(rect.X), Y: int(rect.Y), W: w, H: h, Pixels: pix}, nil

	default:
		return Result{}, &ErrReserved{What: "tight compression-control", Got: int(top)}
	}
}

// decodeTightBasic reads the optional filter byte, the filtered-but-still-
// un-decompressed byte stream (raw if short, else a zlib fragment through
// the selected persistent stream), and applies the filter to produce RGBA.
func decodeTightBasic(ctx context.Context, dc *Context, streamIdx int, hasFilter bool, w, h int) ([]byte, error) {
	filter := tightFilterCopy
	paletteN := 0
	var palette [][4]byte

	if hasFilter {
		fb, err := dc.Conn.ReadU8(ctx)
		if err != nil {
			return nil, err
		}
		filter = int(fb)
		if filter == tightFilterPalette {
			nb, err := dc.Conn.ReadU8(ctx)
			if err != nil {
				return nil, err
			}
			paletteN = int(nb) + 1
			palette = make([][4]byte, paletteN)
			for i := range palette {
				px, err := readTightPixel(ctx, dc)
				if err != nil {
					return nil, err
				}
				palette[i] = px
			}
		}
	}

	pixSize, _ := tightPixelSize(dc.Format)
	var rawLen int
	switch filter {
	case tightFilterPalette:
		bits := tightPaletteBits(paletteN)
		rawLen = ((w*bits + 7) / 8) * h
	default: // copy or gradient: one pixel sample per pixel
		rawLen = w * h * pixSize
	}

	data, err := readMaybeCompressed(ctx, dc, streamIdx, rawLen)
	if err != nil {
		return nil, err
	}

	switch filter {
	case tightFilterCopy:
		return convertTightSamples(dc, data, w, h), nil
	case tightFilterPalette:
		return applyPaletteFilter(data, palette, w, h), nil
	case tightFilterGradient:
		return applyGradientFilter(data, dc.Format, w, h), nil
	default:
		return nil, &ErrReserved{What: "tight filter id", Got: filter}
	}
}

// readMaybeCompressed reads the filtered byte stream: raw if its
// uncompressed length is under 12 bytes, otherwise a Tight-varint-prefixed
// zlib fragment through the given persistent stream.
func readMaybeCompressed(ctx context.Context, dc *Context, streamIdx, expectedLen int) ([]byte, error) {
	if expectedLen < 12 {
		return dc.Conn.ReadFull(ctx, expectedLen)
	}
	clen, err := dc.Conn.ReadTightVarint(ctx)
	if err != nil {
		return nil, err
	}
	compressed, err := dc.Conn.ReadFull(ctx, clen)
	if err != nil {
		return nil, err
	}
	stream := dc.Pool.Tight[streamIdx]
	stream.Feed(compressed)
	out := make([]byte, expectedLen)
	if _, err := stream.Read(out); err != nil {
		return nil, fmt.Errorf("tight inflate: %w", err)
	}
	return out, nil
}

func applyPaletteFilter(data []byte, palette [][4]byte, w, h int) []byte {
	bits := tightPaletteBits(len(palette))
	rowBytes := (w*bits + 7) / 8
	out := make([]byte, w*h*4)
	for row := 0; row < h; row++ {
		rb := data[row*rowBytes : row*rowBytes+rowBytes]
		for col := 0; col < w; col++ {
			var idx int
			if bits == 1 {
				idx = int(rb[col/8]>>(7-uint(col%8))) & 1
			} else {
				idx = int(rb[col])
			}
			if idx >= len(palette) {
				idx = len(palette) - 1
			}
			off := (row*w + col) * 4
			copy(out[off:off+4], palette[idx][:])
		}
	}
	return out
}

func clamp255(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// GradientPredictor computes the clamped gradient predictor for one
// channel from its already-reconstructed left, above and upper-left
// neighbour samples: clamp(left + above - upper_left) to [0, 255].
func GradientPredictor(left, above, upperLeft uint8) uint8 {
	return clamp255(int(left) + int(above) - int(upperLeft))
}

// applyGradientFilter reconstructs each pixel's R,G,B channels as the
// clamped gradient predictor from already-reconstructed neighbours plus
// the transmitted per-channel delta, wrapping modulo 256.
func applyGradientFilter(data []byte, fmtDesc pixfmt.Descriptor, w, h int) []byte {
	pixSize, compact := tightPixelSize(fmtDesc)
	recon := make([][3]uint8, w*h)
	out := make([]byte, w*h*4)

	sample := func(off int) [3]uint8 {
		if compact {
			return [3]uint8{data[off], data[off+1], data[off+2]}
		}
		px := fmtDesc.ConvertPixel(data[off : off+pixSize])
		return [3]uint8{px[0], px[1], px[2]}
	}

	neighbour := func(x, y int) [3]uint8 {
		if x < 0 || y < 0 {
			return [3]uint8{0, 0, 0}
		}
		return recon[y*w+x]
	}

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			delta := sample((row*w + col) * pixSize)
			left := neighbour(col-1, row)
			above := neighbour(col, row-1)
			upperLeft := neighbour(col-1, row-1)

			var px [3]uint8
			for c := 0; c < 3; c++ {
				pred := GradientPredictor(left[c], above[c], upperLeft[c])
				px[c] = pred + delta[c] // byte wraparound via uint8 addition
			}
			recon[row*w+col] = px

			idx := (row*w + col) * 4
			out[idx], out[idx+1], out[idx+2], out[idx+3] = px[0], px[1], px[2], 255
		}
	}
	return out
}
