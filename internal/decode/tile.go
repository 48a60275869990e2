package decode

import (
	"fmt"

	"github.com/rjsadow/vncengine/internal/pixfmt"
)

// reader is the narrow pixel-stream source TRLE and ZRLE sub-tile decoding
// shares: TRLE reads directly from the rectangle payload, ZRLE reads from
// the persistent zlib stream. Parameterizing on this one function lets both
// encodings share the same sub-tile decoder.
type reader func(n int) ([]byte, error)

// pixelWidth returns the wire width of one pixel in this tile stream: 3
// bytes for cpixel-eligible 32bpp/24-depth formats, BytesPerPixel()
// otherwise.
func pixelWidth(fmtDesc pixfmt.Descriptor, depth uint8) (int, bool) {
	if fmtDesc.IsCpixelEligible(depth) {
		return 3, true
	}
	return fmtDesc.BytesPerPixel(), false
}

func readPixelRGBA(read reader, dc *Context) ([4]byte, error) {
	w, cpixel := pixelWidth(dc.Format, dc.Depth)
	raw, err := read(w)
	if err != nil {
		return [4]byte{}, err
	}
	if cpixel {
		raw = dc.Format.ExpandCpixel(raw)
	}
	return dc.convertPixel(raw), nil
}

// readRunLength reads the 0xFF-extended run-length encoding shared by
// plain RLE (sub-encoding 128) and palette RLE (130..=255): each 0xFF byte
// adds 255 and continues, the first non-0xFF byte terminates and the
// effective length is sum+1.
func readRunLength(read reader) (int, error) {
	total := 0
	for {
		b, err := read(1)
		if err != nil {
			return 0, err
		}
		total += int(b[0])
		if b[0] != 0xFF {
			return total + 1, nil
		}
	}
}

// bitsPerIndexFor returns the packed-palette bit width for N palette
// entries: 1 bit for N<=2, 2 bits for N<=4, 4 bits otherwise.
func bitsPerIndexFor(n int) int {
	switch {
	case n <= 2:
		return 1
	case n <= 4:
		return 2
	default:
		return 4
	}
}

// decodeTileStream decodes one tile_w x tile_h TRLE/ZRLE sub-tile from a
// pixel-stream source into an RGBA buffer (tile_w*tile_h*4 bytes).
func decodeTileStream(read reader, dc *Context, tileW, tileH int) ([]byte, error) {
	subEncB, err := read(1)
	if err != nil {
		return nil, err
	}
	sub := subEncB[0]
	out := make([]byte, tileW*tileH*4)

	switch {
	case sub == 0: // raw cpixels
		for i := 0; i < tileW*tileH; i++ {
			px, err := readPixelRGBA(read, dc)
			if err != nil {
				return nil, err
			}
			copy(out[i*4:i*4+4], px[:])
		}

	case sub == 1: // single solid cpixel
		px, err := readPixelRGBA(read, dc)
		if err != nil {
			return nil, err
		}
		for i := 0; i < tileW*tileH; i++ {
			copy(out[i*4:i*4+4], px[:])
		}

	case sub >= 2 && sub <= 16: // packed palette
		n := int(sub)
		palette := make([][4]byte, n)
		for i := range palette {
			px, err := readPixelRGBA(read, dc)
			if err != nil {
				return nil, err
			}
			palette[i] = px
		}
		bits := bitsPerIndexFor(n)
		perRowBytes := (tileW*bits + 7) / 8
		for row := 0; row < tileH; row++ {
			rowBytes, err := read(perRowBytes)
			if err != nil {
				return nil, err
			}
			for col := 0; col < tileW; col++ {
				idx := extractPackedIndex(rowBytes, col, bits)
				if idx >= n {
					return nil, fmt.Errorf("palette index %d out of range (n=%d)", idx, n)
				}
				off := (row*tileW + col) * 4
				copy(out[off:off+4], palette[idx][:])
			}
		}

	case sub >= 17 && sub <= 127: // reserved
		return nil, &ErrReserved{What: "TRLE sub-encoding", Got: int(sub)}

	case sub == 128: // plain RLE
		filled := 0
		for filled < tileW*tileH {
			px, err := readPixelRGBA(read, dc)
			if err != nil {
				return nil, err
			}
			runLen, err := readRunLength(read)
			if err != nil {
				return nil, err
			}
			for i := 0; i < runLen && filled < tileW*tileH; i++ {
				copy(out[filled*4:filled*4+4], px[:])
				filled++
			}
		}

	case sub == 129: // reserved
		return nil, &ErrReserved{What: "TRLE sub-encoding", Got: int(sub)}

	default: // 130..=255: palette RLE
		n := int(sub & 0x7f)
		palette := make([][4]byte, n)
		for i := range palette {
			px, err := readPixelRGBA(read, dc)
			if err != nil {
				return nil, err
			}
			palette[i] = px
		}
		filled := 0
		for filled < tileW*tileH {
			idxB, err := read(1)
			if err != nil {
				return nil, err
			}
			idx := int(idxB[0])
			runLen := 1
			if idx&0x80 != 0 {
				idx &= 0x7f
				runLen, err = readRunLength(read)
				if err != nil {
					return nil, err
				}
			}
			if idx >= n {
				return nil, fmt.Errorf("palette RLE index %d out of range (n=%d)", idx, n)
			}
			for i := 0; i < runLen && filled < tileW*tileH; i++ {
				copy(out[filled*4:filled*4+4], palette[idx][:])
				filled++
			}
		}
	}

	return out, nil
}

// extractPackedIndex reads the col-th bits-wide index from a byte-aligned
// (per row) bit-packed row, MSB-first.
func extractPackedIndex(row []byte, col, bits int) int {
	bitPos := col * bits
	byteIdx := bitPos / 8
	bitOff := bitPos % 8
	shift := 8 - bitOff - bits
	mask := (1 << uint(bits)) - 1
	return int(row[byteIdx]>>uint(shift)) & mask
}
