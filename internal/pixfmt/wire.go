package pixfmt

import "encoding/binary"

// WireSize is the fixed 16-byte encoding of a PixelFormat on the wire:
// bpp, depth, big-endian flag, true-colour flag, 3x u16 max, 3x u8 shift,
// 3 bytes padding.
const WireSize = 16

// Decode parses a 16-byte PixelFormat structure.
func Decode(b []byte) Descriptor {
	return Descriptor{
		BitsPerPixel: b[0],
		Depth:        b[1],
		BigEndian:    b[2] != 0,
		TrueColour:   b[3] != 0,
		RedMax:       binary.BigEndian.Uint16(b[4:6]),
		GreenMax:     binary.BigEndian.Uint16(b[6:8]),
		BlueMax:      binary.BigEndian.Uint16(b[8:10]),
		RedShift:     b[10],
		GreenShift:   b[11],
		BlueShift:    b[12],
	}
}

// Encode writes a Descriptor as the 16-byte wire PixelFormat structure.
func (d Descriptor) Encode() []byte {
	b := make([]byte, WireSize)
	b[0] = d.BitsPerPixel
	b[1] = d.Depth
	if d.BigEndian {
		b[2] = 1
	}
	if d.TrueColour {
		b[3] = 1
	}
	binary.BigEndian.PutUint16(b[4:6], d.RedMax)
	binary.BigEndian.PutUint16(b[6:8], d.GreenMax)
	binary.BigEndian.PutUint16(b[8:10], d.BlueMax)
	b[10] = d.RedShift
	b[11] = d.GreenShift
	b[12] = d.BlueShift
	return b
}
