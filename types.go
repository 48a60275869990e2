package vncengine

import (
	"github.com/rjsadow/vncengine/internal/decode"
	"github.com/rjsadow/vncengine/internal/pixfmt"
)

// PixelFormat is the server-declared (or caller-requested) pixel layout:
// bits per pixel, colour depth, byte order, true-colour flag, and
// per-channel max/shift used to extract R, G, B from a raw wire pixel.
type PixelFormat = pixfmt.Descriptor

// DefaultPixelFormat is the engine's preferred format to request via
// SetPixelFormat: 32bpp BGRA8888, little-endian, true-colour.
var DefaultPixelFormat = pixfmt.DefaultDescriptor

// CursorShape is a decoded cursor: hotspot, dimensions, RGBA pixels and a
// 1-bit-per-pixel mask (MSB-first, floor((w+7)/8)*h bytes).
type CursorShape = decode.CursorShape

// Rectangle is a plain region. Refresh and FramebufferState carry their
// own coordinate fields and do not use it.
type Rectangle struct {
	X, Y, W, H int
}

// FramebufferState is a snapshot of the negotiated framebuffer: current
// dimensions, pixel format, and accepted encodings. Obtained via
// Client.FramebufferState; width/height change on Resize events.
type FramebufferState struct {
	Width, Height int
	Format        PixelFormat
	Encodings     []int32
}
