package session

import "github.com/rjsadow/vncengine/internal/decode"

// InputEvent is a caller-submitted event accepted by Input. Concrete types
// are PointerMove, Key, ClipboardText, Refresh and SetEncodings.
type InputEvent interface {
	isInputEvent()
}

// PointerMove reports absolute pointer position and the current button
// mask (bit per button, LSB = button 1). Paced through a rate limiter
// before being flushed to the wire.
type PointerMove struct {
	X, Y    int
	Buttons uint8
}

// Key reports a key press or release by X11 keysym.
type Key struct {
	Keysym  uint32
	Pressed bool
}

// ClipboardText carries UTF-8 clipboard contents in either direction. As
// an InputEvent it requests ClientCutText; as an OutputEvent it reports
// ServerCutText.
type ClipboardText struct {
	UTF8 string
}

// Refresh requests a FramebufferUpdateRequest for the given region.
// Incremental requests ask the server to send only changed pixels.
type Refresh struct {
	Incremental bool
	X, Y, W, H  int
}

// SetEncodings requests a new accepted-encoding list, overriding the one
// sent automatically on entering Running.
type SetEncodings struct {
	List []int32
}

func (PointerMove) isInputEvent()   {}
func (Key) isInputEvent()           {}
func (ClipboardText) isInputEvent() {}
func (Refresh) isInputEvent()       {}
func (SetEncodings) isInputEvent()  {}

// OutputEvent is an event produced by decoding and returned from PollEvent.
// Concrete types are DecodedRect, Resize, Cursor, ClipboardText, Bell and
// Disconnected.
type OutputEvent interface {
	isOutputEvent()
}

// DecodedRect is a decoded framebuffer rectangle: either a tightly packed
// RGBA buffer (Pixels non-nil) or a blit instruction (IsCopyRect true,
// SrcX/SrcY identify the source region within the caller's own
// framebuffer — the engine keeps no mirror of its own).
type DecodedRect struct {
	X, Y, W, H int
	Pixels     []byte // w*h*4 RGBA, row-major; nil for CopyRect
	IsCopyRect bool
	SrcX, SrcY int
}

// Resize reports the framebuffer's new dimensions: once with the ServerInit
// dimensions when the handshake completes, then for each DesktopSize
// pseudo-rectangle.
type Resize struct {
	W, H int
}

// Cursor reports a decoded cursor shape.
type Cursor struct {
	Shape decode.CursorShape
}

// Bell reports the server's Bell message; it carries no payload.
type Bell struct{}

// Disconnected is always the last OutputEvent the session ever produces.
// Reason is a machine-readable Kind (see Error); Err carries the
// underlying cause, if any.
type Disconnected struct {
	Reason string
	Err    error
}

func (DecodedRect) isOutputEvent()    {}
func (Resize) isOutputEvent()         {}
func (Cursor) isOutputEvent()         {}
func (ClipboardText) isOutputEvent()  {}
func (Bell) isOutputEvent()           {}
func (Disconnected) isOutputEvent()   {}
