package vncengine

import "github.com/rjsadow/vncengine/internal/session"

// InputEvent is a caller-submitted event accepted by Client.Input.
// Concrete types: PointerMove, Key, ClipboardText, Refresh, SetEncodings.
type InputEvent = session.InputEvent

// OutputEvent is an event produced by the engine and returned from
// Client.PollEvent. Concrete types: DecodedRect, Resize, Cursor,
// ClipboardText, Bell, Disconnected.
type OutputEvent = session.OutputEvent

type (
	PointerMove   = session.PointerMove
	Key           = session.Key
	ClipboardText = session.ClipboardText
	Refresh       = session.Refresh
	SetEncodings  = session.SetEncodings
	DecodedRect   = session.DecodedRect
	Resize        = session.Resize
	Cursor        = session.Cursor
	Bell          = session.Bell
	Disconnected  = session.Disconnected
)
