package vncengine

import "github.com/rjsadow/vncengine/internal/session"

// Error is returned by Connect and, wrapped inside a Disconnected event's
// Err field, describes why a session ended. Kind is one of TransportClosed,
// ProtocolViolation, AuthFailed, UnsupportedVersion, TlsError, DecodeError.
type Error = session.Error

// ErrClosed is returned by Advance/Input once the session has already
// emitted its Disconnected event.
var ErrClosed = session.ErrClosed
