// Package session implements the RFB client state machine: handshake,
// security negotiation, ClientInit/ServerInit, and the running pull loop
// that turns server FramebufferUpdates into decoded events while draining
// caller-submitted input.
package session

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/rjsadow/vncengine/internal/decode"
	"github.com/rjsadow/vncengine/internal/pixfmt"
	"github.com/rjsadow/vncengine/internal/security"
	"github.com/rjsadow/vncengine/internal/wire"
	"github.com/rjsadow/vncengine/internal/zlibstream"
)

type state int

const (
	stateAwaitingVersion state = iota
	stateAwaitingSecurityResult
	stateSendClientInit
	stateAwaitingServerInit
	stateRunning
	stateClosed
)

// Encodings the engine advertises via SetEncodings, in preference order.
// DesktopSize/Cursor/LastRect are pseudo-encodings negotiated the same way.
var SupportedEncodings = []int32{
	decode.EncodingTight,
	decode.EncodingZRLE,
	decode.EncodingTRLE,
	decode.EncodingCopyRect,
	decode.EncodingRaw,
	decode.EncodingDesktopSize,
	decode.EncodingCursor,
	decode.EncodingLastRect,
}

// Options configures a new Engine. It mirrors the public Builder's fields.
type Options struct {
	Transport             wire.Transport
	Credentials           security.Credentials
	AcceptedEncodings     []int32
	TLSUpgrader           security.TLSUpgrader
	JPEGDecoder           decode.JPEGDecoder
	SharedFlag            uint8
	PixelFormatPreference pixfmt.Descriptor // zero value means "accept server default"
	Logger                *slog.Logger
}

// Engine drives one RFB client session end to end. It is not safe for
// concurrent use from multiple goroutines.
type Engine struct {
	conn  *wire.Conn
	state state

	securityOpts      security.Options
	acceptedEncodings []int32
	sharedFlag        uint8
	preferredFormat   pixfmt.Descriptor
	hasPreference     bool

	format  pixfmt.Descriptor
	depth   uint8
	colours pixfmt.ColourMap
	fb      decode.FramebufferSize
	pool    *zlibstream.Pool
	jpeg    decode.JPEGDecoder

	outQueue []OutputEvent
	inQueue  []InputEvent
	limiter  *rate.Limiter

	log    *slog.Logger
	closed bool
}

// New constructs an Engine ready to drive the handshake on the first call
// to Advance.
func New(opts Options) *Engine {
	encodings := opts.AcceptedEncodings
	if len(encodings) == 0 {
		encodings = SupportedEncodings
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	shared := opts.SharedFlag
	e := &Engine{
		conn:  wire.NewConn(opts.Transport),
		state: stateAwaitingVersion,
		securityOpts: security.Options{
			Credentials: opts.Credentials,
			Upgrader:    opts.TLSUpgrader,
		},
		acceptedEncodings: encodings,
		sharedFlag:        shared,
		jpeg:              opts.JPEGDecoder,
		pool:              zlibstream.NewPool(),
		log:               logger,
	}
	if opts.PixelFormatPreference != (pixfmt.Descriptor{}) {
		e.preferredFormat = opts.PixelFormatPreference
		e.hasPreference = true
	}
	return e
}

// emit appends an output event the caller will receive from PollEvent.
func (e *Engine) emit(ev OutputEvent) {
	e.outQueue = append(e.outQueue, ev)
}

// PollEvent removes and returns the oldest pending output event, if any.
func (e *Engine) PollEvent() (OutputEvent, bool) {
	if len(e.outQueue) == 0 {
		return nil, false
	}
	ev := e.outQueue[0]
	e.outQueue = e.outQueue[1:]
	return ev, true
}

// fail records a fatal error, emits exactly one Disconnected event, and
// transitions the session to Closed. Safe to call more than once; only the
// first call has any effect.
func (e *Engine) fail(kind, reason string, err error) error {
	if e.state == stateClosed {
		return ErrClosed
	}
	e.state = stateClosed
	ferr := &Error{Kind: kind, Reason: reason, Err: err}
	e.emit(Disconnected{Reason: kind, Err: ferr})
	e.log.Warn("session closed", "kind", kind, "reason", reason, "err", err)
	return ferr
}

// Framebuffer returns the current negotiated dimensions, pixel format and
// accepted encodings.
func (e *Engine) Framebuffer() (width, height int, format pixfmt.Descriptor, encodings []int32) {
	return e.fb.Width, e.fb.Height, e.format, e.acceptedEncodings
}

// Close performs an orderly teardown: it flushes any buffered writes
// (unless a fatal error already closed the session), releases the
// transport if it supports Shutdown, then marks the session Closed. It
// never emits a Disconnected event of its own; calls after the first do
// nothing.
func (e *Engine) Close(ctx context.Context) error {
	if e.closed {
		return nil
	}
	if e.state != stateClosed {
		_ = e.conn.Flush(ctx)
	}
	if s, ok := e.conn.Transport().(interface{ Shutdown() error }); ok {
		_ = s.Shutdown()
	}
	e.state = stateClosed
	e.closed = true
	return nil
}
