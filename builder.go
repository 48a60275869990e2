package vncengine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rjsadow/vncengine/internal/security"
	"github.com/rjsadow/vncengine/internal/session"
	"github.com/rjsadow/vncengine/internal/wire"
)

// Builder configures one connection attempt. All fields are optional
// except Transport; zero values fall back to sensible defaults (no
// credentials, the engine's built-in encoding preference, default pixel
// format acceptance, shared access, stdlib JPEG decoding).
type Builder struct {
	Transport Transport

	Credentials Credentials

	// AcceptedEncodings overrides the engine's default preference order
	// (Tight, ZRLE, TRLE, CopyRect, Raw, DesktopSize, Cursor, LastRect).
	AcceptedEncodings []int32

	// PixelFormatPreference requests a specific PixelFormat via
	// SetPixelFormat once ServerInit is parsed. Leave zero-valued to
	// accept whatever pixel format the server declares in ServerInit.
	PixelFormatPreference PixelFormat

	// TLSUpgrader is required if the server may select a VeNCrypt
	// TLS-based sub-type.
	TLSUpgrader TLSUpgrader

	// JPEGDecoder defaults to DefaultJPEGDecoder (stdlib image/jpeg) if
	// left nil.
	JPEGDecoder JPEGDecoder

	// ExclusiveAccess requests the server drop other clients; the zero
	// value (false) writes ClientInit's shared-access byte as 1 (allow
	// other clients), the protocol's own default.
	ExclusiveAccess bool

	// Logger receives structured decode-level diagnostics. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Connect drives the handshake (version, security, ClientInit/ServerInit)
// to completion and returns a Client ready for Advance/PollEvent/Input.
func Connect(ctx context.Context, b Builder) (*Client, error) {
	jpeg := b.JPEGDecoder
	if jpeg == nil {
		jpeg = DefaultJPEGDecoder
	}

	sharedFlag := uint8(1)
	if b.ExclusiveAccess {
		sharedFlag = 0
	}

	engine := session.New(session.Options{
		Transport:             b.Transport,
		Credentials:           b.Credentials.toInternal(),
		AcceptedEncodings:     b.AcceptedEncodings,
		TLSUpgrader:           adaptUpgrader(b.TLSUpgrader),
		JPEGDecoder:           jpeg,
		SharedFlag:            sharedFlag,
		PixelFormatPreference: b.PixelFormatPreference,
		Logger:                b.Logger,
	})

	client := &Client{engine: engine}
	if err := client.Advance(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// adaptUpgrader bridges the public TLSUpgrader (root Transport/TLSPolicy)
// to the internal security package's equivalent, which cannot import the
// root package without creating an import cycle. The raw value handed to
// it by the negotiator is always the same Transport the Builder supplied,
// narrowed to wire.Transport's smaller method set, so the reverse
// assertion back to the full Transport always succeeds.
func adaptUpgrader(up TLSUpgrader) security.TLSUpgrader {
	if up == nil {
		return nil
	}
	return func(ctx context.Context, raw wire.Transport, policy security.TLSPolicy) (wire.Transport, error) {
		full, ok := raw.(Transport)
		if !ok {
			return nil, fmt.Errorf("transport %T does not implement Shutdown", raw)
		}
		out, err := up(ctx, full, TLSPolicy{
			Verify:     policy.Verify,
			RootCAs:    policy.RootCAs,
			ClientCert: policy.ClientCert,
			ServerName: policy.ServerName,
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}
}
