package security

import (
	"context"
	"fmt"

	"github.com/rjsadow/vncengine/internal/wire"
)

// Negotiate drives the full handshake security phase: protocol version
// exchange, security-type selection (a single server-dictated u32 for 3.3;
// a u8-counted list of u8 types for 3.7/3.8, where a zero count is followed
// by a failure reason), the chosen type's sub-flow, and the trailing
// SecurityResult. It returns the Conn to continue ClientInit/ServerInit on —
// the same Conn unless VeNCrypt upgraded the transport to TLS.
func Negotiate(ctx context.Context, conn *wire.Conn, opts Options) (Result, error) {
	version, err := NegotiateVersion(ctx, conn)
	if err != nil {
		return Result{}, err
	}

	if version.Major == 3 && version.Minor == 3 {
		// 3.3: server unilaterally picks the type and sends it as a single u32.
		secType, err := conn.ReadU32(ctx)
		if err != nil {
			return Result{}, err
		}
		if secType == 0 {
			reason, _ := conn.ReadString(ctx)
			return Result{}, &Error{Kind: "AuthFailed", Reason: reason}
		}
		next, err := runSecurityType(ctx, conn, uint8(secType), opts)
		if err != nil {
			return Result{}, err
		}
		if version.Minor < 8 && secType == uint32(TypeNone) {
			return Result{Conn: next}, nil
		}
		return finishResult(ctx, next, version)
	}

	count, err := conn.ReadU8(ctx)
	if err != nil {
		return Result{}, err
	}
	if count == 0 {
		reason, _ := conn.ReadString(ctx)
		return Result{}, &Error{Kind: "AuthFailed", Reason: reason}
	}
	offered := make([]uint8, count)
	for i := range offered {
		offered[i], err = conn.ReadU8(ctx)
		if err != nil {
			return Result{}, err
		}
	}

	chosen, ok := chooseSecurityType(offered)
	if !ok {
		return Result{}, &Error{Kind: "AuthFailed", Reason: "no mutually supported security type offered"}
	}
	conn.WriteU8(chosen)
	if err := conn.Flush(ctx); err != nil {
		return Result{}, err
	}

	next, err := runSecurityType(ctx, conn, chosen, opts)
	if err != nil {
		return Result{}, err
	}
	if version.Minor < 8 && chosen == TypeNone {
		return Result{Conn: next}, nil
	}
	return finishResult(ctx, next, version)
}

// securityPreference is the fixed selection order: VeNCrypt, then legacy
// VNC password auth, then no authentication at all.
var securityPreference = []uint8{TypeVeNCrypt, TypeVncAuth, TypeNone}

// chooseSecurityType picks the highest-preference type the server offered.
func chooseSecurityType(offered []uint8) (uint8, bool) {
	has := func(t uint8) bool {
		for _, o := range offered {
			if o == t {
				return true
			}
		}
		return false
	}
	for _, pref := range securityPreference {
		if has(pref) {
			return pref, true
		}
	}
	return 0, false
}

func runSecurityType(ctx context.Context, conn *wire.Conn, secType uint8, opts Options) (*wire.Conn, error) {
	switch secType {
	case TypeNone:
		return conn, nil
	case TypeVncAuth:
		if err := DoVncAuth(ctx, conn, opts.Credentials.Password); err != nil {
			return nil, err
		}
		return conn, nil
	case TypeVeNCrypt:
		return DoVeNCrypt(ctx, conn, opts)
	default:
		return nil, &Error{Kind: "ProtocolViolation", Reason: fmt.Sprintf("unsupported security type %d", secType)}
	}
}

// finishResult reads the trailing SecurityResult: u32 status, and for
// protocol 3.8+ a length-prefixed failure reason on non-zero status.
func finishResult(ctx context.Context, conn *wire.Conn, version ProtocolVersion) (Result, error) {
	status, err := conn.ReadU32(ctx)
	if err != nil {
		return Result{}, err
	}
	if status != 0 {
		reason := "authentication failed"
		if version.Major == 3 && version.Minor >= 8 {
			if r, err := conn.ReadString(ctx); err == nil {
				reason = r
			}
		}
		return Result{}, &Error{Kind: "AuthFailed", Reason: reason}
	}
	return Result{Conn: conn}, nil
}
