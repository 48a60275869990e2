package security

import (
	"context"
	"fmt"

	"github.com/rjsadow/vncengine/internal/wire"
)

// vencryptPreference lists VeNCrypt sub-types in descending preference:
// certificate-verified variants before anonymous TLS, None before Vnc
// before Plain within each tier.
var vencryptPreference = []uint32{
	SubtypeX509None, SubtypeX509Vnc, SubtypeX509Plain,
	SubtypeTLSNone, SubtypeTLSVnc, SubtypeTLSPlain,
}

func choosePreferredSubtype(offered []uint32) (uint32, bool) {
	offeredSet := make(map[uint32]bool, len(offered))
	for _, t := range offered {
		offeredSet[t] = true
	}
	for _, pref := range vencryptPreference {
		if offeredSet[pref] {
			return pref, true
		}
	}
	return 0, false
}

func isX509Subtype(t uint32) bool {
	return t == SubtypeX509None || t == SubtypeX509Vnc || t == SubtypeX509Plain
}

// DoVeNCrypt performs the VeNCrypt handshake: version exchange, sub-type
// selection, TLS upgrade, and the inner sub-security flow. Returns the
// (possibly TLS-wrapped) Conn to continue the handshake on.
func DoVeNCrypt(ctx context.Context, conn *wire.Conn, opts Options) (*wire.Conn, error) {
	major, err := conn.ReadU8(ctx)
	if err != nil {
		return nil, err
	}
	minor, err := conn.ReadU8(ctx)
	if err != nil {
		return nil, err
	}
	if major != 0 {
		return nil, &Error{Kind: "ProtocolViolation", Reason: fmt.Sprintf("unsupported VeNCrypt version %d.%d", major, minor)}
	}
	conn.WriteU8(0)
	conn.WriteU8(2)
	if err := conn.Flush(ctx); err != nil {
		return nil, err
	}

	ack, err := conn.ReadU8(ctx)
	if err != nil {
		return nil, err
	}
	if ack != 0 {
		return nil, &Error{Kind: "AuthFailed", Reason: "server rejected VeNCrypt version 0.2"}
	}

	count, err := conn.ReadU8(ctx)
	if err != nil {
		return nil, err
	}
	offered := make([]uint32, count)
	for i := range offered {
		offered[i], err = conn.ReadU32(ctx)
		if err != nil {
			return nil, err
		}
	}

	chosen, ok := choosePreferredSubtype(offered)
	if !ok {
		return nil, &Error{Kind: "AuthFailed", Reason: "no supported VeNCrypt sub-type offered"}
	}

	conn.WriteU32(chosen)
	if err := conn.Flush(ctx); err != nil {
		return nil, err
	}

	cont, err := conn.ReadU8(ctx)
	if err != nil {
		return nil, err
	}
	if cont != 1 {
		return nil, &Error{Kind: "AuthFailed", Reason: "server refused chosen VeNCrypt sub-type"}
	}

	if opts.Upgrader == nil {
		return nil, &Error{Kind: "TlsError", Reason: "VeNCrypt requires TLS but no TLSUpgrader was configured"}
	}

	policy := TLSPolicy{
		Verify:     isX509Subtype(chosen),
		RootCAs:    opts.Credentials.RootCAs,
		ClientCert: opts.Credentials.ClientCert,
		ServerName: opts.Credentials.ServerName,
	}
	newTransport, err := opts.Upgrader(ctx, conn.Transport(), policy)
	if err != nil {
		return nil, &Error{Kind: "TlsError", Reason: "TLS upgrade failed", Err: err}
	}
	tlsConn := wire.NewConn(newTransport)

	switch chosen {
	case SubtypeX509None, SubtypeTLSNone:
		// nothing further required
	case SubtypeX509Vnc, SubtypeTLSVnc:
		if err := DoVncAuth(ctx, tlsConn, opts.Credentials.Password); err != nil {
			return nil, err
		}
	case SubtypeX509Plain, SubtypeTLSPlain:
		if err := doPlainAuth(ctx, tlsConn, opts.Credentials); err != nil {
			return nil, err
		}
	}

	return tlsConn, nil
}

// doPlainAuth writes the VeNCrypt Plain sub-type's cleartext (over TLS)
// username/password: the u32 username length and u32 password length
// first, then the username bytes and the password bytes.
func doPlainAuth(ctx context.Context, conn *wire.Conn, creds Credentials) error {
	conn.WriteU32(uint32(len(creds.Username)))
	conn.WriteU32(uint32(len(creds.Password)))
	conn.WriteBytes([]byte(creds.Username))
	conn.WriteBytes(creds.Password)
	return conn.Flush(ctx)
}
