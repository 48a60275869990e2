// Package security implements the RFB handshake's security negotiation:
// legacy VNC password challenge-response, VeNCrypt sub-type selection and
// mid-stream TLS upgrade, and SecurityResult parsing.
package security

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/rjsadow/vncengine/internal/wire"
)

// Security types, per RFC 6143 plus the VeNCrypt extension.
const (
	TypeNone     uint8 = 1
	TypeVncAuth  uint8 = 2
	TypeVeNCrypt uint8 = 19
)

// VeNCrypt sub-types, per the VeNCrypt 0.2 extension.
const (
	SubtypePlain     uint32 = 256
	SubtypeTLSNone   uint32 = 257
	SubtypeTLSVnc    uint32 = 258
	SubtypeTLSPlain  uint32 = 259
	SubtypeX509None  uint32 = 260
	SubtypeX509Vnc   uint32 = 261
	SubtypeX509Plain uint32 = 262
)

// CredentialKind selects which authentication material Credentials carries.
type CredentialKind int

const (
	CredNone CredentialKind = iota
	CredPassword
	CredX509
)

// Credentials bundles whatever the negotiator may need, independent of
// which security type the server ultimately requires.
type Credentials struct {
	Kind CredentialKind

	Password []byte // VncAuth and Plain

	Username string // Plain sub-types only

	RootCAs    *x509.CertPool   // X509 sub-types: validate server cert against this pool
	ClientCert *tls.Certificate // X509 sub-types: optional client certificate
	ServerName string           // SNI / hostname verification
}

// TLSPolicy is what the negotiator asks the caller-supplied TLSUpgrader to
// enforce.
type TLSPolicy struct {
	Verify     bool // true for X509* sub-types, false for Tls* (anonymous DH)
	RootCAs    *x509.CertPool
	ClientCert *tls.Certificate
	ServerName string
}

// TLSUpgrader mirrors the public vncengine.TLSUpgrader contract: given the
// raw transport and a policy, return a TLS-wrapped transport.
type TLSUpgrader func(ctx context.Context, raw wire.Transport, policy TLSPolicy) (wire.Transport, error)

// Options configures one negotiation.
type Options struct {
	Credentials Credentials
	Upgrader    TLSUpgrader
}

// Result carries whatever changed during negotiation that the caller needs
// to continue the handshake: possibly a new Conn (after a TLS upgrade).
type Result struct {
	Conn *wire.Conn
}

// Error reports a negotiation failure with the error kind it corresponds
// to, matching the Kind values the session layer surfaces to callers.
type Error struct {
	Kind   string // "UnsupportedVersion", "AuthFailed", "TlsError", "ProtocolViolation"
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }
