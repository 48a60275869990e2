package vncengine

import (
	"context"
	"crypto/tls"
	"crypto/x509"
)

// Transport is the duplex byte stream the engine is built on: TCP,
// WebSocket, or an already-TLS-wrapped tunnel. ReadSome returns whatever is
// currently available (it may return fewer bytes than the buffer's
// capacity without that being an error); WriteAll blocks until every byte
// is accepted by the underlying stream or ctx is cancelled. Shutdown
// half-closes writes so any in-flight read can still drain.
type Transport interface {
	ReadSome(ctx context.Context, buf []byte) (int, error)
	WriteAll(ctx context.Context, buf []byte) error
	Shutdown() error
}

// TLSPolicy describes how a TLSUpgrader should validate the peer during a
// VeNCrypt TLS upgrade: Verify is true for the X509* sub-types (validate
// against RootCAs) and false for the Tls* sub-types (anonymous DH, accepted
// without verification).
type TLSPolicy struct {
	Verify     bool
	RootCAs    *x509.CertPool
	ClientCert *tls.Certificate
	ServerName string
}

// TLSUpgrader converts a raw Transport into a TLS-wrapped one, given the
// negotiated certificate policy. Invoked mid-handshake for VeNCrypt's
// TLS-based security sub-types.
type TLSUpgrader func(ctx context.Context, raw Transport, policy TLSPolicy) (Transport, error)
