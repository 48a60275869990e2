// Package tcp provides a vncengine.Transport backed by a plain net.Conn,
// plus a TLSUpgrader that wraps one in crypto/tls for VeNCrypt's TLS
// sub-types.
package tcp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/rjsadow/vncengine"
)

// Transport adapts a net.Conn to vncengine.Transport/internal wire.Transport
// by translating ctx cancellation into a read/write deadline, since net.Conn
// itself has no context-aware I/O.
type Transport struct {
	conn net.Conn
}

// New wraps an already-established net.Conn.
func New(conn net.Conn) *Transport {
	return &Transport{conn: conn}
}

// Dial connects to addr ("host:port") over TCP.
func Dial(ctx context.Context, addr string) (*Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp dial %s: %w", addr, err)
	}
	return New(conn), nil
}

func (t *Transport) applyDeadline(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return func() {}, nil
	}
	if err := t.conn.SetDeadline(deadline); err != nil {
		return func() {}, err
	}
	return func() { _ = t.conn.SetDeadline(time.Time{}) }, nil
}

// ReadSome performs a single best-effort read, respecting ctx's deadline.
func (t *Transport) ReadSome(ctx context.Context, buf []byte) (int, error) {
	clear, err := t.applyDeadline(ctx)
	defer clear()
	if err != nil {
		return 0, err
	}
	return t.conn.Read(buf)
}

// WriteAll writes buf in full, respecting ctx's deadline.
func (t *Transport) WriteAll(ctx context.Context, buf []byte) error {
	clear, err := t.applyDeadline(ctx)
	defer clear()
	if err != nil {
		return err
	}
	for len(buf) > 0 {
		n, err := t.conn.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// Shutdown closes the underlying connection.
func (t *Transport) Shutdown() error {
	return t.conn.Close()
}

// Upgrade implements vncengine.TLSUpgrader for VeNCrypt's TLS sub-types.
// Wire it as Builder.TLSUpgrader. It only accepts a raw transport it (or a
// compatible *Transport) produced, matching how the negotiator always
// upgrades the same transport the Builder supplied.
func Upgrade(ctx context.Context, raw vncengine.Transport, policy vncengine.TLSPolicy) (vncengine.Transport, error) {
	t, ok := raw.(*Transport)
	if !ok {
		return nil, fmt.Errorf("tcp.Upgrade: unsupported transport %T", raw)
	}
	cfg := &tls.Config{
		ServerName:         policy.ServerName,
		InsecureSkipVerify: !policy.Verify,
		RootCAs:            policy.RootCAs,
	}
	if policy.ClientCert != nil {
		cfg.Certificates = []tls.Certificate{*policy.ClientCert}
	}
	tlsConn := tls.Client(t.conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	return New(tlsConn), nil
}
