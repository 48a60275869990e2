package security

import (
	"bytes"
	"context"
	"testing"

	"github.com/rjsadow/vncengine/internal/wire"
)

func TestChoosePreferredSubtype(t *testing.T) {
	cases := []struct {
		name    string
		offered []uint32
		want    uint32
		ok      bool
	}{
		{"prefers x509 none over everything", []uint32{SubtypeTLSNone, SubtypeX509Vnc, SubtypeX509None}, SubtypeX509None, true},
		{"falls back to anonymous tls none", []uint32{SubtypeTLSPlain, SubtypeTLSNone}, SubtypeTLSNone, true},
		{"plain alone is not a supported sub-type", []uint32{SubtypePlain}, 0, false},
		{"empty offer", nil, 0, false},
	}
	for _, tc := range cases {
		got, ok := choosePreferredSubtype(tc.offered)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("%s: choosePreferredSubtype(%v) = (%v, %v), want (%v, %v)", tc.name, tc.offered, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIsX509Subtype(t *testing.T) {
	x509 := []uint32{SubtypeX509None, SubtypeX509Vnc, SubtypeX509Plain}
	anon := []uint32{SubtypeTLSNone, SubtypeTLSVnc, SubtypeTLSPlain, SubtypePlain}
	for _, st := range x509 {
		if !isX509Subtype(st) {
			t.Fatalf("isX509Subtype(%d) = false, want true", st)
		}
	}
	for _, st := range anon {
		if isX509Subtype(st) {
			t.Fatalf("isX509Subtype(%d) = true, want false", st)
		}
	}
}

// identityUpgrader satisfies the negotiator's TLSUpgrader contract without
// performing any real TLS handshake, so DoVeNCrypt's control flow can be
// exercised without a certificate fixture.
func identityUpgrader(ctx context.Context, raw wire.Transport, policy TLSPolicy) (wire.Transport, error) {
	return raw, nil
}

func TestDoVeNCryptAnonymousNoneSkipsInnerAuth(t *testing.T) {
	var data bytes.Buffer
	data.WriteByte(0) // server major
	data.WriteByte(2) // server minor
	data.WriteByte(0) // ack: accepted 0.2
	data.WriteByte(1) // one sub-type offered
	writeU32(&data, SubtypeTLSNone)
	data.WriteByte(1) // continuation: sub-type accepted

	tr := newMemTransport(data.Bytes())
	conn := wire.NewConn(tr)
	opts := Options{Upgrader: identityUpgrader}

	next, err := DoVeNCrypt(context.Background(), conn, opts)
	if err != nil {
		t.Fatalf("DoVeNCrypt: %v", err)
	}
	if next == nil {
		t.Fatal("expected a non-nil Conn after VeNCrypt upgrade")
	}

	written := tr.written.Bytes()
	wantPrefix := []byte{0, 2}
	if !bytes.Equal(written[:2], wantPrefix) {
		t.Fatalf("version reply = %v, want %v", written[:2], wantPrefix)
	}
}

func TestDoVeNCryptX509NoneRequestsVerification(t *testing.T) {
	var data bytes.Buffer
	data.WriteByte(0) // server major
	data.WriteByte(2) // server minor
	data.WriteByte(0) // ack: accepted 0.2
	data.WriteByte(1) // one sub-type offered
	writeU32(&data, SubtypeX509None)
	data.WriteByte(1) // continuation: sub-type accepted

	var gotPolicy TLSPolicy
	upgrader := func(ctx context.Context, raw wire.Transport, policy TLSPolicy) (wire.Transport, error) {
		gotPolicy = policy
		return raw, nil
	}

	tr := newMemTransport(data.Bytes())
	conn := wire.NewConn(tr)
	next, err := DoVeNCrypt(context.Background(), conn, Options{Upgrader: upgrader})
	if err != nil {
		t.Fatalf("DoVeNCrypt: %v", err)
	}
	if next == nil {
		t.Fatal("expected a non-nil Conn after VeNCrypt upgrade")
	}
	if !gotPolicy.Verify {
		t.Fatal("X509None must request certificate verification")
	}

	// Written: version reply 0.2, then the chosen sub-type as a u32.
	written := tr.written.Bytes()
	wantChoice := []byte{0, 0, 0x01, 0x04} // 260 big-endian
	if !bytes.Equal(written[2:6], wantChoice) {
		t.Fatalf("chosen sub-type bytes = %v, want %v", written[2:6], wantChoice)
	}
}

func TestDoVeNCryptRejectsUnsupportedMajorVersion(t *testing.T) {
	tr := newMemTransport([]byte{1, 0})
	conn := wire.NewConn(tr)
	_, err := DoVeNCrypt(context.Background(), conn, Options{Upgrader: identityUpgrader})
	if err == nil {
		t.Fatal("expected error for VeNCrypt major version != 0")
	}
}

func TestDoVeNCryptNoSupportedSubtype(t *testing.T) {
	var data bytes.Buffer
	data.WriteByte(0)
	data.WriteByte(2)
	data.WriteByte(0)
	data.WriteByte(1)
	writeU32(&data, SubtypePlain) // not in vencryptPreference
	tr := newMemTransport(data.Bytes())
	conn := wire.NewConn(tr)
	_, err := DoVeNCrypt(context.Background(), conn, Options{Upgrader: identityUpgrader})
	if err == nil {
		t.Fatal("expected error when no offered sub-type is supported")
	}
}

func writeU32(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v >> 24))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v))
}
