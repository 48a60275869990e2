package security

import (
	"context"
	"fmt"

	"github.com/rjsadow/vncengine/internal/wire"
)

// ProtocolVersion is a parsed "RFB xxx.yyy" version line.
type ProtocolVersion struct {
	Major, Minor int
}

func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

var (
	v33 = ProtocolVersion{3, 3}
	v37 = ProtocolVersion{3, 7}
	v38 = ProtocolVersion{3, 8}
)

// NegotiateVersion reads the server's 12-byte ProtocolVersion line, picks
// the highest version both sides support (3.3, 3.7 or 3.8) and writes our
// reply.
func NegotiateVersion(ctx context.Context, conn *wire.Conn) (ProtocolVersion, error) {
	b, err := conn.ReadFull(ctx, 12)
	if err != nil {
		return ProtocolVersion{}, err
	}
	var major, minor int
	if _, err := fmt.Sscanf(string(b), "RFB %d.%d\n", &major, &minor); err != nil {
		return ProtocolVersion{}, &Error{Kind: "ProtocolViolation", Reason: "malformed ProtocolVersion line", Err: err}
	}

	if major < 3 || (major == 3 && minor < 3) {
		return ProtocolVersion{}, &Error{Kind: "UnsupportedVersion", Reason: fmt.Sprintf("server announced %d.%d", major, minor)}
	}

	chosen := v38
	switch {
	case major == 3 && minor == 3:
		chosen = v33
	case major == 3 && minor < 7:
		chosen = v33
	case major == 3 && minor == 7:
		chosen = v37
	default:
		chosen = v38
	}

	conn.WriteBytes([]byte(fmt.Sprintf("RFB %03d.%03d\n", chosen.Major, chosen.Minor)))
	if err := conn.Flush(ctx); err != nil {
		return ProtocolVersion{}, err
	}
	return chosen, nil
}
