package security

import (
	"context"
	"crypto/des"

	"github.com/rjsadow/vncengine/internal/wire"
)

// reverseBits reverses the bits within a single byte — the documented VNC
// quirk where the 8-byte password key has each byte bit-reversed before
// use as a DES key.
func reverseBits(b byte) byte {
	var out byte
	for i := 0; i < 8; i++ {
		out <<= 1
		out |= b & 1
		b >>= 1
	}
	return out
}

// desKeyFromPassword truncates/zero-pads the password to 8 bytes and
// bit-reverses each byte to form the DES key VNC auth uses.
func desKeyFromPassword(password []byte) [8]byte {
	var key [8]byte
	n := len(password)
	if n > 8 {
		n = 8
	}
	copy(key[:n], password[:n])
	for i := range key {
		key[i] = reverseBits(key[i])
	}
	return key
}

// EncryptVncChallenge encrypts a 16-byte challenge as two 8-byte ECB
// blocks under the bit-reversed password key.
func EncryptVncChallenge(password, challenge []byte) ([]byte, error) {
	key := desKeyFromPassword(password)
	block, err := des.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(challenge))
	for off := 0; off+8 <= len(challenge); off += 8 {
		block.Encrypt(out[off:off+8], challenge[off:off+8])
	}
	return out, nil
}

// DoVncAuth performs the VncAuth challenge-response: read the 16-byte
// challenge, encrypt it, write the response.
func DoVncAuth(ctx context.Context, conn *wire.Conn, password []byte) error {
	challenge, err := conn.ReadFull(ctx, 16)
	if err != nil {
		return err
	}
	response, err := EncryptVncChallenge(password, challenge)
	if err != nil {
		return &Error{Kind: "AuthFailed", Reason: "DES key setup failed", Err: err}
	}
	conn.WriteBytes(response)
	return conn.Flush(ctx)
}
