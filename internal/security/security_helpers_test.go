package security

import (
	"bytes"
	"context"
	"io"
)

// memTransport is a minimal wire.Transport over a fixed read buffer, with
// writes captured separately for inspection.
type memTransport struct {
	r       *bytes.Reader
	written bytes.Buffer
}

func newMemTransport(data []byte) *memTransport {
	return &memTransport{r: bytes.NewReader(data)}
}

func (m *memTransport) ReadSome(ctx context.Context, buf []byte) (int, error) {
	n, err := m.r.Read(buf)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (m *memTransport) WriteAll(ctx context.Context, buf []byte) error {
	m.written.Write(buf)
	return nil
}
