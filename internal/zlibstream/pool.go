// Package zlibstream manages the persistent inflate contexts Tight and
// ZRLE rely on: the compressed data for a given stream index is never a
// fresh zlib stream per rectangle, it is a continuation of everything
// written to that stream since the session began. Only the server's
// explicit reset bit (Tight) or session end may discard the dictionary.
//
// Uses a lazily constructed zlib.Reader over an append-only buffer.
package zlibstream

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Stream is one persistent inflate context.
type Stream struct {
	buf    *bytes.Buffer
	reader io.ReadCloser
}

func newStream() *Stream {
	return &Stream{buf: &bytes.Buffer{}}
}

// Feed appends newly received compressed bytes to the stream.
func (s *Stream) Feed(compressed []byte) {
	s.buf.Write(compressed)
}

// Read decompresses exactly len(p) bytes into p. Callers must know the
// expected decompressed length in advance (the tile/rectangle geometry
// always determines it), since a plain bytes.Buffer returns io.EOF once
// drained and the zlib reader would treat that as a truncated stream.
func (s *Stream) Read(p []byte) (int, error) {
	if s.reader == nil {
		r, err := zlib.NewReader(s.buf)
		if err != nil {
			return 0, fmt.Errorf("zlib: open stream: %w", err)
		}
		s.reader = r
	}
	return io.ReadFull(s.reader, p)
}

// Reset discards the dictionary and any buffered-but-unread bytes,
// starting the stream fresh. Used only when the server's Tight reset bit
// asks for it.
func (s *Stream) Reset() {
	if s.reader != nil {
		s.reader.Close()
	}
	s.buf = &bytes.Buffer{}
	s.reader = nil
}

// Pool holds the four Tight streams (indices 0..3) plus the one ZRLE/TRLE
// stream. Lifetime is the session; nothing else may touch these contexts.
type Pool struct {
	Tight [4]*Stream
	ZRLE  *Stream
}

func NewPool() *Pool {
	p := &Pool{ZRLE: newStream()}
	for i := range p.Tight {
		p.Tight[i] = newStream()
	}
	return p
}

// ResetTight resets the Tight streams whose corresponding bit is set in
// the low nibble of a Tight compression-control byte (bits 0..3).
func (p *Pool) ResetTight(resetBits uint8) {
	for i := 0; i < 4; i++ {
		if resetBits&(1<<uint(i)) != 0 {
			p.Tight[i].Reset()
		}
	}
}
