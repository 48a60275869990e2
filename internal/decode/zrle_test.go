package decode

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"testing"

	"github.com/rjsadow/vncengine/internal/wire"
)

func TestDecodeZRLESingleTile(t *testing.T) {
	// Plain tile stream: sub=1 (solid), cpixel green.
	plain := []byte{0x01, 0x00, 0xFF, 0x00}

	var compressedBuf bytes.Buffer
	zw := zlib.NewWriter(&compressedBuf)
	if _, err := zw.Write(plain); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	compressed := compressedBuf.Bytes()

	var wireData bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(compressed)))
	wireData.Write(lenBuf[:])
	wireData.Write(compressed)

	dc := newContext(t, wireData.Bytes())
	rect := wire.RectHeader{X: 0, Y: 0, W: 8, H: 8, Encoding: EncodingZRLE}

	result, err := Decode(context.Background(), dc, rect)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := bytes.Repeat([]byte{0x00, 0xFF, 0x00, 255}, 8*8)
	if !bytes.Equal(result.Pixels, want) {
		t.Fatalf("Pixels mismatch (len got %d want %d)", len(result.Pixels), len(want))
	}
}

func TestDecodeZRLEStreamPersistsAcrossRectangles(t *testing.T) {
	// Two independent tile-stream payloads compressed as ONE continuous
	// zlib stream, split across two separate ZRLE rectangles, proving the
	// persistent stream (not a fresh zlib context per rectangle) is used.
	tile1 := []byte{0x01, 0x00, 0x00, 0xFF} // solid red
	tile2 := []byte{0x01, 0xFF, 0x00, 0x00} // solid blue

	var compressedBuf bytes.Buffer
	zw := zlib.NewWriter(&compressedBuf)
	if _, err := zw.Write(tile1); err != nil {
		t.Fatalf("zlib write tile1: %v", err)
	}
	if err := zw.Flush(); err != nil {
		t.Fatalf("zlib flush: %v", err)
	}
	mid := compressedBuf.Len()
	if _, err := zw.Write(tile2); err != nil {
		t.Fatalf("zlib write tile2: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	full := compressedBuf.Bytes()
	firstChunk := full[:mid]
	secondChunk := full[mid:]

	var wireData bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(firstChunk)))
	wireData.Write(lenBuf[:])
	wireData.Write(firstChunk)
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(secondChunk)))
	wireData.Write(lenBuf[:])
	wireData.Write(secondChunk)

	dc := newContext(t, wireData.Bytes())
	rect1 := wire.RectHeader{W: 1, H: 1, Encoding: EncodingZRLE}
	rect2 := wire.RectHeader{W: 1, H: 1, Encoding: EncodingZRLE}

	r1, err := Decode(context.Background(), dc, rect1)
	if err != nil {
		t.Fatalf("Decode rect1: %v", err)
	}
	if !bytes.Equal(r1.Pixels, []byte{0xFF, 0x00, 0x00, 255}) {
		t.Fatalf("rect1 pixels = %v, want red", r1.Pixels)
	}

	r2, err := Decode(context.Background(), dc, rect2)
	if err != nil {
		t.Fatalf("Decode rect2: %v", err)
	}
	if !bytes.Equal(r2.Pixels, []byte{0x00, 0x00, 0xFF, 255}) {
		t.Fatalf("rect2 pixels = %v, want blue", r2.Pixels)
	}
}
