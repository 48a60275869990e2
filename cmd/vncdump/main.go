// Command vncdump connects to an RFB server, drives the handshake and a
// fixed number of FramebufferUpdate rounds, and writes the last full frame
// it assembled out as a PPM image.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rjsadow/vncengine"
	"github.com/rjsadow/vncengine/transport/tcp"
)

func main() {
	addr := flag.String("addr", "localhost:5900", "RFB server address")
	password := flag.String("password", "", "VNC password, if required")
	out := flag.String("out", "frame.ppm", "path to write the assembled frame as a PPM image")
	rounds := flag.Int("rounds", 8, "number of FramebufferUpdate rounds to process before dumping")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline for connect and capture")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, *addr, *password, *out, *rounds); err != nil {
		log.Fatalf("vncdump: %v", err)
	}
}

func run(ctx context.Context, addr, password, out string, rounds int) error {
	conn, err := tcp.Dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	builder := vncengine.Builder{
		Transport:   conn,
		TLSUpgrader: tcp.Upgrade,
	}
	if password != "" {
		builder.Credentials = vncengine.Credentials{
			Kind:     vncengine.CredPassword,
			Password: []byte(password),
		}
	}

	client, err := vncengine.Connect(ctx, builder)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	fbState := client.FramebufferState()
	log.Printf("connected: %dx%d, %d encodings accepted", fbState.Width, fbState.Height, len(fbState.Encodings))

	frame := newFrameBuffer(fbState.Width, fbState.Height)

	for i := 0; i < rounds; i++ {
		if err := client.Advance(ctx); err != nil {
			return fmt.Errorf("advance round %d: %w", i, err)
		}
		for {
			ev, ok := client.PollEvent()
			if !ok {
				break
			}
			switch e := ev.(type) {
			case vncengine.DecodedRect:
				frame.apply(e)
			case vncengine.Resize:
				frame = newFrameBuffer(e.W, e.H)
			case vncengine.Bell:
				log.Print("bell")
			case vncengine.Disconnected:
				return fmt.Errorf("disconnected: %s: %w", e.Reason, e.Err)
			}
		}
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()
	return frame.writePPM(f)
}

// frameBuffer accumulates decoded rectangles into one RGBA image for the
// final PPM dump.
type frameBuffer struct {
	w, h int
	pix  []byte // RGBA, w*h*4
}

func newFrameBuffer(w, h int) *frameBuffer {
	return &frameBuffer{w: w, h: h, pix: make([]byte, w*h*4)}
}

func (f *frameBuffer) apply(r vncengine.DecodedRect) {
	if r.IsCopyRect {
		f.copyRect(r)
		return
	}
	for y := 0; y < r.H; y++ {
		srcRow := y * r.W * 4
		dstY := r.Y + y
		if dstY < 0 || dstY >= f.h {
			continue
		}
		for x := 0; x < r.W; x++ {
			dstX := r.X + x
			if dstX < 0 || dstX >= f.w {
				continue
			}
			src := srcRow + x*4
			dst := (dstY*f.w + dstX) * 4
			if src+4 > len(r.Pixels) || dst+4 > len(f.pix) {
				continue
			}
			copy(f.pix[dst:dst+4], r.Pixels[src:src+4])
		}
	}
}

// copyRect blits a region of the caller's own accumulated framebuffer,
// copying row by row in the direction that avoids overlap corruption.
func (f *frameBuffer) copyRect(r vncengine.DecodedRect) {
	rowBuf := make([]byte, r.W*4)
	yRange := make([]int, r.H)
	for i := range yRange {
		yRange[i] = i
	}
	if r.Y > r.SrcY {
		for i, j := 0, len(yRange)-1; i < j; i, j = i+1, j-1 {
			yRange[i], yRange[j] = yRange[j], yRange[i]
		}
	}
	for _, y := range yRange {
		srcY, dstY := r.SrcY+y, r.Y+y
		if srcY < 0 || srcY >= f.h || dstY < 0 || dstY >= f.h {
			continue
		}
		srcOff := (srcY*f.w + r.SrcX) * 4
		dstOff := (dstY*f.w + r.X) * 4
		if srcOff+len(rowBuf) > len(f.pix) || dstOff+len(rowBuf) > len(f.pix) {
			continue
		}
		copy(rowBuf, f.pix[srcOff:srcOff+len(rowBuf)])
		copy(f.pix[dstOff:dstOff+len(rowBuf)], rowBuf)
	}
}

func (f *frameBuffer) writePPM(w *os.File) error {
	if _, err := fmt.Fprintf(w, "P6\n%d %d\n255\n", f.w, f.h); err != nil {
		return err
	}
	rgb := make([]byte, f.w*3)
	for y := 0; y < f.h; y++ {
		for x := 0; x < f.w; x++ {
			src := (y*f.w + x) * 4
			rgb[x*3] = f.pix[src]
			rgb[x*3+1] = f.pix[src+1]
			rgb[x*3+2] = f.pix[src+2]
		}
		if _, err := w.Write(rgb); err != nil {
			return err
		}
	}
	return nil
}
