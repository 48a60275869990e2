package session_test

import (
	"bytes"
	"context"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rjsadow/vncengine/internal/decode"
	"github.com/rjsadow/vncengine/internal/pixfmt"
	"github.com/rjsadow/vncengine/internal/security"
	"github.com/rjsadow/vncengine/internal/session"
)

// mockTransport replays a fixed byte stream to the session and records
// everything the session writes back, standing in for a real RFB server.
type mockTransport struct {
	r       *bytes.Reader
	written bytes.Buffer
}

func newMockTransport(data []byte) *mockTransport {
	return &mockTransport{r: bytes.NewReader(data)}
}

func (m *mockTransport) ReadSome(ctx context.Context, buf []byte) (int, error) {
	if m.r.Len() == 0 {
		return 0, io.EOF
	}
	n, err := m.r.Read(buf)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (m *mockTransport) WriteAll(ctx context.Context, buf []byte) error {
	m.written.Write(buf)
	return nil
}

func putU16(b *bytes.Buffer, v uint16) {
	b.WriteByte(byte(v >> 8))
	b.WriteByte(byte(v))
}

func putU32(b *bytes.Buffer, v uint32) {
	b.WriteByte(byte(v >> 24))
	b.WriteByte(byte(v >> 16))
	b.WriteByte(byte(v >> 8))
	b.WriteByte(byte(v))
}

func serverInit(width, height uint16) []byte {
	var b bytes.Buffer
	putU16(&b, width)
	putU16(&b, height)
	b.Write(pixfmt.DefaultDescriptor.Encode())
	putU32(&b, 0)
	return b.Bytes()
}

func handshakeNone(width, height uint16) []byte {
	var b bytes.Buffer
	b.WriteString("RFB 003.008\n")
	b.WriteByte(1)
	b.WriteByte(security.TypeNone)
	putU32(&b, 0)
	b.Write(serverInit(width, height))
	return b.Bytes()
}

func handshakeVncAuth(password string, challenge []byte, width, height uint16) []byte {
	var b bytes.Buffer
	b.WriteString("RFB 003.008\n")
	b.WriteByte(1)
	b.WriteByte(security.TypeVncAuth)
	b.Write(challenge)
	putU32(&b, 0)
	b.Write(serverInit(width, height))
	return b.Bytes()
}

var _ = Describe("RFB client session", func() {
	It("completes a no-auth handshake and exposes the negotiated framebuffer", func() {
		tr := newMockTransport(handshakeNone(1024, 768))
		eng := session.New(session.Options{Transport: tr})

		Expect(eng.Advance(context.Background())).To(Succeed())

		w, h, _, encodings := eng.Framebuffer()
		Expect(w).To(Equal(1024))
		Expect(h).To(Equal(768))
		Expect(encodings).NotTo(BeEmpty())

		ev, ok := eng.PollEvent()
		Expect(ok).To(BeTrue())
		Expect(ev).To(Equal(session.Resize{W: 1024, H: 768}))
	})

	It("authenticates with a VNC password and decodes an incoming raw rectangle", func() {
		challenge := bytes.Repeat([]byte{0x11}, 16)
		var stream bytes.Buffer
		stream.Write(handshakeVncAuth("swordfish", challenge, 2, 1))
		stream.WriteByte(0) // FramebufferUpdate
		stream.WriteByte(0)
		putU16(&stream, 1)
		putU16(&stream, 0)
		putU16(&stream, 0)
		putU16(&stream, 2)
		putU16(&stream, 1)
		putU32(&stream, uint32(decode.EncodingRaw))
		stream.Write([]byte{0x00, 0xFF, 0x00, 0x00}) // green
		stream.Write([]byte{0xFF, 0x00, 0x00, 0x00}) // blue

		tr := newMockTransport(stream.Bytes())
		eng := session.New(session.Options{
			Transport:   tr,
			Credentials: security.Credentials{Kind: security.CredPassword, Password: []byte("swordfish")},
		})

		Expect(eng.Advance(context.Background())).To(Succeed())
		Expect(eng.Advance(context.Background())).To(Succeed())

		ev, ok := eng.PollEvent()
		Expect(ok).To(BeTrue())
		Expect(ev).To(Equal(session.Resize{W: 2, H: 1}))

		ev, ok = eng.PollEvent()
		Expect(ok).To(BeTrue())
		rect, ok := ev.(session.DecodedRect)
		Expect(ok).To(BeTrue())
		Expect(rect.W).To(Equal(2))
		Expect(rect.H).To(Equal(1))
		Expect(rect.Pixels).To(HaveLen(8))
	})

	It("surfaces AuthFailed and disconnects when the server rejects VncAuth", func() {
		var stream bytes.Buffer
		stream.WriteString("RFB 003.008\n")
		stream.WriteByte(1)
		stream.WriteByte(security.TypeVncAuth)
		stream.Write(bytes.Repeat([]byte{0x22}, 16))
		putU32(&stream, 1)
		reason := "bad password"
		putU32(&stream, uint32(len(reason)))
		stream.WriteString(reason)

		tr := newMockTransport(stream.Bytes())
		eng := session.New(session.Options{
			Transport:   tr,
			Credentials: security.Credentials{Kind: security.CredPassword, Password: []byte("wrong")},
		})

		err := eng.Advance(context.Background())
		Expect(err).To(HaveOccurred())

		ev, ok := eng.PollEvent()
		Expect(ok).To(BeTrue())
		disc, ok := ev.(session.Disconnected)
		Expect(ok).To(BeTrue())
		Expect(disc.Reason).To(Equal("AuthFailed"))
	})

	It("reports a DesktopSize pseudo-rectangle as a Resize event and updates Framebuffer", func() {
		var stream bytes.Buffer
		stream.Write(handshakeNone(640, 480))
		stream.WriteByte(0)
		stream.WriteByte(0)
		putU16(&stream, 1)
		putU16(&stream, 0)
		putU16(&stream, 0)
		putU16(&stream, 1920)
		putU16(&stream, 1080)
		desktopSizeEncoding := decode.EncodingDesktopSize
		putU32(&stream, uint32(desktopSizeEncoding))

		tr := newMockTransport(stream.Bytes())
		eng := session.New(session.Options{Transport: tr})

		Expect(eng.Advance(context.Background())).To(Succeed())
		Expect(eng.Advance(context.Background())).To(Succeed())

		ev, ok := eng.PollEvent()
		Expect(ok).To(BeTrue())
		Expect(ev).To(Equal(session.Resize{W: 640, H: 480}))

		ev, ok = eng.PollEvent()
		Expect(ok).To(BeTrue())
		resize, ok := ev.(session.Resize)
		Expect(ok).To(BeTrue())
		Expect(resize.W).To(Equal(1920))
		Expect(resize.H).To(Equal(1080))

		w, h, _, _ := eng.Framebuffer()
		Expect(w).To(Equal(1920))
		Expect(h).To(Equal(1080))
	})

	It("surfaces TransportClosed when the server vanishes mid-session", func() {
		tr := newMockTransport(handshakeNone(100, 100))
		eng := session.New(session.Options{Transport: tr})
		Expect(eng.Advance(context.Background())).To(Succeed())
		_, _ = eng.PollEvent() // initial Resize

		err := eng.Advance(context.Background())
		Expect(err).To(HaveOccurred())

		ev, ok := eng.PollEvent()
		Expect(ok).To(BeTrue())
		disc, ok := ev.(session.Disconnected)
		Expect(ok).To(BeTrue())
		Expect(disc.Reason).To(Equal("TransportClosed"))
	})

	It("coalesces a pointer burst without suspending Advance", func() {
		var stream bytes.Buffer
		stream.Write(handshakeNone(100, 100))
		stream.WriteByte(2) // Bell, so the post-flush read has something to consume

		tr := newMockTransport(stream.Bytes())
		eng := session.New(session.Options{Transport: tr})
		Expect(eng.Advance(context.Background())).To(Succeed())
		_, _ = eng.PollEvent() // initial Resize

		// A burst far beyond the limiter's burst size, then a key press.
		for i := 0; i < 50; i++ {
			Expect(eng.Input(session.PointerMove{X: i, Y: i, Buttons: 0})).To(Succeed())
		}
		Expect(eng.Input(session.Key{Keysym: 'q', Pressed: true})).To(Succeed())

		// Advance must return synchronously: superseded samples are dropped
		// via the limiter, never waited out.
		Expect(eng.Advance(context.Background())).To(Succeed())

		written := tr.written.Bytes()
		finalPointer := []byte{5, 0, 0, 49, 0, 49}
		Expect(bytes.Contains(written, finalPointer)).To(BeTrue(),
			"the newest pointer sample must always be written")
		keyEvent := []byte{4, 1, 0, 0, 0, 0, 0, 'q'}
		Expect(bytes.Index(written, keyEvent)).To(BeNumerically(">", bytes.Index(written, finalPointer)),
			"kept events must stay in submission order")
	})
})
