// Package vncengine implements an RFB (VNC) protocol client: version and
// security negotiation (VNC password auth and VeNCrypt TLS sub-types),
// ClientInit/ServerInit, and a running loop that turns FramebufferUpdate
// rectangles into decoded events (Raw, CopyRect, Tight, TRLE, ZRLE, plus
// the DesktopSize/Cursor/LastRect pseudo-encodings) while accepting
// caller-submitted pointer, keyboard, clipboard and refresh requests.
//
// Connect drives the handshake to completion over a caller-supplied
// Transport:
//
//	client, err := vncengine.Connect(ctx, vncengine.Builder{
//		Transport:   tcpTransport,
//		Credentials: vncengine.Credentials{Kind: vncengine.CredPassword, Password: []byte("secret")},
//	})
//
// Once connected, Advance drives one round of protocol work at a time,
// PollEvent drains decoded output, and Input submits client-to-server
// events. The engine is not safe for concurrent use from multiple
// goroutines; callers wanting a deadline race Advance(ctx) against their
// own timer.
package vncengine
