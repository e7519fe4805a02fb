package wsdriver

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nyxwire/wsdriver/internal"
)

func bytesIndex(haystack, needle []byte) int { return bytes.Index(haystack, needle) }

// recordingHandler captures every event a Driver fires, in order, for
// assertions. Grounded on the teacher's webSocketMocker pattern of a
// test-only Handler that records instead of acting.
type recordingHandler struct {
	NoopHandler
	opened   []string
	messages []Message
	pings    [][]byte
	pongs    [][]byte
	closed   []Code
	errors   []error
}

func (h *recordingHandler) OnOpen(d *Driver, protocol string) { h.opened = append(h.opened, protocol) }
func (h *recordingHandler) OnMessage(d *Driver, m Message)    { h.messages = append(h.messages, m) }
func (h *recordingHandler) OnPing(d *Driver, p []byte)        { h.pings = append(h.pings, p) }
func (h *recordingHandler) OnPong(d *Driver, p []byte)        { h.pongs = append(h.pongs, p) }
func (h *recordingHandler) OnClose(d *Driver, c Code, r string) { h.closed = append(h.closed, c) }
func (h *recordingHandler) OnError(d *Driver, err error)      { h.errors = append(h.errors, err) }

func sinkTo(out *[]byte) Sink {
	return func(p []byte) { *out = append(*out, p...) }
}

func hybiHandshakeRequest(key string) []byte {
	req := "GET /chat HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: " + key + "\r\n" +
		"Sec-WebSocket-Version: 13\r\n" +
		"\r\n"
	return []byte(req)
}

func TestServerDriver_HybiHandshake_AcceptKey(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))

	// The worked example from RFC 6455 Section 1.3.
	d.Parse(hybiHandshakeRequest("dGhlIHNhbXBsZSBub25jZQ=="))

	as.Equal(StateOpen, d.State())
	as.Equal([]string{""}, h.opened)
	as.Contains(string(out), "HTTP/1.1 101")
	as.Contains(string(out), "Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=")
}

func TestServerDriver_HandshakeSplitAcrossParseCalls(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))

	req := hybiHandshakeRequest("dGhlIHNhbXBsZSBub25jZQ==")
	d.Parse(req[:10])
	as.Equal(StateConnecting, d.State())
	d.Parse(req[10:])
	as.Equal(StateOpen, d.State())
	as.Len(h.opened, 1)
}

func TestServerDriver_TextEcho(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))
	d.Parse(hybiHandshakeRequest("dGhlIHNhbXBsZSBub25jZQ=="))
	out = nil

	frame := encodeHybiFrame(true, OpcodeText, []byte("hello"), true)
	d.Parse(frame)

	as.Len(h.messages, 1)
	as.Equal("hello", h.messages[0].Text())

	ok := d.Text("hello back")
	as.True(ok)

	buf := internal.NewByteBuffer()
	buf.Append(out)
	f, perr, decoded := decodeHybiFrame(buf)
	as.Nil(perr)
	as.True(decoded)
	as.Equal(OpcodeText, f.opcode)
	as.False(f.masked) // server frames are never masked
	as.Equal("hello back", string(f.payload))
}

func TestServerDriver_FragmentedMessage(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))
	d.Parse(hybiHandshakeRequest("dGhlIHNhbXBsZSBub25jZQ=="))

	d.Parse(encodeHybiFrame(false, OpcodeText, []byte("frag"), true))
	as.Empty(h.messages)
	d.Parse(encodeHybiFrame(true, OpcodeContinuation, []byte("ment"), true))
	as.Len(h.messages, 1)
	as.Equal("fragment", h.messages[0].Text())
}

func TestServerDriver_PingAutoRepliesWithPong(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))
	d.Parse(hybiHandshakeRequest("dGhlIHNhbXBsZSBub25jZQ=="))
	out = nil

	d.Parse(encodeHybiFrame(true, OpcodePing, []byte("ping-payload"), true))
	as.Equal([][]byte{[]byte("ping-payload")}, h.pings)

	buf := internal.NewByteBuffer()
	buf.Append(out)
	f, _, ok := decodeHybiFrame(buf)
	as.True(ok)
	as.Equal(OpcodePong, f.opcode)
	as.Equal("ping-payload", string(f.payload))
}

func TestDriver_PongMatchesPendingPingCallback(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))
	d.Parse(hybiHandshakeRequest("dGhlIHNhbXBsZSBub25jZQ=="))

	fired := false
	d.Ping([]byte("myping"), func() { fired = true })
	as.False(fired)

	d.Parse(encodeHybiFrame(true, OpcodePong, []byte("myping"), true))
	as.True(fired)
	as.Len(h.pongs, 1)
}

func TestServerDriver_CloseHandshake(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))
	d.Parse(hybiHandshakeRequest("dGhlIHNhbXBsZSBub25jZQ=="))
	out = nil

	closePayload := append(CloseGoingAway.Bytes(), []byte("bye")...)
	d.Parse(encodeHybiFrame(true, OpcodeClose, closePayload, true))

	as.Equal(StateClosed, d.State())
	as.Equal([]Code{CloseGoingAway}, h.closed)

	buf := internal.NewByteBuffer()
	buf.Append(out)
	f, _, ok := decodeHybiFrame(buf)
	as.True(ok)
	as.Equal(OpcodeClose, f.opcode)
}

func TestDriver_RejectsSendAfterClose(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))
	d.Parse(hybiHandshakeRequest("dGhlIHNhbXBsZSBub25jZQ=="))
	d.Parse(encodeHybiFrame(true, OpcodeClose, CloseNormalClosure.Bytes(), true))

	as.False(d.Text("too late"))
	as.False(d.Binary([]byte("too late")))
}

func TestDriver_OnCloseFiresExactlyOnce(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))
	d.Parse(hybiHandshakeRequest("dGhlIHNhbXBsZSBub25jZQ=="))
	d.Parse(encodeHybiFrame(true, OpcodeClose, CloseNormalClosure.Bytes(), true))
	d.Parse(encodeHybiFrame(true, OpcodeText, []byte("ignored, already closed"), true))

	as.Len(h.closed, 1)
	as.Empty(h.messages)
}

func TestDriver_QueuedSendsFlushInOrderOnOpen(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))

	as.True(d.Text("first"))
	as.True(d.Text("second"))
	as.Empty(out)

	d.Parse(hybiHandshakeRequest("dGhlIHNhbXBsZSBub25jZQ=="))

	// Server frames are unmasked and thus byte-for-byte deterministic;
	// look for both queued frames appearing, in FIFO order, after the
	// handshake response text.
	frameFirst := encodeHybiFrame(true, OpcodeText, []byte("first"), false)
	frameSecond := encodeHybiFrame(true, OpcodeText, []byte("second"), false)
	idxFirst := bytesIndex(out, frameFirst)
	idxSecond := bytesIndex(out, frameSecond)
	as.GreaterOrEqual(idxFirst, 0)
	as.GreaterOrEqual(idxSecond, 0)
	as.Less(idxFirst, idxSecond)
}

func TestClientDriver_HandshakeAndAcceptValidation(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewClientDriver("/chat", "example.com", h, sinkTo(&out))
	d.Start()
	as.Contains(string(out), "GET /chat HTTP/1.1")
	as.Contains(string(out), "Sec-WebSocket-Key: ")

	// Extract the key the client sent so the test can compute the
	// server's Accept response the same way a real peer would.
	key := d.clientKey
	sum := sha1.Sum([]byte(key + internal.UpgradeGUID))
	accept := base64.StdEncoding.EncodeToString(sum[:])

	response := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + accept + "\r\n" +
		"\r\n"
	d.Parse([]byte(response))

	as.Equal(StateOpen, d.State())
	as.Len(h.opened, 1)
}

func TestClientDriver_RejectsBadAcceptKey(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewClientDriver("/chat", "example.com", h, sinkTo(&out))
	d.Start()

	response := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: not-the-right-value\r\n" +
		"\r\n"
	d.Parse([]byte(response))

	as.Equal(StateClosed, d.State())
	as.Len(h.errors, 1)
}

func TestServerDriver_HybiNegotiatesVersion8(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))

	req := "GET /chat HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 8\r\n" +
		"\r\n"
	d.Parse([]byte(req))

	as.Equal(StateOpen, d.State())
	as.Equal("hybi-8", d.Version())
	as.True(d.SupportsBinary())
	as.True(d.SupportsPing())
}

func TestServerDriver_Binary_UnsupportedOnHixie(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))
	d.Parse([]byte("GET /demo HTTP/1.1\r\nHost: example.com\r\nConnection: Upgrade\r\nUpgrade: WebSocket\r\n\r\n"))

	as.Equal(StateOpen, d.State())
	as.Equal("hixie-75", d.Version())
	as.False(d.SupportsBinary())
	as.False(d.SupportsPing())
	as.False(d.Binary([]byte("x")))
	as.False(d.Ping([]byte("x"), nil))
}

func TestServerDriver_Hixie76Handshake_RejectsMissingKeys(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))

	req := "GET /demo HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Connection: Upgrade\r\n" +
		"Upgrade: WebSocket\r\n" +
		"Sec-WebSocket-Key1: 4 @1  46546xW%0l 1 5\r\n" +
		"\r\n"
	d.Parse([]byte(req))

	as.Equal(StateClosed, d.State())
	as.Len(h.errors, 1)
}
