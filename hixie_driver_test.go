package wsdriver

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerDriver_Hixie76Handshake_TwoPhase(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))

	key1 := "4 @1  46546xW%0l 1 5"
	key2 := "12998 5 Y3 1  .P00"
	body := [8]byte{'T', 'm', '[', 'K', ' ', 'T', '2', 'u'}

	req := "GET /demo HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Connection: Upgrade\r\n" +
		"Upgrade: WebSocket\r\n" +
		"Origin: http://example.com\r\n" +
		"Sec-WebSocket-Key1: " + key1 + "\r\n" +
		"Sec-WebSocket-Key2: " + key2 + "\r\n" +
		"\r\n"

	// Headers arrive first; the driver must not open yet, since it
	// still needs the 8-byte body.
	d.Parse([]byte(req))
	as.Equal(StateConnecting, d.State())
	as.Contains(string(out), "HTTP/1.1 101 WebSocket Protocol Handshake")
	as.Empty(h.opened)

	out = nil
	d.Parse(body[:])
	as.Equal(StateOpen, d.State())
	as.Len(h.opened, 1)

	expected := hixie76Challenge(key1, key2, body)
	as.Equal(expected[:], out)
}

func TestServerDriver_Hixie76Handshake_BodySplitAcrossParseCalls(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))

	req := "GET /demo HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Connection: Upgrade\r\n" +
		"Upgrade: WebSocket\r\n" +
		"Sec-WebSocket-Key1: 3e6b263  4 17 80\r\n" +
		"Sec-WebSocket-Key2: 17  9 G`ZD9   2 2b 7X 3 /r90\r\n" +
		"\r\n"
	d.Parse([]byte(req))
	as.Equal(StateConnecting, d.State())

	body := []byte("WjN}|t7v")
	d.Parse(body[:4])
	as.Equal(StateConnecting, d.State())
	d.Parse(body[4:])
	as.Equal(StateOpen, d.State())
	as.Len(h.opened, 1)
}

func TestServerDriver_Hixie75Handshake_TextMessage(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))

	req := "GET /demo HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Connection: Upgrade\r\n" +
		"Upgrade: WebSocket\r\n" +
		"Origin: http://example.com\r\n" +
		"\r\n"
	d.Parse([]byte(req))
	as.Equal(StateOpen, d.State())
	as.Contains(string(out), "HTTP/1.1 101 Web Socket Protocol Handshake")

	out = nil
	d.Parse(encodeHixieTextFrame([]byte("hello hixie75")))
	as.Len(h.messages, 1)
	as.Equal("hello hixie75", h.messages[0].Text())

	as.True(d.Text("reply"))
	as.True(bytes.Equal(out, encodeHixieTextFrame([]byte("reply"))))
}

func TestServerDriver_Hixie75Close_IsImmediate(t *testing.T) {
	as := assert.New(t)
	h := &recordingHandler{}
	var out []byte
	d := NewServerDriver(h, sinkTo(&out))
	d.Parse([]byte("GET /demo HTTP/1.1\r\nHost: example.com\r\nConnection: Upgrade\r\nUpgrade: WebSocket\r\n\r\n"))

	as.True(d.Close(0, ""))
	as.Equal(StateClosed, d.State())
	as.Equal([]Code{CloseNormalClosure}, h.closed)
}
