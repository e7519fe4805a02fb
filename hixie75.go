package wsdriver

import (
	"strings"

	"github.com/nyxwire/wsdriver/internal"
)

// hixie75ServerResponse builds the complete Hixie-75 handshake response
// (spec.md §4.3): no challenge, no body, just the header block. Grounded
// in shape on seanrobmerriam-webos's handshake.go response-header
// construction, though that repo targets Hybi; the field set here is
// taken from spec.md §4.3 since no pack repo implements Hixie-75.
func hixie75ServerResponse(h RequestHeaders) []byte {
	origin := h.Get(internal.HeaderOrigin)
	location := requestURL(h)

	var b strings.Builder
	b.WriteString("HTTP/1.1 101 Web Socket Protocol Handshake\r\n")
	b.WriteString(internal.HeaderUpgrade + ": WebSocket\r\n")
	b.WriteString(internal.HeaderConnection + ": " + internal.ValueConnected + "\r\n")
	b.WriteString(internal.HeaderWebSocketOrigin + ": " + origin + "\r\n")
	b.WriteString(internal.HeaderWebSocketLocation + ": " + location + "\r\n")
	if p := h.Get(internal.HeaderSecWebSocketProtocol); p != "" {
		b.WriteString(internal.HeaderWebSocketProtocol + ": " + p + "\r\n")
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}
