package wsdriver

import (
	"crypto/sha1"
	"encoding/base64"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/nyxwire/wsdriver/internal"
)

// acceptKey computes the Sec-WebSocket-Accept value RFC 6455 Section 4.2.2
// derives from a client's Sec-WebSocket-Key.
func acceptKey(clientKey string) string {
	h := sha1.New()
	h.Write([]byte(clientKey))
	h.Write([]byte(internal.UpgradeGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// hybiServerHandshake validates an inbound Hybi handshake request and, if
// it's well-formed, returns the response status line + headers to write
// and the negotiated subprotocol. Grounded on the teacher's upgrader.go
// header checks, accumulated with go.uber.org/multierr the way
// momentics-hioload-ws's own validation layer reports every violation at
// once instead of stopping at the first.
type hybiHandshakeResult struct {
	response []byte
	protocol string
	version  string
}

func hybiServerHandshake(h RequestHeaders, cfg *Config) (*hybiHandshakeResult, error) {
	var errs error

	if !strings.EqualFold(h.Get("Request-Method"), "GET") {
		errs = multierr.Append(errs, errHandshakeFailed)
	}
	upgrade := strings.ToLower(h.Get(internal.HeaderUpgrade))
	if !strings.Contains(upgrade, internal.ValueUpgrade) {
		errs = multierr.Append(errs, errHandshakeFailed)
	}
	if !headerHasToken(h.Get(internal.HeaderConnection), "upgrade") {
		errs = multierr.Append(errs, errHandshakeFailed)
	}
	version := h.Get(internal.HeaderSecWebSocketVersion)
	if version != "13" && version != "8" {
		errs = multierr.Append(errs, errHandshakeFailed)
	}
	clientKey := h.Get(internal.HeaderSecWebSocketKey)
	if clientKey == "" {
		errs = multierr.Append(errs, errHandshakeFailed)
	}
	if errs != nil {
		return nil, errs
	}

	protocol := negotiateSubProtocol(h.Get(internal.HeaderSecWebSocketProtocol), cfg.SubProtocols)

	var b strings.Builder
	b.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	b.WriteString(internal.HeaderUpgrade + ": websocket\r\n")
	b.WriteString(internal.HeaderConnection + ": " + internal.ValueConnected + "\r\n")
	b.WriteString(internal.HeaderSecWebSocketAccept + ": " + acceptKey(clientKey) + "\r\n")
	if protocol != "" {
		b.WriteString(internal.HeaderSecWebSocketProtocol + ": " + protocol + "\r\n")
	}
	// RejectPermessageDeflate defaults to true: since no extension is
	// implemented (spec.md §1 Non-goals), the response simply never
	// echoes Sec-WebSocket-Extensions back, which is sufficient to
	// decline whatever the client offered.
	b.WriteString("\r\n")

	return &hybiHandshakeResult{response: []byte(b.String()), protocol: protocol, version: version}, nil
}

// negotiateSubProtocol picks the first entry of serverList (priority
// order) that also appears in the client's comma-separated offer,
// mirroring the teacher's WithSubProtocols / GetIntersectionElem
// resolution order.
func negotiateSubProtocol(clientOffer string, serverList []string) string {
	if clientOffer == "" || len(serverList) == 0 {
		return ""
	}
	offered := make(map[string]bool)
	for _, p := range strings.Split(clientOffer, ",") {
		offered[strings.TrimSpace(p)] = true
	}
	for _, want := range serverList {
		if offered[want] {
			return want
		}
	}
	return ""
}

// hybiClientRequest builds the request line+headers a client-side Driver
// sends to open a Hybi handshake, and returns the key it must later
// verify the server's Sec-WebSocket-Accept against.
func hybiClientRequest(path, host string, subProtocols []string) (request []byte, clientKey string) {
	clientKey = internal.NewClientKey()

	var b strings.Builder
	b.WriteString("GET " + path + " HTTP/1.1\r\n")
	b.WriteString(internal.HeaderHost + ": " + host + "\r\n")
	b.WriteString(internal.HeaderUpgrade + ": websocket\r\n")
	b.WriteString(internal.HeaderConnection + ": " + internal.ValueConnected + "\r\n")
	b.WriteString(internal.HeaderSecWebSocketKey + ": " + clientKey + "\r\n")
	b.WriteString(internal.HeaderSecWebSocketVersion + ": 13\r\n")
	if len(subProtocols) > 0 {
		b.WriteString(internal.HeaderSecWebSocketProtocol + ": " + strings.Join(subProtocols, ", ") + "\r\n")
	}
	b.WriteString("\r\n")
	return []byte(b.String()), clientKey
}

// hybiClientValidateResponse checks a server's handshake response against
// the key the client sent, returning the negotiated subprotocol.
func hybiClientValidateResponse(h RequestHeaders, clientKey string) (protocol string, err error) {
	want := acceptKey(clientKey)
	got := h.Get(internal.HeaderSecWebSocketAccept)
	if got == "" || got != want {
		return "", errHandshakeFailed
	}
	return h.Get(internal.HeaderSecWebSocketProtocol), nil
}

// parseStatusLine extracts the numeric status code from an HTTP response
// status line ("HTTP/1.1 101 Switching Protocols"), used by the
// client-side handshake reader to recognize a successful upgrade.
func parseStatusLine(line string) (int, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, false
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return code, true
}
