package wsdriver

import (
	"strings"

	"github.com/nyxwire/wsdriver/internal"
)

// RequestHeaders is a CGI-style header source (spec.md §4.2 references
// HTTP_* environment variables), the same shape the teacher's upgrader
// reads from net/http but collapsed to a plain map so this package never
// imports net/http: the driver has no transport of its own.
//
// Keys are matched case-insensitively and tolerate both the raw header
// form ("Sec-WebSocket-Key") and the CGI form ("HTTP_SEC_WEBSOCKET_KEY").
type RequestHeaders map[string]string

// Get looks up a header by its plain (non-CGI) name, e.g. "Sec-WebSocket-Key".
func (h RequestHeaders) Get(name string) string {
	if v, ok := h[name]; ok {
		return v
	}
	norm := normalizeHeaderName(name)
	for k, v := range h {
		if normalizeHeaderName(k) == norm {
			return v
		}
	}
	return ""
}

// normalizeHeaderName folds both "Sec-WebSocket-Key" and
// "HTTP_SEC_WEBSOCKET_KEY" to the same comparison key.
func normalizeHeaderName(name string) string {
	name = strings.TrimPrefix(strings.ToUpper(name), "HTTP_")
	return strings.NewReplacer("-", "_", " ", "_").Replace(name)
}

// IsWebSocketRequest reports whether h is a well-formed handshake
// request (spec.md §6): method GET, a Connection header whose
// comma-split token list contains "upgrade" (case-insensitive), and an
// Upgrade header equal to "websocket" (case-insensitive).
func IsWebSocketRequest(h RequestHeaders) bool {
	if !strings.EqualFold(h.Get("Request-Method"), "GET") {
		return false
	}
	if !headerHasToken(h.Get(internal.HeaderConnection), "upgrade") {
		return false
	}
	return strings.EqualFold(h.Get(internal.HeaderUpgrade), internal.ValueUpgrade)
}

// headerHasToken reports whether value, split on commas, contains token
// as one of its trimmed elements (case-insensitive) — the way
// Connection: keep-alive, Upgrade must be checked rather than with a
// bare substring match.
func headerHasToken(value, token string) bool {
	for _, part := range strings.Split(value, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// detectVariant chooses which of the three protocol drivers a server
// should run for an inbound handshake request, per spec.md §4.1: a
// Sec-WebSocket-Version header means Hybi; its absence alongside a
// Sec-WebSocket-Key1 means Hixie-76; absence of both means Hixie-75.
func detectVariant(h RequestHeaders) variant {
	if h.Get(internal.HeaderSecWebSocketVersion) != "" {
		return variantHybi
	}
	if h.Get(internal.HeaderSecWebSocketKey1) != "" {
		return variantHixie76
	}
	return variantHixie75
}

// requestURL derives the ws(s):// URL a server-side Driver exposes via
// Driver.URL(), following the same precedence the teacher's upgrader
// uses when it builds a request line from CGI-ish headers: an
// X-Forwarded-Proto header wins, then the scheme implied by the Origin
// header, then a plain "ws" default.
func requestURL(h RequestHeaders) string {
	scheme := "ws"
	if fwd := h.Get("X-Forwarded-Proto"); fwd != "" {
		if strings.EqualFold(fwd, "https") {
			scheme = "wss"
		}
	} else if origin := h.Get(internal.HeaderOrigin); strings.HasPrefix(strings.ToLower(origin), "https://") {
		scheme = "wss"
	}

	host := h.Get(internal.HeaderHost)
	path := h.Get("Request-Uri")
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path
}
