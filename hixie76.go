package wsdriver

import (
	"crypto/md5"
	"encoding/binary"
	"strings"

	"go.uber.org/multierr"

	"github.com/nyxwire/wsdriver/internal"
)

// hixie76ValidateHandshake checks an inbound Hixie-76 handshake request,
// accumulating every violation with go.uber.org/multierr the way
// hybiServerHandshake does, rather than failing on the first one found.
func hixie76ValidateHandshake(h RequestHeaders) error {
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
	if h.Get(internal.HeaderSecWebSocketKey1) == "" {
		errs = multierr.Append(errs, errHandshakeFailed)
	}
	if h.Get(internal.HeaderSecWebSocketKey2) == "" {
		errs = multierr.Append(errs, errHandshakeFailed)
	}
	return errs
}

// hixie76Challenge implements the draft-ietf-hybi-thewebsocketprotocol-00
// key derivation: each of Sec-WebSocket-Key1/Key2 is reduced to an
// integer (its digits, interpreted base-10, divided by its space count),
// the two 4-byte big-endian integers are concatenated with the 8 raw
// bytes the client sent as the handshake body, and the MD5 digest of
// that 16-byte string is the challenge response. No pack repo implements
// Hixie-76, so this is built directly from spec.md §4.4 rather than
// grounded on an existing Go rendition of the algorithm.
func hixie76Challenge(key1, key2 string, body [8]byte) [16]byte {
	n1 := hixieKeyNumber(key1)
	n2 := hixieKeyNumber(key2)

	var combined [16]byte
	binary.BigEndian.PutUint32(combined[0:4], n1)
	binary.BigEndian.PutUint32(combined[4:8], n2)
	copy(combined[8:16], body[:])

	return md5.Sum(combined[:])
}

// hixieKeyNumber extracts the digits of key, interpreted as a base-10
// integer, and divides it by the number of space characters in key.
func hixieKeyNumber(key string) uint32 {
	var digits uint64
	var spaces uint64
	for _, r := range key {
		switch {
		case r >= '0' && r <= '9':
			digits = digits*10 + uint64(r-'0')
		case r == ' ':
			spaces++
		}
	}
	if spaces == 0 {
		return 0
	}
	return uint32(digits / spaces)
}

// hixie76ServerResponseHeaders builds the header portion of a Hixie-76
// handshake response (everything up to, but not including, the 16-byte
// challenge body that only becomes available once the client's 8 body
// bytes have arrived — spec.md §4.4's "deferred body problem").
func hixie76ServerResponseHeaders(h RequestHeaders) []byte {
	origin := h.Get(internal.HeaderOrigin)
	location := requestURL(h)

	var b strings.Builder
	b.WriteString("HTTP/1.1 101 WebSocket Protocol Handshake\r\n")
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
