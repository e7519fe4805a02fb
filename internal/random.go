package internal

import (
	"crypto/rand"
	"encoding/base64"
)

// NewMaskKey returns a cryptographically random 4-byte client frame mask
// key (spec.md §5: "Random-number source ... must be cryptographically
// secure"). The teacher's internal/random.go draws from math/rand, which
// is not sufficient for this requirement, so this is sourced from
// crypto/rand instead while keeping the [4]byte return shape.
func NewMaskKey() [4]byte {
	var key [4]byte
	_, _ = rand.Read(key[:])
	return key
}

// NewClientKey returns a base64-encoded 16-byte random Sec-WebSocket-Key
// (RFC 6455 Section 4.1).
func NewClientKey() string {
	var raw [16]byte
	_, _ = rand.Read(raw[:])
	return base64.StdEncoding.EncodeToString(raw[:])
}
