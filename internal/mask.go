package internal

// MaskXOR XORs content in place against the 4-byte mask key with
// wrap-around indexing (RFC 6455 Section 5.3). Grounded on the teacher's
// internal/utils.go MaskByByte / frame.go mask-key handling; masking and
// unmasking are the same operation.
func MaskXOR(content []byte, key [4]byte) {
	for i := range content {
		content[i] ^= key[i&3]
	}
}
