package wsdriver

import "github.com/nyxwire/wsdriver/internal"

// Hixie-75/76 share one framing scheme (spec.md §4.7): a leading byte
// selects between two frame shapes. 0x00 introduces a UTF-8 text frame
// terminated by 0xFF; any byte with the high bit set (0x80-0xFF)
// introduces a length-prefixed frame, the length itself encoded as a
// base-128 varint (continuation indicated by the high bit of each length
// byte) — used for binary data, and, as a zero-length instance, the
// closing handshake signal.
type hixieFrame struct {
	text    bool
	closing bool
	payload []byte
}

// decodeHixieFrame attempts to decode one frame from the front of buf.
func decodeHixieFrame(buf *internal.ByteBuffer) (*hixieFrame, *internal.ProtocolError, bool) {
	lead, ok := buf.Peek(1)
	if !ok {
		return nil, nil, false
	}

	if lead[0] == 0x00 {
		payload, ok := buf.ReadUntil(0xFF)
		if !ok {
			return nil, nil, false
		}
		// payload still carries the leading 0x00 marker byte; copy it out
		// since ReadUntil hands back a view into buf's backing array that
		// a later Append can mutate in place.
		text := make([]byte, len(payload)-1)
		copy(text, payload[1:])
		return &hixieFrame{text: true, payload: text}, nil, true
	}

	if lead[0]&0x80 == 0 {
		return nil, internal.NewProtocolError(internal.CloseProtocolError, errBadOpcode), false
	}

	// Base-128 varint length, scanning byte by byte until one without
	// the continuation bit.
	var length int
	consumed := 1
	for {
		b, ok := buf.Peek(consumed + 1)
		if !ok {
			return nil, nil, false
		}
		lb := b[consumed]
		length = length<<7 | int(lb&0x7F)
		consumed++
		if lb&0x80 == 0 {
			break
		}
	}

	total := consumed + length
	full, ok := buf.Peek(total)
	if !ok {
		return nil, nil, false
	}
	payload := make([]byte, length)
	copy(payload, full[consumed:total])
	_, _ = buf.ReadN(total)

	return &hixieFrame{closing: length == 0, payload: payload}, nil, true
}

// encodeHixieTextFrame wraps payload as a 0x00 ... 0xFF text frame.
func encodeHixieTextFrame(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+2)
	out = append(out, 0x00)
	out = append(out, payload...)
	out = append(out, 0xFF)
	return out
}

// encodeHixieLengthFrame wraps payload as a length-prefixed binary
// frame, or, with an empty payload, the Hixie-76 closing handshake
// signal. The leading 0xFF marker byte is distinct from the length
// varint that follows it, so decodeHixieFrame's frame-type test doesn't
// depend on how many bytes the length happens to take.
func encodeHixieLengthFrame(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+3)
	out = append(out, 0xFF)
	out = append(out, encodeHixieVarint(len(payload))...)
	out = append(out, payload...)
	return out
}

// encodeHixieVarint renders n as a base-128 big-endian varint: every byte
// but the last carries the continuation bit (0x80).
func encodeHixieVarint(n int) []byte {
	var groups []byte
	for {
		groups = append(groups, byte(n&0x7F))
		n >>= 7
		if n == 0 {
			break
		}
	}
	out := make([]byte, len(groups))
	for i, g := range groups {
		out[len(groups)-1-i] = g | 0x80
	}
	out[len(out)-1] &^= 0x80
	return out
}
