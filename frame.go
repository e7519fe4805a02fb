package wsdriver

import (
	"encoding/binary"

	"github.com/nyxwire/wsdriver/internal"
)

// hybiFrame is one decoded RFC 6455 frame (spec.md §4.5). Grounded on the
// teacher's frame.go bit-packed header, generalized from its
// socket-reading loop into a pull decoder over an internal.ByteBuffer so
// it can be fed in arbitrary chunks by Driver.Parse.
type hybiFrame struct {
	fin     bool
	rsv1    bool
	opcode  Opcode
	masked  bool
	maskKey [4]byte
	payload []byte
}

// decodeHybiFrame attempts to decode one frame from the front of buf.
// Three outcomes: (frame, nil, true) on success, (nil, nil, false) if buf
// doesn't yet hold a whole frame, or (nil, err, false) if the header
// itself is malformed. On success the consumed bytes are removed from
// buf; on "need more", buf is left untouched so the next Append can be
// retried against the same prefix.
func decodeHybiFrame(buf *internal.ByteBuffer) (*hybiFrame, *internal.ProtocolError, bool) {
	head, ok := buf.Peek(2)
	if !ok {
		return nil, nil, false
	}

	fin := head[0]&internal.Bv7 != 0
	rsv1 := head[0]&internal.Bv6 != 0
	rsv2 := head[0]&(1<<5) != 0
	rsv3 := head[0]&(1<<4) != 0
	opcode := Opcode(head[0] & 0x0F)
	masked := head[1]&internal.Bv7 != 0
	lenField := int(head[1] & 0x7F)

	if rsv1 || rsv2 || rsv3 {
		return nil, internal.NewProtocolError(internal.CloseProtocolError, errRSVSet), false
	}
	if !opcode.isControl() && !opcode.isData() && opcode != OpcodeContinuation {
		return nil, internal.NewProtocolError(internal.CloseProtocolError, errBadOpcode), false
	}
	if opcode.isControl() && !fin {
		return nil, internal.NewProtocolError(internal.CloseProtocolError, errFragmentedControl), false
	}
	if opcode.isControl() && lenField > internal.PayloadSizeLv1 {
		return nil, internal.NewProtocolError(internal.CloseProtocolError, errControlTooLarge), false
	}

	headerLen := 2
	switch {
	case lenField == 126:
		headerLen += 2
	case lenField == 127:
		headerLen += 8
	}
	if masked {
		headerLen += 4
	}

	full, ok := buf.Peek(headerLen)
	if !ok {
		return nil, nil, false
	}

	var payloadLen uint64
	switch {
	case lenField <= internal.PayloadSizeLv1:
		payloadLen = uint64(lenField)
	case lenField == 126:
		payloadLen = uint64(binary.BigEndian.Uint16(full[2:4]))
	case lenField == 127:
		payloadLen = binary.BigEndian.Uint64(full[2:10])
	}

	var maskKey [4]byte
	if masked {
		copy(maskKey[:], full[headerLen-4:headerLen])
	}

	total := headerLen + int(payloadLen)
	frameBytes, ok := buf.Peek(total)
	if !ok {
		return nil, nil, false
	}
	var payload []byte // stays nil for an empty payload
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		copy(payload, frameBytes[headerLen:total])
	}
	if masked {
		internal.MaskXOR(payload, maskKey)
	}

	_, _ = buf.ReadN(total)

	return &hybiFrame{
		fin:     fin,
		rsv1:    rsv1,
		opcode:  opcode,
		masked:  masked,
		maskKey: maskKey,
		payload: payload,
	}, nil, true
}

// encodeHybiFrame serializes a single frame. maskPayload is true for
// client-originated frames (RFC 6455 Section 5.1: "a client MUST mask
// all frames"); server-originated frames are sent unmasked.
func encodeHybiFrame(fin bool, opcode Opcode, payload []byte, maskPayload bool) []byte {
	out := make([]byte, 0, internal.FrameHeaderSize+len(payload))

	b0 := byte(opcode)
	if fin {
		b0 |= internal.Bv7
	}
	out = append(out, b0)

	n := len(payload)
	switch {
	case n <= internal.PayloadSizeLv1:
		out = append(out, maskBit(maskPayload)|byte(n))
	case n < internal.PayloadSizeLv2:
		out = append(out, maskBit(maskPayload)|126)
		var ext [2]byte
		binary.BigEndian.PutUint16(ext[:], uint16(n))
		out = append(out, ext[:]...)
	default:
		out = append(out, maskBit(maskPayload)|127)
		var ext [8]byte
		binary.BigEndian.PutUint64(ext[:], uint64(n))
		out = append(out, ext[:]...)
	}

	if !maskPayload {
		return append(out, payload...)
	}

	key := internal.NewMaskKey()
	out = append(out, key[:]...)
	masked := make([]byte, n)
	copy(masked, payload)
	internal.MaskXOR(masked, key)
	return append(out, masked...)
}

func maskBit(masked bool) byte {
	if masked {
		return internal.Bv7
	}
	return 0
}
