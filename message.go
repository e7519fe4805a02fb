package wsdriver

import "github.com/nyxwire/wsdriver/internal"

// messageAssembler defragments a run of Hybi continuation frames into one
// Message, enforcing the size ceiling and streaming UTF-8 validation as
// bytes arrive rather than only at the end (spec.md §4.6). Grounded on
// the teacher's message.go continuationFrame bookkeeping, generalized
// from its pooled-buffer append loop to also drive internal.UTF8Validator
// incrementally.
type messageAssembler struct {
	inProgress bool
	opcode     Opcode
	buf        []byte
	utf8       internal.UTF8Validator
	limit      int
}

func newMessageAssembler(limit int) *messageAssembler {
	return &messageAssembler{limit: limit}
}

// Feed folds one data or continuation frame into the message in
// progress. done is true once a FIN frame completes the message, at
// which point msg is valid. err is a close-worthy protocol fault (wrong
// frame sequencing, oversize message, invalid UTF-8).
func (a *messageAssembler) Feed(f *hybiFrame) (msg Message, done bool, err *internal.ProtocolError) {
	switch f.opcode {
	case OpcodeContinuation:
		if !a.inProgress {
			return Message{}, false, internal.NewProtocolError(internal.CloseProtocolError, errUnexpectedContinue)
		}
	case OpcodeText, OpcodeBinary:
		if a.inProgress {
			return Message{}, false, internal.NewProtocolError(internal.CloseProtocolError, errMessageInProgress)
		}
		a.inProgress = true
		a.opcode = f.opcode
		a.buf = a.buf[:0]
		a.utf8 = internal.UTF8Validator{}
	default:
		// control frames never reach the assembler; Driver.Parse
		// dispatches them directly.
		return Message{}, false, nil
	}

	if len(a.buf)+len(f.payload) > a.limit {
		return Message{}, false, internal.NewProtocolError(internal.CloseMessageTooBig, errMessageTooLarge)
	}

	if a.opcode == OpcodeText {
		if !a.utf8.FeedAll(f.payload) {
			a.reset()
			return Message{}, false, internal.NewProtocolError(internal.CloseInvalidPayloadData, errInvalidUTF8)
		}
	}
	a.buf = append(a.buf, f.payload...)

	if !f.fin {
		return Message{}, false, nil
	}

	if a.opcode == OpcodeText && !a.utf8.Complete() {
		a.reset()
		return Message{}, false, internal.NewProtocolError(internal.CloseInvalidPayloadData, errInvalidUTF8)
	}

	data := make([]byte, len(a.buf))
	copy(data, a.buf)
	msg = Message{Opcode: a.opcode, Data: data}
	a.reset()
	return msg, true, nil
}

func (a *messageAssembler) reset() {
	a.inProgress = false
	a.buf = a.buf[:0]
	a.utf8 = internal.UTF8Validator{}
}
