package wsdriver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageAssembler_SingleFrame(t *testing.T) {
	as := assert.New(t)
	a := newMessageAssembler(1024)

	msg, done, perr := a.Feed(&hybiFrame{fin: true, opcode: OpcodeText, payload: []byte("hi")})
	as.Nil(perr)
	as.True(done)
	as.Equal("hi", msg.Text())
}

func TestMessageAssembler_Fragmentation(t *testing.T) {
	as := assert.New(t)
	a := newMessageAssembler(1024)

	_, done, perr := a.Feed(&hybiFrame{fin: false, opcode: OpcodeText, payload: []byte("hel")})
	as.Nil(perr)
	as.False(done)

	_, done, perr = a.Feed(&hybiFrame{fin: false, opcode: OpcodeContinuation, payload: []byte("lo ")})
	as.Nil(perr)
	as.False(done)

	msg, done, perr := a.Feed(&hybiFrame{fin: true, opcode: OpcodeContinuation, payload: []byte("world")})
	as.Nil(perr)
	as.True(done)
	as.Equal("hello world", msg.Text())
}

func TestMessageAssembler_RejectsUnexpectedContinuation(t *testing.T) {
	as := assert.New(t)
	a := newMessageAssembler(1024)

	_, done, perr := a.Feed(&hybiFrame{fin: true, opcode: OpcodeContinuation, payload: []byte("x")})
	as.False(done)
	as.NotNil(perr)
}

func TestMessageAssembler_RejectsInterleavedDataFrame(t *testing.T) {
	as := assert.New(t)
	a := newMessageAssembler(1024)

	_, _, perr := a.Feed(&hybiFrame{fin: false, opcode: OpcodeText, payload: []byte("a")})
	as.Nil(perr)

	_, _, perr = a.Feed(&hybiFrame{fin: false, opcode: OpcodeText, payload: []byte("b")})
	as.NotNil(perr)
}

func TestMessageAssembler_EnforcesSizeLimit(t *testing.T) {
	as := assert.New(t)
	a := newMessageAssembler(4)

	_, _, perr := a.Feed(&hybiFrame{fin: true, opcode: OpcodeBinary, payload: []byte("12345")})
	as.NotNil(perr)
	as.Equal(CloseMessageTooBig, perr.Code)
}

func TestMessageAssembler_RejectsInvalidUTF8(t *testing.T) {
	as := assert.New(t)
	a := newMessageAssembler(1024)

	_, _, perr := a.Feed(&hybiFrame{fin: true, opcode: OpcodeText, payload: []byte{0xFF, 0xFE}})
	as.NotNil(perr)
	as.Equal(CloseInvalidPayloadData, perr.Code)
}

func TestMessageAssembler_AcceptsUTF8SplitAcrossFragments(t *testing.T) {
	as := assert.New(t)
	a := newMessageAssembler(1024)

	euro := []byte("€") // 0xE2 0x82 0xAC
	_, done, perr := a.Feed(&hybiFrame{fin: false, opcode: OpcodeText, payload: euro[:1]})
	as.Nil(perr)
	as.False(done)

	msg, done, perr := a.Feed(&hybiFrame{fin: true, opcode: OpcodeContinuation, payload: euro[1:]})
	as.Nil(perr)
	as.True(done)
	as.Equal("€", msg.Text())
}

func TestMessageAssembler_RejectsTruncatedUTF8Codepoint(t *testing.T) {
	as := assert.New(t)
	a := newMessageAssembler(1024)

	euro := []byte("€")
	_, _, perr := a.Feed(&hybiFrame{fin: true, opcode: OpcodeText, payload: euro[:2]})
	as.NotNil(perr)
	as.Equal(CloseInvalidPayloadData, perr.Code)
}
