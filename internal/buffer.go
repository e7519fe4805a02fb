package internal

import (
	"bytes"

	"github.com/valyala/bytebufferpool"
)

// bufferPool backs every ByteBuffer allocation. Pooling the underlying
// []byte the way the teacher pools its frame buffers (pool.go's
// binaryPool) avoids an allocation per parse() call on a busy connection.
var bufferPool bytebufferpool.Pool

// ByteBuffer is the append-and-consume byte queue every parser in this
// module reads from (spec.md §2 item 1: "Byte Buffer"). Bytes arriving
// from the transport are appended with Append; parsers peek or consume
// from the front with Peek/ReadN/ReadUntil, leaving whatever wasn't yet
// consumable buffered for the next Append.
type ByteBuffer struct {
	buf    *bytebufferpool.ByteBuffer
	offset int
}

// NewByteBuffer returns a buffer backed by a pooled allocation.
func NewByteBuffer() *ByteBuffer {
	return &ByteBuffer{buf: bufferPool.Get()}
}

// Release returns the underlying allocation to the pool. Call once the
// buffer (and thus the driver it belongs to) is discarded.
func (b *ByteBuffer) Release() {
	if b.buf != nil {
		bufferPool.Put(b.buf)
		b.buf = nil
	}
}

// Append appends p to the tail of the buffer, compacting first if the
// already-consumed prefix has grown large relative to what remains.
func (b *ByteBuffer) Append(p []byte) {
	b.compact()
	_, _ = b.buf.Write(p)
}

// Len reports the number of unconsumed bytes.
func (b *ByteBuffer) Len() int {
	return b.buf.Len() - b.offset
}

// Bytes returns the unconsumed portion without consuming it.
func (b *ByteBuffer) Bytes() []byte {
	return b.buf.B[b.offset:]
}

// Peek returns the next n unconsumed bytes without advancing the read
// position. ok is false if fewer than n bytes are currently buffered.
func (b *ByteBuffer) Peek(n int) (p []byte, ok bool) {
	if b.Len() < n {
		return nil, false
	}
	return b.buf.B[b.offset : b.offset+n], true
}

// ReadN consumes and returns the next n unconsumed bytes. ok is false if
// fewer than n bytes are currently buffered, in which case nothing is
// consumed.
func (b *ByteBuffer) ReadN(n int) (p []byte, ok bool) {
	p, ok = b.Peek(n)
	if !ok {
		return nil, false
	}
	b.offset += n
	return p, true
}

// ReadUntil scans the unconsumed bytes for delim and, if found, consumes
// and returns everything up to but excluding it, plus consumes the
// delimiter itself. ok is false if delim has not yet arrived.
func (b *ByteBuffer) ReadUntil(delim byte) (p []byte, ok bool) {
	rest := b.Bytes()
	idx := bytes.IndexByte(rest, delim)
	if idx < 0 {
		return nil, false
	}
	p = rest[:idx]
	b.offset += idx + 1
	return p, true
}

// compact discards the already-consumed prefix once it dominates the
// buffer, so a long-lived connection doesn't retain an ever-growing
// backing array.
func (b *ByteBuffer) compact() {
	if b.offset == 0 {
		return
	}
	if b.offset < 4096 && b.offset*2 < len(b.buf.B) {
		return
	}
	remaining := b.Len()
	copy(b.buf.B, b.buf.B[b.offset:])
	b.buf.B = b.buf.B[:remaining]
	b.offset = 0
}
