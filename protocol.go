// Package wsdriver implements the WebSocket wire protocol as a
// transport-decoupled driver (spec.md §1): it consumes inbound bytes via
// Parse, performs the opening handshake, frames/deframes messages, and
// emits semantic events to an embedding application, writing outbound
// bytes through a caller-supplied Sink instead of owning a socket.
//
// Three variants are supported end to end: Hybi (RFC 6455, versions 8 and
// 13), Hixie-76 and Hixie-75. Grounded on github.com/lxzan/gws (see
// TEACHER.txt / DESIGN.md) for the Hybi wire format and the general
// event-driven Conn idiom; Hixie-75/76 have no analogue in the teacher
// and are built directly from spec.md §4.3/§4.4.
package wsdriver

import "github.com/nyxwire/wsdriver/internal"

// Opcode identifies the kind of a data or control frame (RFC 6455
// Section 5.2). Grounded on the teacher's protocol.go/types.go Opcode
// constants.
type Opcode uint8

const (
	OpcodeContinuation Opcode = 0x0
	OpcodeText         Opcode = 0x1
	OpcodeBinary       Opcode = 0x2
	OpcodeClose        Opcode = 0x8
	OpcodePing         Opcode = 0x9
	OpcodePong         Opcode = 0xA
)

func (o Opcode) isControl() bool {
	return o == OpcodeClose || o == OpcodePing || o == OpcodePong
}
func (o Opcode) isData() bool { return o == OpcodeText || o == OpcodeBinary }

// Code is a WebSocket close status code. It is an alias of internal.Code
// so embedders never need to import the internal package to compare
// against a Close event's code.
type Code = internal.Code

const (
	CloseNormalClosure      = internal.CloseNormalClosure
	CloseGoingAway          = internal.CloseGoingAway
	CloseProtocolError      = internal.CloseProtocolError
	CloseUnsupportedData    = internal.CloseUnsupportedData
	CloseNoStatusReceived   = internal.CloseNoStatusReceived
	CloseAbnormalClosure    = internal.CloseAbnormalClosure
	CloseInvalidPayloadData = internal.CloseInvalidPayloadData
	ClosePolicyViolation    = internal.ClosePolicyViolation
	CloseMessageTooBig      = internal.CloseMessageTooBig
	CloseMandatoryExtension = internal.CloseMandatoryExtension
	CloseInternalServerErr  = internal.CloseInternalServerErr
)

// ReadyState is the Driver's position in the CONNECTING -> OPEN ->
// CLOSING -> CLOSED lifecycle (spec.md §4.1).
type ReadyState uint8

const (
	StateConnecting ReadyState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ReadyState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// variant tags which of the three protocol drivers a Driver runs.
type variant uint8

const (
	variantHybi variant = iota
	variantHixie76
	variantHixie75
)
