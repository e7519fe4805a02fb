package wsdriver

// Message is a fully assembled application message (spec.md §3): either
// a text or a binary opcode plus its accumulated payload.
type Message struct {
	Opcode Opcode
	Data   []byte
}

// IsText reports whether the message was sent as a text frame.
func (m Message) IsText() bool { return m.Opcode == OpcodeText }

// Text returns the message payload as a string. Only meaningful when
// IsText() is true; the payload is guaranteed valid UTF-8 by the point
// any Handler sees it (spec.md §4.6).
func (m Message) Text() string { return string(m.Data) }

// Handler is the event surface a Driver dispatches to (spec.md §6). All
// calls happen synchronously inside Start/Parse/Close, in the order the
// triggering bytes were parsed (spec.md §5).
type Handler interface {
	// OnOpen fires exactly once, when the handshake completes
	// successfully. protocol is the negotiated subprotocol, or "".
	OnOpen(d *Driver, protocol string)

	// OnMessage fires once per fully assembled text/binary message.
	OnMessage(d *Driver, m Message)

	// OnPing fires when a ping frame is received (Hybi only).
	OnPing(d *Driver, payload []byte)

	// OnPong fires when a pong frame is received (Hybi only).
	OnPong(d *Driver, payload []byte)

	// OnClose fires exactly once, as the last event the Driver ever
	// emits. After a Hybi close frame, code/reason are the ones it
	// carried, or 1005 and "" when it carried no code. A protocol fault
	// reports the fault's close code, and a Hixie close reports 1000.
	// The Driver receives no signal of the transport ending, so 1006 is
	// never reported.
	OnClose(d *Driver, code Code, reason string)

	// OnError fires when a protocol, charset or policy fault is
	// detected, immediately before the OnClose that always follows it.
	OnError(d *Driver, err error)
}

// NoopHandler implements Handler with empty methods, the same
// embeddable-default idiom as the teacher's BuiltinEventHandler; embed it
// to implement only the callbacks a particular embedder cares about.
type NoopHandler struct{}

func (NoopHandler) OnOpen(*Driver, string)        {}
func (NoopHandler) OnMessage(*Driver, Message)    {}
func (NoopHandler) OnPing(*Driver, []byte)        {}
func (NoopHandler) OnPong(*Driver, []byte)        {}
func (NoopHandler) OnClose(*Driver, Code, string) {}
func (NoopHandler) OnError(*Driver, error)        {}
