package wsdriver

import (
	"bytes"
	"strings"

	"github.com/nyxwire/wsdriver/internal"
)

// role distinguishes which side of the handshake a Driver plays; it only
// affects framing (clients mask outbound frames, servers don't) and which
// half of the handshake a Driver performs.
type role uint8

const (
	roleServer role = iota
	roleClient
)

// Sink is how a Driver emits outbound bytes; the embedder is responsible
// for actually writing them to whatever transport it owns (spec.md §1:
// "a caller-supplied write() sink").
type Sink func(p []byte)

// Driver is the protocol engine (spec.md §4.1). It owns no socket: bytes
// arrive through Parse and leave through the Sink supplied at
// construction. Grounded on the teacher's Conn, generalized from "a
// *Conn wraps a net.Conn" to "a *Driver wraps nothing but a write
// callback."
type Driver struct {
	cfg     Config
	v       variant
	rl      role
	state   ReadyState
	handler Handler
	sink    Sink

	buf       *internal.ByteBuffer
	assembler *messageAssembler
	pings     *internal.PingTable
	outbound  *internal.OutboundQueue

	subProtocol string
	url         string
	hybiVersion string

	// Hybi/Hixie-76 close handshake bookkeeping.
	closeInitiated bool

	// Hixie-76 two-phase handshake: once headers are parsed, the
	// driver stays in StateConnecting awaiting exactly 8 more body
	// bytes before it can compute the MD5 challenge (spec.md §4.4).
	hixie76Headers     RequestHeaders
	hixie76AwaitingKey bool

	// Client-side handshake bookkeeping.
	clientKey     string
	clientRequest []byte
	clientStarted bool
}

type outboundKind uint8

const (
	outboundText outboundKind = iota
	outboundBinary
	outboundPing
	outboundClose
)

type outboundRecord struct {
	kind     outboundKind
	data     []byte
	code     uint16
	reason   string
	callback func()
}

func newDriver(v variant, rl role, handler Handler, sink Sink, opts []Option) *Driver {
	cfg := defaultConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.init()

	if handler == nil {
		handler = NoopHandler{}
	}

	return &Driver{
		cfg:       cfg,
		v:         v,
		rl:        rl,
		state:     StateConnecting,
		handler:   handler,
		sink:      sink,
		buf:       internal.NewByteBuffer(),
		assembler: newMessageAssembler(cfg.MaxMessagePayloadSize),
		pings:     internal.NewPingTable(),
		outbound:  internal.NewOutboundQueue(),
	}
}

// NewServerDriver returns a Driver that performs the server side of the
// handshake. The variant (Hybi/Hixie-76/Hixie-75) is detected from the
// first handshake bytes handed to Parse, so the caller doesn't need to
// sniff it up front.
func NewServerDriver(handler Handler, sink Sink, opts ...Option) *Driver {
	return newDriver(variantHybi, roleServer, handler, sink, opts)
}

// NewClientDriver returns a Driver that performs the client side of a
// Hybi handshake (spec.md §4.1: clients always speak the latest, Hybi,
// variant) against path/host, then negotiates subProtocols.
func NewClientDriver(path, host string, handler Handler, sink Sink, opts ...Option) *Driver {
	d := newDriver(variantHybi, roleClient, handler, sink, opts)
	request, key := hybiClientRequest(path, host, d.cfg.SubProtocols)
	d.clientKey = key
	d.clientRequest = request
	d.url = "ws://" + host + path
	d.hybiVersion = "13"
	return d
}

// Start begins the driver (spec.md §4.1 Start()): for a client it writes
// the handshake request; for a server it's a no-op, since a server has
// nothing to send until the client's request bytes arrive through
// Parse.
func (d *Driver) Start() {
	if d.rl == roleClient && !d.clientStarted {
		d.clientStarted = true
		d.write(d.clientRequest)
	}
}

// Version reports the negotiated protocol variant's name, including the
// actual negotiated Hybi version number (8 or 13) rather than assuming 13.
func (d *Driver) Version() string {
	switch d.v {
	case variantHybi:
		v := d.hybiVersion
		if v == "" {
			v = "13"
		}
		return "hybi-" + v
	case variantHixie76:
		return "hixie-76"
	default:
		return "hixie-75"
	}
}

// Protocol returns the negotiated subprotocol, or "" if none was agreed.
func (d *Driver) Protocol() string { return d.subProtocol }

// URL returns the ws(s):// URL the Driver handshook against.
func (d *Driver) URL() string { return d.url }

// State reports the current lifecycle position (spec.md §4.1).
func (d *Driver) State() ReadyState { return d.state }

func (d *Driver) write(p []byte) {
	if d.sink != nil {
		d.sink(p)
	}
}

// fail reports a protocol fault to the embedder and closes the
// connection (spec.md §6: OnError always immediately precedes the
// OnClose that follows it). When the fault is detected mid-session it
// also notifies the peer: Hybi with a close frame carrying the same code
// (RFC 6455 Section 7.1.7), Hixie-76 with its code-less closing frame;
// Hixie-75 has no close signal, so nothing is sent.
func (d *Driver) fail(code internal.Code, err error) {
	if d.state == StateClosed {
		return
	}
	d.handler.OnError(d, err)
	if d.state == StateOpen && !d.closeInitiated {
		switch d.v {
		case variantHybi:
			d.sendClose(uint16(code), "")
		case variantHixie76:
			d.write(encodeHixieLengthFrame(nil))
		}
	}
	d.state = StateClosed
	d.handler.OnClose(d, code, "")
}

// Parse feeds newly-arrived inbound bytes through the driver (spec.md
// §4.1 parse()). It may synchronously trigger any number of Handler
// callbacks, in the order the triggering bytes imply.
func (d *Driver) Parse(data []byte) {
	if d.state == StateClosed {
		return
	}
	d.buf.Append(data)

	if d.state == StateConnecting {
		if !d.parseHandshake() {
			return
		}
	}

	switch d.v {
	case variantHybi:
		d.parseHybiFrames()
	default:
		d.parseHixieFrames()
	}
}

// parseHandshake drives the server/client handshake state machine until
// either it completes (returns true, state == StateOpen) or it still
// needs more bytes (returns false).
func (d *Driver) parseHandshake() bool {
	if d.rl == roleClient {
		return d.parseClientHandshakeResponse()
	}

	if d.hixie76AwaitingKey {
		body, ok := d.buf.ReadN(8)
		if !ok {
			return false
		}
		var key3 [8]byte
		copy(key3[:], body)
		digest := hixie76Challenge(
			d.hixie76Headers.Get(internal.HeaderSecWebSocketKey1),
			d.hixie76Headers.Get(internal.HeaderSecWebSocketKey2),
			key3,
		)
		d.write(digest[:])
		d.completeOpen()
		return true
	}

	headers, ok := d.readHeaderBlock()
	if !ok {
		return false
	}

	d.v = detectVariant(headers)
	d.url = requestURL(headers)

	switch d.v {
	case variantHybi:
		result, err := hybiServerHandshake(headers, &d.cfg)
		if err != nil {
			d.fail(internal.CloseProtocolError, err)
			return false
		}
		d.subProtocol = result.protocol
		d.hybiVersion = result.version
		d.write(result.response)
		d.completeOpen()
		return true

	case variantHixie76:
		if err := hixie76ValidateHandshake(headers); err != nil {
			d.fail(internal.CloseProtocolError, err)
			return false
		}
		d.hixie76Headers = headers
		d.hixie76AwaitingKey = true
		d.write(hixie76ServerResponseHeaders(headers))
		// The 8 body bytes may have arrived together with the headers.
		return d.parseHandshake()

	default: // variantHixie75
		d.subProtocol = headers.Get(internal.HeaderSecWebSocketProtocol)
		d.write(hixie75ServerResponse(headers))
		d.completeOpen()
		return true
	}
}

func (d *Driver) parseClientHandshakeResponse() bool {
	headers, ok := d.readHeaderBlock()
	if !ok {
		return false
	}
	if code, ok := parseStatusLine(headers.Get("Status-Line")); !ok || code != 101 {
		d.fail(internal.CloseProtocolError, errHandshakeFailed)
		return false
	}
	protocol, err := hybiClientValidateResponse(headers, d.clientKey)
	if err != nil {
		d.fail(internal.CloseProtocolError, err)
		return false
	}
	d.subProtocol = protocol
	d.completeOpen()
	return true
}

// readHeaderBlock consumes up to and including the blank line that ends
// an HTTP-style request or response, returning the parsed headers. It
// leaves buf untouched if the blank line hasn't arrived yet.
func (d *Driver) readHeaderBlock() (RequestHeaders, bool) {
	raw := d.buf.Bytes()
	idx := bytes.Index(raw, []byte("\r\n\r\n"))
	if idx < 0 {
		return nil, false
	}
	block, _ := d.buf.ReadN(idx + 4)
	lines := strings.Split(strings.TrimRight(string(block), "\r\n"), "\r\n")

	headers := make(RequestHeaders, len(lines))
	for _, line := range lines[1:] { // lines[0] is the request/status line
		i := strings.Index(line, ":")
		if i < 0 {
			continue
		}
		headers[strings.TrimSpace(line[:i])] = strings.TrimSpace(line[i+1:])
	}
	if len(lines) > 0 {
		headers["Request-Uri"] = requestTarget(lines[0])
		headers["Request-Method"] = requestMethod(lines[0])
		headers["Status-Line"] = lines[0]
	}
	return headers, true
}

// requestTarget pulls the path component out of a request line
// ("GET /chat HTTP/1.1" -> "/chat"); for a response status line it
// yields "".
func requestTarget(line string) string {
	fields := strings.Fields(line)
	if len(fields) >= 2 && fields[0] != "HTTP/1.1" {
		return fields[1]
	}
	return ""
}

// requestMethod pulls the method token out of a request line ("GET
// /chat HTTP/1.1" -> "GET"); for a response status line it yields "".
func requestMethod(line string) string {
	fields := strings.Fields(line)
	if len(fields) >= 2 && fields[0] != "HTTP/1.1" {
		return fields[0]
	}
	return ""
}

func (d *Driver) completeOpen() {
	d.state = StateOpen
	d.handler.OnOpen(d, d.subProtocol)
	d.flushOutbound()
}

func (d *Driver) flushOutbound() {
	for _, v := range d.outbound.Drain() {
		rec := v.(outboundRecord)
		switch rec.kind {
		case outboundText:
			d.sendData(OpcodeText, rec.data)
		case outboundBinary:
			d.sendData(OpcodeBinary, rec.data)
		case outboundPing:
			d.pings.Store(rec.data, rec.callback)
			d.sendNow(OpcodePing, rec.data)
		case outboundClose:
			d.sendClose(rec.code, rec.reason)
		}
	}
}

// ---- Hybi frame dispatch ----

func (d *Driver) parseHybiFrames() {
	for {
		f, perr, ok := decodeHybiFrame(d.buf)
		if perr != nil {
			d.fail(perr.Code, perr)
			return
		}
		if !ok {
			return
		}
		wantMasked := d.rl == roleServer
		if f.masked != wantMasked {
			d.fail(internal.CloseProtocolError, errBadMasking)
			return
		}
		d.dispatchHybiFrame(f)
		if d.state == StateClosed {
			return
		}
	}
}

func (d *Driver) dispatchHybiFrame(f *hybiFrame) {
	switch {
	case f.opcode.isData() || f.opcode == OpcodeContinuation:
		msg, done, perr := d.assembler.Feed(f)
		if perr != nil {
			d.fail(perr.Code, perr)
			return
		}
		if done {
			d.handler.OnMessage(d, msg)
		}

	case f.opcode == OpcodePing:
		d.handler.OnPing(d, f.payload)
		if d.state == StateOpen {
			d.sendNow(OpcodePong, f.payload)
		}

	case f.opcode == OpcodePong:
		if ping, ok := d.pings.Take(f.payload); ok && ping.Callback != nil {
			ping.Callback()
		}
		d.handler.OnPong(d, f.payload)

	case f.opcode == OpcodeClose:
		d.handleHybiClose(f.payload)

	default:
		d.fail(internal.CloseProtocolError, errBadOpcode)
	}
}

func (d *Driver) handleHybiClose(payload []byte) {
	code := internal.Code(internal.CloseNoStatusReceived)
	reason := ""
	if len(payload) >= 2 {
		raw := uint16(payload[0])<<8 | uint16(payload[1])
		if !internal.ValidCloseCode(raw) {
			d.fail(internal.CloseProtocolError, errInvalidCloseCode)
			return
		}
		code = internal.Code(raw)
		if len(payload) > 2 {
			if !internal.ValidUTF8(payload[2:]) {
				d.fail(internal.CloseInvalidPayloadData, errInvalidUTF8)
				return
			}
			reason = string(payload[2:])
		}
	}

	if !d.closeInitiated {
		// Peer-initiated close: echo it back before closing (RFC 6455
		// Section 7.1.5). A close frame without a code is answered with
		// an empty one, since 1005 never goes on the wire.
		if len(payload) >= 2 {
			d.sendClose(uint16(code), reason)
		} else {
			d.sendNow(OpcodeClose, nil)
		}
	}
	d.state = StateClosed
	d.handler.OnClose(d, code, reason)
}

func (d *Driver) sendClose(code uint16, reason string) {
	payload := make([]byte, 0, 2+len(reason))
	payload = append(payload, byte(code>>8), byte(code))
	payload = append(payload, reason...)
	d.sendNow(OpcodeClose, payload)
}

func (d *Driver) sendNow(opcode Opcode, payload []byte) {
	masked := d.rl == roleClient
	d.write(encodeHybiFrame(true, opcode, payload, masked))
}

// ---- Hixie-75/76 frame dispatch ----

func (d *Driver) parseHixieFrames() {
	for {
		f, perr, ok := decodeHixieFrame(d.buf)
		if perr != nil {
			d.fail(internal.CloseProtocolError, perr)
			return
		}
		if !ok {
			return
		}
		d.dispatchHixieFrame(f)
		if d.state == StateClosed {
			return
		}
	}
}

func (d *Driver) dispatchHixieFrame(f *hixieFrame) {
	if f.text {
		if !internal.ValidUTF8(f.payload) {
			d.fail(internal.CloseInvalidPayloadData, errInvalidUTF8)
			return
		}
		d.handler.OnMessage(d, Message{Opcode: OpcodeText, Data: f.payload})
		return
	}
	if f.closing {
		if d.v == variantHixie76 && !d.closeInitiated {
			d.write(encodeHixieLengthFrame(nil))
		}
		d.state = StateClosed
		d.handler.OnClose(d, internal.CloseNormalClosure, "")
		return
	}
	d.handler.OnMessage(d, Message{Opcode: OpcodeBinary, Data: f.payload})
}

// ---- Outbound API ----

// Text queues or immediately sends a text message, returning false if
// the connection has already started closing.
func (d *Driver) Text(s string) bool {
	return d.send(outboundText, []byte(s), 0, "", nil)
}

// Binary queues or immediately sends a binary message. Not supported on
// the Hixie variants (spec.md §4.7: "Ping and binary are unsupported").
func (d *Driver) Binary(b []byte) bool {
	if d.v != variantHybi {
		return false
	}
	return d.send(outboundBinary, b, 0, "", nil)
}

// SupportsBinary reports whether the negotiated variant can send binary
// messages (Hybi only; spec.md §4.7).
func (d *Driver) SupportsBinary() bool { return d.v == variantHybi }

// SupportsPing reports whether the negotiated variant supports ping
// frames (Hybi only; spec.md §4.7).
func (d *Driver) SupportsPing() bool { return d.v == variantHybi }

// Ping sends a Hybi ping frame; callback fires once the matching pong
// arrives. Not supported on the Hixie variants.
func (d *Driver) Ping(payload []byte, callback func()) bool {
	if d.v != variantHybi {
		return false
	}
	return d.send(outboundPing, payload, 0, "", callback)
}

// Close initiates (or, on the Hixie variants, immediately performs) the
// close handshake (spec.md §4.1 Close()). code/reason are only used by
// Hybi; the Hixie variants close unconditionally.
func (d *Driver) Close(code uint16, reason string) bool {
	if d.state == StateClosed || d.state == StateClosing {
		return false
	}
	if d.state == StateConnecting {
		d.outbound.Push(outboundRecord{kind: outboundClose, code: code, reason: reason})
		return true
	}

	switch d.v {
	case variantHybi:
		d.closeInitiated = true
		d.sendClose(code, reason)
		d.state = StateClosing
	case variantHixie76:
		d.closeInitiated = true
		d.write(encodeHixieLengthFrame(nil))
		d.state = StateClosed
		d.handler.OnClose(d, internal.CloseNormalClosure, "")
	default: // Hixie-75 has no closing handshake: close is immediate.
		d.state = StateClosed
		d.handler.OnClose(d, internal.CloseNormalClosure, "")
	}
	return true
}

func (d *Driver) send(kind outboundKind, data []byte, code uint16, reason string, callback func()) bool {
	if d.state == StateClosed || d.state == StateClosing {
		return false
	}
	if d.state == StateConnecting {
		d.outbound.Push(outboundRecord{kind: kind, data: data, code: code, reason: reason, callback: callback})
		return true
	}

	switch kind {
	case outboundText:
		d.sendData(OpcodeText, data)
	case outboundBinary:
		d.sendData(OpcodeBinary, data)
	case outboundPing:
		d.pings.Store(data, callback)
		d.sendNow(OpcodePing, data)
	}
	return true
}

func (d *Driver) sendData(opcode Opcode, data []byte) {
	if d.v == variantHybi {
		d.sendNow(opcode, data)
		return
	}
	if opcode == OpcodeText {
		d.write(encodeHixieTextFrame(data))
	} else {
		d.write(encodeHixieLengthFrame(data))
	}
}
