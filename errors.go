package wsdriver

import "errors"

// Sentinel causes reported through Handler.OnError. The frame codec and
// message assembler wrap them in *internal.ProtocolError; handshake and
// masking failures are reported as the sentinel itself (several handshake
// failures combined with multierr). They are unexported, so errors.Is
// against them is only possible inside this package.
var (
	errRSVSet             = errors.New("websocket: reserved bit set without an extension negotiated")
	errBadOpcode          = errors.New("websocket: unknown opcode")
	errFragmentedControl  = errors.New("websocket: control frame must not be fragmented")
	errControlTooLarge    = errors.New("websocket: control frame payload exceeds 125 bytes")
	errUnexpectedContinue = errors.New("websocket: continuation frame without a message in progress")
	errMessageInProgress  = errors.New("websocket: data frame received while a fragmented message is in progress")
	errMessageTooLarge    = errors.New("websocket: assembled message exceeds the configured size limit")
	errInvalidUTF8        = errors.New("websocket: invalid UTF-8 in text message")
	errInvalidCloseCode   = errors.New("websocket: invalid close status code")
	errHandshakeFailed    = errors.New("websocket: handshake validation failed")
	errBadMasking         = errors.New("websocket: frame masking bit doesn't match the sender's role")
)
