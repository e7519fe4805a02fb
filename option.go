package wsdriver

import (
	"time"

	"github.com/nyxwire/wsdriver/internal"
)

// Config holds the tunables every Driver is built from. Grounded on the
// teacher's option.go/config.go ServerOptions: a plain struct normalized
// by init(), configured through functional Options rather than exposed
// raw.
type Config struct {
	// Logger is kept on the Config for embedders. dv = a zap-backed
	// production logger (internal.NewDefaultLogger). The Driver itself
	// never calls it: Handler callbacks run without panic recovery and
	// no warnings are logged.
	Logger internal.Logger

	// SubProtocols is the server's supported subprotocols, in priority
	// order: the first one also offered by the client wins (spec.md
	// §4.2).
	SubProtocols []string

	// MaxMessagePayloadSize caps the total size of an assembled
	// message (after defragmenting continuation frames). dv =
	// 2^31-1, the spec-recommended ceiling (spec.md §5).
	MaxMessagePayloadSize int

	// HandshakeTimeout is advisory: the Driver itself runs no timers
	// (spec.md §5 "no blocking operations inside the driver"), but
	// embedders that want to abandon a stalled handshake can read this
	// back to know what to wait for. dv = 3s.
	HandshakeTimeout time.Duration

	// RejectPermessageDeflate defaults to true. The Hybi server
	// handshake does not read it: its response never includes
	// Sec-WebSocket-Extensions, so an offered permessage-deflate is
	// declined whatever this is set to — this module implements no
	// extensions (spec.md §1 Non-goals).
	RejectPermessageDeflate bool
}

var defaultConfig = Config{
	MaxMessagePayloadSize:   internal.MaxMessagePayloadSize,
	HandshakeTimeout:        3 * time.Second,
	RejectPermessageDeflate: true,
}

func (c *Config) init() {
	if c.Logger == nil {
		c.Logger = internal.NewDefaultLogger()
	}
	if c.MaxMessagePayloadSize <= 0 {
		c.MaxMessagePayloadSize = defaultConfig.MaxMessagePayloadSize
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultConfig.HandshakeTimeout
	}
}

// Option configures a Driver at construction time, the same
// func(*Upgrader) shape as the teacher's option.go.
type Option func(c *Config)

// WithLogger overrides the default zap-backed Logger.
func WithLogger(l internal.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithSubProtocols sets the server's supported subprotocols in priority
// order.
func WithSubProtocols(protocols ...string) Option {
	return func(c *Config) { c.SubProtocols = protocols }
}

// WithMaxMessageSize overrides the assembled-message size ceiling.
func WithMaxMessageSize(n int) Option {
	return func(c *Config) { c.MaxMessagePayloadSize = n }
}

// WithHandshakeTimeout overrides the advisory handshake timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) { c.HandshakeTimeout = d }
}

// WithPermessageDeflateAccepted sets RejectPermessageDeflate to false.
// The server handshake does not read that field, so the response still
// never echoes Sec-WebSocket-Extensions, and the driver never compresses
// or decompresses a frame (spec.md §1 Non-goals).
func WithPermessageDeflateAccepted() Option {
	return func(c *Config) { c.RejectPermessageDeflate = false }
}
