package modbus

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Client.
type Option func(*Client)

// WithPort sets the port used when the address carries none.
func WithPort(port uint16) Option {
	return func(c *Client) { c.port = port }
}

// WithUnitID sets the unit identifier placed in every request.
func WithUnitID(unitID uint8) Option {
	return func(c *Client) { c.unitID = unitID }
}

// WithTimeout bounds every exchange. Zero disables deadlines.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithReadMode(mode ReadMode) Option {
	return func(c *Client) { c.mode = mode }
}

// WithExceptionDecoding makes the client report the exception code a server
// sends in an exception frame instead of always reporting 1.
func WithExceptionDecoding(enabled bool) Option {
	return func(c *Client) { c.decodeExceptions = enabled }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithRecorder hands every exchange to r.
func WithRecorder(r FrameRecorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithCaptureFile writes a pcap of the session to path, starting on Connect.
func WithCaptureFile(path string) Option {
	return func(c *Client) { c.capturePath = path }
}
