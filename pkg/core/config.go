package core

import (
	"fmt"
	"time"
)

// TimeoutConfig groups every deadline the server applies. The mapstructure
// tags are the keys under "timeouts" in the config file.
type TimeoutConfig struct {
	// RequestTimeout bounds plain HTTP page requests and form posts.
	RequestTimeout time.Duration `mapstructure:"request"`

	// ComponentEvent bounds one HandleEvent call plus its render.
	ComponentEvent time.Duration `mapstructure:"component_event"`

	WebSocketRead  time.Duration `mapstructure:"websocket_read"`
	WebSocketWrite time.Duration `mapstructure:"websocket_write"`

	// SessionIdle is how long a live session may stay silent before the
	// janitor closes it. SessionCleanup is how often the janitor runs.
	SessionIdle    time.Duration `mapstructure:"session_idle"`
	SessionCleanup time.Duration `mapstructure:"session_cleanup"`

	GracefulShutdown time.Duration `mapstructure:"graceful_shutdown"`
}

// DefaultTimeoutConfig returns production deadlines. The browser client
// heartbeats every 30s, well inside WebSocketRead.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		RequestTimeout:   30 * time.Second,
		ComponentEvent:   3 * time.Second,
		WebSocketRead:    time.Minute,
		WebSocketWrite:   10 * time.Second,
		SessionIdle:      30 * time.Minute,
		SessionCleanup:   5 * time.Minute,
		GracefulShutdown: 30 * time.Second,
	}
}

func (t TimeoutConfig) validate() error {
	for name, d := range map[string]time.Duration{
		"request":           t.RequestTimeout,
		"component_event":   t.ComponentEvent,
		"websocket_read":    t.WebSocketRead,
		"websocket_write":   t.WebSocketWrite,
		"session_idle":      t.SessionIdle,
		"session_cleanup":   t.SessionCleanup,
		"graceful_shutdown": t.GracefulShutdown,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s is %v", ErrNegativeTimeout, name, d)
		}
	}
	return nil
}

// Codec names accepted in Config.Codec.
const (
	CodecPhoenix = "phoenix"
	CodecJSON    = "json"
	CodecMsgPack = "msgpack"
)

// Config holds the server settings.
type Config struct {
	Timeouts TimeoutConfig

	Address string

	// Debug turns on debug logging and error details in responses.
	Debug bool

	// Codec selects the wire format of live messages. Only phoenix is
	// understood by the bundled browser script.
	Codec string

	// AllowedOrigins lists cross-origin pages allowed to open a live
	// connection. Empty means same-origin only.
	AllowedOrigins []string

	// MaxMessageSize bounds a single incoming live message, in bytes.
	MaxMessageSize int64

	// MaxSessions and MaxConnectionsPerIP cap live connections overall and
	// per client address. Zero means the built-in default.
	MaxSessions         int
	MaxConnectionsPerIP int

	// TrustProxyHeaders makes X-Forwarded-For and X-Real-IP decide the
	// client address. Enable it only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Timeouts:       DefaultTimeoutConfig(),
		Address:        ":3000",
		Codec:          CodecPhoenix,
		MaxMessageSize: 64 * 1024,
	}
}

// Validate reports the first setting the server cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Address == "":
		return ErrEmptyAddress
	case c.MaxMessageSize <= 0:
		return ErrInvalidMaxMessageSize
	case c.MaxSessions < 0 || c.MaxConnectionsPerIP < 0:
		return ErrNegativeLimit
	}
	switch c.Codec {
	case CodecPhoenix, CodecJSON, CodecMsgPack:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCodec, c.Codec)
	}
	return c.Timeouts.validate()
}

var (
	ErrEmptyAddress          = configError("address must not be empty")
	ErrInvalidMaxMessageSize = configError("max message size must be positive")
	ErrNegativeLimit         = configError("connection limits must not be negative")
	ErrUnknownCodec          = configError("unknown codec")
	ErrNegativeTimeout       = configError("timeouts must not be negative")
)

type configError string

func (e configError) Error() string { return string(e) }
