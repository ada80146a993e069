// Package config loads the server settings from defaults, an optional
// liveregister.yaml file and LIVEREGISTER_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/gabrielmiguelok/liveregister/pkg/core"
	"github.com/gabrielmiguelok/liveregister/pkg/logging"
)

// EnvPrefix prefixes every environment override, e.g.
// LIVEREGISTER_SERVER_ADDRESS.
const EnvPrefix = "LIVEREGISTER"

// Config holds application configuration.
type Config struct {
	Server   ServerConfig       `mapstructure:"server"`
	Log      LogConfig          `mapstructure:"log"`
	Timeouts core.TimeoutConfig `mapstructure:"timeouts"`

	// Catalog is an optional option catalog replacing the embedded one.
	Catalog string `mapstructure:"catalog"`
}

// ServerConfig holds listener and live connection settings.
type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	Debug          bool     `mapstructure:"debug"`
	Codec          string   `mapstructure:"codec"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxMessageSize int64    `mapstructure:"max_message_size"`
	MaxSessions    int      `mapstructure:"max_sessions"`

	MaxConnectionsPerIP int  `mapstructure:"max_connections_per_ip"`
	TrustProxyHeaders   bool `mapstructure:"trust_proxy_headers"`

	// CSRFSecret signs form-post tokens. Empty means a random secret per
	// process.
	CSRFSecret    string `mapstructure:"csrf_secret"`
	SecureCookies bool   `mapstructure:"secure_cookies"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Load reads configuration. An explicit path must exist; otherwise
// liveregister.yaml is looked up in the working directory and skipped
// when absent. Environment variables override both.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("liveregister")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	d := core.DefaultConfig()
	v.SetDefault("server.address", d.Address)
	v.SetDefault("server.debug", d.Debug)
	v.SetDefault("server.codec", d.Codec)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.max_message_size", d.MaxMessageSize)
	v.SetDefault("server.max_sessions", 10000)
	v.SetDefault("server.max_connections_per_ip", 20)
	v.SetDefault("server.trust_proxy_headers", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("catalog", "")

	t := d.Timeouts
	v.SetDefault("timeouts.request", t.RequestTimeout)
	v.SetDefault("timeouts.component_event", t.ComponentEvent)
	v.SetDefault("timeouts.websocket_read", t.WebSocketRead)
	v.SetDefault("timeouts.websocket_write", t.WebSocketWrite)
	v.SetDefault("timeouts.session_idle", t.SessionIdle)
	v.SetDefault("timeouts.session_cleanup", t.SessionCleanup)
	v.SetDefault("timeouts.graceful_shutdown", t.GracefulShutdown)
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	if err := c.Core().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Core maps the settings onto the server configuration.
func (c Config) Core() core.Config {
	return core.Config{
		Timeouts:       c.Timeouts,
		Address:        c.Server.Address,
		Debug:          c.Server.Debug,
		Codec:          c.Server.Codec,
		AllowedOrigins: c.Server.AllowedOrigins,
		MaxMessageSize: c.Server.MaxMessageSize,
		MaxSessions:    c.Server.MaxSessions,

		MaxConnectionsPerIP: c.Server.MaxConnectionsPerIP,
		TrustProxyHeaders:   c.Server.TrustProxyHeaders,
	}
}

// Logger builds the logger described by the log settings. Debug mode
// lowers the level to debug.
func (c Config) Logger(w io.Writer) logging.Logger {
	level, _ := logging.ParseLevel(c.Log.Level)
	opts := []logging.Option{logging.WithOutput(w), logging.WithLevel(level)}
	if c.Server.Debug {
		opts = append(opts, logging.WithLevel(slog.LevelDebug), logging.WithSource())
	}
	if c.Log.JSON {
		opts = append(opts, logging.WithJSON())
	}
	return logging.New(opts...)
}
