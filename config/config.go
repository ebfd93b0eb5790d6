// Package config holds the runtime configuration for the RFC bridge: the
// execution mode (local vs. development), the local serving address, and the
// remote endpoint plus shared secret used when calls are forwarded.
//
// The configuration is an explicitly constructed object, dependency-injected
// into the dispatcher, client, and server. There is no package-level
// singleton: construct once at startup, pass it down, and treat it as
// read-only; concurrent readers need no locking.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Mode selects where privileged operations execute.
type Mode string

const (
	// ModeLocal runs every operation in-process; the RFC client is never
	// touched and invocation adds zero latency.
	ModeLocal Mode = "local"

	// ModeDevelopment forwards registered operations to a separate runtime
	// process over the authenticated RFC channel.
	ModeDevelopment Mode = "development"
)

// Defaults applied when a parameter is not provided.
const (
	DefaultHost    = "127.0.0.1"
	DefaultPort    = 8880
	DefaultTimeout = 30 * time.Second

	envPrefix = "GZ"
)

// Error is a configuration failure: a parameter that is missing or unusable
// for the requested mode. It is fatal to the affected path; there is no
// silent fallback, in particular never a fallback to "no auth".
type Error struct {
	Param  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Param, e.Reason)
}

// Params are the raw startup parameters for New. Zero values fall back to
// the package defaults where a default is safe; the secret has no default.
type Params struct {
	Mode        Mode
	Host        string
	Port        int
	RFCEndpoint string        // Base URL of the runtime process, e.g. "http://runtime:8880"
	RFCSecret   string        // Shared secret; required in development mode
	RFCTimeout  time.Duration // Hard per-call timeout for remote calls
}

// Config is the immutable runtime configuration. Fields are unexported so
// the only mutation path is construction.
type Config struct {
	mode        Mode
	host        string
	port        int
	rfcEndpoint string
	rfcSecret   string
	rfcTimeout  time.Duration
}

// New validates the given parameters and builds a Config.
//
// In development mode a missing secret is rejected here, at startup, rather
// than surfacing on the first remote call.
func New(p Params) (*Config, error) {
	if p.Mode == "" {
		p.Mode = ModeLocal
	}
	if p.Mode != ModeLocal && p.Mode != ModeDevelopment {
		return nil, &Error{Param: "mode", Reason: fmt.Sprintf("unknown mode %q", p.Mode)}
	}
	if p.Host == "" {
		p.Host = DefaultHost
	}
	if p.Port == 0 {
		p.Port = DefaultPort
	}
	if p.Port < 0 || p.Port > 65535 {
		return nil, &Error{Param: "port", Reason: fmt.Sprintf("out of range: %d", p.Port)}
	}
	if p.RFCTimeout == 0 {
		p.RFCTimeout = DefaultTimeout
	}

	if p.Mode == ModeDevelopment {
		if strings.TrimSpace(p.RFCSecret) == "" {
			return nil, &Error{Param: "rfc_secret", Reason: "required in development mode"}
		}
		if p.RFCEndpoint == "" {
			return nil, &Error{Param: "rfc_endpoint", Reason: "required in development mode"}
		}
	}

	return &Config{
		mode:        p.Mode,
		host:        p.Host,
		port:        p.Port,
		rfcEndpoint: p.RFCEndpoint,
		rfcSecret:   p.RFCSecret,
		rfcTimeout:  p.RFCTimeout,
	}, nil
}

// FromEnv builds a Config from GZ_-prefixed environment variables:
// GZ_MODE, GZ_HOST, GZ_PORT, GZ_RFC_ENDPOINT, GZ_RFC_SECRET, GZ_RFC_TIMEOUT.
func FromEnv() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("mode", string(ModeLocal))
	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("rfc_timeout", DefaultTimeout.String())

	timeout, err := time.ParseDuration(v.GetString("rfc_timeout"))
	if err != nil {
		return nil, &Error{Param: "rfc_timeout", Reason: err.Error()}
	}

	return New(Params{
		Mode:        Mode(v.GetString("mode")),
		Host:        v.GetString("host"),
		Port:        v.GetInt("port"),
		RFCEndpoint: v.GetString("rfc_endpoint"),
		RFCSecret:   v.GetString("rfc_secret"),
		RFCTimeout:  timeout,
	})
}

// IsDevelopment reports whether operations are forwarded to a runtime
// process.
func (c *Config) IsDevelopment() bool {
	return c.mode == ModeDevelopment
}

// Mode returns the configured execution mode.
func (c *Config) Mode() Mode {
	return c.mode
}

// LocalBaseURL is the base URL of this process's own HTTP surface.
func (c *Config) LocalBaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.host, c.port)
}

// ListenAddr is the host:port pair the local server binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// RFCEndpoint returns the base URL of the runtime process. Requesting an
// endpoint that was never configured is an error, not an empty string.
func (c *Config) RFCEndpoint() (string, error) {
	if c.rfcEndpoint == "" {
		return "", &Error{Param: "rfc_endpoint", Reason: "not configured"}
	}
	return c.rfcEndpoint, nil
}

// RFCSecret returns the shared secret. An unset secret is an error; callers
// must treat it as fatal to the remote path, never as "no auth".
func (c *Config) RFCSecret() (string, error) {
	if c.rfcSecret == "" {
		return "", &Error{Param: "rfc_secret", Reason: "not configured"}
	}
	return c.rfcSecret, nil
}

// RFCTimeout is the hard per-call deadline for remote calls.
func (c *Config) RFCTimeout() time.Duration {
	return c.rfcTimeout
}
