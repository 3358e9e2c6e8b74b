package runner

import (
	"time"

	"github.com/pkg/errors"

	"sockload/internal/request"
)

// Config bounds one load-test run.
type Config struct {
	Host     string
	Port     int
	Workers  int
	Duration time.Duration
	Mode     request.Mode

	// Per-operation connect/read/write timeout.
	Timeout time.Duration

	// How long to wait for workers after the stop signal. Workers past
	// this deadline are abandoned, not force-killed.
	JoinTimeout time.Duration

	Sizes []int
}

// DefaultTimeout matches the per-operation socket timeout the harness
// has always used.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultJoinTimeout = 10 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = DefaultJoinTimeout
	}
	if len(c.Sizes) == 0 {
		c.Sizes = request.DefaultSizes
	}
	if c.Mode == "" {
		c.Mode = request.ModeKeepAlive
	}
	return c
}

func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("host required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	if c.Workers < 1 {
		return errors.Errorf("worker count must be >= 1, got %d", c.Workers)
	}
	if c.Duration <= 0 {
		return errors.New("duration must be positive")
	}
	if c.Mode != "" && !c.Mode.Valid() {
		return errors.Errorf("unknown mode %q", c.Mode)
	}
	return nil
}
