package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Config holds configuration variables
type Config struct {
	// File is the path of a file from which configuration is read.
	File string `json:"config-file"`

	// Verbose prints debugging information.
	Verbose bool `json:"verbose"`

	// Addr is the full collector URL, for example
	// https://splunk.example.com:8088/services/collector/event.
	Addr string `json:"addr"`

	// Token is the collector token. It's sent on every request as
	// "Authorization: Splunk <token>".
	Token string `json:"token"`

	// Source names the event source in each envelope.
	Source string `json:"source"`

	// Host optionally names the originating host in each envelope.
	Host string `json:"host"`

	// Index optionally routes events to a collector index.
	Index string `json:"index"`

	// Timeout bounds a single submission request.
	Timeout time.Duration `json:"timeout"`

	// MaxBufferSize is the number of buffered events that triggers an
	// automatic flush.
	MaxBufferSize int `json:"max-buffer-size"`

	// ThrottleInterval is how long a non-empty buffer may sit before an
	// automatic flush fires. Each new event pushes the deadline forward.
	ThrottleInterval time.Duration `json:"throttle-interval"`

	// AutoRetry controls whether failed submissions are resubmitted.
	AutoRetry bool `json:"auto-retry"`

	// RetryInterval is the (constant) delay before a resubmission.
	RetryInterval time.Duration `json:"retry-interval"`
}

// New returns a new configuration object
func New() *Config {
	return &Config{}
}

// Default is the default application config
var Default = &Config{
	Addr:             "https://127.0.0.1:8088/services/collector/event",
	Source:           "heclog",
	Timeout:          10 * time.Second,
	MaxBufferSize:    50,
	ThrottleInterval: 2 * time.Second,
	AutoRetry:        true,
	RetryInterval:    1 * time.Second,
}

func (c *Config) String() string {
	return fmt.Sprintf("%+v", *c)
}

// Validate returns an error pointing to incorrect values for the
// configuration, if any.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must be set")
	}
	if c.MaxBufferSize <= 0 {
		return errors.New("max-buffer-size must be > 0")
	}
	if c.ThrottleInterval < 0 {
		return errors.New("throttle-interval must be >= 0")
	}
	if c.RetryInterval < 0 {
		return errors.New("retry-interval must be >= 0")
	}
	return nil
}

// DefaultTestConfig returns a testing configuration
func DefaultTestConfig(verbose bool) *Config {
	c := &Config{}
	*c = *Default
	c.Verbose = verbose
	c.Token = "00000000-dead-beef-0000-000000000000"
	c.MaxBufferSize = 3
	c.Timeout = 100 * time.Millisecond
	c.ThrottleInterval = 50 * time.Millisecond
	c.RetryInterval = 10 * time.Millisecond
	return c
}
