// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"gopkg.in/yaml.v2"

	"github.com/ava-labs/dutchvm/archive"
	"github.com/ava-labs/dutchvm/pebble"
	"github.com/ava-labs/dutchvm/trace"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	// HTTP
	HTTPAddress       string        `json:"httpAddress"       yaml:"httpAddress"`
	ReadTimeout       time.Duration `json:"readTimeout"       yaml:"readTimeout"`
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
	WriteTimeout      time.Duration `json:"writeTimeout"      yaml:"writeTimeout"`
	IdleTimeout       time.Duration `json:"idleTimeout"       yaml:"idleTimeout"`
	ShutdownTimeout   time.Duration `json:"shutdownTimeout"   yaml:"shutdownTimeout"`
	AllowedOrigins    []string      `json:"allowedOrigins"    yaml:"allowedOrigins"`
	AllowedHosts      []string      `json:"allowedHosts"      yaml:"allowedHosts"`

	// Logging
	LogLevel        string `json:"logLevel"        yaml:"logLevel"`
	LogDisplayLevel string `json:"logDisplayLevel" yaml:"logDisplayLevel"`
	LogDir          string `json:"logDir"          yaml:"logDir"`

	// Storage
	DatabaseDir string         `json:"databaseDir" yaml:"databaseDir"`
	Pebble      pebble.Config  `json:"pebble"      yaml:"pebble"`
	Archive     archive.Config `json:"archive"     yaml:"archive"`

	// Streaming
	StreamReadBufferSize  int `json:"streamReadBufferSize"  yaml:"streamReadBufferSize"`
	StreamWriteBufferSize int `json:"streamWriteBufferSize" yaml:"streamWriteBufferSize"`
	StreamBacklogSize     int `json:"streamBacklogSize"     yaml:"streamBacklogSize"`

	// Requests signed more than [ReplayWindow] away from the node clock are
	// rejected.
	ReplayWindow time.Duration `json:"replayWindow" yaml:"replayWindow"`

	Trace trace.Config `json:"trace" yaml:"trace"`
}

func (c *Config) setDefault() {
	c.HTTPAddress = "127.0.0.1:9660"
	c.ReadTimeout = 30 * time.Second
	c.ReadHeaderTimeout = 30 * time.Second
	c.WriteTimeout = 30 * time.Second
	c.IdleTimeout = 120 * time.Second
	c.ShutdownTimeout = 10 * time.Second
	c.AllowedOrigins = []string{"*"}
	c.AllowedHosts = []string{"*"}
	c.LogLevel = logging.Info.String()
	c.LogDisplayLevel = logging.Info.String()
	c.LogDir = "logs"
	c.DatabaseDir = "db"
	c.Pebble = pebble.NewDefaultConfig()
	c.Archive = archive.NewDefaultConfig()
	c.StreamReadBufferSize = 1_024
	c.StreamWriteBufferSize = 1_024
	c.StreamBacklogSize = 1_024
	c.ReplayWindow = time.Minute
	c.Trace = trace.NewDefaultConfig()
}

// New applies [b] over the defaults. [b] may be JSON or YAML; durations are
// nanoseconds in JSON and duration strings in YAML.
func New(b []byte) (*Config, error) {
	c := &Config{}
	c.setDefault()

	trimmed := bytes.TrimSpace(b)
	switch {
	case len(trimmed) == 0:
	case trimmed[0] == '{':
		if err := json.Unmarshal(trimmed, c); err != nil {
			return nil, err
		}
	default:
		if err := yaml.UnmarshalStrict(trimmed, c); err != nil {
			return nil, err
		}
	}
	if err := c.Verify(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the config at [path]. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if len(path) == 0 {
		return New(nil)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(b)
}

func (c *Config) Verify() error {
	if _, err := logging.ToLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level: %w", ErrInvalidConfig, err)
	}
	if _, err := logging.ToLevel(c.LogDisplayLevel); err != nil {
		return fmt.Errorf("%w: log display level: %w", ErrInvalidConfig, err)
	}
	if c.ReplayWindow <= 0 {
		return fmt.Errorf("%w: replay window must be positive", ErrInvalidConfig)
	}
	if c.StreamBacklogSize <= 0 {
		return fmt.Errorf("%w: stream backlog must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) GetLogLevel() logging.Level {
	l, _ := logging.ToLevel(c.LogLevel)
	return l
}

func (c *Config) GetLogDisplayLevel() logging.Level {
	l, _ := logging.ToLevel(c.LogDisplayLevel)
	return l
}

func (c *Config) GetTraceConfig() *trace.Config { return &c.Trace }
