// Package config holds replyserver configuration: defaults, an optional YAML
// file, environment overrides and validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort         = 8000
	DefaultTestDir      = "testcases"
	DefaultPollInterval = 500 * time.Millisecond
	DefaultReadBudget   = 1024
	DefaultLogLevel     = "info"
)

// Config holds server configuration. It is loaded once at startup and not
// mutated while the server runs.
type Config struct {
	// Port is the TCP port to listen on, on all interfaces.
	Port int

	// CloseDelay holds each injected connection open before closing it.
	CloseDelay time.Duration

	// Start and Stop bound the selected test case indices, inclusive.
	Start int
	Stop  int

	// TestDir is the directory of numerically named test cases. TestDir+".zip"
	// is preferred over the directory when it exists.
	TestDir string

	// File, when set, is sent verbatim as the only test case (index 0).
	File string

	// Zip is an explicit archive of test cases.
	Zip string

	// ReadTimeout bounds the wait for a request. Zero waits indefinitely.
	ReadTimeout time.Duration

	// PollInterval is the accept wait between cancellation checks.
	PollInterval time.Duration

	// ReadBudget is the number of request bytes read (and discarded) per connection.
	ReadBudget int

	// Once stops the server after the last test case instead of serving the
	// default response.
	Once bool

	// Journal is an optional JSON-lines file recording every injection.
	Journal string

	// Syslog also records injections to the local syslog daemon.
	Syslog bool

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// DefaultConfig returns configuration with defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:         DefaultPort,
		Start:        0,
		Stop:         math.MaxInt,
		TestDir:      DefaultTestDir,
		PollInterval: DefaultPollInterval,
		ReadBudget:   DefaultReadBudget,
		LogLevel:     DefaultLogLevel,
	}
}

// SetSingle selects exactly one test case index.
func (c *Config) SetSingle(index int) {
	c.Start = index
	c.Stop = index
}

// ListenAddr is the address the server binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.Port)
}

// AutoZipPath is the archive looked up next to the test directory.
func (c *Config) AutoZipPath() string {
	return strings.TrimRight(c.TestDir, `/\`) + ".zip"
}

// fileConfig is the YAML shape of a config file. Pointers distinguish unset
// keys from zero values.
type fileConfig struct {
	Port          *int    `yaml:"port"`
	CloseDelayMS  *int    `yaml:"close_delay_ms"`
	Start         *int    `yaml:"start"`
	Stop          *int    `yaml:"stop"`
	Single        *int    `yaml:"single"`
	TestDir       *string `yaml:"test_dir"`
	File          *string `yaml:"file"`
	Zip           *string `yaml:"zip"`
	ReadTimeoutMS *int    `yaml:"read_timeout_ms"`
	Once          *bool   `yaml:"once"`
	Journal       *string `yaml:"journal"`
	Syslog        *bool   `yaml:"syslog"`
	LogLevel      *string `yaml:"log_level"`
}

// LoadFile applies a YAML config file on top of the current values.
// Unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.apply(data)
}

func (c *Config) apply(data []byte) error {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			// empty file
			return nil
		}
		return fmt.Errorf("parse config: %w", err)
	}

	if fc.Port != nil {
		c.Port = *fc.Port
	}
	if fc.CloseDelayMS != nil {
		c.CloseDelay = time.Duration(*fc.CloseDelayMS) * time.Millisecond
	}
	if fc.Start != nil {
		c.Start = *fc.Start
	}
	if fc.Stop != nil {
		c.Stop = *fc.Stop
	}
	if fc.Single != nil {
		c.SetSingle(*fc.Single)
	}
	if fc.TestDir != nil {
		c.TestDir = *fc.TestDir
	}
	if fc.File != nil {
		c.File = *fc.File
	}
	if fc.Zip != nil {
		c.Zip = *fc.Zip
	}
	if fc.ReadTimeoutMS != nil {
		c.ReadTimeout = time.Duration(*fc.ReadTimeoutMS) * time.Millisecond
	}
	if fc.Once != nil {
		c.Once = *fc.Once
	}
	if fc.Journal != nil {
		c.Journal = *fc.Journal
	}
	if fc.Syslog != nil {
		c.Syslog = *fc.Syslog
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
	return nil
}

// LoadFromEnv loads overrides from REPLYSERVER_* environment variables.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("REPLYSERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REPLYSERVER_PORT: %w", err)
		}
		c.Port = port
	}
	if v := os.Getenv("REPLYSERVER_CLOSEDELAY"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REPLYSERVER_CLOSEDELAY: %w", err)
		}
		c.CloseDelay = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("REPLYSERVER_TESTDIR"); v != "" {
		c.TestDir = v
	}
	if v := os.Getenv("REPLYSERVER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks configuration for errors. Start greater than Stop is
// allowed; it selects no test cases.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 0-65535", c.Port)
	}
	if c.CloseDelay < 0 {
		return fmt.Errorf("close delay must not be negative")
	}
	if c.Start < 0 {
		return fmt.Errorf("start index %d is negative: only non-negative file names are test cases", c.Start)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("read timeout must not be negative")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.ReadBudget <= 0 {
		return fmt.Errorf("read budget must be positive")
	}
	if c.File == "" && c.TestDir == "" {
		return fmt.Errorf("test directory is required when no file is given")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// RangeString formats the selected index range for diagnostics.
func (c *Config) RangeString() string {
	return FormatRange(c.Start, c.Stop)
}

// FormatRange formats an index range, spelling an unbounded stop as "max".
func FormatRange(start, stop int) string {
	if stop == math.MaxInt {
		return fmt.Sprintf("%d-max", start)
	}
	return fmt.Sprintf("%d-%d", start, stop)
}
