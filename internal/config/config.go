package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Config is small and file/env friendly. Zero values are filled in by
// Validate.
type Config struct {
	// Host and Port form the listen address. PORT in the environment sets Port.
	Host string `koanf:"host"`
	Port string `koanf:"port"`

	// Root is the storage root holding one directory per project.
	Root string `koanf:"root"`

	// StateDir stores staged uploads and the thumbnail cache.
	// Default: <root>/.freehost
	StateDir string `koanf:"state_dir"`

	// PublicURL, when set, is the base for every returned URL instead of the
	// scheme and host of the incoming request.
	PublicURL string `koanf:"public_url"`

	// TrustProxy makes request-derived URLs honor X-Forwarded-Proto/Host.
	TrustProxy bool `koanf:"trust_proxy"`

	// MaxFileSize caps each uploaded file, in bytes.
	MaxFileSize int64 `koanf:"max_file_size"`
	// MaxRequestSize caps a whole upload request, in bytes. 0 disables it.
	MaxRequestSize int64 `koanf:"max_request_size"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

const (
	DefaultPort           = "3000"
	DefaultRoot           = "public"
	DefaultMaxFileSize    = 50 << 20
	DefaultMaxRequestSize = 1 << 30
)

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              DefaultPort,
		Root:              DefaultRoot,
		MaxFileSize:       DefaultMaxFileSize,
		MaxRequestSize:    DefaultMaxRequestSize,
		LogLevel:          "info",
		LogFormat:         "json",
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Addr is the listen address.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Validate checks the config and resolves Root and StateDir to absolute paths.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return errors.New("config: root is required")
	}
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("config: port is required")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("config: max_file_size must be positive, got %d", c.MaxFileSize)
	}
	if c.MaxRequestSize < 0 {
		return fmt.Errorf("config: max_request_size must not be negative, got %d", c.MaxRequestSize)
	}
	if c.PublicURL != "" {
		u, err := url.Parse(c.PublicURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: public_url %q must be an absolute http(s) URL", c.PublicURL)
		}
		c.PublicURL = strings.TrimRight(c.PublicURL, "/")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("config: log_format must be json or console, got %q", c.LogFormat)
	}

	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("config: abs root: %w", err)
	}
	c.Root = root
	if c.StateDir == "" {
		c.StateDir = filepath.Join(c.Root, ".freehost")
	}
	stateDir, err := filepath.Abs(c.StateDir)
	if err != nil {
		return fmt.Errorf("config: abs state dir: %w", err)
	}
	c.StateDir = stateDir
	return nil
}
