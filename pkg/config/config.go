// Package config loads and validates the regproxy configuration file.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/regproxy/regproxy/pkg/errdefs"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Proxy  ProxyConfig  `yaml:"proxy"`
	Auth   AuthConfig   `yaml:"auth"`
}

// ServerConfig configures the listen address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c ServerConfig) Validate() error {
	if c.Host == "" {
		return errdefs.Newf(errdefs.ErrInvalidParameter, "server.host must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errdefs.Newf(errdefs.ErrInvalidParameter, "server.port %d out of range [1, 65535]", c.Port)
	}
	return nil
}

// LogConfig configures logging output.
type LogConfig struct {
	// Path is the JSON log file. Empty disables file output.
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

func (c LogConfig) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses the configured level name.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errdefs.Newf(errdefs.ErrInvalidParameter, "log.level %q is not one of debug, info, warn, error", c.Level)
}

// ProxyConfig configures upstream resolution.
type ProxyConfig struct {
	// DefaultRegistry is the upstream base URL used for repository names
	// without an embedded registry host.
	DefaultRegistry string `yaml:"default"`
	// DefaultNamespace prefixes bare single-segment names sent to the
	// default registry. Defaults to "library"; set it to "" explicitly to
	// forward bare names untouched.
	DefaultNamespace string `yaml:"defaultNamespace"`
}

func (c ProxyConfig) Validate() error {
	if c.DefaultRegistry == "" {
		return nil
	}
	u, err := url.Parse(c.DefaultRegistry)
	if err != nil {
		return errdefs.Newf(errdefs.ErrInvalidParameter, "proxy.default %q: %w", c.DefaultRegistry, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errdefs.Newf(errdefs.ErrInvalidParameter, "proxy.default %q must use http or https", c.DefaultRegistry)
	}
	if u.Host == "" {
		return errdefs.Newf(errdefs.ErrInvalidParameter, "proxy.default %q has no host", c.DefaultRegistry)
	}
	return nil
}

// AuthConfig carries upstream credentials.
type AuthConfig struct {
	// GHCRToken is a GitHub personal access token used against ghcr.io.
	GHCRToken string `yaml:"ghcrToken"`
}

func (c AuthConfig) Validate() error {
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Proxy.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// Default returns the configuration used when no file is given. Bare
// single-segment names are normalized into the "library" namespace so that
// Docker Hub official images resolve, the same as docker pull does.
func Default() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Log:    LogConfig{Level: "info"},
		Proxy: ProxyConfig{
			DefaultRegistry:  "https://registry-1.docker.io",
			DefaultNamespace: "library",
		},
	}
}

// Load reads the YAML file at path and merges it over the defaults.
func Load(fsys afero.Fs, path string) (Config, error) {
	cfg := Default()
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errdefs.Newf(errdefs.ErrInvalidParameter, "parse config file %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
