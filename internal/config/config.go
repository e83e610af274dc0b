// Package config loads bucketdeck runtime configuration.
//
// Precedence, highest first: runtime overrides, BUCKETDECK_* environment
// variables, the config file, defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/3leaps/bucketdeck/pkg/provider"
)

// Config is the full runtime configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	API      APIConfig      `mapstructure:"api"`

	// ReadOnly refuses every delete.
	ReadOnly bool `mapstructure:"readonly"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`

	// Profile is "structured" (JSON) or "console".
	Profile string `mapstructure:"profile"`
}

type MetricsConfig struct {
	// Enabled exposes /metrics and instruments providers.
	Enabled bool `mapstructure:"enabled"`
}

type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// StorageConfig selects the storage destination.
//
// When ProfilesFile is set the named Profile (or the file's active profile)
// is used. Otherwise Inline is used as-is.
type StorageConfig struct {
	ProfilesFile string `mapstructure:"profiles_file"`
	Profile      string `mapstructure:"profile"`

	Inline provider.StorageConfig `mapstructure:",squash"`
}

type ResolverConfig struct {
	// VirtualHostedDomains overrides the domains that get bucket-subdomain URLs.
	// Empty keeps the built-in list.
	VirtualHostedDomains []string `mapstructure:"virtual_hosted_domains"`
}

type TimeoutsConfig struct {
	// List bounds a single listing. Zero leaves it to the transport.
	List time.Duration `mapstructure:"list"`

	// Delete bounds a single delete. Zero leaves it to the transport.
	Delete time.Duration `mapstructure:"delete"`
}

type APIConfig struct {
	// RefreshRate is the sustained refreshes per second the API accepts.
	RefreshRate float64 `mapstructure:"refresh_rate"`

	// RefreshBurst is the refresh burst size.
	RefreshBurst int `mapstructure:"refresh_burst"`
}

// Validate checks value ranges that decoding cannot.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	switch strings.ToLower(c.Logging.Profile) {
	case "structured", "console":
	default:
		problems = append(problems, fmt.Sprintf("logging.profile %q must be structured or console", c.Logging.Profile))
	}
	if c.Timeouts.List < 0 || c.Timeouts.Delete < 0 {
		problems = append(problems, "timeouts must not be negative")
	}
	if c.API.RefreshRate <= 0 {
		problems = append(problems, "api.refresh_rate must be positive")
	}
	if c.API.RefreshBurst < 1 {
		problems = append(problems, "api.refresh_burst must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
