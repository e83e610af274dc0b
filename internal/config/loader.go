package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/3leaps/bucketdeck/pkg/profile"
	"github.com/3leaps/bucketdeck/pkg/provider"
)

const (
	// AppName names the config file and the application data directory.
	AppName = "bucketdeck"

	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "BUCKETDECK"

	// DefaultProfilesFile is looked up in the application data directory.
	DefaultProfilesFile = "profiles.yaml"
)

// ErrNoStorage is returned when no storage destination is configured.
var ErrNoStorage = errors.New("no storage configured (set storage.type or a profiles file)")

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// envSpec maps an environment variable to a config path.
type envSpec struct {
	Name string
	Path string
}

// Load builds the configuration and stores it for GetConfig.
//
// The config file is taken from the "config" key (BUCKETDECK_CONFIG or an
// override); otherwise bucketdeck.yaml is searched in the working directory
// and the application data directory. A missing file is not an error.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Path, spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	for _, o := range overrides {
		setFlattened(v, "", o)
	}

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

// GetConfig returns the configuration from the last successful Load.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("health.enabled", true)

	v.SetDefault("storage.profiles_file", "")
	v.SetDefault("storage.profile", "")
	v.SetDefault("storage.name", "")
	v.SetDefault("storage.type", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.base_dir", "")

	v.SetDefault("resolver.virtual_hosted_domains", []string{})

	v.SetDefault("timeouts.list", "60s")
	v.SetDefault("timeouts.delete", "30s")

	v.SetDefault("api.refresh_rate", 1.0)
	v.SetDefault("api.refresh_burst", 3)

	v.SetDefault("readonly", false)
	v.SetDefault("config", "")
}

// getEnvSpecs lists the short aliases on top of the automatic
// BUCKETDECK_<SECTION>_<KEY> names.
func getEnvSpecs() []envSpec {
	p := EnvPrefix + "_"
	return []envSpec{
		{Name: p + "HOST", Path: "server.host"},
		{Name: p + "PORT", Path: "server.port"},
		{Name: p + "READ_TIMEOUT", Path: "server.read_timeout"},
		{Name: p + "WRITE_TIMEOUT", Path: "server.write_timeout"},
		{Name: p + "SHUTDOWN_TIMEOUT", Path: "server.shutdown_timeout"},
		{Name: p + "LOG_LEVEL", Path: "logging.level"},
		{Name: p + "LOG_PROFILE", Path: "logging.profile"},
		{Name: p + "METRICS_ENABLED", Path: "metrics.enabled"},
		{Name: p + "PROFILES", Path: "storage.profiles_file"},
		{Name: p + "PROFILE", Path: "storage.profile"},
		{Name: p + "STORAGE_FORCE_PATH_STYLE", Path: "storage.force_path_style"},
		{Name: p + "LIST_TIMEOUT", Path: "timeouts.list"},
		{Name: p + "DELETE_TIMEOUT", Path: "timeouts.delete"},
		{Name: p + "READONLY", Path: "readonly"},
		{Name: p + "CONFIG", Path: "config"},
	}
}

func setFlattened(v *viper.Viper, prefix string, m map[string]any) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			setFlattened(v, key, nested)
			continue
		}
		v.Set(key, val)
	}
}

func readConfigFile(v *viper.Viper) error {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(AppName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir := dataDir(); dir != "" {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

func dataDir() string {
	return gfconfig.GetAppDataDir(AppName)
}

// ResolveStorage returns the StorageConfig the configuration selects.
//
// An explicit profiles file wins; then an inline storage.type; then the
// default profiles file in the application data directory.
func (c *Config) ResolveStorage() (provider.StorageConfig, error) {
	if path := strings.TrimSpace(c.Storage.ProfilesFile); path != "" {
		return selectProfile(path, c.Storage.Profile)
	}
	if strings.TrimSpace(string(c.Storage.Inline.Type)) != "" {
		sc := c.Storage.Inline.Normalized()
		if sc.Name == "" {
			sc.Name = string(sc.Type)
		}
		return sc, nil
	}
	if dir := dataDir(); dir != "" {
		path := filepath.Join(dir, DefaultProfilesFile)
		if _, err := os.Stat(path); err == nil {
			return selectProfile(path, c.Storage.Profile)
		}
	}
	return provider.StorageConfig{}, ErrNoStorage
}

// Profiles loads the configured profiles file, if any.
func (c *Config) Profiles() (*profile.File, string, error) {
	path := strings.TrimSpace(c.Storage.ProfilesFile)
	if path == "" {
		if dir := dataDir(); dir != "" {
			candidate := filepath.Join(dir, DefaultProfilesFile)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
	}
	if path == "" {
		return nil, "", ErrNoStorage
	}
	f, err := profile.Load(path)
	if err != nil {
		return nil, path, err
	}
	return f, path, nil
}

func selectProfile(path, name string) (provider.StorageConfig, error) {
	f, err := profile.Load(path)
	if err != nil {
		return provider.StorageConfig{}, err
	}
	return f.Select(name)
}
