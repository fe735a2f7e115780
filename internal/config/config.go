// Package config provides configuration file parsing for apkident.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/apkident/internal/archive"
	"github.com/blackwell-systems/apkident/internal/locale"
)

// FileName is the config file inside Dir().
const FileName = "config.yaml"

// DefaultKeepCacheTime is how long cached files are kept.
const DefaultKeepCacheTime = 24 * time.Hour

// Dir returns the apkident config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/apkident if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "apkident"), nil
}

// Config is the apkident configuration.
type Config struct {
	DBPath      string   `yaml:"db_path"`
	ArchiveDirs []string `yaml:"archive_dirs,omitempty"`

	// StorageRoot is the shared storage directory holding Android/obb.
	StorageRoot string `yaml:"storage_root"`

	HashType string       `yaml:"hash_type"`
	Locale   LocaleConfig `yaml:"locale"`
	Device   DeviceConfig `yaml:"device"`

	KeepCacheTime time.Duration `yaml:"keep_cache_time"`
	CacheDir      string        `yaml:"cache_dir"`

	// LogFile receives the watch daemon's log.
	LogFile string `yaml:"log_file"`

	Jobs int `yaml:"jobs"`
}

// LocaleConfig selects the locale preference used to resolve metadata.
// An empty Primary is taken from the environment.
type LocaleConfig struct {
	Primary      string   `yaml:"primary"`
	List         []string `yaml:"list,omitempty"`
	SingleLocale bool     `yaml:"single_locale"`
}

// DeviceConfig describes the device the archives were installed on.
type DeviceConfig struct {
	SDK  int      `yaml:"sdk"`
	ABIs []string `yaml:"abis,omitempty"`
}

// Default returns the configuration used when no file exists. Paths are
// placed below dir.
func Default(dir string) *Config {
	cacheDir := filepath.Join(dir, "cache")
	if base, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(base, "apkident")
	}

	return &Config{
		DBPath:        filepath.Join(dir, "apkident.db"),
		HashType:      archive.DefaultHashType,
		KeepCacheTime: DefaultKeepCacheTime,
		CacheDir:      cacheDir,
		LogFile:       filepath.Join(dir, "watch.log"),
		Jobs:          runtime.NumCPU(),
	}
}

// Load reads {dir}/config.yaml over the defaults. If the file does not
// exist, the defaults are returned without an error.
func Load(dir string) (*Config, error) {
	cfg := Default(dir)

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to {dir}/config.yaml.
func (c *Config) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv applies APKIDENT_DB, APKIDENT_STORAGE_ROOT and APKIDENT_LOCALE.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("APKIDENT_DB"); v != "" {
		c.DBPath = v
	}
	if v := getenv("APKIDENT_STORAGE_ROOT"); v != "" {
		c.StorageRoot = v
	}
	if v := getenv("APKIDENT_LOCALE"); v != "" {
		c.Locale.Primary = v
	}
}

// Validate reports configuration errors.
func (c *Config) Validate() error {
	if _, err := archive.NewHash(c.HashType); err != nil {
		return fmt.Errorf("invalid hash_type: %w", err)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("invalid jobs %d: must be positive", c.Jobs)
	}
	if c.KeepCacheTime < 0 {
		return fmt.Errorf("invalid keep_cache_time %s: must not be negative", c.KeepCacheTime)
	}
	if c.DBPath == "" {
		return errors.New("db_path must be set")
	}
	return nil
}

// Preference returns the configured locale preference, falling back to
// the POSIX locale variables read through getenv.
func (c *Config) Preference(getenv func(string) string) locale.Preference {
	if c.Locale.Primary == "" && len(c.Locale.List) == 0 {
		return locale.FromEnv(getenv)
	}
	p := locale.ParsePreference(c.Locale.Primary, c.Locale.List...)
	if p.Primary == "" && len(p.List) > 0 {
		p.Primary = p.List[0]
	}
	return p
}

// Era returns the locale fallback policy.
func (c *Config) Era() locale.Era {
	if c.Locale.SingleLocale {
		return locale.SingleLocale
	}
	return locale.ListAware
}
