// Package config loads ollamachat settings from defaults, an optional YAML
// file, OLLAMACHAT_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "OLLAMACHAT"
	configName = "ollamachat"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Model   string        `mapstructure:"model"`
	Log     LogConfig     `mapstructure:"log"`
	Render  RenderConfig  `mapstructure:"render"`
	Archive ArchiveConfig `mapstructure:"archive"`
}

type ServerConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type RenderConfig struct {
	// Style is a glamour style name or path. "auto" picks dark or light
	// from the terminal background.
	Style string `mapstructure:"style"`
}

// ArchiveConfig enables the local transcript archive when Path is set.
type ArchiveConfig struct {
	Path  string `mapstructure:"path"`
	Limit int    `mapstructure:"limit"`
}

func (a ArchiveConfig) Enabled() bool { return a.Path != "" }

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:     "http://localhost:8000",
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Render: RenderConfig{
			Style: "auto",
		},
		Archive: ArchiveConfig{
			Limit: 50,
		},
	}
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"server":    "server.url",
	"model":     "model",
	"log-level": "log.level",
	"log-file":  "log.file",
	"archive":   "archive.path",
	"style":     "render.style",
}

// Load reads the configuration. configPath may be empty, in which case
// ./ollamachat.yaml and <user config dir>/ollamachat/ollamachat.yaml are
// tried. flags may be nil; only flags that were set on the command line
// override other sources.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, configName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Archive.Path = expandHome(cfg.Archive.Path)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("invalid server url %q: scheme must be http or https", c.Server.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid server url %q: missing host", c.Server.URL)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Archive.Limit <= 0 {
		return fmt.Errorf("archive limit must be positive, got %d", c.Archive.Limit)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("server.url", defaults.Server.URL)
	v.SetDefault("server.timeout", defaults.Server.Timeout)
	v.SetDefault("model", defaults.Model)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.file", defaults.Log.File)
	v.SetDefault("render.style", defaults.Render.Style)
	v.SetDefault("archive.path", defaults.Archive.Path)
	v.SetDefault("archive.limit", defaults.Archive.Limit)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
