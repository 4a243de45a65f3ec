package shared

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bitmark-inc/logger"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// ServerConfig is loaded once at start-up and never changed afterwards.
type ServerConfig struct {
	Listen        string `yaml:"listen"`
	MetricsListen string `yaml:"metrics-listen"`
	PathPrefix    string `yaml:"path-prefix"`
	Store         string `yaml:"store"`
	MaxBody       string `yaml:"max-body"`

	MaxKeyLength           int    `yaml:"max-key-length"`
	MaxValueLength         int    `yaml:"max-value-length"`
	MaxTableSize           int    `yaml:"max-table-size"`
	RequireModificationKey bool   `yaml:"require-modification-key"`
	ModificationKeySecret  string `yaml:"modification-key-secret"`

	LogFile    string `yaml:"log-file"`
	LogLevel   string `yaml:"log-level"`
	LogSize    string `yaml:"log-size"`
	LogCount   int    `yaml:"log-count"`
	LogConsole bool   `yaml:"log-console"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Listen:   ":8085",
		Store:    "sqlite://./data/jsonp_db.db",
		MaxBody:  "2MiB",
		LogFile:  "./data/jsonp_db.log",
		LogLevel: "info",
		LogSize:  "1MiB",
		LogCount: 10,
	}
}

// SetDefaults registers DefaultServerConfig under the viper keys read by
// LoadServerConfig.
func SetDefaults(v *viper.Viper) {
	d := DefaultServerConfig()
	v.SetDefault("listen", d.Listen)
	v.SetDefault("metrics-listen", d.MetricsListen)
	v.SetDefault("path-prefix", d.PathPrefix)
	v.SetDefault("store", d.Store)
	v.SetDefault("max-body", d.MaxBody)
	v.SetDefault("max-key-length", d.MaxKeyLength)
	v.SetDefault("max-value-length", d.MaxValueLength)
	v.SetDefault("max-table-size", d.MaxTableSize)
	v.SetDefault("require-modification-key", d.RequireModificationKey)
	v.SetDefault("modification-key-secret", d.ModificationKeySecret)
	v.SetDefault("log-file", d.LogFile)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-size", d.LogSize)
	v.SetDefault("log-count", d.LogCount)
	v.SetDefault("log-console", d.LogConsole)
}

func LoadServerConfig(v *viper.Viper) (ServerConfig, error) {
	c := ServerConfig{
		Listen:                 strings.TrimSpace(v.GetString("listen")),
		MetricsListen:          strings.TrimSpace(v.GetString("metrics-listen")),
		PathPrefix:             strings.TrimSpace(v.GetString("path-prefix")),
		Store:                  strings.TrimSpace(v.GetString("store")),
		MaxBody:                v.GetString("max-body"),
		MaxKeyLength:           v.GetInt("max-key-length"),
		MaxValueLength:         v.GetInt("max-value-length"),
		MaxTableSize:           v.GetInt("max-table-size"),
		RequireModificationKey: v.GetBool("require-modification-key"),
		ModificationKeySecret:  v.GetString("modification-key-secret"),
		LogFile:                v.GetString("log-file"),
		LogLevel:               strings.ToLower(strings.TrimSpace(v.GetString("log-level"))),
		LogSize:                v.GetString("log-size"),
		LogCount:               v.GetInt("log-count"),
		LogConsole:             v.GetBool("log-console"),
	}
	if err := c.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return c, nil
}

func (c ServerConfig) Validate() error {
	if c.RequireModificationKey && c.ModificationKeySecret == "" {
		return errors.New("config: a modification-key-secret is required when require-modification-key is enabled")
	}
	if c.MaxKeyLength < 0 || c.MaxValueLength < 0 || c.MaxTableSize < 0 {
		return errors.New("config: max-key-length, max-value-length and max-table-size must be >= 0")
	}
	if c.Listen == "" {
		return errors.New("config: listen address is required")
	}
	if c.Store == "" {
		return errors.New("config: store URL is required")
	}
	if c.PathPrefix != "" && !strings.HasPrefix(c.PathPrefix, "/") {
		return fmt.Errorf("config: path-prefix %q must start with /", c.PathPrefix)
	}
	if _, err := c.MaxBodyBytes(); err != nil {
		return err
	}
	if _, err := humanize.ParseBytes(c.LogSize); err != nil {
		return fmt.Errorf("config: log-size %q: %w", c.LogSize, err)
	}
	return nil
}

func (c ServerConfig) MaxBodyBytes() (int64, error) {
	n, err := humanize.ParseBytes(c.MaxBody)
	if err != nil {
		return 0, fmt.Errorf("config: max-body %q: %w", c.MaxBody, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("config: max-body must be > 0")
	}
	return int64(n), nil
}

func (c ServerConfig) LoggerConfiguration() (logger.Configuration, error) {
	size, err := humanize.ParseBytes(c.LogSize)
	if err != nil {
		return logger.Configuration{}, fmt.Errorf("config: log-size %q: %w", c.LogSize, err)
	}
	level := c.LogLevel
	if level == "" {
		level = "info"
	}
	return logger.Configuration{
		Directory: filepath.Dir(c.LogFile),
		File:      filepath.Base(c.LogFile),
		Size:      int(size),
		Count:     c.LogCount,
		Console:   c.LogConsole,
		Levels: map[string]string{
			logger.DefaultTag: level,
		},
	}, nil
}

// Redacted hides the secret so the config can be logged.
func (c ServerConfig) Redacted() ServerConfig {
	if c.ModificationKeySecret != "" {
		c.ModificationKeySecret = "********"
	}
	return c
}
