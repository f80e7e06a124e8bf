// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Recorder RecorderConfig `mapstructure:"recorder" yaml:"recorder"`
	Archive  ArchiveConfig  `mapstructure:"archive" yaml:"archive"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	// File output (rotated by lumberjack). Empty disables file logging.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig controls the HTTP request boundary.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ShutdownGrace   time.Duration `mapstructure:"shutdown_grace" yaml:"shutdown_grace"`
	CreateRate      float64       `mapstructure:"create_rate" yaml:"create_rate"`
	CreateBurst     int           `mapstructure:"create_burst" yaml:"create_burst"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxRequestBytes int64         `mapstructure:"max_request_bytes" yaml:"max_request_bytes"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BrowserConfig controls the browser engine adapter.
type BrowserConfig struct {
	Headless      bool          `mapstructure:"headless" yaml:"headless"`
	Args          []string      `mapstructure:"args" yaml:"args"`
	NavTimeout    time.Duration `mapstructure:"nav_timeout" yaml:"nav_timeout"`
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
}

// RecorderConfig controls session defaults and screenshot storage.
type RecorderConfig struct {
	ResultsDir    string `mapstructure:"results_dir" yaml:"results_dir"`
	DefaultWidth  int    `mapstructure:"default_width" yaml:"default_width"`
	DefaultHeight int    `mapstructure:"default_height" yaml:"default_height"`
	// SettleWait is the wait instruction (in seconds) seeded after navigation.
	SettleWait int `mapstructure:"settle_wait" yaml:"settle_wait"`
}

// ArchiveConfig controls optional script persistence to PostgreSQL.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"dsn"`
}

// SetDefaults registers every default on the given viper instance.
// Flags and environment variables override these with the usual precedence.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "recorder-cli")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8010)
	v.SetDefault("server.shutdown_grace", 15*time.Second)
	v.SetDefault("server.create_rate", 1.0)
	v.SetDefault("server.create_burst", 3)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_request_bytes", 1<<20)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.nav_timeout", 45*time.Second)
	v.SetDefault("browser.action_timeout", 15*time.Second)

	v.SetDefault("recorder.results_dir", "results/recorder")
	v.SetDefault("recorder.default_width", 1366)
	v.SetDefault("recorder.default_height", 768)
	v.SetDefault("recorder.settle_wait", 1)
}

// Load reads configuration from the optional file path, the environment
// (RECORDER_* variables) and defaults, in that precedence order.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("RECORDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that cannot possibly work.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Browser.ActionTimeout <= 0 {
		return fmt.Errorf("browser.action_timeout must be positive")
	}
	if c.Browser.NavTimeout <= 0 {
		return fmt.Errorf("browser.nav_timeout must be positive")
	}
	if c.Archive.Enabled && c.Archive.DSN == "" {
		return fmt.Errorf("archive.enabled requires archive.dsn")
	}
	return nil
}
