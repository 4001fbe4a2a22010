package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Logging   LoggingConfig  `mapstructure:"logging"`
	Provider  string         `mapstructure:"provider"` // http, langchain-openai, langchain-ollama
	Streaming bool           `mapstructure:"streaming"`
	Endpoint  EndpointConfig `mapstructure:"endpoint"`
	Stream    StreamConfig   `mapstructure:"stream"`
	Tools     ToolsConfig    `mapstructure:"tools"`
	Layout    LayoutConfig   `mapstructure:"layout"`
	Board     BoardConfig    `mapstructure:"board"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
}

// EndpointConfig describes where chat turns are sent
type EndpointConfig struct {
	URL        string        `mapstructure:"url"`
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	TimeoutStr string        `mapstructure:"timeout"`
	Timeout    time.Duration `mapstructure:"-"`
}

// StreamConfig controls how streamed text is forwarded
type StreamConfig struct {
	FlushIntervalStr string        `mapstructure:"flush_interval"`
	FlushInterval    time.Duration `mapstructure:"-"`
}

// ToolsConfig holds tool-related configuration
type ToolsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ToolChoice string `mapstructure:"tool_choice"`
}

// LayoutConfig tunes automatic node placement
type LayoutConfig struct {
	Default      int     `mapstructure:"default"`
	BaseOffset   float64 `mapstructure:"base_offset"`
	SearchRadius float64 `mapstructure:"search_radius"`
	Jitter       float64 `mapstructure:"jitter"`
}

// BoardConfig selects and tunes the board store
type BoardConfig struct {
	ID          string        `mapstructure:"id"`
	Store       string        `mapstructure:"store"` // memory, sqlite
	DataDir     string        `mapstructure:"data_dir"`
	DebounceStr string        `mapstructure:"debounce"`
	Debounce    time.Duration `mapstructure:"-"`
	CacheTTLStr string        `mapstructure:"cache_ttl"`
	CacheTTL    time.Duration `mapstructure:"-"`
}

var cfg *Config

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Set replaces the global config instance
func Set(c *Config) {
	cfg = c
}

// Load loads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath("./.canvas")
		viper.AddConfigPath(filepath.Join(xdgConfigHome, "canvas"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.AutomaticEnv()
	bindEnvironmentVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine, defaults and env still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	loaded := &Config{}
	if err := viper.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := processDurations(loaded); err != nil {
		return nil, fmt.Errorf("failed to process durations: %w", err)
	}

	cfg = loaded
	return cfg, nil
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("provider", "http")
	viper.SetDefault("streaming", true)

	viper.SetDefault("endpoint.url", "http://localhost:8080/api/chat")
	viper.SetDefault("endpoint.model", "gpt-4o-mini")
	viper.SetDefault("endpoint.api_key", "")
	viper.SetDefault("endpoint.timeout", "120s")

	viper.SetDefault("stream.flush_interval", "16ms")

	viper.SetDefault("logging.log_file", "./.canvas/system.log")
	viper.SetDefault("logging.preserve", false)
	viper.SetDefault("logging.level", "info")

	viper.SetDefault("tools.enabled", true)
	viper.SetDefault("tools.tool_choice", "auto")

	viper.SetDefault("layout.default", 0)
	viper.SetDefault("layout.base_offset", 200.0)
	viper.SetDefault("layout.search_radius", 150.0)
	viper.SetDefault("layout.jitter", 100.0)

	viper.SetDefault("board.id", "default")
	viper.SetDefault("board.store", "sqlite")
	viper.SetDefault("board.data_dir", "./.canvas")
	viper.SetDefault("board.debounce", "750ms")
	viper.SetDefault("board.cache_ttl", "5m")
}

// bindEnvironmentVariables binds CANVAS_ prefixed environment variables to config keys
func bindEnvironmentVariables() {
	viper.BindEnv("provider", "CANVAS_PROVIDER")
	viper.BindEnv("streaming", "CANVAS_STREAMING")
	viper.BindEnv("endpoint.url", "CANVAS_ENDPOINT_URL")
	viper.BindEnv("endpoint.model", "CANVAS_MODEL")
	viper.BindEnv("endpoint.api_key", "CANVAS_API_KEY", "OPENAI_API_KEY")
	viper.BindEnv("endpoint.timeout", "CANVAS_TIMEOUT")
	viper.BindEnv("logging.log_file", "CANVAS_LOG_FILE")
	viper.BindEnv("logging.level", "CANVAS_LOG_LEVEL")
	viper.BindEnv("logging.preserve", "CANVAS_LOG_PRESERVE")
	viper.BindEnv("tools.enabled", "CANVAS_TOOLS_ENABLED")
	viper.BindEnv("board.id", "CANVAS_BOARD")
	viper.BindEnv("board.store", "CANVAS_BOARD_STORE")
	viper.BindEnv("board.data_dir", "CANVAS_DATA_DIR")
}

// processDurations converts string durations to time.Duration
func processDurations(c *Config) error {
	var err error
	if c.Endpoint.Timeout, err = parseDuration("endpoint.timeout", c.Endpoint.TimeoutStr, 120*time.Second); err != nil {
		return err
	}
	if c.Stream.FlushInterval, err = parseDuration("stream.flush_interval", c.Stream.FlushIntervalStr, 16*time.Millisecond); err != nil {
		return err
	}
	if c.Board.Debounce, err = parseDuration("board.debounce", c.Board.DebounceStr, 750*time.Millisecond); err != nil {
		return err
	}
	if c.Board.CacheTTL, err = parseDuration("board.cache_ttl", c.Board.CacheTTLStr, 5*time.Minute); err != nil {
		return err
	}
	return nil
}

func parseDuration(key, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// GetConfigFileUsed returns the path to the config file being used
func GetConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
