package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/oddsline/scorefeed/internal/alert"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Alert   alert.Config  `mapstructure:"alert"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type FeedConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	FallbackURL   string `mapstructure:"fallback_url"`
	APIKey        string `mapstructure:"api_key"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
	RetryCount    int    `mapstructure:"retry_count"`
	RetryDelaySec int    `mapstructure:"retry_delay_sec"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
}

type StreamConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	BroadcastInterval time.Duration `mapstructure:"broadcast_interval"`
	EvictionWindow    time.Duration `mapstructure:"eviction_window"`
	TrackerTTL        time.Duration `mapstructure:"tracker_ttl"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("feed.base_url", "https://api.sportsfeed.io")
	v.SetDefault("feed.fallback_url", "https://api.sportsfeed.net")
	v.SetDefault("feed.timeout_sec", 10)
	v.SetDefault("feed.retry_count", 3)
	v.SetDefault("feed.retry_delay_sec", 2)
	v.SetDefault("feed.rate_per_second", 5)
	v.SetDefault("stream.poll_interval", "5s")
	v.SetDefault("stream.broadcast_interval", "2s")
	v.SetDefault("stream.eviction_window", "5m")
	v.SetDefault("stream.tracker_ttl", "10s")
	v.SetDefault("alert.enabled", false)
	v.SetDefault("alert.server", "https://ntfy.sh")
	v.SetDefault("alert.priority", "default")
	v.SetDefault("alert.failure_threshold", 3)
	v.SetDefault("logging.level", "info")

	// Environment variable support
	v.SetEnvPrefix("SCOREFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Explicitly bind nested keys without defaults to env vars
	_ = v.BindEnv("feed.api_key", "SCOREFEED_FEED_API_KEY")
	_ = v.BindEnv("alert.topic", "SCOREFEED_ALERT_TOPIC")
	_ = v.BindEnv("alert.token", "SCOREFEED_ALERT_TOKEN")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Feed.APIKey == "" {
		return fmt.Errorf("feed api_key is required (set SCOREFEED_FEED_API_KEY env var)")
	}
	if c.Stream.PollInterval <= 0 {
		return fmt.Errorf("stream poll_interval must be positive")
	}
	if c.Stream.BroadcastInterval <= 0 {
		return fmt.Errorf("stream broadcast_interval must be positive")
	}
	if c.Stream.EvictionWindow <= 0 {
		return fmt.Errorf("stream eviction_window must be positive")
	}
	if c.Alert.Enabled && c.Alert.Topic == "" {
		return fmt.Errorf("alert topic is required when alerting is enabled")
	}
	return nil
}
