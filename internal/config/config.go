package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Detector   DetectorConfig   `mapstructure:"detector"`
	Confidence ConfidenceConfig `mapstructure:"confidence"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Roblox     RobloxConfig     `mapstructure:"roblox"`
	YouTube    YouTubeConfig    `mapstructure:"youtube"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// DetectorConfig holds the growth/correlation thresholds and windows
type DetectorConfig struct {
	GrowthThresholdPercent   float64             `mapstructure:"growth_threshold_percent"`
	TrailingWindowDays       int                 `mapstructure:"trailing_window_days"`
	VideoLookbackHours       int                 `mapstructure:"video_lookback_hours"`
	FuzzyMatchThreshold      float64             `mapstructure:"fuzzy_match_threshold"`
	KeywordHints             []string            `mapstructure:"keyword_hints"`
	CooldownHours            int                 `mapstructure:"cooldown_hours"`
	MobileAlertGrowthPercent float64             `mapstructure:"mobile_alert_growth_percent"`
	Aliases                  map[string][]string `mapstructure:"aliases"` // universe ID -> alternate names
}

// TrailingWindow returns the growth comparison window as a duration
func (d DetectorConfig) TrailingWindow() time.Duration {
	return time.Duration(d.TrailingWindowDays) * 24 * time.Hour
}

// VideoLookback returns the video correlation window as a duration
func (d DetectorConfig) VideoLookback() time.Duration {
	return time.Duration(d.VideoLookbackHours) * time.Hour
}

// Cooldown returns the recurrence suppression window as a duration
func (d DetectorConfig) Cooldown() time.Duration {
	return time.Duration(d.CooldownHours) * time.Hour
}

// AliasesFor returns the configured alternate names for a universe, if any
func (d DetectorConfig) AliasesFor(entityID int64) []string {
	if len(d.Aliases) == 0 {
		return nil
	}
	return d.Aliases[strconv.FormatInt(entityID, 10)]
}

// ConfidenceConfig holds the tunable match-confidence weighting.
// Video-backed candidates score fuzzy + (1-fuzzy)*growth_weight*g where g is
// growth normalized against growth_saturation_percent; growth-only candidates
// score growth_only_cap*g.
type ConfidenceConfig struct {
	GrowthWeight            float64 `mapstructure:"growth_weight"`
	GrowthSaturationPercent float64 `mapstructure:"growth_saturation_percent"`
	GrowthOnlyCap           float64 `mapstructure:"growth_only_cap"`
}

// StorageConfig holds storage backend configuration
type StorageConfig struct {
	Driver                string `mapstructure:"driver"` // "sqlite" or "postgres"
	DBPath                string `mapstructure:"db_path"`
	PostgresDSN           string `mapstructure:"postgres_dsn"`
	SnapshotRetentionDays int    `mapstructure:"snapshot_retention_days"`
	VideoRetentionHours   int    `mapstructure:"video_retention_hours"`
}

// SnapshotRetention returns how long CCU snapshots are kept
func (s StorageConfig) SnapshotRetention() time.Duration {
	return time.Duration(s.SnapshotRetentionDays) * 24 * time.Hour
}

// VideoRetention returns how long video records are kept
func (s StorageConfig) VideoRetention() time.Duration {
	return time.Duration(s.VideoRetentionHours) * time.Hour
}

// RobloxConfig holds the CCU poller configuration
type RobloxConfig struct {
	BaseURL               string `mapstructure:"base_url"`
	FallbackBaseURL       string `mapstructure:"fallback_base_url"`
	UniverseLimit         int    `mapstructure:"universe_limit"`
	BatchSize             int    `mapstructure:"batch_size"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
	MaxRetries            int    `mapstructure:"max_retries"`
	RetryDelaySeconds     int    `mapstructure:"retry_delay_seconds"`
	CachePath             string `mapstructure:"cache_path"`
	CacheTTLHours         int    `mapstructure:"cache_ttl_hours"`
}

// RequestTimeout returns the per-request HTTP timeout
func (r RobloxConfig) RequestTimeout() time.Duration {
	return time.Duration(r.RequestTimeoutSeconds) * time.Second
}

// RetryDelay returns the base delay between request retries
func (r RobloxConfig) RetryDelay() time.Duration {
	return time.Duration(r.RetryDelaySeconds) * time.Second
}

// CacheTTL returns how long the discovered universe list stays fresh
func (r RobloxConfig) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLHours) * time.Hour
}

// YouTubeConfig holds the creator video collector configuration.
// An empty APIKey disables collection; detection then runs growth-only.
type YouTubeConfig struct {
	APIKey                string   `mapstructure:"api_key"`
	BaseURL               string   `mapstructure:"base_url"`
	ChannelIDs            []string `mapstructure:"channel_ids"`
	MaxResultsPerChannel  int      `mapstructure:"max_results_per_channel"`
	RequestTimeoutSeconds int      `mapstructure:"request_timeout_seconds"`
}

// DefaultYouTubeChannels is the curated set of high-signal Roblox creator
// channels used when youtube.channel_ids is not configured.
var DefaultYouTubeChannels = []string{
	"UCa2J9M0nsrQJ6GxKF5g8Pow", // DeeterPlays
	"UCg-OUfS9y4Yh0YQBT8aJ6VQ", // Laughability
	"UCb3Y0PXmR2d0w1X7eW3FhVQ", // TanqR
	"UCqJnJ2C-V8GJZz7GzE5bnVQ", // RussoPlays
	"UCn3l2Z6Y4ZC1d7T_y2cYwUw", // DigitoSIM
	"UCp1R0kRBdUhEW_k8fKcoeFQ", // DV Plays
	"UCFz5mJ1GScNwmuredmw6C5g", // TeraBrite Games
	"UC5p0TQ3uO9cwvx6YQg9nEuw", // KreekCraft
	"UCbsP5BL1zJ09GZbK9gk0rVQ", // Calvin Vu
	"UC8_Up8ZYfSNb-iw5yKFZ7VQ", // Conor3D
	"UCUnZ7K2_7qIbkQGi01P8hBw", // LaughClip
	"UCi_5N6f0GO6zkRgLpmj12og", // ItzVortex
	"UCQvZh3_ZrW6Q2VZ0x5uMPRQ", // Parlo
	"UC2ClR5B2wSx8s4Z45xRyk-Q", // DV Plays Roblox
	"UCZ5d5qb8xxOxALG7KX9Yw_g", // DeeterPlays Clips
	"UC8S4rDRZn6Z_StJ-hh7ph8g", // iamSanna
	"UCW3fsT0W48sL6-fdt5nBOIQ", // MeganPlays
	"UCVyfo6o3v9wJ1gFwS7h3u3w", // Glitch
	"UCtoxt3OAz_3t9skoJczAbfw", // BuildIntoGames
	"UCzl4mgxgw9KLSVkKXzbyVQA", // Lonnie
}

// RequestTimeout returns the per-request HTTP timeout
func (y YouTubeConfig) RequestTimeout() time.Duration {
	return time.Duration(y.RequestTimeoutSeconds) * time.Second
}

// NotifyConfig groups the notification sinks
type NotifyConfig struct {
	Ntfy     NtfyConfig     `mapstructure:"ntfy"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Notion   NotionConfig   `mapstructure:"notion"`
}

// NtfyConfig holds ntfy.sh push notification configuration
type NtfyConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	Topic          string `mapstructure:"topic"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the ntfy request timeout
func (n NtfyConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	BotToken          string `mapstructure:"bot_token"`
	ChatID            string `mapstructure:"chat_id"`
	MaxRetries        int    `mapstructure:"max_retries"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds"`
}

// RetryDelay returns the base delay between send retries
func (t TelegramConfig) RetryDelay() time.Duration {
	return time.Duration(t.RetryDelaySeconds) * time.Second
}

// NotionConfig holds Notion database sink configuration
type NotionConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	Token          string `mapstructure:"token"`
	DatabaseID     string `mapstructure:"database_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the Notion request timeout
func (n NotionConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// MonitorConfig holds the monitoring cycle configuration
type MonitorConfig struct {
	CycleHours             int `mapstructure:"cycle_hours"`
	MaxConsecutiveFailures int `mapstructure:"max_consecutive_failures"`
}

// CycleInterval returns the delay between monitoring cycles
func (m MonitorConfig) CycleInterval() time.Duration {
	return time.Duration(m.CycleHours) * time.Hour
}

// HTTPConfig holds the read-only dashboard API configuration
type HTTPConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override, e.g. EARLYSHIFT_YOUTUBE_API_KEY
	v.SetEnvPrefix("EARLYSHIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Detector defaults
	v.SetDefault("detector.growth_threshold_percent", 25.0)
	v.SetDefault("detector.trailing_window_days", 7)
	v.SetDefault("detector.video_lookback_hours", 48)
	v.SetDefault("detector.fuzzy_match_threshold", 0.82)
	v.SetDefault("detector.keyword_hints", []string{
		"new", "update", "secret", "mechanic", "code", "feature", "quest", "event",
	})
	v.SetDefault("detector.cooldown_hours", 24)
	v.SetDefault("detector.mobile_alert_growth_percent", 50.0)

	// Confidence defaults
	v.SetDefault("confidence.growth_weight", 0.35)
	v.SetDefault("confidence.growth_saturation_percent", 100.0)
	v.SetDefault("confidence.growth_only_cap", 0.5)

	// Storage defaults
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.db_path", "early_shift.db")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.snapshot_retention_days", 30)
	v.SetDefault("storage.video_retention_hours", 96)

	// Roblox defaults
	v.SetDefault("roblox.base_url", "https://games.roproxy.com")
	v.SetDefault("roblox.fallback_base_url", "https://games.roblox.com")
	v.SetDefault("roblox.universe_limit", 500)
	v.SetDefault("roblox.batch_size", 100)
	v.SetDefault("roblox.request_timeout_seconds", 20)
	v.SetDefault("roblox.max_retries", 3)
	v.SetDefault("roblox.retry_delay_seconds", 2)
	v.SetDefault("roblox.cache_path", "early_shift.top_universes.json")
	v.SetDefault("roblox.cache_ttl_hours", 4)

	// YouTube defaults. Secrets default to empty so the keys are known to
	// viper and can be supplied purely via environment variables.
	v.SetDefault("youtube.api_key", "")
	v.SetDefault("youtube.base_url", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("youtube.channel_ids", DefaultYouTubeChannels)
	v.SetDefault("youtube.max_results_per_channel", 5)
	v.SetDefault("youtube.request_timeout_seconds", 15)

	// Notify defaults
	v.SetDefault("notify.ntfy.base_url", "https://ntfy.sh")
	v.SetDefault("notify.ntfy.topic", "")
	v.SetDefault("notify.ntfy.timeout_seconds", 10)
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_id", "")
	v.SetDefault("notify.telegram.max_retries", 3)
	v.SetDefault("notify.telegram.retry_delay_seconds", 2)
	v.SetDefault("notify.notion.base_url", "https://api.notion.com")
	v.SetDefault("notify.notion.token", "")
	v.SetDefault("notify.notion.database_id", "")
	v.SetDefault("notify.notion.timeout_seconds", 10)

	// Monitor defaults
	v.SetDefault("monitor.cycle_hours", 4)
	v.SetDefault("monitor.max_consecutive_failures", 3)

	// HTTP defaults
	v.SetDefault("http.enabled", false)
	v.SetDefault("http.listen_addr", ":8787")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Detector config
	if c.Detector.GrowthThresholdPercent < 0 {
		return fmt.Errorf("detector.growth_threshold_percent must not be negative")
	}
	if c.Detector.TrailingWindowDays < 1 {
		return fmt.Errorf("detector.trailing_window_days must be at least 1")
	}
	if c.Detector.VideoLookbackHours < 1 {
		return fmt.Errorf("detector.video_lookback_hours must be at least 1")
	}
	if c.Detector.FuzzyMatchThreshold <= 0.0 || c.Detector.FuzzyMatchThreshold > 1.0 {
		return fmt.Errorf("detector.fuzzy_match_threshold must be in (0.0, 1.0]")
	}
	if len(c.Detector.KeywordHints) == 0 {
		return fmt.Errorf("detector.keyword_hints must contain at least one hint")
	}
	if c.Detector.CooldownHours < 1 {
		return fmt.Errorf("detector.cooldown_hours must be at least 1")
	}
	if c.Detector.MobileAlertGrowthPercent < c.Detector.GrowthThresholdPercent {
		return fmt.Errorf("detector.mobile_alert_growth_percent must be >= detector.growth_threshold_percent")
	}
	for key := range c.Detector.Aliases {
		if _, err := strconv.ParseInt(key, 10, 64); err != nil {
			return fmt.Errorf("detector.aliases key %q must be a universe ID", key)
		}
	}

	// Validate Confidence config
	if c.Confidence.GrowthWeight < 0.0 || c.Confidence.GrowthWeight > 1.0 {
		return fmt.Errorf("confidence.growth_weight must be between 0.0 and 1.0")
	}
	if c.Confidence.GrowthSaturationPercent <= 0 {
		return fmt.Errorf("confidence.growth_saturation_percent must be positive")
	}
	if c.Confidence.GrowthOnlyCap < 0.0 || c.Confidence.GrowthOnlyCap > c.Detector.FuzzyMatchThreshold {
		return fmt.Errorf("confidence.growth_only_cap must be between 0.0 and detector.fuzzy_match_threshold")
	}

	// Validate Storage config
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("storage.db_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be one of: sqlite, postgres")
	}
	if c.Storage.SnapshotRetentionDays < c.Detector.TrailingWindowDays {
		return fmt.Errorf("storage.snapshot_retention_days must be >= detector.trailing_window_days")
	}
	if c.Storage.VideoRetentionHours < c.Detector.VideoLookbackHours {
		return fmt.Errorf("storage.video_retention_hours must be >= detector.video_lookback_hours")
	}

	// Validate Roblox config
	if c.Roblox.BaseURL == "" {
		return fmt.Errorf("roblox.base_url is required")
	}
	if c.Roblox.UniverseLimit < 1 {
		return fmt.Errorf("roblox.universe_limit must be at least 1")
	}
	if c.Roblox.BatchSize < 1 || c.Roblox.BatchSize > 100 {
		return fmt.Errorf("roblox.batch_size must be between 1 and 100")
	}
	if c.Roblox.RequestTimeoutSeconds < 1 {
		return fmt.Errorf("roblox.request_timeout_seconds must be at least 1")
	}
	if c.Roblox.MaxRetries < 1 {
		return fmt.Errorf("roblox.max_retries must be at least 1")
	}
	if c.Roblox.CacheTTLHours < 1 {
		return fmt.Errorf("roblox.cache_ttl_hours must be at least 1")
	}

	// Validate YouTube config
	if c.YouTube.APIKey != "" && c.YouTube.BaseURL == "" {
		return fmt.Errorf("youtube.base_url must be set when an API key is configured")
	}
	if c.YouTube.MaxResultsPerChannel < 1 || c.YouTube.MaxResultsPerChannel > 50 {
		return fmt.Errorf("youtube.max_results_per_channel must be between 1 and 50")
	}
	if c.YouTube.RequestTimeoutSeconds < 1 {
		return fmt.Errorf("youtube.request_timeout_seconds must be at least 1")
	}

	// Validate Notify config
	if c.Notify.Ntfy.Enabled {
		if c.Notify.Ntfy.BaseURL == "" {
			return fmt.Errorf("notify.ntfy.base_url is required when ntfy is enabled")
		}
		if c.Notify.Ntfy.Topic == "" {
			return fmt.Errorf("notify.ntfy.topic is required when ntfy is enabled")
		}
	}
	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.BotToken == "" {
			return fmt.Errorf("notify.telegram.bot_token is required when telegram is enabled")
		}
		if c.Notify.Telegram.ChatID == "" {
			return fmt.Errorf("notify.telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Notify.Notion.Enabled {
		if c.Notify.Notion.Token == "" {
			return fmt.Errorf("notify.notion.token is required when notion is enabled")
		}
		if c.Notify.Notion.DatabaseID == "" {
			return fmt.Errorf("notify.notion.database_id is required when notion is enabled")
		}
	}

	// Validate Monitor config
	if c.Monitor.CycleHours < 1 {
		return fmt.Errorf("monitor.cycle_hours must be at least 1")
	}
	if c.Monitor.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("monitor.max_consecutive_failures must be at least 1")
	}

	// Validate HTTP config
	if c.HTTP.Enabled && c.HTTP.ListenAddr == "" {
		return fmt.Errorf("http.listen_addr is required when http is enabled")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
