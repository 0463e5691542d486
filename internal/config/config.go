// Package config handles configuration loading for tickerproxy.
// It supports YAML config files, a local .env file and environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   yaml:"server"   json:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream" yaml:"upstream" json:"upstream"`
	Market   MarketConfig   `mapstructure:"market"   yaml:"market"   json:"market"`
	News     NewsConfig     `mapstructure:"news"     yaml:"news"     json:"news"`
	LLM      LLMConfig      `mapstructure:"llm"      yaml:"llm"      json:"llm"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"  json:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string   `mapstructure:"host"                yaml:"host"                json:"host"`
	Port              int      `mapstructure:"port"                yaml:"port"                json:"port"`
	CORSOrigins       []string `mapstructure:"cors_origins"        yaml:"cors_origins"        json:"cors_origins"`
	RequestTimeoutSec int      `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec" json:"request_timeout_sec"`
}

// UpstreamConfig bounds every outbound call.
type UpstreamConfig struct {
	TimeoutSec      int     `mapstructure:"timeout_sec"        yaml:"timeout_sec"        json:"timeout_sec"`
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec" yaml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
	UserAgent       string  `mapstructure:"user_agent"         yaml:"user_agent"         json:"user_agent"`
}

// MarketConfig holds the market-data endpoints. Overridable so tests and
// mirrors can point elsewhere.
type MarketConfig struct {
	ChartURL    string `mapstructure:"chart_url"    yaml:"chart_url"    json:"chart_url"`
	QueryURL    string `mapstructure:"query_url"    yaml:"query_url"    json:"query_url"`
	NewsURL     string `mapstructure:"news_url"     yaml:"news_url"     json:"news_url"`
	CookieURL   string `mapstructure:"cookie_url"   yaml:"cookie_url"   json:"cookie_url"`
	HistoryDays int    `mapstructure:"history_days" yaml:"history_days" json:"history_days"`
}

// NewsConfig selects the headline source.
type NewsConfig struct {
	Source        string `mapstructure:"source"         yaml:"source"         json:"source"` // "stream" or "rss"
	HeadlineLimit int    `mapstructure:"headline_limit" yaml:"headline_limit" json:"headline_limit"`
	FeedLimit     int    `mapstructure:"feed_limit"     yaml:"feed_limit"     json:"feed_limit"`
	RSSURL        string `mapstructure:"rss_url"        yaml:"rss_url"        json:"rss_url"`
}

// LLMConfig holds language-model provider configuration.
type LLMConfig struct {
	Provider      string  `mapstructure:"provider"        yaml:"provider"        json:"provider"` // "gemini" or "openai"
	GeminiKey     string  `mapstructure:"gemini_key"      yaml:"gemini_key"      json:"gemini_key"`
	GeminiURL     string  `mapstructure:"gemini_url"      yaml:"gemini_url"      json:"gemini_url"`
	OpenAIKey     string  `mapstructure:"openai_key"      yaml:"openai_key"      json:"openai_key"`
	OpenAIBaseURL string  `mapstructure:"openai_base_url" yaml:"openai_base_url" json:"openai_base_url"`
	Model         string  `mapstructure:"model"           yaml:"model"           json:"model"`
	Temperature   float64 `mapstructure:"temperature"     yaml:"temperature"     json:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"      yaml:"max_tokens"      json:"max_tokens"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.tickerproxy/config.yaml (home directory)
//  3. /etc/tickerproxy/config.yaml (system)
//
// A .env file in the working directory is loaded first, without clobbering
// variables that are already set. Environment variables override config
// file values. Format: TICKERPROXY_<SECTION>_<KEY>, e.g.
// TICKERPROXY_LLM_GEMINI_KEY.
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".tickerproxy"))
	v.AddConfigPath("/etc/tickerproxy")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TICKERPROXY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown llm.provider %q (want gemini or openai)", c.LLM.Provider)
	}
	switch c.News.Source {
	case "stream", "rss":
	default:
		return fmt.Errorf("unknown news.source %q (want stream or rss)", c.News.Source)
	}
	if c.Upstream.TimeoutSec <= 0 {
		return fmt.Errorf("upstream.timeout_sec must be positive, got %d", c.Upstream.TimeoutSec)
	}
	if c.Upstream.RateLimitPerSec < 0 || c.Upstream.RateLimitPerSec > 1000 {
		return fmt.Errorf("upstream.rate_limit_per_sec must be between 0 and 1000, got %g", c.Upstream.RateLimitPerSec)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.request_timeout_sec", 60)

	v.SetDefault("upstream.timeout_sec", 10)
	v.SetDefault("upstream.rate_limit_per_sec", 5.0)
	v.SetDefault("upstream.user_agent", DefaultUserAgent)

	v.SetDefault("market.chart_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market.query_url", "https://query2.finance.yahoo.com")
	v.SetDefault("market.news_url", "https://finance.yahoo.com")
	v.SetDefault("market.cookie_url", "https://fc.yahoo.com")
	v.SetDefault("market.history_days", 30)

	v.SetDefault("news.source", "stream")
	v.SetDefault("news.headline_limit", 3)
	v.SetDefault("news.feed_limit", 10)
	v.SetDefault("news.rss_url", "https://feeds.finance.yahoo.com/rss/2.0/headline")

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 1024)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// DefaultUserAgent is sent to market-data hosts that reject bare clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// The conventional provider variables are honored when the prefixed ones
// are absent.
func overrideFromEnv(cfg *Config) {
	if key := firstEnv("TICKERPROXY_LLM_GEMINI_KEY", "GEMINI_API_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
	if key := firstEnv("TICKERPROXY_LLM_OPENAI_KEY", "OPENAI_API_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// loadDotEnv loads ./.env if it exists. Missing files are ignored.
func loadDotEnv() {
	_ = godotenv.Load()
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
