package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"hermes/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	AI            AIConfig
	TradingView   TradingViewConfig
	Agent         AgentConfig
	Redis         RedisConfig
	Email         EmailConfig
	Telegram      TelegramConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"hermes"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
}

type ServerConfig struct {
	Port         int           `envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"120s"`
}

type AIConfig struct {
	OpenAIKey   string        `envconfig:"OPENAI_API_KEY"`
	BaseURL     string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	Model       string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	Temperature float64       `envconfig:"OPENAI_TEMPERATURE" default:"0.7"`
	MaxTokens   int           `envconfig:"OPENAI_MAX_TOKENS" default:"4096"`
	Timeout     time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`
	ReqPerMin   int           `envconfig:"OPENAI_REQUESTS_PER_MINUTE" default:"300"`
}

type TradingViewConfig struct {
	BaseURL   string        `envconfig:"TRADINGVIEW_BASE_URL" default:"https://scanner.tradingview.com"`
	Market    string        `envconfig:"TRADINGVIEW_MARKET" default:"pakistan"`
	Timeout   time.Duration `envconfig:"TRADINGVIEW_TIMEOUT" default:"15s"`
	ReqPerMin int           `envconfig:"TRADINGVIEW_REQUESTS_PER_MINUTE" default:"60"`
	CacheTTL  time.Duration `envconfig:"TRADINGVIEW_CACHE_TTL" default:"30s"`
}

// AgentConfig bounds the reasoning/tool loop.
type AgentConfig struct {
	MaxRounds        int           `envconfig:"AGENT_MAX_ROUNDS" default:"10"`
	ReasoningTimeout time.Duration `envconfig:"AGENT_REASONING_TIMEOUT" default:"45s"`
	ToolTimeout      time.Duration `envconfig:"AGENT_TOOL_TIMEOUT" default:"20s"`
	MaxStocks        int           `envconfig:"AGENT_MAX_STOCKS" default:"10"`
}

// RedisConfig is optional; an empty host disables the scan cache.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// EmailConfig is optional; an empty SMTP host enables mock mode (log only).
type EmailConfig struct {
	SMTPHost string `envconfig:"SMTP_HOST"`
	SMTPPort int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"EMAIL_FROM" default:"alerts@hermes.local"`
}

func (c EmailConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
}

func (c EmailConfig) MockMode() bool {
	return c.SMTPHost == ""
}

// TelegramConfig is optional; an empty token disables the alert push channel.
type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != 0
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}

// Validate checks that configuration required to start the agent is present.
// A missing LLM key is fatal: the reasoning loop cannot run without it.
func (c *Config) Validate() error {
	if c.AI.OpenAIKey == "" {
		return errors.Wrap(errors.ErrMissingConfig, "OPENAI_API_KEY is required")
	}
	if c.Agent.MaxRounds <= 0 {
		return errors.Wrap(errors.ErrInvalidInput, "AGENT_MAX_ROUNDS must be positive")
	}
	return nil
}
