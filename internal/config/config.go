package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token         string  `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	Username      string  `yaml:"username"`
	APIEndpoint   string  `yaml:"api_endpoint"` // defaults to tgbotapi.APIEndpoint
	ChannelChatID int64   `yaml:"channel_chat_id" env:"TELEGRAM_CHANNEL_ID"`
	WebhookSecret string  `yaml:"webhook_secret" env:"TELEGRAM_WEBHOOK_SECRET"`
	WebhookPath   string  `yaml:"webhook_path"`
	BookingURL    string  `yaml:"booking_url"` // base URL of the booking UI, used for the join button
	AdminIDs      []int64 `yaml:"admin_ids"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"` // trace|debug|info|warn|error
	Format   string `yaml:"format"`                // json|console
	Sampling bool   `yaml:"sampling"`              // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port" env:"PORT"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	JWTSecret      string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL       string        `yaml:"url" env:"REDIS_URL"`
	Password  string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int           `yaml:"db"`
	UpdateTTL time.Duration `yaml:"update_ttl"` // how long delivered update ids are remembered
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	GeminiKey       string `yaml:"gemini_key" env:"GEMINI_API_KEY"`
	GeminiURL       string `yaml:"gemini_url"`
	DefaultModel    string `yaml:"default_model"`
	GeminiModel     string `yaml:"gemini_model"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent AI calls
	MaxPromptTokens int    `yaml:"max_prompt_tokens"`
	MaxReplyTokens  int    `yaml:"max_reply_tokens"`
}

type SyncConfig struct {
	Timeout        time.Duration `yaml:"timeout"`         // upper bound for one reconcile
	PersistTimeout time.Duration `yaml:"persist_timeout"` // bound for writes after a confirmed external call
	SweepCron      string        `yaml:"sweep_cron"`
	StaleAfter     time.Duration `yaml:"stale_after"`
	SweepBatch     int           `yaml:"sweep_batch"`
	Workers        int           `yaml:"workers"`
}

type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	BookingTopic string   `yaml:"booking_topic"`
	GroupID      string   `yaml:"group_id"`
}

type RenderConfig struct {
	Language string `yaml:"language"`
	TimeZone string `yaml:"time_zone"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Sync     SyncConfig     `yaml:"sync"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Render   RenderConfig   `yaml:"render"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, overlays environment variables
// (a local .env file is loaded first when present) and applies defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// secretEnv names the variables whose values must never reach a log line.
var secretEnv = []string{
	"TELEGRAM_BOT_TOKEN",
	"TELEGRAM_WEBHOOK_SECRET",
	"JWT_SECRET",
	"DATABASE_URL",
	"REDIS_URL",
	"REDIS_PASSWORD",
	"OPENAI_API_KEY",
	"GEMINI_API_KEY",
}

// EnvSecrets returns the secret values present in the environment. It is
// meant for scrubbing errors raised before a Config exists.
func EnvSecrets() []string {
	var out []string
	for _, name := range secretEnv {
		if v := os.Getenv(name); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Secrets returns the credentials carried by c.
func (c *Config) Secrets() []string {
	return []string{
		c.Bot.Token,
		c.Bot.WebhookSecret,
		c.HTTP.JWTSecret,
		c.Database.URL,
		c.Redis.URL,
		c.Redis.Password,
		c.AI.OpenAIKey,
		c.AI.GeminiKey,
	}
}

// Parse builds a Config from raw YAML plus the process environment.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Runtime.Dev = dev

	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.WebhookPath == "" {
		cfg.Bot.WebhookPath = "/api/telegram/webhook"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 15 * time.Second
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.UpdateTTL <= 0 {
		cfg.Redis.UpdateTTL = 24 * time.Hour
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 4
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.GeminiModel == "" {
		cfg.AI.GeminiModel = "gemini-2.0-flash"
	}
	if cfg.AI.MaxPromptTokens <= 0 {
		cfg.AI.MaxPromptTokens = 256
	}
	if cfg.AI.MaxReplyTokens <= 0 {
		cfg.AI.MaxReplyTokens = 120
	}
	if cfg.Sync.Timeout <= 0 {
		cfg.Sync.Timeout = 20 * time.Second
	}
	if cfg.Sync.PersistTimeout <= 0 {
		cfg.Sync.PersistTimeout = 5 * time.Second
	}
	if cfg.Sync.SweepCron == "" {
		cfg.Sync.SweepCron = "*/5 * * * *"
	}
	if cfg.Sync.StaleAfter <= 0 {
		cfg.Sync.StaleAfter = 6 * time.Hour
	}
	if cfg.Sync.SweepBatch <= 0 {
		cfg.Sync.SweepBatch = 100
	}
	if cfg.Sync.Workers <= 0 {
		cfg.Sync.Workers = 4
	}
	if cfg.Kafka.BookingTopic == "" {
		cfg.Kafka.BookingTopic = "booking.events"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "padel-telegram-notifier"
	}
	if cfg.Render.Language == "" {
		cfg.Render.Language = "en"
	}
	if cfg.Render.TimeZone == "" {
		cfg.Render.TimeZone = "UTC"
	}
	cfg.Bot.BookingURL = strings.TrimRight(cfg.Bot.BookingURL, "/")
}

func (c *Config) validate() error {
	if c.Bot.Token == "" && !c.Runtime.Dev {
		return errors.New("bot.token is required")
	}
	if c.Bot.ChannelChatID == 0 {
		return errors.New("bot.channel_chat_id is required")
	}
	if c.Bot.WebhookSecret == "" {
		return errors.New("bot.webhook_secret is required")
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if _, err := time.LoadLocation(c.Render.TimeZone); err != nil {
		return fmt.Errorf("render.time_zone: %w", err)
	}
	return nil
}

// IsAdmin reports whether the Telegram user id is listed in bot.admin_ids.
func (b BotConfig) IsAdmin(tgID int64) bool {
	for _, id := range b.AdminIDs {
		if id == tgID {
			return true
		}
	}
	return false
}
