// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL     string `yaml:"url"`
	Migrate bool   `yaml:"migrate"` // apply embedded migrations on startup
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"` // per-session turn lock
}

type AIConfig struct {
	OpenAIKey         string        `yaml:"openai_key"`
	OpenAIBaseURL     string        `yaml:"openai_base_url"`
	OpenRouterKey     string        `yaml:"openrouter_key"`
	OpenRouterURL     string        `yaml:"openrouter_url"`
	OpenRouterReferer string        `yaml:"openrouter_referer"`
	OpenRouterTitle   string        `yaml:"openrouter_title"`
	GeminiKey         string        `yaml:"gemini_key"`
	GeminiURL         string        `yaml:"gemini_url"`
	DefaultModel      string        `yaml:"default_model"`   // registry key
	FallbackModels    []string      `yaml:"fallback_models"` // provider model names, tried in order
	Attempts          int           `yaml:"attempts"`        // per model
	BackoffBase       time.Duration `yaml:"backoff_base"`
	CallTimeout       time.Duration `yaml:"call_timeout"`
	MaxOutputTokens   int           `yaml:"max_output_tokens"`
	ConcurrentLimit   int           `yaml:"concurrent_limit"` // max concurrent AI calls
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type ChatConfig struct {
	RateLimit       int           `yaml:"rate_limit"` // messages per window per user
	RateWindow      time.Duration `yaml:"rate_window"`
	HistoryMessages int           `yaml:"history_messages"` // turns sent with a general question
	ConfirmationTTL time.Duration `yaml:"confirmation_ttl"` // pending proposals older than this are dropped
	SweepInterval   time.Duration `yaml:"sweep_interval"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Auth     AuthConfig     `yaml:"auth"`
	Chat     ChatConfig     `yaml:"chat"`

	Runtime RuntimeConfig `yaml:"-"`
}

// DefaultFallbackModels is the OpenRouter chain tried after the preferred model.
var DefaultFallbackModels = []string{
	"google/gemini-2.0-flash-exp:free",
	"mistralai/mistral-7b-instruct:free",
	"meta-llama/llama-3.2-3b-instruct:free",
	"qwen/qwen-2-7b-instruct:free",
	"openchat/openchat-7b:free",
	"huggingfaceh4/zephyr-7b-beta:free",
	"tngtech/deepseek-r1t2-chimera:free",
	"kwaipilot/kat-coder-pro:free",
	"nvidia/nemotron-nano-12b-v2-vl:free",
	"tngtech/deepseek-r1t-chimera:free",
	"z-ai/glm-4.5-air:free",
	"tngtech/tng-r1t-chimera:free",
	"qwen/qwen3-coder:free",
	"openai/gpt-oss-20b:free",
}

// LoadConfig parses -config and -dev flags and loads the file.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()
	return Load(configPath, dev)
}

// Load reads the yaml file at path, applies .env and environment overrides,
// then defaults and minimal validation.
func Load(path string, dev bool) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" && !dev {
		return nil, errors.New("auth.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&cfg.Database.URL, "DATABASE_URL")
	override(&cfg.Redis.URL, "REDIS_URL")
	override(&cfg.AI.OpenAIKey, "OPENAI_API_KEY")
	override(&cfg.AI.OpenRouterKey, "OPENROUTER_API_KEY")
	override(&cfg.AI.GeminiKey, "GEMINI_API_KEY")
	override(&cfg.Auth.JWTSecret, "JWT_SECRET")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 90 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = 2 * time.Minute
	}
	if cfg.AI.OpenRouterURL == "" {
		cfg.AI.OpenRouterURL = "https://openrouter.ai/api/v1"
	}
	if cfg.AI.OpenRouterTitle == "" {
		cfg.AI.OpenRouterTitle = "CCIS-CodeHub AI Mentor"
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "openrouter_gemini"
	}
	if cfg.AI.FallbackModels == nil {
		cfg.AI.FallbackModels = DefaultFallbackModels
	}
	if cfg.AI.Attempts <= 0 {
		cfg.AI.Attempts = 3
	}
	if cfg.AI.BackoffBase <= 0 {
		cfg.AI.BackoffBase = 2 * time.Second
	}
	if cfg.AI.CallTimeout <= 0 {
		cfg.AI.CallTimeout = 30 * time.Second
	}
	if cfg.AI.MaxOutputTokens <= 0 {
		cfg.AI.MaxOutputTokens = 1500
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.Chat.RateLimit <= 0 {
		cfg.Chat.RateLimit = 20
	}
	if cfg.Chat.RateWindow <= 0 {
		cfg.Chat.RateWindow = time.Minute
	}
	if cfg.Chat.ConfirmationTTL <= 0 {
		cfg.Chat.ConfirmationTTL = 24 * time.Hour
	}
	if cfg.Chat.SweepInterval <= 0 {
		cfg.Chat.SweepInterval = 10 * time.Minute
	}
	if cfg.Chat.HistoryMessages <= 0 {
		cfg.Chat.HistoryMessages = 10
	}
}
