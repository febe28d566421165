package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	TextProviderDeepSeek = "deepseek"
	TextProviderGemini   = "gemini"
)

type Config struct {
	Port       string `env:"PORT" envDefault:"80"`
	Production bool   `env:"PRODUCTION"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required"`
	TelegramDebug    bool   `env:"TELEGRAM_DEBUG"`

	TextProvider      string        `env:"TEXT_PROVIDER" envDefault:"deepseek"`
	DeepSeekAPIKey    string        `env:"DEEPSEEK_API_KEY"`
	DeepSeekBaseURL   string        `env:"DEEPSEEK_BASE_URL" envDefault:"https://api.deepseek.com"`
	DeepSeekModel     string        `env:"DEEPSEEK_MODEL" envDefault:"deepseek-chat"`
	GeminiAPIKey      string        `env:"GEMINI_SECRET_KEY"`
	GeminiModel       string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"60s"`

	GoogleCredsPath string `env:"GOOGLE_CREDS_PATH" envDefault:"/home/user/google-creds.json"`
	DeepgramAPIKey  string `env:"DEEPGRAM_API_KEY"`

	AffirmativeTokens    []string      `env:"AFFIRMATIVE_TOKENS" envSeparator:"," envDefault:"yes,y,да,sí"`
	SessionIdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"0s"`
	MaxConcurrentUpdates int64         `env:"MAX_CONCURRENT_UPDATES" envDefault:"10"`

	Postgres PostgresConfig
}

type PostgresConfig struct {
	Host     string `env:"POSTGRES_DB_HOST"`
	Port     string `env:"POSTGRES_DB_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_DB_USER"`
	Password string `env:"POSTGRES_DB_PASS"`
	Name     string `env:"POSTGRES_DB_NAME"`
}

// Enabled reports whether a history database was configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// Load reads the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads configuration from the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.TextProvider = strings.ToLower(strings.TrimSpace(c.TextProvider))
	switch c.TextProvider {
	case TextProviderDeepSeek, TextProviderGemini:
	default:
		return fmt.Errorf("unknown TEXT_PROVIDER %q", c.TextProvider)
	}
	if c.MaxConcurrentUpdates < 1 {
		return fmt.Errorf("MAX_CONCURRENT_UPDATES must be positive, got %d", c.MaxConcurrentUpdates)
	}

	tokens := make([]string, 0, len(c.AffirmativeTokens))
	for _, t := range c.AffirmativeTokens {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return fmt.Errorf("AFFIRMATIVE_TOKENS must contain at least one token")
	}
	c.AffirmativeTokens = tokens
	return nil
}
