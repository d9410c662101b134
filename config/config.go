package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Gemini struct {
	Model            string  `yaml:"model" env:"GEMINI_MODEL" env-default:"gemini-2.0-flash"`
	Temperature      float32 `yaml:"temperature" env:"GEMINI_TEMPERATURE" env-default:"0.9"`
	TopP             float32 `yaml:"top_p" env:"GEMINI_TOP_P" env-default:"0.95"`
	TopK             float32 `yaml:"top_k" env:"GEMINI_TOP_K" env-default:"64"`
	MaxOutputTokens  int32   `yaml:"max_output_tokens" env:"GEMINI_MAX_OUTPUT_TOKENS" env-default:"8192"`
	ResponseMIMEType string  `yaml:"response_mime_type" env:"GEMINI_RESPONSE_MIME_TYPE" env-default:"text/plain"`
}

type Telegram struct {
	Enabled           bool    `yaml:"enabled" env:"TELEGRAM_ENABLED" env-default:"false"`
	TelegramAPIToken  string  `yaml:"api_token" env:"TELEGRAM_APITOKEN"`
	AllowedTelegramID []int64 `yaml:"allowed_telegram_id" env:"ALLOWED_TELEGRAM_ID" env-separator:","`
	UpdateTimeout     int     `yaml:"update_timeout_seconds" env:"TELEGRAM_UPDATE_TIMEOUT" env-default:"60"`
}

type Web struct {
	Enabled        bool     `yaml:"enabled" env:"WEB_ENABLED" env-default:"true"`
	Addr           string   `yaml:"addr" env:"WEB_ADDR" env-default:":8080"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"WEB_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:8080"`
	SecureCookie   bool     `yaml:"secure_cookie" env:"WEB_SECURE_COOKIE" env-default:"false"`
}

type Storage struct {
	// Kind is "in-memory" or "redis".
	Kind       string        `yaml:"kind" env:"STORAGE_KIND" env-default:"in-memory"`
	RedisAddr  string        `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"24h"`
}

type Config struct {
	Gemini      Gemini   `yaml:"gemini"`
	Telegram    Telegram `yaml:"telegram"`
	Web         Web      `yaml:"web"`
	Storage     Storage  `yaml:"storage"`
	SecretsFile string   `yaml:"secrets_file" env:"SECRETS_FILE" env-default:"secrets.toml"`
}

func LoadConfig(cfgPath string) (*Config, error) {
	var cfg Config
	if cfgPath != "" {
		if err := cleanenv.ReadConfig(cfgPath, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
