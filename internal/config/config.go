package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	OpenAIKey       string `yaml:"openai_api_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	OpenAIChatModel string `yaml:"openai_chat_model"`
	OpenAISTTModel  string `yaml:"openai_stt_model"`

	STTProvider        string `yaml:"stt_provider"`
	GoogleSTTProjectID string `yaml:"google_stt_project_id"`
	GoogleSTTKeyFile   string `yaml:"google_stt_key_file"`

	DatabaseURL        string `yaml:"database_url"`
	ServiceDatabaseURL string `yaml:"service_database_url"`
	JWTSecret          string `yaml:"jwt_secret"`

	RateLimitBackend string `yaml:"rate_limit_backend"`
	RedisAddr        string `yaml:"redis_addr"`
	RedisPassword    string `yaml:"redis_password"`
	RedisDB          int    `yaml:"redis_db"`
	DailyScanQuota   int    `yaml:"daily_scan_quota"`

	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	AuditTimeout    time.Duration `yaml:"audit_timeout"`

	MentorHistoryLimit  int `yaml:"mentor_history_limit"`
	MentorMaxReplyChars int `yaml:"mentor_max_reply_chars"`
}

// Load reads the configuration and validates it for serving
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads the optional YAML file named by BABYZEN_CONFIG, then applies
// environment variables on top and fills the defaults. It does not validate.
func Read() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("BABYZEN_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)
	cfg.SetDefaults()
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.OpenAIChatModel == "" {
		c.OpenAIChatModel = "gpt-4o"
	}
	if c.OpenAISTTModel == "" {
		c.OpenAISTTModel = "whisper-1"
	}
	if c.STTProvider == "" {
		c.STTProvider = "whisper"
	}
	if c.ServiceDatabaseURL == "" {
		c.ServiceDatabaseURL = c.DatabaseURL
	}
	if c.RateLimitBackend == "" {
		c.RateLimitBackend = "sql"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.DailyScanQuota == 0 {
		c.DailyScanQuota = 10
	}
	if c.ProviderTimeout == 0 {
		c.ProviderTimeout = 60 * time.Second
	}
	if c.AuditTimeout == 0 {
		c.AuditTimeout = 5 * time.Second
	}
	if c.MentorHistoryLimit == 0 {
		c.MentorHistoryLimit = 10
	}
	if c.MentorMaxReplyChars == 0 {
		c.MentorMaxReplyChars = 600
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.OpenAIKey) == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required to verify caller tokens")
	}
	switch c.STTProvider {
	case "whisper", "google":
	default:
		return fmt.Errorf("unsupported STT_PROVIDER %q. Supported: whisper, google", c.STTProvider)
	}
	switch c.RateLimitBackend {
	case "sql", "redis":
	default:
		return fmt.Errorf("unsupported RATE_LIMIT_BACKEND %q. Supported: sql, redis", c.RateLimitBackend)
	}
	if c.DailyScanQuota < 1 {
		return errors.New("DAILY_SCAN_QUOTA must be positive")
	}
	return nil
}

func applyEnvOverrides(c *Config) {
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setBool(&c.LogPretty, "LOG_PRETTY")
	setString(&c.OpenAIKey, "OPENAI_API_KEY")
	setString(&c.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&c.OpenAIChatModel, "OPENAI_CHAT_MODEL")
	setString(&c.OpenAISTTModel, "OPENAI_STT_MODEL")
	setString(&c.STTProvider, "STT_PROVIDER")
	setString(&c.GoogleSTTProjectID, "GOOGLE_STT_PROJECT_ID")
	setString(&c.GoogleSTTKeyFile, "GOOGLE_STT_KEY_FILE")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.ServiceDatabaseURL, "SERVICE_DATABASE_URL")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.RateLimitBackend, "RATE_LIMIT_BACKEND")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setInt(&c.RedisDB, "REDIS_DB")
	setInt(&c.DailyScanQuota, "DAILY_SCAN_QUOTA")
	setDuration(&c.ProviderTimeout, "PROVIDER_TIMEOUT")
	setDuration(&c.AuditTimeout, "AUDIT_TIMEOUT")
	setInt(&c.MentorHistoryLimit, "MENTOR_HISTORY_LIMIT")
	setInt(&c.MentorMaxReplyChars, "MENTOR_MAX_REPLY_CHARS")

	c.STTProvider = strings.ToLower(c.STTProvider)
	c.RateLimitBackend = strings.ToLower(c.RateLimitBackend)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
