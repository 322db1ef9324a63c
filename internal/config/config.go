package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseDriver         string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	EventSubject           string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxSizeMB        int
	StatsCacheTTL          time.Duration
	AIProvider             string
	OpenAIAPIKey           string
	OpenAIModel            string
	OpenAIBaseURL          string
	AnthropicAPIKey        string
	AnthropicModel         string
	EvalTemperature        float32
	EvalMaxTokens          int
	TagTemperature         float32
	TagMaxTokens           int
	AICallTimeout          time.Duration
	BatchSize              int
	BatchDelay             time.Duration
	BatchMaxItems          int
	EvaluateOnCreate       bool
	EvaluateRateLimit      int
	EvaluateRateWindow     time.Duration
	CORSAllowOrigins       string
}

// IsDevelopment reports whether the service runs outside production.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "" || c.AppEnv == "development" || c.AppEnv == "local"
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// AIEnabled reports whether an API key exists for the configured provider.
func (c Config) AIEnabled() bool {
	switch c.AIProvider {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	default:
		return c.OpenAIAPIKey != ""
	}
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PROMPTVAULT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Prompt Vault API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("events.subject", "promptvault.prompt.evaluated")
	v.SetDefault("cloudinary.folder", "promptvault/prompts")
	v.SetDefault("upload.max_mb", 2)
	v.SetDefault("stats.cache_ttl", "5m")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai_model", "gpt-4o-mini")
	v.SetDefault("ai.anthropic_model", "claude-3-5-haiku-latest")
	v.SetDefault("ai.eval_temperature", 0.3)
	v.SetDefault("ai.eval_max_tokens", 1000)
	v.SetDefault("ai.tag_temperature", 0.2)
	v.SetDefault("ai.tag_max_tokens", 500)
	v.SetDefault("ai.call_timeout", "30s")
	v.SetDefault("batch.size", 5)
	v.SetDefault("batch.delay_ms", 1000)
	v.SetDefault("batch.max_items", 100)
	v.SetDefault("evaluate.on_create", true)
	v.SetDefault("evaluate.rate_limit", 10)
	v.SetDefault("evaluate.rate_window", "1m")
	v.SetDefault("cors.allow_origins", "*")

	statsTTL, err := parseDuration(v, "stats.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	callTimeout, err := parseDuration(v, "ai.call_timeout")
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "evaluate.rate_window")
	if err != nil {
		return Config{}, err
	}

	delayMs := v.GetInt("batch.delay_ms")
	if delayMs < 0 {
		delayMs = 0
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseDriver:         strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		EventSubject:           v.GetString("events.subject"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxSizeMB:        v.GetInt("upload.max_mb"),
		StatsCacheTTL:          statsTTL,
		AIProvider:             strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		OpenAIModel:            v.GetString("ai.openai_model"),
		OpenAIBaseURL:          v.GetString("ai.openai_base_url"),
		AnthropicAPIKey:        v.GetString("anthropic_api_key"),
		AnthropicModel:         v.GetString("ai.anthropic_model"),
		EvalTemperature:        float32(v.GetFloat64("ai.eval_temperature")),
		EvalMaxTokens:          v.GetInt("ai.eval_max_tokens"),
		TagTemperature:         float32(v.GetFloat64("ai.tag_temperature")),
		TagMaxTokens:           v.GetInt("ai.tag_max_tokens"),
		AICallTimeout:          callTimeout,
		BatchSize:              v.GetInt("batch.size"),
		BatchDelay:             time.Duration(delayMs) * time.Millisecond,
		BatchMaxItems:          v.GetInt("batch.max_items"),
		EvaluateOnCreate:       v.GetBool("evaluate.on_create"),
		EvaluateRateLimit:      v.GetInt("evaluate.rate_limit"),
		EvaluateRateWindow:     rateWindow,
		CORSAllowOrigins:       v.GetString("cors.allow_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	switch cfg.AIProvider {
	case "openai", "anthropic":
	default:
		return Config{}, fmt.Errorf("unsupported ai provider %q", cfg.AIProvider)
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}

	if cfg.BatchMaxItems <= 0 {
		cfg.BatchMaxItems = 100
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 2
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
