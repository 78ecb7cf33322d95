package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ProviderConfig carries the endpoint and fallback key of one external service.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
}

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	StoragePath        string
	StorageBaseURL     string
	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	ProviderTimeout    time.Duration
	RateLimitPerMin    int
	PollInterval       time.Duration
	PollMaxAttempts    int
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	Providers          map[string]ProviderConfig
}

// Service identifiers shared by configuration, credentials and adapters.
const (
	ServiceOpenAI    = "openai"
	ServiceOpenArt   = "openart"
	ServiceBFL       = "bfl"
	ServiceRunway    = "runway"
	ServiceGemini    = "gemini"
	ServiceAnthropic = "anthropic"
)

var providerDefaults = map[string]string{
	ServiceOpenAI:    "https://api.openai.com/v1",
	ServiceOpenArt:   "https://openart.ai/api",
	ServiceBFL:       "https://api.bfl.ai",
	ServiceRunway:    "https://api.dev.runwayml.com",
	ServiceGemini:    "https://generativelanguage.googleapis.com/v1beta",
	ServiceAnthropic: "https://api.anthropic.com/v1",
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		StoragePath:        getEnv("STORAGE_PATH", "./data/assets"),
		StorageBaseURL:     strings.TrimRight(getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"), "/"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 360)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		ProviderTimeout:    time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 120)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		PollInterval:       time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 5)),
		PollMaxAttempts:    getEnvInt("POLL_MAX_ATTEMPTS", 60),
		OTelEnabled:        getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelServiceName:    getEnv("OTEL_SERVICE_NAME", "filmgen"),
		Providers:          make(map[string]ProviderConfig, len(providerDefaults)),
	}
	for service, baseURL := range providerDefaults {
		prefix := strings.ToUpper(service)
		cfg.Providers[service] = ProviderConfig{
			BaseURL: strings.TrimRight(getEnv(prefix+"_BASE_URL", baseURL), "/"),
			APIKey:  strings.TrimSpace(os.Getenv(EnvKeyName(service))),
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.PollMaxAttempts <= 0 {
		return nil, fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

// EnvKeyName is the environment variable that holds the fallback key for a service.
func EnvKeyName(service string) string {
	return strings.ToUpper(strings.TrimSpace(service)) + "_API_KEY"
}

// EnvKeys returns the environment fallback key for every configured service.
func (c *Config) EnvKeys() map[string]string {
	keys := make(map[string]string, len(c.Providers))
	for service, p := range c.Providers {
		if p.APIKey != "" {
			keys[service] = p.APIKey
		}
	}
	return keys
}

// Provider returns the settings of one service.
func (c *Config) Provider(service string) ProviderConfig {
	return c.Providers[service]
}

// HasProvider reports whether service is a configured service id.
func (c *Config) HasProvider(service string) bool {
	_, ok := c.Providers[service]
	return ok
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
