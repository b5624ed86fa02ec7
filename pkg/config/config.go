package config

import (
	"os"
	"strconv"
)

// DBConfig holds PostgreSQL settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// MQConfig holds RabbitMQ settings.
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds Redis settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig holds the JWT secret for the HTTP API.
type AuthConfig struct {
	Secret string `yaml:"secret"`
}

// ServerConfig holds the HTTP listen settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// OtelConfig holds the optional OpenTelemetry exporter settings.
type OtelConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// ProvidersConfig selects the capability provider backend.
// Mode "local" uses the built-in rule-based providers; "remote" calls the
// capability service at BaseURL.
type ProvidersConfig struct {
	Mode    string `yaml:"mode"`
	BaseURL string `yaml:"base_url"`
}

// PipelineConfig holds the recognized pipeline options.
type PipelineConfig struct {
	ReplyStyle          string `yaml:"reply_style"`
	RetryAttempts       int    `yaml:"retry_attempts"`
	StageTimeoutSeconds int    `yaml:"stage_timeout_seconds"`
	AutoSend            bool   `yaml:"auto_send"`
}

// OverrideDBFromEnv applies DB_* environment overrides.
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMQFromEnv applies MQ_* environment overrides.
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv applies REDIS_* environment overrides.
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideAuthFromEnv applies the JWT_SECRET environment override.
func OverrideAuthFromEnv(cfg *AuthConfig) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Secret = secret
	}
}

// OverrideServerFromEnv applies the SERVER_PORT environment override.
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideProvidersFromEnv applies PROVIDERS_* environment overrides.
func OverrideProvidersFromEnv(cfg *ProvidersConfig) {
	if mode := os.Getenv("PROVIDERS_MODE"); mode != "" {
		cfg.Mode = mode
	}
	if url := os.Getenv("PROVIDERS_BASE_URL"); url != "" {
		cfg.BaseURL = url
	}
}

// OverridePipelineFromEnv applies PIPELINE_* environment overrides.
func OverridePipelineFromEnv(cfg *PipelineConfig) {
	if style := os.Getenv("PIPELINE_REPLY_STYLE"); style != "" {
		cfg.ReplyStyle = style
	}
	if attempts := os.Getenv("PIPELINE_RETRY_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil && n >= 0 {
			cfg.RetryAttempts = n
		}
	}
	if timeout := os.Getenv("PIPELINE_STAGE_TIMEOUT_SECONDS"); timeout != "" {
		if n, err := strconv.Atoi(timeout); err == nil && n > 0 {
			cfg.StageTimeoutSeconds = n
		}
	}
	if autoSend := os.Getenv("PIPELINE_AUTO_SEND"); autoSend != "" {
		if b, err := strconv.ParseBool(autoSend); err == nil {
			cfg.AutoSend = b
		}
	}
}
