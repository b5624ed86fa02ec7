package config

import (
	"log"

	"gopkg.in/yaml.v3"

	"smartmailr/pkg/config"
)

type Config struct {
	DB        config.DBConfig        `yaml:"db"`
	MQ        config.MQConfig        `yaml:"mq"`
	Redis     config.RedisConfig     `yaml:"redis"`
	Auth      config.AuthConfig      `yaml:"auth"`
	Server    config.ServerConfig    `yaml:"server"`
	Otel      config.OtelConfig      `yaml:"otel"`
	Providers config.ProvidersConfig `yaml:"providers"`
	Pipeline  config.PipelineConfig  `yaml:"pipeline"`
}

func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var cfg Config
	cfgData, err := yaml.Marshal(cfgMap)
	if err != nil {
		log.Fatalf("failed to marshal config: %v", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	// Environment overrides take highest priority.
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideAuthFromEnv(&cfg.Auth)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideProvidersFromEnv(&cfg.Providers)
	config.OverridePipelineFromEnv(&cfg.Pipeline)

	return &cfg
}
