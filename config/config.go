package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type MQConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// ApprovalConfig tunes the milestone voting rounds.
type ApprovalConfig struct {
	QuorumFraction   float64 `yaml:"quorum_fraction"`
	VotingWindowDays int     `yaml:"voting_window_days"`
}

// VotingWindow converts the configured days to a duration.
func (c ApprovalConfig) VotingWindow() time.Duration {
	return time.Duration(c.VotingWindowDays) * 24 * time.Hour
}

// LifecycleConfig tunes the background sweeps.
type LifecycleConfig struct {
	DisputeGraceDays int `yaml:"dispute_grace_days"`
}

// DisputeGrace converts the configured days to a duration.
func (c LifecycleConfig) DisputeGrace() time.Duration {
	return time.Duration(c.DisputeGraceDays) * 24 * time.Hour
}

// WebhookConfig points at an optional external endpoint that mirrors
// every domain event. An empty URL disables forwarding.
type WebhookConfig struct {
	URL string `yaml:"url"`
}

type Config struct {
	DB        DBConfig        `yaml:"db"`
	MQ        MQConfig        `yaml:"mq"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	Server    ServerConfig    `yaml:"server"`
	Approval  ApprovalConfig  `yaml:"approval"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Webhook   WebhookConfig   `yaml:"webhook"`
}

func Load() *Config {
	f, err := os.Open("config.yaml")
	if err != nil {
		log.Fatalf("failed to open config.yaml: %v", err)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config.yaml: %v", err)
	}

	applyDefaults(&cfg)
	overrideFromEnv(&cfg)

	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Approval.QuorumFraction <= 0 {
		cfg.Approval.QuorumFraction = 0.5
	}
	if cfg.Approval.VotingWindowDays <= 0 {
		cfg.Approval.VotingWindowDays = 7
	}
	if cfg.Lifecycle.DisputeGraceDays <= 0 {
		cfg.Lifecycle.DisputeGraceDays = 14
	}
}

func overrideFromEnv(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DB.Name = name
	}

	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.MQ.URL = url
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}

	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		cfg.Webhook.URL = url
	}
}
