package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)

	assert.Equal(t, 0.5, cfg.Approval.QuorumFraction)
	assert.Equal(t, 7, cfg.Approval.VotingWindowDays)
	assert.Equal(t, 14, cfg.Lifecycle.DisputeGraceDays)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Approval:  ApprovalConfig{QuorumFraction: 0.75, VotingWindowDays: 3},
		Lifecycle: LifecycleConfig{DisputeGraceDays: 30},
	}
	applyDefaults(&cfg)

	assert.Equal(t, 0.75, cfg.Approval.QuorumFraction)
	assert.Equal(t, 3, cfg.Approval.VotingWindowDays)
	assert.Equal(t, 30, cfg.Lifecycle.DisputeGraceDays)
}

func TestDurationHelpers(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, ApprovalConfig{VotingWindowDays: 7}.VotingWindow())
	assert.Equal(t, 14*24*time.Hour, LifecycleConfig{DisputeGraceDays: 14}.DisputeGrace())
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "dbhost")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("MQ_URL", "amqp://mq:5672/")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/events")

	var cfg Config
	overrideFromEnv(&cfg)

	assert.Equal(t, "dbhost", cfg.DB.Host)
	assert.Equal(t, 5433, cfg.DB.Port)
	assert.Equal(t, "amqp://mq:5672/", cfg.MQ.URL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "https://hooks.example.com/events", cfg.Webhook.URL)
}

func TestOverrideFromEnvIgnoresBadPort(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")

	cfg := Config{DB: DBConfig{Port: 5432}}
	overrideFromEnv(&cfg)

	assert.Equal(t, 5432, cfg.DB.Port)
}
