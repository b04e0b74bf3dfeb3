// Package config loads and validates the gateway's typed configuration tree:
// YAML on disk, environment-variable overlay, struct-tag validation — the
// same three-stage shape the teacher's configuration layer uses for its
// agent/chain registries, applied here to the gateway's own concerns.
package config

import "time"

// Config is the root configuration tree for the gateway process.
type Config struct {
	HTTP           HTTPConfig           `yaml:"http"`
	Database       DatabaseConfig       `yaml:"database"`
	Chat           ChatConfig           `yaml:"chat"`
	AgentRuntime   AgentRuntimeConfig   `yaml:"agent_runtime"`
	ObjectStore    ObjectStoreConfig    `yaml:"object_store"`
	DeliveryTarget DeliveryTargetConfig `yaml:"delivery_targets"`
	DeliveryRetry  DeliveryRetryConfig  `yaml:"delivery_retry"`
	Queue          QueueConfig          `yaml:"queue"`
}

// HTTPConfig controls the ingress HTTP server.
type HTTPConfig struct {
	Port string `yaml:"port" validate:"required"`
}

// DatabaseConfig mirrors store.Config with YAML tags. It is the only source
// of database settings: cmd/gateway/main.go copies these fields onto
// store.Config.
type DatabaseConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"required"`
	User     string `yaml:"user" validate:"required"`
	Database string `yaml:"database" validate:"required"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ChatConfig holds chat-edge credentials and signing material (§6, §4.1).
type ChatConfig struct {
	SigningSecret      string        `yaml:"signing_secret" validate:"required"`
	BotToken           string        `yaml:"bot_token" validate:"required"`
	Channel            string        `yaml:"channel"`
	ReplayWindow       time.Duration `yaml:"replay_window"`
	ProgressThrottleMS int           `yaml:"progress_throttle_ms"`
	DedupWindow        time.Duration `yaml:"dedup_window"`
}

// AgentRuntimeConfig addresses the remote agent (§6).
type AgentRuntimeConfig struct {
	AgentID      string        `yaml:"agent_id" validate:"required"`
	AgentAliasID string        `yaml:"agent_alias_id" validate:"required"`
	Region       string        `yaml:"region"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	MaxRetries   int           `yaml:"max_retries" validate:"min=0"`
}

// ObjectStoreConfig addresses the conversation-export destination (§4.6).
type ObjectStoreConfig struct {
	Bucket string `yaml:"bucket" validate:"required"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// DeliveryTargetConfig maps an IntentClass name to a delivery URL (§6).
// An unset class routes to dead-letter with reason no_target_configured.
type DeliveryTargetConfig struct {
	DealAnalysis string `yaml:"deal_analysis"`
	DataAnalysis string `yaml:"data_analysis"`
	LeadAnalysis string `yaml:"lead_analysis"`
	General      string `yaml:"general"`
}

// URLFor returns the configured target URL for an intent class, or "" if unset.
func (d DeliveryTargetConfig) URLFor(intentClass string) string {
	switch intentClass {
	case "deal_analysis":
		return d.DealAnalysis
	case "data_analysis":
		return d.DataAnalysis
	case "lead_analysis":
		return d.LeadAnalysis
	case "general":
		return d.General
	default:
		return ""
	}
}

// DeliveryRetryConfig is the exponential-backoff policy for C5 (§4.5).
type DeliveryRetryConfig struct {
	BaseDelay      time.Duration `yaml:"base_delay"`
	Multiplier     float64       `yaml:"multiplier" validate:"min=1"`
	Cap            time.Duration `yaml:"cap"`
	MaxAttempts    int           `yaml:"max_attempts" validate:"min=1"`
	JitterFraction float64       `yaml:"jitter_fraction" validate:"min=0,max=1"`
}

// QueueConfig controls worker pool sizing for C3 and C5, mirroring the
// teacher's pkg/config/queue.go shape but sized independently per pool
// (§5: "C5 uses an independent consumer pool ... sized separately from C3").
type QueueConfig struct {
	AgentWorkerCount        int           `yaml:"agent_worker_count"`
	DeliveryWorkerCount     int           `yaml:"delivery_worker_count"`
	MaxConcurrentSessions   int           `yaml:"max_concurrent_sessions"`
	PollInterval            time.Duration `yaml:"poll_interval"`
	PollIntervalJitter      time.Duration `yaml:"poll_interval_jitter"`
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
}
