package config

import "time"

// Defaults fills every zero-valued tunable that has a sensible production
// default, mirroring the teacher's DefaultQueueConfig pattern.
func Defaults() Config {
	return Config{
		HTTP: HTTPConfig{Port: "8080"},
		Chat: ChatConfig{
			ReplayWindow:       5 * time.Minute,
			ProgressThrottleMS: 2000,
			DedupWindow:        10 * time.Minute,
		},
		AgentRuntime: AgentRuntimeConfig{
			ReadTimeout: 240 * time.Second,
			MaxRetries:  2,
		},
		DeliveryRetry: DeliveryRetryConfig{
			BaseDelay:      1 * time.Second,
			Multiplier:     2,
			Cap:            300 * time.Second,
			MaxAttempts:    5,
			JitterFraction: 0.1,
		},
		Queue: QueueConfig{
			AgentWorkerCount:        5,
			DeliveryWorkerCount:     3,
			MaxConcurrentSessions:   5,
			PollInterval:            1 * time.Second,
			PollIntervalJitter:      500 * time.Millisecond,
			GracefulShutdownTimeout: 4 * time.Minute,
		},
	}
}

// applyDefaults copies any zero-valued field in cfg from Defaults(). It is
// deliberately shallow and field-by-field (not a generic merge) since the
// config tree is small and stable — mirrors the teacher's pkg/config/merge.go
// approach of explicit, readable merge functions over reflection-based ones.
func applyDefaults(cfg Config) Config {
	d := Defaults()

	if cfg.HTTP.Port == "" {
		cfg.HTTP.Port = d.HTTP.Port
	}
	if cfg.Chat.ReplayWindow == 0 {
		cfg.Chat.ReplayWindow = d.Chat.ReplayWindow
	}
	if cfg.Chat.ProgressThrottleMS == 0 {
		cfg.Chat.ProgressThrottleMS = d.Chat.ProgressThrottleMS
	}
	if cfg.Chat.DedupWindow == 0 {
		cfg.Chat.DedupWindow = d.Chat.DedupWindow
	}
	if cfg.AgentRuntime.ReadTimeout == 0 {
		cfg.AgentRuntime.ReadTimeout = d.AgentRuntime.ReadTimeout
	}
	if cfg.AgentRuntime.MaxRetries == 0 {
		cfg.AgentRuntime.MaxRetries = d.AgentRuntime.MaxRetries
	}
	if cfg.DeliveryRetry.BaseDelay == 0 {
		cfg.DeliveryRetry.BaseDelay = d.DeliveryRetry.BaseDelay
	}
	if cfg.DeliveryRetry.Multiplier == 0 {
		cfg.DeliveryRetry.Multiplier = d.DeliveryRetry.Multiplier
	}
	if cfg.DeliveryRetry.Cap == 0 {
		cfg.DeliveryRetry.Cap = d.DeliveryRetry.Cap
	}
	if cfg.DeliveryRetry.MaxAttempts == 0 {
		cfg.DeliveryRetry.MaxAttempts = d.DeliveryRetry.MaxAttempts
	}
	if cfg.DeliveryRetry.JitterFraction == 0 {
		cfg.DeliveryRetry.JitterFraction = d.DeliveryRetry.JitterFraction
	}
	if cfg.Queue.AgentWorkerCount == 0 {
		cfg.Queue.AgentWorkerCount = d.Queue.AgentWorkerCount
	}
	if cfg.Queue.DeliveryWorkerCount == 0 {
		cfg.Queue.DeliveryWorkerCount = d.Queue.DeliveryWorkerCount
	}
	if cfg.Queue.MaxConcurrentSessions == 0 {
		cfg.Queue.MaxConcurrentSessions = d.Queue.MaxConcurrentSessions
	}
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = d.Queue.PollInterval
	}
	if cfg.Queue.PollIntervalJitter == 0 {
		cfg.Queue.PollIntervalJitter = d.Queue.PollIntervalJitter
	}
	if cfg.Queue.GracefulShutdownTimeout == 0 {
		cfg.Queue.GracefulShutdownTimeout = d.Queue.GracefulShutdownTimeout
	}

	return cfg
}
