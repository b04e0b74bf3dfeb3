package chat

import (
	"context"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token   string
	Channel string
}

// Service handles chat placeholder posting and progress/terminal updates.
// Nil-safe: every method is a no-op when the service itself is nil, so C2/C3
// can hold an unconfigured Service without branching on every call site.
type Service struct {
	client *Client
	logger *slog.Logger
}

// NewService creates a new chat notification service. Returns nil if Token
// or Channel is empty — chat ingress is then simply disabled.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client: NewClient(cfg.Token, cfg.Channel),
		logger: slog.Default().With("component", "chat-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing against a mock API server.
func NewServiceWithClient(client *Client) *Service {
	return &Service{
		client: client,
		logger: slog.Default().With("component", "chat-service"),
	}
}

// PostPlaceholder posts the initial "processing…" message into threadTS (or
// starts a new thread if threadTS is empty) and returns the posted message's
// id, which becomes both the WorkItem's origin.placeholder-message-id and,
// when threadTS was empty, the thread id for all follow-ups.
func (s *Service) PostPlaceholder(ctx context.Context, threadTS string) (string, error) {
	if s == nil {
		return "", nil
	}
	return s.client.PostMessage(ctx, BuildPlaceholderMessage(), threadTS, 5*time.Second)
}

// PostProgress updates the placeholder message with a throttled progress
// snippet. Fail-open: errors are logged, never returned, since a missed
// progress update never changes the final outcome.
func (s *Service) PostProgress(ctx context.Context, messageID, snippet string) {
	if s == nil {
		return
	}
	if err := s.client.UpdateMessage(ctx, messageID, BuildProgressMessage(snippet), 10*time.Second); err != nil {
		s.logger.Warn("failed to post progress update", "message_id", messageID, "error", err)
	}
}

// PostTerminal updates the placeholder with the final response, or the
// fixed apology sentence on failure. Fail-open: errors are logged, never
// returned — the thread remains usable even if this update fails.
func (s *Service) PostTerminal(ctx context.Context, messageID string, success bool, responseRich string) {
	if s == nil {
		return
	}
	if err := s.client.UpdateMessage(ctx, messageID, BuildTerminalMessage(success, responseRich), 10*time.Second); err != nil {
		s.logger.Error("failed to post terminal update", "message_id", messageID, "success", success, "error", err)
	}
}
