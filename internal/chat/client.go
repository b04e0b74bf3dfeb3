// Package chat wraps the team-messaging platform API used for both chat
// ingress (C2) and progress/terminal updates on the agent's placeholder
// message (C3).
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goslack "github.com/slack-go/slack"
)

// Client is a thin wrapper around the slack-go SDK.
type Client struct {
	api       *goslack.Client
	channelID string
	logger    *slog.Logger
}

// NewClient creates a new chat API client.
func NewClient(token, channelID string) *Client {
	return &Client{
		api:       goslack.New(token),
		channelID: channelID,
		logger:    slog.Default().With("component", "chat-client"),
	}
}

// NewClientWithAPIURL creates a chat API client that targets a custom API
// URL. Useful for testing against a mock server.
func NewClientWithAPIURL(token, channelID, apiURL string) *Client {
	return &Client{
		api:       goslack.New(token, goslack.OptionAPIURL(apiURL)),
		channelID: channelID,
		logger:    slog.Default().With("component", "chat-client"),
	}
}

// PostMessage sends a message to the configured channel, as a threaded reply
// when threadTS is non-empty. Returns the new message's timestamp, which
// doubles as both the message id and — if this is the first reply — the
// thread id for all follow-ups.
func (c *Client) PostMessage(ctx context.Context, blocks []goslack.Block, threadTS string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := []goslack.MsgOption{
		goslack.MsgOptionBlocks(blocks...),
	}
	if threadTS != "" {
		opts = append(opts, goslack.MsgOptionTS(threadTS))
	}

	_, ts, err := c.api.PostMessageContext(ctx, c.channelID, opts...)
	if err != nil {
		return "", fmt.Errorf("chat.postMessage failed: %w", err)
	}
	return ts, nil
}

// UpdateMessage replaces the content of a previously posted message in
// place — used by C3 to turn a "processing…" placeholder into the final
// response without losing the thread position the user already opened.
func (c *Client) UpdateMessage(ctx context.Context, messageID string, blocks []goslack.Block, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, _, _, err := c.api.UpdateMessageContext(ctx, c.channelID, messageID, goslack.MsgOptionBlocks(blocks...))
	if err != nil {
		return fmt.Errorf("chat.update failed: %w", err)
	}
	return nil
}
