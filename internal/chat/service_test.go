package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestService_NilReceiver(t *testing.T) {
	var s *Service

	t.Run("PostPlaceholder is no-op", func(t *testing.T) {
		id, err := s.PostPlaceholder(context.Background(), "")
		assert.Empty(t, id)
		assert.NoError(t, err)
	})

	t.Run("PostProgress does not panic", func(_ *testing.T) {
		s.PostProgress(context.Background(), "msg-1", "checking CRM")
	})

	t.Run("PostTerminal does not panic", func(_ *testing.T) {
		s.PostTerminal(context.Background(), "msg-1", true, "done")
	})
}

func TestNewService(t *testing.T) {
	t.Run("returns nil when token empty", func(t *testing.T) {
		svc := NewService(ServiceConfig{Token: "", Channel: "C123"})
		assert.Nil(t, svc)
	})

	t.Run("returns nil when channel empty", func(t *testing.T) {
		svc := NewService(ServiceConfig{Token: "xoxb-test", Channel: ""})
		assert.Nil(t, svc)
	})

	t.Run("returns service when configured", func(t *testing.T) {
		svc := NewService(ServiceConfig{
			Token:   "xoxb-test",
			Channel: "C123",
		})
		assert.NotNil(t, svc)
	})
}
