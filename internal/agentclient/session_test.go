package agentclient

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GuyDuerFB/revops-gateway/internal/workitem"
)

func TestDeriveSessionKey_ChatThreadScoped(t *testing.T) {
	item := &workitem.WorkItem{
		Kind: workitem.KindChatMention,
		Origin: workitem.Origin{
			UserID: "U1", ChannelID: "C1", ThreadID: "1700000000.000100",
		},
	}
	assert.Equal(t, "U1:C1:1700000000.000100", DeriveSessionKey(item, 0))
}

func TestDeriveSessionKey_ChatChannelScopedWhenNoThread(t *testing.T) {
	item := &workitem.WorkItem{
		Kind: workitem.KindChatMention,
		Origin: workitem.Origin{
			UserID: "U1", ChannelID: "C1",
		},
	}
	assert.Equal(t, "U1:C1", DeriveSessionKey(item, 0))
}

func TestDeriveSessionKey_Webhook(t *testing.T) {
	item := &workitem.WorkItem{
		Kind: workitem.KindWebhookQuery,
		Origin: workitem.Origin{
			TargetCorrelationID: "conv-42",
		},
	}
	assert.Equal(t, "conv-42:1700000000", DeriveSessionKey(item, 1700000000))
}

func TestDeriveSessionKey_Deterministic(t *testing.T) {
	item := &workitem.WorkItem{
		Kind:   workitem.KindChatMention,
		Origin: workitem.Origin{UserID: "U1", ChannelID: "C1", ThreadID: "T1"},
	}
	assert.Equal(t, DeriveSessionKey(item, 0), DeriveSessionKey(item, 0))
}
