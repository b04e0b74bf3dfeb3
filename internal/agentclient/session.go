package agentclient

import (
	"fmt"

	"github.com/GuyDuerFB/revops-gateway/internal/workitem"
)

// DeriveSessionKey computes the stable identifier that lets follow-on
// messages in the same thread continue the same remote-agent session (§3
// AgentSession.session_key). Pure function of the item's origin — never
// mutates the item.
func DeriveSessionKey(item *workitem.WorkItem, nowEpochSeconds int64) string {
	switch item.Kind {
	case workitem.KindChatMention:
		if item.Origin.ThreadID != "" {
			return fmt.Sprintf("%s:%s:%s", item.Origin.UserID, item.Origin.ChannelID, item.Origin.ThreadID)
		}
		return fmt.Sprintf("%s:%s", item.Origin.UserID, item.Origin.ChannelID)
	default: // workitem.KindWebhookQuery
		conversationID := item.Origin.TargetCorrelationID
		return fmt.Sprintf("%s:%d", conversationID, nowEpochSeconds)
	}
}
