package agentclient

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// RuntimeClient is the subset of *bedrockruntime.Client this package needs,
// mirrored as an interface so tests can substitute a fake — the same shape
// the lineage uses for its own model-runtime adapter.
type RuntimeClient interface {
	InvokeAgent(ctx context.Context, params *bedrockruntime.InvokeAgentInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeAgentOutput, error)
}

// InvokeParams addresses a single agent invocation.
type InvokeParams struct {
	AgentID      string
	AgentAliasID string
	SessionID    string
	InputText    string
}

func buildInvokeAgentInput(p InvokeParams) *bedrockruntime.InvokeAgentInput {
	return &bedrockruntime.InvokeAgentInput{
		AgentId:      aws.String(p.AgentID),
		AgentAliasId: aws.String(p.AgentAliasID),
		SessionId:    aws.String(p.SessionID),
		InputText:    aws.String(p.InputText),
	}
}

// agentRuntime is the seam between the invoker's retry/streaming logic and
// the concrete SDK call: it hides both the request construction and the
// GetStream() extraction behind one method returning the eventStream
// interface, so the invoker can be tested against a fake that never
// constructs a real smithy event stream.
type agentRuntime interface {
	Invoke(ctx context.Context, params InvokeParams) (eventStream, error)
}

// bedrockAgentRuntime is the production agentRuntime, backed by a real
// bedrockruntime client.
type bedrockAgentRuntime struct {
	client RuntimeClient
}

// NewBedrockAgentRuntime wraps client as the production agentRuntime.
func NewBedrockAgentRuntime(client RuntimeClient) *bedrockAgentRuntime {
	return &bedrockAgentRuntime{client: client}
}

func (b *bedrockAgentRuntime) Invoke(ctx context.Context, params InvokeParams) (eventStream, error) {
	out, err := b.client.InvokeAgent(ctx, buildInvokeAgentInput(params))
	if err != nil {
		return nil, err
	}
	stream := out.GetStream()
	if stream == nil {
		return nil, errors.New("agentclient: invoke agent response missing event stream")
	}
	return stream, nil
}
