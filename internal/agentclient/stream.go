package agentclient

import (
	"context"
	"io"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/GuyDuerFB/revops-gateway/internal/clock"
)

// streamItem is one decoded unit handed from the background stream reader
// to the invoker loop: either chunk text, zero-or-more normalized trace
// events, or a terminal error.
type streamItem struct {
	chunkText string
	events    []TraceEvent
	err       error
}

// eventStream is the subset of *bedrockruntime.InvokeAgentEventStream this
// package depends on, mirrored as an interface (the same style the wider
// AWS SDK family's own adapters use) so tests can substitute a fake reader
// without constructing a real smithy event stream.
type eventStream interface {
	Events() <-chan brtypes.ResponseStream
	Close() error
	Err() error
}

// agentStreamer adapts a raw InvokeAgent event stream into a channel of
// streamItem via a background goroutine.
type agentStreamer struct {
	ctx    context.Context
	cancel context.CancelFunc
	clk    clock.Clock
	items  chan streamItem
}

func newAgentStreamer(ctx context.Context, stream eventStream, clk clock.Clock) *agentStreamer {
	cctx, cancel := context.WithCancel(ctx)
	s := &agentStreamer{
		ctx:    cctx,
		cancel: cancel,
		clk:    clk,
		items:  make(chan streamItem, 32),
	}
	go s.run(stream)
	return s
}

func (s *agentStreamer) run(stream eventStream) {
	defer close(s.items)
	defer func() { _ = stream.Close() }()

	events := stream.Events()
	for {
		select {
		case <-s.ctx.Done():
			s.items <- streamItem{err: s.ctx.Err()}
			return
		case raw, ok := <-events:
			if !ok {
				if err := stream.Err(); err != nil {
					s.items <- streamItem{err: err}
				}
				return
			}
			chunkText, evs := normalizeEvent(raw, s.clk.Now())
			s.items <- streamItem{chunkText: chunkText, events: evs}
		}
	}
}

func (s *agentStreamer) recv() (streamItem, error) {
	item, ok := <-s.items
	if !ok {
		return streamItem{}, io.EOF
	}
	return item, nil
}

func (s *agentStreamer) close() {
	s.cancel()
}
