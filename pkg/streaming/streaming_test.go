package streaming

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaysocial/orchestrator/pkg/llm"
)

type fakeLLMClient struct {
	chunks []llm.Chunk
	err    error
}

func (f *fakeLLMClient) Chat(ctx context.Context, req llm.ChatRequest) (<-chan llm.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan llm.Chunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (f *fakeLLMClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}
func (f *fakeLLMClient) ChatModel() string      { return "test-model" }
func (f *fakeLLMClient) EmbeddingModel() string { return "test-embed" }
func (f *fakeLLMClient) EmbeddingDim() int      { return 3 }

func drain(ch <-chan Event) []Event {
	var out []Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestStreamTokensEmitsStartThenTokensInOrder(t *testing.T) {
	fake := &fakeLLMClient{chunks: []llm.Chunk{
		&llm.TextChunk{Content: "hello "},
		&llm.TextChunk{Content: "world"},
		&llm.UsageChunk{TotalTokens: 12},
	}}
	p := New(fake)

	events, acc := p.StreamTokens(context.Background(), llm.ChatRequest{}, "test-model", "A")
	got := drain(events)

	require.Len(t, got, 3)
	assert.Equal(t, EventStart, got[0].Type)
	assert.Equal(t, "test-model", got[0].Model)
	assert.Equal(t, "A", got[0].DecisionPath)
	assert.Equal(t, EventToken, got[1].Type)
	assert.Equal(t, "hello ", got[1].Text)
	assert.Equal(t, EventToken, got[2].Type)
	assert.Equal(t, "world", got[2].Text)

	assert.Equal(t, "hello world", acc.Text())
	assert.Equal(t, 12, acc.TokensUsed())
	assert.False(t, acc.Truncated())
}

func TestStreamTokensMarksTruncatedOnErrorChunkAfterPartialText(t *testing.T) {
	fake := &fakeLLMClient{chunks: []llm.Chunk{
		&llm.TextChunk{Content: "partial"},
		&llm.ErrorChunk{Message: "boom", Retryable: true},
	}}
	p := New(fake)

	events, acc := p.StreamTokens(context.Background(), llm.ChatRequest{}, "m", "A")
	got := drain(events)

	require.Len(t, got, 3)
	assert.Equal(t, EventError, got[2].Type)
	assert.True(t, got[2].Retryable)
	assert.True(t, acc.Truncated())
	assert.Equal(t, "partial", acc.Text())
}

func TestStreamTokensMarksTruncatedOnUpstreamStartError(t *testing.T) {
	fake := &fakeLLMClient{err: assert.AnError}
	p := New(fake)

	events, acc := p.StreamTokens(context.Background(), llm.ChatRequest{}, "m", "A")
	got := drain(events)

	require.Len(t, got, 2)
	assert.Equal(t, EventStart, got[0].Type)
	assert.Equal(t, EventError, got[1].Type)
	assert.True(t, acc.Truncated())
}

func TestStreamTokensStopsOnContextCancellation(t *testing.T) {
	fake := &fakeLLMClient{chunks: []llm.Chunk{
		&llm.TextChunk{Content: "a"},
		&llm.TextChunk{Content: "b"},
		&llm.TextChunk{Content: "c"},
	}}
	p := New(fake)

	ctx, cancel := context.WithCancel(context.Background())
	events, acc := p.StreamTokens(ctx, llm.ChatRequest{}, "m", "A")

	first := <-events // start event
	assert.Equal(t, EventStart, first.Type)
	cancel()

	// Drain whatever arrives before the producer notices cancellation; the
	// channel must still close rather than block forever.
	done := make(chan struct{})
	go func() {
		for range events {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close after cancellation")
	}
	assert.True(t, acc.Truncated())
}

func TestSystemEmitsStartThenSystemMessage(t *testing.T) {
	events := System("m", "B", "Could you clarify what you mean?")
	got := drain(events)

	require.Len(t, got, 2)
	assert.Equal(t, EventStart, got[0].Type)
	assert.Equal(t, EventSystem, got[1].Type)
	assert.Equal(t, "Could you clarify what you mean?", got[1].Text)
}

func TestCompleteBuildsTerminalEvent(t *testing.T) {
	ev := Complete("msg-123", 42)
	assert.Equal(t, EventComplete, ev.Type)
	assert.Equal(t, "msg-123", ev.MessageID)
	assert.Equal(t, 42, ev.TokensUsed)
}

func TestRelayWritesSSEFramesUntilChannelCloses(t *testing.T) {
	ch := make(chan Event, 2)
	ch <- Event{Type: EventStart, Model: "m"}
	ch <- Event{Type: EventToken, Text: "hi"}
	close(ch)

	rec := httptest.NewRecorder()
	err := Relay(context.Background(), rec, rec, ch)
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Contains(t, body, `"type":"start"`)
	assert.Contains(t, body, `"type":"token"`)
	assert.Contains(t, body, `"text":"hi"`)
}

func TestRelayStopsOnContextCancellation(t *testing.T) {
	ch := make(chan Event)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	err := Relay(ctx, rec, rec, ch)
	assert.Error(t, err)
}
