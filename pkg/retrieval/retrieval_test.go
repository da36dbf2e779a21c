package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaysocial/orchestrator/pkg/llm"
	"github.com/relaysocial/orchestrator/pkg/vectorstore"
)

type fakeLLMClient struct {
	chatText string
	chatErr  error
}

func (f *fakeLLMClient) Chat(ctx context.Context, req llm.ChatRequest) (<-chan llm.Chunk, error) {
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	ch := make(chan llm.Chunk, 1)
	ch <- &llm.TextChunk{Content: f.chatText}
	close(ch)
	return ch, nil
}

func (f *fakeLLMClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}
func (f *fakeLLMClient) ChatModel() string      { return "fake-chat" }
func (f *fakeLLMClient) EmbeddingModel() string { return "fake-embed" }
func (f *fakeLLMClient) EmbeddingDim() int      { return 3 }

func TestRerankOrdersByJudgeScoreDescending(t *testing.T) {
	fake := &fakeLLMClient{chatText: `[{"index":0,"score":0.2},{"index":1,"score":0.9}]`}
	s := &Service{llm: fake}

	candidates := []vectorstore.Match{
		{Record: vectorstore.Record{ID: "c0", Content: "low relevance"}, Score: 0.5},
		{Record: vectorstore.Record{ID: "c1", Content: "high relevance"}, Score: 0.4},
	}

	ranked, err := s.rerank(context.Background(), "what time does it open", candidates)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "c1", ranked[0].Record.ID)
	assert.Equal(t, 0.9, ranked[0].Score)
	assert.Equal(t, "c0", ranked[1].Record.ID)
}

func TestRerankFailsOnUnparseableJudgeResponse(t *testing.T) {
	fake := &fakeLLMClient{chatText: "not json at all"}
	s := &Service{llm: fake}

	_, err := s.rerank(context.Background(), "query", []vectorstore.Match{
		{Record: vectorstore.Record{ID: "c0", Content: "x"}},
	})
	assert.Error(t, err)
}

func TestExtractJSONArrayStripsSurroundingProse(t *testing.T) {
	in := "Sure thing! Here you go:\n[{\"index\":0,\"score\":0.5}]\nHope that helps."
	assert.Equal(t, `[{"index":0,"score":0.5}]`, extractJSONArray(in))
}

func TestExtractJSONArrayReturnsEmptyOnNoBrackets(t *testing.T) {
	assert.Equal(t, "[]", extractJSONArray("no brackets here"))
}
