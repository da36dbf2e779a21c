// Package llm wraps the chat and embedding calls the orchestrator makes
// against an OpenAI-compatible provider, exposing a channel-based streaming
// API for chat completions and a batched call for embeddings.
package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/relaysocial/orchestrator/pkg/config"
	openai "github.com/sashabaranov/go-openai"
)

// Message is a single turn in a chat completion request.
type Message struct {
	Role    string // RoleSystem, RoleUser, RoleAssistant
	Content string
}

// Conversation message roles.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// ChunkType identifies the kind of streaming chunk.
type ChunkType string

const (
	ChunkTypeText  ChunkType = "text"
	ChunkTypeUsage ChunkType = "usage"
	ChunkTypeError ChunkType = "error"
)

// Chunk is the interface for all streaming chunk types a chat call emits.
type Chunk interface {
	chunkType() ChunkType
}

// TextChunk is a fragment of the assistant's text response.
type TextChunk struct{ Content string }

// UsageChunk reports token consumption for the call, emitted once at the end.
type UsageChunk struct{ PromptTokens, CompletionTokens, TotalTokens int }

// ErrorChunk signals an error from the provider. Retryable mirrors
// config.ErrorKindTransient/ErrorKindUpstreamUnavailable semantics.
type ErrorChunk struct {
	Message   string
	Retryable bool
}

func (c *TextChunk) chunkType() ChunkType  { return ChunkTypeText }
func (c *UsageChunk) chunkType() ChunkType { return ChunkTypeUsage }
func (c *ErrorChunk) chunkType() ChunkType { return ChunkTypeError }

// ChatRequest describes a single chat completion call.
type ChatRequest struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Client is the Go-side interface for calling a chat/embedding provider.
type Client interface {
	// Chat streams a completion; the returned channel is closed when the
	// stream completes. A provider error is delivered as an ErrorChunk
	// rather than returned, so partial output already sent isn't lost.
	Chat(ctx context.Context, req ChatRequest) (<-chan Chunk, error)

	// Embed returns one embedding vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Model names, for callers that need to tag records with provenance.
	ChatModel() string
	EmbeddingModel() string
	EmbeddingDim() int
}

type client struct {
	openai   *openai.Client
	provider *config.LLMProviderConfig
}

// New builds a Client for the given provider configuration.
func New(provider *config.LLMProviderConfig) (Client, error) {
	apiKey := os.Getenv(provider.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("llm: %s is not set", provider.APIKeyEnv)
	}

	cfg := openai.DefaultConfig(apiKey)
	if provider.BaseURL != "" {
		cfg.BaseURL = provider.BaseURL
	}

	return &client{
		openai:   openai.NewClientWithConfig(cfg),
		provider: provider,
	}, nil
}

func (c *client) ChatModel() string      { return c.provider.ChatModel }
func (c *client) EmbeddingModel() string { return c.provider.EmbeddingModel }
func (c *client) EmbeddingDim() int      { return c.provider.EmbeddingDim }

func (c *client) Chat(ctx context.Context, req ChatRequest) (<-chan Chunk, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	stream, err := c.openai.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.provider.ChatModel,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: start chat stream: %w", err)
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err != nil {
				if err.Error() != "EOF" {
					out <- &ErrorChunk{Message: err.Error(), Retryable: isRetryable(err)}
				}
				return
			}
			if len(resp.Choices) > 0 && resp.Choices[0].Delta.Content != "" {
				out <- &TextChunk{Content: resp.Choices[0].Delta.Content}
			}
			if resp.Usage != nil {
				out <- &UsageChunk{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				}
			}
		}
	}()
	return out, nil
}

func (c *client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.openai.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(c.provider.EmbeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create embeddings: %w", err)
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// isRetryable reports whether a provider error is worth retrying. go-openai
// surfaces HTTP-layer failures as *openai.APIError with a status code; 429
// and 5xx are transient, everything else (auth, bad request) is not.
func isRetryable(err error) bool {
	apiErr, ok := err.(*openai.APIError)
	if !ok {
		return false
	}
	return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
}
