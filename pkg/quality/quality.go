// Package quality implements the quality and intelligence logger:
// asynchronous, advisory-only scoring of a turn, never on the hot
// path. A scoring or persistence failure here is logged by the caller and
// never surfaces to the user.
package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/relaysocial/orchestrator/ent"
	"github.com/relaysocial/orchestrator/pkg/database"
	"github.com/relaysocial/orchestrator/pkg/llm"
)

// minExchangesForTitle is the conversation length (in exchanges, i.e.
// user+assistant pairs) before a title is synthesized.
const minExchangesForTitle = 4

// topicCountMin, topicCountMax are the topic range the judge prompt asks for.
// Only topicCountMax is enforced: topics past it are dropped, while a
// response with fewer than topicCountMin topics is kept as returned.
const (
	topicCountMin = 3
	topicCountMax = 5
)

// suggestionCount is the fixed number of follow-up questions requested.
const suggestionCount = 3

// Score is one turn's advisory quality assessment.
type Score struct {
	Relevance        float64
	Engagement       float64
	FactualGrounding float64
	Topics           []string
	Suggestions      []string
}

// judgeResponse is the shape the LLM judge is asked to return.
type judgeResponse struct {
	Relevance        float64  `json:"relevance"`
	Engagement       float64  `json:"engagement"`
	FactualGrounding float64  `json:"factual_grounding"`
	Topics           []string `json:"topics"`
	Suggestions      []string `json:"suggestions"`
}

// Scorer is the quality logger's read/write surface.
type Scorer struct {
	db  *database.Client
	llm llm.Client
}

// New builds a Scorer over the given database client and chat client.
func New(db *database.Client, llmClient llm.Client) *Scorer {
	return &Scorer{db: db, llm: llmClient}
}

// Score judges one turn and persists the result. Idempotent per message_id
// via the schema's unique index: a duplicate call (e.g. a retried job) is a
// silent no-op, not an error.
func (s *Scorer) Score(ctx context.Context, messageID, userMessage, response, ragContext string) (*Score, error) {
	judged, err := s.judge(ctx, userMessage, response, ragContext)
	if err != nil {
		return nil, fmt.Errorf("quality: judge: %w", err)
	}

	_, err = s.db.ConversationQuality.Create().
		SetID(uuid.NewString()).
		SetMessageID(messageID).
		SetRelevance(judged.Relevance).
		SetEngagement(judged.Engagement).
		SetFactualGrounding(judged.FactualGrounding).
		SetTopics(judged.Topics).
		SetSuggestions(judged.Suggestions).
		Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return judged, nil
		}
		return nil, fmt.Errorf("quality: persist: %w", err)
	}

	return judged, nil
}

func (s *Scorer) judge(ctx context.Context, userMessage, response, ragContext string) (*Score, error) {
	var b strings.Builder
	b.WriteString("Evaluate this assistant turn.\n\n")
	fmt.Fprintf(&b, "User message: %s\n", userMessage)
	fmt.Fprintf(&b, "Assistant response: %s\n", response)
	if ragContext != "" {
		fmt.Fprintf(&b, "Knowledge base context used: %s\n", ragContext)
	}
	b.WriteString("\nRespond with a single JSON object: {\"relevance\": <0-1>, \"engagement\": <0-1>, ")
	b.WriteString("\"factual_grounding\": <0-1>, \"topics\": [3 to 5 short topic strings], ")
	b.WriteString("\"suggestions\": [3 short follow-up questions the user might ask next]}. Nothing else.")

	ch, err := s.llm.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a precise conversation-quality judge. Respond with JSON only."},
			{Role: llm.RoleUser, Content: b.String()},
		},
		Temperature: 0,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, fmt.Errorf("chat call: %w", err)
	}

	var raw strings.Builder
	for chunk := range ch {
		switch c := chunk.(type) {
		case *llm.TextChunk:
			raw.WriteString(c.Content)
		case *llm.ErrorChunk:
			return nil, fmt.Errorf("%s", c.Message)
		}
	}

	var parsed judgeResponse
	if err := json.Unmarshal([]byte(extractJSONObject(raw.String())), &parsed); err != nil {
		return nil, fmt.Errorf("parse judge response: %w", err)
	}

	topics := parsed.Topics
	if len(topics) > topicCountMax {
		topics = topics[:topicCountMax]
	}
	suggestions := parsed.Suggestions
	if len(suggestions) > suggestionCount {
		suggestions = suggestions[:suggestionCount]
	}

	return &Score{
		Relevance:        clamp01(parsed.Relevance),
		Engagement:       clamp01(parsed.Engagement),
		FactualGrounding: clamp01(parsed.FactualGrounding),
		Topics:           topics,
		Suggestions:      suggestions,
	}, nil
}

// MaybeSynthesizeTitle generates and persists a conversation title once the
// conversation has reached minExchangesForTitle exchanges, and is a no-op on
// every later call — a one-time event, not a rolling rename.
func (s *Scorer) MaybeSynthesizeTitle(ctx context.Context, conversationID string, exchangeCount int, transcript string) (string, error) {
	if exchangeCount < minExchangesForTitle {
		return "", nil
	}

	conv, err := s.db.DirectConversation.Get(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("quality: load conversation: %w", err)
	}
	if conv.Title != nil {
		return *conv.Title, nil
	}

	title, err := s.titleFrom(ctx, transcript)
	if err != nil {
		return "", fmt.Errorf("quality: synthesize title: %w", err)
	}

	if _, err := s.db.DirectConversation.UpdateOneID(conversationID).SetTitle(title).Save(ctx); err != nil {
		return "", fmt.Errorf("quality: persist title: %w", err)
	}
	return title, nil
}

func (s *Scorer) titleFrom(ctx context.Context, transcript string) (string, error) {
	ch, err := s.llm.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "Write a short conversation title, 3-6 words, no punctuation at the end, no quotes."},
			{Role: llm.RoleUser, Content: transcript},
		},
		Temperature: 0.3,
		MaxTokens:   32,
	})
	if err != nil {
		return "", fmt.Errorf("chat call: %w", err)
	}

	var raw strings.Builder
	for chunk := range ch {
		switch c := chunk.(type) {
		case *llm.TextChunk:
			raw.WriteString(c.Content)
		case *llm.ErrorChunk:
			return "", fmt.Errorf("%s", c.Message)
		}
	}
	return strings.TrimSpace(strings.Trim(raw.String(), "\"")), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// extractJSONObject trims any leading/trailing prose a chat model adds
// around the JSON object it was asked to return verbatim.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "{}"
	}
	return s[start : end+1]
}
