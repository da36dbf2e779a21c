// Package memory implements the memory extractor: distills the
// last few turns of a conversation into typed, embedded long-term memories.
// Runs asynchronously after a turn is persisted; failure is logged and never
// surfaces to the chat path.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/relaysocial/orchestrator/ent"
	"github.com/relaysocial/orchestrator/ent/agentmemory"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/database"
	"github.com/relaysocial/orchestrator/pkg/embedding"
	"github.com/relaysocial/orchestrator/pkg/llm"
	"github.com/relaysocial/orchestrator/pkg/vectorstore"
)

// maxHistoryMessages bounds how much conversation context is handed to the
// extraction prompt: the last 10 messages plus the current turn.
const maxHistoryMessages = 10

// Turn is one message in the history handed to the extractor.
type Turn struct {
	Role    string // llm.RoleUser or llm.RoleAssistant
	Content string
}

// Extractor distills conversation turns into AgentMemory rows.
type Extractor struct {
	db        *database.Client
	embedding *embedding.Service
	llm       llm.Client
	vector    vectorstore.Store
	cfg       config.Defaults
}

// New builds a memory Extractor. cfg supplies MemoryConfidenceFloor and
// MemoryDedupSimilarity.
func New(db *database.Client, emb *embedding.Service, llmClient llm.Client, vector vectorstore.Store, cfg config.Defaults) *Extractor {
	return &Extractor{db: db, embedding: emb, llm: llmClient, vector: vector, cfg: cfg}
}

// candidate is the shape the LLM is asked to return for one extracted memory.
type candidate struct {
	Kind       string  `json:"kind"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
}

// Run extracts memories from history+currentMessage for agentID, drops
// low-confidence and duplicate candidates, and persists the rest. Idempotent
// per sourceMessageID: a second call for the same message is a no-op.
// Returns the number of memories persisted. Errors here are meant to be
// logged and swallowed by the caller; extraction failure is non-fatal.
func (e *Extractor) Run(ctx context.Context, agentID, sourceMessageID string, history []Turn, currentMessage string) (int, error) {
	exists, err := e.db.AgentMemory.Query().
		Where(agentmemory.SourceMessageIDEQ(sourceMessageID)).
		Exist(ctx)
	if err != nil {
		return 0, fmt.Errorf("memory: check idempotency: %w", err)
	}
	if exists {
		return 0, nil
	}

	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	candidates, err := e.extract(ctx, history, currentMessage)
	if err != nil {
		return 0, fmt.Errorf("memory: extract: %w", err)
	}

	saved := 0
	for _, c := range candidates {
		kind := config.MemoryKind(c.Kind)
		if !kind.IsValid() {
			slog.Warn("memory: dropping candidate with unknown kind", "agent_id", agentID, "kind", c.Kind)
			continue
		}
		if c.Confidence < e.cfg.MemoryConfidenceFloor {
			continue
		}
		if strings.TrimSpace(c.Content) == "" {
			continue
		}

		vectors, err := e.embedding.Embed(ctx, []string{c.Content})
		if err != nil {
			slog.Warn("memory: embed candidate failed, skipping", "agent_id", agentID, "error", err)
			continue
		}
		vec := vectors[0]

		dup, err := e.isDuplicate(ctx, agentID, kind, vec)
		if err != nil {
			slog.Warn("memory: dedup check failed, persisting anyway", "agent_id", agentID, "error", err)
		} else if dup {
			continue
		}

		if err := e.persist(ctx, agentID, sourceMessageID, kind, c.Content, c.Confidence, vec); err != nil {
			slog.Warn("memory: persist candidate failed, skipping", "agent_id", agentID, "error", err)
			continue
		}
		saved++
	}

	return saved, nil
}

// isDuplicate reports whether vec has a cosine similarity of at least
// MemoryDedupSimilarity to an existing memory of the same agent and kind.
func (e *Extractor) isDuplicate(ctx context.Context, agentID string, kind config.MemoryKind, vec []float32) (bool, error) {
	existing, err := e.db.AgentMemory.Query().
		Where(
			agentmemory.AgentIDEQ(agentID),
			agentmemory.KindEQ(agentmemory.Kind(kind)),
		).
		Order(ent.Desc(agentmemory.FieldCreatedAt)).
		Limit(dedupCandidatePoolSize).
		All(ctx)
	if err != nil {
		return false, err
	}

	for _, m := range existing {
		if cosineSimilarity(vec, m.Embedding.Slice()) >= e.cfg.MemoryDedupSimilarity {
			return true, nil
		}
	}
	return false, nil
}

// dedupCandidatePoolSize is how many of an agent's most recent same-kind
// memories are compared against a freshly extracted one for dedup. Agent
// memory volume per kind is small enough that this is a full comparison in
// practice, not a sample.
const dedupCandidatePoolSize = 200

func (e *Extractor) persist(ctx context.Context, agentID, sourceMessageID string, kind config.MemoryKind, content string, confidence float64, vec []float32) error {
	m, err := e.db.AgentMemory.Create().
		SetID(uuid.NewString()).
		SetAgentID(agentID).
		SetKind(agentmemory.Kind(kind)).
		SetContent(content).
		SetConfidence(confidence).
		SetEmbedding(pgvector.NewVector(vec)).
		SetSourceMessageID(sourceMessageID).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("create agent memory: %w", err)
	}

	return e.vector.Upsert(ctx, vectorstore.CollectionAgentMemories, []vectorstore.Record{{
		ID:      m.ID,
		AgentID: agentID,
		Content: content,
		Vector:  vec,
	}})
}

// extract asks the LLM for a JSON array of {kind, content, confidence}
// candidates distilled from the given turns.
func (e *Extractor) extract(ctx context.Context, history []Turn, currentMessage string) ([]candidate, error) {
	var b strings.Builder
	b.WriteString("Extract durable facts, preferences, relationships, or events worth remembering long-term from this conversation.\n")
	b.WriteString("Valid kinds: fact, preference, relationship, event.\n\n")
	for _, t := range history {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	fmt.Fprintf(&b, "user: %s\n", currentMessage)
	b.WriteString("\nRespond with a JSON array of {\"kind\": <string>, \"content\": <string>, \"confidence\": <float 0-1>} objects, nothing else. Return an empty array if nothing is worth remembering.")

	ch, err := e.llm.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You extract structured long-term memories from conversations. Respond with JSON only."},
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
		if text, ok := chunk.(*llm.TextChunk); ok {
			raw.WriteString(text.Content)
		}
		if errChunk, ok := chunk.(*llm.ErrorChunk); ok {
			return nil, fmt.Errorf("%s", errChunk.Message)
		}
	}

	var candidates []candidate
	if err := json.Unmarshal([]byte(extractJSONArray(raw.String())), &candidates); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}
	return candidates, nil
}

func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return "[]"
	}
	return s[start : end+1]
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
