// Package canonical wraps the CanonicalAnswer store: lookup by vector
// similarity scoped to an agent and caller-allowed layers, creation as the
// terminal effect of an answered escalation, and the monotonic reuse counter
// path C increments on every reuse.
package canonical

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/relaysocial/orchestrator/ent"
	"github.com/relaysocial/orchestrator/ent/canonicalanswer"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/database"
	"github.com/relaysocial/orchestrator/pkg/vectorstore"
)

// Store is the canonical-answer read/write surface used by pkg/policy and
// pkg/escalation.
type Store struct {
	db     *database.Client
	vector vectorstore.Store
}

// New builds a Store over the given database client and vector backend.
func New(db *database.Client, vector vectorstore.Store) *Store {
	return &Store{db: db, vector: vector}
}

// Match is a candidate canonical answer returned by Lookup, ordered by
// descending similarity.
type Match struct {
	ID         string
	Content    string
	Similarity float64
	Layer      config.Layer
}

// Lookup searches the agent's canonical answers restricted to layers, and
// returns the best match (if any). Callers compare Similarity against
// config.Defaults.CanonicalReuseThreshold to decide whether to reuse it.
func (s *Store) Lookup(ctx context.Context, agentID string, queryVector []float32, layers []config.Layer) (*Match, error) {
	matches, err := s.vector.Search(ctx, vectorstore.CollectionCanonicalAnswers, vectorstore.Query{
		Vector:  queryVector,
		AgentID: agentID,
		Layers:  layerStrings(layers),
		TopK:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("canonical: lookup: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	top := matches[0]
	return &Match{
		ID:         top.Record.ID,
		Content:    top.Record.Content,
		Similarity: top.Score,
		Layer:      config.Layer(top.Record.Layer),
	}, nil
}

func layerStrings(layers []config.Layer) []string {
	out := make([]string, len(layers))
	for i, l := range layers {
		out[i] = string(l)
	}
	return out
}

// CreateFromEscalation inserts a CanonicalAnswer as the terminal effect of an
// escalation transitioning to answered, links it back via escalation_id, and
// indexes it for future vector lookup. reuse_count starts at 0.
func (s *Store) CreateFromEscalation(ctx context.Context, escalationID, agentID, questionPattern, answerContent string, layer config.Layer, embedding []float32) (*ent.CanonicalAnswer, error) {
	ca, err := s.db.CanonicalAnswer.Create().
		SetID(uuid.NewString()).
		SetAgentID(agentID).
		SetEscalationID(escalationID).
		SetQuestionPattern(questionPattern).
		SetAnswerContent(answerContent).
		SetLayer(canonicalanswer.Layer(layer)).
		SetReuseCount(0).
		SetEmbedding(pgvector.NewVector(embedding)).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("canonical: create: %w", err)
	}

	err = s.vector.Upsert(ctx, vectorstore.CollectionCanonicalAnswers, []vectorstore.Record{{
		ID:      ca.ID,
		AgentID: agentID,
		Layer:   string(layer),
		Content: questionPattern,
		Vector:  embedding,
	}})
	if err != nil {
		return nil, fmt.Errorf("canonical: index: %w", err)
	}

	return ca, nil
}

// IncrementReuse atomically increments reuse_count and returns the new
// value. Implemented as a single UPDATE ... RETURNING so concurrent path-C
// hits on the same answer never lose an increment.
func (s *Store) IncrementReuse(ctx context.Context, id string) (int, error) {
	var newCount int
	row := s.db.DB().QueryRowContext(ctx,
		`UPDATE canonical_answers SET reuse_count = reuse_count + 1, updated_at = now() WHERE canonical_answer_id = $1 RETURNING reuse_count`,
		id,
	)
	if err := row.Scan(&newCount); err != nil {
		return 0, fmt.Errorf("canonical: increment reuse: %w", err)
	}
	return newCount, nil
}
