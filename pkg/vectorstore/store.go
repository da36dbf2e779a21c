// Package vectorstore abstracts similarity search over the three embedded
// collections (document chunks, agent memories, canonical answers) behind a
// single interface so the retrieval/memory/canonical packages work the same
// way whether embeddings live in Postgres (pgvector) or in a Qdrant cluster.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/relaysocial/orchestrator/pkg/config"
)

// Collection names one of the three vector-bearing tables/collections.
type Collection string

const (
	CollectionDocumentChunks   Collection = "document_chunks"
	CollectionAgentMemories    Collection = "agent_memories"
	CollectionCanonicalAnswers Collection = "canonical_answers"
)

// Record is a single embedded item, independent of backend.
type Record struct {
	ID       string
	AgentID  string
	Layer    string
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// Match is a Record scored against a query vector. Score is cosine
// similarity in [-1, 1]; higher is more similar.
type Match struct {
	Record
	Score float64
}

// Query narrows a similarity search to an agent's records, optionally
// restricted to a set of visibility layers.
type Query struct {
	Vector  []float32
	AgentID string
	Layers  []string
	TopK    int
}

// Store is implemented by the pgvector and Qdrant backends.
type Store interface {
	Upsert(ctx context.Context, collection Collection, records []Record) error
	Search(ctx context.Context, collection Collection, q Query) ([]Match, error)
	Delete(ctx context.Context, collection Collection, ids []string) error
}

// New builds the Store selected by cfg.Backend.
func New(cfg config.VectorConfig, deps Deps) (Store, error) {
	switch cfg.Backend {
	case config.VectorBackendPgvector:
		if deps.PostgresDB == nil {
			return nil, fmt.Errorf("vectorstore: pgvector backend requires a *sql.DB")
		}
		return newPgvectorStore(deps.PostgresDB), nil
	case config.VectorBackendQdrant:
		return newQdrantStore(cfg)
	default:
		return nil, fmt.Errorf("vectorstore: unsupported backend %q", cfg.Backend)
	}
}
