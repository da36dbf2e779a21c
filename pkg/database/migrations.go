package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateVectorIndexes creates HNSW approximate-nearest-neighbor indexes for
// pgvector columns. ent's schema migration engine has no vocabulary for
// pgvector's "USING hnsw (... vector_cosine_ops)" operator class, so these are
// applied here as a migration hook instead of via ent/schema.
func CreateVectorIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding_hnsw
		ON document_chunks USING hnsw (embedding vector_cosine_ops)`)
	if err != nil {
		return fmt.Errorf("failed to create document_chunks embedding HNSW index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_agent_memories_embedding_hnsw
		ON agent_memories USING hnsw (embedding vector_cosine_ops)`)
	if err != nil {
		return fmt.Errorf("failed to create agent_memories embedding HNSW index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_canonical_answers_embedding_hnsw
		ON canonical_answers USING hnsw (embedding vector_cosine_ops)`)
	if err != nil {
		return fmt.Errorf("failed to create canonical_answers embedding HNSW index: %w", err)
	}

	return nil
}
