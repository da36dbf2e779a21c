package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// EmbeddingCacheEntry holds the schema definition for the EmbeddingCacheEntry
// entity. Global cache keyed by (content_hash, model), independent of the
// per-agent Document.content_hash dedup — this one avoids re-embedding
// identical text across different agents and across ingestion and inference.
type EmbeddingCacheEntry struct {
	ent.Schema
}

// Fields of the EmbeddingCacheEntry.
func (EmbeddingCacheEntry) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("embedding_cache_id").
			Unique().
			Immutable(),
		field.String("content_hash").
			Immutable(),
		field.String("model").
			Immutable(),
		field.Int("dim").
			Immutable(),
		field.JSON("vector", []float32{}).
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the EmbeddingCacheEntry.
func (EmbeddingCacheEntry) Edges() []ent.Edge {
	return nil
}

// Indexes of the EmbeddingCacheEntry.
func (EmbeddingCacheEntry) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("content_hash", "model").
			Unique(),
	}
}
