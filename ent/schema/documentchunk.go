package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/pgvector/pgvector-go"
)

// DocumentChunk holds the schema definition for the DocumentChunk entity.
// ordinal is dense and monotonically increasing per document; layer always
// equals the parent document's layer (enforced by the ingester, not the DB).
// agent_id is denormalized from the parent document's owner so ANN search
// can filter by owning agent without a join on the hot retrieval path.
type DocumentChunk struct {
	ent.Schema
}

// Fields of the DocumentChunk.
func (DocumentChunk) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("chunk_id").
			Unique().
			Immutable(),
		field.String("document_id").
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.Int("ordinal").
			Immutable(),
		field.Text("content").
			Immutable(),
		field.Other("embedding", pgvector.Vector{}).
			SchemaType(map[string]string{
				dialect.Postgres: "vector(1536)",
			}).
			Immutable(),
		field.Enum("layer").
			Values("public", "friends", "intimate").
			Immutable(),
	}
}

// Edges of the DocumentChunk.
func (DocumentChunk) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("document", Document.Type).
			Ref("chunks").
			Field("document_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the DocumentChunk.
// Note: the HNSW ANN index over embedding is created via a migration hook in
// pkg/database/migrations.go, not here — ent's index builder has no vocabulary
// for pgvector's "USING hnsw (embedding vector_cosine_ops)" operator class.
func (DocumentChunk) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("document_id", "ordinal").
			Unique(),
		index.Fields("agent_id", "layer"),
	}
}
