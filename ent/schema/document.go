package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Document holds the schema definition for the Document entity.
// Immutable once ingested; deletion cascades to its chunks.
type Document struct {
	ent.Schema
}

// Fields of the Document.
func (Document) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("document_id").
			Unique().
			Immutable(),
		field.String("owner_agent_id").
			Immutable(),
		field.Enum("layer").
			Values("public", "friends", "intimate").
			Immutable(),
		field.Text("content").
			Immutable(),
		field.String("source").
			Immutable().
			Comment("free-form provenance label: url, upload, tweet id, etc."),
		field.String("content_hash").
			Immutable().
			Comment("sha256 of content, scoped per agent for ingest dedup"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Document.
func (Document) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("agent", Agent.Type).
			Ref("documents").
			Field("owner_agent_id").
			Unique().
			Required().
			Immutable(),
		edge.To("chunks", DocumentChunk.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Document.
func (Document) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("owner_agent_id", "layer"),
		index.Fields("owner_agent_id", "content_hash").
			Unique(),
	}
}
