package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/pgvector/pgvector-go"
)

// AgentMemory holds the schema definition for the AgentMemory entity.
// Confidence is thresholded at >= 0.6 at insertion time by the extractor
// (pkg/memory), not enforced here.
type AgentMemory struct {
	ent.Schema
}

// Fields of the AgentMemory.
func (AgentMemory) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("memory_id").
			Unique().
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.Enum("kind").
			Values("fact", "preference", "relationship", "event").
			Immutable(),
		field.Text("content").
			Immutable(),
		field.Float("confidence").
			Immutable(),
		field.Other("embedding", pgvector.Vector{}).
			SchemaType(map[string]string{
				dialect.Postgres: "vector(1536)",
			}).
			Immutable(),
		field.String("source_message_id").
			Immutable().
			Comment("extraction is idempotent per source message"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the AgentMemory.
func (AgentMemory) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("agent", Agent.Type).
			Ref("memories").
			Field("agent_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the AgentMemory.
func (AgentMemory) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id", "kind"),
		index.Fields("source_message_id"),
	}
}
