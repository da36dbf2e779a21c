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

// CanonicalAnswer holds the schema definition for the CanonicalAnswer entity.
// Created only as the terminal effect of answering an escalation, or by
// explicit admin seed. reuse_count increments under a monotonic guard on path C.
type CanonicalAnswer struct {
	ent.Schema
}

// Fields of the CanonicalAnswer.
func (CanonicalAnswer) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("canonical_answer_id").
			Unique().
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.String("escalation_id").
			Optional().
			Nillable().
			Immutable(),
		field.Text("question_pattern").
			Immutable(),
		field.Text("answer_content"),
		field.Enum("layer").
			Values("public", "friends", "intimate"),
		field.Int("reuse_count").
			Default(0).
			NonNegative(),
		field.Other("embedding", pgvector.Vector{}).
			SchemaType(map[string]string{
				dialect.Postgres: "vector(1536)",
			}),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the CanonicalAnswer.
func (CanonicalAnswer) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("agent", Agent.Type).
			Ref("canonical_answers").
			Field("agent_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the CanonicalAnswer.
func (CanonicalAnswer) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id", "layer"),
		index.Fields("escalation_id").
			Unique(),
	}
}
