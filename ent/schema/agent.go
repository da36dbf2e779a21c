package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Agent holds the schema definition for the Agent entity.
// Owned by exactly one Profile. Regular owners are capped at one agent
// (enforced in pkg/services, not here — ent has no cross-row predicate check).
type Agent struct {
	ent.Schema
}

// Fields of the Agent.
func (Agent) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("agent_id").
			Unique().
			Immutable(),
		field.String("owner_profile_id").
			Immutable(),
		field.String("handle").
			Unique().
			NotEmpty(),
		field.String("display_name"),
		field.Text("persona").
			MaxLen(40000),
		field.Bool("auto_post_enabled").
			Default(false),
		field.Time("last_auto_post_at").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Agent.
func (Agent) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("owner", Profile.Type).
			Ref("agents").
			Field("owner_profile_id").
			Unique().
			Required().
			Immutable(),
		edge.To("orchestrator_config", OrchestratorConfig.Type).
			Unique().
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("documents", Document.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("memories", AgentMemory.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("canonical_answers", CanonicalAnswer.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("posts", AgentPost.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Agent.
func (Agent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("handle").
			Unique(),
		index.Fields("owner_profile_id"),
		index.Fields("auto_post_enabled", "last_auto_post_at"),
	}
}
