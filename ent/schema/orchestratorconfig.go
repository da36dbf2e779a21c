package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// OrchestratorConfig holds the schema definition for the OrchestratorConfig entity.
// Exactly one per Agent. Owner-mutable only; read by the policy engine on every turn.
type OrchestratorConfig struct {
	ent.Schema
}

// Fields of the OrchestratorConfig.
func (OrchestratorConfig) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("config_id").
			Unique().
			Immutable(),
		field.String("agent_id").
			Unique().
			Immutable(),
		field.Int("max_escalations_per_day").
			Default(10),
		field.Int("max_escalations_per_week").
			Default(50),
		field.Bool("escalation_enabled").
			Default(true),
		field.Float("auto_answer_confidence_threshold").
			Default(0.75),
		field.Bool("clarification_enabled").
			Default(true),
		field.JSON("blocked_topics", []string{}).
			Optional().
			Comment("keyword set; membership check is case-insensitive substring"),
		field.JSON("allowed_user_tiers", []string{}).
			Default([]string{"free", "follower", "paid"}).
			Comment("strict subset check against the caller's tier, not a hierarchy"),
	}
}

// Edges of the OrchestratorConfig.
func (OrchestratorConfig) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("agent", Agent.Type).
			Ref("orchestrator_config").
			Field("agent_id").
			Unique().
			Required().
			Immutable(),
	}
}
