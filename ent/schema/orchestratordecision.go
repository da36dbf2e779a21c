package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// OrchestratorDecision holds the schema definition for the OrchestratorDecision
// entity. Append-only audit trail of every routing decision the policy engine
// makes; never updated or deleted by application code.
type OrchestratorDecision struct {
	ent.Schema
}

// Fields of the OrchestratorDecision.
func (OrchestratorDecision) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("decision_id").
			Unique().
			Immutable(),
		field.String("conversation_id").
			Immutable(),
		field.String("user_id").
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.Text("message_content").
			Immutable(),
		field.Enum("path").
			Values("A", "B", "C", "D", "E", "F").
			Immutable().
			Comment("A=auto-answer B=clarify C=canonical-reuse D=escalate-offer E=escalate-accept F=refuse"),
		field.Float("confidence").
			Immutable(),
		field.Float("novelty").
			Immutable(),
		field.Float("complexity").
			Immutable(),
		field.String("similar_canonical_id").
			Optional().
			Nillable().
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the OrchestratorDecision.
func (OrchestratorDecision) Edges() []ent.Edge {
	return nil
}

// Indexes of the OrchestratorDecision.
func (OrchestratorDecision) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("conversation_id", "created_at"),
		index.Fields("agent_id", "path"),
	}
}
