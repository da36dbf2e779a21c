package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Escalation holds the schema definition for the escalation queue entity.
// State machine: pending -> accepted -> answered; pending or accepted ->
// declined or expired. Terminal states are answered, declined, expired.
type Escalation struct {
	ent.Schema
}

// Fields of the Escalation.
func (Escalation) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("escalation_id").
			Unique().
			Immutable(),
		field.String("conversation_id").
			Immutable(),
		field.String("user_id").
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.Text("original_message").
			Immutable(),
		field.Text("context_summary").
			Immutable(),
		field.Enum("reason").
			Values("novel", "strategic", "complex").
			Immutable(),
		field.Enum("status").
			Values("pending", "accepted", "answered", "declined", "expired").
			Default("pending"),
		field.Time("offered_at").
			Default(time.Now).
			Immutable(),
		field.Time("accepted_at").
			Optional().
			Nillable(),
		field.Time("answered_at").
			Optional().
			Nillable(),
		field.Text("creator_answer").
			Optional(),
		field.Enum("answer_layer").
			Values("public", "friends", "intimate").
			Optional().
			Nillable(),
	}
}

// Edges of the Escalation.
func (Escalation) Edges() []ent.Edge {
	return nil
}

// Indexes of the Escalation.
func (Escalation) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id", "status"),
		index.Fields("user_id", "offered_at"),
		index.Fields("conversation_id"),
	}
}
