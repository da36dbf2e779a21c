package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ConversationSummary holds the schema definition for the ConversationSummary
// entity. Rolling summary of a conversation's older history, regenerated by
// the context composer once message_count_at_creation falls too far behind
// the conversation's current message count, to keep prompt context bounded.
type ConversationSummary struct {
	ent.Schema
}

// Fields of the ConversationSummary.
func (ConversationSummary) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("summary_id").
			Unique().
			Immutable(),
		field.String("conversation_id").
			Immutable(),
		field.Text("content"),
		field.Int("message_count_at_creation").
			Immutable().
			NonNegative(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the ConversationSummary.
func (ConversationSummary) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("conversation", DirectConversation.Type).
			Ref("summaries").
			Field("conversation_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ConversationSummary.
func (ConversationSummary) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("conversation_id", "created_at"),
	}
}
