package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// DirectConversation holds the schema definition for the DirectConversation entity.
// participant1_id/participant2_id are always stored in canonical (lexicographically
// sorted) order by the conversation service before insert — ent/SQL cannot express
// "min/max of two columns" as a constraint, so the uniqueness index below only holds
// if every writer goes through that canonicalization step.
type DirectConversation struct {
	ent.Schema
}

// Fields of the DirectConversation.
func (DirectConversation) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("conversation_id").
			Unique().
			Immutable(),
		field.String("participant1_id").
			Immutable(),
		field.String("participant2_id").
			Immutable(),
		field.Enum("chat_type").
			Values("profile", "agent").
			Immutable(),
		field.String("target_agent_id").
			Optional().
			Nillable().
			Immutable().
			Comment("required iff chat_type == agent; identifies which persona is speaking"),
		field.Time("last_message_at").
			Default(time.Now),
		field.String("last_message_preview").
			Optional(),
		field.String("title").
			Optional().
			Nillable().
			Comment("synthesized by the quality logger after >= 4 exchanges; absent before then"),
		field.Time("deleted_at").
			Optional().
			Nillable().
			Comment("set when both participants have deleted the conversation; soft-retained until RetentionConfig.ConversationRetentionDays elapses"),
	}
}

// Edges of the DirectConversation.
func (DirectConversation) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("messages", DirectMessage.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("summaries", ConversationSummary.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the DirectConversation.
func (DirectConversation) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("participant1_id", "participant2_id", "chat_type", "target_agent_id").
			Unique(),
		index.Fields("participant1_id"),
		index.Fields("participant2_id"),
		index.Fields("deleted_at"),
	}
}
