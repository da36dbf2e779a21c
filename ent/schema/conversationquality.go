package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ConversationQuality holds the schema definition for the ConversationQuality
// entity. One row per scored message, written asynchronously by the quality
// logger after the message is sent.
type ConversationQuality struct {
	ent.Schema
}

// Fields of the ConversationQuality.
func (ConversationQuality) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("quality_id").
			Unique().
			Immutable(),
		field.String("message_id").
			Unique().
			Immutable(),
		field.Float("relevance").
			Immutable(),
		field.Float("engagement").
			Immutable(),
		field.Float("factual_grounding").
			Immutable(),
		field.JSON("topics", []string{}).
			Optional().
			Immutable().
			Comment("3-5 extracted topics"),
		field.JSON("issues", []string{}).
			Optional().
			Immutable(),
		field.JSON("suggestions", []string{}).
			Optional().
			Immutable().
			Comment("3 suggested follow-up questions"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the ConversationQuality.
func (ConversationQuality) Edges() []ent.Edge {
	return nil
}

// Indexes of the ConversationQuality.
func (ConversationQuality) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("message_id").
			Unique(),
	}
}
