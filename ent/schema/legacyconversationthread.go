package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// LegacyConversationThread holds the schema definition for the
// LegacyConversationThread entity: a frozen predecessor of DirectConversation
// from before per-message rows existed. Read-only — nothing in this module
// ever writes to it; it exists so the conversation list's batched-read path
// has a second table to union with the live one.
type LegacyConversationThread struct {
	ent.Schema
}

// Fields of the LegacyConversationThread.
func (LegacyConversationThread) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("legacy_thread_id").
			Unique().
			Immutable(),
		field.String("participant1_id").
			Immutable(),
		field.String("participant2_id").
			Immutable(),
		field.String("last_message_preview").
			Optional(),
		field.Time("last_message_at"),
		field.Int("unread_count_cached").
			Default(0).
			Comment("frozen at migration time; this table predates live aggregation"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the LegacyConversationThread.
func (LegacyConversationThread) Edges() []ent.Edge {
	return nil
}

// Indexes of the LegacyConversationThread.
func (LegacyConversationThread) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("participant1_id"),
		index.Fields("participant2_id"),
	}
}
