package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// DirectMessage holds the schema definition for the DirectMessage entity.
// Strictly ordered by created_at within a conversation; never updated except
// for the two read_by flags.
type DirectMessage struct {
	ent.Schema
}

// Fields of the DirectMessage.
func (DirectMessage) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("message_id").
			Unique().
			Immutable(),
		field.String("conversation_id").
			Immutable(),
		field.String("sender_profile_id").
			Immutable(),
		field.Enum("sender_kind").
			Values("user", "agent", "system").
			Immutable(),
		field.String("sender_agent_id").
			Optional().
			Nillable().
			Immutable().
			Comment("set when sender_kind == agent"),
		field.Text("content").
			Immutable(),
		field.Bool("read_by_p1").
			Default(false),
		field.Bool("read_by_p2").
			Default(false),
		field.Bool("truncated").
			Default(false).
			Comment("set when a streamed response was cut short by client disconnect or upstream error"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the DirectMessage.
func (DirectMessage) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("conversation", DirectConversation.Type).
			Ref("messages").
			Field("conversation_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the DirectMessage.
func (DirectMessage) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("conversation_id", "created_at"),
	}
}
