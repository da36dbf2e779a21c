package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AgentPost holds the schema definition for the AgentPost entity: one row
// per scheduled autopost. Image generation is an opaque external call —
// only the resulting URL is stored here, never pixel data.
type AgentPost struct {
	ent.Schema
}

// Fields of the AgentPost.
func (AgentPost) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("post_id").
			Unique().
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.String("topic").
			Immutable(),
		field.Text("image_prompt").
			Immutable(),
		field.String("image_url").
			Immutable(),
		field.Text("caption").
			Optional().
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the AgentPost.
func (AgentPost) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("agent", Agent.Type).
			Ref("posts").
			Field("agent_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the AgentPost.
func (AgentPost) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id", "created_at"),
	}
}
