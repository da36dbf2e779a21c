package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Profile holds the schema definition for the Profile entity.
// One per real user; created at onboarding, mutated only by its owner.
type Profile struct {
	ent.Schema
}

// Fields of the Profile.
func (Profile) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("profile_id").
			Unique().
			Immutable(),
		field.String("handle").
			Unique().
			NotEmpty().
			Comment("3-20 chars, [a-z0-9_], not reserved"),
		field.String("display_name"),
		field.Text("bio").
			Optional(),
		field.String("avatar_url").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Profile.
func (Profile) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("agents", Agent.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Profile.
func (Profile) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("handle").
			Unique(),
	}
}
