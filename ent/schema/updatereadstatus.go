package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// UpdateReadStatus holds the schema definition for the UpdateReadStatus entity.
// Tracks which feed updates (autoposts, canonical answer reveals) a user has
// already seen; one row per (user_id, update_id) pair.
type UpdateReadStatus struct {
	ent.Schema
}

// Fields of the UpdateReadStatus.
func (UpdateReadStatus) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("read_status_id").
			Unique().
			Immutable(),
		field.String("user_id").
			Immutable(),
		field.String("update_id").
			Immutable(),
		field.Time("read_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the UpdateReadStatus.
func (UpdateReadStatus) Edges() []ent.Edge {
	return nil
}

// Indexes of the UpdateReadStatus.
func (UpdateReadStatus) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "update_id").
			Unique(),
	}
}
