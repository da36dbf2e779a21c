package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Event is the append-only log backing WebSocket catchup: every persistent
// event published through pkg/events is written here first, then broadcast
// via pg_notify in the same transaction. Clients reconnecting with a
// last_event_id query this table for anything they missed.
//
// Uses the default int auto-increment id (unlike the domain entities, which
// use string ids) because catchup ordering depends on a monotonic sequence,
// not a generated identifier.
type Event struct {
	ent.Schema
}

// Fields of the Event.
func (Event) Fields() []ent.Field {
	return []ent.Field{
		field.String("agent_id").
			Immutable(),
		field.String("channel").
			Immutable(),
		field.JSON("payload", map[string]interface{}{}).
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Event.
func (Event) Edges() []ent.Edge {
	return nil
}

// Indexes of the Event.
func (Event) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("channel", "id"),
		index.Fields("agent_id", "created_at"),
	}
}
