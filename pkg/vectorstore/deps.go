package vectorstore

import "database/sql"

// Deps carries the backend handles New needs. Only the field matching the
// configured backend must be set.
type Deps struct {
	PostgresDB *sql.DB
}
