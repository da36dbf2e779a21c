package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"
)

// pgvectorStore implements Store directly against the tables ent created for
// document_chunks, agent_memories and canonical_answers, using the pgvector
// "<=>" cosine-distance operator backed by the HNSW indexes from
// pkg/database.CreateVectorIndexes.
type pgvectorStore struct {
	db *sql.DB
}

func newPgvectorStore(db *sql.DB) *pgvectorStore {
	return &pgvectorStore{db: db}
}

type tableSpec struct {
	table     string
	idColumn  string
	agentCol  string
	layerCol  string
	textCol   string
	vectorCol string
	// extraCols are additional columns selected alongside id/text/score and
	// surfaced to callers via Match.Record.Metadata, keyed by column name.
	extraCols []string
}

func specFor(c Collection) (tableSpec, error) {
	switch c {
	case CollectionDocumentChunks:
		return tableSpec{
			table: "document_chunks", idColumn: "chunk_id", agentCol: "agent_id",
			layerCol: "layer", textCol: "content", vectorCol: "embedding",
			extraCols: []string{"document_id"},
		}, nil
	case CollectionAgentMemories:
		return tableSpec{
			table: "agent_memories", idColumn: "memory_id", agentCol: "agent_id",
			textCol: "content", vectorCol: "embedding",
		}, nil
	case CollectionCanonicalAnswers:
		return tableSpec{
			table: "canonical_answers", idColumn: "canonical_answer_id", agentCol: "agent_id",
			layerCol: "layer", textCol: "question_pattern", vectorCol: "embedding",
		}, nil
	default:
		return tableSpec{}, fmt.Errorf("vectorstore: unknown collection %q", c)
	}
}

// Upsert is a no-op for pgvector: embeddings are written by the owning
// service (pkg/ingest, pkg/memory, pkg/canonical) as part of the same
// transaction that creates the row, via the generated ent client. Callers
// call Upsert unconditionally after that write; for this backend there is
// nothing left to do.
func (s *pgvectorStore) Upsert(ctx context.Context, collection Collection, records []Record) error {
	return nil
}

func (s *pgvectorStore) Search(ctx context.Context, collection Collection, q Query) ([]Match, error) {
	spec, err := specFor(collection)
	if err != nil {
		return nil, err
	}
	if q.TopK <= 0 {
		q.TopK = 10
	}

	selectCols := []string{spec.idColumn, spec.textCol}
	if spec.agentCol != "" {
		selectCols = append(selectCols, spec.agentCol)
	}
	selectCols = append(selectCols, spec.extraCols...)

	var b strings.Builder
	args := []any{pgvector.NewVector(q.Vector)}
	fmt.Fprintf(&b, "SELECT %s, 1 - (%s <=> $1) AS score FROM %s",
		strings.Join(selectCols, ", "), spec.vectorCol, spec.table)

	var where []string
	if spec.agentCol != "" && q.AgentID != "" {
		args = append(args, q.AgentID)
		where = append(where, fmt.Sprintf("%s = $%d", spec.agentCol, len(args)))
	}
	if spec.layerCol != "" && len(q.Layers) > 0 {
		placeholders := make([]string, len(q.Layers))
		for i, layer := range q.Layers {
			args = append(args, layer)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		where = append(where, fmt.Sprintf("%s IN (%s)", spec.layerCol, strings.Join(placeholders, ", ")))
	}
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY %s <=> $1 LIMIT %d", spec.vectorCol, q.TopK)

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search %s: %w", collection, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		dest := []any{&m.ID, &m.Content}
		var agentID string
		if spec.agentCol != "" {
			dest = append(dest, &agentID)
		}
		extraVals := make([]string, len(spec.extraCols))
		for i := range extraVals {
			dest = append(dest, &extraVals[i])
		}
		dest = append(dest, &m.Score)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("vectorstore: scan %s: %w", collection, err)
		}
		m.AgentID = agentID
		if len(spec.extraCols) > 0 {
			m.Metadata = make(map[string]string, len(spec.extraCols))
			for i, col := range spec.extraCols {
				m.Metadata[col] = extraVals[i]
			}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Delete is likewise a no-op: row deletion for these tables cascades from
// their owning entities (Document, Agent) and is performed through ent.
func (s *pgvectorStore) Delete(ctx context.Context, collection Collection, ids []string) error {
	return nil
}
