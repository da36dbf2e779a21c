// Package ingest implements the chunker/ingester: splits raw
// text into overlapping, sentence-aware chunks, embeds each one, and
// persists a Document plus its DocumentChunks. Deduplicates by content hash
// per agent so re-ingesting the same source is a no-op.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/relaysocial/orchestrator/ent"
	"github.com/relaysocial/orchestrator/ent/document"
	"github.com/relaysocial/orchestrator/ent/documentchunk"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/database"
	"github.com/relaysocial/orchestrator/pkg/embedding"
	"github.com/relaysocial/orchestrator/pkg/vectorstore"
)

// Target chunk sizes, in whitespace-delimited tokens — approximately 800
// tokens with a 100-token overlap, without pulling in a real tokenizer
// (see DESIGN.md).
const (
	targetChunkTokens  = 800
	chunkOverlapTokens = 100
)

// Service ingests documents for an agent's knowledge base.
type Service struct {
	db        *database.Client
	embedding *embedding.Service
	vector    vectorstore.Store
}

// New builds an ingest Service.
func New(db *database.Client, emb *embedding.Service, vector vectorstore.Store) *Service {
	return &Service{db: db, embedding: emb, vector: vector}
}

// Result summarizes a completed ingestion.
type Result struct {
	DocumentID string
	ChunkCount int
}

// Ingest splits content into chunks, embeds them, and persists a Document
// and its chunks. If a document with the same (agent, content hash) already
// exists, its id is returned without re-ingesting (idempotent
// re-ingestion). Chunking failures are soft per-chunk: the document is
// considered ingested as long as at least one chunk succeeds.
func (s *Service) Ingest(ctx context.Context, agentID string, layer config.Layer, content, source string) (*Result, error) {
	hash := embedding.ContentHash(content)

	existing, err := s.db.Document.Query().
		Where(document.OwnerAgentIDEQ(agentID), document.ContentHashEQ(hash)).
		First(ctx)
	if err == nil {
		count, err := s.db.DocumentChunk.Query().
			Where(documentchunk.DocumentIDEQ(existing.ID)).
			Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("ingest: count existing chunks: %w", err)
		}
		return &Result{DocumentID: existing.ID, ChunkCount: count}, nil
	}
	if !ent.IsNotFound(err) {
		return nil, fmt.Errorf("ingest: check existing document: %w", err)
	}

	chunks := Split(content, targetChunkTokens, chunkOverlapTokens)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("ingest: no chunks produced from content")
	}

	vectors, embedErr := s.embedding.Embed(ctx, chunks)
	if embedErr != nil {
		return nil, fmt.Errorf("ingest: embed chunks: %w", embedErr)
	}

	doc, err := s.db.Document.Create().
		SetID(uuid.NewString()).
		SetOwnerAgentID(agentID).
		SetLayer(document.Layer(layer)).
		SetContent(content).
		SetSource(source).
		SetContentHash(hash).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: create document: %w", err)
	}

	records := make([]vectorstore.Record, 0, len(chunks))
	saved := 0
	for i, chunkText := range chunks {
		if vectors[i] == nil {
			slog.Warn("ingest: skipping chunk with no embedding", "document_id", doc.ID, "ordinal", i)
			continue
		}
		chunk, err := s.db.DocumentChunk.Create().
			SetID(uuid.NewString()).
			SetDocumentID(doc.ID).
			SetAgentID(agentID).
			SetOrdinal(saved).
			SetContent(chunkText).
			SetLayer(documentchunk.Layer(layer)).
			SetEmbedding(pgvector.NewVector(vectors[i])).
			Save(ctx)
		if err != nil {
			slog.Warn("ingest: failed to persist chunk, skipping", "document_id", doc.ID, "ordinal", i, "error", err)
			continue
		}
		records = append(records, vectorstore.Record{
			ID:       chunk.ID,
			AgentID:  agentID,
			Layer:    string(layer),
			Content:  chunkText,
			Vector:   vectors[i],
			Metadata: map[string]string{"document_id": doc.ID},
		})
		saved++
	}

	if saved == 0 {
		return nil, fmt.Errorf("ingest: every chunk failed to persist")
	}

	if err := s.vector.Upsert(ctx, vectorstore.CollectionDocumentChunks, records); err != nil {
		return nil, fmt.Errorf("ingest: index chunks: %w", err)
	}

	return &Result{DocumentID: doc.ID, ChunkCount: saved}, nil
}

// Split breaks text into overlapping chunks of approximately targetTokens
// whitespace-delimited tokens, preferring to break at sentence boundaries.
// The returned chunks are ordered; ordinal assignment is the caller's job.
func Split(text string, targetTokens, overlapTokens int) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.TrimSpace(strings.Join(current, " ")))
	}

	for _, sentence := range sentences {
		sentTokens := countTokens(sentence)

		if currentTokens > 0 && currentTokens+sentTokens > targetTokens {
			flush()
			current = overlapTail(current, overlapTokens)
			currentTokens = countTokens(strings.Join(current, " "))
		}

		current = append(current, sentence)
		currentTokens += sentTokens
	}
	flush()

	return chunks
}

// overlapTail returns the trailing sentences of prev whose combined token
// count is closest to, without exceeding, overlapTokens — the seed for the
// next chunk so consecutive chunks share context. The last sentence is always
// kept, even when it alone exceeds overlapTokens.
func overlapTail(prev []string, overlapTokens int) []string {
	if overlapTokens <= 0 || len(prev) == 0 {
		return nil
	}
	var tail []string
	tokens := 0
	for i := len(prev) - 1; i >= 0; i-- {
		t := countTokens(prev[i])
		if tokens+t > overlapTokens && len(tail) > 0 {
			break
		}
		tail = append([]string{prev[i]}, tail...)
		tokens += t
	}
	return tail
}

func countTokens(s string) int {
	return len(strings.Fields(s))
}

// splitSentences segments text on sentence-ending punctuation followed by
// whitespace. Paragraph breaks are not boundaries: text with no terminal
// punctuation (e.g. bullet lists) comes back as a single sentence. Pure
// stdlib unicode segmentation — no suitable sentence-splitting dependency
// was available (see DESIGN.md justification).
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	var b strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			nextIsBoundary := i+1 >= len(runes) || unicode.IsSpace(runes[i+1])
			if nextIsBoundary {
				sentences = append(sentences, strings.TrimSpace(b.String()))
				b.Reset()
			}
		}
	}
	if b.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(b.String()))
	}

	out := sentences[:0]
	for _, s := range sentences {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
