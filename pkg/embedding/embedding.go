// Package embedding batches text embedding calls through pkg/llm and caches
// results by content hash so identical text is never embedded twice, across
// agents and across ingestion and inference call sites.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/relaysocial/orchestrator/ent"
	"github.com/relaysocial/orchestrator/ent/embeddingcacheentry"
	"github.com/relaysocial/orchestrator/pkg/llm"
)

// Service embeds text with a content-hash cache in front of the provider call.
type Service struct {
	llm llm.Client
	db  *ent.Client
}

// New builds a Service backed by the given chat/embedding client and ent client.
func New(llmClient llm.Client, db *ent.Client) *Service {
	return &Service{llm: llmClient, db: db}
}

// Embed returns one embedding vector per input text, in the same order,
// reusing cached vectors for any text whose (hash, model) pair was already
// embedded and calling the provider only for the remainder.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := s.llm.EmbeddingModel()
	hashes := make([]string, len(texts))
	for i, t := range texts {
		hashes[i] = ContentHash(t)
	}

	cached, err := s.db.EmbeddingCacheEntry.Query().
		Where(
			embeddingcacheentry.ModelEQ(model),
			embeddingcacheentry.ContentHashIn(hashes...),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("embedding: query cache: %w", err)
	}
	byHash := make(map[string][]float32, len(cached))
	for _, entry := range cached {
		byHash[entry.ContentHash] = entry.Vector
	}

	vectors := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, h := range hashes {
		if v, ok := byHash[h]; ok {
			vectors[i] = v
		} else {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := s.llm.Embed(ctx, missTexts)
	if err != nil {
		return nil, fmt.Errorf("embedding: provider call: %w", err)
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embedding: provider returned %d vectors for %d inputs", len(fresh), len(missTexts))
	}

	bulk := make([]*ent.EmbeddingCacheEntryCreate, 0, len(fresh))
	for i, idx := range missIdx {
		vectors[idx] = fresh[i]
		bulk = append(bulk, s.db.EmbeddingCacheEntry.Create().
			SetID(uuid.NewString()).
			SetContentHash(hashes[idx]).
			SetModel(model).
			SetDim(len(fresh[i])).
			SetVector(fresh[i]))
	}

	// Two callers can race to embed the same never-before-seen text; the
	// unique (content_hash, model) index makes the losing insert a no-op
	// conflict rather than a duplicate row.
	err = s.db.EmbeddingCacheEntry.CreateBulk(bulk...).
		OnConflict(sql.ConflictColumns(embeddingcacheentry.FieldContentHash, embeddingcacheentry.FieldModel)).
		DoNothing().
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("embedding: write cache: %w", err)
	}

	return vectors, nil
}

// ContentHash returns the hex-encoded SHA-256 digest of text, used both as
// the embedding cache key and as Document.content_hash for ingest dedup.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
