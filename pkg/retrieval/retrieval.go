// Package retrieval implements hybrid knowledge retrieval: vector search
// over an agent's document chunks restricted to the caller's
// allowed layers, followed by a cross-encoder-style rerank. A pure function
// of the index snapshot and reranker weights — no side effects.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/embedding"
	"github.com/relaysocial/orchestrator/pkg/llm"
	"github.com/relaysocial/orchestrator/pkg/vectorstore"
)

// KCandidate is the ANN search breadth before reranking, exported so
// pkg/signals can normalize retrieval_support against the same breadth
// this package actually requested.
const KCandidate = 20

// ErrRetrievalUnavailable is returned when the ANN search or embed call
// fails; callers degrade to composing a prompt with no RAG context.
var ErrRetrievalUnavailable = fmt.Errorf("retrieval: unavailable")

// Hit is a single retrieved, reranked chunk.
type Hit struct {
	ChunkID    string
	DocumentID string
	Content    string
	Layer      config.Layer
	Score      float64 // rerank score in [0,1]; vector score if rerank degraded
}

// Result is the output of Retrieve: the final hits plus the raw candidate
// cosine scores, which pkg/signals uses to derive retrieval_support.
type Result struct {
	Hits            []Hit
	CandidateScores []float64
}

// Service performs hybrid retrieval for a single agent/query.
type Service struct {
	embedding *embedding.Service
	vector    vectorstore.Store
	llm       llm.Client
}

// New builds a retrieval Service.
func New(emb *embedding.Service, vector vectorstore.Store, llmClient llm.Client) *Service {
	return &Service{embedding: emb, vector: vector, llm: llmClient}
}

// Retrieve runs the full C3 pipeline: embed the query, ANN-search chunks
// restricted to agentID and allowedLayers, rerank, and return the top
// kFinal hits. allowedLayers is determined by the caller (config.AllowedLayersFor).
func (s *Service) Retrieve(ctx context.Context, agentID, queryText string, allowedLayers []config.Layer, kFinal int) (*Result, error) {
	vectors, err := s.embedding.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrRetrievalUnavailable, err)
	}

	layerStrs := make([]string, len(allowedLayers))
	for i, l := range allowedLayers {
		layerStrs[i] = string(l)
	}

	matches, err := s.vector.Search(ctx, vectorstore.CollectionDocumentChunks, vectorstore.Query{
		Vector:  vectors[0],
		AgentID: agentID,
		Layers:  layerStrs,
		TopK:    KCandidate,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ann search: %v", ErrRetrievalUnavailable, err)
	}

	scores := make([]float64, len(matches))
	for i, m := range matches {
		scores[i] = m.Score
	}

	if len(matches) == 0 {
		return &Result{CandidateScores: scores}, nil
	}

	ranked, err := s.rerank(ctx, queryText, matches)
	if err != nil {
		// Reranker failure degrades to raw vector order, not a hard failure
		// of retrieval itself.
		ranked = matches
	}

	if kFinal > len(ranked) {
		kFinal = len(ranked)
	}

	hits := make([]Hit, 0, kFinal)
	for _, m := range ranked[:kFinal] {
		hits = append(hits, Hit{
			ChunkID:    m.Record.ID,
			DocumentID: m.Record.Metadata["document_id"],
			Content:    m.Record.Content,
			Layer:      config.Layer(m.Record.Layer),
			Score:      m.Score,
		})
	}

	return &Result{Hits: hits, CandidateScores: scores}, nil
}

// rerankScore is the shape the LLM judge returns for one candidate.
type rerankScore struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// rerank scores every candidate against the query with a single LLM call,
// a cross-encoder substitute, then sorts descending by score. Candidates
// are presented in a deterministic, stable order so the rerank is
// reproducible for a fixed index snapshot.
func (s *Service) rerank(ctx context.Context, query string, candidates []vectorstore.Match) ([]vectorstore.Match, error) {
	var b strings.Builder
	b.WriteString("Score how well each candidate passage answers the query, on a 0.0-1.0 scale.\n")
	b.WriteString("Query: " + query + "\n\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "Candidate %d: %s\n", i, c.Record.Content)
	}
	b.WriteString("\nRespond with a JSON array of {\"index\": <int>, \"score\": <float>} objects, one per candidate, nothing else.")

	ch, err := s.llm.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a precise relevance-scoring judge. Respond with JSON only."},
			{Role: llm.RoleUser, Content: b.String()},
		},
		Temperature: 0,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank: chat call: %w", err)
	}

	var raw strings.Builder
	for chunk := range ch {
		if text, ok := chunk.(*llm.TextChunk); ok {
			raw.WriteString(text.Content)
		}
		if errChunk, ok := chunk.(*llm.ErrorChunk); ok {
			return nil, fmt.Errorf("rerank: %s", errChunk.Message)
		}
	}

	var scores []rerankScore
	if err := json.Unmarshal([]byte(extractJSONArray(raw.String())), &scores); err != nil {
		return nil, fmt.Errorf("rerank: parse judge response: %w", err)
	}

	scoreByIndex := make(map[int]float64, len(scores))
	for _, s := range scores {
		scoreByIndex[s.Index] = s.Score
	}

	ranked := make([]vectorstore.Match, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		if score, ok := scoreByIndex[i]; ok {
			ranked[i].Score = score
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked, nil
}

// extractJSONArray trims any leading/trailing prose a chat model adds around
// the JSON array it was asked to return verbatim.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return "[]"
	}
	return s[start : end+1]
}
