package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"sync"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"github.com/relaysocial/orchestrator/pkg/config"
)

// qdrantStore implements Store against a Qdrant cluster, one collection per
// vectorstore.Collection, lazily created on first write with the embedding
// dimension observed from that write. The Go client talks to Qdrant's gRPC
// API, which runs on port 6334 by default.
type qdrantStore struct {
	client             *qdrantclient.Client
	collectionBaseName string
	initialized        sync.Map // collection name -> dimension (int)
}

func newQdrantStore(cfg config.VectorConfig) (*qdrantStore, error) {
	parsed, err := url.Parse(cfg.QdrantURL)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: parse qdrant url: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	portStr := parsed.Port()
	if portStr == "" {
		portStr = "6334"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: invalid qdrant port: %w", err)
	}

	qcfg := &qdrantclient.Config{Host: host, Port: port}
	if parsed.Scheme == "https" {
		qcfg.UseTLS = true
	}
	if cfg.QdrantAPIKeyEnv != "" {
		qcfg.APIKey = os.Getenv(cfg.QdrantAPIKeyEnv)
	}

	client, err := qdrantclient.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: connect qdrant: %w", err)
	}
	return &qdrantStore{
		client:             client,
		collectionBaseName: cfg.QdrantCollection,
	}, nil
}

func (s *qdrantStore) collectionName(c Collection) string {
	return fmt.Sprintf("%s_%s", s.collectionBaseName, c)
}

func (s *qdrantStore) ensureCollection(ctx context.Context, c Collection, dim int) error {
	name := s.collectionName(c)
	if _, ok := s.initialized.Load(name); ok {
		return nil
	}
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("vectorstore: check qdrant collection %s: %w", name, err)
	}
	if !exists {
		if dim <= 0 {
			return fmt.Errorf("vectorstore: qdrant collection %s requires dimensions > 0", name)
		}
		err = s.client.CreateCollection(ctx, &qdrantclient.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrantclient.NewVectorsConfig(&qdrantclient.VectorParams{
				Size:     uint64(dim),
				Distance: qdrantclient.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("vectorstore: create qdrant collection %s: %w", name, err)
		}
	}
	s.initialized.Store(name, dim)
	return nil
}

func (s *qdrantStore) Upsert(ctx context.Context, collection Collection, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, collection, len(records[0].Vector)); err != nil {
		return err
	}

	points := make([]*qdrantclient.PointStruct, 0, len(records))
	for _, r := range records {
		payload := map[string]any{
			"agent_id": r.AgentID,
			"layer":    r.Layer,
			"content":  r.Content,
		}
		for k, v := range r.Metadata {
			payload[k] = v
		}
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		points = append(points, &qdrantclient.PointStruct{
			Id:      qdrantclient.NewIDUUID(r.ID),
			Vectors: qdrantclient.NewVectorsDense(vec),
			Payload: qdrantclient.NewValueMap(payload),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: s.collectionName(collection),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("vectorstore: upsert qdrant %s: %w", collection, err)
	}
	return nil
}

func (s *qdrantStore) Search(ctx context.Context, collection Collection, q Query) ([]Match, error) {
	if q.TopK <= 0 {
		q.TopK = 10
	}
	name := s.collectionName(collection)
	if _, ok := s.initialized.Load(name); !ok {
		exists, err := s.client.CollectionExists(ctx, name)
		if err != nil || !exists {
			return nil, nil
		}
	}

	var filter *qdrantclient.Filter
	var must []*qdrantclient.Condition
	if q.AgentID != "" {
		must = append(must, qdrantclient.NewMatch("agent_id", q.AgentID))
	}
	if len(q.Layers) > 0 {
		// Qdrant's Match condition is single-valued; an OR over layers is
		// expressed as a Should group nested inside the Must clause.
		should := make([]*qdrantclient.Condition, len(q.Layers))
		for i, layer := range q.Layers {
			should[i] = qdrantclient.NewMatch("layer", layer)
		}
		must = append(must, &qdrantclient.Condition{
			ConditionOneOf: &qdrantclient.Condition_Filter{
				Filter: &qdrantclient.Filter{Should: should},
			},
		})
	}
	if len(must) > 0 {
		filter = &qdrantclient.Filter{Must: must}
	}

	vec := make([]float32, len(q.Vector))
	copy(vec, q.Vector)
	limit := uint64(q.TopK)
	resp, err := s.client.Query(ctx, &qdrantclient.QueryPoints{
		CollectionName: name,
		Query:          qdrantclient.NewQueryDense(vec),
		Filter:         filter,
		Limit:          &limit,
		WithPayload:    qdrantclient.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: query qdrant %s: %w", collection, err)
	}

	matches := make([]Match, 0, len(resp))
	for _, hit := range resp {
		m := Match{Score: float64(hit.Score)}
		m.ID = hit.Id.GetUuid()
		if hit.Payload != nil {
			if v, ok := hit.Payload["content"]; ok {
				m.Content = v.GetStringValue()
			}
			if v, ok := hit.Payload["agent_id"]; ok {
				m.AgentID = v.GetStringValue()
			}
			if v, ok := hit.Payload["layer"]; ok {
				m.Layer = v.GetStringValue()
			}
			if v, ok := hit.Payload["document_id"]; ok {
				m.Metadata = map[string]string{"document_id": v.GetStringValue()}
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *qdrantStore) Delete(ctx context.Context, collection Collection, ids []string) error {
	pointIDs := make([]*qdrantclient.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrantclient.NewIDUUID(id)
	}
	_, err := s.client.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: s.collectionName(collection),
		Points:         qdrantclient.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("vectorstore: delete qdrant %s: %w", collection, err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (s *qdrantStore) Close() error {
	return s.client.Close()
}
