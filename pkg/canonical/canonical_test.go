package canonical

import (
	"context"
	"testing"

	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVectorStore struct {
	searchResult []vectorstore.Match
	searchErr    error
	upserted     []vectorstore.Record
}

func (f *fakeVectorStore) Upsert(ctx context.Context, collection vectorstore.Collection, records []vectorstore.Record) error {
	f.upserted = append(f.upserted, records...)
	return nil
}

func (f *fakeVectorStore) Search(ctx context.Context, collection vectorstore.Collection, q vectorstore.Query) ([]vectorstore.Match, error) {
	return f.searchResult, f.searchErr
}

func (f *fakeVectorStore) Delete(ctx context.Context, collection vectorstore.Collection, ids []string) error {
	return nil
}

func TestLookupReturnsNilWhenNoMatches(t *testing.T) {
	fv := &fakeVectorStore{}
	s := New(nil, fv)

	m, err := s.Lookup(context.Background(), "agent_1", []float32{0.1, 0.2}, []config.Layer{config.LayerPublic})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestLookupReturnsBestMatch(t *testing.T) {
	fv := &fakeVectorStore{
		searchResult: []vectorstore.Match{
			{Record: vectorstore.Record{ID: "ca_1", Content: "blue", Layer: "public"}, Score: 0.92},
		},
	}
	s := New(nil, fv)

	m, err := s.Lookup(context.Background(), "agent_1", []float32{0.1, 0.2}, []config.Layer{config.LayerPublic})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "ca_1", m.ID)
	assert.Equal(t, 0.92, m.Similarity)
	assert.Equal(t, config.LayerPublic, m.Layer)
}

func TestLayerStringsConvertsInOrder(t *testing.T) {
	out := layerStrings([]config.Layer{config.LayerPublic, config.LayerFriends})
	assert.Equal(t, []string{"public", "friends"}, out)
}
