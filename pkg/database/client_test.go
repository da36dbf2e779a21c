package database

import (
	"context"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/pgvector/pgvector-go"
	"github.com/relaysocial/orchestrator/ent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestClient creates a test database client backed by a throwaway pgvector container
func newTestClient(t *testing.T) *Client {
	ctx := context.Background()

	// pgvector/pgvector ships the postgres server plus the vector extension
	// preinstalled; plain postgres:16-alpine has no CREATE EXTENSION vector.
	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	// Get connection string
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Open connection with driver
	drv, err := sql.Open(dialect.Postgres, connStr)
	require.NoError(t, err)

	// Configure connection pool for tests
	db := drv.DB()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	_, err = db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	require.NoError(t, err)

	// Create Ent client
	entClient := ent.NewClient(ent.Driver(drv))

	// Run migrations (auto-migration for tests)
	err = entClient.Schema.Create(ctx)
	require.NoError(t, err)

	// Create HNSW vector indexes
	err = CreateVectorIndexes(ctx, drv)
	require.NoError(t, err)

	// Wrap in our client type
	client := NewClientFromEnt(entClient, db)

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func TestDatabaseClient_ConnectionPool(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	// Test basic connectivity
	err := client.DB().PingContext(ctx)
	require.NoError(t, err)

	// Test health check
	health, err := Health(ctx, client.DB())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Greater(t, health.MaxOpenConns, 0)
}

func TestVectorSimilaritySearch(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	profile, err := client.Profile.Create().
		SetID("profile-1").
		SetHandle("alice").
		SetDisplayName("Alice").
		Save(ctx)
	require.NoError(t, err)

	agent, err := client.Agent.Create().
		SetID("agent-1").
		SetOwnerProfileID(profile.ID).
		SetHandle("alice-bot").
		SetDisplayName("Alice Bot").
		SetPersona("friendly assistant").
		Save(ctx)
	require.NoError(t, err)

	doc, err := client.Document.Create().
		SetID("doc-1").
		SetOwnerAgentID(agent.ID).
		SetLayer("public").
		SetContent("favorite color is blue").
		SetSource("upload").
		SetContentHash("hash-1").
		Save(ctx)
	require.NoError(t, err)

	near := make([]float32, 1536)
	far := make([]float32, 1536)
	near[0] = 1.0
	far[1] = 1.0

	_, err = client.DocumentChunk.Create().
		SetID("chunk-1").
		SetDocumentID(doc.ID).
		SetOrdinal(0).
		SetContent("favorite color is blue").
		SetEmbedding(pgvector.NewVector(near)).
		SetLayer("public").
		Save(ctx)
	require.NoError(t, err)

	_, err = client.DocumentChunk.Create().
		SetID("chunk-2").
		SetDocumentID(doc.ID).
		SetOrdinal(1).
		SetContent("unrelated trivia").
		SetEmbedding(pgvector.NewVector(far)).
		SetLayer("public").
		Save(ctx)
	require.NoError(t, err)

	query := pgvector.NewVector(near)
	rows, err := client.DB().QueryContext(ctx,
		`SELECT chunk_id FROM document_chunks ORDER BY embedding <=> $1 LIMIT 1`,
		query,
	)
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var chunkID string
	require.NoError(t, rows.Scan(&chunkID))
	assert.Equal(t, "chunk-1", chunkID)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Host:         "localhost",
				Port:         5432,
				User:         "test",
				Password:     "test",
				Database:     "test",
				SSLMode:      "disable",
				MaxOpenConns: 10,
				MaxIdleConns: 5,
			},
			wantErr: false,
		},
		{
			name: "missing password",
			cfg: Config{
				Host:         "localhost",
				Port:         5432,
				User:         "test",
				Password:     "",
				Database:     "test",
				MaxOpenConns: 10,
				MaxIdleConns: 5,
			},
			wantErr: true,
		},
		{
			name: "idle conns exceed max conns",
			cfg: Config{
				Host:         "localhost",
				Port:         5432,
				User:         "test",
				Password:     "test",
				Database:     "test",
				MaxOpenConns: 5,
				MaxIdleConns: 10,
			},
			wantErr: true,
		},
		{
			name: "zero max open conns",
			cfg: Config{
				Host:         "localhost",
				Port:         5432,
				User:         "test",
				Password:     "test",
				Database:     "test",
				MaxOpenConns: 0,
				MaxIdleConns: 0,
			},
			wantErr: true,
		},
		{
			name: "negative idle conns",
			cfg: Config{
				Host:         "localhost",
				Port:         5432,
				User:         "test",
				Password:     "test",
				Database:     "test",
				MaxOpenConns: 10,
				MaxIdleConns: -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
