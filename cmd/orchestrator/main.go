// Command orchestrator runs the chat orchestrator's HTTP/WebSocket API and
// its background asynq worker in a single process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/relaysocial/orchestrator/pkg/api"
	"github.com/relaysocial/orchestrator/pkg/auth"
	"github.com/relaysocial/orchestrator/pkg/autopost"
	"github.com/relaysocial/orchestrator/pkg/canonical"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/database"
	"github.com/relaysocial/orchestrator/pkg/embedding"
	"github.com/relaysocial/orchestrator/pkg/escalation"
	"github.com/relaysocial/orchestrator/pkg/events"
	"github.com/relaysocial/orchestrator/pkg/jobs"
	"github.com/relaysocial/orchestrator/pkg/llm"
	"github.com/relaysocial/orchestrator/pkg/memory"
	"github.com/relaysocial/orchestrator/pkg/messaging"
	"github.com/relaysocial/orchestrator/pkg/orchestrator"
	"github.com/relaysocial/orchestrator/pkg/quality"
	"github.com/relaysocial/orchestrator/pkg/queue"
	"github.com/relaysocial/orchestrator/pkg/ratelimit"
	"github.com/relaysocial/orchestrator/pkg/retention"
	"github.com/relaysocial/orchestrator/pkg/retrieval"
	"github.com/relaysocial/orchestrator/pkg/services"
	"github.com/relaysocial/orchestrator/pkg/streaming"
	"github.com/relaysocial/orchestrator/pkg/vectorstore"
)

// catchupWriteTimeout bounds how long the WebSocket connection manager waits
// for a single catch-up or broadcast write before giving up on that client.
const catchupWriteTimeout = 10 * time.Second

// authCacheTTL is the Redis TTL on a verified token's user_id, used
// whenever AuthConfig.CacheTTL is unset.
const authCacheTTL = 5 * time.Minute

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	httpAddr := flag.String("http-addr", getEnv("HTTP_ADDR", ":8080"), "HTTP listen address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	stats := cfg.Stats()
	slog.Info("configuration loaded", "llm_providers", stats.LLMProviders)

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("failed to load database config", "error", err)
		os.Exit(1)
	}
	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("error closing database client", "error", err)
		}
	}()
	slog.Info("connected to database")

	vector, err := vectorstore.New(*cfg.Vector, vectorstore.Deps{PostgresDB: dbClient.DB()})
	if err != nil {
		slog.Error("failed to initialize vector store", "error", err)
		os.Exit(1)
	}

	defaultProvider, err := cfg.GetLLMProvider(cfg.Defaults.LLMProvider)
	if err != nil {
		slog.Error("failed to resolve default LLM provider", "error", err)
		os.Exit(1)
	}
	llmClient, err := llm.New(defaultProvider)
	if err != nil {
		slog.Error("failed to initialize LLM client", "error", err)
		os.Exit(1)
	}

	embeddingSvc := embedding.New(llmClient, dbClient.Client)
	retrievalSvc := retrieval.New(embeddingSvc, vector, llmClient)
	canonicalStore := canonical.New(dbClient, vector)
	escalationStore := escalation.New(dbClient, canonicalStore)
	memoryExtractor := memory.New(dbClient, embeddingSvc, llmClient, vector, *cfg.Defaults)
	qualityScorer := quality.New(dbClient, llmClient)
	retentionSweeper := retention.New(dbClient, cfg.Retention)

	cacheOpt := redisOptions(cfg.Cache)
	cacheClient := redis.NewClient(cacheOpt)
	defer func() {
		if err := cacheClient.Close(); err != nil {
			slog.Error("error closing redis client", "error", err)
		}
	}()
	if err := cacheClient.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	messagingStore := messaging.New(dbClient, cacheClient)

	imageGen := autopost.NewHTTPImageGenerator(cfg.AutoPost.ImageProviderURL, cfg.AutoPost.ImageProviderAPIKeyEnv)
	autoposter := autopost.New(dbClient, llmClient, imageGen, cfg.AutoPost)

	streamingProducer := streaming.New(llmClient)

	redisOpt := jobs.RedisOptFromConfig(cfg.Cache)
	jobsClient := jobs.NewClient(redisOpt)
	defer func() {
		if err := jobsClient.Close(); err != nil {
			slog.Error("error closing jobs client", "error", err)
		}
	}()

	podID, err := os.Hostname()
	if err != nil {
		podID = "orchestrator"
	}
	queuePool := queue.NewPool(podID, cfg.Queue)
	queuePool.Start(ctx)
	defer queuePool.Stop()

	orch := orchestrator.New(
		dbClient,
		messagingStore,
		retrievalSvc,
		canonicalStore,
		escalationStore,
		embeddingSvc,
		vector,
		llmClient,
		streamingProducer,
		jobsClient,
		queuePool,
		*cfg.Defaults,
	)

	verifier := auth.NewCachingVerifier(auth.NewHTTPVerifier(cfg.Auth), cacheClient, resolveAuthCacheTTL(cfg.Auth))
	limiter := ratelimit.New(*cfg.RateLimit)

	agentSvc := services.NewAgentService(dbClient)
	escalationSvc := services.NewEscalationService(dbClient, escalationStore, embeddingSvc)
	configSvc := services.NewOrchestratorConfigService(dbClient)
	metricsSvc := services.NewMetricsService(dbClient)
	legacyViewSvc := services.NewLegacyConversationViewService(dbClient)
	eventSvc := services.NewEventService(dbClient)

	connManager := events.NewConnectionManager(events.NewEventServiceAdapter(eventSvc), catchupWriteTimeout)
	notifyListener := events.NewNotifyListener(postgresConnString(dbCfg), connManager)
	connManager.SetListener(notifyListener)
	if err := notifyListener.Start(ctx); err != nil {
		slog.Error("failed to start notify listener", "error", err)
		os.Exit(1)
	}
	defer notifyListener.Stop(context.Background())

	server := api.NewServer(
		cfg,
		dbClient,
		queuePool,
		limiter,
		verifier,
		orch,
		messagingStore,
		escalationSvc,
		agentSvc,
		configSvc,
		metricsSvc,
		legacyViewSvc,
	)
	server.SetAutoposter(autoposter)
	server.SetConnectionManager(connManager)
	if err := server.ValidateWiring(); err != nil {
		slog.Error("server wiring incomplete", "error", err)
		os.Exit(1)
	}

	jobHandlers := &jobs.Handlers{
		Memory:     memoryExtractor,
		Quality:    qualityScorer,
		Escalation: escalationStore,
		AutoPost:   autoposter,
		Retention:  retentionSweeper,
	}
	mux := jobs.NewMux(jobHandlers)
	asynqServer := asynq.NewServer(redisOpt, asynq.Config{Concurrency: cfg.Queue.WorkerCount})
	if err := asynqServer.Start(mux); err != nil {
		slog.Error("failed to start asynq worker server", "error", err)
		os.Exit(1)
	}

	scheduler, err := jobs.RegisterPeriodic(redisOpt)
	if err != nil {
		slog.Error("failed to register periodic jobs", "error", err)
		os.Exit(1)
	}
	if err := scheduler.Start(); err != nil {
		slog.Error("failed to start asynq scheduler", "error", err)
		os.Exit(1)
	}

	go func() {
		slog.Info("http server listening", "addr", *httpAddr)
		if err := server.Start(*httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during http server shutdown", "error", err)
	}

	asynqServer.Shutdown()
	scheduler.Shutdown()
	slog.Info("shutdown complete")
}

// redisOptions builds go-redis connection options from the cache config,
// resolving Password as an env var name the same way jobs.RedisOptFromConfig
// does for asynq's own connection opts.
func redisOptions(cfg *config.CacheConfig) *redis.Options {
	opt := &redis.Options{Addr: cfg.Addr, DB: cfg.DB}
	if cfg.Password != "" {
		opt.Password = os.Getenv(cfg.Password)
	}
	return opt
}

// resolveAuthCacheTTL falls back to authCacheTTL when AuthConfig.CacheTTL is
// unset (zero).
func resolveAuthCacheTTL(cfg *config.AuthConfig) time.Duration {
	if cfg.CacheTTL <= 0 {
		return authCacheTTL
	}
	return time.Duration(cfg.CacheTTL) * time.Second
}

// postgresConnString builds the pgx connection string NotifyListener's
// dedicated LISTEN connection uses, the same DSN shape database.NewClient
// builds for the pooled connection.
func postgresConnString(cfg database.Config) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)
}
