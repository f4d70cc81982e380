// Command server runs the TFT strategic advisor HTTP service: match
// ingestion, statistics aggregation, retrieval indexing, and LLM-backed
// advice generation.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-tactician/infrastructure/llm"
	"github.com/ahrav/go-tactician/infrastructure/matchcache"
	"github.com/ahrav/go-tactician/infrastructure/observability"
	"github.com/ahrav/go-tactician/infrastructure/riot"
	"github.com/ahrav/go-tactician/infrastructure/server"
	"github.com/ahrav/go-tactician/infrastructure/vectorstore"
	"github.com/ahrav/go-tactician/internal/application"
	"github.com/ahrav/go-tactician/internal/logging"
	"github.com/ahrav/go-tactician/internal/ports"
)

const shutdownGrace = 10 * time.Second

func main() {
	// A missing .env is fine; the environment may be set externally.
	_ = godotenv.Load()

	log := logging.New()

	settings, err := application.LoadSettings()
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewPrometheusMetrics()

	cache, err := matchcache.Open(settings.CacheDBPath)
	if err != nil {
		log.WithError(err).Fatal("opening match cache")
	}
	defer cache.Close()

	var store ports.VectorStore = vectorstore.NewChromaStore(settings.ChromaURL)
	if err := store.Heartbeat(ctx); err != nil {
		log.WithError(err).Warn("retrieval store unreachable, using in-memory index")
		store = vectorstore.NewMemoryStore()
	}
	indexer := application.NewIndexer(store)

	source := riot.NewClient(settings.RiotAPIKey, settings.RiotRegion, settings.ProviderDelay)
	if !source.Configured() {
		log.Warn("RIOT_API_KEY not set, ingestion endpoints will fail upstream")
	}

	advisor := buildAdvisor(ctx, settings, indexer, cache, metrics, log)

	ingestor := application.NewIngestor(source, cache, metrics, log)
	statsService := application.NewStatsService(cache, indexer, metrics, log)
	tasks := application.NewTaskTracker(ctx, log)

	if settings.PlaybooksDir != "" {
		n, err := application.LoadPlaybooksDir(ctx, indexer, settings.PlaybooksDir, log)
		if err != nil {
			log.WithError(err).Warn("loading playbooks")
		} else if n > 0 {
			log.WithField("count", n).Info("playbooks indexed")
		}
	}

	srv := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           server.New(advisor, ingestor, statsService, indexer, tasks, source, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutting down")
		}
	}()

	log.WithField("addr", settings.ListenAddr).
		WithField("provider", settings.LLMProvider).
		Info("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server exited")
	}
	log.Info("server stopped")
}

// buildAdvisor assembles the LLM client with its middleware chain and the
// advisor on top of it. Returns nil when no credential is configured; the
// server then answers /advice with 503.
func buildAdvisor(
	ctx context.Context,
	settings application.Settings,
	indexer *application.Indexer,
	cache *matchcache.SQLiteCache,
	metrics ports.MetricsCollector,
	log *logging.Logger,
) *application.Advisor {
	if settings.LLMAPIKey == "" {
		log.Warn("LLM_API_KEY not set, advice generation disabled")
		return nil
	}

	client, err := llm.NewClient(settings.LLMProvider, llm.Config{
		APIKey: settings.LLMAPIKey,
		Model:  settings.LLMModel,
		Middleware: []llm.Middleware{
			llm.TracingMiddleware(),
			llm.MetricsMiddleware(metrics),
			llm.RetryMiddleware(3, time.Second, 30*time.Second),
			llm.RateLimitMiddleware(rate.Every(settings.ProviderDelay), 1),
			llm.TimeoutMiddleware(60 * time.Second),
		},
	})
	if err != nil {
		log.WithError(err).Fatal("building LLM client")
	}

	resolver := application.NewNameResolver(rosterFromCache(ctx, cache, log))

	advisor, err := application.NewAdvisor(indexer, client, resolver, metrics, log)
	if err != nil {
		log.WithError(err).Fatal("building advisor")
	}
	return advisor
}

// rosterFromCache collects the distinct champion identifiers seen in
// cached matches so snapshot names can be resolved to canonical ids. An
// empty cache yields an empty roster; names then pass through as typed.
func rosterFromCache(ctx context.Context, cache *matchcache.SQLiteCache, log *logging.Logger) []string {
	matches, err := cache.All(ctx)
	if err != nil {
		log.WithError(err).Warn("reading cache for champion roster")
		return nil
	}

	seen := make(map[string]struct{})
	var roster []string
	for _, m := range matches {
		for _, p := range m.Participants {
			for _, u := range p.Units {
				if u.CharacterID == "" {
					continue
				}
				if _, ok := seen[u.CharacterID]; ok {
					continue
				}
				seen[u.CharacterID] = struct{}{}
				roster = append(roster, u.CharacterID)
			}
		}
	}
	return roster
}
