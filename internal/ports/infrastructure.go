// Package ports defines the interfaces through which the application core
// talks to external collaborators: the match-data provider, the retrieval
// store, the generative model, the local match cache, and metrics.
// Implementations live under infrastructure/; tests substitute in-memory
// fakes.
package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-tactician/internal/domain"
)

// LLMClient is the generative text model used to rank strategic options.
// Implementations handle provider specifics, rate limiting, and retries.
type LLMClient interface {
	// Complete sends a prompt and returns the generated text. Common
	// options: "temperature" (float64), "max_tokens" (int), "system"
	// (string), "response_format" (provider specific JSON-mode hint).
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// GetModel returns the model identifier, for logging and capability
	// checks.
	GetModel() string
}

// Retrieval store collection names.
const (
	CollectionCompositions = "compositions"
	CollectionAugments     = "augments"
	CollectionPlaybooks    = "playbooks"
)

// Document is one retrievable unit: the text the embedding search
// operates over, plus structured metadata for filtering.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// RetrievalResult is one ranked hit from a similarity query.
type RetrievalResult struct {
	Document string
	Metadata map[string]any

	// Distance is the embedding distance reported by the store; smaller
	// means more relevant.
	Distance float64
}

// VectorStore is the retrieval/embedding index. Upserts with a repeated
// ID replace the prior document, which keeps re-indexing idempotent.
type VectorStore interface {
	Upsert(ctx context.Context, collection string, docs []Document) error

	// Query runs a similarity search over a collection. The filter
	// restricts candidates by exact metadata equality; a nil filter
	// matches everything.
	Query(ctx context.Context, collection, text string, k int, filter map[string]string) ([]RetrievalResult, error)

	// Heartbeat reports store reachability for health probes.
	Heartbeat(ctx context.Context) error
}

// LeagueTier identifies a ranked leaderboard tier.
type LeagueTier string

// Leaderboard tiers used for high-elo ingestion sweeps.
const (
	TierChallenger  LeagueTier = "challenger"
	TierGrandmaster LeagueTier = "grandmaster"
	TierMaster      LeagueTier = "master"
)

// LeagueEntry is one leaderboard row.
type LeagueEntry struct {
	SummonerID   string
	LeaguePoints int
}

// Summoner is a player identity resolved from a leaderboard entry.
type Summoner struct {
	PUUID string
	Name  string
}

// MatchSource is the upstream match-data provider. Implementations pace
// requests to respect the provider's rate limit; callers do not add
// their own delays.
type MatchSource interface {
	// MatchIDs pages through a player's recent match identifiers.
	MatchIDs(ctx context.Context, puuid string, start, count int) ([]string, error)

	// Match fetches one match. The returned record has passed boundary
	// validation.
	Match(ctx context.Context, matchID string) (domain.MatchRecord, error)

	// Summoner resolves a leaderboard entry to a player identity.
	Summoner(ctx context.Context, platform, summonerID string) (Summoner, error)

	// LeagueEntries lists the players in a ranked tier on a platform.
	LeagueEntries(ctx context.Context, platform string, tier LeagueTier) ([]LeagueEntry, error)

	// Configured reports whether a provider credential is present,
	// for health probes.
	Configured() bool
}

// MatchCache is the local append-only store of ingested matches, keyed
// by match ID. Records are immutable; Put is insert-or-ignore.
type MatchCache interface {
	Get(ctx context.Context, matchID string) (domain.MatchRecord, bool, error)
	Put(ctx context.Context, match domain.MatchRecord) error
	All(ctx context.Context) ([]domain.MatchRecord, error)
	Count(ctx context.Context) (int, error)
}

// MetricsCollector records operational metrics. The Prometheus
// implementation lives in infrastructure/observability.
type MetricsCollector interface {
	RecordLatency(operation string, d time.Duration, labels map[string]string)
	RecordCounter(metric string, value float64, labels map[string]string)
	RecordGauge(metric string, value float64, labels map[string]string)
}
