package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-tactician/internal/domain"
	"github.com/ahrav/go-tactician/internal/logging"
	"github.com/ahrav/go-tactician/internal/ports"
)

// StatsReport summarizes one aggregation-and-index run.
type StatsReport struct {
	MatchesProcessed    int `json:"matches_processed"`
	CompositionsIndexed int `json:"comps_indexed"`
	AugmentsIndexed     int `json:"augments_indexed"`
}

// StatsService recomputes composition and augment statistics from the
// full cached match set and writes them to the retrieval index. Stats
// are a pure derived view: every run recomputes them wholesale.
type StatsService struct {
	cache   ports.MatchCache
	indexer *Indexer
	metrics ports.MetricsCollector
	log     *logging.Logger
}

// NewStatsService creates a StatsService with injected collaborators.
// The metrics collector may be nil.
func NewStatsService(cache ports.MatchCache, indexer *Indexer, metrics ports.MetricsCollector, log *logging.Logger) *StatsService {
	return &StatsService{cache: cache, indexer: indexer, metrics: metrics, log: log}
}

// ComputeAndIndexStats reads every cached match, aggregates statistics
// for versionTag, and upserts the results. It returns domain.ErrNoData
// when the cache is empty; index write failures surface to the caller.
func (s *StatsService) ComputeAndIndexStats(ctx context.Context, versionTag string) (StatsReport, error) {
	start := time.Now()

	matches, err := s.cache.All(ctx)
	if err != nil {
		return StatsReport{}, fmt.Errorf("reading match cache: %w", err)
	}
	if len(matches) == 0 {
		return StatsReport{}, domain.ErrNoData
	}

	compStats := domain.ComputeCompositionStats(matches, versionTag)
	augStats := domain.ComputeAugmentStats(matches, versionTag)

	if err := s.indexer.IndexCompositionStats(ctx, compStats); err != nil {
		return StatsReport{}, fmt.Errorf("indexing composition stats: %w", err)
	}
	if err := s.indexer.IndexAugmentStats(ctx, augStats); err != nil {
		return StatsReport{}, fmt.Errorf("indexing augment stats: %w", err)
	}

	report := StatsReport{
		MatchesProcessed:    len(matches),
		CompositionsIndexed: len(compStats),
		AugmentsIndexed:     len(augStats),
	}

	if s.metrics != nil {
		labels := map[string]string{"version": versionTag}
		s.metrics.RecordLatency("compute_and_index_stats", time.Since(start), labels)
		s.metrics.RecordGauge("compositions_indexed", float64(len(compStats)), labels)
		s.metrics.RecordGauge("augments_indexed", float64(len(augStats)), labels)
	}
	if s.log != nil {
		s.log.WithField("version", versionTag).
			WithField("matches", report.MatchesProcessed).
			WithField("comps", report.CompositionsIndexed).
			WithField("augments", report.AugmentsIndexed).
			Info("stats recomputed and indexed")
	}

	return report, nil
}
