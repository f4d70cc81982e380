package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-tactician/internal/domain"
	"github.com/ahrav/go-tactician/internal/logging"
	"github.com/ahrav/go-tactician/internal/ports"
)

// Ingestor drives match ingestion: it fetches match IDs from the
// upstream provider, fetches and caches each match, and isolates
// per-match and per-summoner failures so one bad item never aborts a
// sweep. Long sweeps honor context cancellation between fetches, so
// already-cached matches survive an aborted run.
type Ingestor struct {
	source  ports.MatchSource
	cache   ports.MatchCache
	metrics ports.MetricsCollector
	log     *logging.Logger
}

// NewIngestor creates an Ingestor with injected collaborators. The
// metrics collector may be nil.
func NewIngestor(source ports.MatchSource, cache ports.MatchCache, metrics ports.MetricsCollector, log *logging.Logger) *Ingestor {
	return &Ingestor{source: source, cache: cache, metrics: metrics, log: log}
}

// FetchAndCacheMatch returns the match for matchID, from cache when
// present. A fresh fetch is validated and persisted before returning.
func (ing *Ingestor) FetchAndCacheMatch(ctx context.Context, matchID string) (domain.MatchRecord, error) {
	if cached, ok, err := ing.cache.Get(ctx, matchID); err != nil {
		return domain.MatchRecord{}, fmt.Errorf("cache lookup for %s: %w", matchID, err)
	} else if ok {
		ing.count("match_cache_hit")
		return cached, nil
	}

	match, err := ing.source.Match(ctx, matchID)
	if err != nil {
		return domain.MatchRecord{}, err
	}
	if err := match.Validate(); err != nil {
		return domain.MatchRecord{}, err
	}
	if err := ing.cache.Put(ctx, match); err != nil {
		return domain.MatchRecord{}, fmt.Errorf("caching match %s: %w", matchID, err)
	}

	ing.count("match_ingested")
	return match, nil
}

// IngestPlayerMatches ingests up to count recent matches for one player.
// A failing match fetch is logged and skipped; the rest of the batch
// continues. Returns the number of matches ingested. Cancellation stops
// the sweep between matches and surfaces the context error.
func (ing *Ingestor) IngestPlayerMatches(ctx context.Context, puuid string, count int) (int, error) {
	start := time.Now()

	matchIDs, err := ing.source.MatchIDs(ctx, puuid, 0, count)
	if err != nil {
		return 0, fmt.Errorf("listing matches for player: %w", err)
	}

	ingested := 0
	for _, matchID := range matchIDs {
		if err := ctx.Err(); err != nil {
			return ingested, err
		}
		if _, err := ing.FetchAndCacheMatch(ctx, matchID); err != nil {
			if ing.log != nil {
				ing.log.WithError(err).WithField("match_id", matchID).Error("failed to ingest match, skipping")
			}
			continue
		}
		ingested++
	}

	if ing.metrics != nil {
		ing.metrics.RecordLatency("ingest_player", time.Since(start), nil)
	}
	if ing.log != nil {
		ing.log.WithField("puuid", puuid).WithField("ingested", ingested).Info("player ingestion complete")
	}
	return ingested, nil
}

// IngestLeaderboard ingests matches from the top ranked tiers on a
// platform: challenger, grandmaster, and master entries are composed in
// that order and capped at maxPlayers. A failure resolving one
// summoner or listing its matches skips that summoner only; failure to
// read the leaderboards themselves aborts the sweep. Returns total
// matches ingested.
func (ing *Ingestor) IngestLeaderboard(ctx context.Context, platform string, matchesPerPlayer, maxPlayers int) (int, error) {
	tiers := []ports.LeagueTier{ports.TierChallenger, ports.TierGrandmaster, ports.TierMaster}

	var entries []ports.LeagueEntry
	for _, tier := range tiers {
		tierEntries, err := ing.source.LeagueEntries(ctx, platform, tier)
		if err != nil {
			return 0, fmt.Errorf("listing %s entries: %w", tier, err)
		}
		entries = append(entries, tierEntries...)
	}
	if len(entries) > maxPlayers {
		entries = entries[:maxPlayers]
	}
	if ing.log != nil {
		ing.log.WithField("platform", platform).WithField("players", len(entries)).Info("starting leaderboard ingestion")
	}

	total := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if entry.SummonerID == "" {
			continue
		}

		summoner, err := ing.source.Summoner(ctx, platform, entry.SummonerID)
		if err != nil {
			if ing.log != nil {
				ing.log.WithError(err).WithField("summoner_id", entry.SummonerID).Error("failed to resolve summoner, skipping")
			}
			continue
		}
		if summoner.PUUID == "" {
			continue
		}

		ingested, err := ing.IngestPlayerMatches(ctx, summoner.PUUID, matchesPerPlayer)
		total += ingested
		if err != nil {
			if ctx.Err() != nil {
				return total, err
			}
			if ing.log != nil {
				ing.log.WithError(err).WithField("puuid", summoner.PUUID).Error("failed to ingest player matches, skipping")
			}
			continue
		}
	}

	return total, nil
}

func (ing *Ingestor) count(metric string) {
	if ing.metrics != nil {
		ing.metrics.RecordCounter(metric, 1, nil)
	}
}
