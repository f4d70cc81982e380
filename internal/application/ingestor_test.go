package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tactician/internal/domain"
	"github.com/ahrav/go-tactician/internal/ports"
)

func testMatch(id string) domain.MatchRecord {
	return domain.MatchRecord{
		MatchID:      id,
		TFTSetNumber: 12,
		Participants: []domain.Participant{
			{Units: []domain.BoardUnit{{CharacterID: "TFT12_Ahri"}}, Placement: 1},
		},
	}
}

// TestFetchAndCacheMatch verifies the cache-first fetch path and
// boundary validation of fresh fetches.
func TestFetchAndCacheMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("cache hit skips the provider", func(t *testing.T) {
		cache := newFakeCache()
		require.NoError(t, cache.Put(ctx, testMatch("NA1_1")))

		source := &fakeSource{} // would fail on any fetch
		metrics := &fakeMetrics{}
		ing := NewIngestor(source, cache, metrics, nil)

		match, err := ing.FetchAndCacheMatch(ctx, "NA1_1")
		require.NoError(t, err)
		assert.Equal(t, "NA1_1", match.MatchID)
		assert.True(t, metrics.counted("match_cache_hit"))
	})

	t.Run("fresh fetch is validated and cached", func(t *testing.T) {
		cache := newFakeCache()
		source := &fakeSource{matches: map[string]domain.MatchRecord{"NA1_2": testMatch("NA1_2")}}
		ing := NewIngestor(source, cache, nil, nil)

		_, err := ing.FetchAndCacheMatch(ctx, "NA1_2")
		require.NoError(t, err)

		_, ok, err := cache.Get(ctx, "NA1_2")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("invalid match is rejected and not cached", func(t *testing.T) {
		bad := testMatch("NA1_3")
		bad.Participants[0].Placement = 12

		cache := newFakeCache()
		source := &fakeSource{matches: map[string]domain.MatchRecord{"NA1_3": bad}}
		ing := NewIngestor(source, cache, nil, nil)

		_, err := ing.FetchAndCacheMatch(ctx, "NA1_3")
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)

		n, err := cache.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

// TestIngestPlayerMatches verifies per-match failure isolation and
// cancellation between fetches.
func TestIngestPlayerMatches(t *testing.T) {
	ctx := context.Background()

	t.Run("one bad match does not abort the batch", func(t *testing.T) {
		source := &fakeSource{
			matchIDs: map[string][]string{"player1": {"NA1_1", "NA1_2", "NA1_3"}},
			matches: map[string]domain.MatchRecord{
				"NA1_1": testMatch("NA1_1"),
				"NA1_3": testMatch("NA1_3"),
			},
			failing: map[string]error{"NA1_2": ports.ErrUnavailable},
		}
		ing := NewIngestor(source, newFakeCache(), nil, nil)

		n, err := ing.IngestPlayerMatches(ctx, "player1", 10)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("listing failure aborts", func(t *testing.T) {
		source := &fakeSource{idsErr: ports.ErrRateLimited}
		ing := NewIngestor(source, newFakeCache(), nil, nil)

		_, err := ing.IngestPlayerMatches(ctx, "player1", 10)
		require.ErrorIs(t, err, ports.ErrRateLimited)
	})

	t.Run("cancellation stops between matches and keeps cached work", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		source := &fakeSource{
			matchIDs: map[string][]string{"player1": {"NA1_1"}},
			matches:  map[string]domain.MatchRecord{"NA1_1": testMatch("NA1_1")},
		}
		cache := newFakeCache()
		ing := NewIngestor(source, cache, nil, nil)

		n, err := ing.IngestPlayerMatches(cancelled, "player1", 10)
		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, n)
	})

	t.Run("count caps the batch", func(t *testing.T) {
		source := &fakeSource{
			matchIDs: map[string][]string{"player1": {"NA1_1", "NA1_2"}},
			matches: map[string]domain.MatchRecord{
				"NA1_1": testMatch("NA1_1"),
				"NA1_2": testMatch("NA1_2"),
			},
		}
		ing := NewIngestor(source, newFakeCache(), nil, nil)

		n, err := ing.IngestPlayerMatches(ctx, "player1", 1)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

// TestIngestLeaderboard verifies tier composition, the player cap, and
// per-summoner failure isolation.
func TestIngestLeaderboard(t *testing.T) {
	ctx := context.Background()

	source := func() *fakeSource {
		return &fakeSource{
			leagues: map[ports.LeagueTier][]ports.LeagueEntry{
				ports.TierChallenger:  {{SummonerID: "s1"}},
				ports.TierGrandmaster: {{SummonerID: "s2"}},
				ports.TierMaster:      {{SummonerID: "s3"}},
			},
			summoners: map[string]ports.Summoner{
				"s1": {PUUID: "p1"},
				"s3": {PUUID: "p3"},
			},
			matchIDs: map[string][]string{
				"p1": {"NA1_1"},
				"p3": {"NA1_2"},
			},
			matches: map[string]domain.MatchRecord{
				"NA1_1": testMatch("NA1_1"),
				"NA1_2": testMatch("NA1_2"),
			},
		}
	}

	t.Run("unresolvable summoner is skipped", func(t *testing.T) {
		// s2 has no summoner record; its failure must not abort the sweep.
		ing := NewIngestor(source(), newFakeCache(), nil, nil)

		n, err := ing.IngestLeaderboard(ctx, "na1", 10, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("max players caps the sweep", func(t *testing.T) {
		ing := NewIngestor(source(), newFakeCache(), nil, nil)

		n, err := ing.IngestLeaderboard(ctx, "na1", 10, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("match-list failure for one summoner is skipped", func(t *testing.T) {
		// p1 hits a rate limit listing matches; the sweep must still
		// ingest the remaining summoners.
		src := source()
		src.summoners["s2"] = ports.Summoner{PUUID: "p2"}
		src.matchIDs["p2"] = []string{"NA1_3"}
		src.matches["NA1_3"] = testMatch("NA1_3")
		src.idsErrFor = map[string]error{"p1": ports.ErrRateLimited}
		ing := NewIngestor(src, newFakeCache(), nil, nil)

		n, err := ing.IngestLeaderboard(ctx, "na1", 10, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("cancellation still aborts a player sweep", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()
		ing := NewIngestor(source(), newFakeCache(), nil, nil)

		_, err := ing.IngestLeaderboard(cancelled, "na1", 10, 10)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("tier listing failure aborts", func(t *testing.T) {
		src := source()
		src.leagueErr = errors.New("league api down")
		ing := NewIngestor(src, newFakeCache(), nil, nil)

		_, err := ing.IngestLeaderboard(ctx, "na1", 10, 10)
		require.Error(t, err)
	})
}

// TestStatsService verifies the aggregate-and-index round trip and the
// empty-cache error.
func TestStatsService(t *testing.T) {
	ctx := context.Background()

	t.Run("empty cache yields ErrNoData", func(t *testing.T) {
		svc := NewStatsService(newFakeCache(), NewIndexer(newFakeStore()), nil, nil)

		_, err := svc.ComputeAndIndexStats(ctx, "12.1")
		require.ErrorIs(t, err, domain.ErrNoData)
	})

	t.Run("aggregates cached matches into the index", func(t *testing.T) {
		cache := newFakeCache()
		participants := make([]domain.Participant, 12)
		for i := range participants {
			participants[i] = domain.Participant{
				Units:     []domain.BoardUnit{{CharacterID: "TFT12_Ahri"}},
				Augments:  []string{"Featherweights", "CyberneticUplink"},
				Placement: i%8 + 1,
			}
		}
		require.NoError(t, cache.Put(ctx, domain.MatchRecord{
			MatchID: "NA1_1", TFTSetNumber: 12, Participants: participants,
		}))

		store := newFakeStore()
		svc := NewStatsService(cache, NewIndexer(store), nil, nil)

		report, err := svc.ComputeAndIndexStats(ctx, "12.1")
		require.NoError(t, err)
		assert.Equal(t, 1, report.MatchesProcessed)
		assert.Equal(t, 1, report.CompositionsIndexed)
		assert.Equal(t, 2, report.AugmentsIndexed)
		assert.Equal(t, 1, store.size(ports.CollectionCompositions))
		assert.Equal(t, 2, store.size(ports.CollectionAugments))
	})
}
