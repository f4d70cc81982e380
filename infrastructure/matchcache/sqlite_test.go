package matchcache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tactician/internal/domain"
)

func openTestCache(t *testing.T) *SQLiteCache {
	t.Helper()
	cache, err := Open(filepath.Join(t.TempDir(), "matches.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func record(id string, placement int) domain.MatchRecord {
	return domain.MatchRecord{
		MatchID:      id,
		GameDatetime: 1700000000000,
		GameLength:   2100.5,
		TFTSetNumber: 12,
		Participants: []domain.Participant{
			{
				Units:     []domain.BoardUnit{{CharacterID: "TFT12_Ahri", ItemNames: []string{"JeweledGauntlet"}}},
				Augments:  []string{"Featherweights"},
				Placement: placement,
			},
		},
	}
}

// TestSQLiteCacheRoundTrip verifies persistence of full match records.
func TestSQLiteCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)

	want := record("NA1_1", 3)
	require.NoError(t, cache.Put(ctx, want))

	got, ok, err := cache.Get(ctx, "NA1_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

// TestSQLiteCacheMiss verifies the not-found path.
func TestSQLiteCacheMiss(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)

	_, ok, err := cache.Get(ctx, "NA1_missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestSQLiteCacheAppendOnly verifies that a repeated Put of the same
// match ID leaves the original record untouched.
func TestSQLiteCacheAppendOnly(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)

	original := record("NA1_1", 3)
	require.NoError(t, cache.Put(ctx, original))

	altered := record("NA1_1", 8)
	require.NoError(t, cache.Put(ctx, altered))

	got, ok, err := cache.Get(ctx, "NA1_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got.Participants[0].Placement)

	n, err := cache.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// TestSQLiteCacheAll verifies deterministic full reads.
func TestSQLiteCacheAll(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)

	require.NoError(t, cache.Put(ctx, record("NA1_2", 2)))
	require.NoError(t, cache.Put(ctx, record("NA1_1", 1)))
	require.NoError(t, cache.Put(ctx, record("NA1_3", 3)))

	matches, err := cache.All(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "NA1_1", matches[0].MatchID)
	assert.Equal(t, "NA1_2", matches[1].MatchID)
	assert.Equal(t, "NA1_3", matches[2].MatchID)
}

// TestSQLiteCacheSurvivesReopen verifies the file-backed durability the
// cache exists for.
func TestSQLiteCacheSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "matches.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, record("NA1_1", 1)))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	n, err := second.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
