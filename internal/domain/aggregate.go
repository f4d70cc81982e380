package domain

import (
	"sort"
	"strings"
)

// Minimum backing sample sizes below which a group is silently dropped.
const (
	MinCompositionSamples = 5
	MinAugmentSamples     = 10
)

// Ranking cutoffs for cross-referenced frequency lists.
const (
	topAugmentsPerComposition = 5
	topItemsPerChampion       = 3
	topCompositionsPerAugment = 3
)

// MajorVersion reduces a patch tag to its major component: "12.1" -> "12".
// Aggregation retains a match when the match's set number stringifies to
// this major component.
func MajorVersion(versionTag string) string {
	if i := strings.Index(versionTag, "."); i >= 0 {
		return versionTag[:i]
	}
	return versionTag
}

// freqCounter counts string occurrences while remembering first-seen
// order, so frequency rankings have a stable tie-break.
type freqCounter struct {
	counts map[string]int
	order  []string
}

func newFreqCounter() *freqCounter {
	return &freqCounter{counts: make(map[string]int)}
}

func (c *freqCounter) Inc(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// Top returns up to n keys ordered by descending count, ties broken by
// first-seen order.
func (c *freqCounter) Top(n int) []string {
	ranked := make([]string, len(c.order))
	copy(ranked, c.order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return c.counts[ranked[i]] > c.counts[ranked[j]]
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// compositionBucket accumulates the raw observations for one composition
// key during an aggregation pass.
type compositionBucket struct {
	key        CompositionKey
	placements []int
	augments   *freqCounter
	items      map[string]*freqCounter
}

// ComputeCompositionStats aggregates composition statistics from a match
// set, scoped to the matches whose set number equals the major component
// of versionTag. Groups backed by fewer than MinCompositionSamples
// placements are dropped. The result is sorted ascending by average
// placement (best compositions first); the function is pure and an empty
// or fully filtered input yields an empty slice.
func ComputeCompositionStats(matches []MatchRecord, versionTag string) []CompositionStat {
	major := MajorVersion(versionTag)

	buckets := make(map[string]*compositionBucket)
	var bucketOrder []string
	totalParticipants := 0

	for _, match := range matches {
		if match.SetTag() != major {
			continue
		}
		for _, p := range match.Participants {
			totalParticipants++

			key := ExtractComposition(p)
			id := key.String()
			b, ok := buckets[id]
			if !ok {
				b = &compositionBucket{
					key:      key,
					augments: newFreqCounter(),
					items:    make(map[string]*freqCounter),
				}
				buckets[id] = b
				bucketOrder = append(bucketOrder, id)
			}

			b.placements = append(b.placements, p.Placement)
			for _, aug := range ExtractAugments(p) {
				b.augments.Inc(aug)
			}
			for champ, itemList := range ExtractItemsByChampion(p) {
				counter, ok := b.items[champ]
				if !ok {
					counter = newFreqCounter()
					b.items[champ] = counter
				}
				for _, item := range itemList {
					counter.Inc(item)
				}
			}
		}
	}

	stats := make([]CompositionStat, 0, len(buckets))
	for _, id := range bucketOrder {
		b := buckets[id]
		n := len(b.placements)
		if n < MinCompositionSamples {
			continue
		}

		topItems := make(map[string][]string, len(b.items))
		for champ, counter := range b.items {
			topItems[champ] = counter.Top(topItemsPerChampion)
		}

		stats = append(stats, CompositionStat{
			ID:                 CompositionID(b.key, versionTag),
			VersionTag:         versionTag,
			Champions:          b.key,
			AvgPlacement:       meanPlacement(b.placements),
			PlayRate:           float64(n) / float64(totalParticipants),
			Top4Rate:           rateAtOrBelow(b.placements, 4),
			WinRate:            rateAtOrBelow(b.placements, 1),
			SampleSize:         n,
			TopAugments:        b.augments.Top(topAugmentsPerComposition),
			TopItemsByChampion: topItems,
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].AvgPlacement < stats[j].AvgPlacement
	})
	return stats
}

// augmentBucket accumulates the raw observations for one augment during
// an aggregation pass.
type augmentBucket struct {
	placements []int
	comps      *freqCounter
}

// ComputeAugmentStats aggregates augment statistics symmetrically to
// ComputeCompositionStats, bucketed by augment identifier. The pick-rate
// denominator is the total number of augment picks across the retained
// match set, not the participant count; when no augments were picked at
// all every pick rate is zero. Groups under MinAugmentSamples are
// dropped.
func ComputeAugmentStats(matches []MatchRecord, versionTag string) []AugmentStat {
	major := MajorVersion(versionTag)

	buckets := make(map[string]*augmentBucket)
	var bucketOrder []string
	totalPicks := 0

	for _, match := range matches {
		if match.SetTag() != major {
			continue
		}
		for _, p := range match.Participants {
			compID := CompositionID(ExtractComposition(p), versionTag)
			for _, aug := range ExtractAugments(p) {
				totalPicks++

				b, ok := buckets[aug]
				if !ok {
					b = &augmentBucket{comps: newFreqCounter()}
					buckets[aug] = b
					bucketOrder = append(bucketOrder, aug)
				}
				b.placements = append(b.placements, p.Placement)
				b.comps.Inc(compID)
			}
		}
	}

	stats := make([]AugmentStat, 0, len(buckets))
	for _, aug := range bucketOrder {
		b := buckets[aug]
		n := len(b.placements)
		if n < MinAugmentSamples {
			continue
		}

		pickRate := 0.0
		if totalPicks > 0 {
			pickRate = float64(n) / float64(totalPicks)
		}

		stats = append(stats, AugmentStat{
			ID:              AugmentID(aug, versionTag),
			Augment:         aug,
			VersionTag:      versionTag,
			PickRate:        pickRate,
			AvgPlacement:    meanPlacement(b.placements),
			Top4Rate:        rateAtOrBelow(b.placements, 4),
			WinRate:         rateAtOrBelow(b.placements, 1),
			SampleSize:      n,
			TopCompositions: b.comps.Top(topCompositionsPerAugment),
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].AvgPlacement < stats[j].AvgPlacement
	})
	return stats
}

func meanPlacement(placements []int) float64 {
	sum := 0
	for _, p := range placements {
		sum += p
	}
	return float64(sum) / float64(len(placements))
}

// rateAtOrBelow returns the fraction of placements at or below threshold.
// Threshold 4 yields the top-4 rate, threshold 1 the win rate.
func rateAtOrBelow(placements []int, threshold int) float64 {
	hits := 0
	for _, p := range placements {
		if p <= threshold {
			hits++
		}
	}
	return float64(hits) / float64(len(placements))
}
