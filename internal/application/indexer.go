// Package application wires the pure domain logic to its collaborators:
// it orchestrates ingestion, aggregation, retrieval indexing, and advice
// generation. All collaborators are injected through ports interfaces.
package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahrav/go-tactician/internal/domain"
	"github.com/ahrav/go-tactician/internal/ports"
)

// Indexer converts aggregated statistics into retrievable documents and
// runs similarity queries against the retrieval store. Document text is
// rendered deterministically (fixed field order, percentages to one
// decimal, averages to two) so re-indexing identical stats produces
// byte-identical documents under the same IDs.
type Indexer struct {
	store ports.VectorStore
}

// NewIndexer creates an Indexer backed by the given store.
func NewIndexer(store ports.VectorStore) *Indexer {
	return &Indexer{store: store}
}

// IndexCompositionStats upserts one document per composition stat.
func (ix *Indexer) IndexCompositionStats(ctx context.Context, stats []domain.CompositionStat) error {
	if len(stats) == 0 {
		return nil
	}
	docs := make([]ports.Document, 0, len(stats))
	for _, s := range stats {
		docs = append(docs, ports.Document{
			ID:   s.ID,
			Text: RenderCompositionDocument(s),
			Metadata: map[string]any{
				"id":            s.ID,
				"version_tag":   s.VersionTag,
				"champions":     strings.Join(s.Champions, ","),
				"avg_placement": s.AvgPlacement,
				"top4_rate":     s.Top4Rate,
				"win_rate":      s.WinRate,
				"sample_size":   s.SampleSize,
			},
		})
	}
	return ix.store.Upsert(ctx, ports.CollectionCompositions, docs)
}

// IndexAugmentStats upserts one document per augment stat.
func (ix *Indexer) IndexAugmentStats(ctx context.Context, stats []domain.AugmentStat) error {
	if len(stats) == 0 {
		return nil
	}
	docs := make([]ports.Document, 0, len(stats))
	for _, s := range stats {
		docs = append(docs, ports.Document{
			ID:   s.ID,
			Text: RenderAugmentDocument(s),
			Metadata: map[string]any{
				"id":            s.ID,
				"augment":       s.Augment,
				"version_tag":   s.VersionTag,
				"pick_rate":     s.PickRate,
				"avg_placement": s.AvgPlacement,
				"top4_rate":     s.Top4Rate,
				"win_rate":      s.WinRate,
				"sample_size":   s.SampleSize,
			},
		})
	}
	return ix.store.Upsert(ctx, ports.CollectionAugments, docs)
}

// AddPlaybook stores one authored strategy guide. The ID is derived from
// the title so re-adding a guide replaces the prior version.
func (ix *Indexer) AddPlaybook(ctx context.Context, title, content string, tags []string) error {
	if title == "" {
		return fmt.Errorf("playbook title must not be empty")
	}
	doc := ports.Document{
		ID:   "playbook_" + slugify(title),
		Text: content,
		Metadata: map[string]any{
			"title": title,
			"tags":  strings.Join(tags, ","),
		},
	}
	return ix.store.Upsert(ctx, ports.CollectionPlaybooks, []ports.Document{doc})
}

// QueryCompositions retrieves the k composition documents most similar
// to text, optionally restricted to one version tag.
func (ix *Indexer) QueryCompositions(ctx context.Context, text string, k int, versionFilter string) ([]ports.RetrievalResult, error) {
	return ix.store.Query(ctx, ports.CollectionCompositions, text, k, versionMetadataFilter(versionFilter))
}

// QueryAugments retrieves the k augment documents most similar to text,
// optionally restricted to one version tag.
func (ix *Indexer) QueryAugments(ctx context.Context, text string, k int, versionFilter string) ([]ports.RetrievalResult, error) {
	return ix.store.Query(ctx, ports.CollectionAugments, text, k, versionMetadataFilter(versionFilter))
}

// QueryGuides retrieves the k strategy guides most similar to text.
func (ix *Indexer) QueryGuides(ctx context.Context, text string, k int) ([]ports.RetrievalResult, error) {
	return ix.store.Query(ctx, ports.CollectionPlaybooks, text, k, nil)
}

// Heartbeat reports store reachability for the health probe.
func (ix *Indexer) Heartbeat(ctx context.Context) error {
	return ix.store.Heartbeat(ctx)
}

// RenderCompositionDocument renders the stable natural-language document
// for a composition stat. The embedding search operates over this text,
// so field order and rounding are fixed.
func RenderCompositionDocument(s domain.CompositionStat) string {
	return fmt.Sprintf(
		"Team composition: %s. Patch %s. Average placement: %.2f. Top 4 rate: %s. Win rate: %s. Play rate: %s. Key augments: %s. Sample size: %d games.",
		strings.Join(s.Champions, ", "),
		s.VersionTag,
		s.AvgPlacement,
		percent(s.Top4Rate),
		percent(s.WinRate),
		percent(s.PlayRate),
		strings.Join(s.TopAugments, ", "),
		s.SampleSize,
	)
}

// RenderAugmentDocument renders the stable natural-language document for
// an augment stat.
func RenderAugmentDocument(s domain.AugmentStat) string {
	return fmt.Sprintf(
		"Augment: %s. Patch %s. Pick rate: %s. Average placement: %.2f. Top 4 rate: %s. Win rate: %s. Works well with: %s. Sample size: %d games.",
		s.Augment,
		s.VersionTag,
		percent(s.PickRate),
		s.AvgPlacement,
		percent(s.Top4Rate),
		percent(s.WinRate),
		strings.Join(s.TopCompositions, ", "),
		s.SampleSize,
	)
}

func percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}

func versionMetadataFilter(versionFilter string) map[string]string {
	if versionFilter == "" {
		return nil
	}
	return map[string]string{"version_tag": versionFilter}
}

func slugify(title string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(title)), " ", "_")
}
