package domain

// CompositionStat is the derived aggregate for one composition within one
// version. Stats are recomputed wholesale on every aggregation run and
// never mutated after construction.
type CompositionStat struct {
	// ID is the deterministic identity of this composition within the
	// version, stable across runs. See CompositionID.
	ID string `json:"id"`

	// VersionTag is the patch tag the aggregation was scoped to.
	VersionTag string `json:"version_tag"`

	// Champions are the members of the composition key, sorted.
	Champions []string `json:"champions"`

	AvgPlacement float64 `json:"avg_placement"`

	// PlayRate is the fraction of all participants considered in the
	// aggregation run that played this composition.
	PlayRate float64 `json:"play_rate"`

	Top4Rate   float64 `json:"top4_rate"`
	WinRate    float64 `json:"win_rate"`
	SampleSize int     `json:"sample_size"`

	// TopAugments are the five most frequent augment picks within this
	// composition, most frequent first, ties broken by first appearance.
	TopAugments []string `json:"top_augments"`

	// TopItemsByChampion holds the three most frequent items per champion,
	// same ordering rule.
	TopItemsByChampion map[string][]string `json:"top_items_by_champion"`
}

// AugmentStat is the derived aggregate for one augment within one version.
type AugmentStat struct {
	// ID is the deterministic index identity for this augment stat.
	ID string `json:"id"`

	// Augment is the augment identifier as recorded in match data.
	Augment string `json:"augment"`

	VersionTag string `json:"version_tag"`

	// PickRate is this augment's share of all augment picks across the
	// retained match set. Zero when no augments were picked at all.
	PickRate float64 `json:"pick_rate"`

	AvgPlacement float64 `json:"avg_placement"`
	Top4Rate     float64 `json:"top4_rate"`
	WinRate      float64 `json:"win_rate"`
	SampleSize   int     `json:"sample_size"`

	// TopCompositions holds the IDs of the three compositions this augment
	// co-occurs with most often.
	TopCompositions []string `json:"top_compositions"`
}
