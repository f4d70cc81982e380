package application

import (
	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// maxNameDistance is the largest edit distance still accepted when
// resolving a player-typed champion name against the canonical roster.
const maxNameDistance = 2

// foldCaser is a package-level Unicode case folder; folding once here
// avoids allocating a caser per comparison.
var foldCaser = cases.Fold()

// NameResolver canonicalizes player-typed champion names. Snapshots
// arrive with free-text names ("ari", "Ahri "), while indexed documents
// carry canonical identifiers; resolving before retrieval keeps the
// query aligned with the indexed vocabulary.
type NameResolver struct {
	roster []string
	folded []string
}

// NewNameResolver builds a resolver over the canonical champion roster.
// An empty roster disables resolution; names pass through unchanged.
func NewNameResolver(roster []string) *NameResolver {
	folded := make([]string, len(roster))
	for i, name := range roster {
		folded[i] = foldCaser.String(name)
	}
	return &NameResolver{roster: roster, folded: folded}
}

// Resolve returns the canonical form of name. Exact case-folded matches
// win; otherwise the nearest roster entry within maxNameDistance edits
// is chosen. Names with no close match are returned as typed.
func (r *NameResolver) Resolve(name string) string {
	if len(r.roster) == 0 || name == "" {
		return name
	}
	target := foldCaser.String(name)

	bestIdx := -1
	bestDist := maxNameDistance + 1
	for i, candidate := range r.folded {
		if candidate == target {
			return r.roster[i]
		}
		if d := levenshtein.ComputeDistance(candidate, target); d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	if bestIdx >= 0 {
		return r.roster[bestIdx]
	}
	return name
}
