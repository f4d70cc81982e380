package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// CompositionKey identifies a board composition: the distinct champion
// identifiers fielded together, sorted lexicographically. Two boards with
// the same champions collide to the same key regardless of unit order or
// acquisition order.
type CompositionKey []string

// String renders the key as a comma-joined list, suitable for map
// bucketing and identity hashing.
func (k CompositionKey) String() string { return strings.Join(k, ",") }

// ExtractComposition derives the CompositionKey of a participant's board.
// It is total and deterministic: an empty board yields an empty key, and
// duplicate champions (multiple copies of a unit) count once.
func ExtractComposition(p Participant) CompositionKey {
	if len(p.Units) == 0 {
		return CompositionKey{}
	}
	seen := make(map[string]struct{}, len(p.Units))
	key := make(CompositionKey, 0, len(p.Units))
	for _, u := range p.Units {
		if u.CharacterID == "" {
			continue
		}
		if _, dup := seen[u.CharacterID]; dup {
			continue
		}
		seen[u.CharacterID] = struct{}{}
		key = append(key, u.CharacterID)
	}
	sort.Strings(key)
	return key
}

// ExtractItemsByChampion maps each champion on the board to the items
// equipped on it, preserving slot order. Champions without items are
// omitted. When the same champion appears on multiple units, the item
// lists are concatenated in unit order.
func ExtractItemsByChampion(p Participant) map[string][]string {
	items := make(map[string][]string)
	for _, u := range p.Units {
		if u.CharacterID == "" || len(u.ItemNames) == 0 {
			continue
		}
		items[u.CharacterID] = append(items[u.CharacterID], u.ItemNames...)
	}
	return items
}

// ExtractAugments returns the participant's augment picks as recorded.
// Duplicates are preserved because each pick weights the augment's
// pick rate.
func ExtractAugments(p Participant) []string { return p.Augments }

// CompositionID derives the stable identifier of a composition within a
// version. The identifier is a content hash of the sorted champion list
// plus the version tag, so repeated aggregation of the same inputs
// produces identical IDs across runs, processes, and runtimes. This is
// what makes index upserts idempotent.
func CompositionID(key CompositionKey, versionTag string) string {
	sum := sha256.Sum256([]byte(key.String() + "|" + versionTag))
	return "comp_" + versionTag + "_" + hex.EncodeToString(sum[:6])
}

// AugmentID derives the stable index identifier for an augment stat
// within a version, mirroring CompositionID.
func AugmentID(augment, versionTag string) string {
	sum := sha256.Sum256([]byte(augment + "|" + versionTag))
	return "aug_" + versionTag + "_" + hex.EncodeToString(sum[:6])
}
