// Package domain contains the core data model and the pure statistics
// logic for the advisor: match records as ingested from the upstream
// provider, board/augment extraction, and the composition and augment
// aggregates derived from them. Nothing in this package performs I/O.
package domain

import "fmt"

// Placement bounds for a standard eight-player lobby.
const (
	MinPlacement = 1
	MaxPlacement = 8
)

// BoardUnit is a single champion fielded by a participant, together with
// the items equipped on it in slot order.
type BoardUnit struct {
	// CharacterID is the canonical champion identifier, e.g. "TFT12_Ahri".
	CharacterID string `json:"character_id"`

	// ItemNames lists equipped items in slot order. May be empty.
	ItemNames []string `json:"itemNames"`
}

// Participant is one player's outcome in one match: the board they
// finished with, the augments they picked, and their final placement.
type Participant struct {
	// Units is the board at game end. Order carries no meaning; composition
	// identity is derived from the sorted set of character IDs.
	Units []BoardUnit `json:"units"`

	// Augments lists picked augment identifiers in pick order.
	// Duplicates are preserved because they weight pick rates.
	Augments []string `json:"augments"`

	// Placement is the final lobby rank, 1 (win) through 8.
	Placement int `json:"placement"`
}

// MatchRecord is one played match. Records are immutable once ingested
// and are identified by MatchID.
type MatchRecord struct {
	MatchID      string        `json:"match_id"`
	GameDatetime int64         `json:"game_datetime"`
	GameLength   float64       `json:"game_length"`
	TFTSetNumber int           `json:"tft_set_number"`
	Participants []Participant `json:"participants"`
}

// Validate rejects structurally malformed records at the ingestion
// boundary so the aggregation core never sees missing identity fields or
// out-of-range placements. A failed match fails that ingestion item only.
func (m *MatchRecord) Validate() error {
	verr := NewValidationError("MatchRecord")

	if m.MatchID == "" {
		verr.Add("match_id is required")
	}
	if m.TFTSetNumber <= 0 {
		verr.Add(fmt.Sprintf("tft_set_number must be positive, got %d", m.TFTSetNumber))
	}
	if len(m.Participants) == 0 {
		verr.Add("participants must not be empty")
	}
	for i, p := range m.Participants {
		if p.Placement < MinPlacement || p.Placement > MaxPlacement {
			verr.Add(fmt.Sprintf("participant %d: placement %d outside %d..%d",
				i, p.Placement, MinPlacement, MaxPlacement))
		}
		for j, u := range p.Units {
			if u.CharacterID == "" {
				verr.Add(fmt.Sprintf("participant %d: unit %d missing character_id", i, j))
			}
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// SetTag returns the major-version tag of the set this match was played
// under, e.g. "12". Patch tags like "12.1" match the set on their major
// component.
func (m *MatchRecord) SetTag() string {
	return fmt.Sprintf("%d", m.TFTSetNumber)
}
