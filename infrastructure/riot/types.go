package riot

import "github.com/ahrav/go-tactician/internal/domain"

// Wire shapes for the TFT API. Only the fields the aggregation pipeline
// needs are decoded; everything else in the provider's payload is
// dropped at this boundary.

type matchEnvelope struct {
	Metadata matchMetadata `json:"metadata"`
	Info     matchInfo     `json:"info"`
}

type matchMetadata struct {
	MatchID string `json:"match_id"`
}

type matchInfo struct {
	GameDatetime int64             `json:"game_datetime"`
	GameLength   float64           `json:"game_length"`
	TFTSetNumber int               `json:"tft_set_number"`
	Participants []wireParticipant `json:"participants"`
}

type wireParticipant struct {
	Units     []wireUnit `json:"units"`
	Augments  []string   `json:"augments"`
	Placement int        `json:"placement"`
}

type wireUnit struct {
	CharacterID string   `json:"character_id"`
	ItemNames   []string `json:"itemNames"`
}

// toDomain converts the wire form into the immutable domain record.
// Validation happens separately at the ingestion boundary.
func (m matchEnvelope) toDomain() domain.MatchRecord {
	participants := make([]domain.Participant, len(m.Info.Participants))
	for i, p := range m.Info.Participants {
		units := make([]domain.BoardUnit, len(p.Units))
		for j, u := range p.Units {
			units[j] = domain.BoardUnit{CharacterID: u.CharacterID, ItemNames: u.ItemNames}
		}
		participants[i] = domain.Participant{
			Units:     units,
			Augments:  p.Augments,
			Placement: p.Placement,
		}
	}
	return domain.MatchRecord{
		MatchID:      m.Metadata.MatchID,
		GameDatetime: m.Info.GameDatetime,
		GameLength:   m.Info.GameLength,
		TFTSetNumber: m.Info.TFTSetNumber,
		Participants: participants,
	}
}

type leagueList struct {
	Entries []leagueEntry `json:"entries"`
}

type leagueEntry struct {
	SummonerID   string `json:"summonerId"`
	LeaguePoints int    `json:"leaguePoints"`
}

type summonerResponse struct {
	PUUID string `json:"puuid"`
	Name  string `json:"name"`
}
