package domain

// BoardChampion is a champion on the player's board or bench, as entered
// by the player in a live-game snapshot.
type BoardChampion struct {
	// Name is the champion name as typed by the player. It is resolved to
	// a canonical identifier before retrieval; near-misses are tolerated.
	Name string `json:"name" validate:"required,min=1"`

	// Stars is the unit's star level.
	Stars int `json:"stars" validate:"required,min=1,max=3"`

	// Items lists the item names equipped on the unit.
	Items []string `json:"items"`
}

// GameSnapshot captures the live game state a player asks advice for.
// Fields carry validation tags enforced at the request boundary; a
// snapshot that fails validation is rejected before any retrieval or
// generation happens.
type GameSnapshot struct {
	// SetVersion is the TFT set the game is played on, e.g. "12".
	SetVersion string `json:"set_version" validate:"required"`

	// Stage is the current stage in "round-turn" notation, e.g. "4-2".
	Stage string `json:"stage" validate:"required"`

	Level  int `json:"level" validate:"required,min=1,max=10"`
	Gold   int `json:"gold" validate:"min=0"`
	Health int `json:"health" validate:"required,min=0,max=100"`

	Board []BoardChampion `json:"board" validate:"dive"`
	Bench []BoardChampion `json:"bench" validate:"dive"`

	AvailableAugments []string `json:"available_augments"`
	ShopChampions     []string `json:"shop_champions"`
	ActiveTraits      []string `json:"active_traits"`

	// Context is an optional free-text question from the player.
	Context string `json:"context"`
}

// StrategicOption is one ranked recommendation produced by the advisor.
type StrategicOption struct {
	Rank        int            `json:"rank"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Reasoning   string         `json:"reasoning"`
	KeyStats    map[string]any `json:"key_stats"`

	// Confidence is the advisor's confidence in this option, 0.0 to 1.0.
	// The fallback option emitted on generation failure carries 0.3.
	Confidence float64 `json:"confidence"`
}

// StrategicAdvice is the advisor's full answer for one snapshot.
type StrategicAdvice struct {
	Snapshot GameSnapshot      `json:"snapshot"`
	Options  []StrategicOption `json:"options"`

	// GeneralAdvice is a short free-form summary of immediate priorities.
	GeneralAdvice string `json:"general_advice"`

	// RetrievedContext lists truncated previews of the documents that
	// grounded the advice, for transparency.
	RetrievedContext []string `json:"retrieved_context"`
}
