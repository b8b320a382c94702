package domain

// HistoryEntry is a round the caller participated in, with their bet.
type HistoryEntry struct {
	Round           Round   `json:"round"`
	Bet             UserBet `json:"bet"`
	UserWon         bool    `json:"userWon"`
	Claimable       bool    `json:"claimable"`
	EstimatedPayout float64 `json:"estimatedPayout"`
}

// NewHistoryEntry derives the win/claim flags for a round and bet pair.
func NewHistoryEntry(round Round, bet UserBet) HistoryEntry {
	return HistoryEntry{
		Round:           round,
		Bet:             bet,
		UserWon:         UserWon(round, bet),
		Claimable:       CanClaim(round, &bet),
		EstimatedPayout: round.EstimatedPayout(bet),
	}
}

// HistoryPage is one window of the participation history, newest first.
// NextOffset is the offset to pass for the following page.
type HistoryPage struct {
	Entries    []HistoryEntry `json:"entries"`
	Offset     int            `json:"offset"`
	NextOffset int            `json:"nextOffset"`
	Scanned    int            `json:"scanned"`
	Exhausted  bool           `json:"exhausted"`
}
