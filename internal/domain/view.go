package domain

import "time"

// View is the reconciled picture of the program: global state, the live round,
// the round open for bets and the trailing expired rounds. It is replaced
// wholesale on every resync.
type View struct {
	State    GlobalState    `json:"state"`
	Current  *Round         `json:"currentRound"`
	Next     *Round         `json:"nextRound"`
	Expired  []ExpiredRound `json:"expiredRounds"`
	SyncedAt time.Time      `json:"syncedAt"`
	Seq      uint64         `json:"seq"`
}

// Synced reports whether at least one resync has completed.
func (v View) Synced() bool {
	return v.Seq > 0
}
