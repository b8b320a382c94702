package domain

import (
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// RoundDuration is the fixed length of one betting epoch on the program.
const RoundDuration = time.Hour

// Direction is the side a bet is placed on, and the resolved outcome of a round.
type Direction uint8

const (
	DirectionUp Direction = iota
	DirectionDown
)

// String returns "Up" or "Down".
func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "Up"
	case DirectionDown:
		return "Down"
	default:
		return "Unknown"
	}
}

// Valid reports whether d is one of the two program directions.
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// ParseDirection accepts "up"/"down" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return DirectionUp, nil
	case "down":
		return DirectionDown, nil
	}
	return 0, &ValidationError{Field: "direction", Err: ErrInvalidDirection}
}

// MarshalText lets Direction travel as "Up"/"Down" in JSON.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// GlobalState is the program's singleton state record.
// NextRoundID is always CurrentRoundID + 1.
type GlobalState struct {
	CurrentRoundID      uint64           `json:"currentRoundId"`
	NextRoundID         uint64           `json:"nextRoundId"`
	CurrentRoundAddress solana.PublicKey `json:"currentRound"`
	NextRoundAddress    solana.PublicKey `json:"nextRound"`
	RoundStartTime      time.Time        `json:"roundStartTime"`
}

// Round is one hourly epoch. Prices are in quote units, pools in native units (SOL).
type Round struct {
	ID            uint64     `json:"id"`
	StartTime     *time.Time `json:"startTime"`
	EndTime       *time.Time `json:"endTime"`
	StartPrice    *float64   `json:"startPrice"`
	EndPrice      *float64   `json:"endPrice"`
	TotalBetsUp   float64    `json:"totalBetsUp"`
	TotalBetsDown float64    `json:"totalBetsDown"`
	TotalPool     float64    `json:"totalPool"`
	WinningPool   float64    `json:"winningPool"`
	IsActive      bool       `json:"isActive"`
	Outcome       *Direction `json:"outcome"`
}

// Resolved reports whether the program has settled the round.
// Resolved rounds never change again.
func (r Round) Resolved() bool {
	return !r.IsActive && r.Outcome != nil
}

// TimeLeft returns how long until EndTime, recomputed from absolute timestamps
// so a 1s countdown never drifts. Zero when the round has no end time or it passed.
func (r Round) TimeLeft(now time.Time) time.Duration {
	if r.EndTime == nil {
		return 0
	}
	left := r.EndTime.Sub(now)
	if left < 0 {
		return 0
	}
	return left.Truncate(time.Second)
}

// SidePool returns the pool backing the given direction.
func (r Round) SidePool(d Direction) float64 {
	if d == DirectionUp {
		return r.TotalBetsUp
	}
	return r.TotalBetsDown
}

// PayoutMultiplier is TotalPool / side pool, or 0 when nobody bet that side.
// Display estimate only: the program deducts its fee at bet time and computes the
// real payout itself, so the on-chain transfer is authoritative.
func (r Round) PayoutMultiplier(d Direction) float64 {
	side := r.SidePool(d)
	if side <= 0 {
		return 0
	}
	return r.TotalPool / side
}

// EstimatedPayout is the provisional winnings for bet in this round, capped at
// TotalPool like the program does. Zero unless the bet won.
func (r Round) EstimatedPayout(bet UserBet) float64 {
	if !UserWon(r, bet) {
		return 0
	}
	payout := bet.Amount * r.PayoutMultiplier(bet.Direction)
	if payout > r.TotalPool {
		payout = r.TotalPool
	}
	return payout
}

// ExpiredRound is one slot of the trailing expired rounds shown next to the
// live round. Placeholder is set when the ledger has no account for the id.
type ExpiredRound struct {
	Round
	Placeholder bool `json:"placeholder"`
}

// PlaceholderRound synthesizes a record for a round id that has no account,
// shifting the current round's timestamps back by whole round durations.
func PlaceholderRound(id, currentID uint64, current *Round) Round {
	r := Round{ID: id}
	if current == nil || id > currentID {
		return r
	}
	offset := time.Duration(currentID-id) * RoundDuration
	if current.StartTime != nil {
		t := current.StartTime.Add(-offset)
		r.StartTime = &t
	}
	if current.EndTime != nil {
		t := current.EndTime.Add(-offset)
		r.EndTime = &t
	}
	return r
}

// UserBet is a caller's single position in a round.
type UserBet struct {
	RoundID   uint64           `json:"roundId"`
	User      solana.PublicKey `json:"user"`
	Direction Direction        `json:"direction"`
	Amount    float64          `json:"amount"`
	Claimed   bool             `json:"claimed"`
}

// CanClaim reports whether bet can still be claimed for round.
func CanClaim(round Round, bet *UserBet) bool {
	if bet == nil || bet.Claimed {
		return false
	}
	return UserWon(round, *bet)
}

// UserWon reports whether bet is on the resolved winning side of round.
func UserWon(round Round, bet UserBet) bool {
	return round.Resolved() && bet.Direction == *round.Outcome
}
