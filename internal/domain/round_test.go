package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dirPtr(d Direction) *Direction { return &d }

// --- CanClaim ---

func TestCanClaim_TruthTable(t *testing.T) {
	up, down := DirectionUp, DirectionDown
	tests := []struct {
		name    string
		active  bool
		outcome *Direction
		bet     *UserBet
		want    bool
	}{
		{name: "winner unclaimed", outcome: &up, bet: &UserBet{Direction: up}, want: true},
		{name: "loser", outcome: &up, bet: &UserBet{Direction: down}},
		{name: "already claimed", outcome: &up, bet: &UserBet{Direction: up, Claimed: true}},
		{name: "no bet", outcome: &up},
		{name: "still active", active: true, bet: &UserBet{Direction: up}},
		{name: "inactive without outcome", bet: &UserBet{Direction: up}},
		{name: "down wins", outcome: &down, bet: &UserBet{Direction: down}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Round{ID: 1, IsActive: tt.active, Outcome: tt.outcome}
			assert.Equal(t, tt.want, CanClaim(r, tt.bet))
		})
	}
}

// --- PlaceholderRound ---

func TestPlaceholderRound_ShiftsTimestamps(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(RoundDuration)
	current := &Round{ID: 10, StartTime: &start, EndTime: &end, IsActive: true}

	p := PlaceholderRound(8, 10, current)

	assert.Equal(t, uint64(8), p.ID)
	require.NotNil(t, p.StartTime)
	require.NotNil(t, p.EndTime)
	assert.Equal(t, start.Add(-2*time.Hour), *p.StartTime)
	assert.Equal(t, end.Add(-2*time.Hour), *p.EndTime)
	assert.False(t, p.IsActive)
	assert.Nil(t, p.Outcome)
	assert.Zero(t, p.TotalPool)
}

func TestPlaceholderRound_WithoutCurrent(t *testing.T) {
	p := PlaceholderRound(3, 5, nil)
	assert.Equal(t, uint64(3), p.ID)
	assert.Nil(t, p.StartTime)
	assert.Nil(t, p.EndTime)
}

// --- TimeLeft ---

func TestRound_TimeLeft(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(90*time.Second + 400*time.Millisecond)
	r := Round{EndTime: &end}

	assert.Equal(t, 90*time.Second, r.TimeLeft(now))
	assert.Zero(t, r.TimeLeft(end.Add(time.Second)), "never negative")
	assert.Zero(t, Round{}.TimeLeft(now), "no end time")
}

// --- payouts ---

func TestRound_PayoutMultiplier(t *testing.T) {
	r := Round{TotalBetsUp: 3, TotalBetsDown: 1, TotalPool: 4}
	assert.InDelta(t, 4.0/3.0, r.PayoutMultiplier(DirectionUp), 1e-9)
	assert.InDelta(t, 4.0, r.PayoutMultiplier(DirectionDown), 1e-9)

	empty := Round{TotalBetsUp: 2, TotalPool: 2}
	assert.Zero(t, empty.PayoutMultiplier(DirectionDown))
}

func TestRound_EstimatedPayout(t *testing.T) {
	r := Round{TotalBetsUp: 3, TotalBetsDown: 1, TotalPool: 4, Outcome: dirPtr(DirectionDown)}

	assert.InDelta(t, 4.0, r.EstimatedPayout(UserBet{Direction: DirectionDown, Amount: 1}), 1e-9)
	assert.Zero(t, r.EstimatedPayout(UserBet{Direction: DirectionUp, Amount: 3}), "lost")

	r.IsActive = true
	assert.Zero(t, r.EstimatedPayout(UserBet{Direction: DirectionDown, Amount: 1}), "unresolved")
}

// --- Direction ---

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection(" UP ")
	require.NoError(t, err)
	assert.Equal(t, DirectionUp, d)

	d, err = ParseDirection("down")
	require.NoError(t, err)
	assert.Equal(t, DirectionDown, d)

	_, err = ParseDirection("flat")
	assert.ErrorIs(t, err, ErrInvalidDirection)
	assert.True(t, IsValidation(err))
}

func TestDirection_Text(t *testing.T) {
	b, err := DirectionDown.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Down", string(b))

	var d Direction
	require.NoError(t, d.UnmarshalText([]byte("Up")))
	assert.Equal(t, DirectionUp, d)
	assert.False(t, Direction(7).Valid())
}
