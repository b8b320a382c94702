package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/roundbet/internal/adapters/notify"
	"github.com/alejandrodnm/roundbet/internal/domain"
	"github.com/alejandrodnm/roundbet/internal/ports"
)

var fixedNow = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func makeRound(id uint64, active bool) domain.Round {
	start := fixedNow.Add(-30 * time.Minute)
	end := start.Add(domain.RoundDuration)
	return domain.Round{
		ID:            id,
		StartTime:     &start,
		EndTime:       &end,
		StartPrice:    ptr(145.23),
		TotalBetsUp:   1.5,
		TotalBetsDown: 0.5,
		TotalPool:     2,
		IsActive:      active,
	}
}

func TestConsole_NotifyView(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, func() time.Time { return fixedNow })

	current := makeRound(7, true)
	next := domain.Round{ID: 8}
	resolved := makeRound(6, false)
	resolved.Outcome = ptr(domain.DirectionUp)
	resolved.EndPrice = ptr(146.0)

	view := domain.View{
		State:   domain.GlobalState{CurrentRoundID: 7, NextRoundID: 8},
		Current: &current,
		Next:    &next,
		Expired: []domain.ExpiredRound{
			{Round: domain.Round{ID: 5}, Placeholder: true},
			{Round: resolved},
		},
		Seq: 3,
	}

	require.NoError(t, n.NotifyView(context.Background(), view))

	out := buf.String()
	assert.Contains(t, out, "round 7 live, round 8 open for bets")
	assert.Contains(t, out, "LIVE")
	assert.Contains(t, out, "NEXT")
	assert.Contains(t, out, "MISSING")
	assert.Contains(t, out, "145.2300")
	assert.Contains(t, out, "1.33x", "pool 2 / up 1.5")
	assert.Contains(t, out, "30:00", "time left on the live round")
}

func TestConsole_NotifyView_NotSynced(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, func() time.Time { return fixedNow })

	require.NoError(t, n.NotifyView(context.Background(), domain.View{}))
	assert.Contains(t, buf.String(), "not synced yet")
}

func TestConsole_NotifyHistory(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, nil)

	won := makeRound(6, false)
	won.Outcome = ptr(domain.DirectionUp)
	lost := makeRound(3, false)
	lost.Outcome = ptr(domain.DirectionDown)

	page := domain.HistoryPage{
		Entries: []domain.HistoryEntry{
			domain.NewHistoryEntry(won, domain.UserBet{RoundID: 6, Direction: domain.DirectionUp, Amount: 0.5}),
			domain.NewHistoryEntry(lost, domain.UserBet{RoundID: 3, Direction: domain.DirectionUp, Amount: 0.25}),
		},
		NextOffset: 5,
	}
	require.NoError(t, n.NotifyHistory(context.Background(), page))

	out := buf.String()
	assert.Contains(t, out, "WON")
	assert.Contains(t, out, "LOST")
	assert.Contains(t, out, "CLAIMABLE")
	assert.Contains(t, out, "--offset 5")
}

func TestConsole_NotifyHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, nil)

	require.NoError(t, n.NotifyHistory(context.Background(), domain.HistoryPage{Scanned: 12, Exhausted: true}))
	assert.Contains(t, buf.String(), "No bets found")
}

var _ ports.Notifier = (*notify.Console)(nil)
