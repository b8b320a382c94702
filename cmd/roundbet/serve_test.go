package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/roundbet/internal/adapters/notify"
	"github.com/alejandrodnm/roundbet/internal/application/reconcile"
	"github.com/alejandrodnm/roundbet/internal/domain"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPrintConsole_ViewsAndPrices(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := &syncBuffer{}
	a := &app{
		views:   reconcile.NewViewStore(),
		console: notify.NewConsoleWriter(out, func() time.Time { return now }),
	}

	open := 145.0
	a.views.Replace(domain.View{
		State:   domain.GlobalState{CurrentRoundID: 7, NextRoundID: 8},
		Current: &domain.Round{ID: 7, IsActive: true, StartPrice: &open},
	})

	prices := make(chan domain.Price, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		printConsole(ctx, a, prices)
	}()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "round 7 live")
	}, time.Second, 10*time.Millisecond)

	prices <- domain.Price{Value: 146.5, EmittedAt: now}
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "SOL/USD $146.5000 | open $145.0000 +1.5000 (Up)")
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("printConsole did not stop on cancel")
	}
}

func TestPrintConsole_NoPriceFeed(t *testing.T) {
	out := &syncBuffer{}
	a := &app{views: reconcile.NewViewStore(), console: notify.NewConsoleWriter(out, nil)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		printConsole(ctx, a, nil)
	}()

	a.views.Replace(domain.View{State: domain.GlobalState{CurrentRoundID: 3, NextRoundID: 4}})
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "round 3 live")
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
