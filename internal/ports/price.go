package ports

import (
	"context"

	"github.com/alejandrodnm/roundbet/internal/domain"
)

// PriceSubscription is a push stream of raw price ticks for one feed.
type PriceSubscription interface {
	// Ticks is closed when the subscription ends.
	Ticks() <-chan domain.PriceTick

	// Close unsubscribes from the upstream feed.
	Close() error
}

// PriceStream opens price subscriptions.
type PriceStream interface {
	SubscribePrice(ctx context.Context, feedID string) (PriceSubscription, error)
}
