package ports

import (
	"context"

	"github.com/alejandrodnm/roundbet/internal/domain"
)

// Notifier presents round state and history to the operator.
type Notifier interface {
	NotifyView(ctx context.Context, view domain.View) error
	NotifyHistory(ctx context.Context, page domain.HistoryPage) error
}
