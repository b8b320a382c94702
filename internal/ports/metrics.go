package ports

import (
	"time"

	"github.com/alejandrodnm/roundbet/internal/domain"
)

// Metrics receives operational counters from the application services.
type Metrics interface {
	ObserveResync(d time.Duration, err error)
	ObservePriceTick(emitted bool)
	ObserveSubmission(kind domain.TxKind, status domain.TxStatus)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ObserveResync(time.Duration, error)               {}
func (NopMetrics) ObservePriceTick(bool)                            {}
func (NopMetrics) ObserveSubmission(domain.TxKind, domain.TxStatus) {}
