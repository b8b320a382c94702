// Package price turns the raw price feed into a throttled, display-ready price.
package price

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/roundbet/internal/domain"
	"github.com/alejandrodnm/roundbet/internal/ports"
)

// SOLUSDFeedID is the SOL/USD feed the program settles against.
const SOLUSDFeedID = "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"

// Config controls emission rate and freshness.
type Config struct {
	FeedID   string
	Interval time.Duration // minimum time between two emitted prices
	MaxAge   time.Duration // ticks published longer ago than this are dropped
}

// DefaultConfig returns a 3s interval and a 20s freshness window on SOL/USD.
func DefaultConfig() Config {
	return Config{
		FeedID:   SOLUSDFeedID,
		Interval: 3 * time.Second,
		MaxAge:   20 * time.Second,
	}
}

// Throttler emits at most one price per Interval. Dropped ticks are not
// buffered: the next emission is whatever tick arrives after the interval.
type Throttler struct {
	cfg     Config
	limiter *rate.Limiter
	metrics ports.Metrics
	now     func() time.Time

	mu     sync.RWMutex
	latest domain.Price
	has    bool

	out chan domain.Price
}

// NewThrottler crea un Throttler. metrics may be nil.
func NewThrottler(cfg Config, metrics ports.Metrics) *Throttler {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Throttler{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
		metrics: metrics,
		now:     time.Now,
		out:     make(chan domain.Price, 1),
	}
}

// SetClock replaces the wall clock. Call before the first Offer.
func (t *Throttler) SetClock(now func() time.Time) {
	t.now = now
}

// Offer runs one tick through the freshness check and the rate limit. It
// reports the emitted price, if any.
func (t *Throttler) Offer(tick domain.PriceTick) (domain.Price, bool) {
	now := t.now()

	// stale ticks never consume the interval
	if t.cfg.MaxAge > 0 && tick.Age(now) > t.cfg.MaxAge {
		slog.Debug("price: stale tick dropped", "age", tick.Age(now), "publish_time", tick.PublishTime)
		t.metrics.ObservePriceTick(false)
		return domain.Price{}, false
	}
	if !t.limiter.AllowN(now, 1) {
		t.metrics.ObservePriceTick(false)
		return domain.Price{}, false
	}

	p := domain.Price{
		Value:       domain.FeedPrice(tick.Raw, tick.Expo),
		PublishTime: tick.PublishTime,
		EmittedAt:   now,
	}
	t.mu.Lock()
	t.latest, t.has = p, true
	t.mu.Unlock()
	t.publish(p)
	t.metrics.ObservePriceTick(true)
	return p, true
}

// Latest returns the last emitted price.
func (t *Throttler) Latest() (domain.Price, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest, t.has
}

// Prices delivers emitted prices; only the newest undelivered one is kept.
func (t *Throttler) Prices() <-chan domain.Price {
	return t.out
}

// Run consumes sub until ctx is done or the feed ends, then unsubscribes.
func (t *Throttler) Run(ctx context.Context, sub ports.PriceSubscription) error {
	defer func() {
		if err := sub.Close(); err != nil {
			slog.Warn("price: unsubscribe failed", "err", err)
		}
	}()

	slog.Info("price: throttler running", "feed", t.cfg.FeedID, "interval", t.cfg.Interval, "max_age", t.cfg.MaxAge)
	for {
		select {
		case <-ctx.Done():
			return nil
		case tick, ok := <-sub.Ticks():
			if !ok {
				slog.Info("price: feed closed")
				return nil
			}
			if p, emitted := t.Offer(tick); emitted {
				slog.Debug("price: emitted", "value", p.Value)
			}
		}
	}
}

func (t *Throttler) publish(p domain.Price) {
	for {
		select {
		case t.out <- p:
			return
		default:
		}
		select {
		case <-t.out:
		default:
		}
	}
}
