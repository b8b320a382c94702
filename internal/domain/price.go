package domain

import "time"

// PriceTick is one raw update pushed by the price feed.
type PriceTick struct {
	FeedID      string
	Raw         int64
	Expo        int32
	PublishTime time.Time
	ReceivedAt  time.Time
}

// Age is how old the tick's price was at now.
func (t PriceTick) Age(now time.Time) time.Duration {
	return now.Sub(t.PublishTime)
}

// Price is a throttled, display-ready asset price.
type Price struct {
	Value       float64   `json:"value"`
	PublishTime time.Time `json:"publishTime"`
	EmittedAt   time.Time `json:"emittedAt"`
}

// PriceMove is the live price against the round's opening price.
type PriceMove struct {
	Open      float64   `json:"open"`
	Last      float64   `json:"last"`
	Change    float64   `json:"change"`
	Direction Direction `json:"direction"`
}

// NewPriceMove compares last against open. It returns false when the round has
// no start price yet. A flat price counts as Down, matching how the program
// settles ties.
func NewPriceMove(open *float64, last float64) (PriceMove, bool) {
	if open == nil {
		return PriceMove{}, false
	}
	m := PriceMove{Open: *open, Last: last, Change: last - *open, Direction: DirectionDown}
	if last > *open {
		m.Direction = DirectionUp
	}
	return m, true
}
