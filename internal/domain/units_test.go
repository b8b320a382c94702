package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountToLedger_RoundTrip(t *testing.T) {
	lamports, err := AmountToLedger(0.25)
	require.NoError(t, err)
	assert.Equal(t, uint64(250000000), lamports)
	assert.Equal(t, 0.25, AmountFromLedger(lamports))

	lamports, err = AmountToLedger(0.005)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000000), lamports)

	lamports, err = AmountToLedger(0.1)
	require.NoError(t, err)
	assert.Equal(t, uint64(100000000), lamports, "no float drift")
}

func TestAmountToLedger_Invalid(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := AmountToLedger(v)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	_, err := AmountToLedger(-1)
	assert.ErrorIs(t, err, ErrPositionOutOfRange)
	_, err = AmountToLedger(1e20)
	assert.ErrorIs(t, err, ErrPositionOutOfRange)
}

func TestPriceFromLedger(t *testing.T) {
	assert.InDelta(t, 145.23, PriceFromLedger(14523000000), 1e-9)
	assert.Zero(t, PriceFromLedger(0))
}

func TestFeedPrice(t *testing.T) {
	assert.Equal(t, 145.23, FeedPrice(14523000000, -8))
	assert.Equal(t, 145.23, FeedPrice(14523456789, -8), "five significant digits")
	assert.Equal(t, 0.0, FeedPrice(0, -8))
}

func TestRoundSignificant(t *testing.T) {
	assert.Equal(t, 1234.6, RoundSignificant(1234.56, 5))
	assert.Equal(t, 0.00012346, RoundSignificant(0.000123456, 5))
	assert.True(t, math.IsNaN(RoundSignificant(math.NaN(), 5)))
}
