package domain

import (
	"math"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	// PriceDecimals is the implicit exponent of on-chain price fields.
	PriceDecimals = 8
	// AmountDecimals is the implicit exponent of lamport amounts (1 SOL = 1e9).
	AmountDecimals = 9

	// PriceSignificantDigits is the precision the price feed is published at.
	PriceSignificantDigits = 5
)

// PriceFromLedger converts a fixed-point program price to quote units.
func PriceFromLedger(raw int64) float64 {
	return decimal.New(raw, -PriceDecimals).InexactFloat64()
}

// AmountFromLedger converts lamports to SOL.
func AmountFromLedger(raw uint64) float64 {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -AmountDecimals).InexactFloat64()
}

// AmountToLedger converts a SOL amount to lamports. The conversion is exact for any
// amount with at most 9 decimals (0.25 → 250000000).
func AmountToLedger(amount float64) (uint64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	lamports := decimal.NewFromFloat(amount).Shift(AmountDecimals).Round(0)
	if lamports.IsNegative() {
		return 0, &ValidationError{Field: "amount", Err: ErrPositionOutOfRange}
	}
	bi := lamports.BigInt()
	if !bi.IsUint64() {
		return 0, &ValidationError{Field: "amount", Err: ErrPositionOutOfRange}
	}
	return bi.Uint64(), nil
}

// FeedPrice turns a (price, exponent) pair from the price feed into a decimal
// value, i.e. raw / 10^(-expo), rounded to PriceSignificantDigits.
func FeedPrice(raw int64, expo int32) float64 {
	return RoundSignificant(decimal.New(raw, expo).InexactFloat64(), PriceSignificantDigits)
}

// RoundSignificant rounds v to n significant digits.
func RoundSignificant(v float64, n int) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	out, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', n, 64), 64)
	if err != nil {
		return v
	}
	return out
}
