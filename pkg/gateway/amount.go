package gateway

import "github.com/shopspring/decimal"

// Money at rest is decimal yuan with two-decimal precision; money on the wire
// is integer fen. Conversion happens only at this boundary, both directions,
// and round-trips exactly for amounts with at most two decimal places.

// YuanToFen converts a yuan amount to integer fen, rounding to the nearest fen.
func YuanToFen(yuan decimal.Decimal) int64 {
	return yuan.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FenToYuan converts integer fen back to a yuan amount with fen precision.
func FenToYuan(fen int64) decimal.Decimal {
	return decimal.New(fen, -2)
}
