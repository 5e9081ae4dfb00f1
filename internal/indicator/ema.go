// Package indicator computes technical indicators over price series.
package indicator

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientData = errors.New("indicator: empty input series")
	ErrInvalidPeriod    = errors.New("indicator: period must be >= 1")
)

// EMA returns the exponential moving average of values, one output per
// input. The recursion is seeded with the first value directly (the
// "unadjusted" convention): ema[0] = values[0] and
// ema[i] = values[i]*k + ema[i-1]*(1-k) with k = 2/(period+1).
// There is no warm-up suppression; values before index period-1 are
// defined but still dominated by the seed.
func EMA(values []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if period < 1 {
		return nil, ErrInvalidPeriod
	}
	if len(values) == 0 {
		return nil, ErrInsufficientData
	}

	k := decimal.New(2, 0).Div(decimal.NewFromInt(int64(period) + 1))
	oneMinusK := decimal.New(1, 0).Sub(k)

	out := make([]decimal.Decimal, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i].Mul(k).Add(out[i-1].Mul(oneMinusK))
	}
	return out, nil
}
