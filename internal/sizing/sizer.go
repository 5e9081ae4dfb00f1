// Package sizing converts account equity and a target allocation into a
// whole-share order quantity.
package sizing

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var one = decimal.New(1, 0)

type Sizer struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) Sizer {
	return Sizer{log: log.With().Str("component", "sizing").Logger()}
}

// Shares returns floor(equity*fraction/price) clamped up to 1. The clamp is
// policy: an undersized trade is still taken, never skipped. The clamp is
// logged at warn level because it means the allocation no longer bounds the
// order notional.
func (s Sizer) Shares(equity, fraction, price decimal.Decimal) (int64, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("sizing: price must be > 0, got %s", price)
	}
	if equity.IsNegative() {
		return 0, fmt.Errorf("sizing: equity must be >= 0, got %s", equity)
	}
	if fraction.LessThanOrEqual(decimal.Zero) || fraction.GreaterThan(one) {
		return 0, fmt.Errorf("sizing: fraction must be in (0,1], got %s", fraction)
	}

	target := equity.Mul(fraction)
	qty := target.Div(price).Floor().IntPart()
	if qty < 1 {
		s.log.Warn().
			Str("equity", equity.String()).
			Str("fraction", fraction.String()).
			Str("price", price.String()).
			Msg("computed quantity below one share, clamping to 1")
		qty = 1
	}

	s.log.Info().
		Int64("qty", qty).
		Str("target_notional", target.StringFixed(2)).
		Str("price", price.StringFixed(2)).
		Msg("position sized")
	return qty, nil
}
