// Package strategy evaluates the trend-following entry rule over daily bars.
package strategy

import (
	"github.com/shopspring/decimal"

	"emabot/internal/indicator"
	"emabot/internal/market"
)

// Reason classifies why a decision came out the way it did.
type Reason string

const (
	ConditionMet     Reason = "condition_met"
	ConditionNotMet  Reason = "condition_not_met"
	InsufficientData Reason = "insufficient_data"
)

// Decision is the result of one evaluation. Computed fresh every cycle,
// never persisted.
type Decision struct {
	ShouldAct bool
	// ReferencePrice is the latest close. The signal itself is taken from
	// the previous completed session, so execution references the current
	// price while the decision lags one day on purpose.
	ReferencePrice decimal.Decimal
	IndicatorValue decimal.Decimal
	Reason         Reason
}

// Engine applies the prior-close-above-prior-EMA rule.
type Engine struct {
	Period int
}

func NewEngine(period int) Engine {
	return Engine{Period: period}
}

// Evaluate decides on the second-to-last bar: buy when the prior session's
// close finished above the prior session's EMA. Deterministic for a fixed
// series; holds no state between calls.
func (e Engine) Evaluate(series market.Series) Decision {
	if len(series) < 2 {
		return Decision{Reason: InsufficientData}
	}

	ema, err := indicator.EMA(series.Closes(), e.Period)
	if err != nil {
		return Decision{Reason: InsufficientData}
	}

	priorClose := series[len(series)-2].Close
	priorEMA := ema[len(ema)-2]
	latestClose := series[len(series)-1].Close

	if priorClose.GreaterThan(priorEMA) {
		return Decision{
			ShouldAct:      true,
			ReferencePrice: latestClose,
			IndicatorValue: priorEMA,
			Reason:         ConditionMet,
		}
	}
	return Decision{
		ReferencePrice: latestClose,
		IndicatorValue: priorEMA,
		Reason:         ConditionNotMet,
	}
}
