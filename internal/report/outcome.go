// Package report defines the per-cycle execution outcome record and the
// daily aggregates built from it.
package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action classifies what a scheduler cycle did.
type Action string

const (
	ActionBuy              Action = "BUY"
	ActionHold             Action = "HOLD"
	ActionConnectionFailed Action = "CONNECTION_FAILED"
	ActionDataUnavailable  Action = "DATA_UNAVAILABLE"
	ActionOrderFailed      Action = "ORDER_FAILED"
	ActionInternalError    Action = "INTERNAL_ERROR"
)

// Completed reports whether the action counts as the day's execution.
// Connection and data failures are retryable the same day; a definitive
// buy or hold decision is not.
func (a Action) Completed() bool {
	return a == ActionBuy || a == ActionHold
}

// Outcome is one scheduler cycle's result, consumed by the notifier and
// the journal.
type Outcome struct {
	Timestamp      time.Time       `json:"timestamp"`
	Action         Action          `json:"action"`
	Status         string          `json:"status"`
	Quantity       int64           `json:"quantity"`
	Amount         decimal.Decimal `json:"amount"`
	Price          decimal.Decimal `json:"price"`
	IndicatorValue decimal.Decimal `json:"indicator_value"`
	AccountBalance decimal.Decimal `json:"account_balance"`
	Notes          string          `json:"notes,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}

// DailySummary aggregates the day's completed outcomes for the summary
// notification.
type DailySummary struct {
	Date          time.Time
	TotalCycles   int
	BuyCount      int
	HoldCount     int
	TotalQuantity int64
	TotalAmount   decimal.Decimal
	AveragePrice  decimal.Decimal
	LastBalance   decimal.Decimal
}

// Summarize folds a day's outcomes into a DailySummary. The average price
// is quantity-weighted over buys; zero when nothing was bought.
func Summarize(date time.Time, outcomes []Outcome) DailySummary {
	summary := DailySummary{
		Date:        date,
		TotalCycles: len(outcomes),
		TotalAmount: decimal.Zero,
	}
	weighted := decimal.Zero
	for _, o := range outcomes {
		switch o.Action {
		case ActionBuy:
			summary.BuyCount++
			summary.TotalQuantity += o.Quantity
			summary.TotalAmount = summary.TotalAmount.Add(o.Amount)
			weighted = weighted.Add(o.Price.Mul(decimal.NewFromInt(o.Quantity)))
		case ActionHold:
			summary.HoldCount++
		}
		if !o.AccountBalance.IsZero() {
			summary.LastBalance = o.AccountBalance
		}
	}
	if summary.TotalQuantity > 0 {
		summary.AveragePrice = weighted.Div(decimal.NewFromInt(summary.TotalQuantity))
	}
	return summary
}
