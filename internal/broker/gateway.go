// Package broker abstracts the brokerage the scheduler trades through.
package broker

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"emabot/internal/market"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderStatus is the scheduler's view of an order's lifecycle.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusFilled    OrderStatus = "filled"
	StatusCancelled OrderStatus = "cancelled"
	StatusRejected  OrderStatus = "rejected"
)

// Terminal reports whether the order will not change state again.
func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusRejected
}

// OrderHandle identifies a submitted order for later polling.
type OrderHandle struct {
	ID            string
	ClientOrderID string
}

// OrderUpdate is one observation of an order's state.
type OrderUpdate struct {
	Status         OrderStatus
	FilledAvgPrice decimal.Decimal
}

var (
	ErrNotConnected = errors.New("broker: not connected")
	ErrNoQuote      = errors.New("broker: no quote available")
)

// Gateway is the narrow interface the scheduler consumes. Each cycle owns
// the connection exclusively: Connect at the start, Disconnect before the
// loop sleeps again. Every method honors its context for cancellation and
// is bounded by the gateway's own request timeouts.
type Gateway interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	Disconnect()
	HistoricalBars(ctx context.Context, symbol string, lookbackDays int) (market.Series, error)
	LatestQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
	AccountEquity(ctx context.Context) (decimal.Decimal, error)
	PlaceMarketOrder(ctx context.Context, symbol string, qty int64, side Side) (OrderHandle, error)
	OrderStatus(ctx context.Context, handle OrderHandle) (OrderUpdate, error)
}
