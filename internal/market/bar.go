// Package market holds the daily price data model shared by the decision
// engine and the broker gateway.
package market

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one completed daily session. Immutable once fetched.
type Bar struct {
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Series is a run of daily bars ordered ascending by date with no
// duplicate dates.
type Series []Bar

var ErrEmptySeries = errors.New("empty price series")

// Validate checks the ordering and uniqueness invariants.
func (s Series) Validate() error {
	if len(s) == 0 {
		return ErrEmptySeries
	}
	for i := 1; i < len(s); i++ {
		prev := dateOnly(s[i-1].Date)
		cur := dateOnly(s[i].Date)
		if !cur.After(prev) {
			return fmt.Errorf("series out of order at index %d: %s not after %s",
				i, cur.Format("2006-01-02"), prev.Format("2006-01-02"))
		}
	}
	return nil
}

// Closes returns the closing prices in series order.
func (s Series) Closes() []decimal.Decimal {
	closes := make([]decimal.Decimal, len(s))
	for i, bar := range s {
		closes[i] = bar.Close
	}
	return closes
}

// Last returns the most recent bar.
func (s Series) Last() (Bar, error) {
	if len(s) == 0 {
		return Bar{}, ErrEmptySeries
	}
	return s[len(s)-1], nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
