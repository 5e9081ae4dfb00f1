package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func barOn(d int, close float64) Bar {
	return Bar{Date: day(d), Close: decimal.NewFromFloat(close)}
}

func TestValidateAcceptsOrderedSeries(t *testing.T) {
	s := Series{barOn(1, 10), barOn(2, 11), barOn(5, 12)}
	assert.NoError(t, s.Validate())
}

func TestValidateRejectsEmpty(t *testing.T) {
	assert.ErrorIs(t, Series{}.Validate(), ErrEmptySeries)
}

func TestValidateRejectsDuplicateDate(t *testing.T) {
	s := Series{barOn(1, 10), barOn(1, 11)}
	assert.Error(t, s.Validate())
}

func TestValidateRejectsDescendingDates(t *testing.T) {
	s := Series{barOn(2, 10), barOn(1, 11)}
	assert.Error(t, s.Validate())
}

func TestClosesAndLast(t *testing.T) {
	s := Series{barOn(1, 10), barOn(2, 11.5)}

	closes := s.Closes()
	require.Len(t, closes, 2)
	assert.True(t, closes[1].Equal(decimal.NewFromFloat(11.5)))

	last, err := s.Last()
	require.NoError(t, err)
	assert.Equal(t, day(2), last.Date)

	_, err = Series{}.Last()
	assert.ErrorIs(t, err, ErrEmptySeries)
}
