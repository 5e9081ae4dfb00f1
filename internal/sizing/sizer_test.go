package sizing

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSizer() Sizer {
	return New(zerolog.Nop())
}

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestSharesFloorsTheAllocation(t *testing.T) {
	qty, err := newSizer().Shares(d(10000), d(0.1), d(50))
	require.NoError(t, err)
	assert.Equal(t, int64(20), qty)
}

func TestSharesFloorsFractionalResult(t *testing.T) {
	// 10000*0.1/51 = 19.6..., floored to 19
	qty, err := newSizer().Shares(d(10000), d(0.1), d(51))
	require.NoError(t, err)
	assert.Equal(t, int64(19), qty)
}

func TestSharesClampsZeroFloorToOne(t *testing.T) {
	qty, err := newSizer().Shares(d(100), d(0.1), d(50))
	require.NoError(t, err)
	assert.Equal(t, int64(1), qty)
}

func TestSharesZeroEquityStillBuysOne(t *testing.T) {
	qty, err := newSizer().Shares(d(0), d(0.5), d(10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), qty)
}

func TestSharesFullAllocation(t *testing.T) {
	qty, err := newSizer().Shares(d(500), d(1), d(50))
	require.NoError(t, err)
	assert.Equal(t, int64(10), qty)
}

func TestSharesInvalidInputs(t *testing.T) {
	s := newSizer()

	_, err := s.Shares(d(1000), d(0.1), d(0))
	assert.Error(t, err, "zero price")

	_, err = s.Shares(d(1000), d(0.1), d(-5))
	assert.Error(t, err, "negative price")

	_, err = s.Shares(d(-1), d(0.1), d(50))
	assert.Error(t, err, "negative equity")

	_, err = s.Shares(d(1000), d(0), d(50))
	assert.Error(t, err, "zero fraction")

	_, err = s.Shares(d(1000), d(1.01), d(50))
	assert.Error(t, err, "fraction above 1")
}
