package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emabot/internal/broker"
	"emabot/internal/config"
	"emabot/internal/market"
	"emabot/internal/report"
	"emabot/internal/state"
)

// fakeGateway scripts broker behavior for one test.
type fakeGateway struct {
	mu sync.Mutex

	connectErr error
	series     market.Series
	barsErr    error
	equity     decimal.Decimal
	equityErr  error
	quote      decimal.Decimal
	quoteErr   error
	placeErr   error
	update     broker.OrderUpdate
	updateErr  error

	connected   bool
	connects    int
	disconnects int
	orders      int
	lastQty     int64
}

func (f *fakeGateway) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeGateway) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeGateway) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.connected = false
}

func (f *fakeGateway) HistoricalBars(context.Context, string, int) (market.Series, error) {
	return f.series, f.barsErr
}

func (f *fakeGateway) LatestQuote(context.Context, string) (decimal.Decimal, error) {
	return f.quote, f.quoteErr
}

func (f *fakeGateway) AccountEquity(context.Context) (decimal.Decimal, error) {
	return f.equity, f.equityErr
}

func (f *fakeGateway) PlaceMarketOrder(_ context.Context, _ string, qty int64, _ broker.Side) (broker.OrderHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return broker.OrderHandle{}, f.placeErr
	}
	f.orders++
	f.lastQty = qty
	return broker.OrderHandle{ID: "order-1"}, nil
}

func (f *fakeGateway) OrderStatus(context.Context, broker.OrderHandle) (broker.OrderUpdate, error) {
	return f.update, f.updateErr
}

// fakeNotifier records everything it is handed.
type fakeNotifier struct {
	mu        sync.Mutex
	outcomes  []report.Outcome
	summaries []report.DailySummary
	failures  []string
}

func (f *fakeNotifier) Notify(o report.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, o)
}

func (f *fakeNotifier) NotifyDailySummary(s report.DailySummary, _ []report.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, s)
}

func (f *fakeNotifier) NotifyFailure(d string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, d)
}

func testConfig() config.Config {
	return config.Config{
		Symbol:               "TQQQ",
		Timezone:             "UTC",
		ToleranceMinutes:     5,
		EMAPeriod:            20,
		AllocationFraction:   0.1,
		LookbackDays:         30,
		CheckInterval:        time.Minute,
		ErrorCooldown:        time.Millisecond,
		ConnectTimeout:       time.Second,
		OrderWait:            time.Minute,
		OrderPollInterval:    time.Millisecond,
		QuoteFallbackToClose: true,
		TriggerAt:            config.TimeOfDay{Hour: 21, Minute: 20},
		SummaryAt:            config.TimeOfDay{Hour: 22, Minute: 0},
		Location:             time.UTC,
	}
}

func uptrendSeries() market.Series {
	series := make(market.Series, 0, 21)
	for i := 0; i <= 20; i++ {
		series = append(series, market.Bar{
			Date:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Close: decimal.NewFromInt(int64(100 + i)),
		})
	}
	return series
}

func downtrendSeries() market.Series {
	series := make(market.Series, 0, 21)
	for i := 0; i <= 20; i++ {
		series = append(series, market.Bar{
			Date:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Close: decimal.NewFromInt(int64(120 - i)),
		})
	}
	return series
}

func newTestScheduler(gw *fakeGateway, n *fakeNotifier) (*Scheduler, *state.Store) {
	store := state.NewStore()
	s := New(testConfig(), gw, n, store, nil, zerolog.Nop())
	return s, store
}

func filledGateway() *fakeGateway {
	return &fakeGateway{
		series: uptrendSeries(),
		equity: decimal.NewFromInt(10000),
		quote:  decimal.NewFromInt(50),
		update: broker.OrderUpdate{Status: broker.StatusFilled, FilledAvgPrice: decimal.NewFromInt(50)},
	}
}

func TestCycleBuysOnUptrend(t *testing.T) {
	gw := filledGateway()
	n := &fakeNotifier{}
	s, store := newTestScheduler(gw, n)
	s.now = func() time.Time { return clockAt(21, 20) }

	s.wake(context.Background())

	assert.Equal(t, 1, gw.orders)
	assert.Equal(t, int64(20), gw.lastQty, "10000 * 0.1 / 50")
	assert.True(t, store.ExecutedOn(clockAt(21, 20)))
	assert.Equal(t, 1, gw.disconnects, "connection torn down after the cycle")

	history := store.History()
	require.Len(t, history, 1)
	assert.Equal(t, report.ActionBuy, history[0].Action)
	assert.Equal(t, "Filled", history[0].Status)
	assert.Equal(t, int64(20), history[0].Quantity)

	require.Len(t, n.outcomes, 1)
	assert.Empty(t, n.failures)
}

func TestExactlyOncePerDay(t *testing.T) {
	gw := filledGateway()
	n := &fakeNotifier{}
	s, store := newTestScheduler(gw, n)

	// Two wakes inside the same day's tolerance window.
	for _, minute := range []int{20, 22} {
		m := minute
		s.now = func() time.Time { return clockAt(21, m) }
		s.wake(context.Background())
	}

	assert.Equal(t, 1, gw.orders, "second wake must not re-execute")
	assert.Equal(t, 1, gw.connects)
	assert.Len(t, store.History(), 1)
}

func TestHoldIsACompletedCycle(t *testing.T) {
	gw := filledGateway()
	gw.series = downtrendSeries()
	n := &fakeNotifier{}
	s, store := newTestScheduler(gw, n)
	s.now = func() time.Time { return clockAt(21, 20) }

	s.wake(context.Background())

	assert.Equal(t, 0, gw.orders)
	assert.True(t, store.ExecutedOn(clockAt(21, 20)), "a no-trade decision still closes the day")

	history := store.History()
	require.Len(t, history, 1)
	assert.Equal(t, report.ActionHold, history[0].Action)
	assert.Equal(t, int64(0), history[0].Quantity)
}

func TestConnectionFailureRetriesSameDay(t *testing.T) {
	gw := filledGateway()
	gw.connectErr = errors.New("connection refused")
	n := &fakeNotifier{}
	s, store := newTestScheduler(gw, n)
	s.now = func() time.Time { return clockAt(21, 20) }

	s.wake(context.Background())

	assert.False(t, store.ExecutedOn(clockAt(21, 20)), "connect failure must not close the day")
	assert.Empty(t, store.History())
	require.Len(t, n.failures, 1)
	assert.Contains(t, n.failures[0], "connect")

	// The broker comes back within the window; the retry completes the day.
	gw.connectErr = nil
	s.now = func() time.Time { return clockAt(21, 23) }
	s.wake(context.Background())

	assert.True(t, store.ExecutedOn(clockAt(21, 23)))
	assert.Equal(t, 1, gw.orders)
}

func TestDataFailureRetriesSameDay(t *testing.T) {
	gw := filledGateway()
	gw.barsErr = errors.New("no data farm connection")
	n := &fakeNotifier{}
	s, store := newTestScheduler(gw, n)
	s.now = func() time.Time { return clockAt(21, 20) }

	s.wake(context.Background())

	assert.False(t, store.ExecutedOn(clockAt(21, 20)))
	assert.Equal(t, 1, gw.disconnects, "disconnect even on failure")
	require.Len(t, n.failures, 1)
}

func TestShortSeriesIsDataUnavailable(t *testing.T) {
	gw := filledGateway()
	gw.series = uptrendSeries()[:1]
	n := &fakeNotifier{}
	s, store := newTestScheduler(gw, n)
	s.now = func() time.Time { return clockAt(21, 20) }

	s.wake(context.Background())

	assert.False(t, store.ExecutedOn(clockAt(21, 20)))
	require.Len(t, n.failures, 1)
	assert.Contains(t, n.failures[0], "insufficient history")
}

func TestNonPositiveEquityRetries(t *testing.T) {
	gw := filledGateway()
	gw.equity = decimal.Zero
	n := &fakeNotifier{}
	s, store := newTestScheduler(gw, n)
	s.now = func() time.Time { return clockAt(21, 20) }

	s.wake(context.Background())

	assert.Equal(t, 0, gw.orders)
	assert.False(t, store.ExecutedOn(clockAt(21, 20)))
}

func TestQuoteFallbackToLatestClose(t *testing.T) {
	gw := filledGateway()
	gw.quote = decimal.Zero
	gw.quoteErr = errors.New("no market data subscription")
	n := &fakeNotifier{}
	s, _ := newTestScheduler(gw, n)
	s.now = func() time.Time { return clockAt(21, 20) }

	s.wake(context.Background())

	// Latest close is 120: 10000 * 0.1 / 120 = 8 shares.
	assert.Equal(t, 1, gw.orders)
	assert.Equal(t, int64(8), gw.lastQty)
}

func TestQuoteFailureWithoutFallbackRetries(t *testing.T) {
	gw := filledGateway()
	gw.quoteErr = errors.New("no market data subscription")
	n := &fakeNotifier{}
	s, store := newTestScheduler(gw, n)
	s.cfg.QuoteFallbackToClose = false
	s.now = func() time.Time { return clockAt(21, 20) }

	s.wake(context.Background())

	assert.Equal(t, 0, gw.orders)
	assert.False(t, store.ExecutedOn(clockAt(21, 20)))
}

func TestRejectedOrderStillClosesTheDay(t *testing.T) {
	gw := filledGateway()
	gw.update = broker.OrderUpdate{Status: broker.StatusRejected}
	n := &fakeNotifier{}
	s, store := newTestScheduler(gw, n)
	s.now = func() time.Time { return clockAt(21, 20) }

	s.wake(context.Background())

	assert.True(t, store.ExecutedOn(clockAt(21, 20)), "acted-on decision is terminal for the day")
	history := store.History()
	require.Len(t, history, 1)
	assert.Equal(t, report.ActionBuy, history[0].Action)
	assert.Equal(t, "Failed", history[0].Status)
	require.NotEmpty(t, n.failures)
}

func TestSubmitFailureClosesTheDay(t *testing.T) {
	gw := filledGateway()
	gw.placeErr = errors.New("rejected by broker")
	n := &fakeNotifier{}
	s, store := newTestScheduler(gw, n)
	s.now = func() time.Time { return clockAt(21, 20) }

	s.wake(context.Background())

	assert.True(t, store.ExecutedOn(clockAt(21, 20)))
	assert.Empty(t, store.History(), "a failed submission is not a completed trade")
	require.NotEmpty(t, n.failures)
}

func TestOrderWaitTimeoutProducesFailedBuy(t *testing.T) {
	gw := filledGateway()
	gw.update = broker.OrderUpdate{Status: broker.StatusPending}
	n := &fakeNotifier{}
	s, store := newTestScheduler(gw, n)

	// Advance the fake clock on every read so the bounded wait expires.
	current := clockAt(21, 20)
	s.now = func() time.Time {
		current = current.Add(30 * time.Second)
		return current
	}

	s.wake(context.Background())

	assert.True(t, store.ExecutedOn(current))
	history := store.History()
	require.Len(t, history, 1)
	assert.Equal(t, "Failed", history[0].Status)
	assert.Contains(t, history[0].ErrorMessage, "terminal state")
}

func TestOutsideWindowDoesNothing(t *testing.T) {
	gw := filledGateway()
	n := &fakeNotifier{}
	s, store := newTestScheduler(gw, n)
	s.now = func() time.Time { return clockAt(21, 26) }

	s.wake(context.Background())

	assert.Equal(t, 0, gw.connects)
	assert.False(t, store.ExecutedOn(clockAt(21, 26)))

	// Next wake is computed for tomorrow's trigger, capped by the
	// re-check interval.
	sleep := s.sleepUntilNextEvent(clockAt(22, 30))
	assert.Equal(t, time.Minute, sleep)
}

func TestSleepUntilNextEventUsesNearestEvent(t *testing.T) {
	gw := filledGateway()
	s, _ := newTestScheduler(gw, &fakeNotifier{})
	s.cfg.CheckInterval = 12 * time.Hour

	// 21:10: trigger at 21:20 is the nearest event.
	assert.Equal(t, 10*time.Minute, s.sleepUntilNextEvent(clockAt(21, 10)))

	// 21:40: summary at 22:00 is nearer than tomorrow's trigger.
	assert.Equal(t, 20*time.Minute, s.sleepUntilNextEvent(clockAt(21, 40)))
}

func TestSummaryGateDispatchesOncePerDay(t *testing.T) {
	gw := filledGateway()
	n := &fakeNotifier{}
	s, store := newTestScheduler(gw, n)

	store.Append(report.Outcome{Action: report.ActionBuy, Quantity: 20,
		Price: decimal.NewFromInt(50), Amount: decimal.NewFromInt(1000)})

	for _, minute := range []int{1, 30} {
		m := minute
		s.now = func() time.Time { return clockAt(22, m) }
		s.wake(context.Background())
	}

	require.Len(t, n.summaries, 1)
	assert.Equal(t, 1, n.summaries[0].BuyCount)
	assert.Empty(t, store.History(), "history cleared at the cutover")
}

func TestSummaryNotSentBeforeSummaryTime(t *testing.T) {
	gw := filledGateway()
	n := &fakeNotifier{}
	s, _ := newTestScheduler(gw, n)
	s.now = func() time.Time { return clockAt(12, 0) }

	s.wake(context.Background())

	assert.Empty(t, n.summaries)
}

func TestPanicIsRecoveredAndReported(t *testing.T) {
	gw := filledGateway()
	n := &fakeNotifier{}
	s, _ := newTestScheduler(gw, n)
	s.now = func() time.Time { return clockAt(21, 20) }
	s.gateway = panicGateway{fakeGateway: gw}

	cooldown := s.wake(context.Background())

	assert.True(t, cooldown)
	require.Len(t, n.failures, 1)
	assert.Contains(t, n.failures[0], "internal error")
}

func TestRunStopsOnCancel(t *testing.T) {
	gw := filledGateway()
	s, _ := newTestScheduler(gw, &fakeNotifier{})
	s.now = func() time.Time { return clockAt(3, 0) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancellation")
	}
}

type panicGateway struct {
	*fakeGateway
}

func (p panicGateway) HistoricalBars(context.Context, string, int) (market.Series, error) {
	panic("corrupted bar payload")
}
