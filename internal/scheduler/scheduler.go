// Package scheduler owns the daily run loop: trigger-time arithmetic,
// once-per-day execution gating, retry classification, and the daily
// summary dispatch.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"emabot/internal/broker"
	"emabot/internal/config"
	"emabot/internal/report"
	"emabot/internal/sizing"
	"emabot/internal/state"
	"emabot/internal/strategy"
)

var errOrderWaitExpired = errors.New("order did not reach a terminal state in time")

// Scheduler drives one strictly sequential cycle per trigger. The broker
// connection is owned by the active cycle and torn down before the loop
// sleeps again.
type Scheduler struct {
	cfg      config.Config
	gateway  broker.Gateway
	engine   strategy.Engine
	sizer    sizing.Sizer
	notifier notifier
	store    *state.Store
	journal  *report.Journal
	log      zerolog.Logger

	// now is injectable so tests can steer the clock.
	now func() time.Time
}

// notifier is the slice of notify.Notifier the scheduler needs; declared
// locally so tests can fake it without importing the notify package.
type notifier interface {
	Notify(outcome report.Outcome)
	NotifyDailySummary(summary report.DailySummary, outcomes []report.Outcome)
	NotifyFailure(description string)
}

func New(cfg config.Config, gateway broker.Gateway, n notifier, store *state.Store, journal *report.Journal, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		gateway:  gateway,
		engine:   strategy.NewEngine(cfg.EMAPeriod),
		sizer:    sizing.New(log),
		notifier: n,
		store:    store,
		journal:  journal,
		log:      log.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
	}
}

// Run loops until the context is cancelled. Recoverable errors never
// terminate the loop; an unexpected panic is reported and followed by a
// cooldown before the next wake.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().
		Str("symbol", s.cfg.Symbol).
		Str("trigger", s.cfg.TriggerAt.String()).
		Str("summary", s.cfg.SummaryAt.String()).
		Str("timezone", s.cfg.Timezone).
		Msg("scheduler started")

	for {
		if ctx.Err() != nil {
			s.log.Info().Msg("scheduler stopping")
			return nil
		}

		cooldown := s.wake(ctx)

		var sleep time.Duration
		if cooldown {
			sleep = s.cfg.ErrorCooldown
		} else {
			sleep = s.sleepUntilNextEvent(s.localNow())
		}
		if err := waitFor(ctx, sleep); err != nil {
			s.log.Info().Msg("scheduler stopping")
			return nil
		}
	}
}

// wake is one pass of the loop: the summary gate first, then the trigger
// gate. Returns true when the pass panicked and the loop should cool down.
func (s *Scheduler) wake(ctx context.Context) (cooldown bool) {
	defer func() {
		if r := recover(); r != nil {
			now := s.localNow()
			outcome := report.Outcome{
				Timestamp:    now,
				Action:       report.ActionInternalError,
				Status:       "Panic",
				ErrorMessage: fmt.Sprint(r),
			}
			s.record(outcome)
			s.notifier.NotifyFailure(fmt.Sprintf("internal error: %v", r))
			s.log.Error().Interface("panic", r).Msg("cycle panicked, cooling down")
			cooldown = true
		}
	}()

	now := s.localNow()
	s.summaryGate(now)

	if withinWindow(now, s.cfg.TriggerAt, s.tolerance()) && !s.store.ExecutedOn(now) {
		s.runCycle(ctx, now)
	}
	return false
}

// summaryGate dispatches the daily aggregate once the summary time is
// reached, at most once per calendar day, and clears the history at the
// cutover.
func (s *Scheduler) summaryGate(now time.Time) {
	if now.Before(instantOn(now, s.cfg.SummaryAt)) || s.store.SummarySentOn(now) {
		return
	}

	outcomes := s.store.DrainHistory()
	summary := report.Summarize(now, outcomes)
	s.notifier.NotifyDailySummary(summary, outcomes)
	s.store.MarkSummarySent(now)
	s.log.Info().Int("cycles", summary.TotalCycles).Msg("daily summary dispatched")
}

// runCycle walks Connecting -> Evaluating -> Sizing -> Ordering ->
// Reporting. Connection and data failures leave the execution gate open
// for a same-day retry; a definitive buy or hold decision closes it.
func (s *Scheduler) runCycle(ctx context.Context, now time.Time) {
	s.log.Info().Str("symbol", s.cfg.Symbol).Msg("trigger reached, starting cycle")

	connectCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	err := s.gateway.Connect(connectCtx)
	cancel()
	if err != nil {
		s.retryableFailure(now, report.ActionConnectionFailed, "Disconnected",
			fmt.Sprintf("broker connect failed: %v", err))
		return
	}
	defer s.gateway.Disconnect()

	series, err := s.gateway.HistoricalBars(ctx, s.cfg.Symbol, s.cfg.LookbackDays)
	if err != nil {
		s.retryableFailure(now, report.ActionDataUnavailable, "NoData",
			fmt.Sprintf("historical bars unavailable: %v", err))
		return
	}

	decision := s.engine.Evaluate(series)
	if decision.Reason == strategy.InsufficientData {
		s.retryableFailure(now, report.ActionDataUnavailable, "NoData",
			fmt.Sprintf("insufficient history: %d bars for period %d", len(series), s.cfg.EMAPeriod))
		return
	}

	if !decision.ShouldAct {
		// A no-trade decision is a completed cycle, not a failed one.
		s.completeCycle(now, report.Outcome{
			Timestamp:      now,
			Action:         report.ActionHold,
			Status:         "NoTrade",
			Price:          decision.ReferencePrice,
			IndicatorValue: decision.IndicatorValue,
			Notes:          "prior close at or below prior EMA",
		})
		return
	}

	equity, err := s.gateway.AccountEquity(ctx)
	if err != nil {
		s.retryableFailure(now, report.ActionDataUnavailable, "NoData",
			fmt.Sprintf("account equity unavailable: %v", err))
		return
	}
	if equity.LessThanOrEqual(decimal.Zero) {
		s.retryableFailure(now, report.ActionDataUnavailable, "NoData",
			fmt.Sprintf("non-positive account equity: %s", equity))
		return
	}

	price, err := s.fetchPrice(ctx, decision)
	if err != nil {
		s.retryableFailure(now, report.ActionDataUnavailable, "NoData", err.Error())
		return
	}

	qty, err := s.sizer.Shares(equity, decimal.NewFromFloat(s.cfg.AllocationFraction), price)
	if err != nil {
		s.retryableFailure(now, report.ActionInternalError, "SizingError",
			fmt.Sprintf("position sizing failed: %v", err))
		return
	}

	s.placeAndReport(ctx, now, decision.IndicatorValue, equity, price, qty)
}

// fetchPrice returns the live quote, falling back to the latest close when
// the quote is unavailable and the fallback is enabled.
func (s *Scheduler) fetchPrice(ctx context.Context, decision strategy.Decision) (decimal.Decimal, error) {
	quoteCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	price, err := s.gateway.LatestQuote(quoteCtx, s.cfg.Symbol)
	if err == nil && price.GreaterThan(decimal.Zero) {
		return price, nil
	}

	if s.cfg.QuoteFallbackToClose && decision.ReferencePrice.GreaterThan(decimal.Zero) {
		s.log.Warn().Err(err).
			Str("close", decision.ReferencePrice.StringFixed(2)).
			Msg("no live quote, using latest close")
		return decision.ReferencePrice, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("quote unavailable: %w", err)
	}
	return decimal.Zero, fmt.Errorf("non-positive quote: %s", price)
}

// placeAndReport submits the market order and waits for a terminal state.
// Whatever the broker answers, the day's decision has been acted on, so
// the execution gate closes either way.
func (s *Scheduler) placeAndReport(ctx context.Context, now time.Time, ema, equity, price decimal.Decimal, qty int64) {
	handle, err := s.gateway.PlaceMarketOrder(ctx, s.cfg.Symbol, qty, broker.SideBuy)
	if err != nil {
		s.completeCycle(now, report.Outcome{
			Timestamp:      now,
			Action:         report.ActionOrderFailed,
			Status:         "SubmitFailed",
			Price:          price,
			IndicatorValue: ema,
			AccountBalance: equity,
			ErrorMessage:   err.Error(),
		})
		s.notifier.NotifyFailure(fmt.Sprintf("order submission failed: %v", err))
		return
	}

	outcome := report.Outcome{
		Timestamp:      now,
		Action:         report.ActionBuy,
		Quantity:       qty,
		Price:          price,
		Amount:         price.Mul(decimal.NewFromInt(qty)),
		IndicatorValue: ema,
		AccountBalance: equity,
		Notes:          "prior close above prior EMA",
	}

	update, err := s.awaitOrder(ctx, handle)
	switch {
	case err == nil && update.Status == broker.StatusFilled:
		outcome.Status = "Filled"
		if update.FilledAvgPrice.GreaterThan(decimal.Zero) {
			outcome.Price = update.FilledAvgPrice
			outcome.Amount = update.FilledAvgPrice.Mul(decimal.NewFromInt(qty))
		}
	case err == nil:
		outcome.Status = "Failed"
		outcome.ErrorMessage = fmt.Sprintf("order ended %s", update.Status)
	default:
		outcome.Status = "Failed"
		outcome.ErrorMessage = err.Error()
	}

	s.completeCycle(now, outcome)
	if outcome.Status != "Filled" {
		s.notifier.NotifyFailure(fmt.Sprintf("buy order for %d %s not filled: %s",
			qty, s.cfg.Symbol, outcome.ErrorMessage))
	}
}

// awaitOrder polls for a terminal order state up to the configured wait.
// A shutdown during the wait still surfaces the last observed state so
// the in-flight order is never silently abandoned.
func (s *Scheduler) awaitOrder(ctx context.Context, handle broker.OrderHandle) (broker.OrderUpdate, error) {
	deadline := s.now().Add(s.cfg.OrderWait)
	var last broker.OrderUpdate
	for {
		update, err := s.gateway.OrderStatus(ctx, handle)
		if err != nil {
			s.log.Warn().Err(err).Str("order_id", handle.ID).Msg("order status poll failed")
		} else {
			last = update
			if update.Status.Terminal() {
				return update, nil
			}
		}
		if !s.now().Before(deadline) {
			return last, errOrderWaitExpired
		}
		if err := waitFor(ctx, s.cfg.OrderPollInterval); err != nil {
			return last, fmt.Errorf("shutdown while awaiting order %s: %w", handle.ID, err)
		}
	}
}

// retryableFailure reports a failure that must not close the day's
// execution gate: the next wake inside the window retries the cycle.
func (s *Scheduler) retryableFailure(now time.Time, action report.Action, status, description string) {
	s.log.Error().Str("action", string(action)).Msg(description)
	s.record(report.Outcome{
		Timestamp:    now,
		Action:       action,
		Status:       status,
		ErrorMessage: description,
	})
	s.notifier.NotifyFailure(description)
}

// completeCycle closes the execution gate for the day and reports the
// outcome: history for the summary, journal line, and the first per-cycle
// notification of the day.
func (s *Scheduler) completeCycle(now time.Time, outcome report.Outcome) {
	s.store.MarkExecuted(now)
	s.record(outcome)
	if outcome.Action.Completed() {
		s.store.Append(outcome)
	}
	if !s.store.ReportedOn(now) {
		s.notifier.Notify(outcome)
		s.store.MarkReported(now)
	}
	s.log.Info().
		Str("action", string(outcome.Action)).
		Str("status", outcome.Status).
		Int64("qty", outcome.Quantity).
		Msg("cycle complete")
}

func (s *Scheduler) record(outcome report.Outcome) {
	if s.journal != nil {
		s.journal.Append(outcome)
	}
}

// sleepUntilNextEvent computes the gap to the next trigger or summary
// occurrence, capped at the re-check interval so a missed assumption
// never strands the loop for a whole day.
func (s *Scheduler) sleepUntilNextEvent(now time.Time) time.Duration {
	next := nextOccurrence(now, s.cfg.TriggerAt)
	if summary := nextOccurrence(now, s.cfg.SummaryAt); summary.Before(next) {
		next = summary
	}

	sleep := next.Sub(now)
	if sleep > s.cfg.CheckInterval {
		sleep = s.cfg.CheckInterval
	}
	if sleep < time.Second {
		sleep = time.Second
	}
	return sleep
}

func (s *Scheduler) tolerance() time.Duration {
	return time.Duration(s.cfg.ToleranceMinutes) * time.Minute
}

func (s *Scheduler) localNow() time.Time {
	return s.now().In(s.cfg.Location)
}
