// Package notify delivers execution outcomes over best-effort channels.
// Every call is fire-and-forget: implementations log their own failures
// and never return errors to the scheduler.
package notify

import (
	"github.com/rs/zerolog"

	"emabot/internal/report"
)

// Notifier receives scheduler outcomes. Implementations must never panic
// and must swallow delivery failures.
type Notifier interface {
	Notify(outcome report.Outcome)
	NotifyDailySummary(summary report.DailySummary, outcomes []report.Outcome)
	NotifyFailure(description string)
}

// Multi fans a notification out to every configured channel.
type Multi struct {
	channels []Notifier
}

func NewMulti(channels ...Notifier) *Multi {
	return &Multi{channels: channels}
}

func (m *Multi) Notify(outcome report.Outcome) {
	for _, c := range m.channels {
		c.Notify(outcome)
	}
}

func (m *Multi) NotifyDailySummary(summary report.DailySummary, outcomes []report.Outcome) {
	for _, c := range m.channels {
		c.NotifyDailySummary(summary, outcomes)
	}
}

func (m *Multi) NotifyFailure(description string) {
	for _, c := range m.channels {
		c.NotifyFailure(description)
	}
}

// Noop logs and drops everything. Used when no channel is configured so
// the scheduler never has to care.
type Noop struct {
	log zerolog.Logger
}

func NewNoop(log zerolog.Logger) *Noop {
	return &Noop{log: log.With().Str("component", "notify").Logger()}
}

func (n *Noop) Notify(outcome report.Outcome) {
	n.log.Info().Str("action", string(outcome.Action)).Msg("notification dropped, no channel configured")
}

func (n *Noop) NotifyDailySummary(summary report.DailySummary, _ []report.Outcome) {
	n.log.Info().Int("cycles", summary.TotalCycles).Msg("daily summary dropped, no channel configured")
}

func (n *Noop) NotifyFailure(description string) {
	n.log.Warn().Str("description", description).Msg("failure notification dropped, no channel configured")
}
