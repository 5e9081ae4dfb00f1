package notify

import (
	"fmt"
	"strings"
	"time"

	"emabot/internal/report"
)

const divider = "========================================"

// FormatOutcome renders the per-cycle trade report body.
func FormatOutcome(symbol string, outcome report.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Daily Strategy - Trade Report\n%s\n", symbol, divider)
	fmt.Fprintf(&b, "Report time: %s\n\n", outcome.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Action: %s\n", outcome.Action)
	fmt.Fprintf(&b, "Status: %s\n\n", outcome.Status)
	fmt.Fprintf(&b, "Quantity: %d shares\n", outcome.Quantity)
	fmt.Fprintf(&b, "Amount:   $%s\n", outcome.Amount.StringFixed(2))
	fmt.Fprintf(&b, "Price:    $%s\n", outcome.Price.StringFixed(2))
	fmt.Fprintf(&b, "EMA:      $%s\n", outcome.IndicatorValue.StringFixed(2))
	fmt.Fprintf(&b, "Account balance: $%s\n", outcome.AccountBalance.StringFixed(2))
	if outcome.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", outcome.Notes)
	}
	if outcome.ErrorMessage != "" {
		fmt.Fprintf(&b, "\nError: %s\n", outcome.ErrorMessage)
	}
	b.WriteString(divider)
	return b.String()
}

// FormatDailySummary renders the end-of-day aggregate body.
func FormatDailySummary(symbol string, summary report.DailySummary, outcomes []report.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Daily Strategy - Daily Summary\n%s\n", symbol, divider)
	fmt.Fprintf(&b, "Date: %s\n\n", summary.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Cycles completed: %d\n", summary.TotalCycles)
	fmt.Fprintf(&b, "Buys:  %d\n", summary.BuyCount)
	fmt.Fprintf(&b, "Holds: %d\n\n", summary.HoldCount)
	fmt.Fprintf(&b, "Total quantity: %d shares\n", summary.TotalQuantity)
	fmt.Fprintf(&b, "Total amount:   $%s\n", summary.TotalAmount.StringFixed(2))
	fmt.Fprintf(&b, "Average price:  $%s\n", summary.AveragePrice.StringFixed(2))
	fmt.Fprintf(&b, "Last balance:   $%s\n", summary.LastBalance.StringFixed(2))
	if len(outcomes) > 0 {
		b.WriteString("\nDetail:\n")
		for _, o := range outcomes {
			fmt.Fprintf(&b, "  %s  %-4s %s qty=%d price=$%s\n",
				o.Timestamp.Format("15:04:05"), o.Action, o.Status, o.Quantity, o.Price.StringFixed(2))
		}
	}
	b.WriteString(divider)
	return b.String()
}

// FormatFailure renders a failure alert body.
func FormatFailure(symbol, description string, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Daily Strategy - Failure Alert\n%s\n", symbol, divider)
	fmt.Fprintf(&b, "Time: %s\n\n", at.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "%s\n", description)
	b.WriteString(divider)
	return b.String()
}
