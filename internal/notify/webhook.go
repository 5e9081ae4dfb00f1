package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"emabot/internal/report"
)

// Webhook posts Slack-compatible JSON payloads to a webhook URL.
type Webhook struct {
	url    string
	symbol string
	client *http.Client
	log    zerolog.Logger
}

type webhookMessage struct {
	Text string `json:"text"`
}

func NewWebhook(url, symbol string, log zerolog.Logger) *Webhook {
	return &Webhook{
		url:    url,
		symbol: symbol,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log.With().Str("component", "webhook").Logger(),
	}
}

func (w *Webhook) Notify(outcome report.Outcome) {
	w.post(FormatOutcome(w.symbol, outcome))
}

func (w *Webhook) NotifyDailySummary(summary report.DailySummary, outcomes []report.Outcome) {
	w.post(FormatDailySummary(w.symbol, summary, outcomes))
}

func (w *Webhook) NotifyFailure(description string) {
	w.post(FormatFailure(w.symbol, description, time.Now()))
}

func (w *Webhook) post(text string) {
	payload, err := json.Marshal(webhookMessage{Text: "```" + text + "```"})
	if err != nil {
		w.log.Error().Err(err).Msg("marshal webhook payload")
		return
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		w.log.Error().Err(err).Msg("post webhook failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		w.log.Error().Err(fmt.Errorf("status %d", resp.StatusCode)).Msg("webhook rejected")
		return
	}
	w.log.Debug().Msg("webhook delivered")
}
