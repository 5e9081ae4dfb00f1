package broker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"emabot/internal/market"
)

// Config holds the Alpaca connection parameters.
type Config struct {
	APIKey         string
	APISecret      string
	BaseURL        string
	Feed           string
	RequestTimeout time.Duration
}

// AlpacaClient wraps the Alpaca trading and market data APIs behind the
// Gateway interface. The REST transport is stateless; the connected flag
// models the per-cycle session ownership and is verified against the
// exchange clock on Connect.
type AlpacaClient struct {
	trading *alpaca.Client
	data    *marketdata.Client
	feed    marketdata.Feed
	log     zerolog.Logger

	mu        sync.Mutex
	connected bool
}

func NewAlpacaClient(cfg Config, log zerolog.Logger) *AlpacaClient {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	return &AlpacaClient{
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:     cfg.APIKey,
			APISecret:  cfg.APISecret,
			BaseURL:    cfg.BaseURL,
			HTTPClient: httpClient,
		}),
		data: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:     cfg.APIKey,
			APISecret:  cfg.APISecret,
			HTTPClient: httpClient,
		}),
		feed: parseFeed(cfg.Feed),
		log:  log.With().Str("component", "broker").Logger(),
	}
}

// Connect verifies credentials and reachability with a clock request.
func (c *AlpacaClient) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clock, err := c.trading.GetClock()
	if err != nil {
		c.log.Error().Err(err).Msg("connect failed")
		return fmt.Errorf("connect: %w", err)
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	c.log.Info().Bool("market_open", clock.IsOpen).Msg("connected")
	return nil
}

func (c *AlpacaClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *AlpacaClient) Disconnect() {
	c.mu.Lock()
	was := c.connected
	c.connected = false
	c.mu.Unlock()
	if was {
		c.log.Info().Msg("disconnected")
	}
}

// HistoricalBars fetches daily bars covering the trailing lookback window.
// lookbackDays is calendar days; weekends and holidays thin it out to
// fewer sessions, so callers size it generously.
func (c *AlpacaClient) HistoricalBars(ctx context.Context, symbol string, lookbackDays int) (market.Series, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := time.Now()
	start := end.AddDate(0, 0, -lookbackDays)
	bars, err := c.data.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      c.feed,
	})
	if err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Msg("fetch bars failed")
		return nil, fmt.Errorf("fetch bars for %s: %w", symbol, err)
	}

	series := make(market.Series, 0, len(bars))
	for _, bar := range bars {
		series = append(series, market.Bar{
			Date:   bar.Timestamp,
			Open:   decimal.NewFromFloat(bar.Open),
			High:   decimal.NewFromFloat(bar.High),
			Low:    decimal.NewFromFloat(bar.Low),
			Close:  decimal.NewFromFloat(bar.Close),
			Volume: int64(bar.Volume),
		})
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("bars for %s: %w", symbol, err)
	}

	c.log.Info().Str("symbol", symbol).Int("bars", len(series)).Msg("bars fetched")
	return series, nil
}

// LatestQuote returns the last trade price for the symbol.
func (c *AlpacaClient) LatestQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if !c.IsConnected() {
		return decimal.Zero, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	trade, err := c.data.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{Feed: c.feed})
	if err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Msg("fetch quote failed")
		return decimal.Zero, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}
	if trade == nil || trade.Price <= 0 {
		return decimal.Zero, ErrNoQuote
	}

	price := decimal.NewFromFloat(trade.Price)
	c.log.Info().Str("symbol", symbol).Str("price", price.StringFixed(2)).Msg("quote fetched")
	return price, nil
}

// AccountEquity returns the account's net liquidation value.
func (c *AlpacaClient) AccountEquity(ctx context.Context) (decimal.Decimal, error) {
	if !c.IsConnected() {
		return decimal.Zero, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	acct, err := c.trading.GetAccount()
	if err != nil {
		c.log.Error().Err(err).Msg("fetch account failed")
		return decimal.Zero, fmt.Errorf("fetch account: %w", err)
	}

	c.log.Info().Str("equity", acct.Equity.StringFixed(2)).Msg("account fetched")
	return acct.Equity, nil
}

func (c *AlpacaClient) PlaceMarketOrder(ctx context.Context, symbol string, qty int64, side Side) (OrderHandle, error) {
	if !c.IsConnected() {
		return OrderHandle{}, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return OrderHandle{}, err
	}

	quantity := decimal.NewFromInt(qty)
	order, err := c.trading.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      symbol,
		Qty:         &quantity,
		Side:        alpaca.Side(side),
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Int64("qty", qty).Msg("place order failed")
		return OrderHandle{}, fmt.Errorf("place order: %w", err)
	}

	c.log.Info().
		Str("order_id", order.ID).
		Str("symbol", symbol).
		Int64("qty", qty).
		Str("status", string(order.Status)).
		Msg("order submitted")
	return OrderHandle{ID: order.ID, ClientOrderID: order.ClientOrderID}, nil
}

func (c *AlpacaClient) OrderStatus(ctx context.Context, handle OrderHandle) (OrderUpdate, error) {
	if err := ctx.Err(); err != nil {
		return OrderUpdate{}, err
	}

	order, err := c.trading.GetOrder(handle.ID)
	if err != nil {
		return OrderUpdate{}, fmt.Errorf("get order %s: %w", handle.ID, err)
	}

	update := OrderUpdate{Status: mapOrderStatus(order.Status)}
	if order.FilledAvgPrice != nil {
		update.FilledAvgPrice = *order.FilledAvgPrice
	}
	return update, nil
}

func mapOrderStatus(status string) OrderStatus {
	switch status {
	case "filled":
		return StatusFilled
	case "canceled", "expired", "done_for_day":
		return StatusCancelled
	case "rejected", "stopped", "suspended":
		return StatusRejected
	default:
		return StatusPending
	}
}

func parseFeed(feed string) marketdata.Feed {
	switch feed {
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}
