package market

//go:generate mockgen -destination=mock_market/market.go -package=mock_market crypto-assistant-bot/internal/market Provider

import (
	"context"
	"time"

	"crypto-assistant-bot/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Provider is the market-data source behind the resolvers.
type Provider interface {
	Name() string
	// Prices returns the current price of every known id in fiat, keyed by id.
	// Ids the provider does not know are absent from the map.
	Prices(ctx context.Context, ids []string, fiat string) (map[string]types.Ticker, error)
	// Coins lists every asset the provider knows, best ranked first.
	Coins(ctx context.Context) ([]types.Coin, error)
	// Search returns ranked candidates for a free-text query.
	Search(ctx context.Context, query string) ([]types.Coin, error)
	// Top returns the limit largest assets by market cap, priced in fiat.
	Top(ctx context.Context, fiat string, limit int) ([]types.Ticker, error)
	// Dominance is bitcoin's share of the total market cap in percent.
	Dominance(ctx context.Context) (decimal.Decimal, error)
	// OHLC returns candles covering the last days, oldest first.
	OHLC(ctx context.Context, id, fiat string, days int) ([]types.Candle, error)
}

type instrumented struct {
	Provider
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// Instrument counts every upstream call by operation and outcome.
// requests needs the labels provider, op and result; latency provider and op.
func Instrument(p Provider, requests *prometheus.CounterVec, latency *prometheus.HistogramVec) Provider {
	return &instrumented{Provider: p, requests: requests, latency: latency}
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	i.requests.WithLabelValues(i.Name(), op, result).Inc()
	if i.latency != nil {
		i.latency.WithLabelValues(i.Name(), op).Observe(time.Since(start).Seconds())
	}
}

func (i *instrumented) Prices(ctx context.Context, ids []string, fiat string) (map[string]types.Ticker, error) {
	start := time.Now()
	out, err := i.Provider.Prices(ctx, ids, fiat)
	i.observe("prices", start, err)
	return out, err
}

func (i *instrumented) Coins(ctx context.Context) ([]types.Coin, error) {
	start := time.Now()
	out, err := i.Provider.Coins(ctx)
	i.observe("coins", start, err)
	return out, err
}

func (i *instrumented) Search(ctx context.Context, query string) ([]types.Coin, error) {
	start := time.Now()
	out, err := i.Provider.Search(ctx, query)
	i.observe("search", start, err)
	return out, err
}

func (i *instrumented) Top(ctx context.Context, fiat string, limit int) ([]types.Ticker, error) {
	start := time.Now()
	out, err := i.Provider.Top(ctx, fiat, limit)
	i.observe("top", start, err)
	return out, err
}

func (i *instrumented) Dominance(ctx context.Context) (decimal.Decimal, error) {
	start := time.Now()
	out, err := i.Provider.Dominance(ctx)
	i.observe("dominance", start, err)
	return out, err
}

func (i *instrumented) OHLC(ctx context.Context, id, fiat string, days int) ([]types.Candle, error) {
	start := time.Now()
	out, err := i.Provider.OHLC(ctx, id, fiat, days)
	i.observe("ohlc", start, err)
	return out, err
}
