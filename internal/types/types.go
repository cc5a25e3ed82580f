package types

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrSymbolNotFound      = errors.New("symbol not found")
	ErrFiatInvalid         = errors.New("fiat code not supported")
	ErrAmountInvalid       = errors.New("amount must be a positive number")
	ErrUpstreamUnavailable = errors.New("market data provider unavailable")
	// ErrPartialData marks a single id the provider returned no entry for.
	ErrPartialData = errors.New("no data for asset")
)

// Coin is a catalog or search entry of the market-data provider.
type Coin struct {
	ID     string
	Symbol string
	Name   string
	Rank   int
}

// Ticker is the provider's current price of one asset in one fiat.
type Ticker struct {
	ID        string
	Symbol    string
	Rank      int
	Price     decimal.Decimal
	Change24h decimal.NullDecimal
}

// Candle is one OHLC bar starting at Time.
type Candle struct {
	Time                   time.Time
	Open, High, Low, Close decimal.Decimal
}

type Alert struct {
	ID        int64           `json:"id"`
	ChatID    int64           `json:"chat_id"`
	Symbol    string          `json:"symbol"`
	AssetID   string          `json:"asset_id"`
	Fiat      string          `json:"fiat"`
	Op        string          `json:"op"` // "above" or "below"
	Target    decimal.Decimal `json:"target"`
	CreatedAt string          `json:"created_at"`
}

const (
	AlertAbove = "above"
	AlertBelow = "below"
)
