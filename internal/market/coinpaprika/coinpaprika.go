package coinpaprika

import (
	"context"
	"net/http"
	"strings"
	"time"

	"crypto-assistant-bot/internal/types"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DefaultAliases maps common tickers to coinpaprika coin ids.
var DefaultAliases = map[string]string{
	"btc":   "btc-bitcoin",
	"xbt":   "btc-bitcoin",
	"eth":   "eth-ethereum",
	"bnb":   "bnb-binance-coin",
	"sol":   "sol-solana",
	"usdt":  "usdt-tether",
	"usdc":  "usdc-usd-coin",
	"xrp":   "xrp-xrp",
	"ada":   "ada-cardano",
	"doge":  "doge-dogecoin",
	"ton":   "toncoin-the-open-network",
	"dot":   "dot-polkadot",
	"matic": "matic-polygon",
	"avax":  "avax-avalanche",
	"ltc":   "ltc-litecoin",
	"shib":  "shib-shiba-inu",
	"link":  "link-chainlink",
	"trx":   "trx-tron",
	"op":    "op-optimism",
	"arb":   "arb-arbitrum",
	"sui":   "sui-sui",
	"sei":   "sei-sei",
	"near":  "near-near-protocol",
	"atom":  "atom-cosmos",
	"cake":  "cake-pancakeswap",
	"bch":   "bch-bitcoin-cash",
	"xlm":   "xlm-stellar",
	"uni":   "uni-uniswap",
	"etc":   "etc-ethereum-classic",
	"apt":   "apt-aptos",
}

type Client struct {
	paprika *coinpaprika.Client
}

// New builds a provider on the coinpaprika SDK. An empty apiProKey uses the free API.
func New(apiProKey string, timeout time.Duration) *Client {
	return NewWithHTTPClient(apiProKey, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(apiProKey string, httpClient *http.Client) *Client {
	if apiProKey != "" {
		return &Client{paprika: coinpaprika.NewClient(httpClient, coinpaprika.WithAPIKey(apiProKey))}
	}
	return &Client{paprika: coinpaprika.NewClient(httpClient)}
}

func (c *Client) Name() string { return "coinpaprika" }

// Prices fetches every ticker quoted in fiat with one call and keeps the requested ids.
func (c *Client) Prices(ctx context.Context, ids []string, fiat string) (map[string]types.Ticker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	quote := strings.ToUpper(fiat)
	tickers, err := c.paprika.Tickers.List(&coinpaprika.TickersOptions{Quotes: quote})
	if err != nil {
		return nil, errors.Wrap(err, "coinpaprika tickers")
	}

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	out := make(map[string]types.Ticker, len(ids))
	for _, t := range tickers {
		if t == nil || t.ID == nil {
			continue
		}
		if _, ok := wanted[*t.ID]; !ok {
			continue
		}
		if ticker, ok := toTicker(t, quote); ok {
			out[*t.ID] = ticker
		}
	}
	return out, nil
}

// Top keeps the first limit quoted entries of the rank-ordered tickers list.
func (c *Client) Top(ctx context.Context, fiat string, limit int) ([]types.Ticker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	quote := strings.ToUpper(fiat)
	tickers, err := c.paprika.Tickers.List(&coinpaprika.TickersOptions{Quotes: quote})
	if err != nil {
		return nil, errors.Wrap(err, "coinpaprika tickers")
	}

	out := make([]types.Ticker, 0, limit)
	for _, t := range tickers {
		if len(out) == limit {
			break
		}
		if t == nil || t.ID == nil {
			continue
		}
		ticker, ok := toTicker(t, quote)
		if !ok {
			continue
		}
		ticker.Rank = len(out) + 1
		out = append(out, ticker)
	}
	return out, nil
}

func (c *Client) Dominance(ctx context.Context) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	stats, err := c.paprika.Global.Get()
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "coinpaprika global")
	}
	if stats == nil || stats.BitcoinDominancePercentage == nil {
		return decimal.Zero, errors.New("coinpaprika global: no bitcoin dominance")
	}
	return decimal.NewFromFloat(*stats.BitcoinDominancePercentage), nil
}

type resolution struct {
	interval string
	step     time.Duration
	width    time.Duration
}

// resolutionFor mirrors CoinGecko's candle widths: 30m up to 2 days, 4h up
// to 30 days, 4 days beyond.
func resolutionFor(days int) resolution {
	switch {
	case days <= 2:
		return resolution{interval: "5m", step: 5 * time.Minute, width: 30 * time.Minute}
	case days <= 30:
		return resolution{interval: "1h", step: time.Hour, width: 4 * time.Hour}
	default:
		return resolution{interval: "1d", step: 24 * time.Hour, width: 4 * 24 * time.Hour}
	}
}

// OHLC buckets historical ticks into candles.
func (c *Client) OHLC(ctx context.Context, id, fiat string, days int) ([]types.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := resolutionFor(days)
	span := time.Duration(days) * 24 * time.Hour
	limit := int(span/res.step) + 1
	if limit > 5000 {
		limit = 5000
	}

	ticks, err := c.paprika.Tickers.GetHistoricalTickersByID(id, &coinpaprika.TickersHistoricalOptions{
		Quote:    strings.ToUpper(fiat),
		Limit:    limit,
		Interval: res.interval,
		Start:    time.Now().Add(-span).UTC(),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "coinpaprika historical tickers %s", id)
	}
	return candles(ticks, res.width), nil
}

// candles expects ticks in ascending time order.
func candles(ticks []*coinpaprika.TickerHistorical, width time.Duration) []types.Candle {
	var out []types.Candle
	for _, t := range ticks {
		if t == nil || t.Timestamp == nil || t.Price == nil {
			continue
		}
		start := t.Timestamp.UTC().Truncate(width)
		v := decimal.NewFromFloat(*t.Price)

		if n := len(out); n > 0 && out[n-1].Time.Equal(start) {
			last := &out[n-1]
			last.High = decimal.Max(last.High, v)
			last.Low = decimal.Min(last.Low, v)
			last.Close = v
			continue
		}
		out = append(out, types.Candle{Time: start, Open: v, High: v, Low: v, Close: v})
	}
	return out
}

func toTicker(t *coinpaprika.Ticker, quote string) (types.Ticker, bool) {
	q, ok := t.Quotes[quote]
	if !ok || q.Price == nil {
		log.Debugf("coinpaprika ticker %s has no %s quote", *t.ID, quote)
		return types.Ticker{}, false
	}

	ticker := types.Ticker{ID: *t.ID, Price: decimal.NewFromFloat(*q.Price)}
	if t.Symbol != nil {
		ticker.Symbol = strings.ToLower(*t.Symbol)
	}
	if q.PercentChange24h != nil {
		ticker.Change24h = decimal.NewNullDecimal(decimal.NewFromFloat(*q.PercentChange24h))
	}
	return ticker, true
}

func (c *Client) Coins(ctx context.Context) ([]types.Coin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	coins, err := c.paprika.Coins.List()
	if err != nil {
		return nil, errors.Wrap(err, "coinpaprika coins")
	}
	return toCoins(coins), nil
}

// Search tries a symbol search first and falls back to a name search.
func (c *Client) Search(ctx context.Context, query string) ([]types.Coin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	searchOpts := &coinpaprika.SearchOptions{
		Query:      query,
		Categories: "currencies",
		Modifier:   "symbol_search",
	}
	result, err := c.paprika.Search.Search(searchOpts)
	if err != nil || result == nil || len(result.Currencies) == 0 {
		log.Debugf("No results for symbol search, trying name search for '%s'", query)
		searchOpts = &coinpaprika.SearchOptions{Query: query, Categories: "currencies"}
		result, err = c.paprika.Search.Search(searchOpts)
		if err != nil {
			return nil, errors.Wrapf(err, "coinpaprika search %q", query)
		}
	}
	if result == nil {
		return nil, nil
	}
	return toCoins(result.Currencies), nil
}

func toCoins(in []*coinpaprika.Coin) []types.Coin {
	out := make([]types.Coin, 0, len(in))
	for i, c := range in {
		if c == nil || c.ID == nil || c.Symbol == nil {
			continue
		}
		coin := types.Coin{ID: *c.ID, Symbol: strings.ToLower(*c.Symbol), Rank: i + 1}
		if c.Name != nil {
			coin.Name = *c.Name
		}
		out = append(out, coin)
	}
	return out
}
