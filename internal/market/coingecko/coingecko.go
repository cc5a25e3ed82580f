package coingecko

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"crypto-assistant-bot/internal/types"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// DefaultAliases maps common tickers to CoinGecko coin ids.
var DefaultAliases = map[string]string{
	"btc":   "bitcoin",
	"xbt":   "bitcoin",
	"eth":   "ethereum",
	"bnb":   "binancecoin",
	"sol":   "solana",
	"usdt":  "tether",
	"usdc":  "usd-coin",
	"xrp":   "ripple",
	"ada":   "cardano",
	"doge":  "dogecoin",
	"ton":   "the-open-network",
	"dot":   "polkadot",
	"matic": "matic-network",
	"avax":  "avalanche-2",
	"ltc":   "litecoin",
	"shib":  "shiba-inu",
	"link":  "chainlink",
	"trx":   "tron",
	"op":    "optimism",
	"arb":   "arbitrum",
	"sui":   "sui",
	"sei":   "sei-network",
	"near":  "near",
	"atom":  "cosmos",
	"cake":  "pancakeswap-token",
	"bch":   "bitcoin-cash",
	"xlm":   "stellar",
	"uni":   "uniswap",
	"etc":   "ethereum-classic",
	"apt":   "aptos",
}

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL    string
	httpClient HTTPClient
	header     http.Header
}

type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAPIKey authenticates requests with a demo API key.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.header.Set("x-cg-demo-api-key", key)
		}
	}
}

func New(timeout time.Duration, options ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		header:     http.Header{"Accept": []string{"application/json"}},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) Name() string { return "coingecko" }

// Prices calls /simple/price once for all ids.
func (c *Client) Prices(ctx context.Context, ids []string, fiat string) (map[string]types.Ticker, error) {
	if len(ids) == 0 {
		return map[string]types.Ticker{}, nil
	}

	fiat = strings.ToLower(fiat)
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", fiat)
	query.Set("include_24hr_change", "true")

	var payload map[string]map[string]decimal.NullDecimal
	if err := c.get(ctx, "/simple/price", query, &payload); err != nil {
		return nil, err
	}

	out := make(map[string]types.Ticker, len(payload))
	for id, quotes := range payload {
		price, ok := quotes[fiat]
		if !ok || !price.Valid {
			continue
		}
		out[id] = types.Ticker{
			ID:        id,
			Price:     price.Decimal,
			Change24h: quotes[fiat+"_24h_change"],
		}
	}
	return out, nil
}

func (c *Client) Coins(ctx context.Context) ([]types.Coin, error) {
	var payload []struct {
		ID     string `json:"id"`
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	}
	if err := c.get(ctx, "/coins/list", nil, &payload); err != nil {
		return nil, err
	}

	out := make([]types.Coin, 0, len(payload))
	for _, p := range payload {
		out = append(out, types.Coin{ID: p.ID, Symbol: strings.ToLower(p.Symbol), Name: p.Name})
	}
	return out, nil
}

// Search returns /search coins ordered by market cap rank, unranked last.
func (c *Client) Search(ctx context.Context, query string) ([]types.Coin, error) {
	var payload struct {
		Coins []struct {
			ID            string `json:"id"`
			Symbol        string `json:"symbol"`
			Name          string `json:"name"`
			MarketCapRank *int   `json:"market_cap_rank"`
		} `json:"coins"`
	}
	if err := c.get(ctx, "/search", url.Values{"query": []string{query}}, &payload); err != nil {
		return nil, err
	}

	out := make([]types.Coin, 0, len(payload.Coins))
	for _, p := range payload.Coins {
		coin := types.Coin{ID: p.ID, Symbol: strings.ToLower(p.Symbol), Name: p.Name}
		if p.MarketCapRank != nil {
			coin.Rank = *p.MarketCapRank
		}
		out = append(out, coin)
	}
	sortByRank(out)
	return out, nil
}

// Top calls /coins/markets ordered by market cap.
func (c *Client) Top(ctx context.Context, fiat string, limit int) ([]types.Ticker, error) {
	query := url.Values{}
	query.Set("vs_currency", strings.ToLower(fiat))
	query.Set("order", "market_cap_desc")
	query.Set("per_page", strconv.Itoa(limit))
	query.Set("page", "1")
	query.Set("price_change_percentage", "24h")

	var payload []struct {
		ID            string              `json:"id"`
		Symbol        string              `json:"symbol"`
		Price         decimal.NullDecimal `json:"current_price"`
		Change24h     decimal.NullDecimal `json:"price_change_percentage_24h"`
		MarketCapRank *int                `json:"market_cap_rank"`
	}
	if err := c.get(ctx, "/coins/markets", query, &payload); err != nil {
		return nil, err
	}

	out := make([]types.Ticker, 0, len(payload))
	for i, p := range payload {
		if !p.Price.Valid {
			continue
		}
		ticker := types.Ticker{
			ID:        p.ID,
			Symbol:    strings.ToLower(p.Symbol),
			Rank:      i + 1,
			Price:     p.Price.Decimal,
			Change24h: p.Change24h,
		}
		if p.MarketCapRank != nil {
			ticker.Rank = *p.MarketCapRank
		}
		out = append(out, ticker)
	}
	return out, nil
}

// Dominance reads the btc entry of /global market_cap_percentage.
func (c *Client) Dominance(ctx context.Context) (decimal.Decimal, error) {
	var payload struct {
		Data struct {
			MarketCapPercentage map[string]decimal.Decimal `json:"market_cap_percentage"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/global", nil, &payload); err != nil {
		return decimal.Zero, err
	}

	btc, ok := payload.Data.MarketCapPercentage["btc"]
	if !ok {
		return decimal.Zero, errors.New("coingecko /global: no btc dominance")
	}
	return btc, nil
}

// OHLC calls /coins/{id}/ohlc. CoinGecko picks the candle width from days.
func (c *Client) OHLC(ctx context.Context, id, fiat string, days int) ([]types.Candle, error) {
	query := url.Values{}
	query.Set("vs_currency", strings.ToLower(fiat))
	query.Set("days", strconv.Itoa(days))

	var payload [][]decimal.Decimal
	if err := c.get(ctx, "/coins/"+url.PathEscape(id)+"/ohlc", query, &payload); err != nil {
		return nil, err
	}

	out := make([]types.Candle, 0, len(payload))
	for _, row := range payload {
		if len(row) < 5 {
			continue
		}
		out = append(out, types.Candle{
			Time:  time.UnixMilli(row[0].IntPart()).UTC(),
			Open:  row[1],
			High:  row[2],
			Low:   row[3],
			Close: row[4],
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, v any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, "build coingecko request")
	}
	for key, values := range c.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "coingecko %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("coingecko %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrapf(err, "decode coingecko %s", path)
	}
	return nil
}

// sortByRank keeps the provider's order among equally ranked coins.
func sortByRank(coins []types.Coin) {
	sort.SliceStable(coins, func(i, j int) bool {
		ri, rj := coins[i].Rank, coins[j].Rank
		if ri <= 0 || rj <= 0 {
			return ri > 0 && rj <= 0
		}
		return ri < rj
	})
}
