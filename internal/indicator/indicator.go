// Package indicator reads market-wide sentiment and network fee gauges.
package indicator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crypto-assistant-bot/internal/types"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	DefaultFearGreedURL = "https://api.alternative.me/fng/"
	DefaultEtherscanURL = "https://api.etherscan.io/api"
)

// ErrNoAPIKey is returned by the gas oracle when no Etherscan key is set.
var ErrNoAPIKey = errors.New("etherscan api key is not set")

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sentiment is one Fear & Greed index reading.
type Sentiment struct {
	Value          int
	Classification string
	Time           time.Time
}

// Gas holds Ethereum gas prices in gwei.
type Gas struct {
	Safe    decimal.Decimal
	Propose decimal.Decimal
	Fast    decimal.Decimal
}

type FearGreed struct {
	url        string
	httpClient HTTPClient
}

func NewFearGreed(rawURL string, timeout time.Duration) *FearGreed {
	if rawURL == "" {
		rawURL = DefaultFearGreedURL
	}
	return &FearGreed{url: rawURL, httpClient: &http.Client{Timeout: timeout}}
}

func (f *FearGreed) Latest(ctx context.Context) (Sentiment, error) {
	var payload struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
			Timestamp      string `json:"timestamp"`
		} `json:"data"`
	}
	if err := getJSON(ctx, f.httpClient, f.url, nil, &payload); err != nil {
		return Sentiment{}, errors.Wrap(err, "fear and greed index")
	}
	if len(payload.Data) == 0 {
		return Sentiment{}, errors.Wrap(types.ErrUpstreamUnavailable, "fear and greed index: empty data")
	}

	d := payload.Data[0]
	value, err := strconv.Atoi(d.Value)
	if err != nil {
		return Sentiment{}, errors.Wrapf(err, "fear and greed value %q", d.Value)
	}
	s := Sentiment{Value: value, Classification: d.Classification}
	if ts, err := strconv.ParseInt(d.Timestamp, 10, 64); err == nil {
		s.Time = time.Unix(ts, 0).UTC()
	}
	return s, nil
}

type GasOracle struct {
	url        string
	apiKey     string
	httpClient HTTPClient
}

func NewGasOracle(rawURL, apiKey string, timeout time.Duration) *GasOracle {
	if rawURL == "" {
		rawURL = DefaultEtherscanURL
	}
	return &GasOracle{url: rawURL, apiKey: apiKey, httpClient: &http.Client{Timeout: timeout}}
}

func (g *GasOracle) Enabled() bool { return g.apiKey != "" }

// Latest calls the Etherscan gastracker gasoracle action.
func (g *GasOracle) Latest(ctx context.Context) (Gas, error) {
	if !g.Enabled() {
		return Gas{}, ErrNoAPIKey
	}

	query := url.Values{}
	query.Set("module", "gastracker")
	query.Set("action", "gasoracle")
	query.Set("apikey", g.apiKey)

	var payload struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}
	if err := getJSON(ctx, g.httpClient, g.url, query, &payload); err != nil {
		return Gas{}, errors.Wrap(err, "etherscan gas oracle")
	}
	if payload.Status != "1" {
		return Gas{}, errors.Wrapf(types.ErrUpstreamUnavailable, "etherscan gas oracle: %s", payload.Message)
	}

	var result struct {
		Safe    decimal.Decimal `json:"SafeGasPrice"`
		Propose decimal.Decimal `json:"ProposeGasPrice"`
		Fast    decimal.Decimal `json:"FastGasPrice"`
	}
	if err := json.Unmarshal(payload.Result, &result); err != nil {
		return Gas{}, errors.Wrap(err, "decode etherscan gas oracle result")
	}
	return Gas{Safe: result.Safe, Propose: result.Propose, Fast: result.Fast}, nil
}

func getJSON(ctx context.Context, client HTTPClient, rawURL string, query url.Values, v any) error {
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(types.ErrUpstreamUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Wrapf(types.ErrUpstreamUnavailable, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(v), "decode response")
}
