package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"crypto-assistant-bot/internal/fiat"
	"crypto-assistant-bot/internal/format"
	"crypto-assistant-bot/internal/indicator"
	"crypto-assistant-bot/internal/price"
	"crypto-assistant-bot/internal/types"
	"crypto-assistant-bot/lib/helpers"
	"crypto-assistant-bot/lib/translation"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	TopLimit   = 10
	ohlcRows   = 5
	ohlcLayout = "2006-01-02 15:04"
)

// ohlcDays are the ranges CoinGecko serves candles for; others fall back to 1.
var ohlcDays = map[int]bool{1: true, 7: true, 14: true, 30: true, 90: true, 180: true, 365: true}

type MarketOverview interface {
	Top(ctx context.Context, fiat string, limit int) ([]types.Ticker, error)
	Dominance(ctx context.Context) (decimal.Decimal, error)
	OHLC(ctx context.Context, id, fiat string, days int) ([]types.Candle, error)
}

type SentimentIndex interface {
	Latest(ctx context.Context) (indicator.Sentiment, error)
}

type GasOracle interface {
	Enabled() bool
	Latest(ctx context.Context) (indicator.Gas, error)
}

// Overview answers the market-wide commands.
type Overview struct {
	market    MarketOverview
	symbols   SymbolResolver
	fiats     *fiat.Validator
	format    *format.Formatter
	sentiment SentimentIndex
	gas       GasOracle
}

func NewOverview(market MarketOverview, symbols SymbolResolver, fiats *fiat.Validator, formatter *format.Formatter, sentiment SentimentIndex, gas GasOracle) *Overview {
	return &Overview{
		market:    market,
		symbols:   symbols,
		fiats:     fiats,
		format:    formatter,
		sentiment: sentiment,
		gas:       gas,
	}
}

// Top lists the largest assets by market cap. args is an optional fiat.
func (o *Overview) Top(ctx context.Context, args string, defaultFiat fiat.Code) (string, error) {
	fields := strings.Fields(args)
	if len(fields) > 1 {
		return "", ErrUsage
	}
	code := defaultFiat
	if len(fields) == 1 {
		c, err := o.fiats.Validate(fields[0])
		if err != nil {
			return "", err
		}
		code = c
	}

	tickers, err := o.market.Top(ctx, o.fiats.QueryCode(code), TopLimit)
	if err != nil {
		return "", unavailable(err)
	}
	if len(tickers) == 0 {
		return "", errors.Wrap(types.ErrPartialData, "empty top list")
	}

	lines := []string{"🏆 *" + helpers.EscapeMarkdownV2(translation.Translate("Top market cap")) + "*"}
	for _, t := range tickers {
		q := price.Quote{AssetID: t.ID, Symbol: t.Symbol, Fiat: code, Price: t.Price, Change24h: t.Change24h}
		lines = append(lines, fmt.Sprintf("%d\\. *%s* %s",
			t.Rank,
			helpers.EscapeMarkdownV2(display(t.Symbol)),
			helpers.EscapeMarkdownV2(o.format.Quote(q, code)),
		))
	}
	return strings.Join(lines, "\n"), nil
}

func (o *Overview) Dominance(ctx context.Context) (string, error) {
	pct, err := o.market.Dominance(ctx)
	if err != nil {
		return "", unavailable(err)
	}
	return "👑 " + helpers.EscapeMarkdownV2(translation.Translate("BTC dominance: %s%%", pct.StringFixed(2))), nil
}

func (o *Overview) Fear(ctx context.Context) (string, error) {
	s, err := o.sentiment.Latest(ctx)
	if err != nil {
		return "", unavailable(err)
	}
	return "📉 " + helpers.EscapeMarkdownV2(translation.Translate("Fear & Greed Index: %d (%s)", s.Value, s.Classification)), nil
}

func (o *Overview) Gas(ctx context.Context) (string, error) {
	if !o.gas.Enabled() {
		return "⚠️ " + helpers.EscapeMarkdownV2(translation.Translate("Gas prices are disabled (ETHERSCAN_API_KEY is not set).")), nil
	}
	g, err := o.gas.Latest(ctx)
	if err != nil {
		return "", unavailable(err)
	}
	return "⛽ " + helpers.EscapeMarkdownV2(translation.Translate(
		"ETH gas\n• Safe: %s gwei\n• Propose: %s gwei\n• Fast: %s gwei",
		g.Safe.String(), g.Propose.String(), g.Fast.String(),
	)), nil
}

// OHLC reads "<symbol> [fiat] [days]" and renders the latest candles.
func (o *Overview) OHLC(ctx context.Context, args string, defaultFiat fiat.Code) (string, error) {
	fields := strings.Fields(strings.ToLower(args))
	if len(fields) == 0 || len(fields) > 3 {
		return "", ErrUsage
	}

	code, days := defaultFiat, 1
	for _, f := range fields[1:] {
		if n, err := strconv.Atoi(f); err == nil {
			days = n
			continue
		}
		c, err := o.fiats.Validate(f)
		if err != nil {
			return "", err
		}
		code = c
	}
	if !ohlcDays[days] {
		days = 1
	}

	id, err := o.symbols.Resolve(ctx, fields[0])
	if err != nil {
		return "", err
	}
	candles, err := o.market.OHLC(ctx, id, o.fiats.QueryCode(code), days)
	if err != nil {
		return "", unavailable(err)
	}
	if len(candles) == 0 {
		return "", errors.Wrapf(types.ErrPartialData, "no candles for %s", id)
	}
	if len(candles) > ohlcRows {
		candles = candles[len(candles)-ohlcRows:]
	}

	header := translation.Translate("OHLC %s/%s, %d days", display(fields[0]), code.Upper(), days)
	lines := []string{"🕯️ *" + helpers.EscapeMarkdownV2(header) + "*"}
	for _, c := range candles {
		lines = append(lines, helpers.EscapeMarkdownV2(fmt.Sprintf("%s UTC  O: %s  H: %s  L: %s  C: %s",
			c.Time.UTC().Format(ohlcLayout),
			o.format.Amount(c.Open, code),
			o.format.Amount(c.High, code),
			o.format.Amount(c.Low, code),
			o.format.Amount(c.Close, code),
		)))
	}
	return strings.Join(lines, "\n"), nil
}

// unavailable tags a provider failure so ErrorText reports an outage.
func unavailable(err error) error {
	if errors.Is(err, types.ErrUpstreamUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	log.WithError(err).Warn("market overview request failed")
	return errors.Wrap(types.ErrUpstreamUnavailable, err.Error())
}
