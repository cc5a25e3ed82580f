package commands_test

import (
	"context"
	"testing"
	"time"

	"crypto-assistant-bot/internal/commands"
	"crypto-assistant-bot/internal/fiat"
	"crypto-assistant-bot/internal/format"
	"crypto-assistant-bot/internal/intent"
	"crypto-assistant-bot/internal/market/mock_market"
	"crypto-assistant-bot/internal/price"
	"crypto-assistant-bot/internal/symbol"
	"crypto-assistant-bot/internal/types"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newService(t *testing.T) (*commands.Service, *mock_market.MockProvider) {
	t.Helper()

	ctrl := gomock.NewController(t)
	provider := mock_market.NewMockProvider(ctrl)
	provider.EXPECT().Coins(gomock.Any()).Return(nil, errors.New("catalog down")).AnyTimes()
	provider.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	fiats := fiat.NewValidator([]string{"usd", "usdt", "idr", "eur"}, map[string]string{"usdt": "usd"})
	parser := intent.NewParser(intent.Config{
		PriceKeywords:   []string{"price", "harga"},
		ConvertKeywords: []string{"to", "ke"},
		Fiats:           []string{"usd", "usdt", "idr", "eur"},
	})
	symbols := symbol.NewResolver(provider, symbol.Config{
		Aliases: map[string]string{"btc": "bitcoin", "eth": "ethereum"},
	})
	prices := price.NewResolver(provider, fiats, price.Config{TTL: 30 * time.Second})

	return commands.NewService(parser, fiats, symbols, prices, format.New(map[string]string{"idr": "id"})), provider
}

func tickers(pairs ...string) map[string]types.Ticker {
	out := make(map[string]types.Ticker)
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i]] = types.Ticker{ID: pairs[i], Price: decimal.RequireFromString(pairs[i+1])}
	}
	return out
}

func TestHandleConvertInIDR(t *testing.T) {
	t.Parallel()

	s, provider := newService(t)
	provider.EXPECT().
		Prices(gomock.Any(), []string{"bitcoin"}, "idr").
		Return(tickers("bitcoin", "1000000000"), nil)

	in, text, err := s.Handle(context.Background(), "0.25 btc idr", "usd")
	require.NoError(t, err)
	require.Equal(t, "convert", intent.Kind(in))
	require.Contains(t, text, `0,25 *BTC*`)
	require.Contains(t, text, `*250\.000\.000,00 IDR*`)
}

func TestHandleSingleQuoteUsesDefaultFiat(t *testing.T) {
	t.Parallel()

	s, provider := newService(t)
	provider.EXPECT().
		Prices(gomock.Any(), []string{"ethereum"}, "eur").
		Return(tickers("ethereum", "3012.4"), nil)

	_, text, err := s.Handle(context.Background(), "ETH", "eur")
	require.NoError(t, err)
	require.Equal(t, `*ETH*: 3,012\.40 EUR`, text)
}

func TestHandleMultiQuoteReportsMissingPerSymbol(t *testing.T) {
	t.Parallel()

	s, provider := newService(t)
	provider.EXPECT().
		Prices(gomock.Any(), []string{"bitcoin", "ethereum"}, "usd").
		Return(tickers("bitcoin", "64000.5"), nil)

	_, text, err := s.Handle(context.Background(), "btc, eth, zzz", "usd")
	require.NoError(t, err)
	require.Equal(t, "*BTC*: 64,000\\.50 USD\n*ETH*: _not found_\n*ZZZ*: _not found_", text)
}

func TestHandleInvalidFiat(t *testing.T) {
	t.Parallel()

	s, _ := newService(t)
	_, _, err := s.Handle(context.Background(), "btc/xyz", "usd")
	require.True(t, errors.Is(err, types.ErrFiatInvalid))
	require.Equal(t, `Unsupported currency\. Use one of: EUR, IDR, USD, USDT`, s.ErrorText(err))
}

func TestHandleFallsBackToChat(t *testing.T) {
	t.Parallel()

	s, _ := newService(t)

	in, _, err := s.Handle(context.Background(), "what happened to the market today?", "usd")
	require.True(t, errors.Is(err, commands.ErrUnrecognized))
	require.True(t, commands.ChatFallback(in, err))

	in, _, err = s.Handle(context.Background(), "hello", "usd")
	require.True(t, errors.Is(err, types.ErrSymbolNotFound))
	require.True(t, commands.ChatFallback(in, err))

	in, _, err = s.Handle(context.Background(), "price hello", "usd")
	require.True(t, errors.Is(err, types.ErrSymbolNotFound))
	require.False(t, commands.ChatFallback(in, err))
}

func TestHandleUpstreamUnavailable(t *testing.T) {
	t.Parallel()

	s, provider := newService(t)
	provider.EXPECT().
		Prices(gomock.Any(), []string{"bitcoin"}, "usd").
		Return(nil, errors.New("connection reset")).
		Times(2)

	_, _, err := s.Handle(context.Background(), "btc", "usd")
	require.True(t, errors.Is(err, types.ErrUpstreamUnavailable))
	require.Contains(t, s.ErrorText(err), "unavailable")
}

func TestConvertCommandRejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	s, _ := newService(t)
	_, err := s.Convert(context.Background(), "0 btc usd", "usd")
	require.True(t, errors.Is(err, types.ErrAmountInvalid))

	_, err = s.Convert(context.Background(), "-2 btc to usd", "usd")
	require.True(t, errors.Is(err, types.ErrAmountInvalid))

	_, err = s.Convert(context.Background(), "btc", "usd")
	require.True(t, errors.Is(err, commands.ErrUsage))
}

func TestConvertCommandEuropeanAmount(t *testing.T) {
	t.Parallel()

	s, provider := newService(t)
	provider.EXPECT().
		Prices(gomock.Any(), []string{"ethereum"}, "usd").
		Return(tickers("ethereum", "2"), nil)

	text, err := s.Convert(context.Background(), "1.234,56 eth to usd", "idr")
	require.NoError(t, err)
	require.Contains(t, text, `*2,469\.12 USD*`)
}

func TestPricesCommandTrailingFiat(t *testing.T) {
	t.Parallel()

	s, provider := newService(t)
	provider.EXPECT().
		Prices(gomock.Any(), []string{"bitcoin", "ethereum"}, "usd").
		Return(tickers("bitcoin", "64000", "ethereum", "3000"), nil)

	text, err := s.Prices(context.Background(), "btc eth,btc usdt", "idr")
	require.NoError(t, err)
	require.Equal(t, "*BTC*: 64,000\\.00 USDT\n*ETH*: 3,000\\.00 USDT", text)
}

func TestPriceCommandUsage(t *testing.T) {
	t.Parallel()

	s, _ := newService(t)
	_, err := s.Price(context.Background(), "", "usd")
	require.True(t, errors.Is(err, commands.ErrUsage))
}

func TestStatus(t *testing.T) {
	t.Parallel()

	s, provider := newService(t)
	provider.EXPECT().
		Prices(gomock.Any(), []string{"bitcoin"}, "idr").
		Return(tickers("bitcoin", "1000000000"), nil)

	text := s.Status(context.Background(), "coingecko", "idr")
	require.Contains(t, text, "Provider: coingecko")
	require.Contains(t, text, `Status: ok \(`)
	require.Contains(t, text, "Default currency: IDR")

	provider.EXPECT().
		Prices(gomock.Any(), []string{"bitcoin"}, "usd").
		Return(nil, errors.New("timeout")).
		Times(2)

	text = s.Status(context.Background(), "coingecko", "usd")
	require.Contains(t, text, "Status: unavailable")
}
