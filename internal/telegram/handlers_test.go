package telegram

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"crypto-assistant-bot/internal/airdrop"
	"crypto-assistant-bot/internal/alert"
	"crypto-assistant-bot/internal/chat"
	"crypto-assistant-bot/internal/commands"
	"crypto-assistant-bot/internal/database"
	"crypto-assistant-bot/internal/fiat"
	"crypto-assistant-bot/internal/format"
	"crypto-assistant-bot/internal/indicator"
	"crypto-assistant-bot/internal/intent"
	"crypto-assistant-bot/internal/market/mock_market"
	"crypto-assistant-bot/internal/metrics"
	"crypto-assistant-bot/internal/price"
	"crypto-assistant-bot/internal/symbol"
	"crypto-assistant-bot/internal/types"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type assistant struct {
	enabled bool
	asked   []string
}

func (a *assistant) Enabled() bool { return a.enabled }

func (a *assistant) Ask(_ context.Context, q string) (string, error) {
	return a.answer(q)
}

func (a *assistant) Reply(_ context.Context, text string) (string, error) {
	return a.answer(text)
}

func (a *assistant) Summarize(_ context.Context, text string) (string, error) {
	return a.answer("summary: " + text)
}

func (a *assistant) answer(q string) (string, error) {
	if !a.enabled {
		return "", chat.ErrDisabled
	}
	a.asked = append(a.asked, q)
	return "answer to " + q, nil
}

type feeds []airdrop.Item

func (f feeds) Fetch(_ context.Context, query string, limit int) []airdrop.Item {
	var out []airdrop.Item
	for _, it := range f {
		if query == "" || strings.Contains(strings.ToLower(it.Title), strings.ToLower(query)) {
			out = append(out, it)
		}
	}
	return out
}

type fearIndex struct{}

func (fearIndex) Latest(context.Context) (indicator.Sentiment, error) {
	return indicator.Sentiment{Value: 71, Classification: "Greed"}, nil
}

type fixture struct {
	bot       *Bot
	provider  *mock_market.MockProvider
	assistant *assistant
	metrics   *metrics.BotMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	provider := mock_market.NewMockProvider(ctrl)
	provider.EXPECT().Coins(gomock.Any()).Return(nil, errors.New("catalog down")).AnyTimes()
	provider.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	store, err := database.Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	fiats := fiat.NewValidator([]string{"usd", "usdt", "idr", "eur"}, map[string]string{"usdt": "usd"})
	symbols := symbol.NewResolver(provider, symbol.Config{Aliases: map[string]string{"btc": "bitcoin", "eth": "ethereum"}})
	prices := price.NewResolver(provider, fiats, price.Config{TTL: time.Minute})
	formatter := format.New(map[string]string{"idr": "id"})
	parser := intent.NewParser(intent.Config{
		PriceKeywords:   []string{"price", "harga"},
		ConvertKeywords: []string{"to", "ke"},
		Fiats:           []string{"usd", "usdt", "idr", "eur"},
	})
	m := metrics.New(prometheus.NewRegistry())
	a := &assistant{}

	bot := newBot(nil, BotConfig{DefaultFiat: "usd", ProviderName: "coinpaprika"}, Deps{
		Commands:  commands.NewService(parser, fiats, symbols, prices, formatter),
		Overview:  commands.NewOverview(provider, symbols, fiats, formatter, fearIndex{}, indicator.NewGasOracle("", "", time.Second)),
		Alerts:    alert.NewService(store, symbols, fiats, prices, formatter, m.AlertsTriggered),
		Fiats:     fiats,
		Settings:  store,
		Assistant: a,
		Airdrops: feeds{
			{Title: "ZkSync Season 2", Link: "https://example.com/zk", Summary: "Bridge and swap"},
			{Title: "Monad testnet", Link: "https://example.com/monad"},
		},
		Metrics: m,
	})
	return &fixture{bot: bot, provider: provider, assistant: a, metrics: m}
}

func message(chatType, text string) *tgbotapi.Message {
	m := &tgbotapi.Message{
		MessageID: 10,
		Chat:      &tgbotapi.Chat{ID: 42, Type: chatType},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return m
}

func (f *fixture) respond(t *testing.T, chatType, text string) (Message, bool) {
	t.Helper()
	return f.bot.Respond(context.Background(), message(chatType, text))
}

func prices(pairs ...string) map[string]types.Ticker {
	out := make(map[string]types.Ticker)
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i]] = types.Ticker{ID: pairs[i], Price: decimal.RequireFromString(pairs[i+1])}
	}
	return out
}

func TestStartShowsMenu(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	reply, ok := f.respond(t, "private", "/start")
	require.True(t, ok)
	require.Equal(t, int64(42), reply.ChatID)
	require.Equal(t, 10, reply.MessageID)
	require.IsType(t, tgbotapi.InlineKeyboardMarkup{}, reply.Markup)

	text, ok := menuText("menu_price")
	require.True(t, ok)
	require.Contains(t, text, `/convert 0\.25 btc idr`)
	_, ok = menuText("menu_unknown")
	require.False(t, ok)
}

func TestSetFiatChangesDefaultForFreeText(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	reply, _ := f.respond(t, "private", "/setfiat IDR")
	require.Equal(t, "Default currency set to IDR", reply.Text)

	reply, _ = f.respond(t, "private", "/setfiat xyz")
	require.Contains(t, reply.Text, "Unsupported currency")

	f.provider.EXPECT().
		Prices(gomock.Any(), []string{"bitcoin"}, "idr").
		Return(prices("bitcoin", "1000000000"), nil)

	reply, ok := f.respond(t, "private", "btc")
	require.True(t, ok)
	require.Equal(t, `*BTC*: 1\.000\.000\.000,00 IDR`, reply.Text)
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Intents.WithLabelValues("single")))
}

func TestDollarShortcut(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.provider.EXPECT().
		Prices(gomock.Any(), []string{"ethereum"}, "eur").
		Return(prices("ethereum", "3012.4"), nil)

	reply, ok := f.respond(t, "group", "$eth eur")
	require.True(t, ok)
	require.Equal(t, `*ETH*: 3,012\.40 EUR`, reply.Text)
}

func TestFreeTextFallsBackToAssistant(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	// disabled assistant stays silent in groups
	_, ok := f.respond(t, "group", "good morning everyone, what a day")
	require.False(t, ok)

	reply, ok := f.respond(t, "private", "good morning everyone, what a day")
	require.True(t, ok)
	require.True(t, reply.Plain)
	require.Contains(t, reply.Text, "disabled")

	f.assistant.enabled = true
	reply, ok = f.respond(t, "group", "what is restaking?")
	require.True(t, ok)
	require.Equal(t, "answer to what is restaking?", reply.Text)
}

func TestPriceCommandUsage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	reply, ok := f.respond(t, "private", "/price")
	require.True(t, ok)
	require.Equal(t, `Usage: /price <symbol\> \[fiat\]`, reply.Text)
}

func TestAlertCommands(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	reply, _ := f.respond(t, "private", "/alerts")
	require.Equal(t, `You have no active alerts\.`, reply.Text)

	reply, _ = f.respond(t, "private", "/alert add btc usd above 70000")
	require.Equal(t, `Alert set: BTC above 70,000\.00 USD`, reply.Text)

	reply, _ = f.respond(t, "private", "/alerts")
	require.Contains(t, reply.Text, `1\. BTC above 70,000\.00 USD`)

	reply, _ = f.respond(t, "private", "/alert del 2")
	require.Contains(t, reply.Text, "No such alert")

	reply, _ = f.respond(t, "private", "/alert del 1")
	require.Equal(t, `Alert removed: BTC above 70,000\.00 USD`, reply.Text)

	reply, _ = f.respond(t, "private", "/alert add btc usd sideways 1")
	require.Contains(t, reply.Text, "Usage")
}

func TestAirdrops(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	reply, _ := f.respond(t, "private", "/hunt zk")
	require.Contains(t, reply.Text, "*ZkSync Season 2*")
	require.Contains(t, reply.Text, "Bridge and swap")
	require.NotContains(t, reply.Text, "Monad")

	reply, _ = f.respond(t, "private", "/airdrops nothing-matches")
	require.Contains(t, reply.Text, "No matching airdrops")

	f.assistant.enabled = true
	reply, _ = f.respond(t, "private", "/airdrops monad")
	require.Contains(t, reply.Text, "answer to summary: Monad testnet")
}

func TestInlineArticle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.provider.EXPECT().
		Prices(gomock.Any(), []string{"bitcoin"}, "idr").
		Return(prices("bitcoin", "1000000000"), nil)

	article, ok := f.bot.InlineArticle(context.Background(), "q1", "btc/idr")
	require.True(t, ok)
	require.Equal(t, "💰 BTC IDR", article.Title)

	_, ok = f.bot.InlineArticle(context.Background(), "q2", "  ")
	require.False(t, ok)
}

func TestOverviewCommands(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.provider.EXPECT().Dominance(gomock.Any()).Return(decimal.RequireFromString("54.2"), nil)

	reply, ok := f.respond(t, "private", "/dominance")
	require.True(t, ok)
	require.Equal(t, `👑 BTC dominance: 54\.20%`, reply.Text)

	reply, _ = f.respond(t, "group", "/fear")
	require.Equal(t, `📉 Fear & Greed Index: 71 \(Greed\)`, reply.Text)

	reply, _ = f.respond(t, "private", "/gas")
	require.Contains(t, reply.Text, "disabled")

	reply, _ = f.respond(t, "private", "/ohlc")
	require.Equal(t, `Usage: /ohlc <symbol\> \[fiat\] \[days\]`, reply.Text)

	f.provider.EXPECT().Top(gomock.Any(), "usd", commands.TopLimit).Return(nil, errors.New("status 502"))
	reply, _ = f.respond(t, "private", "/top")
	require.Contains(t, reply.Text, "unavailable")
}
