package alert_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"crypto-assistant-bot/internal/alert"
	"crypto-assistant-bot/internal/database"
	"crypto-assistant-bot/internal/fiat"
	"crypto-assistant-bot/internal/format"
	"crypto-assistant-bot/internal/price"
	"crypto-assistant-bot/internal/types"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type symbols map[string]string

func (s symbols) Resolve(_ context.Context, ticker string) (string, error) {
	if id, ok := s[ticker]; ok {
		return id, nil
	}
	return "", types.ErrSymbolNotFound
}

// quoter serves fixed prices per fiat and records the batches it was asked for.
type quoter struct {
	mu      sync.Mutex
	prices  map[string]map[string]string
	batches map[string][]string
}

func (q *quoter) Quote(_ context.Context, ids []string, code fiat.Code) (price.Quotes, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.batches == nil {
		q.batches = make(map[string][]string)
	}
	q.batches[code.String()] = append(q.batches[code.String()], ids...)

	out := make(price.Quotes)
	for _, id := range ids {
		p, ok := q.prices[code.String()][id]
		if !ok {
			out[id] = price.Lookup{Err: types.ErrPartialData}
			continue
		}
		out[id] = price.Lookup{Quote: price.Quote{AssetID: id, Fiat: code, Price: decimal.RequireFromString(p)}}
	}
	return out, nil
}

type notifier struct {
	sent map[int64][]string
	fail bool
}

func (n *notifier) Notify(chatID int64, text string) error {
	if n.fail {
		return errors.New("telegram down")
	}
	if n.sent == nil {
		n.sent = make(map[int64][]string)
	}
	n.sent[chatID] = append(n.sent[chatID], text)
	return nil
}

func newService(t *testing.T, q *quoter) (*alert.Service, *database.Store, prometheus.Counter) {
	t.Helper()

	store, err := database.Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	triggered := prometheus.NewCounter(prometheus.CounterOpts{Name: "alerts_triggered"})
	fiats := fiat.NewValidator([]string{"usd", "idr"}, nil)
	s := alert.NewService(store, symbols{"btc": "bitcoin", "eth": "ethereum"}, fiats, q, format.New(map[string]string{"idr": "id"}), triggered)
	return s, store, triggered
}

func TestParseRule(t *testing.T) {
	t.Parallel()

	rule, err := alert.ParseRule("BTC usd above 70,000.50", "idr")
	require.NoError(t, err)
	require.Equal(t, "btc", rule.Symbol)
	require.Equal(t, "usd", rule.Fiat)
	require.Equal(t, types.AlertAbove, rule.Op)
	require.True(t, decimal.RequireFromString("70000.5").Equal(rule.Target))

	rule, err = alert.ParseRule("$eth < 1.500,25", "idr")
	require.NoError(t, err)
	require.Equal(t, "eth", rule.Symbol)
	require.Equal(t, "idr", rule.Fiat)
	require.Equal(t, types.AlertBelow, rule.Op)
	require.True(t, decimal.RequireFromString("1500.25").Equal(rule.Target))

	_, err = alert.ParseRule("btc usd sideways 5", "usd")
	require.True(t, errors.Is(err, alert.ErrUsage))

	_, err = alert.ParseRule("btc above 0", "usd")
	require.True(t, errors.Is(err, types.ErrAmountInvalid))

	_, err = alert.ParseRule("btc", "usd")
	require.True(t, errors.Is(err, alert.ErrUsage))
}

func TestParseRuleCommaGroupedTargets(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]string{
		"70,000":    "70000",
		"1,250,000": "1250000",
		"0,5":       "0.5",
		"65000,75":  "65000.75",
		"1.234,5":   "1234.5",
	} {
		rule, err := alert.ParseRule("btc usd above "+raw, "usd")
		require.NoErrorf(t, err, "target %q", raw)
		require.Truef(t, decimal.RequireFromString(want).Equal(rule.Target), "target %q got %s", raw, rule.Target)
	}
}

func TestTriggered(t *testing.T) {
	t.Parallel()

	above := types.Alert{Op: types.AlertAbove, Target: decimal.NewFromInt(100)}
	below := types.Alert{Op: types.AlertBelow, Target: decimal.NewFromInt(100)}

	require.True(t, alert.Triggered(above, decimal.NewFromInt(100)))
	require.True(t, alert.Triggered(above, decimal.NewFromInt(101)))
	require.False(t, alert.Triggered(above, decimal.RequireFromString("99.99")))
	require.True(t, alert.Triggered(below, decimal.NewFromInt(100)))
	require.False(t, alert.Triggered(below, decimal.RequireFromString("100.01")))
	require.False(t, alert.Triggered(types.Alert{Op: "other"}, decimal.NewFromInt(1)))
}

func TestAddListDelete(t *testing.T) {
	t.Parallel()

	s, _, _ := newService(t, &quoter{})
	ctx := context.Background()

	a, err := s.Add(ctx, 1, "btc above 70000", "usd")
	require.NoError(t, err)
	require.Equal(t, "bitcoin", a.AssetID)
	require.NotZero(t, a.ID)
	require.Equal(t, "BTC above 70,000.00 USD", s.Describe(a))

	_, err = s.Add(ctx, 1, "eth idr below 50000000", "usd")
	require.NoError(t, err)

	_, err = s.Add(ctx, 1, "doge above 1", "usd")
	require.True(t, errors.Is(err, types.ErrSymbolNotFound))

	_, err = s.Add(ctx, 1, "btc eur above 1", "usd")
	require.True(t, errors.Is(err, types.ErrFiatInvalid))

	list, err := s.List(1)
	require.NoError(t, err)
	require.Len(t, list, 2)

	_, err = s.Delete(1, 3)
	require.True(t, errors.Is(err, alert.ErrNoSuchAlert))

	removed, err := s.Delete(1, 1)
	require.NoError(t, err)
	require.Equal(t, "bitcoin", removed.AssetID)

	list, err = s.List(1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "ethereum", list[0].AssetID)
}

func TestCheckNotifiesAndDeletesTriggered(t *testing.T) {
	t.Parallel()

	q := &quoter{prices: map[string]map[string]string{
		"usd": {"bitcoin": "71000"},
		"idr": {"ethereum": "60000000"},
	}}
	s, store, triggered := newService(t, q)
	ctx := context.Background()

	_, err := s.Add(ctx, 1, "btc above 70000", "usd")
	require.NoError(t, err)
	_, err = s.Add(ctx, 2, "eth idr below 50000000", "usd")
	require.NoError(t, err)
	_, err = s.Add(ctx, 2, "btc usd below 60000", "usd")
	require.NoError(t, err)

	n := &notifier{}
	sent, err := s.Check(ctx, n)
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.Len(t, n.sent[1], 1)
	require.Contains(t, n.sent[1][0], `*71,000\.00 USD*`)
	require.Empty(t, n.sent[2])
	require.Equal(t, 1.0, testutil.ToFloat64(triggered))

	// one batch per fiat
	require.ElementsMatch(t, []string{"bitcoin", "bitcoin"}, q.batches["usd"])
	require.Equal(t, []string{"ethereum"}, q.batches["idr"])

	remaining, err := store.GetAllAlerts()
	require.NoError(t, err)
	require.Len(t, remaining, 2)
}

func TestCheckKeepsAlertWhenDeliveryFails(t *testing.T) {
	t.Parallel()

	q := &quoter{prices: map[string]map[string]string{"usd": {"bitcoin": "71000"}}}
	s, store, _ := newService(t, q)

	_, err := s.Add(context.Background(), 1, "btc above 70000", "usd")
	require.NoError(t, err)

	sent, err := s.Check(context.Background(), &notifier{fail: true})
	require.NoError(t, err)
	require.Zero(t, sent)

	remaining, err := store.GetAllAlerts()
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}
