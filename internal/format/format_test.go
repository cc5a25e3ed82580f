package format_test

import (
	"testing"

	"crypto-assistant-bot/internal/format"
	"crypto-assistant-bot/internal/price"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAmount(t *testing.T) {
	t.Parallel()

	f := format.New(nil)
	cases := []struct {
		in, want string
	}{
		{"1234.5", "1,234.50 USD"},
		{"1", "1.00 USD"},
		{"64000", "64,000.00 USD"},
		{"1234567.891", "1,234,567.89 USD"},
		{"0.5", "0.50 USD"},
		{"0.1234", "0.12 USD"},
		{"0.0123", "0.012 USD"},
		{"0.0000321", "0.000032 USD"},
		{"0.00000000123", "0.00000000 USD"},
		{"0", "0 USD"},
		{"0.000", "0 USD"},
	}
	for _, tc := range cases {
		require.Equalf(t, tc.want, f.Amount(d(tc.in), "usd"), "input %s", tc.in)
	}
}

func TestMicroValuesKeepSignificantDigits(t *testing.T) {
	t.Parallel()

	got := format.New(nil).Amount(d("0.0000321"), "usd")
	require.NotEqual(t, "0.00 USD", got)
	require.Contains(t, got, "32")
}

func TestFractionDigits(t *testing.T) {
	t.Parallel()

	cases := map[string]int32{
		"5":           2,
		"1":           2,
		"0.99":        2,
		"0.5":         2,
		"0.1":         3,
		"0.05":        3,
		"0.01":        4,
		"0.0099":      4,
		"0.0000321":   6,
		"0.00000123":  7,
		"0.0000001":   8,
		"0.000000001": 8,
	}
	for in, want := range cases {
		require.Equalf(t, want, format.FractionDigits(d(in)), "input %s", in)
	}
}

func TestAmountUsesFiatLocale(t *testing.T) {
	t.Parallel()

	f := format.New(map[string]string{"idr": "id"})
	require.Equal(t, "250.000.000,00 IDR", f.Amount(d("250000000"), "idr"))
	require.Equal(t, "1,234.50 USD", f.Amount(d("1234.5"), "usd"))
}

func TestStyleFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, format.Style{Group: ",", Decimal: "."}, format.StyleFor(language.English))
	require.Equal(t, format.Style{Group: ".", Decimal: ","}, format.StyleFor(language.Indonesian))
}

func TestChange(t *testing.T) {
	t.Parallel()

	f := format.New(nil)
	require.Equal(t, "+1.23%", f.Change(decimal.NewNullDecimal(d("1.2345")), "usd"))
	require.Equal(t, "-0.50%", f.Change(decimal.NewNullDecimal(d("-0.5")), "usd"))
	require.Equal(t, "+0.00%", f.Change(decimal.NewNullDecimal(d("0")), "usd"))
	require.Equal(t, "+0.00%", f.Change(decimal.NewNullDecimal(d("-0.001")), "usd"))
	require.Equal(t, "", f.Change(decimal.NullDecimal{}, "usd"))
}

func TestQuote(t *testing.T) {
	t.Parallel()

	f := format.New(nil)
	q := price.Quote{AssetID: "bitcoin", Fiat: "usd", Price: d("1234.5")}
	require.Equal(t, "1,234.50 USD", f.Quote(q, "usd"))

	q.Change24h = decimal.NewNullDecimal(d("-2.345"))
	require.Equal(t, "1,234.50 USD (24h: -2.35%)", f.Quote(q, "usd"))
}

func TestNumber(t *testing.T) {
	t.Parallel()

	f := format.New(map[string]string{"idr": "id"})
	require.Equal(t, "0.25", f.Number(d("0.25"), "usd"))
	require.Equal(t, "0,25", f.Number(d("0.25"), "idr"))
	require.Equal(t, "12,500", f.Number(d("12500"), "usd"))
}
