package config_test

import (
	"testing"
	"time"

	"crypto-assistant-bot/config"

	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"usd", "usdt", "idr"}, config.SplitList(" USD, usdt,,idr "))
	require.Nil(t, config.SplitList(""))
}

func TestSplitPairs(t *testing.T) {
	t.Parallel()

	require.Equal(t, map[string]string{"usdt": "usd", "idr": "id"}, config.SplitPairs("usdt:usd, IDR:id, broken, :x"))
}

func TestDefaults(t *testing.T) {
	require.Equal(t, 30*time.Second, config.GetDuration("cache_ttl_quotes"))
	require.Equal(t, 24*time.Hour, config.GetDuration("cache_ttl_catalog"))
	require.Equal(t, []string{"usd", "usdt", "idr", "eur"}, config.GetList("fiat_allowlist"))
	require.Equal(t, map[string]string{"usdt": "usd"}, config.GetPairs("fiat_aliases"))
	require.Equal(t, "https://api.alternative.me/fng/", config.GetString("fear_greed_url"))
	require.Empty(t, config.GetString("etherscan_api_key"))
}

func TestDurationPlainSeconds(t *testing.T) {
	t.Setenv("CACHE_TTL_QUOTES", "30")
	t.Setenv("HTTP_TIMEOUT", "1m30s")

	require.Equal(t, 30*time.Second, config.GetDuration("cache_ttl_quotes"))
	require.Equal(t, 90*time.Second, config.GetDuration("http_timeout"))
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	require.Equal(t, 20*time.Second, config.ParseDuration(" 20 ", 20))
	require.Equal(t, time.Minute, config.ParseDuration("1m", time.Minute))
	require.Equal(t, time.Duration(0), config.ParseDuration("", 0))
}
