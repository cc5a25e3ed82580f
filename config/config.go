package config

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		viper.AutomaticEnv()

		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("api_pro_key", "API_PRO_KEY")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "LANG")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("provider", "PROVIDER")
		viper.BindEnv("coingecko_url", "COINGECKO_URL")
		viper.BindEnv("coingecko_api_key", "COINGECKO_API_KEY")
		viper.BindEnv("default_fiat", "FIAT_DEFAULT")
		viper.BindEnv("fiat_allowlist", "FIAT_ALLOWLIST")
		viper.BindEnv("fiat_aliases", "FIAT_ALIASES")
		viper.BindEnv("fiat_locales", "FIAT_LOCALES")
		viper.BindEnv("cache_ttl_quotes", "CACHE_TTL_QUOTES")
		viper.BindEnv("cache_ttl_catalog", "CACHE_TTL_CATALOG")
		viper.BindEnv("catalog_retry", "CATALOG_RETRY")
		viper.BindEnv("http_timeout", "HTTP_TIMEOUT")
		viper.BindEnv("workers", "WORKERS")
		viper.BindEnv("alert_interval", "ALERT_INTERVAL")
		viper.BindEnv("openai_api_key", "OPENAI_API_KEY")
		viper.BindEnv("openai_model", "OPENAI_MODEL")
		viper.BindEnv("airdrop_feeds", "AIRDROP_FEEDS")
		viper.BindEnv("fear_greed_url", "FEAR_GREED_URL")
		viper.BindEnv("etherscan_url", "ETHERSCAN_URL")
		viper.BindEnv("etherscan_api_key", "ETHERSCAN_API_KEY")
		viper.BindEnv("price_keywords", "PRICE_KEYWORDS")
		viper.BindEnv("convert_keywords", "CONVERT_KEYWORDS")

		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
		viper.SetDefault("db_path", "/app/data/bot.db")
		viper.SetDefault("provider", "coinpaprika")
		viper.SetDefault("coingecko_url", "https://api.coingecko.com/api/v3")
		viper.SetDefault("default_fiat", "usd")
		viper.SetDefault("fiat_allowlist", "usd,usdt,idr,eur")
		viper.SetDefault("fiat_aliases", "usdt:usd")
		viper.SetDefault("fiat_locales", "idr:id")
		viper.SetDefault("cache_ttl_quotes", "30s")
		viper.SetDefault("cache_ttl_catalog", "24h")
		viper.SetDefault("catalog_retry", "1m")
		viper.SetDefault("http_timeout", "20s")
		viper.SetDefault("workers", 8)
		viper.SetDefault("alert_interval", "60s")
		viper.SetDefault("openai_model", "gpt-4o-mini")
		viper.SetDefault("airdrop_feeds", "https://airdrops.io/latest/feed,https://cryptorank.io/airdrops/feed")
		viper.SetDefault("fear_greed_url", "https://api.alternative.me/fng/")
		viper.SetDefault("etherscan_url", "https://api.etherscan.io/api")
		viper.SetDefault("price_keywords", "price,prices,harga")
		viper.SetDefault("convert_keywords", "to,ke,in,into")
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

// GetDuration accepts Go duration strings ("30s") and plain seconds ("30").
func GetDuration(key string) time.Duration {
	InitConfig()
	return ParseDuration(viper.GetString(key), viper.GetDuration(key))
}

// ParseDuration reads a bare integer as seconds and returns parsed otherwise.
func ParseDuration(raw string, parsed time.Duration) time.Duration {
	if n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
		return time.Duration(n) * time.Second
	}
	return parsed
}

// GetList reads a comma separated value, e.g. "usd,usdt,idr".
func GetList(key string) []string {
	InitConfig()
	return SplitList(viper.GetString(key))
}

// GetPairs reads "a:b,c:d" into a map.
func GetPairs(key string) map[string]string {
	InitConfig()
	return SplitPairs(viper.GetString(key))
}

func SplitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func SplitPairs(raw string) map[string]string {
	out := make(map[string]string)
	for _, item := range SplitList(raw) {
		k, v, ok := strings.Cut(item, ":")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if ok && k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
