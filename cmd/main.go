package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-assistant-bot/config"
	"crypto-assistant-bot/internal/airdrop"
	"crypto-assistant-bot/internal/alert"
	"crypto-assistant-bot/internal/chat"
	"crypto-assistant-bot/internal/commands"
	"crypto-assistant-bot/internal/database"
	"crypto-assistant-bot/internal/fiat"
	"crypto-assistant-bot/internal/format"
	"crypto-assistant-bot/internal/indicator"
	"crypto-assistant-bot/internal/intent"
	"crypto-assistant-bot/internal/market"
	"crypto-assistant-bot/internal/market/coingecko"
	"crypto-assistant-bot/internal/market/coinpaprika"
	"crypto-assistant-bot/internal/metrics"
	"crypto-assistant-bot/internal/price"
	"crypto-assistant-bot/internal/symbol"
	"crypto-assistant-bot/internal/telegram"
	"crypto-assistant-bot/lib/translation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func init() {
	config.InitConfig()
	setupLogging()
}

func main() {
	lang := translation.Configure("locales", config.GetString("lang"))

	store, err := database.Open(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	botMetrics := metrics.New(prometheus.DefaultRegisterer)
	botMetrics.Load(store)

	provider, aliases := newProvider(botMetrics)
	timeout := config.GetDuration("http_timeout")

	fiats := fiat.NewValidator(config.GetList("fiat_allowlist"), config.GetPairs("fiat_aliases"))
	defaultFiat, err := fiats.Validate(config.GetString("default_fiat"))
	if err != nil {
		log.Fatalf("Invalid default fiat: %v", err)
	}

	symbols := symbol.NewResolver(provider, symbol.Config{
		Aliases:    aliases,
		CatalogTTL: config.GetDuration("cache_ttl_catalog"),
		RetryAfter: config.GetDuration("catalog_retry"),
		Timeout:    timeout,
	})
	prices := price.NewResolver(provider, fiats, price.Config{
		TTL:     config.GetDuration("cache_ttl_quotes"),
		Timeout: timeout,
	})
	formatter := format.New(config.GetPairs("fiat_locales"))
	parser := intent.NewParser(intent.Config{
		PriceKeywords:   config.GetList("price_keywords"),
		ConvertKeywords: config.GetList("convert_keywords"),
		Fiats:           config.GetList("fiat_allowlist"),
	})
	alerts := alert.NewService(store, symbols, fiats, prices, formatter, botMetrics.AlertsTriggered)

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:          config.GetString("telegram_bot_token"),
		Debug:          config.GetBool("debug"),
		UpdatesTimeout: 60,
		DefaultFiat:    defaultFiat,
		ProviderName:   provider.Name(),
	}, telegram.Deps{
		Commands: commands.NewService(parser, fiats, symbols, prices, formatter),
		Overview: commands.NewOverview(provider, symbols, fiats, formatter,
			indicator.NewFearGreed(config.GetString("fear_greed_url"), timeout),
			indicator.NewGasOracle(config.GetString("etherscan_url"), config.GetString("etherscan_api_key"), timeout),
		),
		Alerts:   alerts,
		Fiats:    fiats,
		Settings: store,
		Assistant: chat.New(chat.Config{
			APIKey:   config.GetString("openai_api_key"),
			Model:    config.GetString("openai_model"),
			Language: lang,
			Timeout:  timeout,
		}),
		Airdrops: airdrop.New(config.GetList("airdrop_feeds"), timeout),
		Metrics:  botMetrics,
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return launchMetricsAndHealthServer(ctx, config.GetInt("metrics_port"))
	})
	g.Go(func() error {
		refreshCatalog(ctx, symbols, config.GetDuration("cache_ttl_catalog"))
		return nil
	})
	g.Go(func() error {
		alerts.Run(ctx, config.GetDuration("alert_interval"), bot)
		return nil
	})
	g.Go(func() error {
		saveMetricsPeriodically(ctx, botMetrics, store, 5*time.Minute)
		return nil
	})
	g.Go(func() error {
		handleUpdates(ctx, bot, bot.GetUpdatesChannel(), config.GetInt("workers"))
		return nil
	})

	log.WithFields(log.Fields{"provider": provider.Name(), "fiat": defaultFiat, "lang": lang}).Info("bot started")
	<-ctx.Done()
	bot.Stop()

	if err := g.Wait(); err != nil {
		log.Errorf("Shutdown with error: %v", err)
	}
	if err := botMetrics.Save(store); err != nil {
		log.Errorf("Failed to save metrics: %v", err)
	}
	log.Info("Metrics saved, shutting down...")
}

func setupLogging() {
	log.SetLevel(log.ErrorLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting telegram bot...")
}

func newProvider(m *metrics.BotMetrics) (market.Provider, map[string]string) {
	timeout := config.GetDuration("http_timeout")

	var (
		p       market.Provider
		aliases map[string]string
	)
	switch name := config.GetString("provider"); name {
	case "coingecko":
		options := []coingecko.Option{coingecko.WithBaseURL(config.GetString("coingecko_url"))}
		if key := config.GetString("coingecko_api_key"); key != "" {
			options = append(options, coingecko.WithAPIKey(key))
		}
		p, aliases = coingecko.New(timeout, options...), coingecko.DefaultAliases
	default:
		if name != "coinpaprika" {
			log.Warnf("Unknown provider %q, using coinpaprika", name)
		}
		p, aliases = coinpaprika.New(config.GetString("api_pro_key"), timeout), coinpaprika.DefaultAliases
	}
	return market.Instrument(p, m.UpstreamRequests, m.UpstreamLatency), aliases
}

// handleUpdates dispatches updates to at most workers concurrent handlers
// until ctx is done or the channel closes.
func handleUpdates(ctx context.Context, bot *telegram.Bot, updates tgbotapi.UpdatesChannel, workers int) {
	if workers <= 0 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	defer g.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			g.Go(func() error {
				bot.HandleUpdate(ctx, update)
				return nil
			})
		}
	}
}

// refreshCatalog warms the symbol catalog at startup and then once per ttl.
func refreshCatalog(ctx context.Context, symbols *symbol.Resolver, ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		if err := symbols.Refresh(ctx); err != nil {
			log.Warnf("Catalog refresh failed: %v", err)
		} else {
			fetchedAt, size := symbols.CatalogState()
			log.WithFields(log.Fields{"coins": size, "fetched_at": fetchedAt}).Debug("catalog refreshed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func saveMetricsPeriodically(ctx context.Context, m *metrics.BotMetrics, store metrics.Store, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Save(store); err != nil {
				log.Errorf("Failed to save metrics: %v", err)
			}
		}
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthCheckHandler)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infof("Launching metrics and health endpoint on :%d", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
