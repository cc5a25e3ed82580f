package symbol

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"crypto-assistant-bot/internal/types"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Source is the part of the market-data provider the resolver needs.
type Source interface {
	Coins(ctx context.Context) ([]types.Coin, error)
	Search(ctx context.Context, query string) ([]types.Coin, error)
}

type Config struct {
	// Aliases is the curated ticker -> id table; it wins over the catalog.
	Aliases map[string]string
	// CatalogTTL is how long a fetched catalog counts as fresh.
	CatalogTTL time.Duration
	// RetryAfter is the pause after a failed catalog refresh before the next attempt.
	RetryAfter time.Duration
	// Timeout bounds each upstream call.
	Timeout time.Duration
}

// Resolver maps user tickers to provider asset ids: static aliases, then the
// lazily refreshed catalog, then a remote search.
type Resolver struct {
	source  Source
	aliases map[string]string
	cfg     Config
	now     func() time.Time

	group singleflight.Group

	mu          sync.RWMutex
	catalog     map[string]string
	fetchedAt   time.Time
	lastAttempt time.Time
}

type Option func(*Resolver)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

func NewResolver(source Source, cfg Config, options ...Option) *Resolver {
	if cfg.CatalogTTL <= 0 {
		cfg.CatalogTTL = 24 * time.Hour
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = time.Minute
	}

	r := &Resolver{
		source:  source,
		aliases: make(map[string]string, len(cfg.Aliases)),
		cfg:     cfg,
		now:     time.Now,
	}
	for k, v := range cfg.Aliases {
		r.aliases[Normalize(k)] = v
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Normalize lowercases a ticker and strips surrounding space and leading
// currency glyphs such as "$".
func Normalize(ticker string) string {
	t := strings.ToLower(strings.TrimSpace(ticker))
	t = strings.TrimLeftFunc(t, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.TrimSpace(t)
}

// Resolve returns the asset id for ticker or an error wrapping
// types.ErrSymbolNotFound. Upstream failures count as misses.
func (r *Resolver) Resolve(ctx context.Context, ticker string) (string, error) {
	key := Normalize(ticker)
	if key == "" {
		return "", errors.Wrapf(types.ErrSymbolNotFound, "%q", ticker)
	}

	if id, ok := r.aliases[key]; ok {
		return id, nil
	}

	if id, ok := r.lookupCatalog(ctx, key); ok {
		return id, nil
	}

	if id, ok := r.search(ctx, key); ok {
		return id, nil
	}

	return "", errors.Wrapf(types.ErrSymbolNotFound, "%q", ticker)
}

// Refresh refetches the catalog. Concurrent callers share one upstream call.
// A failed refresh keeps the previous catalog.
func (r *Resolver) Refresh(ctx context.Context) error {
	_, err, _ := r.group.Do("catalog", func() (interface{}, error) {
		r.mu.Lock()
		r.lastAttempt = r.now()
		r.mu.Unlock()

		callCtx, cancel := r.withTimeout(ctx)
		defer cancel()

		coins, err := r.source.Coins(callCtx)
		if err != nil {
			return nil, errors.Wrap(err, "refresh catalog")
		}
		if len(coins) == 0 {
			return nil, errors.New("refresh catalog: provider returned no coins")
		}

		catalog := make(map[string]string, len(coins))
		for _, c := range coins {
			key := Normalize(c.Symbol)
			if key == "" {
				continue
			}
			// coins arrive best ranked first
			if _, taken := catalog[key]; !taken {
				catalog[key] = c.ID
			}
		}

		r.mu.Lock()
		r.catalog = catalog
		r.fetchedAt = r.now()
		r.mu.Unlock()

		log.Debugf("asset catalog refreshed with %d tickers", len(catalog))
		return nil, nil
	})
	return err
}

// CatalogState reports when the catalog was last fetched and its size.
func (r *Resolver) CatalogState() (fetchedAt time.Time, size int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fetchedAt, len(r.catalog)
}

func (r *Resolver) lookupCatalog(ctx context.Context, key string) (string, bool) {
	r.mu.RLock()
	stale := r.catalog == nil || r.now().Sub(r.fetchedAt) >= r.cfg.CatalogTTL
	canRetry := r.lastAttempt.IsZero() || r.now().Sub(r.lastAttempt) >= r.cfg.RetryAfter
	r.mu.RUnlock()

	if stale && canRetry {
		if err := r.Refresh(ctx); err != nil {
			log.WithError(err).Warn("asset catalog refresh failed, using previous catalog")
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.catalog[key]
	return id, ok
}

func (r *Resolver) search(ctx context.Context, key string) (string, bool) {
	callCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	coins, err := r.source.Search(callCtx, key)
	if err != nil {
		log.WithError(err).WithField("query", key).Warn("asset search failed")
		return "", false
	}
	if len(coins) == 0 || coins[0].ID == "" {
		return "", false
	}

	log.Debugf("Best match for query '%s' is: %s", key, coins[0].ID)
	return coins[0].ID, true
}

func (r *Resolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, r.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
