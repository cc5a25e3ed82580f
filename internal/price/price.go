package price

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"crypto-assistant-bot/internal/fiat"
	"crypto-assistant-bot/internal/types"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Quote is the price of one asset in one fiat.
type Quote struct {
	AssetID   string
	Symbol    string
	Fiat      fiat.Code
	Price     decimal.Decimal
	Change24h decimal.NullDecimal
	FetchedAt time.Time
}

// Lookup is the outcome for one requested id: a Quote, or Err wrapping
// types.ErrPartialData or types.ErrUpstreamUnavailable.
type Lookup struct {
	Quote Quote
	Err   error
}

// Quotes holds a Lookup for every requested id.
type Quotes map[string]Lookup

// Missing lists the ids without a quote, sorted.
func (q Quotes) Missing() []string {
	var out []string
	for id, l := range q {
		if l.Err != nil {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Conversion is Amount units of an asset valued at Quote.
type Conversion struct {
	Amount decimal.Decimal
	Quote  Quote
	Total  decimal.Decimal
}

// Source is the part of the market-data provider the resolver needs.
type Source interface {
	Prices(ctx context.Context, ids []string, fiat string) (map[string]types.Ticker, error)
}

// FiatMapper maps a display fiat to the code the provider is queried with.
type FiatMapper interface {
	QueryCode(c fiat.Code) string
}

type Config struct {
	// TTL is how long a quote is served from memory.
	TTL time.Duration
	// Timeout bounds each upstream call.
	Timeout time.Duration
}

type cacheKey struct {
	id   string
	fiat string
}

type entry struct {
	ticker    types.Ticker
	fetchedAt time.Time
}

// Resolver fetches quotes in batches and keeps them for a short TTL.
type Resolver struct {
	source Source
	fiats  FiatMapper
	cfg    Config
	now    func() time.Time

	group singleflight.Group

	mu    sync.Mutex
	cache map[cacheKey]entry
}

type Option func(*Resolver)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

func NewResolver(source Source, fiats FiatMapper, cfg Config, options ...Option) *Resolver {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}

	r := &Resolver{
		source: source,
		fiats:  fiats,
		cfg:    cfg,
		now:    time.Now,
		cache:  make(map[cacheKey]entry),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Quote returns a Lookup for each distinct id. Cached quotes skip the
// network; the rest are fetched with a single upstream call, retried once.
// The error is non-nil only when no id could be served at all.
func (r *Resolver) Quote(ctx context.Context, ids []string, code fiat.Code) (Quotes, error) {
	query := r.fiats.QueryCode(code)
	ids = unique(ids)
	out := make(Quotes, len(ids))

	var missing []string
	now := r.now()
	r.mu.Lock()
	for _, id := range ids {
		key := cacheKey{id: id, fiat: query}
		if e, ok := r.cache[key]; ok {
			if now.Sub(e.fetchedAt) < r.cfg.TTL {
				out[id] = Lookup{Quote: toQuote(id, e, code)}
				continue
			}
			delete(r.cache, key)
		}
		missing = append(missing, id)
	}
	r.mu.Unlock()

	if len(missing) == 0 {
		return out, nil
	}

	tickers, err := r.fetch(ctx, missing, query)
	if err != nil {
		cause := errors.Wrapf(types.ErrUpstreamUnavailable, "%v", err)
		for _, id := range missing {
			out[id] = Lookup{Err: cause}
		}
		if len(missing) == len(ids) {
			return out, cause
		}
		return out, nil
	}

	fetchedAt := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range missing {
		t, ok := tickers[id]
		if !ok {
			out[id] = Lookup{Err: errors.Wrapf(types.ErrPartialData, "%s in %s", id, query)}
			continue
		}
		e := entry{ticker: t, fetchedAt: fetchedAt}
		r.cache[cacheKey{id: id, fiat: query}] = e
		out[id] = Lookup{Quote: toQuote(id, e, code)}
	}
	return out, nil
}

// Convert values amount units of id in code. amount must be positive.
func (r *Resolver) Convert(ctx context.Context, amount decimal.Decimal, id string, code fiat.Code) (Conversion, error) {
	if !amount.IsPositive() {
		return Conversion{}, errors.Wrapf(types.ErrAmountInvalid, "%s", amount.String())
	}

	quotes, err := r.Quote(ctx, []string{id}, code)
	if err != nil {
		return Conversion{}, err
	}
	l := quotes[id]
	if l.Err != nil {
		return Conversion{}, l.Err
	}

	return Conversion{Amount: amount, Quote: l.Quote, Total: amount.Mul(l.Quote.Price)}, nil
}

// fetch shares one upstream call between concurrent identical requests.
func (r *Resolver) fetch(ctx context.Context, ids []string, query string) (map[string]types.Ticker, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	key := query + ":" + strings.Join(sorted, ",")

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		var lastErr error
		for attempt := 1; attempt <= 2; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			callCtx, cancel := r.withTimeout(ctx)
			tickers, err := r.source.Prices(callCtx, ids, query)
			cancel()
			if err == nil {
				return tickers, nil
			}

			lastErr = err
			log.WithError(err).WithFields(log.Fields{"attempt": attempt, "ids": len(ids), "fiat": query}).
				Warn("price fetch failed")
		}
		return nil, lastErr
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]types.Ticker), nil
}

func (r *Resolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, r.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func toQuote(id string, e entry, code fiat.Code) Quote {
	return Quote{
		AssetID:   id,
		Symbol:    e.ticker.Symbol,
		Fiat:      code,
		Price:     e.ticker.Price,
		Change24h: e.ticker.Change24h,
		FetchedAt: e.fetchedAt,
	}
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
