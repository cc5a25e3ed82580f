package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crypto-assistant-bot/internal/fiat"
	"crypto-assistant-bot/internal/format"
	"crypto-assistant-bot/internal/intent"
	"crypto-assistant-bot/internal/price"
	"crypto-assistant-bot/internal/types"
	"crypto-assistant-bot/lib/helpers"
	"crypto-assistant-bot/lib/translation"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrUnrecognized is returned for lines no intent pattern matched.
	ErrUnrecognized = errors.New("unrecognized request")
	// ErrUsage is returned when slash command arguments are malformed.
	ErrUsage = errors.New("invalid command arguments")
)

type SymbolResolver interface {
	Resolve(ctx context.Context, ticker string) (string, error)
}

type PriceResolver interface {
	Quote(ctx context.Context, ids []string, code fiat.Code) (price.Quotes, error)
	Convert(ctx context.Context, amount decimal.Decimal, id string, code fiat.Code) (price.Conversion, error)
}

// Service runs a text line through parse, resolve, quote and format.
// Replies are MarkdownV2.
type Service struct {
	parser  *intent.Parser
	fiats   *fiat.Validator
	symbols SymbolResolver
	prices  PriceResolver
	format  *format.Formatter
}

func NewService(parser *intent.Parser, fiats *fiat.Validator, symbols SymbolResolver, prices PriceResolver, formatter *format.Formatter) *Service {
	return &Service{
		parser:  parser,
		fiats:   fiats,
		symbols: symbols,
		prices:  prices,
		format:  formatter,
	}
}

// Handle parses line and answers it. The parsed intent is returned even on
// error so callers can count it or fall back to chat.
func (s *Service) Handle(ctx context.Context, line string, defaultFiat fiat.Code) (intent.Intent, string, error) {
	in := s.parser.Parse(line, defaultFiat.String())
	log.WithFields(log.Fields{"kind": intent.Kind(in), "line": line}).Debug("parsed intent")

	text, err := s.Execute(ctx, in)
	return in, text, err
}

// Execute answers an already parsed intent.
func (s *Service) Execute(ctx context.Context, in intent.Intent) (string, error) {
	switch v := in.(type) {
	case intent.SingleQuote:
		return s.single(ctx, v.Symbol, v.Fiat)
	case intent.MultiQuote:
		return s.multi(ctx, v.Symbols, v.Fiat)
	case intent.Convert:
		return s.convert(ctx, v.Amount, v.Symbol, v.Fiat)
	default:
		return "", ErrUnrecognized
	}
}

// Price serves "/price <symbol> [fiat]".
func (s *Service) Price(ctx context.Context, args string, defaultFiat fiat.Code) (string, error) {
	fields := strings.Fields(strings.ToLower(args))
	switch len(fields) {
	case 1:
		return s.single(ctx, fields[0], defaultFiat.String())
	case 2:
		return s.single(ctx, fields[0], fields[1])
	default:
		return "", ErrUsage
	}
}

// Prices serves "/prices <s1,s2,...> [fiat]". A trailing allowed fiat code
// is taken as the target; commas and spaces both separate symbols.
func (s *Service) Prices(ctx context.Context, args string, defaultFiat fiat.Code) (string, error) {
	fields := strings.FieldsFunc(strings.ToLower(args), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	code := defaultFiat.String()
	if len(fields) > 1 && s.fiats.IsAllowed(fields[len(fields)-1]) {
		code = fields[len(fields)-1]
		fields = fields[:len(fields)-1]
	}
	if len(fields) == 0 {
		return "", ErrUsage
	}
	return s.multi(ctx, dedupe(fields), code)
}

// Convert serves "/convert <amount> <symbol> [[to] <fiat>]".
func (s *Service) Convert(ctx context.Context, args string, defaultFiat fiat.Code) (string, error) {
	fields := strings.Fields(strings.ToLower(args))
	if len(fields) < 2 || len(fields) > 4 {
		return "", ErrUsage
	}
	amount, err := intent.ParseAmount(fields[0])
	if err != nil {
		return "", err
	}
	code := defaultFiat.String()
	if len(fields) > 2 {
		code = fields[len(fields)-1]
	}
	return s.convert(ctx, amount, fields[1], code)
}

// Status times a BTC quote through the configured provider.
func (s *Service) Status(ctx context.Context, providerName string, code fiat.Code) string {
	start := time.Now()
	_, err := s.single(ctx, "btc", code.String())
	elapsed := time.Since(start).Round(time.Millisecond)

	state := translation.Translate("ok")
	if err != nil {
		state = translation.Translate("unavailable")
	}
	return helpers.EscapeMarkdownV2(translation.Translate(
		"Provider: %s\nStatus: %s (%s)\nDefault currency: %s",
		providerName, state, elapsed, code.Upper(),
	))
}

func (s *Service) single(ctx context.Context, ticker, code string) (string, error) {
	c, err := s.fiats.Validate(code)
	if err != nil {
		return "", err
	}
	id, err := s.symbols.Resolve(ctx, ticker)
	if err != nil {
		return "", err
	}

	quotes, err := s.prices.Quote(ctx, []string{id}, c)
	if err != nil {
		return "", err
	}
	l := quotes[id]
	if l.Err != nil {
		return "", l.Err
	}
	return s.quoteLine(ticker, l.Quote, c), nil
}

func (s *Service) multi(ctx context.Context, tickers []string, code string) (string, error) {
	c, err := s.fiats.Validate(code)
	if err != nil {
		return "", err
	}

	ids := make(map[string]string, len(tickers))
	var wanted []string
	for _, t := range tickers {
		id, err := s.symbols.Resolve(ctx, t)
		if err != nil {
			log.WithError(err).WithField("ticker", t).Debug("symbol not resolved")
			continue
		}
		ids[t] = id
		wanted = append(wanted, id)
	}
	if len(wanted) == 0 {
		return "", errors.Wrapf(types.ErrSymbolNotFound, "%s", strings.Join(tickers, ","))
	}

	quotes, err := s.prices.Quote(ctx, wanted, c)
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(tickers))
	for _, t := range tickers {
		id, ok := ids[t]
		if !ok {
			lines = append(lines, s.missingLine(t, translation.Translate("not found")))
			continue
		}
		l := quotes[id]
		switch {
		case l.Err == nil:
			lines = append(lines, s.quoteLine(t, l.Quote, c))
		case errors.Is(l.Err, types.ErrUpstreamUnavailable):
			lines = append(lines, s.missingLine(t, translation.Translate("unavailable")))
		default:
			lines = append(lines, s.missingLine(t, translation.Translate("not found")))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Service) convert(ctx context.Context, amount decimal.Decimal, ticker, code string) (string, error) {
	c, err := s.fiats.Validate(code)
	if err != nil {
		return "", err
	}
	id, err := s.symbols.Resolve(ctx, ticker)
	if err != nil {
		return "", err
	}

	conv, err := s.prices.Convert(ctx, amount, id, c)
	if err != nil {
		return "", err
	}
	return translation.Translate("%s *%s* \\= *%s*\n_1 %s \\= %s_",
		helpers.EscapeMarkdownV2(s.format.Number(conv.Amount, c)),
		helpers.EscapeMarkdownV2(display(ticker)),
		helpers.EscapeMarkdownV2(s.format.Amount(conv.Total, c)),
		helpers.EscapeMarkdownV2(display(ticker)),
		helpers.EscapeMarkdownV2(s.format.Amount(conv.Quote.Price, c)),
	), nil
}

func (s *Service) quoteLine(ticker string, q price.Quote, code fiat.Code) string {
	return fmt.Sprintf("*%s*: %s",
		helpers.EscapeMarkdownV2(display(ticker)),
		helpers.EscapeMarkdownV2(s.format.Quote(q, code)),
	)
}

func (s *Service) missingLine(ticker, reason string) string {
	return fmt.Sprintf("*%s*: _%s_",
		helpers.EscapeMarkdownV2(display(ticker)),
		helpers.EscapeMarkdownV2(reason),
	)
}

// ErrorText maps a pipeline error to a user-facing MarkdownV2 message.
func (s *Service) ErrorText(err error) string {
	var text string
	switch {
	case errors.Is(err, types.ErrSymbolNotFound):
		text = translation.Translate("Coin not found")
	case errors.Is(err, types.ErrFiatInvalid):
		allowed := make([]string, 0)
		for _, c := range s.fiats.Allowed() {
			allowed = append(allowed, c.Upper())
		}
		text = translation.Translate("Unsupported currency. Use one of: %s", strings.Join(allowed, ", "))
	case errors.Is(err, types.ErrAmountInvalid):
		text = translation.Translate("Amount must be a positive number")
	case errors.Is(err, types.ErrUpstreamUnavailable), errors.Is(err, context.DeadlineExceeded):
		text = translation.Translate("Price service is unavailable, please try again later")
	case errors.Is(err, types.ErrPartialData):
		text = translation.Translate("No price data for this coin")
	case errors.Is(err, ErrUsage), errors.Is(err, ErrUnrecognized):
		text = translation.Translate("Command help message")
	default:
		log.WithError(err).Error("unexpected pipeline error")
		text = translation.Translate("Something went wrong, please try again later")
	}
	return helpers.EscapeMarkdownV2(text)
}

// ChatFallback reports whether a failed line should go to the chat client
// instead of being answered with an error: free text nothing matched, or a
// lone word that turned out not to be a coin.
func ChatFallback(in intent.Intent, err error) bool {
	switch v := in.(type) {
	case intent.Unrecognized:
		return strings.TrimSpace(v.Raw) != ""
	case intent.SingleQuote:
		return v.Bare && errors.Is(err, types.ErrSymbolNotFound)
	}
	return false
}

func display(ticker string) string {
	return strings.ToUpper(strings.TrimLeft(ticker, "$"))
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimLeft(item, "$")
		if _, ok := seen[item]; ok || item == "" {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
