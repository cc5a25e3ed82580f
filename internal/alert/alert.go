package alert

import (
	"context"
	"fmt"
	"regexp"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"crypto-assistant-bot/internal/fiat"
	"crypto-assistant-bot/internal/format"
	"crypto-assistant-bot/internal/intent"
	"crypto-assistant-bot/internal/price"
	"crypto-assistant-bot/internal/types"
	"crypto-assistant-bot/lib/helpers"
	"crypto-assistant-bot/lib/translation"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var (
	ErrUsage       = errors.New("usage: /alert add <symbol> [fiat] above|below <price>")
	ErrNoSuchAlert = errors.New("no such alert")
)

// commaThousands matches grouped integer targets such as "70,000".
var commaThousands = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)

type Store interface {
	InsertAlert(a types.Alert) (int64, error)
	GetAllAlerts() ([]types.Alert, error)
	GetAlertsByChatID(chatID int64) ([]types.Alert, error)
	DeleteAlert(alertID int64) error
	DeleteChatAlert(chatID, alertID int64) (bool, error)
}

type SymbolResolver interface {
	Resolve(ctx context.Context, ticker string) (string, error)
}

type Quoter interface {
	Quote(ctx context.Context, ids []string, code fiat.Code) (price.Quotes, error)
}

// Notifier delivers a MarkdownV2 message to a chat.
type Notifier interface {
	Notify(chatID int64, text string) error
}

// Rule is a parsed "/alert add" request.
type Rule struct {
	Symbol string
	Fiat   string
	Op     string
	Target decimal.Decimal
}

// ParseRule reads "<symbol> [fiat] above|below <price>". The fiat defaults
// to defaultFiat; ">" and "<" are accepted for above and below.
func ParseRule(args, defaultFiat string) (Rule, error) {
	fields := strings.Fields(strings.ToLower(args))
	if len(fields) == 3 {
		fields = []string{fields[0], defaultFiat, fields[1], fields[2]}
	}
	if len(fields) != 4 {
		return Rule{}, ErrUsage
	}

	var op string
	switch fields[2] {
	case "above", ">", "over":
		op = types.AlertAbove
	case "below", "<", "under":
		op = types.AlertBelow
	default:
		return Rule{}, ErrUsage
	}

	target, err := parseTarget(fields[3])
	if err != nil {
		return Rule{}, err
	}
	if !target.IsPositive() {
		return Rule{}, errors.Wrapf(types.ErrAmountInvalid, "%s", fields[3])
	}

	return Rule{Symbol: strings.TrimLeft(fields[0], "$"), Fiat: fields[1], Op: op, Target: target}, nil
}

func parseTarget(raw string) (decimal.Decimal, error) {
	if commaThousands.MatchString(raw) {
		raw = strings.ReplaceAll(raw, ",", "")
	}
	return intent.ParseAmount(raw)
}

// Triggered reports whether current satisfies the alert condition.
func Triggered(a types.Alert, current decimal.Decimal) bool {
	switch a.Op {
	case types.AlertAbove:
		return current.GreaterThanOrEqual(a.Target)
	case types.AlertBelow:
		return current.LessThanOrEqual(a.Target)
	}
	return false
}

// Service manages per-chat alerts and checks them against live prices.
type Service struct {
	store     Store
	symbols   SymbolResolver
	fiats     *fiat.Validator
	quotes    Quoter
	format    *format.Formatter
	triggered prometheus.Counter

	// checking ensures only one check runs at a time.
	checking sync.Mutex
}

func NewService(store Store, symbols SymbolResolver, fiats *fiat.Validator, quotes Quoter, formatter *format.Formatter, triggered prometheus.Counter) *Service {
	return &Service{
		store:     store,
		symbols:   symbols,
		fiats:     fiats,
		quotes:    quotes,
		format:    formatter,
		triggered: triggered,
	}
}

// Add validates and stores a new alert for chatID.
func (s *Service) Add(ctx context.Context, chatID int64, args string, defaultFiat fiat.Code) (types.Alert, error) {
	rule, err := ParseRule(args, defaultFiat.String())
	if err != nil {
		return types.Alert{}, err
	}
	code, err := s.fiats.Validate(rule.Fiat)
	if err != nil {
		return types.Alert{}, err
	}
	id, err := s.symbols.Resolve(ctx, rule.Symbol)
	if err != nil {
		return types.Alert{}, err
	}

	a := types.Alert{
		ChatID:  chatID,
		Symbol:  rule.Symbol,
		AssetID: id,
		Fiat:    code.String(),
		Op:      rule.Op,
		Target:  rule.Target,
	}
	if a.ID, err = s.store.InsertAlert(a); err != nil {
		return types.Alert{}, err
	}
	return a, nil
}

// List returns the chat's alerts in the order /alerts numbers them.
func (s *Service) List(chatID int64) ([]types.Alert, error) {
	return s.store.GetAlertsByChatID(chatID)
}

// Delete removes the n-th (1-based) alert of the chat's list.
func (s *Service) Delete(chatID int64, n int) (types.Alert, error) {
	alerts, err := s.store.GetAlertsByChatID(chatID)
	if err != nil {
		return types.Alert{}, err
	}
	if n < 1 || n > len(alerts) {
		return types.Alert{}, errors.Wrapf(ErrNoSuchAlert, "#%d", n)
	}

	a := alerts[n-1]
	ok, err := s.store.DeleteChatAlert(chatID, a.ID)
	if err != nil {
		return types.Alert{}, err
	}
	if !ok {
		return types.Alert{}, errors.Wrapf(ErrNoSuchAlert, "#%d", n)
	}
	return a, nil
}

// Describe renders an alert condition, e.g. "BTC above 70,000.00 USD".
func (s *Service) Describe(a types.Alert) string {
	return fmt.Sprintf("%s %s %s", strings.ToUpper(a.Symbol), translation.Translate(a.Op), s.format.Amount(a.Target, fiat.Code(a.Fiat)))
}

// Check compares every alert with live prices, one batch per fiat, notifies
// the hit ones and deletes them once delivered. It returns the number sent.
func (s *Service) Check(ctx context.Context, notifier Notifier) (int, error) {
	s.checking.Lock()
	defer s.checking.Unlock()

	alerts, err := s.store.GetAllAlerts()
	if err != nil {
		return 0, errors.Wrap(err, "failed to fetch alerts")
	}

	byFiat := make(map[string][]types.Alert)
	for _, a := range alerts {
		byFiat[a.Fiat] = append(byFiat[a.Fiat], a)
	}

	sent := 0
	for code, group := range byFiat {
		ids := make([]string, 0, len(group))
		for _, a := range group {
			ids = append(ids, a.AssetID)
		}

		quotes, err := s.quotes.Quote(ctx, ids, fiat.Code(code))
		if err != nil {
			log.WithError(err).WithField("fiat", code).Warn("alert prices unavailable")
			continue
		}

		for _, a := range group {
			l := quotes[a.AssetID]
			if l.Err != nil {
				log.WithError(l.Err).WithField("asset", a.AssetID).Debug("no price for alert")
				continue
			}
			if !Triggered(a, l.Quote.Price) {
				continue
			}

			if err := notifier.Notify(a.ChatID, s.message(a, l.Quote)); err != nil {
				log.WithError(err).WithField("chat_id", a.ChatID).Error("failed to send alert notification")
				continue
			}
			if err := s.store.DeleteAlert(a.ID); err != nil {
				log.WithError(err).WithField("id", a.ID).Error("failed to delete triggered alert")
			}
			if s.triggered != nil {
				s.triggered.Inc()
			}
			sent++
		}
	}

	log.WithFields(log.Fields{"alerts": len(alerts), "sent": sent}).Debug("alert check completed")
	return sent, nil
}

// Run checks alerts every interval until ctx is done. A panicking check is
// logged and the loop continues.
func (s *Service) Run(ctx context.Context, interval time.Duration, notifier Notifier) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.WithField("interval", interval).Info("alert service started")
	for {
		s.safeCheck(ctx, notifier)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) safeCheck(ctx context.Context, notifier Notifier) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic recovered in alert checker: %v\n%s", r, debug.Stack())
		}
	}()

	if _, err := s.Check(ctx, notifier); err != nil {
		log.WithError(err).Error("alert check failed")
	}
}

func (s *Service) message(a types.Alert, q price.Quote) string {
	code := fiat.Code(a.Fiat)
	return translation.Translate(
		"🚨 *Price Alert Triggered*\n\n*%s* is %s *%s*\nCurrent price: *%s*",
		helpers.EscapeMarkdownV2(strings.ToUpper(a.Symbol)),
		helpers.EscapeMarkdownV2(translation.Translate(a.Op)),
		helpers.EscapeMarkdownV2(s.format.Amount(a.Target, code)),
		helpers.EscapeMarkdownV2(s.format.Amount(q.Price, code)),
	)
}
