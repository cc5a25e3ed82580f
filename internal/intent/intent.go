package intent

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Intent is one of SingleQuote, MultiQuote, Convert or Unrecognized.
type Intent interface {
	isIntent()
}

// SingleQuote asks for the price of one asset.
type SingleQuote struct {
	Symbol string
	Fiat   string
	// Bare is set when the line was nothing but the ticker, with no keyword,
	// fiat or "$" marker.
	Bare bool
}

// MultiQuote asks for several prices; Symbols are unique, in order of first occurrence.
type MultiQuote struct {
	Symbols []string
	Fiat    string
}

// Convert asks for the value of Amount units of Symbol in Fiat.
type Convert struct {
	Amount decimal.Decimal
	Symbol string
	Fiat   string
}

// Unrecognized is any line no pattern matched.
type Unrecognized struct {
	Raw string
}

func (SingleQuote) isIntent()  {}
func (MultiQuote) isIntent()   {}
func (Convert) isIntent()      {}
func (Unrecognized) isIntent() {}

// Kind names the intent variant, for logs and metrics.
func Kind(i Intent) string {
	switch i.(type) {
	case SingleQuote:
		return "single"
	case MultiQuote:
		return "multi"
	case Convert:
		return "convert"
	default:
		return "unrecognized"
	}
}

type Config struct {
	// PriceKeywords prefix a price lookup, e.g. "price", "harga".
	PriceKeywords []string
	// ConvertKeywords join an amount and its target fiat, e.g. "to", "ke".
	ConvertKeywords []string
	// Fiats are the codes recognized without a keyword ("btc idr").
	Fiats []string
}

const (
	amountPattern = `-?(?:\d(?:[\d.,]*\d)?|[.,]\d+)`
	symbolPattern = `\$?[a-z0-9]+`
	listPattern   = symbolPattern + `(?: ?, ?` + symbolPattern + `)*`
	fiatPattern   = `[a-z]{2,6}`

	maxSymbolLen     = 12
	maxBareSymbolLen = 10
)

// Parser classifies a text line into an Intent. It holds no state between
// calls; patterns are tried most specific first.
type Parser struct {
	fiats    map[string]struct{}
	keywords map[string]struct{}

	convert *regexp.Regexp
	keyword *regexp.Regexp
	pair    *regexp.Regexp
	bare    *regexp.Regexp
}

func NewParser(cfg Config) *Parser {
	p := &Parser{
		fiats:    make(map[string]struct{}, len(cfg.Fiats)),
		keywords: make(map[string]struct{}),
	}
	for _, f := range cfg.Fiats {
		p.fiats[strings.ToLower(f)] = struct{}{}
	}
	for _, k := range append(append([]string{}, cfg.PriceKeywords...), cfg.ConvertKeywords...) {
		p.keywords[strings.ToLower(k)] = struct{}{}
	}

	convertWords := alternation(cfg.ConvertKeywords)
	p.convert = regexp.MustCompile(`^(` + amountPattern + `) (` + symbolPattern + `) (?:(` + convertWords + `) )?(` + fiatPattern + `)$`)
	p.keyword = regexp.MustCompile(`^(?:` + alternation(cfg.PriceKeywords) + `) (` + listPattern + `)(?:( ?/ ?| )(` + fiatPattern + `))?$`)
	p.pair = regexp.MustCompile(`^(` + listPattern + `)( ?/ ?| )(` + fiatPattern + `)$`)
	p.bare = regexp.MustCompile(`^(` + listPattern + `)$`)
	return p
}

// alternation builds a regexp group body; an empty list matches nothing.
func alternation(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	if len(quoted) == 0 {
		return `[^\x00-\x{10FFFF}]`
	}
	return strings.Join(quoted, "|")
}

// Parse never fails: a line that matches nothing is Unrecognized.
// defaultFiat is used when the line names no fiat.
func (p *Parser) Parse(line, defaultFiat string) Intent {
	text := strings.Join(strings.Fields(strings.ToLower(line)), " ")
	defaultFiat = strings.ToLower(defaultFiat)

	if i, ok := p.parseConvert(text); ok {
		return i
	}
	if i, ok := p.parseKeyword(text, defaultFiat); ok {
		return i
	}
	if i, ok := p.parsePair(text); ok {
		return i
	}
	if i, ok := p.parseBare(text, defaultFiat); ok {
		return i
	}
	return Unrecognized{Raw: line}
}

// parseConvert: "<amount> <symbol> [to] <fiat>". Without the keyword the
// fiat has to be a known code, otherwise "5 apples please" would qualify.
func (p *Parser) parseConvert(text string) (Intent, bool) {
	m := p.convert.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	amountText, sym, keyword, fiatCode := m[1], m[2], m[3], m[4]

	if keyword == "" && !p.isFiat(fiatCode) {
		return nil, false
	}
	sym, ok := cleanSymbol(sym, maxSymbolLen)
	if !ok {
		return nil, false
	}
	amount, err := ParseAmount(amountText)
	if err != nil {
		return nil, false
	}
	return Convert{Amount: amount, Symbol: sym, Fiat: fiatCode}, true
}

// parseKeyword: "price btc", "harga btc,eth idr", "price btc/usd".
// The fiat is taken as written and validated later.
func (p *Parser) parseKeyword(text, defaultFiat string) (Intent, bool) {
	m := p.keyword.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	fiatCode := m[3]
	if fiatCode == "" {
		fiatCode = defaultFiat
	}
	return p.quote(m[1], fiatCode)
}

// parsePair: "btc idr" needs a known fiat; "btc/xyz" is explicit and is
// validated later.
func (p *Parser) parsePair(text string) (Intent, bool) {
	m := p.pair.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	list, sep, fiatCode := m[1], m[2], m[3]
	if !strings.Contains(sep, "/") && !p.isFiat(fiatCode) {
		return nil, false
	}
	return p.quote(list, fiatCode)
}

// parseBare: a lone ticker or a comma separated list, priced in defaultFiat.
func (p *Parser) parseBare(text, defaultFiat string) (Intent, bool) {
	m := p.bare.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	list := m[1]
	if !strings.Contains(list, ",") {
		if _, isKeyword := p.keywords[list]; isKeyword {
			return nil, false
		}
		sym, ok := cleanSymbol(list, maxBareSymbolLen)
		if !ok {
			return nil, false
		}
		return SingleQuote{Symbol: sym, Fiat: defaultFiat, Bare: !strings.HasPrefix(list, "$")}, true
	}
	return p.quote(list, defaultFiat)
}

// quote applies the tie-break: a comma makes it a MultiQuote.
func (p *Parser) quote(list, fiatCode string) (Intent, bool) {
	if !strings.Contains(list, ",") {
		sym, ok := cleanSymbol(list, maxSymbolLen)
		if !ok {
			return nil, false
		}
		return SingleQuote{Symbol: sym, Fiat: fiatCode}, true
	}

	var symbols []string
	seen := make(map[string]struct{})
	for _, raw := range strings.Split(list, ",") {
		sym, ok := cleanSymbol(raw, maxSymbolLen)
		if !ok {
			return nil, false
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}
	return MultiQuote{Symbols: symbols, Fiat: fiatCode}, true
}

func (p *Parser) isFiat(code string) bool {
	_, ok := p.fiats[code]
	return ok
}

// cleanSymbol strips "$" and checks the ticker is 2..max characters with at
// least one letter, so bare numbers never count as tickers.
func cleanSymbol(s string, max int) (string, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	if len(s) < 2 || len(s) > max {
		return "", false
	}
	if !strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		return "", false
	}
	return s, true
}
