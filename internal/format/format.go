package format

import (
	"math/big"
	"strings"
	"unicode"

	"crypto-assistant-bot/internal/fiat"
	"crypto-assistant-bot/internal/price"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	minFractionDigits = 2
	maxFractionDigits = 8
)

// Style holds the separators used to print numbers for one fiat.
type Style struct {
	Group   string
	Decimal string
}

var DefaultStyle = Style{Group: ",", Decimal: "."}

// StyleFor reads the separators of a locale off the x/text number printer.
func StyleFor(tag language.Tag) Style {
	sample := message.NewPrinter(tag).Sprintf("%.1f", 1234567.5)

	var seps []rune
	for _, r := range sample {
		if !unicode.IsDigit(r) {
			seps = append(seps, r)
		}
	}
	if len(seps) == 0 {
		return DefaultStyle
	}

	style := Style{Group: DefaultStyle.Group, Decimal: string(seps[len(seps)-1])}
	if len(seps) > 1 {
		style.Group = string(seps[0])
	}
	return style
}

// Formatter renders prices with per-fiat separators.
type Formatter struct {
	styles map[fiat.Code]Style
}

// New takes a fiat -> BCP 47 locale map, e.g. {"idr": "id"}. Fiats not in
// the map print with DefaultStyle.
func New(locales map[string]string) *Formatter {
	f := &Formatter{styles: make(map[fiat.Code]Style, len(locales))}
	for code, locale := range locales {
		tag, err := language.Parse(locale)
		if err != nil {
			log.WithError(err).Warnf("ignoring locale %q for fiat %s", locale, code)
			continue
		}
		f.styles[fiat.Code(strings.ToLower(code))] = StyleFor(tag)
	}
	return f
}

func (f *Formatter) Style(code fiat.Code) Style {
	if s, ok := f.styles[code]; ok {
		return s
	}
	return DefaultStyle
}

// FractionDigits is 2 for values >= 1; below 1 it grows with the order of
// magnitude, clamp(2, 8, floor(-log10 v) + 2), so small prices keep their
// significant digits.
func FractionDigits(v decimal.Decimal) int32 {
	v = v.Abs()
	if v.IsZero() || v.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return minFractionDigits
	}

	coef := new(big.Int).Abs(v.Coefficient())
	exp := v.Exponent()
	ten := big.NewInt(10)
	for {
		q, m := new(big.Int).QuoRem(coef, ten, new(big.Int))
		if m.Sign() != 0 {
			break
		}
		coef = q
		exp++
	}

	// v = m * 10^k with 1 <= m < 10
	k := int32(len(coef.String())) - 1 + exp
	floor := -k - 1
	if coef.Cmp(big.NewInt(1)) == 0 {
		floor = -k
	}

	digits := floor + 2
	if digits < minFractionDigits {
		return minFractionDigits
	}
	if digits > maxFractionDigits {
		return maxFractionDigits
	}
	return digits
}

// Amount renders v in code, e.g. "1,234.50 USD". Zero is "0 USD".
func (f *Formatter) Amount(v decimal.Decimal, code fiat.Code) string {
	if v.IsZero() {
		return "0 " + code.Upper()
	}
	return f.group(v.StringFixed(FractionDigits(v)), f.Style(code)) + " " + code.Upper()
}

// Number renders a user-supplied quantity as written, with grouping.
func (f *Formatter) Number(v decimal.Decimal, code fiat.Code) string {
	return f.group(v.String(), f.Style(code))
}

// Change renders a 24h change as "+1.23%"; empty when the provider sent none.
func (f *Formatter) Change(pct decimal.NullDecimal, code fiat.Code) string {
	if !pct.Valid {
		return ""
	}
	r := pct.Decimal.Round(2)
	sign := "+"
	if r.IsNegative() {
		sign = "-"
	}
	return sign + f.group(r.Abs().StringFixed(2), f.Style(code)) + "%"
}

// Quote renders a price with its 24h change when present.
func (f *Formatter) Quote(q price.Quote, display fiat.Code) string {
	out := f.Amount(q.Price, display)
	if change := f.Change(q.Change24h, display); change != "" {
		out += " (24h: " + change + ")"
	}
	return out
}

// group inserts separators into a plain decimal string like "-1234.50".
func (f *Formatter) group(plain string, style Style) string {
	sign := ""
	if strings.HasPrefix(plain, "-") {
		sign, plain = "-", plain[1:]
	}

	whole, frac, hasFrac := strings.Cut(plain, ".")
	n, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return sign + plain
	}

	out := strings.ReplaceAll(humanize.BigComma(n), ",", style.Group)
	if hasFrac {
		out += style.Decimal + frac
	}
	return sign + out
}
