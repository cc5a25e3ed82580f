package intent

import (
	"strings"

	"crypto-assistant-bot/internal/types"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ParseAmount reads a decimal literal that may use "." or "," as the
// fractional separator:
//
//   - exactly one "," and no "." : the comma is the decimal point ("0,25")
//   - both present: the rightmost kind is the decimal point and must occur
//     once, the other kind groups thousands ("1.234,56", "1,234.56")
//   - one kind repeated, the other absent: thousands grouping ("1,234,567")
//   - otherwise a single "." is the decimal point
//
// Thousands groups must be three digits wide. A leading sign is allowed;
// rejecting zero or negative amounts is left to the caller.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)

	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if s == "" {
		return decimal.Zero, errors.Wrapf(types.ErrAmountInvalid, "%q", raw)
	}

	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return decimal.Zero, errors.Wrapf(types.ErrAmountInvalid, "%q", raw)
		}
	}

	dots, commas := strings.Count(s, "."), strings.Count(s, ",")
	var point, group string
	switch {
	case dots > 0 && commas > 0:
		point = string(s[strings.LastIndexAny(s, ".,")])
		group = ","
		if point == "," {
			group = "."
		}
		if strings.Count(s, point) != 1 {
			return decimal.Zero, errors.Wrapf(types.ErrAmountInvalid, "%q", raw)
		}
	case commas == 1:
		point = ","
	case commas > 1:
		group = ","
	case dots == 1:
		point = "."
	case dots > 1:
		group = "."
	}

	whole, frac := s, ""
	if point != "" {
		i := strings.Index(s, point)
		whole, frac = s[:i], s[i+1:]
		if frac == "" {
			return decimal.Zero, errors.Wrapf(types.ErrAmountInvalid, "%q", raw)
		}
	}

	if group != "" {
		parts := strings.Split(whole, group)
		for i, p := range parts {
			if (i == 0 && (len(p) == 0 || len(p) > 3)) || (i > 0 && len(p) != 3) {
				return decimal.Zero, errors.Wrapf(types.ErrAmountInvalid, "%q", raw)
			}
		}
		whole = strings.Join(parts, "")
	}
	if whole == "" {
		whole = "0"
	}

	literal := whole
	if frac != "" {
		literal += "." + frac
	}
	d, err := decimal.NewFromString(literal)
	if err != nil {
		return decimal.Zero, errors.Wrapf(types.ErrAmountInvalid, "%q", raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}
