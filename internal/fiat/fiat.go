package fiat

import (
	"sort"
	"strings"

	"crypto-assistant-bot/internal/types"

	"github.com/pkg/errors"
)

// Code is a lowercase fiat code from the allow-list.
type Code string

func (c Code) String() string { return string(c) }

// Upper is the display form, e.g. "IDR".
func (c Code) Upper() string { return strings.ToUpper(string(c)) }

// Validator checks fiat codes against a configured allow-list and maps
// user-facing codes to the code the provider is queried with.
type Validator struct {
	allowed map[Code]struct{}
	aliases map[Code]string
}

// NewValidator builds a validator. aliases maps an allowed code to the code
// sent upstream, e.g. usdt -> usd; aliases of codes outside allowed are ignored.
func NewValidator(allowed []string, aliases map[string]string) *Validator {
	v := &Validator{
		allowed: make(map[Code]struct{}, len(allowed)),
		aliases: make(map[Code]string, len(aliases)),
	}
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			v.allowed[Code(a)] = struct{}{}
		}
	}
	for from, to := range aliases {
		from = strings.ToLower(strings.TrimSpace(from))
		if _, ok := v.allowed[Code(from)]; ok {
			v.aliases[Code(from)] = strings.ToLower(strings.TrimSpace(to))
		}
	}
	return v
}

// Validate accepts a code case-insensitively. Anything outside the
// allow-list is rejected, never coerced to a default.
func (v *Validator) Validate(code string) (Code, error) {
	c := Code(strings.ToLower(strings.TrimSpace(code)))
	if _, ok := v.allowed[c]; !ok {
		return "", errors.Wrapf(types.ErrFiatInvalid, "%q", code)
	}
	return c, nil
}

// Default returns code when it is valid and fallback otherwise. It is meant
// for stored per-chat defaults, not for user input.
func (v *Validator) Default(code string, fallback Code) Code {
	if c, err := v.Validate(code); err == nil {
		return c
	}
	return fallback
}

// IsAllowed reports whether code is in the allow-list.
func (v *Validator) IsAllowed(code string) bool {
	_, err := v.Validate(code)
	return err == nil
}

// QueryCode is the code to request from the provider for c.
func (v *Validator) QueryCode(c Code) string {
	if q, ok := v.aliases[c]; ok {
		return q
	}
	return string(c)
}

// Allowed lists the allow-list in sorted order.
func (v *Validator) Allowed() []Code {
	out := make([]Code, 0, len(v.allowed))
	for c := range v.allowed {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
