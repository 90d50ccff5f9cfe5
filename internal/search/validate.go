package search

import (
	"math"
	"strconv"
	"strings"
)

// Bounds enforced by Validate.
const (
	MaxTermLength     = 100
	MaxCategoryLength = 64
	MaxPriceCeiling   = 1_000_000
)

// Validate normalizes raw query parameters into a Request. It trims
// whitespace, strips characters outside the safe alphanumeric/space/hyphen
// set from the term, and rounds the price ceiling to two decimals. It is a
// pure function with no side effects.
func Validate(term, priceCeiling, category string) (Request, error) {
	req := Request{}

	cleaned := sanitizeTerm(strings.TrimSpace(term))
	if cleaned == "" {
		return Request{}, &ValidationError{Field: "term", Reason: "must be a non-empty string"}
	}
	if len(cleaned) > MaxTermLength {
		return Request{}, &ValidationError{Field: "term", Reason: "must be at most 100 characters"}
	}
	req.Term = cleaned

	if strings.TrimSpace(priceCeiling) != "" {
		ceiling, err := strconv.ParseFloat(strings.TrimSpace(priceCeiling), 64)
		if err != nil || math.IsNaN(ceiling) || math.IsInf(ceiling, 0) {
			return Request{}, &ValidationError{Field: "max_price", Reason: "must be a finite number"}
		}
		if ceiling < 0 {
			return Request{}, &ValidationError{Field: "max_price", Reason: "must not be negative"}
		}
		if ceiling > MaxPriceCeiling {
			return Request{}, &ValidationError{Field: "max_price", Reason: "exceeds the supported maximum"}
		}
		req.PriceCeiling = math.Round(ceiling*100) / 100
		req.HasCeiling = true
	}

	cat := strings.TrimSpace(category)
	if len(cat) > MaxCategoryLength {
		return Request{}, &ValidationError{Field: "category", Reason: "must be at most 64 characters"}
	}
	req.Category = cat

	return req, nil
}

// sanitizeTerm keeps letters, digits, spaces and hyphens and collapses the
// runs of whitespace that stripping can leave behind.
func sanitizeTerm(term string) string {
	var b strings.Builder
	b.Grow(len(term))
	for _, r := range term {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
