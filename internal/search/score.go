package search

import (
	"math"
	"strings"
)

// Scoring weights. The price bonus peaks at priceReference and decays
// linearly with distance from it; the reference is a fixed constant, not a
// per-category knob.
const (
	wordMatchPoints   = 10.0
	phraseMatchPoints = 20.0
	priceBonusMax     = 5.0
	priceReference    = 1000.0
)

// Score assigns a comparable relevance rank to a title for the given query
// term. Higher is better; ties are broken by ascending price at sort time.
func Score(title, term string, price float64) float64 {
	lowerTitle := strings.ToLower(title)
	lowerTerm := strings.ToLower(strings.TrimSpace(term))
	if lowerTitle == "" || lowerTerm == "" {
		return 0
	}

	score := 0.0
	for _, word := range strings.Fields(lowerTerm) {
		if strings.Contains(lowerTitle, word) {
			score += wordMatchPoints
		}
	}
	if strings.Contains(lowerTitle, lowerTerm) {
		score += phraseMatchPoints
	}

	if price > 0 {
		bonus := priceBonusMax * (1 - math.Abs(price-priceReference)/priceReference)
		if bonus > 0 {
			score += bonus
		}
	}
	return score
}
