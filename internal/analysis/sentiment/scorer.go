package sentiment

import (
	"math"
	"strings"
	"unicode"

	"github.com/seenimoa/tickerproxy/pkg/models"
)

// ------------------------------------------------------------------
// Lexicon-based polarity scorer (offline, deterministic).
// Each polar word carries a weight in [-1, 1]; a text's polarity is the
// mean weight of the polar words it contains, after negation and
// intensifier adjustments.
// ------------------------------------------------------------------

// Classification thresholds applied to the summed headline polarity.
const (
	BullishThreshold = 0.1
	BearishThreshold = -0.1
)

// lexicon holds single-word polarities (lowercase).
var lexicon = map[string]float64{
	// market-positive
	"bullish": 0.7, "rally": 0.6, "rallies": 0.6, "surge": 0.7, "surges": 0.7, "soar": 0.7, "soars": 0.7,
	"upbeat": 0.5, "positive": 0.4, "growth": 0.4, "grows": 0.3, "upgrade": 0.6, "upgraded": 0.6,
	"outperform": 0.6, "buy": 0.3, "strong": 0.4, "stronger": 0.45, "recovery": 0.5, "rebound": 0.5,
	"breakout": 0.6, "beat": 0.5, "beats": 0.5, "exceeds": 0.5, "expansion": 0.4, "profit": 0.3,
	"profitable": 0.4, "dividend": 0.3, "accumulate": 0.4, "gain": 0.4, "gains": 0.4, "jumps": 0.5,
	"climbs": 0.4, "record": 0.3, "win": 0.5, "wins": 0.5, "boost": 0.5, "boosts": 0.5,
	// market-negative
	"bearish": -0.7, "crash": -0.8, "crashes": -0.8, "plunge": -0.7, "plunges": -0.7, "slump": -0.6,
	"slumps": -0.6, "negative": -0.4, "downgrade": -0.6, "downgraded": -0.6, "underperform": -0.6,
	"sell": -0.3, "weak": -0.4, "weaker": -0.45, "decline": -0.5, "declines": -0.5, "loss": -0.4,
	"losses": -0.4, "selloff": -0.7, "fall": -0.4, "falls": -0.4, "drop": -0.4, "drops": -0.4,
	"tumble": -0.6, "tumbles": -0.6, "correction": -0.5, "default": -0.7, "fraud": -0.8,
	"scam": -0.8, "investigation": -0.5, "probe": -0.4, "lawsuit": -0.5, "cut": -0.3, "cuts": -0.3,
	"miss": -0.5, "misses": -0.5, "warning": -0.5, "warns": -0.5, "concern": -0.3, "concerns": -0.3,
	"layoffs": -0.5, "recall": -0.4, "bankruptcy": -0.9,
	// general
	"good": 0.7, "great": 0.8, "excellent": 1.0, "best": 1.0, "better": 0.5, "happy": 0.8,
	"optimistic": 0.6, "confident": 0.5, "solid": 0.4, "impressive": 0.8,
	"bad": -0.7, "worse": -0.6, "worst": -1.0, "terrible": -1.0, "poor": -0.4, "disappointing": -0.6,
	"pessimistic": -0.6, "fears": -0.5, "risk": -0.2, "risky": -0.5, "uncertain": -0.3, "volatile": -0.3,
}

// phrases are matched before single words and consume their tokens.
var phrases = map[string]float64{
	"record high":      0.7,
	"all-time high":    0.7,
	"beats estimate":   0.6,
	"beat estimates":   0.6,
	"price target":     0.0,
	"record low":       -0.7,
	"misses estimates": -0.6,
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "without": true, "isn't": true, "wasn't": true,
	"aren't": true, "don't": true, "doesn't": true, "didn't": true, "won't": true, "can't": true,
}

var intensifiers = map[string]float64{
	"very": 1.3, "extremely": 1.5, "sharply": 1.4, "highly": 1.3, "strongly": 1.3,
	"slightly": 0.5, "modestly": 0.6, "somewhat": 0.7,
}

// negationFactor flips and damps a negated polar word.
const negationFactor = -0.5

// Polarity returns the polarity of text in [-1, 1]; 0 when no polar words match.
func Polarity(text string) float64 {
	tokens := tokenize(text)

	var sum float64
	var n int
	negate := false
	scale := 1.0

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		if negators[tok] {
			negate = true
			continue
		}
		if f, ok := intensifiers[tok]; ok {
			scale *= f
			continue
		}

		w, ok := 0.0, false
		if i+1 < len(tokens) {
			if pw, found := phrases[tok+" "+tokens[i+1]]; found {
				w, ok = pw, true
				i++
			}
		}
		if !ok {
			w, ok = lexicon[tok]
		}
		if !ok || w == 0 {
			continue
		}

		if negate {
			w *= negationFactor
		}
		w = clamp(w * scale)
		sum += w
		n++
		negate, scale = false, 1.0
	}

	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Score sums per-headline polarity. An empty list scores 0.
func Score(headlines []string) float64 {
	total := 0.0
	for _, h := range headlines {
		total += Polarity(h)
	}
	return total
}

// Classify maps a summed polarity to a label.
func Classify(sum float64) models.Sentiment {
	switch {
	case sum > BullishThreshold:
		return models.SentimentBullish
	case sum < BearishThreshold:
		return models.SentimentBearish
	default:
		return models.SentimentNeutral
	}
}

// tokenize lower-cases text and splits it into word tokens, keeping
// in-word apostrophes and hyphens.
func tokenize(text string) []string {
	lower := strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
