// Package sentiment scores news headlines into a coarse
// Bullish / Bearish / Neutral label.
package sentiment

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/seenimoa/tickerproxy/pkg/models"
)

// DefaultHeadlineLimit is how many recent headlines feed a label.
const DefaultHeadlineLimit = 3

// HeadlineSource supplies recent headlines for a ticker.
type HeadlineSource interface {
	Headlines(ctx context.Context, symbol string, limit int) ([]string, error)
}

// Analyzer labels a ticker from its most recent headlines.
type Analyzer struct {
	src   HeadlineSource
	limit int
	log   zerolog.Logger
}

// NewAnalyzer returns an Analyzer reading up to limit headlines.
func NewAnalyzer(src HeadlineSource, limit int, log zerolog.Logger) *Analyzer {
	if limit <= 0 {
		limit = DefaultHeadlineLimit
	}
	return &Analyzer{src: src, limit: limit, log: log.With().Str("component", "sentiment").Logger()}
}

// Sentiment never fails: a fetch error degrades to Neutral.
func (a *Analyzer) Sentiment(ctx context.Context, symbol string) models.Sentiment {
	headlines, err := a.src.Headlines(ctx, symbol, a.limit)
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("headline fetch failed, using Neutral")
		return models.SentimentNeutral
	}
	if len(headlines) > a.limit {
		headlines = headlines[:a.limit]
	}

	sum := Score(headlines)
	label := Classify(sum)
	a.log.Debug().
		Str("symbol", symbol).
		Int("headlines", len(headlines)).
		Float64("polarity_sum", sum).
		Str("label", string(label)).
		Msg("sentiment scored")
	return label
}
