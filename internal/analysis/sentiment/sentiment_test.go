package sentiment

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/seenimoa/tickerproxy/pkg/models"
)

// ── Polarity ──

func TestPolarityBullish(t *testing.T) {
	if p := Polarity("Apple shares rally on strong growth and positive results"); p <= 0 {
		t.Errorf("expected positive polarity, got %.4f", p)
	}
}

func TestPolarityBearish(t *testing.T) {
	if p := Polarity("Market crash: stocks plunge amid fraud investigation concerns"); p >= 0 {
		t.Errorf("expected negative polarity, got %.4f", p)
	}
}

func TestPolarityNeutral(t *testing.T) {
	if p := Polarity("Company announces new office location in Austin"); p != 0 {
		t.Errorf("expected zero polarity, got %.4f", p)
	}
	if p := Polarity(""); p != 0 {
		t.Errorf("empty text: got %.4f", p)
	}
}

func TestPolarityNegation(t *testing.T) {
	plain := Polarity("results were good")
	negated := Polarity("results were not good")
	if plain <= 0 || negated >= 0 {
		t.Errorf("negation should flip sign: plain=%.4f negated=%.4f", plain, negated)
	}
	if negated != plain*negationFactor {
		t.Errorf("negated = %.4f, want %.4f", negated, plain*negationFactor)
	}
}

func TestPolarityIntensifier(t *testing.T) {
	base := Polarity("a good quarter")
	strong := Polarity("a very good quarter")
	weak := Polarity("a slightly good quarter")
	if !(strong > base && base > weak) {
		t.Errorf("intensifiers: very=%.4f base=%.4f slightly=%.4f", strong, base, weak)
	}
	if p := Polarity("extremely excellent"); p != 1 {
		t.Errorf("polarity should clamp at 1, got %.4f", p)
	}
}

func TestPolarityPhrase(t *testing.T) {
	if p := Polarity("Stock hits all-time high"); p != 0.7 {
		t.Errorf("phrase polarity: got %.4f, want 0.7", p)
	}
	if p := Polarity("Shares slide to record low"); p != -0.7 {
		t.Errorf("phrase polarity: got %.4f, want -0.7", p)
	}
}

func TestPolarityRange(t *testing.T) {
	texts := []string{
		"excellent excellent best great",
		"worst terrible bankruptcy fraud",
		"not not not bad",
		"very very very very good",
	}
	for _, txt := range texts {
		if p := Polarity(txt); p < -1 || p > 1 {
			t.Errorf("Polarity(%q) = %.4f out of range", txt, p)
		}
	}
}

// ── Classify / Score ──

func TestClassifyThresholds(t *testing.T) {
	tests := []struct {
		sum  float64
		want models.Sentiment
	}{
		{0.5, models.SentimentBullish},
		{0.1001, models.SentimentBullish},
		{0.1, models.SentimentNeutral},
		{0, models.SentimentNeutral},
		{-0.1, models.SentimentNeutral},
		{-0.1001, models.SentimentBearish},
		{-2, models.SentimentBearish},
	}
	for _, tt := range tests {
		if got := Classify(tt.sum); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.sum, got, tt.want)
		}
	}
}

func TestScoreSums(t *testing.T) {
	h := []string{"great results", "bad guidance"}
	want := Polarity(h[0]) + Polarity(h[1])
	if got := Score(h); got != want {
		t.Errorf("Score = %.4f, want %.4f", got, want)
	}
	if Score(nil) != 0 {
		t.Error("empty headline list should score 0")
	}
	if Classify(Score(nil)) != models.SentimentNeutral {
		t.Error("empty headline list should classify Neutral")
	}
}

// ── Analyzer ──

type stubHeadlines struct {
	titles []string
	err    error
	limit  int
}

func (s *stubHeadlines) Headlines(_ context.Context, _ string, limit int) ([]string, error) {
	s.limit = limit
	return s.titles, s.err
}

func TestAnalyzerLabels(t *testing.T) {
	tests := []struct {
		name   string
		titles []string
		want   models.Sentiment
	}{
		{"bullish", []string{"Shares surge on record profit", "Analysts upgrade stock"}, models.SentimentBullish},
		{"bearish", []string{"Stock plunges after fraud probe", "Company warns of losses"}, models.SentimentBearish},
		{"neutral", []string{"Company holds annual meeting"}, models.SentimentNeutral},
		{"empty", nil, models.SentimentNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &stubHeadlines{titles: tt.titles}
			a := NewAnalyzer(src, 3, zerolog.Nop())
			if got := a.Sentiment(context.Background(), "AAPL"); got != tt.want {
				t.Errorf("Sentiment = %q, want %q", got, tt.want)
			}
			if src.limit != 3 {
				t.Errorf("requested limit %d, want 3", src.limit)
			}
		})
	}
}

func TestAnalyzerDegradesToNeutral(t *testing.T) {
	src := &stubHeadlines{titles: []string{"Shares surge"}, err: errors.New("upstream timeout")}
	a := NewAnalyzer(src, 3, zerolog.Nop())
	if got := a.Sentiment(context.Background(), "AAPL"); got != models.SentimentNeutral {
		t.Errorf("fetch failure should yield Neutral, got %q", got)
	}
}

func TestAnalyzerCapsHeadlines(t *testing.T) {
	// Only the first three count; the fourth would flip the label.
	src := &stubHeadlines{titles: []string{
		"Company holds meeting", "Company names director", "Shares rally",
		"Stock crash fraud bankruptcy scandal plunge",
	}}
	a := NewAnalyzer(src, 0, zerolog.Nop())
	if got := a.Sentiment(context.Background(), "AAPL"); got != models.SentimentBullish {
		t.Errorf("Sentiment = %q, want Bullish", got)
	}
}
