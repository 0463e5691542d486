// Package models defines the request and response shapes served by tickerproxy.
package models

// Sentiment is the coarse three-way headline label attached to a quote.
type Sentiment string

const (
	SentimentBullish Sentiment = "Bullish"
	SentimentBearish Sentiment = "Bearish"
	SentimentNeutral Sentiment = "Neutral"
)

// Quote is a point-in-time price snapshot for a ticker.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	PrevClose float64   `json:"prev_close"`
	ChangePct float64   `json:"change_pct"` // 0 when PrevClose is 0
	Sentiment Sentiment `json:"sentiment"`
}

// PriceHistory holds daily closes, oldest first. Labels are YYYY-MM-DD.
type PriceHistory struct {
	Labels []string  `json:"labels"`
	Prices []float64 `json:"prices"`
}

// Len returns the number of points.
func (h *PriceHistory) Len() int { return len(h.Labels) }

// Append adds a single point.
func (h *PriceHistory) Append(label string, price float64) {
	h.Labels = append(h.Labels, label)
	h.Prices = append(h.Prices, price)
}

// SearchResult is a single equity match from symbol search.
type SearchResult struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// CompanyInfo is the company profile served by /info.
type CompanyInfo struct {
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	Industry    string  `json:"industry"`
	Website     string  `json:"website"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Placeholders used when the upstream profile lacks a field.
const (
	NotAvailable         = "N/A"
	NoDescriptionMessage = "No description available."
)

// GraphLink points the client at an external interactive chart.
type GraphLink struct {
	URL string `json:"url"`
}
