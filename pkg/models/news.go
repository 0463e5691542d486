package models

import "strings"

// NewsItem is a single headline served by /news.
type NewsItem struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Publisher string `json:"publisher"`
	Time      string `json:"time"` // upstream timestamp, ISO-8601 when available
	Summary   string `json:"summary"`
}

// HasSummary reports whether the item carries a non-blank summary.
func (n NewsItem) HasSummary() bool {
	return strings.TrimSpace(n.Summary) != ""
}
