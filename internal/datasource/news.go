package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"
	"github.com/tidwall/gjson"

	"github.com/seenimoa/tickerproxy/internal/infra"
	"github.com/seenimoa/tickerproxy/pkg/models"
)

// fetchFunc loads up to n raw items for a symbol.
type fetchFunc func(ctx context.Context, symbol string, n int) ([]models.NewsItem, error)

// News serves ticker headlines from one upstream feed.
type News struct {
	name  string
	fetch fetchFunc
}

// Name returns the data source name.
func (n *News) Name() string { return n.name }

// NewStreamNews reads the Yahoo Finance ticker news stream.
func NewStreamNews(client *resty.Client, baseURL string) *News {
	endpoint := strings.TrimRight(baseURL, "/") + "/xhr/ncp?queryRef=latestNews&serviceKey=ncp_fin"
	return &News{
		name: "Yahoo Finance stream",
		fetch: func(ctx context.Context, symbol string, n int) ([]models.NewsItem, error) {
			return fetchStream(ctx, client, endpoint, symbol, n)
		},
	}
}

// NewRSSNews reads the Yahoo Finance headline RSS feed.
func NewRSSNews(feedURL string, client *http.Client, userAgent string) *News {
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent
	return &News{
		name: "Yahoo Finance RSS",
		fetch: func(ctx context.Context, symbol string, _ int) ([]models.NewsItem, error) {
			return fetchRSS(ctx, parser, feedURL, symbol)
		},
	}
}

// News returns up to limit items with a usable summary, newest first.
func (n *News) News(ctx context.Context, ticker string, limit int) ([]models.NewsItem, error) {
	symbol, err := NormalizeSymbol(ticker)
	if err != nil {
		return nil, err
	}
	items, err := n.fetch(ctx, symbol, fetchSize(limit))
	if err != nil {
		return nil, err
	}
	sortItemsByTime(items)

	out := make([]models.NewsItem, 0, len(items))
	for _, it := range items {
		if !it.HasSummary() {
			continue
		}
		out = append(out, it)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Headlines returns up to limit non-empty titles, newest first.
func (n *News) Headlines(ctx context.Context, ticker string, limit int) ([]string, error) {
	symbol, err := NormalizeSymbol(ticker)
	if err != nil {
		return nil, err
	}
	items, err := n.fetch(ctx, symbol, fetchSize(limit))
	if err != nil {
		return nil, err
	}
	sortItemsByTime(items)

	titles := make([]string, 0, limit)
	for _, it := range items {
		t := strings.TrimSpace(it.Title)
		if t == "" {
			continue
		}
		titles = append(titles, t)
		if limit > 0 && len(titles) == limit {
			break
		}
	}
	return titles, nil
}

// fetchSize over-fetches so summary filtering still fills the limit.
func fetchSize(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit * 2
}

// --- Stream source ---

func fetchStream(ctx context.Context, client *resty.Client, endpoint, symbol string, n int) ([]models.NewsItem, error) {
	body := map[string]any{
		"serviceConfig": map[string]any{
			"snippetCount": n,
			"s":            []string{symbol},
		},
	}
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("news stream %s: %w", symbol, err)
	}
	if err := infra.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("news stream %s: %w", symbol, err)
	}

	stream := gjson.GetBytes(resp.Body(), "data.tickerStream.stream")
	if !stream.IsArray() {
		return nil, fmt.Errorf("news stream %s: unexpected payload", symbol)
	}

	items := make([]models.NewsItem, 0, len(stream.Array()))
	stream.ForEach(func(_, entry gjson.Result) bool {
		c := entry.Get("content")
		if !c.Exists() {
			return true
		}
		items = append(items, models.NewsItem{
			Title:     strings.TrimSpace(c.Get("title").String()),
			URL:       coalesce(c.Get("canonicalUrl.url").String(), c.Get("clickThroughUrl.url").String()),
			Publisher: c.Get("provider.displayName").String(),
			Time:      c.Get("pubDate").String(),
			Summary:   cleanHTML(coalesce(c.Get("summary").String(), c.Get("description").String())),
		})
		return true
	})
	return items, nil
}

// --- RSS source ---

func fetchRSS(ctx context.Context, parser *gofeed.Parser, feedURL, symbol string) ([]models.NewsItem, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("news rss url: %w", err)
	}
	q := u.Query()
	q.Set("s", symbol)
	q.Set("region", "US")
	q.Set("lang", "en-US")
	u.RawQuery = q.Encode()

	feed, err := parser.ParseURLWithContext(u.String(), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", symbol, err)
	}

	publisher := "Yahoo Finance"
	if feed.Title != "" && !strings.Contains(strings.ToLower(feed.Title), "yahoo") {
		publisher = feed.Title
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		ni := models.NewsItem{
			Title:     strings.TrimSpace(it.Title),
			URL:       it.Link,
			Publisher: publisher,
			Time:      it.Published,
			Summary:   cleanHTML(coalesce(it.Description, it.Content)),
		}
		if it.PublishedParsed != nil {
			ni.Time = it.PublishedParsed.UTC().Format(time.RFC3339)
		}
		if len(it.Authors) > 0 && it.Authors[0] != nil && it.Authors[0].Name != "" {
			ni.Publisher = it.Authors[0].Name
		}
		items = append(items, ni)
	}
	return items, nil
}

// --- Helpers ---

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// sortItemsByTime orders items newest first. Items with unparseable
// timestamps keep their relative order after the dated ones.
func sortItemsByTime(items []models.NewsItem) {
	parsed := make(map[int]time.Time, len(items))
	idx := make([]int, len(items))
	for i := range items {
		idx[i] = i
		if t, ok := parseTime(items[i].Time); ok {
			parsed[i] = t
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, okA := parsed[idx[a]]
		tb, okB := parsed[idx[b]]
		switch {
		case okA && okB:
			return ta.After(tb)
		case okA:
			return true
		default:
			return false
		}
	})

	sorted := make([]models.NewsItem, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, time.RFC1123Z, time.RFC1123, "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
