// Package datasource fetches market data from Yahoo Finance: quotes,
// daily history, symbol search, company profiles, fundamentals and news.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/seenimoa/tickerproxy/internal/config"
	"github.com/seenimoa/tickerproxy/internal/infra"
	"github.com/seenimoa/tickerproxy/pkg/models"
)

// MarketData is everything the HTTP layer reads from the market-data provider.
type MarketData interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetHistory(ctx context.Context, symbol string) (*models.PriceHistory, error)
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	GetInfo(ctx context.Context, symbol string) (*models.CompanyInfo, error)
	GetFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error)
}

// NewsSource returns recent headlines for a ticker.
type NewsSource interface {
	// News returns up to limit items, all with a non-blank summary.
	News(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error)
	// Headlines returns up to limit titles, most recent first.
	Headlines(ctx context.Context, symbol string, limit int) ([]string, error)
}

// --- Sentinel errors ---

// ErrTickerNotFound is returned when a ticker cannot be resolved.
var ErrTickerNotFound = errors.New("ticker not found")

// ErrInvalidSymbol is returned for symbols that could never be valid.
var ErrInvalidSymbol = errors.New("invalid symbol")

// ErrCrumb is returned when the quoteSummary session cannot be established.
var ErrCrumb = errors.New("yahoo crumb unavailable")

// ErrHTTP is the upstream status error shared with infra.
type ErrHTTP = infra.ErrHTTP

var symbolPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.\-=^]{0,14}$`)

// NormalizeSymbol upper-cases and validates a ticker.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return s, nil
}

// GraphURL returns the external interactive chart link for a ticker.
func GraphURL(symbol string) string {
	return "https://finance.yahoo.com/quote/" + url.PathEscape(strings.ToUpper(strings.TrimSpace(symbol))) + "/chart"
}

// --- Aggregator ---

// Aggregator bundles the Yahoo sources behind MarketData and NewsSource.
type Aggregator struct {
	*YFinance
	*History
	news *News
}

// NewAggregator wires the sources from config. All of them share one rate
// limiter, User-Agent and upstream timeout; finance-go and gofeed get them
// through a net/http client since they do not take a resty client.
func NewAggregator(cfg *config.Config) *Aggregator {
	opts := OptionsFromConfig(cfg)
	yf := NewYFinance(opts)
	clientOpts := infra.ClientOptions{Timeout: opts.Timeout, UserAgent: opts.UserAgent, Limiter: opts.Limiter}

	var news *News
	if cfg.News.Source == "rss" {
		feedClient, _ := infra.NewHTTPClient(clientOpts, "")
		news = NewRSSNews(cfg.News.RSSURL, feedClient, cfg.Upstream.UserAgent)
	} else {
		news = NewStreamNews(yf.client, cfg.Market.NewsURL)
	}

	chartClient, err := infra.NewHTTPClient(clientOpts, opts.ChartURL)
	if err != nil {
		chartClient, _ = infra.NewHTTPClient(clientOpts, "")
	}

	return &Aggregator{
		YFinance: yf,
		History:  NewHistory(chartClient, cfg.Market.HistoryDays),
		news:     news,
	}
}

// Sources names the upstreams behind the aggregator.
func (a *Aggregator) Sources() []string {
	return []string{a.YFinance.Name(), a.news.Name()}
}

// Options configures the Yahoo sources.
type Options struct {
	ChartURL  string
	QueryURL  string
	CookieURL string
	Timeout   time.Duration
	UserAgent string
	Limiter   *infra.RateLimiter
}

// OptionsFromConfig maps the upstream and market config sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ChartURL:  strings.TrimRight(cfg.Market.ChartURL, "/"),
		QueryURL:  strings.TrimRight(cfg.Market.QueryURL, "/"),
		CookieURL: cfg.Market.CookieURL,
		Timeout:   time.Duration(cfg.Upstream.TimeoutSec) * time.Second,
		UserAgent: cfg.Upstream.UserAgent,
		Limiter:   infra.NewRateLimiterPerSecond(cfg.Upstream.RateLimitPerSec),
	}
}

// News delegates to the configured news source.
func (a *Aggregator) News(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	return a.news.News(ctx, symbol, limit)
}

// Headlines delegates to the configured news source.
func (a *Aggregator) Headlines(ctx context.Context, symbol string, limit int) ([]string, error) {
	return a.news.Headlines(ctx, symbol, limit)
}

var (
	_ MarketData = (*Aggregator)(nil)
	_ NewsSource = (*Aggregator)(nil)
	_ NewsSource = (*News)(nil)
)
