package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/seenimoa/tickerproxy/internal/infra"
	"github.com/seenimoa/tickerproxy/pkg/models"
)

// YFinance reads quotes, search results, profiles and fundamentals from
// the public Yahoo Finance JSON endpoints.
type YFinance struct {
	client *resty.Client
	opts   Options

	mu    sync.Mutex
	crumb string
}

// NewYFinance creates a Yahoo Finance source. The underlying client keeps
// a cookie jar so the quoteSummary crumb stays valid across calls.
func NewYFinance(opts Options) *YFinance {
	return &YFinance{
		client: infra.NewRestClient(infra.ClientOptions{
			Timeout:   opts.Timeout,
			UserAgent: opts.UserAgent,
			Limiter:   opts.Limiter,
		}),
		opts: opts,
	}
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance v8 chart types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta yfChartMeta `json:"meta"`
}

type yfChartMeta struct {
	Symbol               string   `json:"symbol"`
	RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
	PreviousClose        *float64 `json:"previousClose"`
	ChartPreviousClose   *float64 `json:"chartPreviousClose"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// --- Public methods ---

// GetQuote returns the fast-info snapshot for a ticker. Sentiment is left
// empty for the caller to fill.
func (y *YFinance) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	symbol, err := NormalizeSymbol(ticker)
	if err != nil {
		return nil, err
	}

	resp, err := y.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"range": "1d", "interval": "1d"}).
		Get(y.opts.ChartURL + "/v8/finance/chart/" + url.PathEscape(symbol))
	if err != nil {
		return nil, fmt.Errorf("yfinance chart %s: %w", symbol, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}
	if err := infra.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("yfinance chart %s: %w", symbol, err)
	}

	var chart yfChartResponse
	if err := json.Unmarshal(resp.Body(), &chart); err != nil {
		return nil, fmt.Errorf("parse yfinance chart: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrTickerNotFound, symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || chart.Chart.Result[0].Meta.RegularMarketPrice == nil {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	m := chart.Chart.Result[0].Meta
	prev := deref(m.PreviousClose, deref(m.ChartPreviousClose, 0))
	last := *m.RegularMarketPrice

	return &models.Quote{
		Symbol:    symbol,
		Price:     last,
		High:      deref(m.RegularMarketDayHigh, 0),
		Low:       deref(m.RegularMarketDayLow, 0),
		PrevClose: prev,
		ChangePct: ChangePercent(last, prev),
	}, nil
}

// Search returns equity matches for a free-text query.
func (y *YFinance) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []models.SearchResult{}, nil
	}

	resp, err := y.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"q": q, "quotesCount": "10", "newsCount": "0"}).
		Get(y.opts.QueryURL + "/v1/finance/search")
	if err != nil {
		return nil, fmt.Errorf("yfinance search %q: %w", q, err)
	}
	if err := infra.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("yfinance search %q: %w", q, err)
	}

	results := []models.SearchResult{}
	gjson.GetBytes(resp.Body(), "quotes").ForEach(func(_, item gjson.Result) bool {
		if item.Get("quoteType").String() != "EQUITY" {
			return true
		}
		sym := item.Get("symbol").String()
		if sym == "" {
			return true
		}
		results = append(results, models.SearchResult{
			Symbol: sym,
			Name:   coalesce(item.Get("shortname").String(), item.Get("longname").String(), sym),
		})
		return true
	})
	return results, nil
}

// GetInfo returns the company profile, with placeholders for missing fields.
func (y *YFinance) GetInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error) {
	symbol, err := NormalizeSymbol(ticker)
	if err != nil {
		return nil, err
	}
	res, err := y.quoteSummary(ctx, symbol, "assetProfile,price,financialData")
	if err != nil {
		return nil, err
	}

	info := &models.CompanyInfo{
		Symbol: symbol,
		Name: coalesce(
			res.Get("price.longName").String(),
			res.Get("price.shortName").String(),
			models.NotAvailable,
		),
		Industry:    coalesce(res.Get("assetProfile.industry").String(), models.NotAvailable),
		Website:     coalesce(res.Get("assetProfile.website").String(), models.NotAvailable),
		Description: coalesce(res.Get("assetProfile.longBusinessSummary").String(), models.NoDescriptionMessage),
	}
	if p := firstNumber(res, "financialData.currentPrice.raw", "price.regularMarketPrice.raw"); p != nil {
		info.Price = *p
	}
	return info, nil
}

// fundamentalPaths lists, per metric, the quoteSummary paths tried in order.
var fundamentalPaths = map[string][]string{
	"market_cap":       {"price.marketCap.raw", "summaryDetail.marketCap.raw"},
	"trailing_pe":      {"summaryDetail.trailingPE.raw"},
	"forward_pe":       {"summaryDetail.forwardPE.raw", "defaultKeyStatistics.forwardPE.raw"},
	"peg_ratio":        {"defaultKeyStatistics.pegRatio.raw"},
	"price_to_book":    {"defaultKeyStatistics.priceToBook.raw"},
	"trailing_eps":     {"defaultKeyStatistics.trailingEps.raw"},
	"forward_eps":      {"defaultKeyStatistics.forwardEps.raw"},
	"dividend_yield":   {"summaryDetail.dividendYield.raw"},
	"beta":             {"summaryDetail.beta.raw", "defaultKeyStatistics.beta.raw"},
	"total_revenue":    {"financialData.totalRevenue.raw"},
	"profit_margin":    {"financialData.profitMargins.raw", "defaultKeyStatistics.profitMargins.raw"},
	"operating_margin": {"financialData.operatingMargins.raw"},
	"gross_margin":     {"financialData.grossMargins.raw"},
	"return_on_equity": {"financialData.returnOnEquity.raw"},
	"debt_to_equity":   {"financialData.debtToEquity.raw"},
	"current_ratio":    {"financialData.currentRatio.raw"},
}

// GetFundamentals returns the fixed metric set. Metrics Yahoo omits stay nil.
func (y *YFinance) GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	symbol, err := NormalizeSymbol(ticker)
	if err != nil {
		return nil, err
	}
	res, err := y.quoteSummary(ctx, symbol, "summaryDetail,defaultKeyStatistics,financialData,price")
	if err != nil {
		return nil, err
	}

	f := &models.Fundamentals{Symbol: symbol}
	for key, slot := range f.Fields() {
		*slot = firstNumber(res, fundamentalPaths[key]...)
	}
	return f, nil
}

// --- quoteSummary session ---

// quoteSummary fetches the given modules and returns quoteSummary.result[0].
// A 401/403 drops the cached crumb so the next call re-authenticates.
func (y *YFinance) quoteSummary(ctx context.Context, symbol, modules string) (gjson.Result, error) {
	crumb, err := y.getCrumb(ctx)
	if err != nil {
		return gjson.Result{}, err
	}

	resp, err := y.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"modules": modules, "crumb": crumb}).
		Get(y.opts.QueryURL + "/v10/finance/quoteSummary/" + url.PathEscape(symbol))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("yfinance quoteSummary %s: %w", symbol, err)
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		y.resetCrumb()
	case http.StatusNotFound:
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}
	if err := infra.CheckResponse(resp); err != nil {
		return gjson.Result{}, fmt.Errorf("yfinance quoteSummary %s: %w", symbol, err)
	}

	body := resp.Body()
	if desc := gjson.GetBytes(body, "quoteSummary.error.description"); desc.String() != "" {
		return gjson.Result{}, fmt.Errorf("%w: %s: %s", ErrTickerNotFound, symbol, desc.String())
	}
	res := gjson.GetBytes(body, "quoteSummary.result.0")
	if !res.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}
	return res, nil
}

// getCrumb returns the cached crumb or performs the cookie + crumb handshake.
func (y *YFinance) getCrumb(ctx context.Context) (string, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.crumb != "" {
		return y.crumb, nil
	}

	// The cookie host answers 404 but still sets the session cookie.
	if _, err := y.client.R().SetContext(ctx).Get(y.opts.CookieURL); err != nil {
		return "", fmt.Errorf("%w: cookie: %v", ErrCrumb, err)
	}

	resp, err := y.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/plain").
		Get(y.opts.QueryURL + "/v1/test/getcrumb")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrumb, err)
	}
	if err := infra.CheckResponse(resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrumb, err)
	}

	crumb := strings.TrimSpace(resp.String())
	if crumb == "" || strings.ContainsAny(crumb, "<{ ") {
		return "", fmt.Errorf("%w: unexpected body %q", ErrCrumb, truncate(crumb, 64))
	}
	y.crumb = crumb
	return crumb, nil
}

func (y *YFinance) resetCrumb() {
	y.mu.Lock()
	y.crumb = ""
	y.mu.Unlock()
}

// --- Helpers ---

// ChangePercent returns (last-prev)/prev*100 rounded to 4 places, or 0
// when prev is 0.
func ChangePercent(last, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	p := decimal.NewFromFloat(prev)
	pct, _ := decimal.NewFromFloat(last).
		Sub(p).
		Div(p).
		Mul(decimal.NewFromInt(100)).
		Round(4).
		Float64()
	return pct
}

// firstNumber returns the first path holding a JSON number, or nil.
func firstNumber(res gjson.Result, paths ...string) *float64 {
	for _, p := range paths {
		v := res.Get(p)
		if v.Type == gjson.Number {
			f := v.Float()
			return &f
		}
	}
	return nil
}

func deref(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
