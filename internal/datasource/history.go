package datasource

import (
	"context"
	"fmt"
	"net/http"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"github.com/seenimoa/tickerproxy/pkg/models"
)

// BarFetcher returns daily bars for [start, end].
type BarFetcher func(ctx context.Context, symbol string, start, end time.Time) ([]*finance.ChartBar, error)

// History serves the fixed-window daily close series.
type History struct {
	fetch BarFetcher
	days  int
	now   func() time.Time
}

// NewHistory returns a History backed by the finance-go chart API. The
// library keeps a process-wide backend, so the most recent client wins;
// pass one built with infra.NewHTTPClient to keep the User-Agent, limiter
// and chart host.
func NewHistory(client *http.Client, days int) *History {
	if client != nil {
		finance.SetHTTPClient(client)
		finance.SetBackend(finance.YFinBackend, finance.NewBackends(client).YFin)
	}
	return NewHistoryWithFetcher(fetchChartBars, days)
}

// NewHistoryWithFetcher returns a History backed by fetch.
func NewHistoryWithFetcher(fetch BarFetcher, days int) *History {
	if days <= 0 {
		days = 30
	}
	return &History{fetch: fetch, days: days, now: time.Now}
}

// GetHistory returns daily closes for the configured window, oldest first.
func (h *History) GetHistory(ctx context.Context, ticker string) (*models.PriceHistory, error) {
	symbol, err := NormalizeSymbol(ticker)
	if err != nil {
		return nil, err
	}

	end := h.now()
	start := end.AddDate(0, 0, -h.days)

	bars, err := h.fetch(ctx, symbol, start, end)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("history %s: %w", symbol, ctxErr)
		}
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}

	hist := BarsToHistory(bars)
	if hist.Len() == 0 {
		return nil, fmt.Errorf("%w: %s: no price history", ErrTickerNotFound, symbol)
	}
	return hist, nil
}

// BarsToHistory converts chart bars to labels and closes. Bars without a
// positive close are skipped.
func BarsToHistory(bars []*finance.ChartBar) *models.PriceHistory {
	hist := &models.PriceHistory{
		Labels: make([]string, 0, len(bars)),
		Prices: make([]float64, 0, len(bars)),
	}
	for _, bar := range bars {
		if bar == nil || !bar.Close.IsPositive() {
			continue
		}
		price, _ := bar.Close.Round(4).Float64()
		label := time.Unix(int64(bar.Timestamp), 0).UTC().Format("2006-01-02")
		hist.Append(label, price)
	}
	return hist
}

func fetchChartBars(ctx context.Context, symbol string, start, end time.Time) ([]*finance.ChartBar, error) {
	iter := chart.Get(&chart.Params{
		Params:   finance.Params{Context: &ctx},
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var bars []*finance.ChartBar
	for iter.Next() {
		bars = append(bars, iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}
