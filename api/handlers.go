package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/tickerproxy/internal/datasource"
	"github.com/seenimoa/tickerproxy/pkg/models"
)

// ============================================================
// Market data handlers
// ============================================================

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string   `json:"status"`
	Provider string   `json:"provider"`
	Sources  []string `json:"sources"`
	Version  string   `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sources := s.deps.Sources
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:   "ok",
		Provider: s.deps.Provider,
		Sources:  sources,
		Version:  Version,
	})
}

// handleQuote fetches the quote and the headline sentiment concurrently.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout)
	defer cancel()

	var (
		quote *models.Quote
		label = models.SentimentNeutral
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := s.deps.Market.GetQuote(gctx, symbol)
		quote = q
		return err
	})
	g.Go(func() error {
		label = s.deps.Sentiment.Sentiment(gctx, symbol)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.upstreamError(w, r, "quote", symbol, err)
		return
	}

	quote.Sentiment = label
	writeJSON(w, r, http.StatusOK, quote)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, models.GraphLink{URL: datasource.GraphURL(chi.URLParam(r, "symbol"))})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout)
	defer cancel()

	history, err := s.deps.Market.GetHistory(ctx, symbol)
	if err != nil {
		s.upstreamError(w, r, "history", symbol, err)
		return
	}
	writeJSON(w, r, http.StatusOK, history)
}

// handleSearch never fails: an empty query or upstream error yields [].
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, r, http.StatusOK, []models.SearchResult{})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout)
	defer cancel()

	results, err := s.deps.Market.Search(ctx, q)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("q", q).Msg("search failed, returning empty list")
		results = nil
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	writeJSON(w, r, http.StatusOK, results)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout)
	defer cancel()

	info, err := s.deps.Market.GetInfo(ctx, symbol)
	if err != nil {
		s.upstreamError(w, r, "info", symbol, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}

func (s *Server) handleFundamentals(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout)
	defer cancel()

	f, err := s.deps.Market.GetFundamentals(ctx, symbol)
	if err != nil {
		s.upstreamError(w, r, "fundamentals", symbol, err)
		return
	}
	writeJSON(w, r, http.StatusOK, f)
}

// handleNews never fails: upstream errors yield [].
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout)
	defer cancel()

	items, err := s.deps.News.News(ctx, symbol, s.feedLimit)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("symbol", symbol).Msg("news failed, returning empty list")
		items = nil
	}
	if items == nil {
		items = []models.NewsItem{}
	}
	writeJSON(w, r, http.StatusOK, items)
}

// upstreamError logs the failure and writes {error} with status 500.
func (s *Server) upstreamError(w http.ResponseWriter, r *http.Request, op, symbol string, err error) {
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "upstream timeout"
	}
	hlog.FromRequest(r).Error().Err(err).Str("op", op).Str("symbol", symbol).Msg("upstream failure")
	writeError(w, r, http.StatusInternalServerError, msg)
}
