// Package api provides the HTTP server for tickerproxy.
//
// It exposes quote, history, search, company-info, fundamentals and news
// endpoints backed by the market-data sources, plus a chat endpoint over
// HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/seenimoa/tickerproxy/internal/agent"
	"github.com/seenimoa/tickerproxy/internal/analysis/sentiment"
	"github.com/seenimoa/tickerproxy/internal/config"
	"github.com/seenimoa/tickerproxy/internal/datasource"
	"github.com/seenimoa/tickerproxy/internal/llm"
	"github.com/seenimoa/tickerproxy/pkg/models"
)

// Version is reported by /health. Set at build time via -ldflags.
var Version = "dev"

// SentimentSource labels a ticker. It never fails.
type SentimentSource interface {
	Sentiment(ctx context.Context, symbol string) models.Sentiment
}

// ChatService answers a chat request. It never fails.
type ChatService interface {
	Chat(ctx context.Context, req models.ChatRequest) models.ChatReply
}

// Deps are the collaborators a Server reads from.
type Deps struct {
	Market    datasource.MarketData
	News      datasource.NewsSource
	Sentiment SentimentSource
	Chat      ChatService
	Provider  string   // LLM provider name, reported by /health
	Sources   []string // upstream data sources, reported by /health
}

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	deps   Deps
	log    zerolog.Logger

	upstreamTimeout time.Duration
	chatTimeout     time.Duration
	feedLimit       int
}

// NewServer wires the production collaborators from cfg. A language model
// that cannot be configured does not stop the server: chat requests then
// get a short "not configured" reply.
func NewServer(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Server, error) {
	agg := datasource.NewAggregator(cfg)
	analyzer := sentiment.NewAnalyzer(agg, cfg.News.HeadlineLimit, log)

	deps := Deps{
		Market:    agg,
		News:      agg,
		Sentiment: analyzer,
		Provider:  cfg.LLM.Provider,
		Sources:   agg.Sources(),
	}
	log.Info().Strs("sources", deps.Sources).Msg("market data wired")

	provider, err := llm.NewProviderFromConfig(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.LLM.Provider).Msg("chat disabled")
		deps.Chat = unavailableChat{}
	} else {
		deps.Chat = agent.NewAssistant(agent.AssistantConfig{
			Provider:      provider,
			Quotes:        agg,
			Headlines:     agg,
			HeadlineLimit: cfg.News.HeadlineLimit,
			Logger:        log,
		})
	}

	return New(cfg, deps, log), nil
}

// New builds a Server over explicit collaborators.
func New(cfg *config.Config, deps Deps, log zerolog.Logger) *Server {
	s := &Server{
		cfg:             cfg,
		deps:            deps,
		log:             log,
		upstreamTimeout: seconds(cfg.Upstream.TimeoutSec, 10),
		chatTimeout:     seconds(cfg.Server.RequestTimeoutSec, 60),
		feedLimit:       cfg.News.FeedLimit,
	}
	// Allow the sentiment fetch to finish after a slow quote.
	s.upstreamTimeout += 2 * time.Second
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down gracefully on
// SIGINT/SIGTERM or when ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.chatTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Str("provider", s.deps.Provider).Msg("listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.log))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-ID"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.Server.CORSOrigins) > 0 {
		origins = s.cfg.Server.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// WebSocket connections outlive any request timeout.
	r.Get("/ws/chat", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.chatTimeout + 5*time.Second))

		r.Get("/health", s.handleHealth)
		r.Get("/config", s.handleGetConfig)

		// Market data
		r.Get("/quote/{symbol}", s.handleQuote)
		r.Get("/graph/{symbol}", s.handleGraph)
		r.Get("/history/{symbol}", s.handleHistory)
		r.Get("/search", s.handleSearch)
		r.Get("/info/{symbol}", s.handleInfo)
		r.Get("/fundamentals/{symbol}", s.handleFundamentals)
		r.Get("/news/{symbol}", s.handleNews)

		// Chat
		r.Post("/chat", s.handleChat)
	})

	return r
}

// ============================================================
// Helpers
// ============================================================

// errorBody is the failure shape for every non-chat endpoint.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Error: msg})
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

// unavailableChat answers every request when no language model is configured.
type unavailableChat struct{}

func (unavailableChat) Chat(context.Context, models.ChatRequest) models.ChatReply {
	return models.TextReply("The assistant is not configured on this server.")
}
