// Package agent implements the chat assistant: one completion call with a
// fixed tool registry, mapped onto a closed set of intents. Trade and
// portfolio intents are returned to the client as actions; the news
// summary intent is answered server-side with a second completion.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/tickerproxy/internal/agent/prompts"
	"github.com/seenimoa/tickerproxy/internal/analysis/sentiment"
	"github.com/seenimoa/tickerproxy/internal/llm"
	"github.com/seenimoa/tickerproxy/pkg/models"
)

// maxHistory caps how many prior turns are replayed to the model.
const maxHistory = 20

// contextQuoteTimeout bounds the best-effort quote lookup for context.
const contextQuoteTimeout = 3 * time.Second

// QuoteSource supplies the quote used for context injection.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// AssistantConfig configures an Assistant.
type AssistantConfig struct {
	Provider      llm.LLMProvider
	Quotes        QuoteSource // optional
	Headlines     sentiment.HeadlineSource
	HeadlineLimit int
	Logger        zerolog.Logger
}

// Assistant answers chat requests.
type Assistant struct {
	provider  llm.LLMProvider
	quotes    QuoteSource
	headlines sentiment.HeadlineSource
	limit     int
	log       zerolog.Logger
}

// NewAssistant creates an Assistant from the given configuration.
func NewAssistant(cfg AssistantConfig) *Assistant {
	limit := cfg.HeadlineLimit
	if limit <= 0 {
		limit = sentiment.DefaultHeadlineLimit
	}
	return &Assistant{
		provider:  cfg.Provider,
		quotes:    cfg.Quotes,
		headlines: cfg.Headlines,
		limit:     limit,
		log:       cfg.Logger.With().Str("component", "assistant").Logger(),
	}
}

// Chat never fails: completion errors become a short text reply.
func (a *Assistant) Chat(ctx context.Context, req models.ChatRequest) models.ChatReply {
	start := time.Now()
	messages := a.buildMessages(ctx, req)

	resp, err := a.provider.Chat(ctx, messages, Tools(), nil)
	if err != nil {
		a.log.Error().Err(err).Str("provider", a.provider.Name()).Msg("completion failed")
		return models.TextReply(prompts.ChatUnavailable)
	}
	a.log.Debug().Object("response", resp).Dur("elapsed", time.Since(start)).Msg("completion")

	if !resp.HasToolCalls() {
		return textOrFallback(resp.Content)
	}

	// Only the first call is honoured.
	call := resp.ToolCalls[0]
	intent, err := ParseToolCall(call)
	switch {
	case errors.Is(err, ErrInvalidArgs):
		a.log.Warn().Err(err).Str("tool", call.Name).Msg("rejected tool arguments")
		return models.TextReply(prompts.TradeClarification)
	case err != nil:
		a.log.Warn().Err(err).Str("tool", call.Name).Msg("ignoring tool call")
		return textOrFallback(resp.Content)
	}

	switch it := intent.(type) {
	case TradeIntent:
		return models.ActionReply(it.Kind, it.Order(),
			prompts.TradeConfirmation(string(it.Kind), it.Symbol, it.Quantity))
	case PortfolioIntent:
		return models.ActionReply(models.ActionPortfolio, nil, prompts.PortfolioMessage)
	case NewsSummaryIntent:
		return a.summarizeNews(ctx, messages, call, it)
	}
	return textOrFallback(resp.Content)
}

// newsToolResult is the payload fed back to the model for get_news_summary.
type newsToolResult struct {
	Symbol      string           `json:"symbol"`
	Headlines   []string         `json:"headlines"`
	Sentiment   models.Sentiment `json:"sentiment"`
	Instruction string           `json:"instruction"`
}

func (a *Assistant) summarizeNews(ctx context.Context, messages []llm.Message, call llm.ToolCall, it NewsSummaryIntent) models.ChatReply {
	headlines, err := a.headlines.Headlines(ctx, it.Symbol, a.limit)
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", it.Symbol).Msg("headline fetch failed, summarizing none")
		headlines = nil
	}
	if len(headlines) > a.limit {
		headlines = headlines[:a.limit]
	}
	if headlines == nil {
		headlines = []string{}
	}

	payload, err := json.Marshal(newsToolResult{
		Symbol:      it.Symbol,
		Headlines:   headlines,
		Sentiment:   sentiment.Classify(sentiment.Score(headlines)),
		Instruction: prompts.NewsSummaryInstruction,
	})
	if err != nil {
		return models.TextReply(prompts.ChatUnavailable)
	}

	followUp := make([]llm.Message, 0, len(messages)+2)
	followUp = append(followUp, messages...)
	followUp = append(followUp,
		llm.AssistantToolCallMessage([]llm.ToolCall{call}),
		llm.ToolResultMessage(call.ID, call.Name, string(payload)),
	)

	resp, err := a.provider.Chat(ctx, followUp, nil, nil)
	if err != nil {
		a.log.Error().Err(err).Str("symbol", it.Symbol).Msg("news summary completion failed")
		return models.TextReply(prompts.ChatUnavailable)
	}
	return textOrFallback(resp.Content)
}

// buildMessages assembles system prompt, optional market context, replayed
// history and the new user message.
func (a *Assistant) buildMessages(ctx context.Context, req models.ChatRequest) []llm.Message {
	messages := []llm.Message{llm.SystemMessage(prompts.AssistantSystemPrompt)}
	if mc := a.marketContext(ctx, req); mc != "" {
		messages = append(messages, llm.SystemMessage(prompts.MarketContext(mc)))
	}

	history := req.History
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		if turn.Role == "model" {
			messages = append(messages, llm.AssistantMessage(content))
		} else {
			messages = append(messages, llm.UserMessage(content))
		}
	}
	return append(messages, llm.UserMessage(strings.TrimSpace(req.Message)))
}

// marketContext prefers caller-supplied context, then a quote line for the
// first ticker-like token in the message. An empty result means the model
// answers without context.
func (a *Assistant) marketContext(ctx context.Context, req models.ChatRequest) string {
	if c := strings.TrimSpace(req.Context); c != "" {
		return c
	}
	if a.quotes == nil {
		return ""
	}
	sym, ok := ExtractSymbol(req.Message)
	if !ok {
		return ""
	}

	qctx, cancel := context.WithTimeout(ctx, contextQuoteTimeout)
	defer cancel()
	q, err := a.quotes.GetQuote(qctx, sym)
	if err != nil {
		a.log.Debug().Err(err).Str("symbol", sym).Msg("no quote for context")
		return ""
	}
	return prompts.QuoteContext(q.Symbol, q.Price, q.ChangePct)
}

func textOrFallback(text string) models.ChatReply {
	if t := strings.TrimSpace(text); t != "" {
		return models.TextReply(t)
	}
	return models.TextReply(prompts.EmptyAnswer)
}
