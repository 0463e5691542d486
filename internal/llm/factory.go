package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/seenimoa/tickerproxy/internal/config"
)

// NewProviderFromConfig builds the single provider selected by
// llm.provider. There is no fallback chain.
func NewProviderFromConfig(ctx context.Context, cfg *config.Config) (LLMProvider, error) {
	timeout := time.Duration(cfg.Upstream.TimeoutSec) * time.Second
	// Completions are slower than market-data calls.
	if timeout < 30*time.Second {
		timeout = 30 * time.Second
	}

	model := modelFor(cfg.LLM.Provider, cfg.LLM.Model)
	switch cfg.LLM.Provider {
	case ProviderGemini:
		opts := []GeminiOption{
			WithGeminiModel(model),
			WithGeminiTimeout(timeout),
			WithGeminiGeneration(cfg.LLM.Temperature, cfg.LLM.MaxTokens),
		}
		if cfg.LLM.GeminiURL != "" {
			opts = append(opts, WithGeminiBaseURL(cfg.LLM.GeminiURL))
		}
		return NewGeminiProvider(ctx, cfg.LLM.GeminiKey, opts...)

	case ProviderOpenAI:
		opts := []OpenAIOption{
			WithOpenAIModel(model),
			WithOpenAITimeout(timeout),
			WithOpenAIGeneration(cfg.LLM.Temperature, cfg.LLM.MaxTokens),
		}
		if cfg.LLM.OpenAIBaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(cfg.LLM.OpenAIBaseURL))
		}
		return NewOpenAIProvider(cfg.LLM.OpenAIKey, opts...)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.LLM.Provider)
}

// modelFor falls back to the provider's default model when the configured
// one belongs to the other provider, e.g. the default gemini model left in
// place after switching to openai.
func modelFor(provider, model string) string {
	switch {
	case provider == ProviderOpenAI && (model == "" || strings.HasPrefix(model, "gemini")):
		return "gpt-4o-mini"
	case provider == ProviderGemini && (model == "" || strings.HasPrefix(model, "gpt")):
		return "gemini-2.0-flash"
	}
	return model
}
