package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/seenimoa/tickerproxy/internal/infra"
)

// OpenAIProvider implements LLMProvider for the Chat Completions API. Any
// OpenAI-compatible endpoint works through WithOpenAIBaseURL.
type OpenAIProvider struct {
	model       string
	temperature float64
	maxTokens   int
	client      *resty.Client
}

type openAISettings struct {
	baseURL     string
	model       string
	timeout     time.Duration
	temperature float64
	maxTokens   int
}

// OpenAIOption configures the OpenAI provider.
type OpenAIOption func(*openAISettings)

// WithOpenAIBaseURL sets a custom base URL (e.g., for Azure OpenAI or proxies).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(s *openAISettings) { s.baseURL = strings.TrimRight(url, "/") }
}

// WithOpenAIModel sets the default model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(s *openAISettings) { s.model = model }
}

// WithOpenAITimeout bounds every request.
func WithOpenAITimeout(d time.Duration) OpenAIOption {
	return func(s *openAISettings) { s.timeout = d }
}

// WithOpenAIGeneration sets default sampling temperature and output budget.
func WithOpenAIGeneration(temperature float64, maxTokens int) OpenAIOption {
	return func(s *openAISettings) {
		s.temperature = temperature
		s.maxTokens = maxTokens
	}
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	s := openAISettings{
		baseURL: "https://api.openai.com/v1",
		model:   "gpt-4o-mini",
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&s)
	}
	client := infra.NewRestClient(infra.ClientOptions{
		BaseURL: s.baseURL,
		Timeout: s.timeout,
	})
	client.SetAuthToken(apiKey)
	client.SetHeader("Content-Type", "application/json")
	return &OpenAIProvider{
		model:       s.model,
		temperature: s.temperature,
		maxTokens:   s.maxTokens,
		client:      client,
	}, nil
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// Ping verifies the API key by listing models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get("/models")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return fmt.Errorf("%w: invalid API key", ErrNoAPIKey)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProviderDown, resp.StatusCode())
	}
	return nil
}

// Chat sends a chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, tools []Tool, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	body := p.buildRequest(messages, tools, opts)

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	if err := checkOpenAIError(resp); err != nil {
		return nil, err
	}

	return parseOpenAIResponse(resp.Body(), body.Model, start)
}

// ── Request wire types ──

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []openAITool    `json:"tools,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

type openAITool struct {
	Type     string            `json:"type"`
	Function openAIFunctionDef `json:"function"`
}

type openAIFunctionDef struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  *JSONSchema `json:"parameters"`
}

type openAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIFunctionCall `json:"function"`
}

type openAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ── Helpers ──

func (p *OpenAIProvider) buildRequest(messages []Message, tools []Tool, opts *ChatOptions) openAIChatRequest {
	r := openAIChatRequest{
		Model:    p.model,
		Messages: convertToOpenAIMessages(messages),
	}
	if len(tools) > 0 {
		r.Tools = convertToOpenAITools(tools)
	}
	temperature, maxTokens := p.temperature, p.maxTokens
	if opts != nil {
		if opts.Model != "" {
			r.Model = opts.Model
		}
		if opts.Temperature > 0 {
			temperature = opts.Temperature
		}
		if opts.MaxTokens > 0 {
			maxTokens = opts.MaxTokens
		}
	}
	if temperature > 0 {
		r.Temperature = &temperature
	}
	if maxTokens > 0 {
		r.MaxTokens = &maxTokens
	}
	return r
}

func checkOpenAIError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	apiErr := gjson.GetBytes(resp.Body(), "error")
	msg := apiErr.Get("message").String()
	if msg == "" {
		return infra.CheckResponse(resp)
	}
	code := apiErr.Get("code").String()
	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrNoAPIKey, msg)
	case resp.StatusCode() == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimit, msg)
	case strings.Contains(code, "context_length"):
		return fmt.Errorf("%w: %s", ErrContextLength, msg)
	case strings.Contains(code, "model_not_found"), resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrInvalidModel, msg)
	case resp.StatusCode() >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrProviderDown, msg)
	}
	return fmt.Errorf("openai: API error (%d): %s", resp.StatusCode(), msg)
}

// parseOpenAIResponse reads the first choice of a completion body. Only
// the fields the assistant consumes are extracted.
func parseOpenAIResponse(body []byte, model string, start time.Time) (*Response, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("openai: decode response: invalid JSON")
	}
	root := gjson.ParseBytes(body)
	choice := root.Get("choices.0")
	if !choice.Exists() {
		return nil, ErrEmptyResponse
	}

	r := &Response{
		Content:      choice.Get("message.content").String(),
		FinishReason: mapFinishReason(choice.Get("finish_reason").String()),
		Model:        root.Get("model").String(),
		Provider:     ProviderOpenAI,
		Latency:      time.Since(start),
		Usage: Usage{
			PromptTokens:     int(root.Get("usage.prompt_tokens").Int()),
			CompletionTokens: int(root.Get("usage.completion_tokens").Int()),
			TotalTokens:      int(root.Get("usage.total_tokens").Int()),
		},
	}
	if r.Model == "" {
		r.Model = model
	}
	choice.Get("message.tool_calls").ForEach(func(_, tc gjson.Result) bool {
		args := tc.Get("function.arguments").String()
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		r.ToolCalls = append(r.ToolCalls, ToolCall{
			ID:        tc.Get("id").String(),
			Name:      tc.Get("function.name").String(),
			Arguments: json.RawMessage(args),
		})
		return true
	})
	return r, nil
}

// ── Conversion Helpers ──

func convertToOpenAIMessages(messages []Message) []openAIMessage {
	out := make([]openAIMessage, len(messages))
	for i, m := range messages {
		msg := openAIMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openAIToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: openAIFunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		out[i] = msg
	}
	return out
}

func convertToOpenAITools(tools []Tool) []openAITool {
	out := make([]openAITool, len(tools))
	for i, t := range tools {
		params := t.Parameters
		if params == nil {
			params = ObjectSchema("", map[string]*JSONSchema{})
		}
		out[i] = openAITool{
			Type: "function",
			Function: openAIFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		}
	}
	return out
}

func mapFinishReason(reason string) FinishReason {
	switch reason {
	case "stop":
		return FinishStop
	case "tool_calls":
		return FinishToolCalls
	case "length":
		return FinishLength
	default:
		return FinishReason(reason)
	}
}
