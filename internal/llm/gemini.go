package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// GeminiProvider implements LLMProvider on the Gemini API via the genai SDK.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
}

type geminiSettings struct {
	baseURL     string
	model       string
	httpClient  *http.Client
	timeout     time.Duration
	temperature float64
	maxTokens   int
}

// GeminiOption configures the Gemini provider.
type GeminiOption func(*geminiSettings)

// WithGeminiModel sets the default model.
func WithGeminiModel(model string) GeminiOption {
	return func(s *geminiSettings) { s.model = model }
}

// WithGeminiBaseURL points the client at a different API host.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(s *geminiSettings) { s.baseURL = strings.TrimRight(url, "/") }
}

// WithGeminiHTTPClient sets a custom HTTP client.
func WithGeminiHTTPClient(client *http.Client) GeminiOption {
	return func(s *geminiSettings) { s.httpClient = client }
}

// WithGeminiTimeout bounds every request made by the client.
func WithGeminiTimeout(d time.Duration) GeminiOption {
	return func(s *geminiSettings) { s.timeout = d }
}

// WithGeminiGeneration sets default sampling temperature and output budget.
func WithGeminiGeneration(temperature float64, maxTokens int) GeminiOption {
	return func(s *geminiSettings) {
		s.temperature = temperature
		s.maxTokens = maxTokens
	}
}

// NewGeminiProvider creates a Gemini provider.
func NewGeminiProvider(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	s := geminiSettings{model: "gemini-2.0-flash"}
	for _, opt := range opts {
		opt(&s)
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.httpClient,
	}
	if s.baseURL != "" {
		cc.HTTPOptions.BaseURL = s.baseURL
		cc.HTTPOptions.APIVersion = "v1beta"
	}
	if s.timeout > 0 {
		cc.HTTPOptions.Timeout = &s.timeout
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiProvider{
		client:      client,
		model:       s.model,
		temperature: s.temperature,
		maxTokens:   s.maxTokens,
	}, nil
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

// Ping verifies the API key by fetching the configured model.
func (p *GeminiProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.Get(ctx, p.model, nil); err != nil {
		return mapGeminiError(err)
	}
	return nil
}

// Chat sends a generateContent request to Gemini.
func (p *GeminiProvider) Chat(ctx context.Context, messages []Message, tools []Tool, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	model := p.model
	temperature := p.temperature
	maxTokens := p.maxTokens
	if opts != nil {
		if opts.Model != "" {
			model = opts.Model
		}
		if opts.Temperature > 0 {
			temperature = opts.Temperature
		}
		if opts.MaxTokens > 0 {
			maxTokens = opts.MaxTokens
		}
	}

	system, contents := toGeminiContents(messages)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Tools:             toGenaiTools(tools),
	}
	if temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(temperature))
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, mapGeminiError(err)
	}
	return parseGeminiResponse(resp, model, start)
}

// ── Conversion Helpers ──

// toGeminiContents splits system messages into the system instruction and
// converts the rest to Gemini contents. Tool results are sent back as
// user-role function responses.
func toGeminiContents(messages []Message) (*genai.Content, []*genai.Content) {
	var system []string
	var contents []*genai.Content

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)

		case RoleAssistant:
			c := &genai.Content{Role: genai.RoleModel}
			if m.Content != "" {
				c.Parts = append(c.Parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				// Gemini rejects a call without an args object.
				var args map[string]any
				if err := json.Unmarshal(tc.Arguments, &args); err != nil || args == nil {
					args = map[string]any{}
				}
				c.Parts = append(c.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: args,
				}})
			}
			if len(c.Parts) > 0 {
				contents = append(contents, c)
			}

		case RoleTool:
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{
					ID:       m.ToolCallID,
					Name:     m.Name,
					Response: toolResultPayload(m.Content),
				}}},
			})

		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}

	if len(system) == 0 {
		return nil, contents
	}
	return &genai.Content{
		Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
	}, contents
}

// toolResultPayload wraps a tool result as the object Gemini expects. JSON
// objects pass through; anything else is sent under "output".
func toolResultPayload(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
		return obj
	}
	return map[string]any{"output": content}
}

func parseGeminiResponse(resp *genai.GenerateContentResponse, model string, start time.Time) (*Response, error) {
	r := &Response{
		Model:    model,
		Provider: ProviderGemini,
		Latency:  time.Since(start),
	}
	if resp.ModelVersion != "" {
		r.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		r.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyResponse
	}

	cand := resp.Candidates[0]
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.FunctionCall != nil {
			fnArgs := part.FunctionCall.Args
			if fnArgs == nil {
				fnArgs = map[string]any{}
			}
			args, err := json.Marshal(fnArgs)
			if err != nil {
				return nil, fmt.Errorf("gemini: encode function args: %w", err)
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = uuid.NewString()
			}
			r.ToolCalls = append(r.ToolCalls, ToolCall{
				ID:        id,
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
			continue
		}
		text.WriteString(part.Text)
	}
	r.Content = text.String()
	r.FinishReason = mapGeminiFinish(cand.FinishReason, r.HasToolCalls())
	return r, nil
}

func mapGeminiFinish(reason genai.FinishReason, toolCalls bool) FinishReason {
	if toolCalls {
		return FinishToolCalls
	}
	switch reason {
	case genai.FinishReasonStop, "":
		return FinishStop
	case genai.FinishReasonMaxTokens:
		return FinishLength
	default:
		return FinishError
	}
}

func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrNoAPIKey, apiErr.Message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimit, apiErr.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrInvalidModel, apiErr.Message)
	}
	if apiErr.Code >= 500 {
		return fmt.Errorf("%w: %s", ErrProviderDown, apiErr.Message)
	}
	return fmt.Errorf("gemini: API error (%d): %s", apiErr.Code, apiErr.Message)
}
