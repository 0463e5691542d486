// Package llm talks to a chat-completion model with function calling,
// backed by Gemini (google.golang.org/genai) or any OpenAI-compatible
// Chat Completions endpoint.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Provider names accepted by llm.provider.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Sentinel errors. Providers wrap upstream failures in one of these so
// callers can branch with errors.Is.
var (
	ErrNoAPIKey        = errors.New("llm: API key not configured")
	ErrRateLimit       = errors.New("llm: rate limit exceeded")
	ErrContextLength   = errors.New("llm: context length exceeded")
	ErrProviderDown    = errors.New("llm: provider unavailable")
	ErrInvalidModel    = errors.New("llm: invalid model")
	ErrEmptyResponse   = errors.New("llm: empty response")
	ErrUnknownProvider = errors.New("llm: unknown provider")
)

// Role of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FinishReason is the normalized stop reason of a completion.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
	FinishError     FinishReason = "error"
)

// LLMProvider is a chat-completion backend.
type LLMProvider interface {
	Name() string
	// Chat runs one completion. A nil tools slice disables function calling.
	Chat(ctx context.Context, messages []Message, tools []Tool, opts *ChatOptions) (*Response, error)
	// Ping verifies the key and model without generating anything.
	Ping(ctx context.Context) error
}

// Message is one conversation turn. Assistant turns may carry tool calls
// instead of text; tool turns answer a call by ToolCallID and Name.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

func SystemMessage(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func UserMessage(content string) Message      { return Message{Role: RoleUser, Content: content} }
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// AssistantToolCallMessage replays the model's own tool request so the
// following tool result has something to answer.
func AssistantToolCallMessage(calls []ToolCall) Message {
	return Message{Role: RoleAssistant, ToolCalls: calls}
}

// ToolResultMessage answers the tool call id with content, usually JSON.
func ToolResultMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, Name: name}
}

// ToolCall is a function invocation requested by the model. Arguments is
// the raw JSON object; see DecodeArgs.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ChatOptions overrides the provider defaults for one request. Zero
// values keep the default.
type ChatOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a completed generation.
type Response struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason FinishReason
	Usage        Usage
	Model        string
	Provider     string
	Latency      time.Duration
}

// HasToolCalls reports whether the model asked for at least one tool.
func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// MarshalZerologObject logs the response without its full text.
func (r *Response) MarshalZerologObject(e *zerolog.Event) {
	e.Str("provider", r.Provider).
		Str("model", r.Model).
		Str("finish", string(r.FinishReason)).
		Int("tokens", r.Usage.TotalTokens).
		Dur("latency", r.Latency)
	if r.HasToolCalls() {
		names := make([]string, len(r.ToolCalls))
		for i, c := range r.ToolCalls {
			names[i] = c.Name
		}
		e.Strs("tools", names)
		return
	}
	e.Int("chars", len(r.Content))
}
