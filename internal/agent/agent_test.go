package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/seenimoa/tickerproxy/internal/agent/prompts"
	"github.com/seenimoa/tickerproxy/internal/llm"
	"github.com/seenimoa/tickerproxy/pkg/models"
)

// ── Test doubles ──

type scriptedProvider struct {
	mu        sync.Mutex
	responses []*llm.Response
	err       error
	calls     [][]llm.Message
	tools     [][]llm.Tool
}

func (p *scriptedProvider) Name() string                   { return "scripted" }
func (p *scriptedProvider) Ping(ctx context.Context) error { return nil }
func (p *scriptedProvider) Chat(ctx context.Context, messages []llm.Message, tools []llm.Tool, opts *llm.ChatOptions) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, messages)
	p.tools = append(p.tools, tools)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return &llm.Response{}, nil
	}
	r := p.responses[0]
	p.responses = p.responses[1:]
	return r, nil
}

type stubQuotes struct {
	quote *models.Quote
	err   error
	asked []string
}

func (s *stubQuotes) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	s.asked = append(s.asked, symbol)
	if s.err != nil {
		return nil, s.err
	}
	return s.quote, nil
}

type stubHeadlines struct {
	headlines []string
	err       error
	gotLimit  int
}

func (s *stubHeadlines) Headlines(ctx context.Context, symbol string, limit int) ([]string, error) {
	s.gotLimit = limit
	return s.headlines, s.err
}

func toolCall(name, args string) *llm.Response {
	return &llm.Response{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: name, Arguments: json.RawMessage(args)}}}
}

func newTestAssistant(p llm.LLMProvider, q QuoteSource, h *stubHeadlines) *Assistant {
	if h == nil {
		h = &stubHeadlines{}
	}
	return NewAssistant(AssistantConfig{Provider: p, Quotes: q, Headlines: h, Logger: zerolog.Nop()})
}

// ════════════════════════════════════════════════════════════════════
// ExtractSymbol
// ════════════════════════════════════════════════════════════════════

func TestExtractSymbol(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"Buy AAPL now", "AAPL", true},
		{"how are markets today", "", false},
		{"what about $TSLA?", "TSLA", true},
		{"BRK.B looks cheap", "BRKB", true},
		{"GOOGLE is six letters, MSFT is not", "MSFT", true},
		{"", "", false},
		{"123 456", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractSymbol(tt.text)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ExtractSymbol(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.wantOK)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// ParseToolCall
// ════════════════════════════════════════════════════════════════════

func TestParseToolCall(t *testing.T) {
	tests := []struct {
		name    string
		call    llm.ToolCall
		want    Intent
		wantErr error
	}{
		{"buy", llm.ToolCall{Name: "buy_stock", Arguments: json.RawMessage(`{"symbol":"tsla","quantity":10}`)},
			TradeIntent{Kind: models.ActionBuy, Symbol: "TSLA", Quantity: 10}, nil},
		{"sell", llm.ToolCall{Name: "sell_stock", Arguments: json.RawMessage(`{"symbol":"AAPL","quantity":2.0}`)},
			TradeIntent{Kind: models.ActionSell, Symbol: "AAPL", Quantity: 2}, nil},
		{"portfolio", llm.ToolCall{Name: "get_portfolio"}, PortfolioIntent{}, nil},
		{"news", llm.ToolCall{Name: "get_news_summary", Arguments: json.RawMessage(`{"symbol":"nvda"}`)},
			NewsSummaryIntent{Symbol: "NVDA"}, nil},
		{"fractional quantity", llm.ToolCall{Name: "buy_stock", Arguments: json.RawMessage(`{"symbol":"TSLA","quantity":1.5}`)},
			nil, ErrInvalidArgs},
		{"zero quantity", llm.ToolCall{Name: "sell_stock", Arguments: json.RawMessage(`{"symbol":"TSLA","quantity":0}`)},
			nil, ErrInvalidArgs},
		{"missing symbol", llm.ToolCall{Name: "buy_stock", Arguments: json.RawMessage(`{"quantity":3}`)},
			nil, ErrInvalidArgs},
		{"news without symbol", llm.ToolCall{Name: "get_news_summary"}, nil, ErrInvalidArgs},
		{"unknown", llm.ToolCall{Name: "transfer_funds"}, nil, ErrUnknownTool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToolCall(tt.call)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestToolsRegistry(t *testing.T) {
	tools := Tools()
	if len(tools) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(tools))
	}
	for _, tool := range tools {
		if _, err := ParseToolCall(llm.ToolCall{Name: tool.Name, Arguments: json.RawMessage(`{"symbol":"AAPL","quantity":1}`)}); err != nil {
			t.Errorf("advertised tool %s should parse: %v", tool.Name, err)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// Assistant.Chat
// ════════════════════════════════════════════════════════════════════

func TestChatPlainText(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.Response{{Content: "Markets are mixed today."}}}
	a := newTestAssistant(p, nil, nil)

	reply := a.Chat(context.Background(), models.ChatRequest{Message: "how are markets today"})
	if reply.IsAction() || reply.Response != "Markets are mixed today." {
		t.Errorf("reply: %+v", reply)
	}
	if len(p.tools[0]) != 4 {
		t.Errorf("first call should advertise 4 tools, got %d", len(p.tools[0]))
	}
}

func TestChatBuyAction(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.Response{toolCall("buy_stock", `{"symbol":"TSLA","quantity":10}`)}}
	a := newTestAssistant(p, nil, nil)

	reply := a.Chat(context.Background(), models.ChatRequest{Message: "buy 10 shares of TSLA"})
	if !reply.IsAction() || reply.Action != models.ActionBuy {
		t.Fatalf("expected buy action, got %+v", reply)
	}
	order, ok := reply.Data.(models.TradeOrder)
	if !ok || order.Symbol != "TSLA" || order.Quantity != 10 {
		t.Errorf("data: %#v", reply.Data)
	}

	raw, _ := json.Marshal(reply)
	if !strings.Contains(string(raw), `"data":{"symbol":"TSLA","quantity":10}`) {
		t.Errorf("wire shape: %s", raw)
	}
	if len(p.calls) != 1 {
		t.Errorf("trade actions should not trigger a second completion, got %d calls", len(p.calls))
	}
}

func TestChatPortfolioAction(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.Response{toolCall("get_portfolio", `{}`)}}
	reply := newTestAssistant(p, nil, nil).Chat(context.Background(), models.ChatRequest{Message: "show my portfolio"})
	if !reply.IsAction() || reply.Action != models.ActionPortfolio {
		t.Fatalf("expected portfolio action, got %+v", reply)
	}
	raw, _ := json.Marshal(reply)
	if !strings.Contains(string(raw), `"data":{}`) {
		t.Errorf("portfolio data should be an empty object: %s", raw)
	}
}

func TestChatNewsSummary(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.Response{
		toolCall("get_news_summary", `{"symbol":"AAPL"}`),
		{Content: "Apple news is upbeat."},
	}}
	h := &stubHeadlines{headlines: []string{"Apple beats estimates", "Apple shares surge", "Apple hires", "extra"}}
	a := newTestAssistant(p, nil, h)

	reply := a.Chat(context.Background(), models.ChatRequest{Message: "what's new with Apple?"})
	if reply.IsAction() || reply.Response != "Apple news is upbeat." {
		t.Fatalf("reply: %+v", reply)
	}
	if h.gotLimit != 3 {
		t.Errorf("headline limit: got %d, want 3", h.gotLimit)
	}
	if len(p.calls) != 2 {
		t.Fatalf("expected 2 completions, got %d", len(p.calls))
	}
	if p.tools[1] != nil {
		t.Error("follow-up completion must not advertise tools")
	}

	second := p.calls[1]
	last := second[len(second)-1]
	if last.Role != llm.RoleTool || last.ToolCallID != "call_1" || last.Name != "get_news_summary" {
		t.Fatalf("last message should be the tool result: %+v", last)
	}
	var payload newsToolResult
	if err := json.Unmarshal([]byte(last.Content), &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Headlines) != 3 || payload.Symbol != "AAPL" {
		t.Errorf("payload: %+v", payload)
	}
	if payload.Sentiment != models.SentimentBullish {
		t.Errorf("sentiment: got %q", payload.Sentiment)
	}
	if prev := second[len(second)-2]; prev.Role != llm.RoleAssistant || len(prev.ToolCalls) != 1 {
		t.Errorf("tool call should be replayed before its result: %+v", prev)
	}
}

func TestChatNewsSummaryHeadlineFailure(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.Response{
		toolCall("get_news_summary", `{"symbol":"AAPL"}`),
		{Content: "No recent headlines were found."},
	}}
	h := &stubHeadlines{err: errors.New("feed down")}
	reply := newTestAssistant(p, nil, h).Chat(context.Background(), models.ChatRequest{Message: "AAPL news"})
	if reply.Response != "No recent headlines were found." {
		t.Fatalf("reply: %+v", reply)
	}
	last := p.calls[1][len(p.calls[1])-1]
	if !strings.Contains(last.Content, `"headlines":[]`) || !strings.Contains(last.Content, `"sentiment":"Neutral"`) {
		t.Errorf("failed fetch should send empty headlines: %s", last.Content)
	}
}

func TestChatProviderFailure(t *testing.T) {
	p := &scriptedProvider{err: llm.ErrProviderDown}
	reply := newTestAssistant(p, nil, nil).Chat(context.Background(), models.ChatRequest{Message: "hi"})
	if reply.Response != prompts.ChatUnavailable {
		t.Errorf("reply: %+v", reply)
	}
}

func TestChatInvalidTradeArgs(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.Response{toolCall("buy_stock", `{"symbol":"TSLA","quantity":-3}`)}}
	reply := newTestAssistant(p, nil, nil).Chat(context.Background(), models.ChatRequest{Message: "buy TSLA"})
	if reply.IsAction() || reply.Response != prompts.TradeClarification {
		t.Errorf("reply: %+v", reply)
	}
}

func TestChatUnknownToolFallsBackToText(t *testing.T) {
	resp := toolCall("transfer_funds", `{}`)
	resp.Content = "I can't move money."
	p := &scriptedProvider{responses: []*llm.Response{resp}}
	reply := newTestAssistant(p, nil, nil).Chat(context.Background(), models.ChatRequest{Message: "wire $5"})
	if reply.IsAction() || reply.Response != "I can't move money." {
		t.Errorf("reply: %+v", reply)
	}
}

func TestChatEmptyAnswer(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.Response{{Content: "   "}}}
	reply := newTestAssistant(p, nil, nil).Chat(context.Background(), models.ChatRequest{Message: "hi"})
	if reply.Response != prompts.EmptyAnswer {
		t.Errorf("reply: %+v", reply)
	}
}

// ── Context injection ──

func systemText(msgs []llm.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			sb.WriteString(m.Content)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func TestChatUsesCallerContext(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.Response{{Content: "ok"}}}
	q := &stubQuotes{quote: &models.Quote{Symbol: "AAPL", Price: 190}}
	newTestAssistant(p, q, nil).Chat(context.Background(), models.ChatRequest{Message: "Buy AAPL now", Context: "Portfolio: 5 AAPL"})

	if !strings.Contains(systemText(p.calls[0]), "Portfolio: 5 AAPL") {
		t.Error("caller context should be passed verbatim")
	}
	if len(q.asked) != 0 {
		t.Error("quote lookup should be skipped when context is supplied")
	}
}

func TestChatInjectsQuoteForExtractedSymbol(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.Response{{Content: "ok"}}}
	q := &stubQuotes{quote: &models.Quote{Symbol: "AAPL", Price: 190.25, ChangePct: 1.5}}
	newTestAssistant(p, q, nil).Chat(context.Background(), models.ChatRequest{Message: "Is AAPL a buy?"})

	if len(q.asked) != 1 || q.asked[0] != "AAPL" {
		t.Fatalf("quote lookups: %v", q.asked)
	}
	if !strings.Contains(systemText(p.calls[0]), "AAPL last traded at 190.25 (+1.50%") {
		t.Errorf("quote context missing: %s", systemText(p.calls[0]))
	}
}

func TestChatContextFreeWhenNoSymbol(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.Response{{Content: "ok"}}}
	q := &stubQuotes{err: errors.New("unused")}
	newTestAssistant(p, q, nil).Chat(context.Background(), models.ChatRequest{Message: "how are markets today"})

	if len(q.asked) != 0 {
		t.Errorf("no symbol should mean no lookup, got %v", q.asked)
	}
	if strings.Contains(systemText(p.calls[0]), "Market context") {
		t.Error("context-free request should carry no market context")
	}
}

func TestChatQuoteFailureIsContextFree(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.Response{{Content: "ok"}}}
	q := &stubQuotes{err: errors.New("upstream down")}
	reply := newTestAssistant(p, q, nil).Chat(context.Background(), models.ChatRequest{Message: "Is ZZZZ up?"})
	if reply.Response != "ok" {
		t.Errorf("reply: %+v", reply)
	}
	if strings.Contains(systemText(p.calls[0]), "Market context") {
		t.Error("failed lookup should not inject context")
	}
}

func TestChatReplaysHistory(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.Response{{Content: "ok"}}}
	req := models.ChatRequest{
		Message: "and now?",
		History: []models.ChatTurn{
			{Role: "user", Content: "how is tsla"},
			{Role: "model", Content: "up 2%"},
			{Role: "user", Content: "  "},
		},
	}
	newTestAssistant(p, nil, nil).Chat(context.Background(), req)

	msgs := p.calls[0]
	// system, user, assistant, user(new)
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d: %+v", len(msgs), msgs)
	}
	if msgs[1].Role != llm.RoleUser || msgs[2].Role != llm.RoleAssistant || msgs[3].Content != "and now?" {
		t.Errorf("history order: %+v", msgs)
	}
}

func TestChatHistoryIsCapped(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.Response{{Content: "ok"}}}
	history := make([]models.ChatTurn, 50)
	for i := range history {
		history[i] = models.ChatTurn{Role: "user", Content: "turn"}
	}
	newTestAssistant(p, nil, nil).Chat(context.Background(), models.ChatRequest{Message: "x", History: history})
	if got := len(p.calls[0]); got != 1+maxHistory+1 {
		t.Errorf("messages: got %d, want %d", got, 1+maxHistory+1)
	}
}
