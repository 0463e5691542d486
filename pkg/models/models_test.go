package models

import (
	"encoding/json"
	"strings"
	"testing"
)

// ── Fundamentals ──

func TestFundamentalsMissingFieldsAreNull(t *testing.T) {
	pe := 28.5
	f := Fundamentals{Symbol: "AAPL", TrailingPE: &pe}

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("json.Marshal error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}

	if m["trailing_pe"] != 28.5 {
		t.Errorf("trailing_pe: got %v", m["trailing_pe"])
	}
	v, ok := m["market_cap"]
	if !ok {
		t.Fatal("market_cap key should be present")
	}
	if v != nil {
		t.Errorf("market_cap: got %v, want null", v)
	}
	for key := range f.Fields() {
		if _, ok := m[key]; !ok {
			t.Errorf("key %q missing from JSON", key)
		}
	}
}

func TestFundamentalsFieldsWritable(t *testing.T) {
	var f Fundamentals
	beta := 1.2
	*f.Fields()["beta"] = &beta
	if f.Beta == nil || *f.Beta != 1.2 {
		t.Errorf("Beta not set through Fields(): %v", f.Beta)
	}
	if len(f.Fields()) != 16 {
		t.Errorf("expected 16 metrics, got %d", len(f.Fields()))
	}
}

// ── News ──

func TestNewsItemHasSummary(t *testing.T) {
	tests := []struct {
		summary string
		want    bool
	}{
		{"Shares rose.", true},
		{"", false},
		{"   \n\t", false},
	}
	for _, tt := range tests {
		if got := (NewsItem{Summary: tt.summary}).HasSummary(); got != tt.want {
			t.Errorf("HasSummary(%q) = %v, want %v", tt.summary, got, tt.want)
		}
	}
}

// ── Chat ──

func TestChatTurnUnmarshalContent(t *testing.T) {
	var turn ChatTurn
	if err := json.Unmarshal([]byte(`{"role":"user","content":"hi"}`), &turn); err != nil {
		t.Fatal(err)
	}
	if turn.Role != "user" || turn.Content != "hi" {
		t.Errorf("got %+v", turn)
	}
}

func TestChatTurnUnmarshalParts(t *testing.T) {
	var turn ChatTurn
	body := `{"role":"model","parts":[{"text":"line one"},{"text":"line two"}]}`
	if err := json.Unmarshal([]byte(body), &turn); err != nil {
		t.Fatal(err)
	}
	if turn.Role != "model" || turn.Content != "line one\nline two" {
		t.Errorf("got %+v", turn)
	}
}

func TestChatTurnAssistantAlias(t *testing.T) {
	var turn ChatTurn
	if err := json.Unmarshal([]byte(`{"role":"Assistant","content":"ok"}`), &turn); err != nil {
		t.Fatal(err)
	}
	if turn.Role != "model" {
		t.Errorf("role: got %q, want model", turn.Role)
	}
}

func TestChatReplyShapes(t *testing.T) {
	text, _ := json.Marshal(TextReply("hello"))
	if string(text) != `{"response":"hello"}` {
		t.Errorf("text reply: got %s", text)
	}

	buy, _ := json.Marshal(ActionReply(ActionBuy, TradeOrder{Symbol: "TSLA", Quantity: 10}, "Buying 10 TSLA"))
	want := `{"type":"action","action":"buy","data":{"symbol":"TSLA","quantity":10},"message":"Buying 10 TSLA"}`
	if string(buy) != want {
		t.Errorf("buy reply:\n got %s\nwant %s", buy, want)
	}

	pf, _ := json.Marshal(ActionReply(ActionPortfolio, nil, "Here is your portfolio"))
	if !strings.Contains(string(pf), `"data":{}`) {
		t.Errorf("portfolio reply should carry empty data object: %s", pf)
	}
	if !ActionReply(ActionSell, nil, "").IsAction() || TextReply("x").IsAction() {
		t.Error("IsAction mismatch")
	}
}

func TestPriceHistoryAppend(t *testing.T) {
	var h PriceHistory
	h.Append("2024-01-02", 185.64)
	h.Append("2024-01-03", 184.25)
	if h.Len() != 2 || h.Prices[1] != 184.25 || h.Labels[0] != "2024-01-02" {
		t.Errorf("unexpected history: %+v", h)
	}
}
