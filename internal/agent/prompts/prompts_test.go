package prompts

import (
	"strings"
	"testing"
)

// ── Tool Name Constants ──

func TestToolNameValues(t *testing.T) {
	names := map[string]string{
		"ToolBuyStock":       ToolBuyStock,
		"ToolSellStock":      ToolSellStock,
		"ToolGetPortfolio":   ToolGetPortfolio,
		"ToolGetNewsSummary": ToolGetNewsSummary,
	}
	for label, name := range names {
		if name == "" || strings.Contains(name, " ") {
			t.Errorf("%s: bad identifier %q", label, name)
		}
		if !strings.Contains(AssistantSystemPrompt, name) {
			t.Errorf("system prompt should describe %s", name)
		}
	}
}

// ── Templates ──

func TestQuoteContext(t *testing.T) {
	got := QuoteContext("AAPL", 189.5, -1.234)
	if got != "AAPL last traded at 189.50 (-1.23% vs previous close)." {
		t.Errorf("QuoteContext: got %q", got)
	}
	if !strings.Contains(QuoteContext("TSLA", 250, 2), "+2.00%") {
		t.Error("positive change should carry a sign")
	}
}

func TestMarketContextTrims(t *testing.T) {
	if got := MarketContext("  AAPL 190  \n"); got != "Market context:\nAAPL 190" {
		t.Errorf("MarketContext: got %q", got)
	}
}

func TestTradeConfirmation(t *testing.T) {
	tests := []struct {
		action, symbol string
		qty            int
		want           string
	}{
		{"buy", "TSLA", 10, "Ready to buy 10 shares of TSLA. Please confirm."},
		{"sell", "AAPL", 1, "Ready to sell 1 share of AAPL. Please confirm."},
	}
	for _, tt := range tests {
		if got := TradeConfirmation(tt.action, tt.symbol, tt.qty); got != tt.want {
			t.Errorf("TradeConfirmation(%q, %q, %d) = %q", tt.action, tt.symbol, tt.qty, got)
		}
	}
}
