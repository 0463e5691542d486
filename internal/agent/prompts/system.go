// Package prompts contains the system instruction and message templates
// used by the chat assistant.
package prompts

import (
	"fmt"
	"strings"
)

// ── Tool Names (canonical identifiers) ──

const (
	ToolBuyStock       = "buy_stock"
	ToolSellStock      = "sell_stock"
	ToolGetPortfolio   = "get_portfolio"
	ToolGetNewsSummary = "get_news_summary"
)

// ── System Prompts ──

// AssistantSystemPrompt configures the chat assistant.
const AssistantSystemPrompt = `You are a concise stock-market assistant embedded in a portfolio app.

## Tools
- buy_stock: the user clearly asks to buy a number of shares of a ticker. Requires symbol and quantity.
- sell_stock: the user clearly asks to sell a number of shares of a ticker. Requires symbol and quantity.
- get_portfolio: the user asks to see their holdings, positions or portfolio.
- get_news_summary: the user asks what is happening with a company or wants its latest news.

## Guidelines
1. Call a tool only when the request matches one of the cases above; otherwise answer in plain text.
2. Never invent prices or headlines. Use the market context when it is provided.
3. If a trade request is missing the ticker or the share count, ask for it instead of calling a tool.
4. Tickers are upper-case exchange symbols such as AAPL or TSLA.
5. Keep answers under 120 words. You do not give personalised financial advice.`

// NewsSummaryInstruction is appended before the follow-up completion that
// turns fetched headlines into an answer.
const NewsSummaryInstruction = `Summarize the headlines returned by get_news_summary in two or three sentences for the user. Mention the overall tone. If no headlines were found, say so plainly.`

// ── Templates ──

// MarketContext wraps caller- or server-provided context for the model.
func MarketContext(text string) string {
	return "Market context:\n" + strings.TrimSpace(text)
}

// QuoteContext renders a one-line quote summary for context injection.
func QuoteContext(symbol string, price, changePct float64) string {
	return fmt.Sprintf("%s last traded at %.2f (%+.2f%% vs previous close).", symbol, price, changePct)
}

// TradeConfirmation is the human-readable message attached to a trade action.
func TradeConfirmation(action, symbol string, quantity int) string {
	noun := "shares"
	if quantity == 1 {
		noun = "share"
	}
	return fmt.Sprintf("Ready to %s %d %s of %s. Please confirm.", action, quantity, noun, symbol)
}

// PortfolioMessage accompanies the portfolio action.
const PortfolioMessage = "Opening your portfolio."

// ── User-visible fallbacks ──

const (
	// ChatUnavailable is returned when the language model cannot be reached.
	ChatUnavailable = "Sorry, I couldn't reach the assistant right now. Please try again in a moment."

	// TradeClarification is returned when a trade call lacks a valid ticker or share count.
	TradeClarification = "Which ticker and how many whole shares would you like to trade?"

	// EmptyAnswer is returned when the model produced no text.
	EmptyAnswer = "I don't have an answer for that yet."
)
