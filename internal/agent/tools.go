package agent

import (
	"github.com/seenimoa/tickerproxy/internal/agent/prompts"
	"github.com/seenimoa/tickerproxy/internal/llm"
)

// Tools returns the fixed registry advertised to the model.
func Tools() []llm.Tool {
	trade := func(verb string) *llm.JSONSchema {
		return llm.ObjectSchema("", map[string]*llm.JSONSchema{
			"symbol":   llm.StringProp("Ticker symbol to " + verb + ", e.g. AAPL"),
			"quantity": llm.IntProp("Number of whole shares to " + verb),
		}, "symbol", "quantity")
	}
	return []llm.Tool{
		{
			Name:        prompts.ToolBuyStock,
			Description: "Prepare a buy order for the user to confirm in the app.",
			Parameters:  trade("buy"),
		},
		{
			Name:        prompts.ToolSellStock,
			Description: "Prepare a sell order for the user to confirm in the app.",
			Parameters:  trade("sell"),
		},
		{
			Name:        prompts.ToolGetPortfolio,
			Description: "Show the user's current holdings.",
			Parameters:  llm.ObjectSchema("", map[string]*llm.JSONSchema{}),
		},
		{
			Name:        prompts.ToolGetNewsSummary,
			Description: "Fetch the latest headlines for a ticker and summarize them.",
			Parameters: llm.ObjectSchema("", map[string]*llm.JSONSchema{
				"symbol": llm.StringProp("Ticker symbol, e.g. AAPL"),
			}, "symbol"),
		},
	}
}
