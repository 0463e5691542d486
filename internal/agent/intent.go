package agent

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/seenimoa/tickerproxy/internal/agent/prompts"
	"github.com/seenimoa/tickerproxy/internal/datasource"
	"github.com/seenimoa/tickerproxy/internal/llm"
	"github.com/seenimoa/tickerproxy/pkg/models"
)

var (
	// ErrUnknownTool is returned for a tool name outside the fixed set.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArgs is returned when a tool call's arguments are unusable.
	ErrInvalidArgs = errors.New("invalid tool arguments")
)

// Intent is one of TradeIntent, PortfolioIntent or NewsSummaryIntent.
type Intent interface {
	isIntent()
}

// TradeIntent asks the client to place a buy or sell order.
type TradeIntent struct {
	Kind     models.ActionKind // ActionBuy or ActionSell
	Symbol   string
	Quantity int
}

// PortfolioIntent asks the client to show its holdings.
type PortfolioIntent struct{}

// NewsSummaryIntent is executed server-side: headlines are fetched and
// summarized by a follow-up completion.
type NewsSummaryIntent struct {
	Symbol string
}

func (TradeIntent) isIntent()       {}
func (PortfolioIntent) isIntent()   {}
func (NewsSummaryIntent) isIntent() {}

// Order returns the client payload for the trade.
func (t TradeIntent) Order() models.TradeOrder {
	return models.TradeOrder{Symbol: t.Symbol, Quantity: t.Quantity}
}

// ParseToolCall maps a model tool call onto the closed intent set.
func ParseToolCall(call llm.ToolCall) (Intent, error) {
	switch call.Name {
	case prompts.ToolBuyStock:
		return parseTrade(call, models.ActionBuy)
	case prompts.ToolSellStock:
		return parseTrade(call, models.ActionSell)
	case prompts.ToolGetPortfolio:
		return PortfolioIntent{}, nil
	case prompts.ToolGetNewsSummary:
		var args struct {
			Symbol string `json:"symbol"`
		}
		if err := call.DecodeArgs(&args); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
		}
		sym, err := datasource.NormalizeSymbol(args.Symbol)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
		}
		return NewsSummaryIntent{Symbol: sym}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
	}
}

func parseTrade(call llm.ToolCall, kind models.ActionKind) (Intent, error) {
	var args struct {
		Symbol   string  `json:"symbol"`
		Quantity float64 `json:"quantity"`
	}
	if err := call.DecodeArgs(&args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	sym, err := datasource.NormalizeSymbol(strings.TrimPrefix(args.Symbol, "$"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	if args.Quantity < 1 || args.Quantity != math.Trunc(args.Quantity) || args.Quantity > math.MaxInt32 {
		return nil, fmt.Errorf("%w: quantity %v must be a positive whole number", ErrInvalidArgs, args.Quantity)
	}
	return TradeIntent{Kind: kind, Symbol: sym, Quantity: int(args.Quantity)}, nil
}
