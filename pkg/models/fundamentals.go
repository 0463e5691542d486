package models

// Fundamentals is a fixed set of optional metrics. A nil field was absent
// upstream and serializes as null.
type Fundamentals struct {
	Symbol          string   `json:"symbol"`
	MarketCap       *float64 `json:"market_cap"`
	TrailingPE      *float64 `json:"trailing_pe"`
	ForwardPE       *float64 `json:"forward_pe"`
	PEGRatio        *float64 `json:"peg_ratio"`
	PriceToBook     *float64 `json:"price_to_book"`
	TrailingEPS     *float64 `json:"trailing_eps"`
	ForwardEPS      *float64 `json:"forward_eps"`
	DividendYield   *float64 `json:"dividend_yield"`
	Beta            *float64 `json:"beta"`
	TotalRevenue    *float64 `json:"total_revenue"`
	ProfitMargin    *float64 `json:"profit_margin"`
	OperatingMargin *float64 `json:"operating_margin"`
	GrossMargin     *float64 `json:"gross_margin"`
	ReturnOnEquity  *float64 `json:"return_on_equity"`
	DebtToEquity    *float64 `json:"debt_to_equity"`
	CurrentRatio    *float64 `json:"current_ratio"`
}

// Fields returns pointers to every metric slot keyed by its JSON name,
// so decoders can fill them uniformly.
func (f *Fundamentals) Fields() map[string]**float64 {
	return map[string]**float64{
		"market_cap":       &f.MarketCap,
		"trailing_pe":      &f.TrailingPE,
		"forward_pe":       &f.ForwardPE,
		"peg_ratio":        &f.PEGRatio,
		"price_to_book":    &f.PriceToBook,
		"trailing_eps":     &f.TrailingEPS,
		"forward_eps":      &f.ForwardEPS,
		"dividend_yield":   &f.DividendYield,
		"beta":             &f.Beta,
		"total_revenue":    &f.TotalRevenue,
		"profit_margin":    &f.ProfitMargin,
		"operating_margin": &f.OperatingMargin,
		"gross_margin":     &f.GrossMargin,
		"return_on_equity": &f.ReturnOnEquity,
		"debt_to_equity":   &f.DebtToEquity,
		"current_ratio":    &f.CurrentRatio,
	}
}
