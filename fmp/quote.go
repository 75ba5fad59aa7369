package fmp

// Quote is the validated shape of one /quote response item. Vendor fields
// absent or null in the payload decode to zero values; fields the schema
// does not keep (name, exchange, marketCap) are carried here only so the
// transformer can drop them explicitly.
type Quote struct {
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	Price            float64 `json:"price"`
	ChangePercentage float64 `json:"changePercentage"`
	Change           float64 `json:"change"`
	Volume           int64   `json:"volume"`
	DayLow           float64 `json:"dayLow"`
	DayHigh          float64 `json:"dayHigh"`
	YearHigh         float64 `json:"yearHigh"`
	YearLow          float64 `json:"yearLow"`
	MarketCap        float64 `json:"marketCap"`
	PriceAvg50       float64 `json:"priceAvg50"`
	PriceAvg200      float64 `json:"priceAvg200"`
	Exchange         string  `json:"exchange"`
	Open             float64 `json:"open"`
	PreviousClose    float64 `json:"previousClose"`
	Timestamp        int64   `json:"timestamp"` // seconds since epoch
}

// Bar is one end-of-day row from /historical-price-eod/full. The vendor
// vwap field is decoded and discarded by the transformer.
type Bar struct {
	Symbol           string  `json:"symbol"`
	Date             string  `json:"date"` // 2006-01-02
	Open             float64 `json:"open"`
	High             float64 `json:"high"`
	Low              float64 `json:"low"`
	Close            float64 `json:"close"`
	Volume           int64   `json:"volume"`
	Change           float64 `json:"change"`
	ChangePercent    float64 `json:"changePercent"`
	VWAP             float64 `json:"vwap"`
}

// QuoteResult is the per-symbol outcome of a fetch: either a quote or the
// error that exhausted the symbol.
type QuoteResult struct {
	Quote *Quote
	Err   error
}
