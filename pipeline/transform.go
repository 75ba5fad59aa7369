package pipeline

import (
	"time"

	"github.com/gdownersigma/c21-commodities/database"
	"github.com/gdownersigma/c21-commodities/fmp"
)

// Transform maps one raw vendor quote onto the market_records schema. It is
// pure and deterministic: two calls with the same quote, lookup and clock
// produce field-equal records. Vendor-only fields (name, exchange, market
// cap) are dropped; the vendor epoch timestamp becomes recorded_at at
// whole-second precision; now becomes ingested_at, also truncated to whole
// seconds.
func Transform(raw *fmp.Quote, lookup map[string]int64, now time.Time) (database.MarketRecord, error) {
	if raw.Timestamp <= 0 {
		return database.MarketRecord{}, &ValidationError{Symbol: raw.Symbol, Reason: "missing observation timestamp"}
	}

	commodityID, ok := lookup[raw.Symbol]
	if !ok {
		return database.MarketRecord{}, &ValidationError{Symbol: raw.Symbol, Reason: "symbol not registered as a commodity"}
	}

	return database.MarketRecord{
		CommodityID:      commodityID,
		RecordedAt:       time.Unix(raw.Timestamp, 0).UTC(),
		Price:            raw.Price,
		Volume:           raw.Volume,
		DayHigh:          raw.DayHigh,
		DayLow:           raw.DayLow,
		Change:           raw.Change,
		ChangePercentage: raw.ChangePercentage,
		OpenPrice:        raw.Open,
		PreviousClose:    raw.PreviousClose,
		PriceAvg50:       raw.PriceAvg50,
		PriceAvg200:      raw.PriceAvg200,
		YearHigh:         raw.YearHigh,
		YearLow:          raw.YearLow,
		IngestedAt:       now.UTC().Truncate(time.Second),
	}, nil
}

// TransformBar maps one end-of-day bar onto the same schema. The close
// becomes the price, the vendor vwap is dropped, and fields the EOD payload
// does not carry (moving averages, year range) are written as zero so every
// non-nullable column is populated.
func TransformBar(bar *fmp.Bar, symbol string, lookup map[string]int64, now time.Time) (database.MarketRecord, error) {
	recordedAt, err := time.Parse("2006-01-02", bar.Date)
	if err != nil {
		return database.MarketRecord{}, &ValidationError{Symbol: symbol, Reason: "unparseable bar date " + bar.Date}
	}

	commodityID, ok := lookup[symbol]
	if !ok {
		return database.MarketRecord{}, &ValidationError{Symbol: symbol, Reason: "symbol not registered as a commodity"}
	}

	return database.MarketRecord{
		CommodityID:      commodityID,
		RecordedAt:       recordedAt.UTC(),
		Price:            bar.Close,
		Volume:           bar.Volume,
		DayHigh:          bar.High,
		DayLow:           bar.Low,
		Change:           bar.Change,
		ChangePercentage: bar.ChangePercent,
		OpenPrice:        bar.Open,
		PreviousClose:    bar.Close - bar.Change,
		IngestedAt:       now.UTC().Truncate(time.Second),
	}, nil
}
