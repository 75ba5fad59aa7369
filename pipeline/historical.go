package pipeline

import (
	"context"

	"github.com/gdownersigma/c21-commodities/database"
	"github.com/gdownersigma/c21-commodities/logger"
	"github.com/gdownersigma/c21-commodities/metrics"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// RunHistorical backfills end-of-day records for every tracked symbol,
// keeping the trailing days window. It shares the loader, directory, rate
// limiter and error taxonomy with the quote path; symbols are fetched
// sequentially because the EOD endpoint returns a month of rows per call.
func (p *Pipeline) RunHistorical(ctx context.Context, fetcher HistoricalFetcher, days int) *Summary {
	summary := &Summary{
		RunID:     uuid.New().String(),
		State:     StateInit,
		StartedAt: p.now(),
	}
	defer p.finish(summary)

	if days <= 0 {
		days = 30
	}
	logger.Info("Historical run %s starting, window %d days", summary.RunID, days)

	symbols, err := p.registry.ResolveTrackedSymbols(ctx)
	if err != nil {
		p.fail(summary, RunError{Stage: "init", Kind: KindConfiguration, Err: err})
		return summary
	}
	summary.State = StateExtract
	summary.RequestedSymbols = symbols

	barsBySymbol := make(map[string][]database.MarketRecord, len(symbols))

	lookup, err := p.directory.SymbolIDMap(ctx)
	if err != nil {
		p.fail(summary, RunError{Stage: "extract", Kind: KindFatalPersistence,
			Err: &FatalPersistenceError{Err: err}})
		return summary
	}

	now := p.now()
	cutoff := now.AddDate(0, 0, -days)

	for _, symbol := range symbols {
		bars, err := fetcher.FetchHistorical(ctx, symbol)
		if err != nil {
			summary.Errors = append(summary.Errors, RunError{
				Stage:  "extract",
				Symbol: symbol,
				Kind:   fetchErrorKind(err),
				Err:    err,
			})
			metrics.FetchFailed()
			continue
		}
		summary.SucceededSymbols = append(summary.SucceededSymbols, symbol)
		metrics.FetchSucceeded()

		records := make([]database.MarketRecord, 0, len(bars))
		for i := range bars {
			record, err := TransformBar(&bars[i], symbol, lookup, now)
			if err != nil {
				summary.Errors = append(summary.Errors, RunError{
					Stage:  "transform",
					Symbol: symbol,
					Kind:   KindValidation,
					Err:    err,
				})
				continue
			}
			if record.RecordedAt.Before(cutoff) {
				continue
			}
			records = append(records, record)
		}
		barsBySymbol[symbol] = records
	}

	if len(summary.SucceededSymbols) == 0 {
		p.fail(summary, RunError{Stage: "extract", Kind: KindTransientFetch,
			Err: errors.New("every symbol fetch failed")})
		return summary
	}

	summary.State = StateLoad
	batch := make([]database.MarketRecord, 0, len(symbols)*days)
	for _, symbol := range symbols {
		batch = append(batch, barsBySymbol[symbol]...)
	}
	p.load(ctx, summary, batch, lookup)
	if summary.State == StateFailed {
		return summary
	}

	summary.State = StateDone
	return summary
}
