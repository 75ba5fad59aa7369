package pipeline

import (
	"context"
	"time"

	"github.com/gdownersigma/c21-commodities/database"
	"github.com/gdownersigma/c21-commodities/fmp"
	"github.com/gdownersigma/c21-commodities/logger"
	"github.com/gdownersigma/c21-commodities/metrics"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// State is the orchestrator's position in INIT -> EXTRACT -> TRANSFORM ->
// LOAD -> DONE, with FAILED reachable from any of them.
type State int

const (
	StateInit State = iota
	StateExtract
	StateTransform
	StateLoad
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateExtract:
		return "EXTRACT"
	case StateTransform:
		return "TRANSFORM"
	case StateLoad:
		return "LOAD"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// QuoteFetcher fetches current quotes, one result per requested symbol.
type QuoteFetcher interface {
	FetchQuotes(ctx context.Context, symbols []string) map[string]fmp.QuoteResult
}

// HistoricalFetcher fetches end-of-day bars for one symbol.
type HistoricalFetcher interface {
	FetchHistorical(ctx context.Context, symbol string) ([]fmp.Bar, error)
}

// CommodityDirectory resolves symbols to commodity identities.
type CommodityDirectory interface {
	SymbolIDMap(ctx context.Context) (map[string]int64, error)
}

// RunError is one enumerated failure in a run summary: which symbol or row,
// at which stage, and of which kind. No dropped symbol or row disappears
// silently.
type RunError struct {
	Stage  string
	Symbol string
	Kind   string
	Err    error
}

// Summary is the sole output external report and alert collaborators see.
type Summary struct {
	RunID            string
	State            State
	StartedAt        time.Time
	Duration         time.Duration
	RequestedSymbols []string
	SucceededSymbols []string
	RecordsLoaded    int
	RecordsSkipped   int
	RecordsFailed    int
	Errors           []RunError
}

// Pipeline sequences registry, client, transformer and loader for one
// logical run. There is no cross-invocation lock: overlapping runs are an
// accepted open gap, left to the external scheduler.
type Pipeline struct {
	registry  *SymbolRegistry
	fetcher   QuoteFetcher
	directory CommodityDirectory
	loader    *Loader
	now       func() time.Time
}

type Option func(*Pipeline)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

func New(registry *SymbolRegistry, fetcher QuoteFetcher, directory CommodityDirectory, loader *Loader, options ...Option) *Pipeline {
	p := &Pipeline{
		registry:  registry,
		fetcher:   fetcher,
		directory: directory,
		loader:    loader,
		now:       time.Now,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Run executes one extract/transform/load cycle and returns its summary.
// Only total provider outage, configuration failures and store connectivity
// failures end in FAILED; every per-symbol or per-row failure is enumerated
// in the summary and the run proceeds.
func (p *Pipeline) Run(ctx context.Context) *Summary {
	summary := &Summary{
		RunID:     uuid.New().String(),
		State:     StateInit,
		StartedAt: p.now(),
	}
	defer p.finish(summary)

	logger.Info("Run %s starting", summary.RunID)

	// EXTRACT
	symbols, err := p.registry.ResolveTrackedSymbols(ctx)
	if err != nil {
		p.fail(summary, RunError{Stage: "init", Kind: KindConfiguration, Err: err})
		return summary
	}
	summary.State = StateExtract
	summary.RequestedSymbols = symbols

	results := p.fetcher.FetchQuotes(ctx, symbols)

	quotes := make([]*fmp.Quote, 0, len(symbols))
	for _, symbol := range symbols {
		res := results[symbol]
		if res.Err != nil {
			summary.Errors = append(summary.Errors, RunError{
				Stage:  "extract",
				Symbol: symbol,
				Kind:   fetchErrorKind(res.Err),
				Err:    res.Err,
			})
			metrics.FetchFailed()
			continue
		}
		summary.SucceededSymbols = append(summary.SucceededSymbols, symbol)
		quotes = append(quotes, res.Quote)
		metrics.FetchSucceeded()
	}

	if len(quotes) == 0 {
		// Total provider outage.
		p.fail(summary, RunError{Stage: "extract", Kind: KindTransientFetch,
			Err: errors.New("every symbol fetch failed")})
		return summary
	}

	// TRANSFORM
	summary.State = StateTransform
	lookup, err := p.directory.SymbolIDMap(ctx)
	if err != nil {
		p.fail(summary, RunError{Stage: "transform", Kind: KindFatalPersistence,
			Err: &FatalPersistenceError{Err: err}})
		return summary
	}

	now := p.now()
	records := make([]database.MarketRecord, 0, len(quotes))
	for _, quote := range quotes {
		record, err := Transform(quote, lookup, now)
		if err != nil {
			summary.Errors = append(summary.Errors, RunError{
				Stage:  "transform",
				Symbol: quote.Symbol,
				Kind:   KindValidation,
				Err:    err,
			})
			continue
		}
		records = append(records, record)
	}

	// LOAD
	summary.State = StateLoad
	p.load(ctx, summary, records, lookup)
	if summary.State == StateFailed {
		return summary
	}

	summary.State = StateDone
	return summary
}

// load runs the loader and folds its result into the summary. Shared by the
// quote and historical paths.
func (p *Pipeline) load(ctx context.Context, summary *Summary, records []database.MarketRecord, lookup map[string]int64) {
	result, err := p.loader.LoadBatch(ctx, records)

	summary.RecordsLoaded = result.Inserted
	summary.RecordsSkipped = result.Skipped
	summary.RecordsFailed = result.Failed
	metrics.RecordsLoaded(result.Inserted)
	metrics.RecordsFailed(result.Failed)

	symbolByID := make(map[int64]string, len(lookup))
	for symbol, id := range lookup {
		symbolByID[id] = symbol
	}
	for _, rowErr := range result.RowErrors {
		summary.Errors = append(summary.Errors, RunError{
			Stage:  "load",
			Symbol: symbolByID[rowErr.CommodityID],
			Kind:   KindRowPersistence,
			Err:    rowErr.Err,
		})
	}

	if err != nil {
		p.fail(summary, RunError{Stage: "load", Kind: KindFatalPersistence, Err: err})
	}
}

func (p *Pipeline) fail(summary *Summary, runErr RunError) {
	summary.Errors = append(summary.Errors, runErr)
	summary.State = StateFailed
}

func (p *Pipeline) finish(summary *Summary) {
	summary.Duration = p.now().Sub(summary.StartedAt)
	metrics.ObserveRunDuration(summary.Duration)

	if summary.State == StateFailed {
		logger.Error("Run %s FAILED after %s: %d/%d symbols fetched, %d records loaded, %d errors",
			summary.RunID, summary.Duration, len(summary.SucceededSymbols),
			len(summary.RequestedSymbols), summary.RecordsLoaded, len(summary.Errors))
		return
	}
	logger.Info("Run %s DONE in %s: %d/%d symbols fetched, %d loaded, %d skipped, %d failed",
		summary.RunID, summary.Duration, len(summary.SucceededSymbols),
		len(summary.RequestedSymbols), summary.RecordsLoaded, summary.RecordsSkipped,
		summary.RecordsFailed)
}

func fetchErrorKind(err error) string {
	var permErr *fmp.PermanentError
	if errors.As(err, &permErr) {
		return KindPermanentFetch
	}
	return KindTransientFetch
}
