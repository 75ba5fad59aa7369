package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/gdownersigma/c21-commodities/database"
	"github.com/gdownersigma/c21-commodities/fmp"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func constraintErr() error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
}

type stubFetcher struct {
	results map[string]fmp.QuoteResult
}

func (s *stubFetcher) FetchQuotes(ctx context.Context, symbols []string) map[string]fmp.QuoteResult {
	out := make(map[string]fmp.QuoteResult, len(symbols))
	for _, symbol := range symbols {
		out[symbol] = s.results[symbol]
	}
	return out
}

type stubDirectory struct {
	ids map[string]int64
	err error
}

func (s *stubDirectory) SymbolIDMap(ctx context.Context) (map[string]int64, error) {
	return s.ids, s.err
}

func quoteFor(symbol string, ts int64) *fmp.Quote {
	return &fmp.Quote{Symbol: symbol, Price: 100, Volume: 10, Timestamp: ts}
}

func newTestPipeline(fetcher QuoteFetcher, directory CommodityDirectory, writer RecordWriter, defaults []string) *Pipeline {
	registry := NewSymbolRegistry(defaults, &stubWatchlist{})
	loader := NewLoader(writer, 100)
	clock := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return New(registry, fetcher, directory, loader, WithClock(func() time.Time { return clock }))
}

func TestRunPartialFetchFailure(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{results: map[string]fmp.QuoteResult{
		"GCUSD": {Quote: quoteFor("GCUSD", 1753372205)},
		"SIUSD": {Err: &fmp.TransientError{Symbol: "SIUSD", Err: errors.New("timeout")}},
	}}
	directory := &stubDirectory{ids: map[string]int64{"GCUSD": 18, "SIUSD": 19}}
	writer := &fakeWriter{}

	summary := newTestPipeline(fetcher, directory, writer, []string{"GCUSD", "SIUSD"}).Run(context.Background())

	require.Equal(t, StateDone, summary.State)
	require.Equal(t, []string{"GCUSD", "SIUSD"}, summary.RequestedSymbols)
	require.Equal(t, []string{"GCUSD"}, summary.SucceededSymbols)
	require.Equal(t, 1, summary.RecordsLoaded)
	require.Len(t, summary.Errors, 1)
	require.Equal(t, "SIUSD", summary.Errors[0].Symbol)
	require.Equal(t, KindTransientFetch, summary.Errors[0].Kind)
}

func TestRunTotalProviderOutage(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{results: map[string]fmp.QuoteResult{
		"GCUSD": {Err: &fmp.TransientError{Symbol: "GCUSD", Err: errors.New("timeout")}},
		"SIUSD": {Err: &fmp.PermanentError{Symbol: "SIUSD", StatusCode: 401, Reason: "Invalid API Key"}},
	}}
	directory := &stubDirectory{ids: map[string]int64{"GCUSD": 18, "SIUSD": 19}}
	writer := &fakeWriter{}

	summary := newTestPipeline(fetcher, directory, writer, []string{"GCUSD", "SIUSD"}).Run(context.Background())

	require.Equal(t, StateFailed, summary.State)
	require.Empty(t, summary.SucceededSymbols)
	require.Zero(t, summary.RecordsLoaded)
	require.Empty(t, writer.chunks)
	// Per-symbol errors plus the outage itself, all enumerated.
	require.Len(t, summary.Errors, 3)
	require.Equal(t, KindPermanentFetch, summary.Errors[1].Kind)
}

func TestRunDropsUnknownSymbolRow(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{results: map[string]fmp.QuoteResult{
		"GCUSD": {Quote: quoteFor("GCUSD", 1753372205)},
		"XYZ":   {Quote: quoteFor("XYZ", 1753372205)},
	}}
	directory := &stubDirectory{ids: map[string]int64{"GCUSD": 18}}
	writer := &fakeWriter{}

	summary := newTestPipeline(fetcher, directory, writer, []string{"GCUSD", "XYZ"}).Run(context.Background())

	require.Equal(t, StateDone, summary.State)
	require.Equal(t, 1, summary.RecordsLoaded)
	require.Len(t, summary.Errors, 1)
	require.Equal(t, "XYZ", summary.Errors[0].Symbol)
	require.Equal(t, KindValidation, summary.Errors[0].Kind)
}

func TestRunStoreConnectivityFailure(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{results: map[string]fmp.QuoteResult{
		"GCUSD": {Quote: quoteFor("GCUSD", 1753372205)},
	}}
	directory := &stubDirectory{ids: map[string]int64{"GCUSD": 18}}
	writer := &fakeWriter{
		insertRecordsFn: func(records []database.MarketRecord) (int64, error) {
			return 0, errors.New("connection refused")
		},
	}

	summary := newTestPipeline(fetcher, directory, writer, []string{"GCUSD"}).Run(context.Background())

	require.Equal(t, StateFailed, summary.State)
	require.Zero(t, summary.RecordsLoaded)
	require.Equal(t, []string{"GCUSD"}, summary.SucceededSymbols)

	last := summary.Errors[len(summary.Errors)-1]
	require.Equal(t, KindFatalPersistence, last.Kind)
}

func TestRunEmptyDefaultsFailsAtInit(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{}
	directory := &stubDirectory{}
	writer := &fakeWriter{}

	summary := newTestPipeline(fetcher, directory, writer, nil).Run(context.Background())

	require.Equal(t, StateFailed, summary.State)
	require.Len(t, summary.Errors, 1)
	require.Equal(t, KindConfiguration, summary.Errors[0].Kind)
	require.Empty(t, writer.chunks)
}

func TestRunSymbolMapFailureIsFatal(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{results: map[string]fmp.QuoteResult{
		"GCUSD": {Quote: quoteFor("GCUSD", 1753372205)},
	}}
	directory := &stubDirectory{err: errors.New("connection refused")}
	writer := &fakeWriter{}

	summary := newTestPipeline(fetcher, directory, writer, []string{"GCUSD"}).Run(context.Background())

	require.Equal(t, StateFailed, summary.State)
	require.Empty(t, writer.chunks)
}

func TestRunRowFailuresAreEnumeratedButNotFatal(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{results: map[string]fmp.QuoteResult{
		"GCUSD": {Quote: quoteFor("GCUSD", 1753372205)},
		"SIUSD": {Quote: quoteFor("SIUSD", 1753372205)},
	}}
	directory := &stubDirectory{ids: map[string]int64{"GCUSD": 18, "SIUSD": 19}}

	writer := &fakeWriter{}
	writer.insertRecordsFn = func(records []database.MarketRecord) (int64, error) {
		return 0, constraintErr()
	}
	writer.insertRecordFn = func(rec *database.MarketRecord) (bool, error) {
		if rec.CommodityID == 19 {
			return false, constraintErr()
		}
		return true, nil
	}

	summary := newTestPipeline(fetcher, directory, writer, []string{"GCUSD", "SIUSD"}).Run(context.Background())

	require.Equal(t, StateDone, summary.State)
	require.Equal(t, 1, summary.RecordsLoaded)
	require.Equal(t, 1, summary.RecordsFailed)
	require.Len(t, summary.Errors, 1)
	require.Equal(t, "SIUSD", summary.Errors[0].Symbol)
	require.Equal(t, KindRowPersistence, summary.Errors[0].Kind)
}

type stubHistorical struct {
	bars map[string][]fmp.Bar
	errs map[string]error
}

func (s *stubHistorical) FetchHistorical(ctx context.Context, symbol string) ([]fmp.Bar, error) {
	if err := s.errs[symbol]; err != nil {
		return nil, err
	}
	return s.bars[symbol], nil
}

func TestRunHistoricalKeepsTrailingWindow(t *testing.T) {
	t.Parallel()

	fetcher := &stubHistorical{bars: map[string][]fmp.Bar{
		"GCUSD": {
			{Symbol: "GCUSD", Date: "2026-08-28", Close: 3375.3, Change: -22.3},
			{Symbol: "GCUSD", Date: "2026-06-01", Close: 3200.0}, // outside the window
		},
	}}
	directory := &stubDirectory{ids: map[string]int64{"GCUSD": 18}}
	writer := &fakeWriter{}

	p := newTestPipeline(&stubFetcher{}, directory, writer, []string{"GCUSD"})
	summary := p.RunHistorical(context.Background(), fetcher, 30)

	require.Equal(t, StateDone, summary.State)
	require.Equal(t, 1, summary.RecordsLoaded)
	require.Len(t, writer.chunks, 1)
	require.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), writer.chunks[0][0].RecordedAt)
}

func TestRunHistoricalAllSymbolsFailed(t *testing.T) {
	t.Parallel()

	fetcher := &stubHistorical{errs: map[string]error{
		"GCUSD": &fmp.TransientError{Symbol: "GCUSD", Err: errors.New("timeout")},
	}}
	directory := &stubDirectory{ids: map[string]int64{"GCUSD": 18}}
	writer := &fakeWriter{}

	p := newTestPipeline(&stubFetcher{}, directory, writer, []string{"GCUSD"})
	summary := p.RunHistorical(context.Background(), fetcher, 30)

	require.Equal(t, StateFailed, summary.State)
	require.Empty(t, writer.chunks)
}
