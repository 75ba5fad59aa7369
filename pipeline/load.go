package pipeline

import (
	"context"
	"time"

	"github.com/gdownersigma/c21-commodities/database"
	"github.com/gdownersigma/c21-commodities/logger"
)

// RecordWriter is the persistence surface the loader writes through.
type RecordWriter interface {
	// InsertRecords writes one chunk in a single transaction, skipping rows
	// that collide with an existing (commodity_id, recorded_at) pair, and
	// returns the number of rows actually inserted.
	InsertRecords(ctx context.Context, records []database.MarketRecord) (int64, error)
	// InsertRecord writes a single row; false means the row collided.
	InsertRecord(ctx context.Context, record *database.MarketRecord) (bool, error)
}

// RowError is a single row the store rejected on a constraint.
type RowError struct {
	CommodityID int64
	RecordedAt  time.Time
	Err         error
}

type LoadResult struct {
	Inserted  int
	Skipped   int
	Failed    int
	RowErrors []RowError
}

// Loader persists normalized records append-only in short, independent
// chunk transactions. Committed chunks stay committed if a later chunk
// fails.
type Loader struct {
	writer    RecordWriter
	chunkSize int
}

func NewLoader(writer RecordWriter, chunkSize int) *Loader {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	return &Loader{writer: writer, chunkSize: chunkSize}
}

// LoadBatch deduplicates the batch on (commodity_id, recorded_at) keeping
// the first occurrence, then persists it chunk by chunk. A chunk failing on
// a row-level constraint is retried once row-by-row so one bad row cannot
// discard its neighbours; a connectivity-class failure aborts with a
// FatalPersistenceError. The returned result is valid even on error and
// counts what was committed before the abort.
func (l *Loader) LoadBatch(ctx context.Context, records []database.MarketRecord) (LoadResult, error) {
	var result LoadResult

	deduped := dedupeFirstWins(records, &result)

	for start := 0; start < len(deduped); start += l.chunkSize {
		end := start + l.chunkSize
		if end > len(deduped) {
			end = len(deduped)
		}
		chunk := deduped[start:end]

		inserted, err := l.writer.InsertRecords(ctx, chunk)
		if err == nil {
			result.Inserted += int(inserted)
			result.Skipped += len(chunk) - int(inserted)
			continue
		}

		if !database.IsRowViolation(err) {
			return result, &FatalPersistenceError{Err: err}
		}

		// One row poisoned the chunk. Retry at row granularity so the rest
		// of the chunk still lands.
		logger.Warn("Chunk insert failed on a constraint, retrying row-by-row: %s", err)
		if err := l.loadRowByRow(ctx, chunk, &result); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (l *Loader) loadRowByRow(ctx context.Context, chunk []database.MarketRecord, result *LoadResult) error {
	for i := range chunk {
		record := chunk[i]
		inserted, err := l.writer.InsertRecord(ctx, &record)
		switch {
		case err == nil && inserted:
			result.Inserted++
		case err == nil:
			result.Skipped++
		case database.IsRowViolation(err):
			result.Failed++
			result.RowErrors = append(result.RowErrors, RowError{
				CommodityID: record.CommodityID,
				RecordedAt:  record.RecordedAt,
				Err:         err,
			})
		default:
			return &FatalPersistenceError{Err: err}
		}
	}
	return nil
}

type recordKey struct {
	commodityID int64
	recordedAt  int64
}

// dedupeFirstWins collapses duplicate (commodity_id, recorded_at) pairs
// inside one batch, keeping the first occurrence in input order. Collapsed
// rows count as skipped.
func dedupeFirstWins(records []database.MarketRecord, result *LoadResult) []database.MarketRecord {
	seen := make(map[recordKey]struct{}, len(records))
	out := make([]database.MarketRecord, 0, len(records))
	for _, r := range records {
		key := recordKey{commodityID: r.CommodityID, recordedAt: r.RecordedAt.Unix()}
		if _, dup := seen[key]; dup {
			result.Skipped++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
