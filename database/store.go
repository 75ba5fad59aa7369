package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the narrow persistence surface the pipeline works against. Writes
// go through a circuit breaker so a dead database trips fast instead of
// timing out chunk after chunk.
type Store struct {
	db      *gorm.DB
	breaker *gobreaker.CircuitBreaker
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db: db,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "market-records",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				// Row-level constraint violations are the caller's problem,
				// not a sign the database is down.
				return err == nil || IsRowViolation(err)
			},
		}),
	}
}

// InsertRecords writes one chunk of market records in a single transaction.
// Rows colliding with an existing (commodity_id, recorded_at) pair are left
// untouched; the returned count is the number of rows actually inserted.
func (s *Store) InsertRecords(ctx context.Context, records []MarketRecord) (int64, error) {
	var inserted int64
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "commodity_id"}, {Name: "recorded_at"}},
				DoNothing: true,
			}).Create(&records)
			if res.Error != nil {
				return res.Error
			}
			inserted = res.RowsAffected
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// InsertRecord writes a single record, used as the row-by-row fallback when
// a chunk fails on a constraint. Returns (false, nil) when the row collided
// with an existing (commodity_id, recorded_at) pair.
func (s *Store) InsertRecord(ctx context.Context, record *MarketRecord) (bool, error) {
	var inserted bool
	_, err := s.breaker.Execute(func() (interface{}, error) {
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "commodity_id"}, {Name: "recorded_at"}},
			DoNothing: true,
		}).Create(record)
		if res.Error != nil {
			return nil, res.Error
		}
		inserted = res.RowsAffected > 0
		return nil, nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// SymbolIDMap returns the symbol -> commodity_id mapping for the whole
// commodities table.
func (s *Store) SymbolIDMap(ctx context.Context) (map[string]int64, error) {
	var commodities []Commodity
	if err := s.db.WithContext(ctx).Select("commodity_id", "symbol").Find(&commodities).Error; err != nil {
		return nil, errors.Wrap(err, "SymbolIDMap")
	}

	m := make(map[string]int64, len(commodities))
	for _, c := range commodities {
		m[c.Symbol] = c.CommodityID
	}
	return m, nil
}

// WatchedSymbols returns the distinct symbols present in any user's
// watch-list.
func (s *Store) WatchedSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := s.db.WithContext(ctx).
		Model(&Commodity{}).
		Distinct("symbol").
		Joins("JOIN user_commodities uc ON uc.commodity_id = commodities.commodity_id").
		Order("symbol").
		Pluck("symbol", &symbols).Error
	if err != nil {
		return nil, errors.Wrap(err, "WatchedSymbols")
	}
	return symbols, nil
}

// WatchlistEntry is one row of the watch-list view consumed by the report
// and alert collaborators: every commodity, with the user's targets when the
// user follows it and zeros otherwise.
type WatchlistEntry struct {
	CommodityID   int64   `gorm:"column:commodity_id"`
	Symbol        string  `gorm:"column:symbol"`
	CommodityName string  `gorm:"column:commodity_name"`
	Currency      string  `gorm:"column:currency"`
	Tracked       bool    `gorm:"column:tracked"`
	BuyPrice      float64 `gorm:"column:buy_price"`
	SellPrice     float64 `gorm:"column:sell_price"`
}

func (s *Store) WatchlistForUser(ctx context.Context, userID int64) ([]WatchlistEntry, error) {
	var rows []WatchlistEntry
	err := s.db.WithContext(ctx).Raw(`
		SELECT c.commodity_id,
		       c.symbol,
		       c.commodity_name,
		       c.currency,
		       uc.user_id IS NOT NULL AS tracked,
		       COALESCE(uc.buy_price, 0)  AS buy_price,
		       COALESCE(uc.sell_price, 0) AS sell_price
		FROM commodities c
		LEFT JOIN user_commodities uc
		       ON uc.commodity_id = c.commodity_id AND uc.user_id = ?
		ORDER BY c.symbol`, userID).Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "WatchlistForUser")
	}
	return rows, nil
}
