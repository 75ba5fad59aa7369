package database

import (
	"context"
	"fmt"

	"github.com/gdownersigma/c21-commodities/config"
	"github.com/gdownersigma/c21-commodities/logger"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// List entities to auto-migrate
var entities = []interface{}{
	User{},
	Commodity{},
	UserCommodity{},
	MarketRecord{},
}

// ConnectAndInitialize connects to Postgres, migrates the schema and makes
// sure every configured default symbol has a commodity row to attach market
// records to.
func ConnectAndInitialize(ctx context.Context, cfg *config.DBConfig, defaultSymbols []string) (*gorm.DB, error) {
	db, err := connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ConnectAndInitialize: Connect: %w", err)
	}

	// Initialize - auto migrate
	err = db.AutoMigrate(entities...)
	if err != nil {
		return nil, errors.Wrap(err, "ConnectAndInitialize: AutoMigrate")
	}

	if err := seedCommodities(db, defaultSymbols); err != nil {
		return nil, errors.Wrap(err, "ConnectAndInitialize: seedCommodities")
	}

	return db, nil
}

func Connect(ctx context.Context, cfg *config.DBConfig) (*gorm.DB, error) {
	db, err := connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("Connect: %w", err)
	}

	return db, nil
}

// seedCommodities creates a bare commodity row for any configured default
// symbol that is not in the DB yet, so a fresh database can ingest without a
// separate seed step. Display names and contract months are left for admin
// tooling to fill in.
func seedCommodities(db *gorm.DB, symbols []string) error {
	for _, symbol := range symbols {
		var count int64
		if err := db.Model(&Commodity{}).Where("symbol = ?", symbol).Count(&count).Error; err != nil {
			return errors.Wrap(err, "count commodity")
		}
		if count > 0 {
			continue
		}

		c := &Commodity{Symbol: symbol, CommodityName: symbol, Currency: "USD"}
		if err := db.Create(c).Error; err != nil {
			return errors.Wrapf(err, "create commodity %s", symbol)
		}
		logger.Info("Seeded commodity %s (id %d)", symbol, c.CommodityID)
	}

	return nil
}

func connect(ctx context.Context, cfg *config.DBConfig) (*gorm.DB, error) {
	// Connect to the database
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable", cfg.Host, cfg.Username, cfg.Password, cfg.Database, cfg.Port)
	if cfg.Schema != "" {
		dsn += " search_path=" + cfg.Schema
	}

	gormLogLevel := getGormLogLevel(cfg)
	gormConfig := gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: tablePrefix(cfg),
		},
		Logger: gormlogger.Default.LogMode(gormLogLevel),
	}

	db, err := gorm.Open(postgres.Open(dsn), &gormConfig)
	if err != nil {
		return nil, err
	}

	return db.WithContext(ctx), nil
}

func tablePrefix(cfg *config.DBConfig) string {
	if cfg.Schema == "" {
		return ""
	}
	return cfg.Schema + "."
}

func getGormLogLevel(cfg *config.DBConfig) gormlogger.LogLevel {
	if cfg.LogQueries {
		return gormlogger.Info
	}

	return gormlogger.Silent
}
