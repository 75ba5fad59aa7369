package database

import "time"

// User is a registered account. Rows are created by the dashboard, never by
// the pipeline.
type User struct {
	UserID   int64  `gorm:"column:user_id;primaryKey"`
	UserName string `gorm:"column:user_name;type:varchar(100);not null"`
	Email    string `gorm:"column:email;type:varchar(255);not null;uniqueIndex"`
	Password []byte `gorm:"column:password;not null"`
}

// Commodity is a tradable instrument tracked by ticker symbol. Seeded once,
// rarely mutated, referenced by foreign key everywhere else.
type Commodity struct {
	CommodityID    int64   `gorm:"column:commodity_id;primaryKey"`
	Symbol         string  `gorm:"column:symbol;type:varchar(20);not null;uniqueIndex"`
	CommodityName  string  `gorm:"column:commodity_name;type:varchar(100);not null"`
	CommodityMonth *string `gorm:"column:commodity_month;type:varchar(20)"` // contract/trade month, nullable
	Currency       string  `gorm:"column:currency;type:char(3);not null"`
}

// UserCommodity is one watch-list entry: a user following a commodity with
// optional buy/sell targets. Cascades away with its user or commodity.
type UserCommodity struct {
	UserCommodityID int64      `gorm:"column:user_commodity_id;primaryKey"`
	UserID          int64      `gorm:"column:user_id;not null;index"`
	CommodityID     int64      `gorm:"column:commodity_id;not null;index"`
	BuyPrice        *float64   `gorm:"column:buy_price"`
	SellPrice       *float64   `gorm:"column:sell_price"`
	AlertedAt       *time.Time `gorm:"column:alerted_at"`

	User      User      `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE"`
	Commodity Commodity `gorm:"foreignKey:CommodityID;references:CommodityID;constraint:OnDelete:CASCADE"`
}

// MarketRecord is one point-in-time snapshot for a commodity. Append-only:
// written once per (commodity, recorded_at), never updated, deleted only by
// cascading commodity deletion.
type MarketRecord struct {
	MarketRecordID   int64     `gorm:"column:market_record_id;primaryKey"`
	CommodityID      int64     `gorm:"column:commodity_id;not null;uniqueIndex:ux_market_records_commodity_recorded"`
	RecordedAt       time.Time `gorm:"column:recorded_at;not null;uniqueIndex:ux_market_records_commodity_recorded"`
	Price            float64   `gorm:"column:price;not null"`
	Volume           int64     `gorm:"column:volume;not null"`
	DayHigh          float64   `gorm:"column:day_high;not null"`
	DayLow           float64   `gorm:"column:day_low;not null"`
	Change           float64   `gorm:"column:change;not null"`
	ChangePercentage float64   `gorm:"column:change_percentage;not null"`
	OpenPrice        float64   `gorm:"column:open_price;not null"`
	PreviousClose    float64   `gorm:"column:previous_close;not null"`
	PriceAvg50       float64   `gorm:"column:price_avg_50;not null"`
	PriceAvg200      float64   `gorm:"column:price_avg_200;not null"`
	YearHigh         float64   `gorm:"column:year_high;not null"`
	YearLow          float64   `gorm:"column:year_low;not null"`
	IngestedAt       time.Time `gorm:"column:ingested_at;not null"`

	Commodity Commodity `gorm:"foreignKey:CommodityID;references:CommodityID;constraint:OnDelete:CASCADE"`
}
