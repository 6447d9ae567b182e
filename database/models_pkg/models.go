package models

import "time"

// Universe types a stock can belong to. Membership is time-bounded:
// rows are closed by setting DateRemoved, never deleted.
const (
	UniversePrimary   = "primary"
	UniverseSecondary = "secondary"
)

// Sector is one entry of the fixed GICS taxonomy. Sectors are seeded
// once at schema initialization and never modified afterwards.
type Sector struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name   string `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Symbol string `gorm:"size:8;uniqueIndex;not null" json:"symbol"`
}

// TableName specifies the table name for Sector
func (Sector) TableName() string {
	return "sectors"
}

// Stock is a tracked equity. SectorID is nil for unclassified stocks;
// those are addressable but excluded from aggregation and detection.
type Stock struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol   string `gorm:"size:12;uniqueIndex;not null" json:"symbol"`
	Name     string `gorm:"size:128;not null" json:"name"`
	SectorID *int64 `gorm:"index" json:"sector_id,omitempty"`
}

// TableName specifies the table name for Stock
func (Stock) TableName() string {
	return "stocks"
}

// UniverseMembership records a stock's membership in a named universe.
// At most one active row (DateRemoved IS NULL) may exist per
// (stock, universe type) pair.
type UniverseMembership struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	StockID      int64      `gorm:"index:idx_membership_stock_type;not null" json:"stock_id"`
	UniverseType string     `gorm:"size:16;index:idx_membership_stock_type;not null" json:"universe_type"`
	DateAdded    time.Time  `gorm:"not null" json:"date_added"`
	DateRemoved  *time.Time `json:"date_removed,omitempty"`
}

// TableName specifies the table name for UniverseMembership
func (UniverseMembership) TableName() string {
	return "stock_universe_membership"
}

// MarketDataSnapshot is one timestamped record of a stock's market
// metrics. The table is append-only; "latest" means max timestamp per
// stock. Price fields are always present; fundamentals are nullable
// because the provider frequently omits them (ETFs, fresh listings,
// loss-making companies), and nil must stay distinct from zero.
type MarketDataSnapshot struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StockID            int64     `gorm:"index:idx_snapshots_stock_ts;not null" json:"stock_id"`
	Timestamp          time.Time `gorm:"index:idx_snapshots_stock_ts;not null" json:"timestamp"`
	Price              float64   `gorm:"type:decimal(15,4);not null" json:"price"`
	PriceChange        float64   `gorm:"type:decimal(15,4);not null" json:"price_change"`
	PriceChangePercent float64   `gorm:"type:decimal(10,4);not null" json:"price_change_percent"`
	Volume             *int64    `json:"volume,omitempty"`
	AvgVolume10d       *int64    `gorm:"column:avg_volume_10d" json:"avg_volume_10d,omitempty"`
	MarketCap          *int64    `json:"market_cap,omitempty"`
	PERatio            *float64  `gorm:"column:pe_ratio;type:decimal(12,4)" json:"pe_ratio,omitempty"`
	PBRatio            *float64  `gorm:"column:pb_ratio;type:decimal(12,4)" json:"pb_ratio,omitempty"`
	EPS                *float64  `gorm:"column:eps;type:decimal(12,4)" json:"eps,omitempty"`
	DividendYield      *float64  `gorm:"type:decimal(10,6)" json:"dividend_yield,omitempty"`
	Beta               *float64  `gorm:"type:decimal(10,4)" json:"beta,omitempty"`
	Week52High         *float64  `gorm:"column:week52_high;type:decimal(15,4)" json:"week52_high,omitempty"`
	Week52Low          *float64  `gorm:"column:week52_low;type:decimal(15,4)" json:"week52_low,omitempty"`
}

// TableName specifies the table name for MarketDataSnapshot
func (MarketDataSnapshot) TableName() string {
	return "market_data_snapshots"
}

// OutlierDetection is one stored detection result per (stock, date).
// Re-running detection for the same date overwrites the row.
//
// PriceZ is the only mandatory z-score: a stock is never classified
// without a price signal. The other z-scores are nil when the sector
// peer sample for that metric was insufficient (fewer than 2 peers or
// zero variance) — nil, never a fabricated value.
type OutlierDetection struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StockID           int64     `gorm:"uniqueIndex:idx_detections_stock_date;not null" json:"stock_id"`
	SectorID          int64     `gorm:"index:idx_detections_sector_date;not null" json:"sector_id"`
	DetectionDate     time.Time `gorm:"type:date;uniqueIndex:idx_detections_stock_date;index:idx_detections_sector_date;not null" json:"detection_date"`
	PEZ               *float64  `gorm:"column:pe_z;type:decimal(10,4)" json:"pe_z,omitempty"`
	PBZ               *float64  `gorm:"column:pb_z;type:decimal(10,4)" json:"pb_z,omitempty"`
	PriceZ            float64   `gorm:"column:price_z;type:decimal(10,4);not null" json:"price_z"`
	VolumeZ           *float64  `gorm:"column:volume_z;type:decimal(10,4)" json:"volume_z,omitempty"`
	CompositeScore    float64   `gorm:"type:decimal(10,4);not null" json:"composite_score"`
	OutlierType       string    `gorm:"size:16;not null" json:"outlier_type"`
	SignificanceLevel string    `gorm:"size:16;not null" json:"significance_level"`
	ThresholdUsed     float64   `gorm:"type:decimal(6,2);not null" json:"threshold_used"`
	UniverseType      string    `gorm:"size:16;not null" json:"universe_type"`
}

// TableName specifies the table name for OutlierDetection
func (OutlierDetection) TableName() string {
	return "outlier_detections"
}
