package types

// Snapshot is one fetched set of market metrics for a symbol, before
// persistence. Fundamentals are nil when the provider omits them.
type Snapshot struct {
	Price              float64  `json:"price"`
	PriceChange        float64  `json:"price_change"`
	PriceChangePercent float64  `json:"price_change_percent"`
	Volume             *int64   `json:"volume,omitempty"`
	AvgVolume10d       *int64   `json:"avg_volume_10d,omitempty"`
	MarketCap          *int64   `json:"market_cap,omitempty"`
	PERatio            *float64 `json:"pe_ratio,omitempty"`
	PBRatio            *float64 `json:"pb_ratio,omitempty"`
	EPS                *float64 `json:"eps,omitempty"`
	DividendYield      *float64 `json:"dividend_yield,omitempty"`
	Beta               *float64 `json:"beta,omitempty"`
	Week52High         *float64 `json:"week52_high,omitempty"`
	Week52Low          *float64 `json:"week52_low,omitempty"`

	// SectorName is the provider's sector label, used to classify
	// stocks that joined a universe without a sector assignment.
	SectorName string `json:"sector_name,omitempty"`
}

// SectorRow is the latest snapshot of one active, sector-assigned
// member stock, joined with its identity. Aggregation and outlier
// detection both operate on slices of these.
type SectorRow struct {
	StockID            int64    `gorm:"column:stock_id" json:"stock_id"`
	Symbol             string   `gorm:"column:symbol" json:"symbol"`
	Name               string   `gorm:"column:name" json:"name"`
	SectorID           int64    `gorm:"column:sector_id" json:"sector_id"`
	PriceChangePercent float64  `gorm:"column:price_change_percent" json:"price_change_percent"`
	PERatio            *float64 `gorm:"column:pe_ratio" json:"pe_ratio,omitempty"`
	PBRatio            *float64 `gorm:"column:pb_ratio" json:"pb_ratio,omitempty"`
	Volume             *int64   `gorm:"column:volume" json:"volume,omitempty"`
	AvgVolume10d       *int64   `gorm:"column:avg_volume_10d" json:"avg_volume_10d,omitempty"`
	MarketCap          *int64   `gorm:"column:market_cap" json:"market_cap,omitempty"`
	Beta               *float64 `gorm:"column:beta" json:"beta,omitempty"`
}

// SectorSummary holds aggregated statistics for one sector
type SectorSummary struct {
	SectorID         int64    `json:"sector_id"`
	Name             string   `json:"name"`
	Symbol           string   `json:"symbol"`
	AvgChangePercent float64  `json:"avg_change_percent"`
	AvgPERatio       *float64 `json:"avg_pe_ratio,omitempty"`
	TotalMarketCap   *int64   `json:"total_market_cap,omitempty"`
	StockCount       int      `json:"stock_count"`
	AvgBeta          *float64 `json:"avg_beta,omitempty"`
}

// ZScores holds the sector-relative z-scores of one stock. PriceZ is
// always present; the others are nil when the peer sample for that
// metric was insufficient.
type ZScores struct {
	PEZ     *float64 `json:"pe_z,omitempty"`
	PBZ     *float64 `json:"pb_z,omitempty"`
	PriceZ  float64  `json:"price_z"`
	VolumeZ *float64 `json:"volume_z,omitempty"`
}

// OutlierStock is one detected outlier in a sector's peer group
type OutlierStock struct {
	StockID           int64   `json:"stock_id"`
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	ZScores           ZScores `json:"z_scores"`
	CompositeScore    float64 `json:"composite_score"`
	OutlierType       string  `json:"outlier_type"`
	SignificanceLevel string  `json:"significance_level"`
}

// SectorOutliers groups detected outliers by sector
type SectorOutliers struct {
	SectorID     int64          `json:"sector_id"`
	SectorName   string         `json:"sector_name"`
	SectorSymbol string         `json:"sector_symbol"`
	OutlierCount int            `json:"outlier_count"`
	Outliers     []OutlierStock `json:"outliers"`
}

// DiscoveryResult summarizes a universe membership reconciliation
type DiscoveryResult struct {
	StocksDiscovered int      `json:"stocks_discovered"`
	StocksUpdated    int      `json:"stocks_updated"`
	StocksUnchanged  int      `json:"stocks_unchanged"`
	StocksRemoved    int      `json:"stocks_removed"`
	Errors           []string `json:"errors,omitempty"`
}

// RefreshResult is the terminal outcome of a successful refresh
type RefreshResult struct {
	Sectors   []SectorSummary  `json:"sectors"`
	Discovery *DiscoveryResult `json:"discovery,omitempty"`
	Fetched   int              `json:"fetched"`
	Failed    int              `json:"failed"`
}

// Refresh progress phases
const (
	PhaseDiscovery = "discovery"
	PhaseFetching  = "fetching"
)

// ProgressEvent is one ordered refresh progress notification. Within a
// phase, Current never decreases; discovery events precede fetching
// events.
type ProgressEvent struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Phase   string `json:"phase"`
}
