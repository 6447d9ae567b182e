// Package snapshots implements the append-only market data store.
// Snapshots accumulate over time; queries always resolve "latest" as
// the max-timestamp row per stock.
package snapshots

import (
	"time"

	"gorm.io/gorm"

	"sectorview/database"
	models "sectorview/database/models_pkg"
	"sectorview/database/types"
)

// Repository handles market data snapshot storage
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new snapshot store repository
func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db.DB()}
}

// SaveSnapshot appends one snapshot for a stock. Each snapshot is a
// single INSERT, so concurrent readers never observe a torn row.
func (r *Repository) SaveSnapshot(stockID int64, ts time.Time, snap *types.Snapshot) error {
	row := models.MarketDataSnapshot{
		StockID:            stockID,
		Timestamp:          ts,
		Price:              snap.Price,
		PriceChange:        snap.PriceChange,
		PriceChangePercent: snap.PriceChangePercent,
		Volume:             snap.Volume,
		AvgVolume10d:       snap.AvgVolume10d,
		MarketCap:          snap.MarketCap,
		PERatio:            snap.PERatio,
		PBRatio:            snap.PBRatio,
		EPS:                snap.EPS,
		DividendYield:      snap.DividendYield,
		Beta:               snap.Beta,
		Week52High:         snap.Week52High,
		Week52Low:          snap.Week52Low,
	}
	if err := r.db.Create(&row).Error; err != nil {
		return database.WrapDBError("SaveSnapshot", err)
	}
	return nil
}

// latestRowsQuery joins active sector-assigned members of a universe
// with their latest snapshot. DISTINCT ON with a timestamp sort keeps
// exactly the newest row per stock.
const latestRowsQuery = `
SELECT DISTINCT ON (s.id)
	s.id AS stock_id,
	s.symbol,
	s.name,
	s.sector_id,
	md.price_change_percent,
	md.pe_ratio,
	md.pb_ratio,
	md.volume,
	md.avg_volume_10d,
	md.market_cap,
	md.beta
FROM stocks s
JOIN stock_universe_membership su
	ON su.stock_id = s.id
	AND su.universe_type = ?
	AND su.date_removed IS NULL
JOIN market_data_snapshots md ON md.stock_id = s.id
WHERE s.sector_id IS NOT NULL`

// LatestForUniverse returns the latest snapshot row of every active,
// sector-assigned member of the universe. Stocks without any snapshot
// are absent.
func (r *Repository) LatestForUniverse(universeType string) ([]types.SectorRow, error) {
	var rows []types.SectorRow
	err := r.db.Raw(latestRowsQuery+`
ORDER BY s.id, md.timestamp DESC`, universeType).Scan(&rows).Error
	if err != nil {
		return nil, database.WrapDBError("LatestForUniverse", err)
	}
	return rows, nil
}

// LatestBySector returns the latest snapshot row of every active
// member of one sector in the universe.
func (r *Repository) LatestBySector(sectorID int64, universeType string) ([]types.SectorRow, error) {
	var rows []types.SectorRow
	err := r.db.Raw(latestRowsQuery+`
	AND s.sector_id = ?
ORDER BY s.id, md.timestamp DESC`, universeType, sectorID).Scan(&rows).Error
	if err != nil {
		return nil, database.WrapDBError("LatestBySector", err)
	}
	return rows, nil
}

// LatestSnapshot returns the newest snapshot stored for a stock, or
// nil when none exists.
func (r *Repository) LatestSnapshot(stockID int64) (*models.MarketDataSnapshot, error) {
	var snap models.MarketDataSnapshot
	err := r.db.Where("stock_id = ?", stockID).Order("timestamp DESC").First(&snap).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, database.WrapDBError("LatestSnapshot", err)
	}
	return &snap, nil
}
