// Package universe implements the universe registry: the sector
// taxonomy, stock identity, and time-bounded membership of stocks in
// named universes.
package universe

import (
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"sectorview/database"
	models "sectorview/database/models_pkg"
)

// gicsSectors is the fixed 11-sector GICS taxonomy, seeded once.
// Symbols follow the sector SPDR convention.
var gicsSectors = []models.Sector{
	{Name: "Communication Services", Symbol: "XLC"},
	{Name: "Consumer Discretionary", Symbol: "XLY"},
	{Name: "Consumer Staples", Symbol: "XLP"},
	{Name: "Energy", Symbol: "XLE"},
	{Name: "Financials", Symbol: "XLF"},
	{Name: "Health Care", Symbol: "XLV"},
	{Name: "Industrials", Symbol: "XLI"},
	{Name: "Materials", Symbol: "XLB"},
	{Name: "Real Estate", Symbol: "XLRE"},
	{Name: "Technology", Symbol: "XLK"},
	{Name: "Utilities", Symbol: "XLU"},
}

// Repository handles registry storage. Membership mutations are
// serialized per stock so the "at most one active row per
// (stock, universe)" invariant holds under concurrent callers.
type Repository struct {
	db    *gorm.DB
	locks stockLocks
}

// NewRepository creates a new universe registry repository
func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db.DB()}
}

// InitSchema migrates the registry, snapshot, and detection tables and
// seeds the sector taxonomy.
func (r *Repository) InitSchema() error {
	if err := r.db.AutoMigrate(
		&models.Sector{},
		&models.Stock{},
		&models.UniverseMembership{},
		&models.MarketDataSnapshot{},
		&models.OutlierDetection{},
	); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	var count int64
	if err := r.db.Model(&models.Sector{}).Count(&count).Error; err != nil {
		return database.WrapDBError("InitSchema", err)
	}
	if count == 0 {
		if err := r.db.Create(&gicsSectors).Error; err != nil {
			return database.WrapDBError("InitSchema", err)
		}
		log.Printf("✅ Seeded %d GICS sectors", len(gicsSectors))
	}

	return nil
}

// ListSectors returns the full sector taxonomy ordered by name.
func (r *Repository) ListSectors() ([]models.Sector, error) {
	var sectors []models.Sector
	if err := r.db.Order("name").Find(&sectors).Error; err != nil {
		return nil, database.WrapDBError("ListSectors", err)
	}
	return sectors, nil
}

// SectorBySymbol resolves one sector by its symbol.
func (r *Repository) SectorBySymbol(symbol string) (*models.Sector, error) {
	var sector models.Sector
	err := r.db.Where("symbol = ?", symbol).First(&sector).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, database.NewNotFoundError("sector", symbol)
		}
		return nil, database.WrapDBError("SectorBySymbol", err)
	}
	return &sector, nil
}

// SectorMapByName returns a name → id lookup for discovery to resolve
// GICS labels. Rebuilt fresh per call.
func (r *Repository) SectorMapByName() (map[string]int64, error) {
	sectors, err := r.ListSectors()
	if err != nil {
		return nil, err
	}
	m := make(map[string]int64, len(sectors))
	for _, s := range sectors {
		m[s.Name] = s.ID
	}
	return m, nil
}

// GetStockBySymbol resolves one stock by its ticker symbol.
func (r *Repository) GetStockBySymbol(symbol string) (*models.Stock, error) {
	var stock models.Stock
	err := r.db.Where("symbol = ?", symbol).First(&stock).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, database.NewNotFoundError("stock", symbol)
		}
		return nil, database.WrapDBError("GetStockBySymbol", err)
	}
	return &stock, nil
}

// UpsertStock inserts a stock or updates its name/sector when they
// changed. Returns the stored stock plus created/updated flags so
// discovery can count reconciliation outcomes.
func (r *Repository) UpsertStock(symbol, name string, sectorID *int64) (*models.Stock, bool, bool, error) {
	var existing models.Stock
	err := r.db.Where("symbol = ?", symbol).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		stock := models.Stock{Symbol: symbol, Name: name, SectorID: sectorID}
		if err := r.db.Create(&stock).Error; err != nil {
			return nil, false, false, database.WrapDBError("UpsertStock", err)
		}
		return &stock, true, false, nil
	}
	if err != nil {
		return nil, false, false, database.WrapDBError("UpsertStock", err)
	}

	// A nil incoming sector means the source carries none; it never
	// clears an existing assignment.
	sectorChanged := sectorID != nil && !sectorIDEqual(existing.SectorID, sectorID)
	changed := existing.Name != name || sectorChanged
	if changed {
		existing.Name = name
		if sectorChanged {
			existing.SectorID = sectorID
		}
		if err := r.db.Save(&existing).Error; err != nil {
			return nil, false, false, database.WrapDBError("UpsertStock", err)
		}
	}
	return &existing, false, changed, nil
}

// AssignSector sets a stock's sector. Idempotent: assigning the same
// sector again is a no-op.
func (r *Repository) AssignSector(stockID, sectorID int64) error {
	res := r.db.Model(&models.Stock{}).Where("id = ?", stockID).Update("sector_id", sectorID)
	if res.Error != nil {
		return database.WrapDBError("AssignSector", res.Error)
	}
	if res.RowsAffected == 0 {
		return database.NewNotFoundError("stock", stockID)
	}
	return nil
}

// AssignSectorIfUnclassified sets a stock's sector only when it has
// none yet. Used when the provider reports a sector for stocks that
// joined a universe unclassified.
func (r *Repository) AssignSectorIfUnclassified(stockID, sectorID int64) error {
	err := r.db.Model(&models.Stock{}).
		Where("id = ? AND sector_id IS NULL", stockID).
		Update("sector_id", sectorID).Error
	if err != nil {
		return database.WrapDBError("AssignSectorIfUnclassified", err)
	}
	return nil
}

// AddToUniverse opens an active membership row for the stock. Fails
// with AlreadyMemberError when an active row exists.
func (r *Repository) AddToUniverse(stockID int64, universeType string, date time.Time) error {
	unlock := r.locks.lock(stockID)
	defer unlock()

	var count int64
	err := r.db.Model(&models.UniverseMembership{}).
		Where("stock_id = ? AND universe_type = ? AND date_removed IS NULL", stockID, universeType).
		Count(&count).Error
	if err != nil {
		return database.WrapDBError("AddToUniverse", err)
	}
	if count > 0 {
		return &database.AlreadyMemberError{StockID: stockID, UniverseType: universeType}
	}

	membership := models.UniverseMembership{
		StockID:      stockID,
		UniverseType: universeType,
		DateAdded:    date,
	}
	if err := r.db.Create(&membership).Error; err != nil {
		return database.WrapDBError("AddToUniverse", err)
	}
	return nil
}

// RemoveFromUniverse closes the active membership row for the stock.
// Rows are closed, never deleted, to preserve membership history.
// Fails with NotMemberError when no active row exists.
func (r *Repository) RemoveFromUniverse(stockID int64, universeType string, date time.Time) error {
	unlock := r.locks.lock(stockID)
	defer unlock()

	res := r.db.Model(&models.UniverseMembership{}).
		Where("stock_id = ? AND universe_type = ? AND date_removed IS NULL", stockID, universeType).
		Update("date_removed", date)
	if res.Error != nil {
		return database.WrapDBError("RemoveFromUniverse", res.Error)
	}
	if res.RowsAffected == 0 {
		return &database.NotMemberError{StockID: stockID, UniverseType: universeType}
	}
	return nil
}

// ListActiveMembers returns the ids of all stocks with an active
// membership in the given universe.
func (r *Repository) ListActiveMembers(universeType string) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&models.UniverseMembership{}).
		Where("universe_type = ? AND date_removed IS NULL", universeType).
		Pluck("stock_id", &ids).Error
	if err != nil {
		return nil, database.WrapDBError("ListActiveMembers", err)
	}
	return ids, nil
}

// ActiveMemberStocks returns the stock records of all active members,
// ordered by symbol. Unclassified stocks are included; the caller
// decides whether they qualify for aggregation.
func (r *Repository) ActiveMemberStocks(universeType string) ([]models.Stock, error) {
	var stocks []models.Stock
	err := r.db.
		Joins("JOIN stock_universe_membership su ON su.stock_id = stocks.id").
		Where("su.universe_type = ? AND su.date_removed IS NULL", universeType).
		Order("stocks.symbol").
		Find(&stocks).Error
	if err != nil {
		return nil, database.WrapDBError("ActiveMemberStocks", err)
	}
	return stocks, nil
}

// ActiveSectorMembers returns active members of one sector in a
// universe, ordered by symbol.
func (r *Repository) ActiveSectorMembers(sectorID int64, universeType string) ([]models.Stock, error) {
	var stocks []models.Stock
	err := r.db.
		Joins("JOIN stock_universe_membership su ON su.stock_id = stocks.id").
		Where("stocks.sector_id = ? AND su.universe_type = ? AND su.date_removed IS NULL", sectorID, universeType).
		Order("stocks.symbol").
		Find(&stocks).Error
	if err != nil {
		return nil, database.WrapDBError("ActiveSectorMembers", err)
	}
	return stocks, nil
}

func sectorIDEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// stockLocks serializes membership writes per stock id.
type stockLocks struct {
	mu sync.Mutex
	m  map[int64]*sync.Mutex
}

// lock acquires the per-stock mutex, creating it on first use, and
// returns the matching unlock func.
func (l *stockLocks) lock(stockID int64) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[int64]*sync.Mutex)
	}
	m, ok := l.m[stockID]
	if !ok {
		m = &sync.Mutex{}
		l.m[stockID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
