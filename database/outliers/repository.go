// Package outliers persists one outlier detection row per
// (stock, detection date). Re-running detection for a date replaces
// that day's rows instead of duplicating them.
package outliers

import (
	"time"

	"gorm.io/gorm"

	"sectorview/database"
	models "sectorview/database/models_pkg"
)

// Repository handles outlier detection storage
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new outlier detection repository
func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db.DB()}
}

// ReplaceSectorDetections atomically replaces the stored detections of
// one sector for a detection date. Running detection twice against
// unchanged snapshots therefore yields identical stored rows.
func (r *Repository) ReplaceSectorDetections(sectorID int64, date time.Time, universeType string, rows []models.OutlierDetection) error {
	day := date.Truncate(24 * time.Hour)
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("sector_id = ? AND detection_date = ? AND universe_type = ?", sectorID, day, universeType).
			Delete(&models.OutlierDetection{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		stockIDs := make([]int64, len(rows))
		for i := range rows {
			rows[i].DetectionDate = day
			stockIDs[i] = rows[i].StockID
		}
		// A stock reassigned to this sector, or scored under another
		// universe, can still hold a same-day row outside the scope
		// deleted above; it would collide with the per-(stock, date)
		// unique index on insert.
		if err := tx.
			Where("stock_id IN ? AND detection_date = ?", stockIDs, day).
			Delete(&models.OutlierDetection{}).Error; err != nil {
			return err
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return database.WrapDBError("ReplaceSectorDetections", err)
	}
	return nil
}

// Filter narrows detection queries. Zero values mean "no filter".
type Filter struct {
	StockID      int64
	SectorID     int64
	UniverseType string
	MinComposite float64
	Date         time.Time
}

// ListDetections returns stored detections matching the filter,
// strongest composites first.
func (r *Repository) ListDetections(f Filter) ([]models.OutlierDetection, error) {
	q := r.db.Model(&models.OutlierDetection{})
	if f.StockID != 0 {
		q = q.Where("stock_id = ?", f.StockID)
	}
	if f.SectorID != 0 {
		q = q.Where("sector_id = ?", f.SectorID)
	}
	if f.UniverseType != "" {
		q = q.Where("universe_type = ?", f.UniverseType)
	}
	if f.MinComposite > 0 {
		q = q.Where("composite_score >= ?", f.MinComposite)
	}
	if !f.Date.IsZero() {
		q = q.Where("detection_date = ?", f.Date.Truncate(24*time.Hour))
	}

	var rows []models.OutlierDetection
	if err := q.Order("composite_score DESC").Find(&rows).Error; err != nil {
		return nil, database.WrapDBError("ListDetections", err)
	}
	return rows, nil
}
