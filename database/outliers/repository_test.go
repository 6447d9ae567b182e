package outliers

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	models "sectorview/database/models_pkg"
)

var detectionDay = time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.OutlierDetection{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &Repository{db: db}
}

func detectionRow(stockID, sectorID int64, universeType string, composite float64) models.OutlierDetection {
	return models.OutlierDetection{
		StockID:           stockID,
		SectorID:          sectorID,
		DetectionDate:     detectionDay,
		PriceZ:            2.0,
		CompositeScore:    composite,
		OutlierType:       "Momentum",
		SignificanceLevel: "Strong",
		ThresholdUsed:     1.5,
		UniverseType:      universeType,
	}
}

func allRows(t *testing.T, r *Repository) []models.OutlierDetection {
	t.Helper()
	var rows []models.OutlierDetection
	if err := r.db.Find(&rows).Error; err != nil {
		t.Fatalf("query rows: %v", err)
	}
	return rows
}

func TestReplaceSectorDetectionsOverwrites(t *testing.T) {
	r := newTestRepository(t)

	first := []models.OutlierDetection{detectionRow(7, 1, models.UniversePrimary, 2.0)}
	if err := r.ReplaceSectorDetections(1, detectionDay, models.UniversePrimary, first); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	second := []models.OutlierDetection{detectionRow(7, 1, models.UniversePrimary, 2.5)}
	if err := r.ReplaceSectorDetections(1, detectionDay, models.UniversePrimary, second); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	rows := allRows(t, r)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].CompositeScore != 2.5 {
		t.Errorf("CompositeScore = %v, want 2.5 (overwritten)", rows[0].CompositeScore)
	}
}

func TestReplaceSectorDetectionsAfterSectorReassignment(t *testing.T) {
	r := newTestRepository(t)

	// Stock 7 scored under sector 1, then reassigned to sector 2 and
	// scored again the same day. The old row is outside the sector-2
	// delete scope and must still be cleared before the insert.
	old := []models.OutlierDetection{detectionRow(7, 1, models.UniversePrimary, 2.0)}
	if err := r.ReplaceSectorDetections(1, detectionDay, models.UniversePrimary, old); err != nil {
		t.Fatalf("seed replace: %v", err)
	}
	moved := []models.OutlierDetection{detectionRow(7, 2, models.UniversePrimary, 3.1)}
	if err := r.ReplaceSectorDetections(2, detectionDay, models.UniversePrimary, moved); err != nil {
		t.Fatalf("replace after reassignment: %v", err)
	}

	rows := allRows(t, r)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].SectorID != 2 || rows[0].CompositeScore != 3.1 {
		t.Errorf("row = sector %d composite %v, want sector 2 composite 3.1", rows[0].SectorID, rows[0].CompositeScore)
	}
}

func TestReplaceSectorDetectionsAcrossUniverses(t *testing.T) {
	r := newTestRepository(t)

	// One detection row per (stock, date) regardless of universe: a
	// stock active in both universes keeps only the latest run's row.
	primary := []models.OutlierDetection{detectionRow(7, 1, models.UniversePrimary, 2.0)}
	if err := r.ReplaceSectorDetections(1, detectionDay, models.UniversePrimary, primary); err != nil {
		t.Fatalf("primary replace: %v", err)
	}
	secondary := []models.OutlierDetection{detectionRow(7, 1, models.UniverseSecondary, 2.2)}
	if err := r.ReplaceSectorDetections(1, detectionDay, models.UniverseSecondary, secondary); err != nil {
		t.Fatalf("secondary replace: %v", err)
	}

	rows := allRows(t, r)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].UniverseType != models.UniverseSecondary {
		t.Errorf("UniverseType = %s, want secondary", rows[0].UniverseType)
	}
}

func TestReplaceSectorDetectionsEmptyClears(t *testing.T) {
	r := newTestRepository(t)

	seed := []models.OutlierDetection{
		detectionRow(7, 1, models.UniversePrimary, 2.0),
		detectionRow(8, 1, models.UniversePrimary, 1.8),
	}
	if err := r.ReplaceSectorDetections(1, detectionDay, models.UniversePrimary, seed); err != nil {
		t.Fatalf("seed replace: %v", err)
	}
	if err := r.ReplaceSectorDetections(1, detectionDay, models.UniversePrimary, []models.OutlierDetection{}); err != nil {
		t.Fatalf("clearing replace: %v", err)
	}

	if rows := allRows(t, r); len(rows) != 0 {
		t.Errorf("got %d rows, want 0 after clearing replace", len(rows))
	}
}
