package app

import (
	"testing"

	models "sectorview/database/models_pkg"
	"sectorview/database/types"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

var techSector = models.Sector{ID: 10, Name: "Technology", Symbol: "XLK"}

func TestAggregateSector(t *testing.T) {
	rows := []types.SectorRow{
		{StockID: 1, Symbol: "AAPL", PriceChangePercent: 2.0, PERatio: f64(30), MarketCap: i64(3000), Beta: f64(1.2)},
		{StockID: 2, Symbol: "MSFT", PriceChangePercent: -1.0, PERatio: f64(34), MarketCap: i64(2800), Beta: f64(0.9)},
		{StockID: 3, Symbol: "PLTR", PriceChangePercent: 5.0}, // no fundamentals
	}

	got := AggregateSector(techSector, rows)

	if got.SectorID != 10 || got.Name != "Technology" || got.Symbol != "XLK" {
		t.Errorf("sector identity = %+v", got)
	}
	if got.StockCount != 3 {
		t.Errorf("StockCount = %d, want 3", got.StockCount)
	}
	if want := 2.0; got.AvgChangePercent != want {
		t.Errorf("AvgChangePercent = %v, want %v", got.AvgChangePercent, want)
	}
	if got.AvgPERatio == nil || *got.AvgPERatio != 32.0 {
		t.Errorf("AvgPERatio = %v, want 32 (mean of non-nil values only)", got.AvgPERatio)
	}
	if got.AvgBeta == nil || *got.AvgBeta != 1.05 {
		t.Errorf("AvgBeta = %v, want 1.05", got.AvgBeta)
	}
	if got.TotalMarketCap == nil || *got.TotalMarketCap != 5800 {
		t.Errorf("TotalMarketCap = %v, want 5800", got.TotalMarketCap)
	}
}

func TestAggregateSectorEmpty(t *testing.T) {
	got := AggregateSector(techSector, nil)

	if got.StockCount != 0 {
		t.Errorf("StockCount = %d, want 0", got.StockCount)
	}
	if got.AvgChangePercent != 0 {
		t.Errorf("AvgChangePercent = %v, want 0", got.AvgChangePercent)
	}
	if got.AvgPERatio != nil || got.AvgBeta != nil || got.TotalMarketCap != nil {
		t.Errorf("derived fields should be nil for an empty sector: %+v", got)
	}
}

func TestAggregateSectorNoFundamentals(t *testing.T) {
	rows := []types.SectorRow{
		{StockID: 1, PriceChangePercent: 1.5},
		{StockID: 2, PriceChangePercent: 0.5},
	}
	got := AggregateSector(techSector, rows)

	if got.AvgPERatio != nil {
		t.Errorf("AvgPERatio = %v, want nil when no member has one", *got.AvgPERatio)
	}
	if got.TotalMarketCap != nil {
		t.Errorf("TotalMarketCap = %v, want nil", *got.TotalMarketCap)
	}
	if got.AvgChangePercent != 1.0 {
		t.Errorf("AvgChangePercent = %v, want 1.0", got.AvgChangePercent)
	}
}

func TestGroupBySector(t *testing.T) {
	rows := []types.SectorRow{
		{StockID: 1, SectorID: 10},
		{StockID: 2, SectorID: 20},
		{StockID: 3, SectorID: 10},
	}
	groups := groupBySector(rows)

	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if len(groups[10]) != 2 || len(groups[20]) != 1 {
		t.Errorf("group sizes = %d/%d, want 2/1", len(groups[10]), len(groups[20]))
	}
}
