package app

import (
	"math"
	"testing"

	"sectorview/database/types"
)

func TestComputeStats(t *testing.T) {
	stats := computeStats([]float64{20, 25, 30, 100})
	if !stats.usable {
		t.Fatal("stats should be usable with 4 values")
	}
	if stats.mean != 43.75 {
		t.Errorf("mean = %v, want 43.75", stats.mean)
	}
	if math.Abs(stats.stddev-37.7216) > 0.001 {
		t.Errorf("stddev = %v, want ≈37.7216 (n−1 denominator)", stats.stddev)
	}
}

func TestComputeStatsInsufficientSample(t *testing.T) {
	if computeStats([]float64{42}).usable {
		t.Error("a single value must not produce usable stats")
	}
	if computeStats(nil).usable {
		t.Error("an empty sample must not produce usable stats")
	}
}

func TestComputeStatsZeroStdDev(t *testing.T) {
	if computeStats([]float64{5, 5, 5}).usable {
		t.Error("identical values must not produce usable stats")
	}
}

// z-scores must be invertible: value = z·σ + μ.
func TestZScoreInvertible(t *testing.T) {
	values := []float64{12.5, 19.0, 7.25, 33.0, 21.8}
	stats := computeStats(values)
	if !stats.usable {
		t.Fatal("expected usable stats")
	}
	for _, v := range values {
		z := stats.zScore(v)
		back := z*stats.stddev + stats.mean
		if math.Abs(back-v) > 1e-9 {
			t.Errorf("round trip of %v gave %v", v, back)
		}
	}
}

// Cross-sectional z-scores have sample mean ≈0 and sample stddev ≈1.
func TestZScoresNormalized(t *testing.T) {
	values := []float64{20, 25, 30, 100}
	stats := computeStats(values)

	var zs []float64
	for _, v := range values {
		zs = append(zs, stats.zScore(v))
	}
	mu := mean(zs)
	if math.Abs(mu) > 1e-9 {
		t.Errorf("z mean = %v, want ≈0", mu)
	}
	if sigma := sampleStdDev(zs, mu); math.Abs(sigma-1) > 1e-9 {
		t.Errorf("z stddev = %v, want ≈1", sigma)
	}
}

func TestVolumeRatio(t *testing.T) {
	tests := []struct {
		name string
		row  types.SectorRow
		want *float64
	}{
		{"normal", types.SectorRow{Volume: i64(2000000), AvgVolume10d: i64(1000000)}, f64(2.0)},
		{"missing volume", types.SectorRow{AvgVolume10d: i64(1000000)}, nil},
		{"missing average", types.SectorRow{Volume: i64(2000000)}, nil},
		{"zero average", types.SectorRow{Volume: i64(2000000), AvgVolume10d: i64(0)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := volumeRatio(tt.row)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %v, want nil", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("got %v, want %v", got, *tt.want)
			}
		})
	}
}

func TestSectorZScoresPriceGate(t *testing.T) {
	// One row: under 2 price peers, whole sector excluded.
	if _, ok := sectorZScores([]types.SectorRow{{PriceChangePercent: 3.0}}); ok {
		t.Error("single-stock sector must be excluded")
	}

	// Identical price changes: σ = 0, price is mandatory, excluded.
	rows := []types.SectorRow{
		{PriceChangePercent: 1.0, PERatio: f64(10)},
		{PriceChangePercent: 1.0, PERatio: f64(50)},
	}
	if _, ok := sectorZScores(rows); ok {
		t.Error("degenerate price distribution must exclude the sector")
	}
}

func TestSectorZScoresPartialMetrics(t *testing.T) {
	rows := []types.SectorRow{
		{PriceChangePercent: -2.0, PERatio: f64(20)},
		{PriceChangePercent: 1.0, PERatio: f64(25)},
		{PriceChangePercent: 2.0, PERatio: f64(30)},
		{PriceChangePercent: 6.0, PERatio: f64(100)},
		{PriceChangePercent: 0.5}, // no P/E: gets price_z only
	}

	scores, ok := sectorZScores(rows)
	if !ok {
		t.Fatal("sector should be scored")
	}
	if scores[4].PEZ != nil {
		t.Errorf("stock without P/E got pe_z = %v", *scores[4].PEZ)
	}
	if scores[3].PEZ == nil {
		t.Fatal("stock with P/E should have pe_z")
	}
	// Peers {20, 25, 30, 100}: μ=43.75, sample σ≈37.72, so the
	// P/E=100 stock sits about 1.49σ above its sector.
	if math.Abs(*scores[3].PEZ-1.4912) > 0.001 {
		t.Errorf("pe_z = %v, want ≈1.4912", *scores[3].PEZ)
	}

	// No stock carries volume data, so no volume_z anywhere.
	for i, z := range scores {
		if z.VolumeZ != nil {
			t.Errorf("row %d has volume_z = %v, want nil", i, *z.VolumeZ)
		}
	}
}

func TestCompositeScoreFullVector(t *testing.T) {
	z := types.ZScores{PriceZ: 2.0, PEZ: f64(1.0), PBZ: f64(-1.0), VolumeZ: f64(3.0)}
	// sqrt((0.35·4 + 0.30·1 + 0.20·1 + 0.15·9) / 1.0)
	want := math.Sqrt(0.35*4 + 0.30*1 + 0.20*1 + 0.15*9)
	if got := compositeScore(z); math.Abs(got-want) > 1e-9 {
		t.Errorf("composite = %v, want %v", got, want)
	}
}

func TestCompositeScoreRenormalizes(t *testing.T) {
	// Price only: composite collapses to |price_z|.
	z := types.ZScores{PriceZ: -2.5}
	if got := compositeScore(z); math.Abs(got-2.5) > 1e-9 {
		t.Errorf("price-only composite = %v, want 2.5", got)
	}

	// Price + P/E: sqrt((0.35·z_p² + 0.30·z_pe²) / 0.65).
	z = types.ZScores{PriceZ: 1.0, PEZ: f64(2.0)}
	want := math.Sqrt((0.35 + 0.30*4) / 0.65)
	if got := compositeScore(z); math.Abs(got-want) > 1e-9 {
		t.Errorf("composite = %v, want %v", got, want)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		z    types.ZScores
		want string
	}{
		{"value trap via pe", types.ZScores{PriceZ: -1.5, PEZ: f64(-1.2)}, OutlierValueTrap},
		{"value trap via pb", types.ZScores{PriceZ: -1.0, PBZ: f64(-2.0)}, OutlierValueTrap},
		{"growth premium", types.ZScores{PriceZ: 1.5, PEZ: f64(1.8)}, OutlierGrowthPremium},
		{"momentum", types.ZScores{PriceZ: 2.5, VolumeZ: f64(1.3)}, OutlierMomentum},
		{"momentum needs volume", types.ZScores{PriceZ: 2.5}, OutlierMixed},
		{"undervalued without price move", types.ZScores{PriceZ: 0.2, PEZ: f64(-1.5)}, OutlierUndervalued},
		{"overvalued without price move", types.ZScores{PriceZ: 0.5, PBZ: f64(1.1)}, OutlierOvervalued},
		{"overvalued beats momentum check", types.ZScores{PriceZ: 0.9, PEZ: f64(1.9)}, OutlierOvervalued},
		{"mixed", types.ZScores{PriceZ: 1.8}, OutlierMixed},
		{"trap outranks momentum", types.ZScores{PriceZ: -1.2, PEZ: f64(-1.1), VolumeZ: f64(2.0)}, OutlierValueTrap},
		{"premium outranks momentum", types.ZScores{PriceZ: 2.2, PEZ: f64(1.4), VolumeZ: f64(1.5)}, OutlierGrowthPremium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.z); got != tt.want {
				t.Errorf("classify(%+v) = %s, want %s", tt.z, got, tt.want)
			}
		})
	}
}

func TestSignificanceBoundaries(t *testing.T) {
	tests := []struct {
		composite float64
		want      string
	}{
		{1.50, SignificanceModerate},
		{1.999, SignificanceModerate},
		{2.0, SignificanceStrong},
		{2.999, SignificanceStrong},
		{3.0, SignificanceExtreme},
		{7.5, SignificanceExtreme},
	}
	for _, tt := range tests {
		if got := significance(tt.composite); got != tt.want {
			t.Errorf("significance(%v) = %s, want %s", tt.composite, got, tt.want)
		}
	}
}

func TestDetectSectorThresholdAndOrdering(t *testing.T) {
	rows := []types.SectorRow{
		{StockID: 1, Symbol: "AAA", PriceChangePercent: 0.5},
		{StockID: 2, Symbol: "BBB", PriceChangePercent: 1.0},
		{StockID: 3, Symbol: "CCC", PriceChangePercent: 1.5},
		{StockID: 4, Symbol: "DDD", PriceChangePercent: 12.0},
		{StockID: 5, Symbol: "EEE", PriceChangePercent: -14.0},
	}

	view, detections := detectSector(techSector, rows, "primary", 1.5, testDate)
	if detections == nil {
		t.Fatal("sector should be scored")
	}
	if view.OutlierCount != len(view.Outliers) {
		t.Errorf("OutlierCount = %d, len = %d", view.OutlierCount, len(view.Outliers))
	}
	for i := 1; i < len(view.Outliers); i++ {
		if view.Outliers[i].CompositeScore > view.Outliers[i-1].CompositeScore {
			t.Errorf("outliers not sorted by composite desc at %d", i)
		}
	}
	for _, o := range view.Outliers {
		if o.CompositeScore < 1.5 {
			t.Errorf("%s composite %v below threshold yet reported", o.Symbol, o.CompositeScore)
		}
	}
	for _, d := range detections {
		if d.ThresholdUsed != 1.5 || d.UniverseType != "primary" {
			t.Errorf("detection metadata = %+v", d)
		}
		if !d.DetectionDate.Equal(testDate) {
			t.Errorf("detection date = %v", d.DetectionDate)
		}
	}
}

func TestDetectSectorExcluded(t *testing.T) {
	view, detections := detectSector(techSector, []types.SectorRow{{StockID: 1, PriceChangePercent: 2.0}}, "primary", 1.5, testDate)
	if detections != nil {
		t.Errorf("excluded sector returned detections: %+v", detections)
	}
	if len(view.Outliers) != 0 {
		t.Errorf("excluded sector returned outliers: %+v", view.Outliers)
	}
}

func TestDetectSectorDeterministic(t *testing.T) {
	rows := []types.SectorRow{
		{StockID: 1, Symbol: "AAA", PriceChangePercent: 0.5, PERatio: f64(20)},
		{StockID: 2, Symbol: "BBB", PriceChangePercent: 1.0, PERatio: f64(25)},
		{StockID: 3, Symbol: "CCC", PriceChangePercent: 9.0, PERatio: f64(95)},
	}
	first, firstRows := detectSector(techSector, rows, "primary", 1.5, testDate)
	second, secondRows := detectSector(techSector, rows, "primary", 1.5, testDate)

	if len(firstRows) != len(secondRows) {
		t.Fatalf("row counts differ: %d vs %d", len(firstRows), len(secondRows))
	}
	for i := range firstRows {
		a, b := firstRows[i], secondRows[i]
		if a.StockID != b.StockID || a.CompositeScore != b.CompositeScore ||
			a.OutlierType != b.OutlierType || a.SignificanceLevel != b.SignificanceLevel {
			t.Errorf("row %d differs between identical runs", i)
		}
	}
	if len(first.Outliers) != len(second.Outliers) {
		t.Errorf("view sizes differ")
	}
}
