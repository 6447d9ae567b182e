package app

import (
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"sectorview/database"
	models "sectorview/database/models_pkg"
	"sectorview/database/outliers"
	"sectorview/database/snapshots"
	"sectorview/database/types"
	"sectorview/database/universe"
)

// Composite score weights per metric. Stocks missing a metric have the
// composite renormalized over the weights that remain.
const (
	weightPrice  = 0.35
	weightPE     = 0.30
	weightPB     = 0.20
	weightVolume = 0.15
)

// Outlier classifications, ordered by evaluation precedence
const (
	OutlierValueTrap     = "ValueTrap"
	OutlierGrowthPremium = "GrowthPremium"
	OutlierMomentum      = "Momentum"
	OutlierUndervalued   = "Undervalued"
	OutlierOvervalued    = "Overvalued"
	OutlierMixed         = "Mixed"
)

// Significance levels by composite score band
const (
	SignificanceModerate = "Moderate"
	SignificanceStrong   = "Strong"
	SignificanceExtreme  = "Extreme"
)

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev uses the n−1 denominator. Callers guard len >= 2.
func sampleStdDev(values []float64, mu float64) float64 {
	sum := 0.0
	for _, v := range values {
		d := v - mu
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// metricStats holds one metric's cross-sectional distribution. usable
// is false when fewer than 2 peers carry the metric or the sample is
// degenerate (σ = 0); both cases null the metric's z for the sector.
type metricStats struct {
	mean   float64
	stddev float64
	usable bool
}

func computeStats(values []float64) metricStats {
	if len(values) < 2 {
		return metricStats{}
	}
	mu := mean(values)
	sigma := sampleStdDev(values, mu)
	if sigma == 0 {
		return metricStats{}
	}
	return metricStats{mean: mu, stddev: sigma, usable: true}
}

func (s metricStats) zScore(value float64) float64 {
	return (value - s.mean) / s.stddev
}

// volumeRatio derives the volume-deviation metric: today's volume as a
// multiple of the 10-day average. Nil when either input is missing or
// the average is non-positive.
func volumeRatio(row types.SectorRow) *float64 {
	if row.Volume == nil || row.AvgVolume10d == nil || *row.AvgVolume10d <= 0 {
		return nil
	}
	ratio := float64(*row.Volume) / float64(*row.AvgVolume10d)
	return &ratio
}

// sectorZScores computes per-stock z-scores against the sector's
// cross-sectional distribution. The second return is false when the
// sector lacks a price distribution (under 2 peers or σ = 0), which
// excludes the whole sector from detection.
func sectorZScores(rows []types.SectorRow) ([]types.ZScores, bool) {
	var priceVals, peVals, pbVals, volVals []float64
	volRatios := make([]*float64, len(rows))
	for i, row := range rows {
		priceVals = append(priceVals, row.PriceChangePercent)
		if row.PERatio != nil {
			peVals = append(peVals, *row.PERatio)
		}
		if row.PBRatio != nil {
			pbVals = append(pbVals, *row.PBRatio)
		}
		volRatios[i] = volumeRatio(row)
		if volRatios[i] != nil {
			volVals = append(volVals, *volRatios[i])
		}
	}

	priceStats := computeStats(priceVals)
	if !priceStats.usable {
		return nil, false
	}
	peStats := computeStats(peVals)
	pbStats := computeStats(pbVals)
	volStats := computeStats(volVals)

	scores := make([]types.ZScores, len(rows))
	for i, row := range rows {
		z := types.ZScores{PriceZ: priceStats.zScore(row.PriceChangePercent)}
		if peStats.usable && row.PERatio != nil {
			v := peStats.zScore(*row.PERatio)
			z.PEZ = &v
		}
		if pbStats.usable && row.PBRatio != nil {
			v := pbStats.zScore(*row.PBRatio)
			z.PBZ = &v
		}
		if volStats.usable && volRatios[i] != nil {
			v := volStats.zScore(*volRatios[i])
			z.VolumeZ = &v
		}
		scores[i] = z
	}
	return scores, true
}

// compositeScore combines the available z magnitudes, renormalized to
// the weights of the metrics the stock actually has.
func compositeScore(z types.ZScores) float64 {
	weighted := weightPrice * z.PriceZ * z.PriceZ
	totalWeight := weightPrice
	if z.PEZ != nil {
		weighted += weightPE * *z.PEZ * *z.PEZ
		totalWeight += weightPE
	}
	if z.PBZ != nil {
		weighted += weightPB * *z.PBZ * *z.PBZ
		totalWeight += weightPB
	}
	if z.VolumeZ != nil {
		weighted += weightVolume * *z.VolumeZ * *z.VolumeZ
		totalWeight += weightVolume
	}
	return math.Sqrt(weighted / totalWeight)
}

// classify maps a z-vector to an outlier type. Rules are evaluated in
// precedence order; the first match wins. Nil z-scores never satisfy a
// rule.
func classify(z types.ZScores) string {
	cheap := atMost(z.PEZ, -1) || atMost(z.PBZ, -1)
	expensive := atLeast(z.PEZ, 1) || atLeast(z.PBZ, 1)

	switch {
	case cheap && z.PriceZ <= -1:
		return OutlierValueTrap
	case expensive && z.PriceZ >= 1:
		return OutlierGrowthPremium
	case z.PriceZ >= 2 && atLeast(z.VolumeZ, 1):
		return OutlierMomentum
	case cheap:
		return OutlierUndervalued
	case expensive:
		return OutlierOvervalued
	default:
		return OutlierMixed
	}
}

func atMost(z *float64, bound float64) bool {
	return z != nil && *z <= bound
}

func atLeast(z *float64, bound float64) bool {
	return z != nil && *z >= bound
}

// significance bands a composite score. Scores under 1.5 carry no
// significance and are never reported.
func significance(composite float64) string {
	switch {
	case composite >= 3.0:
		return SignificanceExtreme
	case composite >= 2.0:
		return SignificanceStrong
	default:
		return SignificanceModerate
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// OutlierEngine runs sector-relative outlier detection over the latest
// snapshots and persists the results.
type OutlierEngine struct {
	universeRepo  *universe.Repository
	snapshotRepo  *snapshots.Repository
	detectionRepo *outliers.Repository
}

func NewOutlierEngine(universeRepo *universe.Repository, snapshotRepo *snapshots.Repository, detectionRepo *outliers.Repository) *OutlierEngine {
	return &OutlierEngine{
		universeRepo:  universeRepo,
		snapshotRepo:  snapshotRepo,
		detectionRepo: detectionRepo,
	}
}

// Detect runs detection for every sector of the universe, overwriting
// the day's stored detections, and returns the per-sector view. Stocks
// whose composite falls below the threshold are dropped.
func (e *OutlierEngine) Detect(universeType string, threshold float64, date time.Time) ([]types.SectorOutliers, error) {
	rows, err := e.snapshotRepo.LatestForUniverse(universeType)
	if err != nil {
		return nil, fmt.Errorf("DetectOutliers: %w", err)
	}

	sectors, err := e.universeRepo.ListSectors()
	if err != nil {
		return nil, fmt.Errorf("DetectOutliers: %w", err)
	}
	sectorsByID := make(map[int64]models.Sector, len(sectors))
	for _, s := range sectors {
		sectorsByID[s.ID] = s
	}

	groups := groupBySector(rows)
	sectorIDs := make([]int64, 0, len(groups))
	for id := range groups {
		sectorIDs = append(sectorIDs, id)
	}
	sort.Slice(sectorIDs, func(i, j int) bool { return sectorIDs[i] < sectorIDs[j] })

	var results []types.SectorOutliers
	for _, sectorID := range sectorIDs {
		sector, ok := sectorsByID[sectorID]
		if !ok {
			continue
		}
		group := groups[sectorID]

		found, detections := detectSector(sector, group, universeType, threshold, date)
		if detections == nil {
			// Sector lacked a price distribution; keep any previous
			// day's rows untouched.
			continue
		}
		if err := e.detectionRepo.ReplaceSectorDetections(sectorID, date, universeType, detections); err != nil {
			return nil, fmt.Errorf("DetectOutliers: %w", err)
		}
		if len(found.Outliers) > 0 {
			results = append(results, found)
		}
	}

	log.Printf("📊 Outlier detection (%s, threshold %.2f): %d sectors with outliers", universeType, threshold, len(results))
	return results, nil
}

// detectSector scores one sector's peer group. Returns a nil detection
// slice when the sector is excluded; an empty non-nil slice means the
// sector was scored but produced no qualifying outliers (clearing any
// previous rows for the date).
func detectSector(sector models.Sector, rows []types.SectorRow, universeType string, threshold float64, date time.Time) (types.SectorOutliers, []models.OutlierDetection) {
	view := types.SectorOutliers{
		SectorID:     sector.ID,
		SectorName:   sector.Name,
		SectorSymbol: sector.Symbol,
	}

	scores, ok := sectorZScores(rows)
	if !ok {
		return view, nil
	}

	detections := []models.OutlierDetection{}
	for i, row := range rows {
		z := scores[i]
		composite := compositeScore(z)
		if composite < threshold {
			continue
		}

		outlierType := classify(z)
		level := significance(composite)

		detections = append(detections, models.OutlierDetection{
			StockID:           row.StockID,
			SectorID:          sector.ID,
			DetectionDate:     date,
			PEZ:               z.PEZ,
			PBZ:               z.PBZ,
			PriceZ:            z.PriceZ,
			VolumeZ:           z.VolumeZ,
			CompositeScore:    composite,
			OutlierType:       outlierType,
			SignificanceLevel: level,
			ThresholdUsed:     threshold,
			UniverseType:      universeType,
		})
		view.Outliers = append(view.Outliers, types.OutlierStock{
			StockID:           row.StockID,
			Symbol:            row.Symbol,
			Name:              row.Name,
			ZScores:           z,
			CompositeScore:    round2(composite),
			OutlierType:       outlierType,
			SignificanceLevel: level,
		})
	}

	sort.Slice(view.Outliers, func(i, j int) bool {
		return view.Outliers[i].CompositeScore > view.Outliers[j].CompositeScore
	})
	view.OutlierCount = len(view.Outliers)
	return view, detections
}

// SectorOutliers returns the qualifying outliers of one sector,
// computed fresh from the latest snapshots.
func (e *OutlierEngine) SectorOutliers(sectorID int64, universeType string, threshold float64, date time.Time) ([]types.OutlierStock, error) {
	sectors, err := e.universeRepo.ListSectors()
	if err != nil {
		return nil, fmt.Errorf("GetSectorOutliers: %w", err)
	}
	var sector *models.Sector
	for i := range sectors {
		if sectors[i].ID == sectorID {
			sector = &sectors[i]
			break
		}
	}
	if sector == nil {
		return nil, database.NewNotFoundError("sector", sectorID)
	}

	rows, err := e.snapshotRepo.LatestBySector(sectorID, universeType)
	if err != nil {
		return nil, fmt.Errorf("GetSectorOutliers: %w", err)
	}

	view, detections := detectSector(*sector, rows, universeType, threshold, date)
	if detections != nil {
		if err := e.detectionRepo.ReplaceSectorDetections(sectorID, date, universeType, detections); err != nil {
			return nil, fmt.Errorf("GetSectorOutliers: %w", err)
		}
	}
	outlierList := view.Outliers
	if outlierList == nil {
		outlierList = []types.OutlierStock{}
	}
	return outlierList, nil
}
