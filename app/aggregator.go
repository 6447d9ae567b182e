package app

import (
	models "sectorview/database/models_pkg"
	"sectorview/database/types"
)

// AggregateSector reduces a sector's latest snapshot rows to summary
// statistics. Averages over nullable metrics cover only the rows that
// carry them; a metric nobody carries stays nil rather than zero.
func AggregateSector(sector models.Sector, rows []types.SectorRow) types.SectorSummary {
	summary := types.SectorSummary{
		SectorID:   sector.ID,
		Name:       sector.Name,
		Symbol:     sector.Symbol,
		StockCount: len(rows),
	}
	if len(rows) == 0 {
		return summary
	}

	var changeSum float64
	var peSum, betaSum float64
	var peN, betaN int
	var capSum int64
	var capN int

	for _, row := range rows {
		changeSum += row.PriceChangePercent
		if row.PERatio != nil {
			peSum += *row.PERatio
			peN++
		}
		if row.Beta != nil {
			betaSum += *row.Beta
			betaN++
		}
		if row.MarketCap != nil {
			capSum += *row.MarketCap
			capN++
		}
	}

	summary.AvgChangePercent = changeSum / float64(len(rows))
	if peN > 0 {
		avg := peSum / float64(peN)
		summary.AvgPERatio = &avg
	}
	if betaN > 0 {
		avg := betaSum / float64(betaN)
		summary.AvgBeta = &avg
	}
	if capN > 0 {
		total := capSum
		summary.TotalMarketCap = &total
	}
	return summary
}

// groupBySector partitions latest-snapshot rows by sector ID. The map
// is rebuilt per call; iteration order is not defined.
func groupBySector(rows []types.SectorRow) map[int64][]types.SectorRow {
	groups := make(map[int64][]types.SectorRow)
	for _, row := range rows {
		groups[row.SectorID] = append(groups[row.SectorID], row)
	}
	return groups
}
