// Package discovery pulls universe constituents from external sources
// and reconciles them against the stock tables. The primary universe
// comes from the S&P 500 Wikipedia page, the secondary universe from
// the iShares IWM holdings CSV.
package discovery

import (
	"context"
	"errors"
	"log"
	"time"

	"sectorview/database"
	models "sectorview/database/models_pkg"
	"sectorview/database/types"
)

// Entry is one constituent reported by a source. SectorName is empty
// when the source carries no sector information.
type Entry struct {
	Symbol     string
	Name       string
	SectorName string
}

// Source lists the current constituents of one universe
type Source interface {
	Constituents(ctx context.Context) ([]Entry, error)
	UniverseType() string
}

// MembershipStore is the slice of the universe registry the
// reconciler writes through
type MembershipStore interface {
	SectorMapByName() (map[string]int64, error)
	UpsertStock(symbol, name string, sectorID *int64) (*models.Stock, bool, bool, error)
	AddToUniverse(stockID int64, universeType string, date time.Time) error
	ActiveMemberStocks(universeType string) ([]models.Stock, error)
	RemoveFromUniverse(stockID int64, universeType string, date time.Time) error
}

// Reconciler applies a source's constituent list to the database:
// upserting stocks, assigning sectors, and tracking membership.
type Reconciler struct {
	repo MembershipStore
}

func NewReconciler(repo MembershipStore) *Reconciler {
	return &Reconciler{repo: repo}
}

// Run fetches the source's constituents and upserts them. Per-stock
// failures are collected, not fatal; the fetch itself failing is.
func (rc *Reconciler) Run(ctx context.Context, src Source) (*types.DiscoveryResult, error) {
	entries, err := src.Constituents(ctx)
	if err != nil {
		return nil, err
	}

	sectorMap, err := rc.repo.SectorMapByName()
	if err != nil {
		return nil, err
	}

	result := &types.DiscoveryResult{}
	now := time.Now().UTC()

	// Symbols the source reported, including entries skipped below.
	// A skipped entry is still a constituent; only symbols absent
	// from the source count as departed.
	reported := make(map[string]bool, len(entries))
	for _, e := range entries {
		reported[e.Symbol] = true
	}

	for _, e := range entries {
		var sectorID *int64
		if e.SectorName != "" {
			id, ok := sectorMap[CanonicalSectorName(e.SectorName)]
			if !ok {
				result.Errors = append(result.Errors, "unknown sector '"+e.SectorName+"' for "+e.Symbol)
				continue
			}
			sectorID = &id
		}

		stock, created, changed, err := rc.repo.UpsertStock(e.Symbol, e.Name, sectorID)
		if err != nil {
			result.Errors = append(result.Errors, "upsert "+e.Symbol+": "+err.Error())
			continue
		}
		switch {
		case created:
			result.StocksDiscovered++
		case changed:
			result.StocksUpdated++
		default:
			result.StocksUnchanged++
		}

		if err := rc.repo.AddToUniverse(stock.ID, src.UniverseType(), now); err != nil {
			var already *database.AlreadyMemberError
			if !errors.As(err, &already) {
				result.Errors = append(result.Errors, "membership "+e.Symbol+": "+err.Error())
			}
		}
	}

	rc.closeDeparted(src.UniverseType(), reported, now, result)

	log.Printf("📊 Discovery (%s): %d new, %d updated, %d unchanged, %d removed, %d errors",
		src.UniverseType(), result.StocksDiscovered, result.StocksUpdated,
		result.StocksUnchanged, result.StocksRemoved, len(result.Errors))
	return result, nil
}

// closeDeparted ends the membership of active members the source no
// longer reports. Removal failures are collected like any other
// per-stock error.
func (rc *Reconciler) closeDeparted(universeType string, reported map[string]bool, now time.Time, result *types.DiscoveryResult) {
	active, err := rc.repo.ActiveMemberStocks(universeType)
	if err != nil {
		result.Errors = append(result.Errors, "list members: "+err.Error())
		return
	}
	for _, stock := range active {
		if reported[stock.Symbol] {
			continue
		}
		if err := rc.repo.RemoveFromUniverse(stock.ID, universeType, now); err != nil {
			result.Errors = append(result.Errors, "remove "+stock.Symbol+": "+err.Error())
			continue
		}
		result.StocksRemoved++
	}
}

// CanonicalSectorName maps source sector label variants onto the GICS
// names the sectors table uses.
func CanonicalSectorName(name string) string {
	if alias, ok := sectorAliases[name]; ok {
		return alias
	}
	return name
}

// sectorAliases covers Wikipedia's GICS naming plus the labels Yahoo
// Finance reports for classification of secondary-universe stocks.
var sectorAliases = map[string]string{
	"Information Technology": "Technology",
	"Financial Services":     "Financials",
	"Consumer Cyclical":      "Consumer Discretionary",
	"Consumer Defensive":     "Consumer Staples",
	"Healthcare":             "Health Care",
	"Basic Materials":        "Materials",
}
