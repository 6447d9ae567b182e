package app

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"sectorview/cache"
	"sectorview/config"
	"sectorview/database"
	models "sectorview/database/models_pkg"
	"sectorview/database/outliers"
	"sectorview/database/snapshots"
	"sectorview/database/types"
	"sectorview/database/universe"
	"sectorview/discovery"
	"sectorview/notifications"
)

// Service exposes the tracker's operations to the API server and the
// scheduler. One instance per process; the refresher inside enforces
// single-flight across every refresh entry point.
type Service struct {
	cfg           *config.Config
	universeRepo  *universe.Repository
	snapshotRepo  *snapshots.Repository
	detectionRepo *outliers.Repository
	engine        *OutlierEngine
	refresher     *Refresher
	reconciler    *discovery.Reconciler
	primary       discovery.Source
	secondary     discovery.Source
	sectorCache   *cache.SectorCache
	webhooks      *notifications.WebhookManager
}

// ServiceDeps collects the wiring for NewService
type ServiceDeps struct {
	Config        *config.Config
	UniverseRepo  *universe.Repository
	SnapshotRepo  *snapshots.Repository
	DetectionRepo *outliers.Repository
	Refresher     *Refresher
	Primary       discovery.Source
	Secondary     discovery.Source
	SectorCache   *cache.SectorCache
	Webhooks      *notifications.WebhookManager
}

func NewService(deps ServiceDeps) *Service {
	return &Service{
		cfg:           deps.Config,
		universeRepo:  deps.UniverseRepo,
		snapshotRepo:  deps.SnapshotRepo,
		detectionRepo: deps.DetectionRepo,
		engine:        NewOutlierEngine(deps.UniverseRepo, deps.SnapshotRepo, deps.DetectionRepo),
		refresher:     deps.Refresher,
		reconciler:    discovery.NewReconciler(deps.UniverseRepo),
		primary:       deps.Primary,
		secondary:     deps.Secondary,
		sectorCache:   deps.SectorCache,
		webhooks:      deps.Webhooks,
	}
}

func normalizeUniverse(universeType string) (string, error) {
	switch universeType {
	case "":
		return models.UniversePrimary, nil
	case models.UniversePrimary, models.UniverseSecondary:
		return universeType, nil
	default:
		return "", fmt.Errorf("unknown universe type %q", universeType)
	}
}

// defaultThreshold picks the configured composite cutoff for a
// universe. Small caps are noisier, so the secondary default is
// stricter.
func (s *Service) defaultThreshold(universeType string) float64 {
	if universeType == models.UniverseSecondary {
		return s.cfg.Detection.SecondaryThreshold
	}
	return s.cfg.Detection.PrimaryThreshold
}

func detectionDate(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour)
}

// GetSectorPerformance returns the aggregated sector summaries for a
// universe, served from cache between refreshes.
func (s *Service) GetSectorPerformance(ctx context.Context, universeType string) ([]types.SectorSummary, error) {
	ut, err := normalizeUniverse(universeType)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.sectorCache.Get(ctx, ut); ok {
		return cached, nil
	}

	summaries, err := s.computeSectorSummaries(ut)
	if err != nil {
		return nil, err
	}
	s.sectorCache.Put(ctx, ut, summaries)
	return summaries, nil
}

// computeSectorSummaries aggregates every sector from the latest
// snapshots. Sectors without members still appear, with a zero count.
func (s *Service) computeSectorSummaries(universeType string) ([]types.SectorSummary, error) {
	sectors, err := s.universeRepo.ListSectors()
	if err != nil {
		return nil, fmt.Errorf("GetSectorPerformance: %w", err)
	}
	rows, err := s.snapshotRepo.LatestForUniverse(universeType)
	if err != nil {
		return nil, fmt.Errorf("GetSectorPerformance: %w", err)
	}

	groups := groupBySector(rows)
	summaries := make([]types.SectorSummary, 0, len(sectors))
	for _, sector := range sectors {
		summaries = append(summaries, AggregateSector(sector, groups[sector.ID]))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].AvgChangePercent > summaries[j].AvgChangePercent
	})
	return summaries, nil
}

// RefreshMarketData runs the whole-universe refresh: S&P 500 discovery,
// fetch of all active members, aggregation, and outlier detection.
func (s *Service) RefreshMarketData(ctx context.Context) (*types.RefreshResult, error) {
	return s.refreshUniverse(ctx, models.UniversePrimary, s.primary)
}

// RefreshSecondaryUniverseData refreshes the Russell 2000 universe
func (s *Service) RefreshSecondaryUniverseData(ctx context.Context) (*types.RefreshResult, error) {
	return s.refreshUniverse(ctx, models.UniverseSecondary, s.secondary)
}

func (s *Service) refreshUniverse(ctx context.Context, universeType string, src discovery.Source) (*types.RefreshResult, error) {
	sectorMap, err := s.universeRepo.SectorMapByName()
	if err != nil {
		return nil, fmt.Errorf("Refresh %s: %w", universeType, err)
	}

	plan := Plan{
		Discover: func(ctx context.Context) (*types.DiscoveryResult, error) {
			return s.reconciler.Run(ctx, src)
		},
		Stocks: func() ([]models.Stock, error) {
			return s.universeRepo.ActiveMemberStocks(universeType)
		},
		OnSnapshot: s.classifyFromLabel(sectorMap),
		Finish: func(result *types.RefreshResult) error {
			return s.finishRefresh(ctx, universeType, result)
		},
	}
	return s.refresher.Run(ctx, plan)
}

// classifyFromLabel assigns a sector to unclassified stocks using the
// provider's sector label. Stocks already classified keep their
// discovery-sourced sector.
func (s *Service) classifyFromLabel(sectorMap map[string]int64) func(models.Stock, *types.Snapshot) {
	return func(stock models.Stock, snap *types.Snapshot) {
		if stock.SectorID != nil || snap.SectorName == "" {
			return
		}
		sectorID, ok := sectorMap[discovery.CanonicalSectorName(snap.SectorName)]
		if !ok {
			return
		}
		if err := s.universeRepo.AssignSectorIfUnclassified(stock.ID, sectorID); err != nil {
			log.Printf("⚠️ Sector assignment failed for %s: %v", stock.Symbol, err)
		}
	}
}

// finishRefresh completes a successful fetch phase: rebuild and cache
// summaries, run outlier detection, and notify on extreme outliers.
func (s *Service) finishRefresh(ctx context.Context, universeType string, result *types.RefreshResult) error {
	summaries, err := s.computeSectorSummaries(universeType)
	if err != nil {
		return err
	}
	result.Sectors = summaries
	s.sectorCache.Put(ctx, universeType, summaries)

	found, err := s.engine.Detect(universeType, s.defaultThreshold(universeType), detectionDate(time.Now()))
	if err != nil {
		return err
	}
	s.webhooks.NotifyOutliers(found)
	return nil
}

// RefreshSectorData refreshes the active primary-universe members of
// one sector, identified by its SPDR symbol, and returns the updated
// summaries. An unknown symbol fails before any fetch begins.
func (s *Service) RefreshSectorData(ctx context.Context, sectorSymbol string) ([]types.SectorSummary, error) {
	sector, err := s.universeRepo.SectorBySymbol(sectorSymbol)
	if err != nil {
		return nil, err
	}

	plan := Plan{
		Stocks: func() ([]models.Stock, error) {
			return s.universeRepo.ActiveSectorMembers(sector.ID, models.UniversePrimary)
		},
		Finish: func(result *types.RefreshResult) error {
			return s.finishRefresh(ctx, models.UniversePrimary, result)
		},
	}
	result, err := s.refresher.Run(ctx, plan)
	if err != nil {
		return nil, err
	}
	return result.Sectors, nil
}

// DetectOutliers runs detection across the universe against the
// latest snapshots. A nil threshold uses the universe default.
func (s *Service) DetectOutliers(ctx context.Context, threshold *float64, universeType string) ([]types.SectorOutliers, error) {
	ut, err := normalizeUniverse(universeType)
	if err != nil {
		return nil, err
	}
	cutoff := s.defaultThreshold(ut)
	if threshold != nil {
		cutoff = *threshold
	}

	found, err := s.engine.Detect(ut, cutoff, detectionDate(time.Now()))
	if err != nil {
		return nil, err
	}
	s.webhooks.NotifyOutliers(found)
	return found, nil
}

// GetSectorOutliers returns the current outliers of one sector
func (s *Service) GetSectorOutliers(ctx context.Context, sectorID int64, threshold *float64, universeType string) ([]types.OutlierStock, error) {
	ut, err := normalizeUniverse(universeType)
	if err != nil {
		return nil, err
	}
	cutoff := s.defaultThreshold(ut)
	if threshold != nil {
		cutoff = *threshold
	}
	return s.engine.SectorOutliers(sectorID, ut, cutoff, detectionDate(time.Now()))
}

// ListDetections returns stored detection rows matching a filter
func (s *Service) ListDetections(f outliers.Filter) ([]models.OutlierDetection, error) {
	return s.detectionRepo.ListDetections(f)
}

// Sectors lists the sector registry
func (s *Service) Sectors() ([]models.Sector, error) {
	return s.universeRepo.ListSectors()
}

// SectorStocks lists the active member stocks of one sector. An
// unknown sector id reads as not-found, never as an empty sector.
func (s *Service) SectorStocks(sectorID int64, universeType string) ([]models.Stock, error) {
	ut, err := normalizeUniverse(universeType)
	if err != nil {
		return nil, err
	}
	sectors, err := s.universeRepo.ListSectors()
	if err != nil {
		return nil, err
	}
	known := false
	for _, sector := range sectors {
		if sector.ID == sectorID {
			known = true
			break
		}
	}
	if !known {
		return nil, database.NewNotFoundError("sector", sectorID)
	}
	stocks, err := s.universeRepo.ActiveSectorMembers(sectorID, ut)
	if err != nil {
		return nil, err
	}
	if stocks == nil {
		stocks = []models.Stock{}
	}
	return stocks, nil
}

// StockBySymbol looks up one stock, with its latest snapshot if any
func (s *Service) StockBySymbol(symbol string) (*models.Stock, *models.MarketDataSnapshot, error) {
	stock, err := s.universeRepo.GetStockBySymbol(symbol)
	if err != nil {
		return nil, nil, err
	}
	snap, err := s.snapshotRepo.LatestSnapshot(stock.ID)
	if err != nil {
		return nil, nil, err
	}
	return stock, snap, nil
}
