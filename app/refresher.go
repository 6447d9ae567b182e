package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"sectorview/config"
	models "sectorview/database/models_pkg"
	"sectorview/database/types"
	"sectorview/provider"
)

// SnapshotStore receives successful fetches as they complete
type SnapshotStore interface {
	SaveSnapshot(stockID int64, ts time.Time, snap *types.Snapshot) error
}

// Plan describes one refresh operation. The orchestrator runs the
// phases; the caller decides what each phase covers.
type Plan struct {
	// Discover reconciles universe membership before fetching. Nil
	// skips the discovery phase (sector-scoped refreshes). A discovery
	// failure is logged and absorbed: the refresh continues against
	// the existing membership.
	Discover func(ctx context.Context) (*types.DiscoveryResult, error)

	// Stocks lists the fetch targets. Evaluated after discovery so a
	// reconciled membership is reflected in the same run.
	Stocks func() ([]models.Stock, error)

	// OnSnapshot runs after each successful store write, under no
	// lock. Used to classify stocks from provider sector labels.
	OnSnapshot func(models.Stock, *types.Snapshot)

	// Finish runs after a successful fetch phase, still inside the
	// single-flight region: aggregation, detection, cache refresh.
	// Its error fails the refresh.
	Finish func(result *types.RefreshResult) error
}

// Refresher drives the fetch pipeline: single-flight admission, a
// bounded worker pool over the target symbols, capped-backoff retries
// on rate limits, and streaming writes to the snapshot store.
type Refresher struct {
	mu         sync.Mutex
	fetcher    provider.Fetcher
	store      SnapshotStore
	cfg        config.RefreshConfig
	onProgress func(types.ProgressEvent)
	sleep      func(time.Duration)
}

// NewRefresher wires a refresher. onProgress may be nil; events are
// then dropped.
func NewRefresher(fetcher provider.Fetcher, store SnapshotStore, cfg config.RefreshConfig, onProgress func(types.ProgressEvent)) *Refresher {
	if onProgress == nil {
		onProgress = func(types.ProgressEvent) {}
	}
	return &Refresher{
		fetcher:    fetcher,
		store:      store,
		cfg:        cfg,
		onProgress: onProgress,
		sleep:      time.Sleep,
	}
}

// Run executes one refresh. A second call while one is active fails
// immediately with ErrRefreshInProgress and changes nothing. Individual
// symbol failures are counted, never fatal; a store write failure
// aborts the remaining work while keeping already-written snapshots.
// Zero successful fetches fail the run with ErrDataUnavailable.
func (r *Refresher) Run(ctx context.Context, plan Plan) (*types.RefreshResult, error) {
	if !r.mu.TryLock() {
		return nil, ErrRefreshInProgress
	}
	defer r.mu.Unlock()

	result := &types.RefreshResult{}

	if plan.Discover != nil {
		discovery, err := plan.Discover(ctx)
		if err != nil {
			log.Printf("⚠️ Discovery failed, refreshing existing membership: %v", err)
		} else {
			result.Discovery = discovery
		}
		r.onProgress(types.ProgressEvent{Current: 1, Total: 1, Phase: types.PhaseDiscovery})
	}

	stocks, err := plan.Stocks()
	if err != nil {
		return nil, fmt.Errorf("Refresh: %w", err)
	}

	fetched, failed, persistErr := r.fetchAll(ctx, stocks, plan.OnSnapshot)
	result.Fetched = fetched
	result.Failed = failed
	if persistErr != nil {
		return nil, fmt.Errorf("Refresh: %w", persistErr)
	}
	if fetched == 0 {
		return nil, ErrDataUnavailable
	}

	if plan.Finish != nil {
		if err := plan.Finish(result); err != nil {
			return nil, fmt.Errorf("Refresh: %w", err)
		}
	}

	log.Printf("✅ Refresh fetched %d/%d symbols (%d failed)", fetched, len(stocks), failed)
	return result, nil
}

// fetchAll runs the bounded worker pool over the target stocks. The
// first store write failure stops scheduling of further symbols;
// in-flight workers drain before it returns.
func (r *Refresher) fetchAll(ctx context.Context, stocks []models.Stock, onSnapshot func(models.Stock, *types.Snapshot)) (fetched, failed int, persistErr error) {
	total := len(stocks)
	sem := make(chan struct{}, r.cfg.Workers)

	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0
	aborted := false

	for _, stock := range stocks {
		sem <- struct{}{}
		mu.Lock()
		stop := aborted
		mu.Unlock()
		if stop {
			<-sem
			break
		}

		wg.Add(1)
		go func(stock models.Stock) {
			defer wg.Done()
			defer func() { <-sem }()

			snap, err := r.fetchWithRetry(ctx, stock.Symbol)
			saved := false
			if err != nil {
				log.Printf("⚠️ Fetch %s failed: %v", stock.Symbol, err)
			} else if saveErr := r.store.SaveSnapshot(stock.ID, time.Now().UTC(), snap); saveErr != nil {
				mu.Lock()
				if persistErr == nil {
					persistErr = saveErr
				}
				aborted = true
				mu.Unlock()
			} else {
				saved = true
				if onSnapshot != nil {
					onSnapshot(stock, snap)
				}
			}

			// Emit under the lock: counter update and delivery must be
			// one atomic step, or two workers can hand events to the
			// callback with Current inverted.
			mu.Lock()
			if saved {
				fetched++
			} else {
				failed++
			}
			done++
			r.onProgress(types.ProgressEvent{Current: done, Total: total, Phase: types.PhaseFetching})
			mu.Unlock()
		}(stock)
	}

	wg.Wait()
	return fetched, failed, persistErr
}

// fetchWithRetry retries rate-limited fetches with capped exponential
// backoff. Any other failure kind returns immediately.
func (r *Refresher) fetchWithRetry(ctx context.Context, symbol string) (*types.Snapshot, error) {
	delay := time.Duration(r.cfg.BackoffBaseMs) * time.Millisecond
	maxDelay := time.Duration(r.cfg.BackoffCapMs) * time.Millisecond

	for attempt := 0; ; attempt++ {
		snap, err := r.fetcher.Fetch(ctx, symbol)
		if err == nil {
			return snap, nil
		}
		if provider.KindOf(err) != provider.KindRateLimited || attempt >= r.cfg.MaxRetries {
			return nil, err
		}
		r.sleep(delay)
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
