// Package scheduler runs the recurring refresh jobs: a daily
// whole-universe refresh after US market close and a weekly secondary
// universe refresh on Saturdays.
package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"sectorview/database"
	"sectorview/database/types"
)

// RefreshService is the slice of the app the scheduler drives
type RefreshService interface {
	RefreshMarketData(ctx context.Context) (*types.RefreshResult, error)
	RefreshSecondaryUniverseData(ctx context.Context) (*types.RefreshResult, error)
}

// Scheduler owns the cron jobs
type Scheduler struct {
	cron    *gocron.Scheduler
	service RefreshService
}

// NewScheduler creates a new scheduler instance
func NewScheduler(service RefreshService) *Scheduler {
	return &Scheduler{
		cron:    gocron.NewScheduler(time.UTC),
		service: service,
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Daily primary refresh after US market close (21:30 UTC)
	s.cron.Every(1).Day().At("21:30").Do(func() {
		s.runRefresh("daily primary", s.service.RefreshMarketData)
	})

	// Weekly secondary universe refresh, off-hours
	s.cron.Every(1).Saturday().At("12:00").Do(func() {
		s.runRefresh("weekly secondary", s.service.RefreshSecondaryUniverseData)
	})

	s.cron.StartAsync()
}

// runRefresh runs one scheduled refresh. A refresh already in flight
// is skipped, not an error; the next scheduled run will catch up.
func (s *Scheduler) runRefresh(name string, refresh func(context.Context) (*types.RefreshResult, error)) {
	log.Printf("⏰ Scheduled %s refresh starting", name)
	result, err := refresh(context.Background())
	if err != nil {
		if errors.Is(err, database.ErrRefreshInProgress) {
			log.Printf("⏰ Scheduled %s refresh skipped: another refresh is running", name)
			return
		}
		log.Printf("⚠️ Scheduled %s refresh failed: %v", name, err)
		return
	}
	log.Printf("✅ Scheduled %s refresh done: %d fetched, %d failed", name, result.Fetched, result.Failed)
}

// Stop halts the cron loop
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
