// Package scheduler runs the periodic price check over all tracked products.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pricelens/backend/internal/usecase"
	"github.com/robfig/cron/v3"
)

// PriceChecker periodically re-checks every tracked product's price.
type PriceChecker struct {
	cron     *cron.Cron
	tracker  *usecase.TrackerService
	interval time.Duration
}

// NewPriceChecker creates a checker that runs every interval.
func NewPriceChecker(tracker *usecase.TrackerService, interval time.Duration) *PriceChecker {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &PriceChecker{
		cron:     cron.New(),
		tracker:  tracker,
		interval: interval,
	}
}

// Start schedules the periodic check and runs one pass immediately.
func (pc *PriceChecker) Start() error {
	spec := fmt.Sprintf("@every %s", pc.interval)
	if _, err := pc.cron.AddFunc(spec, pc.runCheck); err != nil {
		return fmt.Errorf("failed to schedule price checker: %w", err)
	}

	go pc.runCheck()

	pc.cron.Start()
	log.Printf("[Scheduler] Price checker scheduled every %s", pc.interval)
	return nil
}

// Stop stops the scheduler and waits for a running check to finish.
func (pc *PriceChecker) Stop() {
	if pc.cron != nil {
		ctx := pc.cron.Stop()
		<-ctx.Done()
	}
}

func (pc *PriceChecker) runCheck() {
	log.Printf("[Scheduler] Starting scheduled price check")

	// A full pass paces itself between products; give it generous room but
	// never let two passes overlap a full interval.
	ctx, cancel := context.WithTimeout(context.Background(), pc.interval)
	defer cancel()

	checked, drops := pc.tracker.CheckAll(ctx)
	log.Printf("[Scheduler] Price check complete: %d products checked, %d drops detected", checked, drops)
}
