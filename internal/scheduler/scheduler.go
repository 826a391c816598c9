package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"vanishly/backend/internal/models"

	"github.com/adhocore/gronx"
)

// CleanupFunc is one bounded, cancellable unit of reaper work.
type CleanupFunc func(ctx context.Context) (models.CleanupReport, error)

// Start launches the periodic cleanup loop driven by a cron expression and
// returns a cancel func that stops it. Each run gets its own deadline; a run
// that overlaps the next tick simply delays it, runs are never concurrent
// with each other from this scheduler (the reaper itself tolerates overlap
// from other invokers).
func Start(ctx context.Context, cronExpr string, runTimeout time.Duration, run CleanupFunc) (context.CancelFunc, error) {
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid cleanup cron expression: %s", cronExpr)
	}

	ctx2, cancel := context.WithCancel(ctx)
	go loop(ctx2, cronExpr, runTimeout, run)

	log.Printf("INFO: Cleanup scheduler started (cron %q)", cronExpr)
	return cancel, nil
}

func loop(ctx context.Context, cronExpr string, runTimeout time.Duration, run CleanupFunc) {
	for {
		select {
		case <-ctx.Done():
			log.Println("INFO: Cleanup scheduler stopping")
			return
		default:
		}

		next, err := gronx.NextTickAfter(cronExpr, time.Now(), false)
		if err != nil {
			log.Printf("ERROR: Failed to compute next cleanup tick: %v", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
		case <-ctx.Done():
			log.Println("INFO: Cleanup scheduler stopping")
			return
		}

		runOnce(ctx, runTimeout, run)
	}
}

func runOnce(ctx context.Context, runTimeout time.Duration, run CleanupFunc) {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	report, err := run(runCtx)
	if err != nil {
		log.Printf("ERROR: Scheduled cleanup aborted (marked=%d deleted=%d): %v",
			report.Marked, report.Deleted, err)
		return
	}
}
