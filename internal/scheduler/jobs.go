// internal/scheduler/jobs.go
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/padelhq/clubserver/internal/config"
	"github.com/padelhq/clubserver/internal/fixedmatch"
)

const jobTimeout = 2 * time.Minute

// RegisterFixedMatchJobs registers the periodic maintenance sweeps for the
// fixed-match lifecycle: purging provisional holds whose renewal deadline has
// passed, and guaranteeing an open placeholder at every slot that still hosts
// a live provisional.
func RegisterFixedMatchJobs(s *Service, svc *fixedmatch.Service, cfg config.SchedulerConfig) error {
	if svc == nil {
		return fmt.Errorf("fixed-match jobs require the match service")
	}

	purgeLogger := log.With().Str("component", "purge_expired_job").Logger()
	_, err := s.AddJob("purge_expired_holds", cfg.PurgeCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		ctx = purgeLogger.WithContext(ctx)

		deleted, err := svc.PurgeExpired(ctx)
		if err != nil {
			purgeLogger.Error().Err(err).Msg("Failed to purge expired holds")
			return
		}
		if deleted > 0 {
			purgeLogger.Info().Int64("deleted", deleted).Msg("Purge sweep finished")
		}
	})
	if err != nil {
		return err
	}

	reconcileLogger := log.With().Str("component", "placeholder_reconcile_job").Logger()
	_, err = s.AddJob("reconcile_open_placeholders", cfg.ReconcileCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		ctx = reconcileLogger.WithContext(ctx)

		created, err := svc.EnsureOpenPlaceholdersForAllProvisional(ctx)
		if err != nil {
			reconcileLogger.Error().Err(err).Msg("Failed to reconcile open placeholders")
			return
		}
		if created > 0 {
			reconcileLogger.Info().Int("created", created).Msg("Reconcile sweep finished")
		}
	})
	return err
}
