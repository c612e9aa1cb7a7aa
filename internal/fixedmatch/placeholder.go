// internal/fixedmatch/placeholder.go
package fixedmatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/padelhq/clubserver/internal/db"
)

// EnsureOpenPlaceholder guarantees that an unclaimed placeholder exists for
// the slot: no court, no deadline, no organizer. It reports whether a new row
// was created. Idempotent; safe to call repeatedly for the same slot.
//
// The check-then-create is racy across concurrent callers. Duplicate open
// placeholders are tolerated and cleaned up by reconciliation, so no
// uniqueness constraint turns the race into a failure.
func (s *Service) EnsureOpenPlaceholder(ctx context.Context, clubID int64, start, end time.Time) (bool, error) {
	var created bool
	err := s.store.RunInTx(ctx, func(txdb *db.DB) error {
		var err error
		created, err = ensureOpenPlaceholder(ctx, txdb.Queries, clubID, start, end)
		return err
	})
	return created, err
}

func ensureOpenPlaceholder(ctx context.Context, q *db.Queries, clubID int64, start, end time.Time) (bool, error) {
	_, err := q.GetOpenPlaceholderAtSlot(ctx, db.SlotParams{ClubID: clubID, StartTime: start})
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("look up open placeholder: %w", err)
	}

	_, err = q.CreateMatch(ctx, db.CreateMatchParams{
		ClubID:     clubID,
		Kind:       KindPlaceholder,
		Visibility: VisibilityPublic,
		StartTime:  start,
		EndTime:    end,
	})
	if err != nil {
		return false, fmt.Errorf("create open placeholder: %w", err)
	}
	return true, nil
}

// EnsureOpenPlaceholdersForAllProvisional sweeps every provisional hold and
// guarantees an open placeholder at each of their slots, so other users can
// always propose a new series at a slot whose renewal window is still open.
// Returns the number of placeholders actually created. Intended to run as a
// periodic reconciliation job.
func (s *Service) EnsureOpenPlaceholdersForAllProvisional(ctx context.Context) (int, error) {
	provisionals, err := s.store.Queries.ListProvisionalMatches(ctx)
	if err != nil {
		return 0, fmt.Errorf("list provisional matches: %w", err)
	}

	created := 0
	for _, p := range provisionals {
		ok, err := s.EnsureOpenPlaceholder(ctx, p.ClubID, p.StartTime, p.EndTime)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	if created > 0 {
		log.Ctx(ctx).Info().Int("created", created).Msg("Open placeholders reconciled")
	}
	return created, nil
}
