// internal/fixedmatch/chain.go
package fixedmatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/padelhq/clubserver/internal/db"
)

// ScheduleNext extends the recurring chain from a confirmed match. Exposed
// for callers that need to repair a chain; the lifecycle operations invoke
// the transactional form themselves.
func (s *Service) ScheduleNext(ctx context.Context, matchID int64) error {
	return s.store.RunInTx(ctx, func(txdb *db.DB) error {
		return s.scheduleNext(ctx, txdb.Queries, matchID)
	})
}

// scheduleNext keeps the chain two weeks ahead of the confirmed match:
//
//   - a provisional hold at +7 days, renewal deadline 24h after the confirmed
//     match ends;
//   - a provisional hold at +14 days, deadline 24h after the +7d hold ends;
//   - an open placeholder alongside each hold so other users are not blocked
//     from starting a fresh series at those slots.
//
// Existing provisionals at either slot are reused and linked rather than
// duplicated, so the invariant survives renewals walking down the chain.
func (s *Service) scheduleNext(ctx context.Context, q *db.Queries, matchID int64) error {
	base, err := q.GetMatch(ctx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMatchNotFound
	}
	if err != nil {
		return fmt.Errorf("load base match: %w", err)
	}

	first, err := ensureProvisional(ctx, q, base,
		base.StartTime.Add(recurrenceInterval),
		base.EndTime.Add(recurrenceInterval),
		base.EndTime.Add(renewalGrace),
	)
	if err != nil {
		return err
	}
	if err := linkNext(ctx, q, base.ID, first.ID); err != nil {
		return err
	}
	if _, err := ensureOpenPlaceholder(ctx, q, base.ClubID, first.StartTime, first.EndTime); err != nil {
		return err
	}

	second, err := ensureProvisional(ctx, q, base,
		base.StartTime.Add(2*recurrenceInterval),
		base.EndTime.Add(2*recurrenceInterval),
		first.EndTime.Add(renewalGrace),
	)
	if err != nil {
		return err
	}
	if err := linkNext(ctx, q, first.ID, second.ID); err != nil {
		return err
	}
	if _, err := ensureOpenPlaceholder(ctx, q, base.ClubID, second.StartTime, second.EndTime); err != nil {
		return err
	}
	return nil
}

// ensureProvisional returns the provisional hold at the slot, creating one if
// missing: public placeholder, organizer inherited from the base match, court
// pre-held optimistically when one is free right now (reconfirmed at renewal
// time otherwise).
func ensureProvisional(ctx context.Context, q *db.Queries, base db.Match, start, end, deadline time.Time) (db.Match, error) {
	existing, err := q.GetProvisionalAtSlot(ctx, db.SlotParams{ClubID: base.ClubID, StartTime: start})
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return db.Match{}, fmt.Errorf("look up provisional at slot: %w", err)
	}

	var courtID sql.NullInt64
	court, err := findAvailableCourt(ctx, q, base.ClubID, 0, start, end)
	if err != nil {
		return db.Match{}, err
	}
	if court != nil {
		courtID = sql.NullInt64{Int64: court.ID, Valid: true}
	}

	created, err := q.CreateMatch(ctx, db.CreateMatchParams{
		ClubID:          base.ClubID,
		Kind:            KindPlaceholder,
		Visibility:      VisibilityPublic,
		StartTime:       start,
		EndTime:         end,
		CourtID:         courtID,
		OrganizerID:     base.OrganizerID,
		RenewalDeadline: sql.NullTime{Time: deadline, Valid: true},
		Level:           base.Level,
		Category:        base.Category,
	})
	if err != nil {
		return db.Match{}, fmt.Errorf("create provisional hold: %w", err)
	}
	return created, nil
}

func linkNext(ctx context.Context, q *db.Queries, matchID, nextID int64) error {
	err := q.SetNextRecurringMatch(ctx, db.SetNextRecurringMatchParams{
		ID:                   matchID,
		NextRecurringMatchID: sql.NullInt64{Int64: nextID, Valid: true},
	})
	if err != nil {
		return fmt.Errorf("link recurring chain: %w", err)
	}
	return nil
}
