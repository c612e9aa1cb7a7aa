// internal/fixedmatch/lifecycle.go
package fixedmatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/padelhq/clubserver/internal/db"
)

// CreateFixedFromPlaceholder promotes an unclaimed placeholder into a
// confirmed recurring match owned by userID. With ReserveCourt the match is
// privatized onto an allocated court; otherwise it stays public with no
// court bound. Fails on placeholders that already have players.
func (s *Service) CreateFixedFromPlaceholder(ctx context.Context, userID, matchID int64, opts CreateFixedOptions) (*MatchView, error) {
	err := s.store.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		m, err := getMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		if m.Kind != KindPlaceholder {
			return ErrNotPlaceholder
		}
		count, err := q.CountMatchPlayers(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("count match players: %w", err)
		}
		if count > 0 {
			return ErrAlreadyHasPlayers
		}

		visibility := VisibilityPublic
		var courtID sql.NullInt64
		if opts.ReserveCourt {
			court, err := findAvailableCourt(ctx, q, m.ClubID, m.ID, m.StartTime, m.EndTime)
			if err != nil {
				return err
			}
			if court == nil {
				return ErrNoCourtAvailable
			}
			courtID = sql.NullInt64{Int64: court.ID, Valid: true}
			visibility = VisibilityPrivate
		}

		if err := q.UpdateMatchState(ctx, db.UpdateMatchStateParams{
			ID:          m.ID,
			Kind:        KindFixed,
			Visibility:  visibility,
			OrganizerID: sql.NullInt64{Int64: userID, Valid: true},
			CourtID:     courtID,
		}); err != nil {
			return fmt.Errorf("promote placeholder: %w", err)
		}

		if opts.OrganizerJoins {
			if err := q.AddMatchPlayer(ctx, db.AddMatchPlayerParams{
				MatchID:     m.ID,
				UserID:      userID,
				IsOrganizer: true,
			}); err != nil {
				return fmt.Errorf("add organizer as player: %w", err)
			}
		}

		return s.scheduleNext(ctx, q, m.ID)
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Int64("match_id", matchID).Int64("user_id", userID).Msg("Fixed match created from placeholder")
	return s.GetMatchView(ctx, matchID)
}

// FillAndMakePrivate claims a future match for userID: allocates a court,
// privatizes the match and confirms it as fixed.
func (s *Service) FillAndMakePrivate(ctx context.Context, userID, matchID int64) (*MatchView, error) {
	err := s.store.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		m, err := getMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		if !m.StartTime.After(s.clock.Now()) {
			return ErrMatchInPast
		}

		court, err := findAvailableCourt(ctx, q, m.ClubID, m.ID, m.StartTime, m.EndTime)
		if err != nil {
			return err
		}
		if court == nil {
			return ErrNoCourtAvailable
		}

		if err := q.UpdateMatchState(ctx, db.UpdateMatchStateParams{
			ID:          m.ID,
			Kind:        KindFixed,
			Visibility:  VisibilityPrivate,
			OrganizerID: sql.NullInt64{Int64: userID, Valid: true},
			CourtID:     sql.NullInt64{Int64: court.ID, Valid: true},
		}); err != nil {
			return fmt.Errorf("privatize match: %w", err)
		}

		return s.scheduleNext(ctx, q, m.ID)
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Int64("match_id", matchID).Int64("user_id", userID).Msg("Match filled and privatized")
	return s.GetMatchView(ctx, matchID)
}

// MakePublic releases the organizer's exclusivity: visibility returns to
// public and the organizer is cleared. The match keeps its kind and court.
func (s *Service) MakePublic(ctx context.Context, userID, matchID int64) (*MatchView, error) {
	err := s.store.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		m, err := getMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		if m.Visibility != VisibilityPrivate {
			return ErrNotPrivate
		}
		if !m.OrganizerID.Valid || m.OrganizerID.Int64 != userID {
			return ErrNotOrganizer
		}

		if err := q.UpdateMatchState(ctx, db.UpdateMatchStateParams{
			ID:              m.ID,
			Kind:            m.Kind,
			Visibility:      VisibilityPublic,
			CourtID:         m.CourtID,
			RenewalDeadline: m.RenewalDeadline,
		}); err != nil {
			return fmt.Errorf("make match public: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetMatchView(ctx, matchID)
}

// ConfirmAsPrivate promotes a placeholder straight into a private fixed match
// on an allocated court and returns a shareable link token alongside the
// match view.
func (s *Service) ConfirmAsPrivate(ctx context.Context, userID, matchID int64) (*MatchView, string, error) {
	err := s.store.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		m, err := getMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		if m.Kind != KindPlaceholder {
			return ErrNotPlaceholder
		}

		court, err := findAvailableCourt(ctx, q, m.ClubID, m.ID, m.StartTime, m.EndTime)
		if err != nil {
			return err
		}
		if court == nil {
			return ErrNoCourtAvailable
		}

		if err := q.UpdateMatchState(ctx, db.UpdateMatchStateParams{
			ID:          m.ID,
			Kind:        KindFixed,
			Visibility:  VisibilityPrivate,
			OrganizerID: sql.NullInt64{Int64: userID, Valid: true},
			CourtID:     sql.NullInt64{Int64: court.ID, Valid: true},
		}); err != nil {
			return fmt.Errorf("confirm match as private: %w", err)
		}

		return s.scheduleNext(ctx, q, m.ID)
	})
	if err != nil {
		return nil, "", err
	}

	token := s.shareToken(matchID, s.clock.Now())
	view, err := s.GetMatchView(ctx, matchID)
	if err != nil {
		return nil, "", err
	}
	return view, token, nil
}

// Renew confirms the next occurrence of a completed recurring match. The
// requester must be the organizer, the chain link must exist, and the linked
// provisional's renewal deadline must not have passed. The court is
// reconfirmed at renewal time even when one was optimistically pre-held.
func (s *Service) Renew(ctx context.Context, userID, completedMatchID int64) (*MatchView, error) {
	var renewedID int64
	err := s.store.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		completed, err := getMatch(ctx, q, completedMatchID)
		if err != nil {
			return err
		}
		if !completed.OrganizerID.Valid || completed.OrganizerID.Int64 != userID || !completed.NextRecurringMatchID.Valid {
			return ErrInvalidRenewal
		}

		next, err := q.GetMatch(ctx, completed.NextRecurringMatchID.Int64)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProvisionalNotFound
		}
		if err != nil {
			return fmt.Errorf("load provisional: %w", err)
		}
		// A next match that was already renewed is FIXED with no deadline
		// and must not be reprocessed.
		if ClassifyPlaceholder(next) != PlaceholderProvisional {
			return ErrInvalidRenewal
		}
		if s.clock.Now().After(next.RenewalDeadline.Time) {
			return ErrRenewalExpired
		}

		court, err := findAvailableCourt(ctx, q, next.ClubID, next.ID, next.StartTime, next.EndTime)
		if err != nil {
			return err
		}
		if court == nil {
			return ErrNoCourtAvailable
		}

		if err := q.UpdateMatchState(ctx, db.UpdateMatchStateParams{
			ID:          next.ID,
			Kind:        KindFixed,
			Visibility:  VisibilityPrivate,
			OrganizerID: sql.NullInt64{Int64: userID, Valid: true},
			CourtID:     sql.NullInt64{Int64: court.ID, Valid: true},
		}); err != nil {
			return fmt.Errorf("confirm renewal: %w", err)
		}

		renewedID = next.ID
		return s.scheduleNext(ctx, q, next.ID)
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Int64("match_id", renewedID).Int64("user_id", userID).Msg("Recurring match renewed")
	return s.GetMatchView(ctx, renewedID)
}

// PurgeExpired deletes every provisional hold whose renewal deadline is
// strictly in the past and returns the number of matches removed. This is
// the only deletion path in the lifecycle.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	deleted, err := s.store.Queries.DeleteExpiredPlaceholders(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("purge expired placeholders: %w", err)
	}
	if deleted > 0 {
		log.Ctx(ctx).Info().Int64("deleted", deleted).Msg("Expired provisional holds purged")
	}
	return deleted, nil
}

func getMatch(ctx context.Context, q *db.Queries, matchID int64) (db.Match, error) {
	m, err := q.GetMatch(ctx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Match{}, ErrMatchNotFound
	}
	if err != nil {
		return db.Match{}, fmt.Errorf("load match: %w", err)
	}
	return m, nil
}
