// internal/fixedmatch/view.go
package fixedmatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/padelhq/clubserver/internal/db"
)

// GetMatchView loads a match and returns its DTO with every derived field
// filled in.
func (s *Service) GetMatchView(ctx context.Context, matchID int64) (*MatchView, error) {
	q := s.store.Queries
	m, err := getMatch(ctx, q, matchID)
	if err != nil {
		return nil, err
	}
	return buildMatchView(ctx, q, m)
}

// ListClubMatches returns the DTOs for every match in the club starting
// within [from, to), ordered by start time.
func (s *Service) ListClubMatches(ctx context.Context, clubID int64, from, to time.Time) ([]MatchView, error) {
	q := s.store.Queries
	matches, err := q.ListMatchesByClubBetween(ctx, db.ListMatchesByClubBetweenParams{
		ClubID:    clubID,
		StartTime: from,
		EndTime:   to,
	})
	if err != nil {
		return nil, fmt.Errorf("list club matches: %w", err)
	}

	views := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		view, err := buildMatchView(ctx, q, m)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func buildMatchView(ctx context.Context, q *db.Queries, m db.Match) (*MatchView, error) {
	players, err := q.ListMatchPlayers(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("list match players: %w", err)
	}

	view := &MatchView{
		ID:              m.ID,
		ClubID:          m.ClubID,
		Start:           m.StartTime,
		End:             m.EndTime,
		DurationMinutes: durationMinutes(m.StartTime, m.EndTime),
		Level:           m.Level,
		Category:        m.Category,
		BookedPlayers:   make([]PlayerView, 0, len(players)),
		IsPlaceholder:   m.Kind == KindPlaceholder,
		IsFixedMatch:    m.Kind != KindNormal,
		IsProvisional:   m.RenewalDeadline.Valid,
		IsRecurring:     m.NextRecurringMatchID.Valid,
	}

	for _, p := range players {
		view.BookedPlayers = append(view.BookedPlayers, PlayerView{
			UserID:      p.UserID,
			Name:        p.Name,
			PhotoURL:    p.PhotoURL,
			IsOrganizer: p.IsOrganizer,
		})
	}

	switch {
	case m.Visibility == VisibilityPrivate:
		view.Status = StatusConfirmedPrivate
	case len(players) >= 4:
		view.Status = StatusConfirmed
	default:
		view.Status = StatusForming
	}

	if m.CourtID.Valid {
		court, err := q.GetCourt(ctx, m.CourtID.Int64)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("load court: %w", err)
		}
		if err == nil {
			number := court.CourtNumber
			view.CourtNumber = &number
		}
	}
	if m.OrganizerID.Valid {
		organizerID := m.OrganizerID.Int64
		view.OrganizerID = &organizerID
	}
	if m.RenewalDeadline.Valid {
		expiresAt := m.RenewalDeadline.Time
		view.ProvisionalExpiresAt = &expiresAt
	}
	if m.NextRecurringMatchID.Valid {
		nextID := m.NextRecurringMatchID.Int64
		view.NextRecurringMatchID = &nextID
	}

	return view, nil
}

// durationMinutes rounds the interval to whole minutes with a 30 minute
// floor, matching what the booking grid can display.
func durationMinutes(start, end time.Time) int {
	minutes := int(math.Round(end.Sub(start).Minutes()))
	if minutes < 30 {
		return 30
	}
	return minutes
}
