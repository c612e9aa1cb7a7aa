// internal/fixedmatch/allocator.go
package fixedmatch

import (
	"context"
	"fmt"
	"time"

	"github.com/padelhq/clubserver/internal/db"
)

// FindAvailableCourt returns the lowest-numbered court in the club with no
// overlapping court assignment during [start, end), or nil when every court
// is busy or the club has no courts. It is a pure read: repeated calls
// without intervening writes return the same court.
func (s *Service) FindAvailableCourt(ctx context.Context, clubID int64, start, end time.Time) (*db.Court, error) {
	return findAvailableCourt(ctx, s.store.Queries, clubID, 0, start, end)
}

// findAvailableCourt is the transactional form. excludeMatchID keeps a
// match's own optimistic court hold from counting against it when the court
// is reconfirmed at renewal time; 0 excludes nothing.
func findAvailableCourt(ctx context.Context, q *db.Queries, clubID, excludeMatchID int64, start, end time.Time) (*db.Court, error) {
	courts, err := q.ListAvailableCourts(ctx, db.ListAvailableCourtsParams{
		ClubID:    clubID,
		MatchID:   excludeMatchID,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("list available courts: %w", err)
	}
	if len(courts) == 0 {
		return nil, nil
	}
	court := courts[0]
	return &court, nil
}
