package fixedmatch

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/padelhq/clubserver/internal/db"
	"github.com/padelhq/clubserver/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *db.DB, *testutil.FixedClock) {
	t.Helper()

	database := testutil.NewTestDB(t)
	// A Monday morning; matches in tests start later the same week.
	clock := &testutil.FixedClock{Time: time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)}
	svc := NewService(database, WithClock(clock), WithTokenKey([]byte("test-key")))
	return svc, database, clock
}

func createPlaceholder(t *testing.T, database *db.DB, clubID int64, start, end time.Time) int64 {
	t.Helper()

	m, err := database.Queries.CreateMatch(context.Background(), db.CreateMatchParams{
		ClubID:     clubID,
		Kind:       KindPlaceholder,
		Visibility: VisibilityPublic,
		StartTime:  start,
		EndTime:    end,
	})
	if err != nil {
		t.Fatalf("create placeholder: %v", err)
	}
	return m.ID
}

func bookCourt(t *testing.T, database *db.DB, clubID, courtID int64, start, end time.Time) {
	t.Helper()

	_, err := database.Queries.CreateMatch(context.Background(), db.CreateMatchParams{
		ClubID:     clubID,
		Kind:       KindNormal,
		Visibility: VisibilityPublic,
		StartTime:  start,
		EndTime:    end,
		CourtID:    sql.NullInt64{Int64: courtID, Valid: true},
	})
	if err != nil {
		t.Fatalf("book court: %v", err)
	}
}

func TestFindAvailableCourtPicksLowestNumberFirst(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()

	clubID := testutil.CreateClub(t, database, "padel-east")
	court1 := testutil.CreateCourt(t, database, clubID, 1)
	court2 := testutil.CreateCourt(t, database, clubID, 2)

	start := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	court, err := svc.FindAvailableCourt(ctx, clubID, start, end)
	if err != nil {
		t.Fatalf("find court: %v", err)
	}
	if court == nil || court.ID != court1 {
		t.Fatalf("expected court #1 (%d), got %+v", court1, court)
	}

	// Repeated calls without mutation return the same answer.
	again, err := svc.FindAvailableCourt(ctx, clubID, start, end)
	if err != nil {
		t.Fatalf("find court again: %v", err)
	}
	if again == nil || again.ID != court.ID {
		t.Fatalf("allocator not deterministic: first %v, second %v", court, again)
	}

	bookCourt(t, database, clubID, court1, start, end)

	court, err = svc.FindAvailableCourt(ctx, clubID, start, end)
	if err != nil {
		t.Fatalf("find court after first booking: %v", err)
	}
	if court == nil || court.ID != court2 {
		t.Fatalf("expected court #2 (%d), got %+v", court2, court)
	}

	bookCourt(t, database, clubID, court2, start, end)

	court, err = svc.FindAvailableCourt(ctx, clubID, start, end)
	if err != nil {
		t.Fatalf("find court with all booked: %v", err)
	}
	if court != nil {
		t.Fatalf("expected no court, got %+v", court)
	}
}

func TestFindAvailableCourtOverlapEdges(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()

	clubID := testutil.CreateClub(t, database, "padel-west")
	court1 := testutil.CreateCourt(t, database, clubID, 1)

	start := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	bookCourt(t, database, clubID, court1, start, end)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		free  bool
	}{
		{"identical interval", start, end, false},
		{"starts inside", start.Add(30 * time.Minute), end.Add(30 * time.Minute), false},
		{"ends inside", start.Add(-30 * time.Minute), start.Add(30 * time.Minute), false},
		{"contains booking", start.Add(-time.Hour), end.Add(time.Hour), false},
		{"back to back after", end, end.Add(90 * time.Minute), true},
		{"back to back before", start.Add(-90 * time.Minute), start, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			court, err := svc.FindAvailableCourt(ctx, clubID, tt.start, tt.end)
			if err != nil {
				t.Fatalf("find court: %v", err)
			}
			if tt.free && court == nil {
				t.Fatal("expected a free court")
			}
			if !tt.free && court != nil {
				t.Fatalf("expected no free court, got %+v", court)
			}
		})
	}
}

func TestFindAvailableCourtEmptyClub(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()

	clubID := testutil.CreateClub(t, database, "no-courts")

	start := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)
	court, err := svc.FindAvailableCourt(ctx, clubID, start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("find court: %v", err)
	}
	if court != nil {
		t.Fatalf("expected no court for empty club, got %+v", court)
	}
}
