package fixedmatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/padelhq/clubserver/internal/db"
	"github.com/padelhq/clubserver/internal/testutil"
)

func TestCreateFixedFromPlaceholder(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()

	clubID := testutil.CreateClub(t, database, "padel-one")
	testutil.CreateCourt(t, database, clubID, 1)
	organizerID := testutil.CreateUser(t, database, "ana")

	start := time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)
	matchID := createPlaceholder(t, database, clubID, start, start.Add(90*time.Minute))

	view, err := svc.CreateFixedFromPlaceholder(ctx, organizerID, matchID, CreateFixedOptions{
		ReserveCourt:   true,
		OrganizerJoins: true,
	})
	if err != nil {
		t.Fatalf("create fixed: %v", err)
	}

	if view.Status != StatusConfirmedPrivate {
		t.Fatalf("status = %q, want confirmed_private", view.Status)
	}
	if view.CourtNumber == nil || *view.CourtNumber != 1 {
		t.Fatalf("court number = %v, want 1", view.CourtNumber)
	}
	if view.OrganizerID == nil || *view.OrganizerID != organizerID {
		t.Fatalf("organizer = %v, want %d", view.OrganizerID, organizerID)
	}
	if view.IsProvisional {
		t.Fatal("confirmed match must not be provisional")
	}
	if !view.IsFixedMatch || view.IsPlaceholder {
		t.Fatalf("expected fixed non-placeholder, got isFixed=%v isPlaceholder=%v", view.IsFixedMatch, view.IsPlaceholder)
	}
	if len(view.BookedPlayers) != 1 || !view.BookedPlayers[0].IsOrganizer {
		t.Fatalf("expected organizer as sole player, got %+v", view.BookedPlayers)
	}
	if !view.IsRecurring {
		t.Fatal("expected recurring chain to be scheduled")
	}

	m := getMatchRow(t, database, matchID)
	if m.Kind != KindFixed {
		t.Fatalf("kind = %q, want fixed", m.Kind)
	}
	if m.RenewalDeadline.Valid {
		t.Fatal("fixed match must not carry a renewal deadline")
	}
}

func TestCreateFixedFromPlaceholderWithoutCourtStaysPublic(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()

	clubID := testutil.CreateClub(t, database, "padel-two")
	testutil.CreateCourt(t, database, clubID, 1)
	organizerID := testutil.CreateUser(t, database, "bruno")

	start := time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)
	matchID := createPlaceholder(t, database, clubID, start, start.Add(90*time.Minute))

	view, err := svc.CreateFixedFromPlaceholder(ctx, organizerID, matchID, CreateFixedOptions{})
	if err != nil {
		t.Fatalf("create fixed: %v", err)
	}
	if view.Status != StatusForming {
		t.Fatalf("status = %q, want forming", view.Status)
	}
	if view.CourtNumber != nil {
		t.Fatalf("expected no court, got %v", *view.CourtNumber)
	}
}

func TestCreateFixedFromPlaceholderErrors(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()

	clubID := testutil.CreateClub(t, database, "padel-three")
	organizerID := testutil.CreateUser(t, database, "carla")
	otherID := testutil.CreateUser(t, database, "diego")

	start := time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	t.Run("not found", func(t *testing.T) {
		_, err := svc.CreateFixedFromPlaceholder(ctx, organizerID, 9999, CreateFixedOptions{})
		if !errors.Is(err, ErrMatchNotFound) {
			t.Fatalf("err = %v, want ErrMatchNotFound", err)
		}
	})

	t.Run("not a placeholder", func(t *testing.T) {
		testutil.CreateCourt(t, database, clubID, 1)
		matchID := createPlaceholder(t, database, clubID, start, end)
		if _, err := svc.CreateFixedFromPlaceholder(ctx, organizerID, matchID, CreateFixedOptions{}); err != nil {
			t.Fatalf("first confirm: %v", err)
		}
		_, err := svc.CreateFixedFromPlaceholder(ctx, otherID, matchID, CreateFixedOptions{})
		if !errors.Is(err, ErrNotPlaceholder) {
			t.Fatalf("err = %v, want ErrNotPlaceholder", err)
		}
	})

	t.Run("already has players", func(t *testing.T) {
		slot := start.Add(48 * time.Hour)
		matchID := createPlaceholder(t, database, clubID, slot, slot.Add(90*time.Minute))
		if err := database.Queries.AddMatchPlayer(ctx, db.AddMatchPlayerParams{MatchID: matchID, UserID: otherID}); err != nil {
			t.Fatalf("add player: %v", err)
		}
		_, err := svc.CreateFixedFromPlaceholder(ctx, organizerID, matchID, CreateFixedOptions{})
		if !errors.Is(err, ErrAlreadyHasPlayers) {
			t.Fatalf("err = %v, want ErrAlreadyHasPlayers", err)
		}
	})

	t.Run("no court available", func(t *testing.T) {
		emptyClub := testutil.CreateClub(t, database, "no-courts-club")
		matchID := createPlaceholder(t, database, emptyClub, start, end)
		_, err := svc.CreateFixedFromPlaceholder(ctx, organizerID, matchID, CreateFixedOptions{ReserveCourt: true})
		if !errors.Is(err, ErrNoCourtAvailable) {
			t.Fatalf("err = %v, want ErrNoCourtAvailable", err)
		}
	})
}

func TestFillAndMakePrivate(t *testing.T) {
	svc, database, clock := newTestService(t)
	ctx := context.Background()

	clubID := testutil.CreateClub(t, database, "padel-four")
	testutil.CreateCourt(t, database, clubID, 1)
	userID := testutil.CreateUser(t, database, "elena")

	start := clock.Now().Add(48 * time.Hour)
	matchID := createPlaceholder(t, database, clubID, start, start.Add(90*time.Minute))

	view, err := svc.FillAndMakePrivate(ctx, userID, matchID)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if view.Status != StatusConfirmedPrivate {
		t.Fatalf("status = %q, want confirmed_private", view.Status)
	}
	if view.CourtNumber == nil {
		t.Fatal("expected an allocated court")
	}
	assertChainInvariant(t, database, matchID)
}

func TestFillAndMakePrivateRejectsPastMatch(t *testing.T) {
	svc, database, clock := newTestService(t)
	ctx := context.Background()

	clubID := testutil.CreateClub(t, database, "padel-five")
	testutil.CreateCourt(t, database, clubID, 1)
	userID := testutil.CreateUser(t, database, "felipe")

	start := clock.Now().Add(-2 * time.Hour)
	matchID := createPlaceholder(t, database, clubID, start, start.Add(90*time.Minute))

	_, err := svc.FillAndMakePrivate(ctx, userID, matchID)
	if !errors.Is(err, ErrMatchInPast) {
		t.Fatalf("err = %v, want ErrMatchInPast", err)
	}
}

func TestMakePublic(t *testing.T) {
	svc, database, clock := newTestService(t)
	ctx := context.Background()

	clubID := testutil.CreateClub(t, database, "padel-six")
	testutil.CreateCourt(t, database, clubID, 1)
	organizerID := testutil.CreateUser(t, database, "gema")
	otherID := testutil.CreateUser(t, database, "hugo")

	start := clock.Now().Add(48 * time.Hour)
	matchID := createPlaceholder(t, database, clubID, start, start.Add(90*time.Minute))
	if _, err := svc.FillAndMakePrivate(ctx, organizerID, matchID); err != nil {
		t.Fatalf("fill: %v", err)
	}

	t.Run("not organizer", func(t *testing.T) {
		_, err := svc.MakePublic(ctx, otherID, matchID)
		if !errors.Is(err, ErrNotOrganizer) {
			t.Fatalf("err = %v, want ErrNotOrganizer", err)
		}
	})

	t.Run("organizer releases exclusivity", func(t *testing.T) {
		view, err := svc.MakePublic(ctx, organizerID, matchID)
		if err != nil {
			t.Fatalf("make public: %v", err)
		}
		if view.OrganizerID != nil {
			t.Fatalf("organizer should be cleared, got %v", *view.OrganizerID)
		}
		if view.Status == StatusConfirmedPrivate {
			t.Fatal("match should no longer be private")
		}
		// Kind survives the release.
		if !view.IsFixedMatch {
			t.Fatal("match should stay fixed")
		}
	})

	t.Run("not currently private", func(t *testing.T) {
		_, err := svc.MakePublic(ctx, organizerID, matchID)
		if !errors.Is(err, ErrNotPrivate) {
			t.Fatalf("err = %v, want ErrNotPrivate", err)
		}
	})
}

func TestConfirmAsPrivateReturnsShareLink(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()

	clubID := testutil.CreateClub(t, database, "padel-seven")
	testutil.CreateCourt(t, database, clubID, 1)
	userID := testutil.CreateUser(t, database, "ines")

	start := time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)
	matchID := createPlaceholder(t, database, clubID, start, start.Add(90*time.Minute))

	view, shareLink, err := svc.ConfirmAsPrivate(ctx, userID, matchID)
	if err != nil {
		t.Fatalf("confirm private: %v", err)
	}
	if view.Status != StatusConfirmedPrivate {
		t.Fatalf("status = %q, want confirmed_private", view.Status)
	}
	if shareLink == "" {
		t.Fatal("expected a share-link token")
	}
	if !strings.HasPrefix(shareLink, fmt.Sprintf("%d-", matchID)) {
		t.Fatalf("token %q should start with the match id", shareLink)
	}
	assertChainInvariant(t, database, matchID)
}

func TestRenew(t *testing.T) {
	svc, database, clock := newTestService(t)
	ctx := context.Background()

	clubID := testutil.CreateClub(t, database, "padel-eight")
	testutil.CreateCourt(t, database, clubID, 1)
	organizerID := testutil.CreateUser(t, database, "jorge")
	otherID := testutil.CreateUser(t, database, "karla")

	// Confirm a series: Monday 18:00, played within the hour.
	start := clock.Now().Add(8 * time.Hour)
	matchID := createPlaceholder(t, database, clubID, start, start.Add(90*time.Minute))
	if _, _, err := svc.ConfirmAsPrivate(ctx, organizerID, matchID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	t.Run("wrong requester", func(t *testing.T) {
		_, err := svc.Renew(ctx, otherID, matchID)
		if !errors.Is(err, ErrInvalidRenewal) {
			t.Fatalf("err = %v, want ErrInvalidRenewal", err)
		}
	})

	t.Run("no chain link", func(t *testing.T) {
		loneID := createPlaceholder(t, database, clubID, start.Add(time.Hour*200), start.Add(time.Hour*201))
		_, err := svc.Renew(ctx, organizerID, loneID)
		if !errors.Is(err, ErrInvalidRenewal) {
			t.Fatalf("err = %v, want ErrInvalidRenewal", err)
		}
	})

	t.Run("within window", func(t *testing.T) {
		// The match ended; the organizer renews a few hours later, still
		// inside the 24h grace window.
		clock.Time = start.Add(90*time.Minute + 3*time.Hour)

		view, err := svc.Renew(ctx, organizerID, matchID)
		if err != nil {
			t.Fatalf("renew: %v", err)
		}
		if view.Status != StatusConfirmedPrivate {
			t.Fatalf("status = %q, want confirmed_private", view.Status)
		}
		if view.CourtNumber == nil {
			t.Fatal("renewal must allocate a court")
		}
		if view.IsProvisional {
			t.Fatal("renewed match must not be provisional")
		}

		renewed := getMatchRow(t, database, matchID)
		assertChainInvariant(t, database, renewed.NextRecurringMatchID.Int64)
	})

	t.Run("already renewed", func(t *testing.T) {
		// The linked next match is FIXED now; renewing the completed match
		// again must not reprocess it.
		_, err := svc.Renew(ctx, organizerID, matchID)
		if !errors.Is(err, ErrInvalidRenewal) {
			t.Fatalf("err = %v, want ErrInvalidRenewal", err)
		}
	})
}

func TestRenewWindowExpired(t *testing.T) {
	svc, database, clock := newTestService(t)
	ctx := context.Background()

	clubID := testutil.CreateClub(t, database, "padel-nine")
	testutil.CreateCourt(t, database, clubID, 1)
	organizerID := testutil.CreateUser(t, database, "luis")

	start := clock.Now().Add(8 * time.Hour)
	matchID := createPlaceholder(t, database, clubID, start, start.Add(90*time.Minute))
	if _, _, err := svc.ConfirmAsPrivate(ctx, organizerID, matchID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// 24 hours after the match ended the window is gone.
	clock.Time = start.Add(90*time.Minute + 25*time.Hour)

	_, err := svc.Renew(ctx, organizerID, matchID)
	if !errors.Is(err, ErrRenewalExpired) {
		t.Fatalf("err = %v, want ErrRenewalExpired", err)
	}
}

func TestPurgeExpiredLeavesEverythingElse(t *testing.T) {
	svc, database, clock := newTestService(t)
	ctx := context.Background()

	clubID := testutil.CreateClub(t, database, "padel-ten")
	testutil.CreateCourt(t, database, clubID, 1)
	organizerID := testutil.CreateUser(t, database, "marta")

	slot := clock.Now().Add(48 * time.Hour)

	expiredID := createProvisional(t, database, clubID, slot, slot.Add(time.Hour), clock.Now().Add(-time.Minute))
	liveID := createProvisional(t, database, clubID, slot.Add(2*time.Hour), slot.Add(3*time.Hour), clock.Now().Add(time.Hour))
	openID := createPlaceholder(t, database, clubID, slot.Add(4*time.Hour), slot.Add(5*time.Hour))

	fixedID := createPlaceholder(t, database, clubID, slot.Add(6*time.Hour), slot.Add(7*time.Hour))
	if _, err := svc.CreateFixedFromPlaceholder(ctx, organizerID, fixedID, CreateFixedOptions{ReserveCourt: true}); err != nil {
		t.Fatalf("create fixed: %v", err)
	}

	deleted, err := svc.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}

	if _, err := database.Queries.GetMatch(ctx, expiredID); err == nil {
		t.Fatal("expired provisional should be gone")
	}
	for _, id := range []int64{liveID, openID, fixedID} {
		if _, err := database.Queries.GetMatch(ctx, id); err != nil {
			t.Fatalf("match %d should survive the purge: %v", id, err)
		}
	}

	// Idempotent: a second sweep finds nothing.
	deleted, err = svc.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("second purge: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("second purge deleted %d, want 0", deleted)
	}
}

func TestPurgeExpiredClearsChainLink(t *testing.T) {
	svc, database, clock := newTestService(t)
	ctx := context.Background()

	clubID := testutil.CreateClub(t, database, "padel-eleven")
	testutil.CreateCourt(t, database, clubID, 1)
	organizerID := testutil.CreateUser(t, database, "nora")

	start := clock.Now().Add(8 * time.Hour)
	matchID := createPlaceholder(t, database, clubID, start, start.Add(90*time.Minute))
	if _, _, err := svc.ConfirmAsPrivate(ctx, organizerID, matchID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	base := getMatchRow(t, database, matchID)
	holdID := base.NextRecurringMatchID.Int64

	// The renewal window closes without a renewal. The +14d hold's deadline
	// is anchored to the +7d occurrence's end and is still a week out.
	clock.Time = start.Add(90*time.Minute + 25*time.Hour)

	deleted, err := svc.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge of the linked +7d hold: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	if _, err := database.Queries.GetMatch(ctx, holdID); err == nil {
		t.Fatal("expired +7d hold should be gone")
	}

	base = getMatchRow(t, database, matchID)
	if base.NextRecurringMatchID.Valid {
		t.Fatalf("dangling chain link should be cleared, still %d", base.NextRecurringMatchID.Int64)
	}
}
