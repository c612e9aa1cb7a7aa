// internal/fixedmatch/types.go
package fixedmatch

import (
	"time"

	"github.com/padelhq/clubserver/internal/db"
)

// Match kinds as stored in the matches table.
const (
	KindNormal      = "normal"
	KindPlaceholder = "placeholder"
	KindFixed       = "fixed"
)

// Visibility values as stored in the matches table.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// PlaceholderState classifies a placeholder row. An open placeholder is an
// unclaimed slot any user may book to start a new recurring series; a
// provisional hold is the next occurrence of an existing series, pending
// renewal before its deadline.
type PlaceholderState string

const (
	PlaceholderOpen        PlaceholderState = "open"
	PlaceholderProvisional PlaceholderState = "provisional"
	PlaceholderNone        PlaceholderState = ""
)

// ClassifyPlaceholder returns the placeholder state of a match row, or
// PlaceholderNone when the match is not a placeholder at all.
func ClassifyPlaceholder(m db.Match) PlaceholderState {
	if m.Kind != KindPlaceholder {
		return PlaceholderNone
	}
	if m.RenewalDeadline.Valid {
		return PlaceholderProvisional
	}
	return PlaceholderOpen
}

// CreateFixedOptions controls how a placeholder is promoted into a fixed
// recurring match.
type CreateFixedOptions struct {
	// ReserveCourt allocates a court immediately and makes the match
	// private. Without it the match stays public with no court bound.
	ReserveCourt bool
	// OrganizerJoins also registers the organizer as the first player.
	OrganizerJoins bool
}

// PlayerView is a booked player with denormalized profile fields.
type PlayerView struct {
	UserID      int64  `json:"userId"`
	Name        string `json:"name"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	IsOrganizer bool   `json:"isOrganizer"`
}

// MatchView is the data transfer object handed back to API callers.
type MatchView struct {
	ID                   int64        `json:"id"`
	ClubID               int64        `json:"clubId"`
	Start                time.Time    `json:"start"`
	End                  time.Time    `json:"end"`
	DurationMinutes      int          `json:"durationMinutes"`
	CourtNumber          *int64       `json:"courtNumber,omitempty"`
	Level                string       `json:"level,omitempty"`
	Category             string       `json:"category,omitempty"`
	Status               string       `json:"status"`
	BookedPlayers        []PlayerView `json:"bookedPlayers"`
	IsPlaceholder        bool         `json:"isPlaceholder"`
	IsFixedMatch         bool         `json:"isFixedMatch"`
	IsProvisional        bool         `json:"isProvisional"`
	ProvisionalExpiresAt *time.Time   `json:"provisionalExpiresAt,omitempty"`
	OrganizerID          *int64       `json:"organizerId,omitempty"`
	IsRecurring          bool         `json:"isRecurring"`
	NextRecurringMatchID *int64       `json:"nextRecurringMatchId,omitempty"`
}

// Match statuses derived for the DTO.
const (
	StatusForming          = "forming"
	StatusConfirmed        = "confirmed"
	StatusConfirmedPrivate = "confirmed_private"
)
