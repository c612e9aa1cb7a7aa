// internal/db/models.go
package db

import (
	"database/sql"
	"time"
)

type Club struct {
	ID        int64
	Name      string
	Slug      string
	Timezone  string
	CreatedAt time.Time
}

type Court struct {
	ID          int64
	ClubID      int64
	CourtNumber int64
	Name        string
}

type User struct {
	ID        int64
	Name      string
	PhotoURL  string
	CreatedAt time.Time
}

type Match struct {
	ID                   int64
	ClubID               int64
	Kind                 string
	Visibility           string
	StartTime            time.Time
	EndTime              time.Time
	CourtID              sql.NullInt64
	OrganizerID          sql.NullInt64
	RenewalDeadline      sql.NullTime
	NextRecurringMatchID sql.NullInt64
	Level                string
	Category             string
	CreatedAt            time.Time
}

type MatchPlayer struct {
	MatchID     int64
	UserID      int64
	IsOrganizer bool
	Position    int64
}
