// internal/db/queries.go
package db

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every query can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const matchColumns = `id, club_id, kind, visibility, start_time, end_time,
	court_id, organizer_id, renewal_deadline, next_recurring_match_id,
	level, category, created_at`

func scanMatch(row interface{ Scan(...any) error }) (Match, error) {
	var m Match
	err := row.Scan(
		&m.ID,
		&m.ClubID,
		&m.Kind,
		&m.Visibility,
		&m.StartTime,
		&m.EndTime,
		&m.CourtID,
		&m.OrganizerID,
		&m.RenewalDeadline,
		&m.NextRecurringMatchID,
		&m.Level,
		&m.Category,
		&m.CreatedAt,
	)
	return m, err
}

func (q *Queries) GetClub(ctx context.Context, id int64) (Club, error) {
	var c Club
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, slug, timezone, created_at FROM clubs WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.Timezone, &c.CreatedAt)
	return c, err
}

func (q *Queries) GetCourt(ctx context.Context, id int64) (Court, error) {
	var c Court
	err := q.db.QueryRowContext(ctx,
		`SELECT id, club_id, court_number, name FROM courts WHERE id = ?`, id,
	).Scan(&c.ID, &c.ClubID, &c.CourtNumber, &c.Name)
	return c, err
}

func (q *Queries) ListCourtsByClub(ctx context.Context, clubID int64) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, club_id, court_number, name
		 FROM courts
		 WHERE club_id = ?
		 ORDER BY court_number`, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courts []Court
	for rows.Next() {
		var c Court
		if err := rows.Scan(&c.ID, &c.ClubID, &c.CourtNumber, &c.Name); err != nil {
			return nil, err
		}
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

type ListAvailableCourtsParams struct {
	ClubID    int64
	MatchID   int64 // excluded from the busy check; 0 excludes nothing
	StartTime time.Time
	EndTime   time.Time
}

// ListAvailableCourts returns the club's courts, ordered by court number,
// whose court assignment does not overlap [StartTime, EndTime). The match
// identified by MatchID is ignored so a match's own optimistic hold does not
// block reconfirmation.
func (q *Queries) ListAvailableCourts(ctx context.Context, arg ListAvailableCourtsParams) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT c.id, c.club_id, c.court_number, c.name
		 FROM courts c
		 WHERE c.club_id = ?
		   AND c.id NOT IN (
		     SELECT m.court_id FROM matches m
		     WHERE m.club_id = ?
		       AND m.court_id IS NOT NULL
		       AND m.id != ?
		       AND m.start_time < ?
		       AND m.end_time > ?
		   )
		 ORDER BY c.court_number`,
		arg.ClubID, arg.ClubID, arg.MatchID, arg.EndTime, arg.StartTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courts []Court
	for rows.Next() {
		var c Court
		if err := rows.Scan(&c.ID, &c.ClubID, &c.CourtNumber, &c.Name); err != nil {
			return nil, err
		}
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

func (q *Queries) GetMatch(ctx context.Context, id int64) (Match, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)
	return scanMatch(row)
}

type CreateMatchParams struct {
	ClubID          int64
	Kind            string
	Visibility      string
	StartTime       time.Time
	EndTime         time.Time
	CourtID         sql.NullInt64
	OrganizerID     sql.NullInt64
	RenewalDeadline sql.NullTime
	Level           string
	Category        string
}

func (q *Queries) CreateMatch(ctx context.Context, arg CreateMatchParams) (Match, error) {
	result, err := q.db.ExecContext(ctx,
		`INSERT INTO matches
		   (club_id, kind, visibility, start_time, end_time, court_id,
		    organizer_id, renewal_deadline, level, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ClubID, arg.Kind, arg.Visibility, arg.StartTime, arg.EndTime,
		arg.CourtID, arg.OrganizerID, arg.RenewalDeadline, arg.Level, arg.Category)
	if err != nil {
		return Match{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Match{}, err
	}
	return q.GetMatch(ctx, id)
}

type UpdateMatchStateParams struct {
	ID              int64
	Kind            string
	Visibility      string
	OrganizerID     sql.NullInt64
	CourtID         sql.NullInt64
	RenewalDeadline sql.NullTime
}

// UpdateMatchState rewrites the lifecycle tuple of a match in one statement.
func (q *Queries) UpdateMatchState(ctx context.Context, arg UpdateMatchStateParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE matches
		 SET kind = ?, visibility = ?, organizer_id = ?, court_id = ?, renewal_deadline = ?
		 WHERE id = ?`,
		arg.Kind, arg.Visibility, arg.OrganizerID, arg.CourtID, arg.RenewalDeadline, arg.ID)
	return err
}

type SetNextRecurringMatchParams struct {
	ID                   int64
	NextRecurringMatchID sql.NullInt64
}

func (q *Queries) SetNextRecurringMatch(ctx context.Context, arg SetNextRecurringMatchParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE matches SET next_recurring_match_id = ? WHERE id = ?`,
		arg.NextRecurringMatchID, arg.ID)
	return err
}

type SlotParams struct {
	ClubID    int64
	StartTime time.Time
}

// GetProvisionalAtSlot returns the provisional hold (placeholder with a
// renewal deadline) starting exactly at the given slot, if any.
func (q *Queries) GetProvisionalAtSlot(ctx context.Context, arg SlotParams) (Match, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+matchColumns+`
		 FROM matches
		 WHERE club_id = ?
		   AND kind = 'placeholder'
		   AND renewal_deadline IS NOT NULL
		   AND start_time = ?
		 ORDER BY id
		 LIMIT 1`,
		arg.ClubID, arg.StartTime)
	return scanMatch(row)
}

// GetOpenPlaceholderAtSlot returns the unclaimed placeholder (no deadline, no
// organizer) starting exactly at the given slot, if any.
func (q *Queries) GetOpenPlaceholderAtSlot(ctx context.Context, arg SlotParams) (Match, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+matchColumns+`
		 FROM matches
		 WHERE club_id = ?
		   AND kind = 'placeholder'
		   AND renewal_deadline IS NULL
		   AND organizer_id IS NULL
		   AND start_time = ?
		 ORDER BY id
		 LIMIT 1`,
		arg.ClubID, arg.StartTime)
	return scanMatch(row)
}

// ListProvisionalMatches returns every placeholder still carrying a renewal
// deadline, across all clubs, ordered by start time.
func (q *Queries) ListProvisionalMatches(ctx context.Context) ([]Match, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+matchColumns+`
		 FROM matches
		 WHERE kind = 'placeholder' AND renewal_deadline IS NOT NULL
		 ORDER BY start_time, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMatches(rows)
}

type ListMatchesByClubBetweenParams struct {
	ClubID    int64
	StartTime time.Time
	EndTime   time.Time
}

func (q *Queries) ListMatchesByClubBetween(ctx context.Context, arg ListMatchesByClubBetweenParams) ([]Match, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+matchColumns+`
		 FROM matches
		 WHERE club_id = ? AND start_time >= ? AND start_time < ?
		 ORDER BY start_time, id`,
		arg.ClubID, arg.StartTime, arg.EndTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMatches(rows)
}

func collectMatches(rows *sql.Rows) ([]Match, error) {
	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// DeleteExpiredPlaceholders deletes every placeholder whose renewal deadline
// is strictly in the past and returns the number of rows removed. Open
// placeholders carry no deadline and are never touched.
func (q *Queries) DeleteExpiredPlaceholders(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx,
		`DELETE FROM matches
		 WHERE kind = 'placeholder'
		   AND renewal_deadline IS NOT NULL
		   AND renewal_deadline < ?`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (q *Queries) CountMatchPlayers(ctx context.Context, matchID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM match_players WHERE match_id = ?`, matchID,
	).Scan(&count)
	return count, err
}

type AddMatchPlayerParams struct {
	MatchID     int64
	UserID      int64
	IsOrganizer bool
	Position    int64
}

func (q *Queries) AddMatchPlayer(ctx context.Context, arg AddMatchPlayerParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO match_players (match_id, user_id, is_organizer, position)
		 VALUES (?, ?, ?, ?)`,
		arg.MatchID, arg.UserID, arg.IsOrganizer, arg.Position)
	return err
}

type ListMatchPlayersRow struct {
	UserID      int64
	IsOrganizer bool
	Position    int64
	Name        string
	PhotoURL    string
}

func (q *Queries) ListMatchPlayers(ctx context.Context, matchID int64) ([]ListMatchPlayersRow, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT mp.user_id, mp.is_organizer, mp.position, u.name, u.photo_url
		 FROM match_players mp
		 JOIN users u ON u.id = mp.user_id
		 WHERE mp.match_id = ?
		 ORDER BY mp.position, mp.user_id`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []ListMatchPlayersRow
	for rows.Next() {
		var p ListMatchPlayersRow
		if err := rows.Scan(&p.UserID, &p.IsOrganizer, &p.Position, &p.Name, &p.PhotoURL); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
