// internal/fixedmatch/service.go

// Package fixedmatch implements the recurring fixed-match scheduler: court
// allocation, open-placeholder maintenance, the +7/+14 day provisional chain,
// and the lifecycle operations that promote, privatize, renew and purge
// matches. It is consumed as a library by the HTTP layer and the periodic
// jobs; all state lives in the injected store.
package fixedmatch

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/padelhq/clubserver/internal/db"
)

const (
	// A fixed match recurs weekly.
	recurrenceInterval = 7 * 24 * time.Hour
	// The organizer has 24 hours after playing to renew the next slot.
	renewalGrace = 24 * time.Hour
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Service orchestrates the fixed-match lifecycle against the store. All
// mutating operations run their read-modify-write cycle, including the court
// availability check, inside a single transaction.
type Service struct {
	store    *db.DB
	clock    Clock
	tokenKey []byte
}

type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithTokenKey sets the key used to derive share-link tokens. Keys longer
// than 64 bytes are rejected by the hash; keep it short.
func WithTokenKey(key []byte) Option {
	return func(s *Service) {
		s.tokenKey = key
	}
}

func NewService(store *db.DB, opts ...Option) *Service {
	s := &Service{
		store: store,
		clock: realClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.tokenKey) == 0 {
		// Tokens only need to be stable within one process lifetime.
		s.tokenKey = []byte(uuid.NewString())
	}
	return s
}

// shareToken derives the opaque share-link token for a privatized match from
// the match id and a timestamp, with a keyed MAC suffix so links cannot be
// guessed. Callers resolve the token into a user-facing URL.
func (s *Service) shareToken(matchID int64, ts time.Time) string {
	raw := fmt.Sprintf("%d-%d", matchID, ts.UnixMilli())
	h, err := blake2b.New256(s.tokenKey)
	if err != nil {
		// Only reachable with an oversized key; fall back to the raw form.
		return raw
	}
	h.Write([]byte(raw))
	sum := h.Sum(nil)
	return raw + "-" + hex.EncodeToString(sum[:8])
}
