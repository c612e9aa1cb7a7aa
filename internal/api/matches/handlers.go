// internal/api/matches/handlers.go
package matches

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/padelhq/clubserver/internal/api/apiutil"
	"github.com/padelhq/clubserver/internal/fixedmatch"
	"github.com/padelhq/clubserver/internal/ratelimit"
)

var (
	service     *fixedmatch.Service
	limiter     *ratelimit.Limiter
	serviceOnce sync.Once
)

const matchQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
// The limiter is optional; without one booking attempts are not throttled.
func InitHandlers(svc *fixedmatch.Service, l *ratelimit.Limiter) {
	if svc == nil {
		return
	}
	serviceOnce.Do(func() {
		service = svc
		limiter = l
	})
}

func loadService() *fixedmatch.Service {
	return service
}

// allowBooking throttles slot-grabbing endpoints per user and per IP. It
// responds with 429 and a Retry-After header when the attempt is blocked.
func allowBooking(w http.ResponseWriter, r *http.Request, userID int64) bool {
	if limiter == nil {
		return true
	}
	user := strconv.FormatInt(userID, 10)
	ip := ratelimit.GetClientIP(r, false)

	result := limiter.CheckBooking(user, ip)
	if !result.Allowed {
		log.Ctx(r.Context()).Warn().
			Int64("user_id", userID).
			Str("reason", result.Reason).
			Msg("Booking attempt rate limited")
		w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
		http.Error(w, "Too many booking attempts", http.StatusTooManyRequests)
		return false
	}
	limiter.RecordBooking(user, ip)
	return true
}

type actorRequest struct {
	UserID int64 `json:"userId"`
}

type createFixedRequest struct {
	UserID         int64 `json:"userId"`
	ReserveCourt   bool  `json:"reserveCourt"`
	OrganizerJoins bool  `json:"organizerJoins"`
}

// POST /api/v1/matches/{id}/fix
func HandleCreateFixed(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Match service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	matchID, err := matchIDFromPath(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req createFixedRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	if !allowBooking(w, r, req.UserID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	view, err := svc.CreateFixedFromPlaceholder(ctx, req.UserID, matchID, fixedmatch.CreateFixedOptions{
		ReserveCourt:   req.ReserveCourt,
		OrganizerJoins: req.OrganizerJoins,
	})
	if err != nil {
		writeServiceError(w, r, matchID, err, "Failed to create fixed match")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, view); err != nil {
		logger.Error().Err(err).Int64("match_id", matchID).Msg("Failed to write match response")
	}
}

// POST /api/v1/matches/{id}/fill
func HandleFillAndMakePrivate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Match service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	matchID, err := matchIDFromPath(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req actorRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	if !allowBooking(w, r, req.UserID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	view, err := svc.FillAndMakePrivate(ctx, req.UserID, matchID)
	if err != nil {
		writeServiceError(w, r, matchID, err, "Failed to fill match")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, view); err != nil {
		logger.Error().Err(err).Int64("match_id", matchID).Msg("Failed to write match response")
	}
}

// POST /api/v1/matches/{id}/public
func HandleMakePublic(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Match service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	matchID, err := matchIDFromPath(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req actorRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	view, err := svc.MakePublic(ctx, req.UserID, matchID)
	if err != nil {
		writeServiceError(w, r, matchID, err, "Failed to make match public")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, view); err != nil {
		logger.Error().Err(err).Int64("match_id", matchID).Msg("Failed to write match response")
	}
}

type confirmPrivateResponse struct {
	Match     *fixedmatch.MatchView `json:"match"`
	ShareLink string                `json:"shareLink"`
}

// POST /api/v1/matches/{id}/confirm-private
func HandleConfirmAsPrivate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Match service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	matchID, err := matchIDFromPath(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req actorRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	if !allowBooking(w, r, req.UserID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	view, shareLink, err := svc.ConfirmAsPrivate(ctx, req.UserID, matchID)
	if err != nil {
		writeServiceError(w, r, matchID, err, "Failed to confirm match")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, confirmPrivateResponse{Match: view, ShareLink: shareLink}); err != nil {
		logger.Error().Err(err).Int64("match_id", matchID).Msg("Failed to write match response")
	}
}

// POST /api/v1/matches/{id}/renew
func HandleRenew(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Match service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	matchID, err := matchIDFromPath(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req actorRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	if !allowBooking(w, r, req.UserID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	view, err := svc.Renew(ctx, req.UserID, matchID)
	if err != nil {
		writeServiceError(w, r, matchID, err, "Failed to renew match")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, view); err != nil {
		logger.Error().Err(err).Int64("match_id", matchID).Msg("Failed to write match response")
	}
}

// GET /api/v1/matches/{id}
func HandleMatchGet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Match service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	matchID, err := matchIDFromPath(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	view, err := svc.GetMatchView(ctx, matchID)
	if err != nil {
		writeServiceError(w, r, matchID, err, "Failed to load match")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, view); err != nil {
		logger.Error().Err(err).Int64("match_id", matchID).Msg("Failed to write match response")
	}
}

// GET /api/v1/matches?club_id=...&from=...&to=...
func HandleMatchesList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Match service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	clubID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("club_id")), 10, 64)
	if err != nil || clubID <= 0 {
		http.Error(w, "club_id is required", http.StatusBadRequest)
		return
	}
	from, to, err := parseTimeRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	views, err := svc.ListClubMatches(ctx, clubID, from, to)
	if err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to list matches")
		http.Error(w, "Failed to list matches", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, views); err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to write match list response")
	}
}

type purgeResponse struct {
	Deleted int64 `json:"deleted"`
}

// POST /api/v1/maintenance/purge-expired
func HandlePurgeExpired(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Match service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	deleted, err := svc.PurgeExpired(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to purge expired holds")
		http.Error(w, "Failed to purge expired holds", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, purgeResponse{Deleted: deleted}); err != nil {
		logger.Error().Err(err).Msg("Failed to write purge response")
	}
}

type reconcileResponse struct {
	Created int `json:"created"`
}

// POST /api/v1/maintenance/reconcile-placeholders
func HandleReconcilePlaceholders(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Match service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	created, err := svc.EnsureOpenPlaceholdersForAllProvisional(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to reconcile placeholders")
		http.Error(w, "Failed to reconcile placeholders", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, reconcileResponse{Created: created}); err != nil {
		logger.Error().Err(err).Msg("Failed to write reconcile response")
	}
}

func matchIDFromPath(r *http.Request) (int64, error) {
	pathID := strings.TrimSpace(r.PathValue("id"))
	matchID, err := strconv.ParseInt(pathID, 10, 64)
	if err != nil || matchID <= 0 {
		return 0, errors.New("invalid match id")
	}
	return matchID, nil
}

func parseTimeRange(fromValue, toValue string) (time.Time, time.Time, error) {
	from, err := time.Parse(time.RFC3339, strings.TrimSpace(fromValue))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("from must be RFC3339")
	}
	to, err := time.Parse(time.RFC3339, strings.TrimSpace(toValue))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("to must be RFC3339")
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, errors.New("to must be after from")
	}
	return from, to, nil
}

// writeServiceError maps the service's business outcomes onto HTTP statuses:
// missing resources 404, precondition failures and court exhaustion 409,
// expired renewal windows 410, organizer-only operations 403.
func writeServiceError(w http.ResponseWriter, r *http.Request, matchID int64, err error, fallback string) {
	logger := log.Ctx(r.Context())

	switch {
	case errors.Is(err, fixedmatch.ErrMatchNotFound),
		errors.Is(err, fixedmatch.ErrProvisionalNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, fixedmatch.ErrNotPlaceholder),
		errors.Is(err, fixedmatch.ErrAlreadyHasPlayers),
		errors.Is(err, fixedmatch.ErrMatchInPast),
		errors.Is(err, fixedmatch.ErrNotPrivate),
		errors.Is(err, fixedmatch.ErrInvalidRenewal),
		errors.Is(err, fixedmatch.ErrNoCourtAvailable):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, fixedmatch.ErrRenewalExpired):
		http.Error(w, err.Error(), http.StatusGone)
	case errors.Is(err, fixedmatch.ErrNotOrganizer):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		logger.Error().Err(err).Int64("match_id", matchID).Msg(fallback)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}
