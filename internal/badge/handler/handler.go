package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"badgepass/internal/badge/models"
	id "badgepass/pkg/domain"
	dErrors "badgepass/pkg/domain-errors"
	audit "badgepass/pkg/platform/audit"
	"badgepass/pkg/platform/httputil"
	"badgepass/pkg/requestcontext"
)

// Service defines the badge operations exposed over HTTP.
type Service interface {
	IssueBadge(ctx context.Context, participantID id.ParticipantID) (*models.Badge, error)
	GetBadge(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error)
	RevokeBadge(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error)
	ReinstateBadge(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error)
	Verify(ctx context.Context, rawScan string) (*models.VerificationResult, error)
	CheckIn(ctx context.Context, rawScan string, session id.SessionID) (*models.CheckInResult, error)
}

// Handler wires badge endpoints to the badge service.
type Handler struct {
	service Service
	history audit.Reader
	logger  *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithAuditReader enables GET /admin/badges/{badgeID}/events.
func WithAuditReader(reader audit.Reader) Option {
	return func(h *Handler) {
		h.history = reader
	}
}

// New constructs a badge handler.
func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterAdmin mounts issuance and lifecycle endpoints. The caller is
// responsible for wrapping r with admin authorization.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/badges", h.HandleIssue)
	r.Get("/admin/badges/{badgeID}", h.HandleGet)
	r.Post("/admin/badges/{badgeID}/revoke", h.HandleRevoke)
	r.Post("/admin/badges/{badgeID}/reinstate", h.HandleReinstate)
	if h.history != nil {
		r.Get("/admin/badges/{badgeID}/events", h.HandleEvents)
	}
}

// RegisterScanner mounts the scan endpoints used by check-in operators.
func (h *Handler) RegisterScanner(r chi.Router) {
	r.Post("/scan/verify", h.HandleVerify)
	r.Post("/scan/checkin", h.HandleCheckIn)
}

// HandleIssue handles POST /admin/badges.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[IssueBadgeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	badge, err := h.service.IssueBadge(ctx, req.ParsedParticipantID())
	if err != nil {
		h.logFailure(ctx, "badge issuance failed", err,
			"request_id", requestID,
			"participant_id", req.ParticipantID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "badge issued",
		"request_id", requestID,
		"badge_id", badge.ID.String(),
		"participant_id", badge.ParticipantID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromBadge(badge))
}

// HandleGet handles GET /admin/badges/{badgeID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	badgeID, ok := h.badgeIDParam(w, r)
	if !ok {
		return
	}

	badge, err := h.service.GetBadge(ctx, badgeID)
	if err != nil {
		h.logFailure(ctx, "badge lookup failed", err,
			"request_id", requestID,
			"badge_id", badgeID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromBadge(badge))
}

// HandleEvents handles GET /admin/badges/{badgeID}/events. Unknown badges
// return 404 rather than an empty history.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	badgeID, ok := h.badgeIDParam(w, r)
	if !ok {
		return
	}
	if _, err := h.service.GetBadge(ctx, badgeID); err != nil {
		h.logFailure(ctx, "badge lookup failed", err,
			"request_id", requestID,
			"badge_id", badgeID.String(),
		)
		httputil.WriteError(w, err)
		return
	}

	events, err := h.history.ListByBadge(ctx, badgeID.String())
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to load badge history")
		h.logFailure(ctx, "badge history failed", err,
			"request_id", requestID,
			"badge_id", badgeID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEvents(badgeID, events))
}

// HandleRevoke handles POST /admin/badges/{badgeID}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	h.handleStatusChange(w, r, "revoked", h.service.RevokeBadge)
}

// HandleReinstate handles POST /admin/badges/{badgeID}/reinstate.
func (h *Handler) HandleReinstate(w http.ResponseWriter, r *http.Request) {
	h.handleStatusChange(w, r, "reinstated", h.service.ReinstateBadge)
}

func (h *Handler) handleStatusChange(
	w http.ResponseWriter,
	r *http.Request,
	verb string,
	change func(context.Context, id.BadgeID) (*models.Badge, error),
) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	badgeID, ok := h.badgeIDParam(w, r)
	if !ok {
		return
	}

	badge, err := change(ctx, badgeID)
	if err != nil {
		h.logFailure(ctx, "badge status change failed", err,
			"request_id", requestID,
			"badge_id", badgeID.String(),
			"target", verb,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "badge "+verb,
		"request_id", requestID,
		"badge_id", badgeID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromBadge(badge))
}

// HandleVerify handles POST /scan/verify. Rejections are 200 responses with
// outcome "rejected"; only infrastructure failures produce error statuses.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ScanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Verify(ctx, req.ParsedToken())
	if err != nil {
		h.logFailure(ctx, "verification failed", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "scan verified",
		"request_id", requestID,
		"outcome", string(result.Outcome),
		"reason", string(result.Reason),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromVerification(result))
}

// HandleCheckIn handles POST /scan/checkin.
func (h *Handler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CheckInRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.CheckIn(ctx, req.ParsedToken(), req.ParsedSessionID())
	if err != nil {
		h.logFailure(ctx, "check-in failed", err,
			"request_id", requestID,
			"session_id", req.SessionID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "check-in processed",
		"request_id", requestID,
		"session_id", result.SessionID.String(),
		"outcome", string(result.Outcome),
		"reason", string(result.Reason),
		"operator", requestcontext.Operator(ctx),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromCheckIn(result))
}

func (h *Handler) badgeIDParam(w http.ResponseWriter, r *http.Request) (id.BadgeID, bool) {
	badgeID, err := id.ParseBadgeID(chi.URLParam(r, "badgeID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid badge id"))
		return id.BadgeID{}, false
	}
	return badgeID, true
}

// logFailure logs expected client-side outcomes at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if httputil.StatusFor(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}
