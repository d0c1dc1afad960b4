package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"badgepass/internal/badge/metrics"
	"badgepass/internal/badge/models"
	"badgepass/internal/badge/ports"
	"badgepass/pkg/attrs"
	id "badgepass/pkg/domain"
	dErrors "badgepass/pkg/domain-errors"
	"badgepass/pkg/platform/audit"
	"badgepass/pkg/platform/device"
	"badgepass/pkg/platform/sentinel"
	"badgepass/pkg/requestcontext"
)

const (
	DefaultStoreTimeout = 2 * time.Second
	tracerName          = "badgepass/internal/badge/service"
)

// BadgeStore is the persistence contract. Create and AppendAttendance must be
// atomic in every implementation.
type BadgeStore interface {
	Create(ctx context.Context, badge *models.Badge) error
	FindByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error)
	FindActiveByParticipant(ctx context.Context, participantID id.ParticipantID) (*models.Badge, error)
	AppendAttendance(ctx context.Context, badgeID id.BadgeID, session id.SessionID, at time.Time) (models.AppendResult, error)
	SetStatus(ctx context.Context, badgeID id.BadgeID, status models.Status) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service issues badges and verifies scans. It holds no mutable state; all
// shared state lives in the store.
type Service struct {
	store          BadgeStore
	directory      ports.ParticipantDirectory
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	now            func() time.Time
	storeTimeout   time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source. Without it the request-scoped time
// from requestcontext is used.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithStoreTimeout bounds every store and directory call. Zero disables the bound.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.storeTimeout = d
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer(tracerName)
	}
}

func New(store BadgeStore, directory ports.ParticipantDirectory, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("badge store is required")
	}
	if directory == nil {
		return nil, errors.New("participant directory is required")
	}
	s := &Service{
		store:        store,
		directory:    directory,
		storeTimeout: DefaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s, nil
}

// IssueBadge creates the single active badge for a confirmed participant.
// Exactly one store write happens on success and none on failure.
//
// Errors: CodeParticipantNotFound, CodeParticipantNotConfirmed,
// CodeBadgeAlreadyExists, CodeUnavailable.
func (s *Service) IssueBadge(ctx context.Context, participantID id.ParticipantID) (*models.Badge, error) {
	ctx, span := s.tracer.Start(ctx, "badge.IssueBadge",
		trace.WithAttributes(attribute.String("participant_id", participantID.String())))
	defer span.End()

	badge, err := s.issue(ctx, participantID)
	if err != nil {
		s.metrics.RecordIssue(string(dErrors.CodeOf(err)))
		endSpan(span, err)
		return nil, err
	}
	s.metrics.RecordIssue("issued")
	span.SetAttributes(attribute.String("badge_id", badge.ID.String()))
	s.logAudit(ctx, audit.EventBadgeIssued,
		"badge_id", badge.ID,
		"participant_id", badge.ParticipantID,
		"decision", "issued",
	)
	return badge, nil
}

func (s *Service) issue(ctx context.Context, participantID id.ParticipantID) (*models.Badge, error) {
	participant, err := s.findParticipant(ctx, participantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeParticipantNotFound, "participant not found")
		}
		return nil, err
	}
	if !participant.Confirmed {
		return nil, dErrors.New(dErrors.CodeParticipantNotConfirmed, "participant registration is not confirmed")
	}

	_, err = s.findActiveByParticipant(ctx, participantID)
	switch {
	case err == nil:
		return nil, dErrors.New(dErrors.CodeBadgeAlreadyExists, "participant already holds an active badge")
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, err
	}

	issuedAt := s.timestamp(ctx)
	badge, err := newBadge(id.NewBadgeID(), participant, issuedAt)
	if err != nil {
		return nil, err
	}

	if err := s.createBadge(ctx, badge); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeBadgeAlreadyExists, "participant already holds an active badge")
		}
		return nil, err
	}
	return badge, nil
}

// GetBadge returns a badge with its attendance ledger.
func (s *Service) GetBadge(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	ctx, span := s.tracer.Start(ctx, "badge.GetBadge",
		trace.WithAttributes(attribute.String("badge_id", badgeID.String())))
	defer span.End()

	badge, err := s.findBadge(ctx, badgeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "badge not found")
		}
		endSpan(span, err)
		return nil, err
	}
	return badge, nil
}

// RevokeBadge marks a badge revoked so it no longer verifies. Revoking a
// revoked badge returns it unchanged.
func (s *Service) RevokeBadge(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	return s.changeStatus(ctx, badgeID, models.StatusRevoked, audit.EventBadgeRevoked)
}

// ReinstateBadge reactivates a revoked badge. It fails with
// CodeBadgeAlreadyExists when the participant was issued a replacement.
func (s *Service) ReinstateBadge(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	return s.changeStatus(ctx, badgeID, models.StatusActive, audit.EventBadgeReinstated)
}

func (s *Service) changeStatus(ctx context.Context, badgeID id.BadgeID, status models.Status, event audit.AuditEvent) (*models.Badge, error) {
	ctx, span := s.tracer.Start(ctx, "badge.SetStatus", trace.WithAttributes(
		attribute.String("badge_id", badgeID.String()),
		attribute.String("status", status.String()),
	))
	defer span.End()

	badge, err := s.findBadge(ctx, badgeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "badge not found")
		}
		endSpan(span, err)
		return nil, err
	}
	if badge.Status == status {
		return badge, nil
	}

	if err := s.setStatus(ctx, badgeID, status); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "badge not found")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeBadgeAlreadyExists, "participant already holds an active badge")
		}
		endSpan(span, err)
		return nil, err
	}
	badge.Status = status

	s.logAudit(ctx, event,
		"badge_id", badge.ID,
		"participant_id", badge.ParticipantID,
		"decision", status.String(),
	)
	return badge, nil
}

func (s *Service) timestamp(ctx context.Context) time.Time {
	var now time.Time
	if s.now != nil {
		now = s.now()
	} else {
		now = requestcontext.Now(ctx)
	}
	return now.UTC().Truncate(time.Millisecond)
}

func endSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if operator := requestcontext.Operator(ctx); operator != "" {
		attributes = append(attributes, "actor_id", operator)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	// Audit failures never change the outcome of the operation.
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Category:      event.Category(),
		Action:        string(event),
		BadgeID:       attrs.ExtractString(attributes, "badge_id"),
		ParticipantID: attrs.ExtractString(attributes, "participant_id"),
		SessionID:     attrs.ExtractString(attributes, "session_id"),
		Decision:      attrs.ExtractString(attributes, "decision"),
		Reason:        attrs.ExtractString(attributes, "reason"),
		RequestID:     attrs.ExtractString(attributes, "request_id"),
		ActorID:       attrs.ExtractString(attributes, "actor_id"),
		Device:        device.Label(requestcontext.UserAgent(ctx)),
		IP:            requestcontext.ClientIP(ctx),
	})
}
