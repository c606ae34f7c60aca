package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hoyn-app/profile-qr/internal/domain"
	"github.com/hoyn-app/profile-qr/internal/events"
	"github.com/hoyn-app/profile-qr/internal/observability"
	"github.com/hoyn-app/profile-qr/internal/qrtoken"
	"github.com/hoyn-app/profile-qr/internal/repository"
)

// ErrNotProfileOwner is returned when the caller does not own the profile.
var ErrNotProfileOwner = errors.New("caller does not own profile")

// ScanPath is the public path that accepts envelopes in the d query parameter.
const ScanPath = "/v1/scan"

// Caller identifies who is asking for an issuance.
type Caller struct {
	Type domain.SubjectType
	ID   string
}

// IssuedQR is the issuance response for one profile.
type IssuedQR struct {
	ProfileID string
	Envelope  string
	ScanURL   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// QRService coordinates issuance and scanning around the token protocol.
type QRService struct {
	tokens     *qrtoken.Service
	profiles   repository.ProfileReader
	audit      *ScanAuditService
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	baseURL    string
}

// QRDependencies encapsulates collaborators for the QR service.
type QRDependencies struct {
	Tokens     *qrtoken.Service
	Profiles   repository.ProfileReader
	Audit      *ScanAuditService
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewQRService builds the service. baseURL is the public origin used in scan URLs.
func NewQRService(baseURL string, deps QRDependencies) *QRService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QRService{
		tokens:     deps.Tokens,
		profiles:   deps.Profiles,
		audit:      deps.Audit,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// Issue creates a fresh envelope for a profile the caller may issue for.
func (s *QRService) Issue(ctx context.Context, caller Caller, profileID string) (*IssuedQR, error) {
	if _, err := s.authorize(ctx, caller, profileID); err != nil {
		return nil, err
	}

	env, err := s.tokens.Issue(profileID)
	if err != nil {
		return nil, err
	}
	issuedAt := time.Unix(env.Token.IssuedAt, 0).UTC()
	s.metrics.RecordIssue()

	if s.dispatcher != nil {
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTokenIssued,
			SubjectID: profileID,
			Timestamp: issuedAt,
			Payload: events.TokenIssuedPayload{
				IssuedBy:  caller.ID,
				IssuedAt:  issuedAt,
				ExpiresAt: env.ExpiresAt.UTC(),
			},
		}
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("token issued event failed", zap.String("profile_id", profileID), zap.Error(err))
		}
	}

	return &IssuedQR{
		ProfileID: profileID,
		Envelope:  env.Text,
		ScanURL:   s.ScanURL(env.Text),
		IssuedAt:  issuedAt,
		ExpiresAt: env.ExpiresAt.UTC(),
	}, nil
}

// Scan verifies an envelope presented by a scanning client.
func (s *QRService) Scan(ctx context.Context, envelope, origin string) (*qrtoken.Accepted, error) {
	accepted, err := s.tokens.Verify(ctx, envelope, origin)
	if err != nil {
		reason, _ := qrtoken.ReasonOf(err)
		s.metrics.RecordScan(string(reason))
		return nil, err
	}
	s.metrics.RecordScan("Accepted")
	return accepted, nil
}

// History returns the caller's profile scan log.
func (s *QRService) History(ctx context.Context, caller Caller, profileID string, days, limit int) ([]domain.ScanEvent, error) {
	if _, err := s.authorize(ctx, caller, profileID); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.History(ctx, profileID, days, limit)
}

// ScanURL embeds envelope in the public scan URL.
func (s *QRService) ScanURL(envelope string) string {
	return s.baseURL + ScanPath + "?d=" + url.QueryEscape(envelope)
}

func (s *QRService) authorize(ctx context.Context, caller Caller, profileID string) (*domain.Profile, error) {
	profile, err := s.profiles.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if caller.Type == domain.SubjectTypeOperator {
		return profile, nil
	}
	if caller.Type != domain.SubjectTypeOwner || profile.OwnerID != caller.ID {
		return nil, ErrNotProfileOwner
	}
	return profile, nil
}
