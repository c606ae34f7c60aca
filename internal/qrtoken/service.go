package qrtoken

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hoyn-app/profile-qr/internal/domain"
)

// ProfileStore resolves verified subjects to profile records.
type ProfileStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*domain.Profile, error)
}

// ScanLogger receives scan outcomes. Implementations must not block.
type ScanLogger interface {
	Record(subjectID, origin string, succeeded bool)
}

// Config holds the externally supplied protocol parameters.
type Config struct {
	IssuerTag        string
	AuthorizedOrigin string
	MaxAge           time.Duration
	ClockSkew        time.Duration
}

// Dependencies bundles keys and collaborators for the service.
type Dependencies struct {
	EncryptionKey Key
	SigningKey    []byte
	Profiles      ProfileStore
	Scans         ScanLogger
	Logger        *zap.Logger
	Clock         Clock
}

// Envelope is the result of an issuance.
type Envelope struct {
	Text      string
	Token     domain.Token
	ExpiresAt time.Time
}

// Accepted is the result of a successful verification.
type Accepted struct {
	Token   domain.Token
	Profile *domain.Profile
}

// SubjectID returns the verified subject.
func (a *Accepted) SubjectID() string {
	return a.Token.SubjectID
}

// Service issues and verifies QR envelopes. It holds no mutable state after
// construction and is safe for concurrent use.
type Service struct {
	cfg       Config
	codec     *Codec
	signer    *Signer
	freshness *FreshnessChecker
	profiles  ProfileStore
	scans     ScanLogger
	logger    *zap.Logger
	now       Clock
}

// NewService validates configuration and wires the pipeline stages.
func NewService(cfg Config, deps Dependencies) (*Service, error) {
	if strings.TrimSpace(cfg.IssuerTag) == "" {
		return nil, errors.New("issuer tag is required")
	}
	if strings.TrimSpace(cfg.AuthorizedOrigin) == "" {
		return nil, errors.New("authorized origin is required")
	}
	if len(deps.SigningKey) == 0 {
		return nil, errors.New("signing key is required")
	}
	if hmac.Equal(deps.SigningKey, deps.EncryptionKey) {
		return nil, errors.New("signing key must differ from the encryption key")
	}
	if deps.Profiles == nil {
		return nil, errors.New("profile store is required")
	}

	codec, err := NewCodec(deps.EncryptionKey)
	if err != nil {
		return nil, err
	}

	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scans := deps.Scans
	if scans == nil {
		scans = discardScans{}
	}

	return &Service{
		cfg:       cfg,
		codec:     codec,
		signer:    NewSigner(deps.SigningKey),
		freshness: NewFreshnessChecker(cfg.MaxAge, cfg.ClockSkew, now),
		profiles:  deps.Profiles,
		scans:     scans,
		logger:    logger,
		now:       now,
	}, nil
}

// Issue builds a fresh token for subjectID, signs it and returns its envelope.
func (s *Service) Issue(subjectID string) (*Envelope, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, errors.New("subject id is required")
	}

	issuedAt := s.now()
	token := domain.Token{
		SubjectID: subjectID,
		IssuerTag: s.cfg.IssuerTag,
		IssuedAt:  issuedAt.Unix(),
	}
	token.Signature = s.signer.Sign(token.Fields())

	text, err := s.codec.Encode(token)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	return &Envelope{
		Text:      text,
		Token:     token,
		ExpiresAt: time.Unix(token.IssuedAt, 0).Add(s.freshness.MaxAge()),
	}, nil
}

// Verify runs the pipeline: decode, issuer, signature, freshness, subject lookup
// and finally the origin policy. It stops at the first failing stage and returns
// a *Rejection naming it.
func (s *Service) Verify(ctx context.Context, envelope, origin string) (*Accepted, error) {
	token, err := s.codec.Decode(envelope)
	if err != nil {
		return nil, s.rejected(reject(ReasonDecodeError, "", err))
	}

	if token.IssuerTag != s.cfg.IssuerTag {
		return nil, s.rejected(reject(ReasonIssuerMismatch, "", nil))
	}

	if !s.signer.Verify(token.Fields(), token.Signature) {
		return nil, s.rejected(reject(ReasonSignatureInvalid, "", nil))
	}

	if !s.freshness.IsFresh(token.IssuedAt) {
		s.scans.Record(token.SubjectID, origin, false)
		return nil, s.rejected(reject(ReasonExpired, token.SubjectID, nil))
	}

	profile, err := s.profiles.Get(ctx, token.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, s.rejected(reject(ReasonSubjectUnknown, token.SubjectID, err))
		}
		s.logger.Error("profile lookup failed", zap.String("subject_id", token.SubjectID), zap.Error(err))
		return nil, s.rejected(reject(ReasonSubjectUnknown, token.SubjectID, err))
	}

	// advisory, client reported; not a security boundary
	if origin != s.cfg.AuthorizedOrigin {
		s.scans.Record(token.SubjectID, origin, false)
		return nil, s.rejected(reject(ReasonOriginRestricted, token.SubjectID, nil))
	}

	s.scans.Record(token.SubjectID, origin, true)
	return &Accepted{Token: token, Profile: profile}, nil
}

// SubjectExists reports whether the profile store knows subjectID.
func (s *Service) SubjectExists(ctx context.Context, subjectID string) (bool, error) {
	return s.profiles.Exists(ctx, subjectID)
}

// MaxAge returns the configured freshness window.
func (s *Service) MaxAge() time.Duration {
	return s.freshness.MaxAge()
}

func (s *Service) rejected(r *Rejection) *Rejection {
	fields := []zap.Field{zap.String("reason", string(r.Reason))}
	if r.SubjectID != "" {
		fields = append(fields, zap.String("subject_id", r.SubjectID))
	}
	if r.Err != nil {
		fields = append(fields, zap.Error(r.Err))
	}
	s.logger.Info("scan rejected", fields...)
	return r
}

type discardScans struct{}

func (discardScans) Record(string, string, bool) {}
