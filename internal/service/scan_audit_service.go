package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hoyn-app/profile-qr/internal/domain"
	"github.com/hoyn-app/profile-qr/internal/events"
	"github.com/hoyn-app/profile-qr/internal/repository"
)

// DefaultScanHistoryDays bounds scan history queries when the caller gives no window.
const DefaultScanHistoryDays = 30

// ScanAuditService persists scan outcomes and serves the scan history.
type ScanAuditService struct {
	dispatcher events.Dispatcher
	scans      repository.ScanEventRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewScanAuditService creates the service.
func NewScanAuditService(dispatcher events.Dispatcher, scans repository.ScanEventRepository, logger *zap.Logger) *ScanAuditService {
	return &ScanAuditService{
		dispatcher: dispatcher,
		scans:      scans,
		logger:     logger,
		now:        time.Now,
	}
}

// RegisterHandlers subscribes to events.
func (s *ScanAuditService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventScanRecorded, s.handleScanRecorded)
	s.dispatcher.Subscribe(events.EventTokenIssued, s.handleTokenIssued)
}

func (s *ScanAuditService) handleScanRecorded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ScanRecordedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	s.logger.Info("ScanRecorded",
		zap.String("subject_id", event.SubjectID),
		zap.String("origin", payload.Origin),
		zap.Bool("succeeded", payload.Succeeded))

	if s.scans == nil {
		return nil
	}
	return s.scans.Create(ctx, &domain.ScanEvent{
		ID:        event.ID,
		ProfileID: event.SubjectID,
		Origin:    payload.Origin,
		Succeeded: payload.Succeeded,
		ScannedAt: event.Timestamp,
	})
}

func (s *ScanAuditService) handleTokenIssued(_ context.Context, event events.Event) error {
	s.logger.Info("TokenIssued", zap.String("subject_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}

// History returns recent scans of a profile, newest first.
func (s *ScanAuditService) History(ctx context.Context, profileID string, days, limit int) ([]domain.ScanEvent, error) {
	if days <= 0 {
		days = DefaultScanHistoryDays
	}
	if s.scans == nil {
		return nil, nil
	}
	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	return s.scans.ListByProfile(ctx, profileID, since, limit)
}
