package dto

import (
	"time"

	"github.com/hoyn-app/profile-qr/internal/domain"
	"github.com/hoyn-app/profile-qr/internal/qrtoken"
	"github.com/hoyn-app/profile-qr/internal/service"
)

// IssueQRResponse is returned by POST /v1/profiles/:id/qr.
type IssueQRResponse struct {
	ProfileID     string    `json:"profile_id"`
	Envelope      string    `json:"envelope"`
	ScanURL       string    `json:"scan_url"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	MaxAgeSeconds int64     `json:"max_age_seconds"`
}

// NewIssueQRResponse maps an issuance result.
func NewIssueQRResponse(qr *service.IssuedQR) IssueQRResponse {
	return IssueQRResponse{
		ProfileID:     qr.ProfileID,
		Envelope:      qr.Envelope,
		ScanURL:       qr.ScanURL,
		IssuedAt:      qr.IssuedAt,
		ExpiresAt:     qr.ExpiresAt,
		MaxAgeSeconds: int64(qr.ExpiresAt.Sub(qr.IssuedAt).Seconds()),
	}
}

// ScanRequest carries an envelope read from a QR code.
type ScanRequest struct {
	Envelope string `json:"envelope"`
}

// ProfileView is the public part of a profile shown to scanners.
type ProfileView struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// ScanResponse is returned for an accepted envelope.
type ScanResponse struct {
	SubjectID string      `json:"subject_id"`
	IssuedAt  time.Time   `json:"issued_at"`
	Profile   ProfileView `json:"profile"`
}

// NewScanResponse maps an accepted verification.
func NewScanResponse(accepted *qrtoken.Accepted) ScanResponse {
	resp := ScanResponse{
		SubjectID: accepted.SubjectID(),
		IssuedAt:  time.Unix(accepted.Token.IssuedAt, 0).UTC(),
		Profile:   ProfileView{ID: accepted.SubjectID()},
	}
	if p := accepted.Profile; p != nil {
		resp.Profile = ProfileView{ID: p.ID, DisplayName: p.DisplayName, Description: p.Description}
	}
	return resp
}

// ScanEventResponse is one entry of a scan history.
type ScanEventResponse struct {
	ID        string    `json:"id"`
	Origin    string    `json:"origin"`
	Succeeded bool      `json:"succeeded"`
	ScannedAt time.Time `json:"scanned_at"`
}

// ScanHistoryResponse is returned by GET /v1/profiles/:id/scans.
type ScanHistoryResponse struct {
	ProfileID string              `json:"profile_id"`
	Days      int                 `json:"days"`
	Total     int                 `json:"total"`
	Succeeded int                 `json:"succeeded"`
	Scans     []ScanEventResponse `json:"scans"`
}

// NewScanHistoryResponse summarises scan events.
func NewScanHistoryResponse(profileID string, days int, scans []domain.ScanEvent) ScanHistoryResponse {
	resp := ScanHistoryResponse{
		ProfileID: profileID,
		Days:      days,
		Total:     len(scans),
		Scans:     make([]ScanEventResponse, 0, len(scans)),
	}
	for _, s := range scans {
		if s.Succeeded {
			resp.Succeeded++
		}
		resp.Scans = append(resp.Scans, ScanEventResponse{
			ID:        s.ID,
			Origin:    s.Origin,
			Succeeded: s.Succeeded,
			ScannedAt: s.ScannedAt,
		})
	}
	return resp
}
