package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTokenIssued  EventType = "token_issued"
	EventScanRecorded EventType = "scan_recorded"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TokenIssuedPayload payload.
type TokenIssuedPayload struct {
	IssuedBy  string    `json:"issued_by"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ScanRecordedPayload payload.
type ScanRecordedPayload struct {
	Origin    string `json:"origin"`
	Succeeded bool   `json:"succeeded"`
}
