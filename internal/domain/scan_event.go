package domain

import "time"

// ScanEvent records the outcome of a single verification attempt.
type ScanEvent struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profile_id"`
	Origin    string    `json:"origin"`
	Succeeded bool      `json:"succeeded"`
	ScannedAt time.Time `json:"scanned_at"`
}
