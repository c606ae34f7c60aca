package domain

import "time"

// Profile is the record a verified token resolves to.
type Profile struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
