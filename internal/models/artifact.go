package models

import "time"

// Artifact is a stored blob addressed by an opaque UUID handle. Documents
// reference artifacts by handle only; approval swaps the handle when the
// signing hook rewrites the bytes.
type Artifact struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	ContentType string    `gorm:"size:255" json:"content_type"`
	Data        []byte    `gorm:"not null" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
