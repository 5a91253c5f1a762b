package entity

import (
	"time"

	"github.com/google/uuid"
)

// ImageUploaded is the lifecycle event payload carried on the broker.
// Timestamps marshal as RFC 3339.
type ImageUploaded struct {
	ID               uuid.UUID `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	ObjectName       string    `json:"object_name"`
	Bucket           string    `json:"bucket"`
	ContentType      string    `json:"content_type"`
	SizeBytes        int64     `json:"size_bytes"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}
