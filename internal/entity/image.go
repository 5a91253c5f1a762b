package entity

import (
	"time"

	"github.com/google/uuid"
)

// Image is the single persistent record of an uploaded original.
// Immutable after creation; removed only by the expiry reaper.
type Image struct {
	ID uuid.UUID `json:"id"`

	OriginalFilename string `json:"original_filename"`
	ObjectName       string `json:"object_name"`
	Bucket           string `json:"bucket"`
	ContentType      string `json:"content_type"`
	SizeBytes        int64  `json:"size_bytes"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadedEvent builds the lifecycle event published after the metadata
// transaction commits.
func (i *Image) UploadedEvent() *ImageUploaded {
	return &ImageUploaded{
		ID:               i.ID,
		OriginalFilename: i.OriginalFilename,
		ObjectName:       i.ObjectName,
		Bucket:           i.Bucket,
		ContentType:      i.ContentType,
		SizeBytes:        i.SizeBytes,
		CreatedAt:        i.CreatedAt,
		ExpiresAt:        i.ExpiresAt,
	}
}
