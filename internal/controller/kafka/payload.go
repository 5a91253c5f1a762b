package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/imgvault/imgvault/internal/entity"
)

// parseUploadedEvent decodes a lifecycle event payload and checks the
// fields without which the message can never be processed. Errors here
// are permanent: redelivery would fail identically.
func parseUploadedEvent(value []byte) (*entity.ImageUploaded, error) {
	var event entity.ImageUploaded

	if err := json.Unmarshal(value, &event); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}

	if event.ObjectName == "" {
		return nil, fmt.Errorf("payload missing object_name")
	}

	return &event, nil
}
