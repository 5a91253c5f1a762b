package infrastructure

import (
	"context"

	"github.com/imgvault/imgvault/internal/entity"
)

type (
	// EventPublisher delivers lifecycle events best-effort: callers
	// decide whether a failed publish is fatal.
	EventPublisher interface {
		PublishUploaded(ctx context.Context, event *entity.ImageUploaded) error
		Close() error
	}

	// ImageResizer produces one aspect-preserving variant per size,
	// each fitting a size x size box.
	ImageResizer interface {
		ResizeSet(ctx context.Context, contentType string, data []byte, sizes []int) (map[int][]byte, error)
	}
)
