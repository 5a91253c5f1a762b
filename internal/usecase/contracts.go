package usecase

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/imgvault/imgvault/internal/entity"
)

type (
	// ImageUseCase owns the record lifecycle: ingestion, retrieval and
	// the expiry cascade.
	ImageUseCase interface {
		Upload(ctx context.Context, filename, contentType string, data []byte) (*entity.Image, error)
		GetRecord(ctx context.Context, id uuid.UUID) (*entity.Image, error)
		StreamOriginal(ctx context.Context, id uuid.UUID) (io.ReadCloser, *entity.Image, error)
		StreamPreview(ctx context.Context, id uuid.UUID, size int) (io.ReadCloser, *entity.Image, error)
		ListExpired(ctx context.Context, now time.Time) ([]*entity.Image, error)
		RemoveExpired(ctx context.Context, image *entity.Image) error
	}

	// PreviewUseCase derives resized variants for one uploaded image.
	PreviewUseCase interface {
		Generate(ctx context.Context, event *entity.ImageUploaded) error
	}
)
