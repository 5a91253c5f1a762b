package repo

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/imgvault/imgvault/internal/entity"
)

type (
	// BlobRepo is key-addressed object storage. Delete is idempotent:
	// an already-absent key (or bucket) is success.
	BlobRepo interface {
		Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error
		Download(ctx context.Context, bucket, key string) (io.ReadCloser, error)
		DownloadBytes(ctx context.Context, bucket, key string) ([]byte, error)
		Delete(ctx context.Context, bucket, key string) error
		ListKeys(ctx context.Context, bucket, prefix string) ([]string, error)
	}

	// ImageMetadataRepo is the durable record store.
	ImageMetadataRepo interface {
		Create(ctx context.Context, image *entity.Image) error
		GetByID(ctx context.Context, id uuid.UUID) (*entity.Image, error)
		ListExpired(ctx context.Context, now time.Time) ([]*entity.Image, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	Transactor interface {
		WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error
	}
)
