package preview

import (
	"context"
	"errors"
	"fmt"

	"github.com/imgvault/imgvault/internal/entity"
	"github.com/imgvault/imgvault/internal/infrastructure"
	"github.com/imgvault/imgvault/internal/repo"
	"github.com/imgvault/imgvault/pkg/logger"
	"github.com/imgvault/imgvault/pkg/types/errs"
)

const _fallbackContentType = "application/octet-stream"

// PreviewUseCase turns one uploaded-image event into the configured set
// of stored previews. Previews are derived data: every step is
// idempotent so the whole operation can be redelivered safely.
type PreviewUseCase struct {
	blobRepo     repo.BlobRepo
	metadataRepo repo.ImageMetadataRepo
	resizer      infrastructure.ImageResizer

	sourceBucket  string
	previewBucket string
	sizes         []int

	logger logger.Interface
}

func New(
	blobRepo repo.BlobRepo,
	metadataRepo repo.ImageMetadataRepo,
	resizer infrastructure.ImageResizer,
	sourceBucket string,
	previewBucket string,
	sizes []int,
	l logger.Interface,
) *PreviewUseCase {
	return &PreviewUseCase{
		blobRepo:      blobRepo,
		metadataRepo:  metadataRepo,
		resizer:       resizer,
		sourceBucket:  sourceBucket,
		previewBucket: previewBucket,
		sizes:         sizes,
		logger:        l,
	}
}

func (uc *PreviewUseCase) Generate(ctx context.Context, event *entity.ImageUploaded) error {
	bucket := event.Bucket
	if bucket == "" {
		bucket = uc.sourceBucket
	}

	// 1. fetch the original
	data, err := uc.blobRepo.DownloadBytes(ctx, bucket, event.ObjectName)
	if err != nil {
		return fmt.Errorf("PreviewUseCase - Generate - uc.blobRepo.DownloadBytes: %w", err)
	}

	// 2. resize to each positive target size
	sizes := make([]int, 0, len(uc.sizes))
	for _, size := range uc.sizes {
		if size <= 0 {
			uc.logger.Warn("skipping non-positive preview size: %d", size)
			continue
		}
		sizes = append(sizes, size)
	}

	previews, err := uc.resizer.ResizeSet(ctx, event.ContentType, data, sizes)
	if err != nil {
		return fmt.Errorf("PreviewUseCase - Generate - uc.resizer.ResizeSet: %w", err)
	}

	if len(previews) == 0 {
		uc.logger.Warn("no previews generated for object %s", event.ObjectName)
		return nil
	}

	// 3. the record may have expired and been reaped while we were
	// resizing; uploading now would orphan the previews forever
	_, err = uc.metadataRepo.GetByID(ctx, event.ID)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			uc.logger.Warn("record %s is gone, skipping preview upload", event.ID)
			return nil
		}
		return fmt.Errorf("PreviewUseCase - Generate - uc.metadataRepo.GetByID: %w", err)
	}

	contentType := event.ContentType
	if contentType == "" {
		contentType = _fallbackContentType
	}

	// 4. store each variant under its deterministic name
	for size, content := range previews {
		previewName := entity.BuildPreviewName(event.ObjectName, size)

		err = uc.blobRepo.Upload(ctx, uc.previewBucket, previewName, content, contentType)
		if err != nil {
			return fmt.Errorf("PreviewUseCase - Generate - uc.blobRepo.Upload: %w", err)
		}

		uc.logger.Info("preview uploaded: %s (%d bytes) for original %s", previewName, len(content), event.ObjectName)
	}

	return nil
}
