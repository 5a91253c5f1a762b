package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/imgvault/imgvault/internal/entity"
	"github.com/imgvault/imgvault/internal/infrastructure"
	"github.com/imgvault/imgvault/internal/repo"
	"github.com/imgvault/imgvault/pkg/logger"
	"github.com/imgvault/imgvault/pkg/types/errs"
)

type ImageUseCase struct {
	blobRepo     repo.BlobRepo
	metadataRepo repo.ImageMetadataRepo
	transactor   repo.Transactor
	publisher    infrastructure.EventPublisher

	imagesBucket  string
	previewBucket string
	ttl           time.Duration
	allowedTypes  map[string]bool

	logger logger.Interface
}

func New(
	blobRepo repo.BlobRepo,
	metadataRepo repo.ImageMetadataRepo,
	transactor repo.Transactor,
	publisher infrastructure.EventPublisher,
	imagesBucket string,
	previewBucket string,
	ttl time.Duration,
	allowedContentTypes []string,
	l logger.Interface,
) *ImageUseCase {
	allowed := make(map[string]bool, len(allowedContentTypes))
	for _, ct := range allowedContentTypes {
		allowed[ct] = true
	}

	return &ImageUseCase{
		blobRepo:      blobRepo,
		metadataRepo:  metadataRepo,
		transactor:    transactor,
		publisher:     publisher,
		imagesBucket:  imagesBucket,
		previewBucket: previewBucket,
		ttl:           ttl,
		allowedTypes:  allowed,
		logger:        l,
	}
}

// Upload ingests an original: validate, store the blob, persist the
// record transactionally, then publish the lifecycle event best-effort.
func (uc *ImageUseCase) Upload(ctx context.Context, filename, contentType string, data []byte) (*entity.Image, error) {
	// 1. validation, before any side effect
	if !uc.allowedTypes[contentType] {
		return nil, fmt.Errorf("ImageUseCase - Upload: %w: %s", errs.ErrUnsupportedMediaType, contentType)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("ImageUseCase - Upload: %w", errs.ErrEmptyPayload)
	}

	imageID := uuid.New()
	objectName := entity.BuildObjectName(imageID, filename)

	// 2. blob first; no metadata is written if storage rejects it
	err := uc.blobRepo.Upload(ctx, uc.imagesBucket, objectName, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("ImageUseCase - Upload - uc.blobRepo.Upload: %w: %v", errs.ErrStorageUnavailable, err)
	}

	now := time.Now().UTC()

	image := &entity.Image{
		ID:               imageID,
		OriginalFilename: filename,
		ObjectName:       objectName,
		Bucket:           uc.imagesBucket,
		ContentType:      contentType,
		SizeBytes:        int64(len(data)),
		CreatedAt:        now,
		ExpiresAt:        now.Add(uc.ttl),
	}

	// 3. the record becomes visible only once this commits. On failure
	// the blob is left behind on purpose: an orphaned blob is
	// reclaimable, lost metadata is not, and a compensating delete
	// could itself fail.
	err = uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		return uc.metadataRepo.Create(ctx, image)
	})
	if err != nil {
		return nil, fmt.Errorf("ImageUseCase - Upload - uc.transactor.WithinTransaction: %w: %v", errs.ErrMetadataPersist, err)
	}

	// 4. best-effort publish after commit; delivery is not part of the
	// ingestion contract
	err = uc.publisher.PublishUploaded(ctx, image.UploadedEvent())
	if err != nil {
		uc.logger.Warn("failed to publish uploaded event for image %s: %v", image.ID, err)
	}

	return image, nil
}

func (uc *ImageUseCase) GetRecord(ctx context.Context, id uuid.UUID) (*entity.Image, error) {
	image, err := uc.metadataRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ImageUseCase - GetRecord - uc.metadataRepo.GetByID: %w", err)
	}

	return image, nil
}

func (uc *ImageUseCase) StreamOriginal(ctx context.Context, id uuid.UUID) (io.ReadCloser, *entity.Image, error) {
	image, err := uc.metadataRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("ImageUseCase - StreamOriginal - uc.metadataRepo.GetByID: %w", err)
	}

	body, err := uc.blobRepo.Download(ctx, image.Bucket, image.ObjectName)
	if err != nil {
		return nil, nil, wrapDownloadErr("StreamOriginal", err)
	}

	return body, image, nil
}

// StreamPreview streams the deterministic variant for size. A preview
// that was never generated is a not-found, not a backend fault.
func (uc *ImageUseCase) StreamPreview(ctx context.Context, id uuid.UUID, size int) (io.ReadCloser, *entity.Image, error) {
	image, err := uc.metadataRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("ImageUseCase - StreamPreview - uc.metadataRepo.GetByID: %w", err)
	}

	previewName := entity.BuildPreviewName(image.ObjectName, size)

	body, err := uc.blobRepo.Download(ctx, uc.previewBucket, previewName)
	if err != nil {
		return nil, nil, wrapDownloadErr("StreamPreview", err)
	}

	return body, image, nil
}

func (uc *ImageUseCase) ListExpired(ctx context.Context, now time.Time) ([]*entity.Image, error) {
	images, err := uc.metadataRepo.ListExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("ImageUseCase - ListExpired - uc.metadataRepo.ListExpired: %w", err)
	}

	return images, nil
}

// RemoveExpired cascades deletion for one expired record: original
// blob, then previews, then the metadata row. Metadata goes last so a
// crash mid-cascade can only leave dangling metadata that the next
// sweep finishes, never orphaned storage behind a deleted record.
func (uc *ImageUseCase) RemoveExpired(ctx context.Context, image *entity.Image) error {
	// 1. original; absent key counts as already done
	err := uc.blobRepo.Delete(ctx, image.Bucket, image.ObjectName)
	if err != nil {
		return fmt.Errorf("ImageUseCase - RemoveExpired - uc.blobRepo.Delete: %w", err)
	}

	// 2. previews under the deterministic prefix
	keys, err := uc.blobRepo.ListKeys(ctx, uc.previewBucket, entity.PreviewPrefix(image.ObjectName))
	if err != nil {
		return fmt.Errorf("ImageUseCase - RemoveExpired - uc.blobRepo.ListKeys: %w", err)
	}

	for _, key := range keys {
		err = uc.blobRepo.Delete(ctx, uc.previewBucket, key)
		if err != nil {
			return fmt.Errorf("ImageUseCase - RemoveExpired - uc.blobRepo.Delete preview: %w", err)
		}
	}

	// 3. metadata, in its own transaction
	err = uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		return uc.metadataRepo.Delete(ctx, image.ID)
	})
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			// deleted concurrently; already in the desired state
			return nil
		}
		return fmt.Errorf("ImageUseCase - RemoveExpired - uc.metadataRepo.Delete: %w: %v", errs.ErrMetadataPersist, err)
	}

	return nil
}

func wrapDownloadErr(op string, err error) error {
	if errors.Is(err, errs.ErrObjectNotFound) {
		return fmt.Errorf("ImageUseCase - %s - uc.blobRepo.Download: %w", op, err)
	}

	return fmt.Errorf("ImageUseCase - %s - uc.blobRepo.Download: %w: %v", op, errs.ErrStorageUnavailable, err)
}
