package persistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/imgvault/imgvault/internal/entity"
	"github.com/imgvault/imgvault/pkg/postgres"
	"github.com/imgvault/imgvault/pkg/types/errs"
)

const (
	// Table
	imagesTable = "images"

	// Columns
	idColumn               = "id"
	originalFilenameColumn = "original_filename"
	objectNameColumn       = "object_name"
	bucketColumn           = "bucket"
	contentTypeColumn      = "content_type"
	sizeBytesColumn        = "size_bytes"
	createdAtColumn        = "created_at"
	expiresAtColumn        = "expires_at"
)

type ImageMetadataRepo struct {
	*postgres.Postgres
}

func NewImageMetadataRepo(pg *postgres.Postgres) *ImageMetadataRepo {
	return &ImageMetadataRepo{pg}
}

func (r *ImageMetadataRepo) Create(ctx context.Context, image *entity.Image) error {
	sql, args, err := r.Builder.
		Insert(imagesTable).
		Columns(
			idColumn,
			originalFilenameColumn,
			objectNameColumn,
			bucketColumn,
			contentTypeColumn,
			sizeBytesColumn,
			createdAtColumn,
			expiresAtColumn,
		).
		Values(
			image.ID,
			image.OriginalFilename,
			image.ObjectName,
			image.Bucket,
			image.ContentType,
			image.SizeBytes,
			image.CreatedAt,
			image.ExpiresAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("ImageMetadataRepo - Create - r.Builder.ToSql: %w", err)
	}

	// Pool / Tx
	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("ImageMetadataRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

func (r *ImageMetadataRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Image, error) {
	sql, args, err := r.selectImages().
		Where(squirrel.Eq{idColumn: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - GetByID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var image entity.Image
	err = executor.QueryRow(ctx, sql, args...).Scan(
		&image.ID,
		&image.OriginalFilename,
		&image.ObjectName,
		&image.Bucket,
		&image.ContentType,
		&image.SizeBytes,
		&image.CreatedAt,
		&image.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ImageMetadataRepo - GetByID: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("ImageMetadataRepo - GetByID - executor.QueryRow: %w", err)
	}

	return &image, nil
}

func (r *ImageMetadataRepo) ListExpired(ctx context.Context, now time.Time) ([]*entity.Image, error) {
	sql, args, err := r.selectImages().
		Where(squirrel.LtOrEq{expiresAtColumn: now}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - ListExpired - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - ListExpired - executor.Query: %w", err)
	}
	defer rows.Close()

	var images []*entity.Image

	for rows.Next() {
		var image entity.Image
		err = rows.Scan(
			&image.ID,
			&image.OriginalFilename,
			&image.ObjectName,
			&image.Bucket,
			&image.ContentType,
			&image.SizeBytes,
			&image.CreatedAt,
			&image.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ImageMetadataRepo - ListExpired - rows.Scan: %w", err)
		}

		images = append(images, &image)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - ListExpired - rows.Err: %w", err)
	}

	return images, nil
}

func (r *ImageMetadataRepo) Delete(ctx context.Context, id uuid.UUID) error {
	sql, args, err := r.Builder.
		Delete(imagesTable).
		Where(squirrel.Eq{idColumn: id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ImageMetadataRepo - Delete - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("ImageMetadataRepo - Delete - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ImageMetadataRepo - Delete: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *ImageMetadataRepo) selectImages() squirrel.SelectBuilder {
	return r.Builder.
		Select(
			idColumn,
			originalFilenameColumn,
			objectNameColumn,
			bucketColumn,
			contentTypeColumn,
			sizeBytesColumn,
			createdAtColumn,
			expiresAtColumn,
		).
		From(imagesTable)
}
