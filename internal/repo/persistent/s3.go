package persistent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/imgvault/imgvault/pkg/s3client"
	"github.com/imgvault/imgvault/pkg/types/errs"
)

type BlobRepo struct {
	*s3client.S3Client
}

func NewBlobRepo(s3c *s3client.S3Client) *BlobRepo {
	return &BlobRepo{s3c}
}

func (r *BlobRepo) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := r.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("BlobRepo - Upload - r.Client.PutObject: %w", err)
	}

	return nil
}

func (r *BlobRepo) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	result, err := r.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("BlobRepo - Download: %w", errs.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("BlobRepo - Download - r.Client.GetObject: %w", err)
	}

	return result.Body, nil
}

func (r *BlobRepo) DownloadBytes(ctx context.Context, bucket, key string) ([]byte, error) {
	body, err := r.Download(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("BlobRepo - DownloadBytes: %w", err)
	}
	defer body.Close()

	b, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("BlobRepo - DownloadBytes - io.ReadAll: %w", err)
	}

	return b, nil
}

// Delete removes a key; a key or bucket that is already absent counts
// as success so expiry sweeps can be retried safely.
func (r *BlobRepo) Delete(ctx context.Context, bucket, key string) error {
	_, err := r.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("BlobRepo - Delete - r.Client.DeleteObject: %w", err)
	}

	return nil
}

// ListKeys returns every key under prefix; a missing bucket yields an
// empty listing.
func (r *BlobRepo) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(r.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("BlobRepo - ListKeys - paginator.NextPage: %w", err)
		}

		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return keys, nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noKey) || errors.As(err, &noBucket) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return true
		}
	}

	return false
}
