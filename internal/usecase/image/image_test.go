package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imgvault/imgvault/internal/entity"
	"github.com/imgvault/imgvault/pkg/logger"
	"github.com/imgvault/imgvault/pkg/types/errs"
)

const (
	testImagesBucket  = "images"
	testPreviewBucket = "preview"
	testTTL           = time.Hour
)

var testAllowedTypes = []string{"image/jpeg", "image/png", "image/gif"}

type uploadCall struct {
	bucket      string
	key         string
	contentType string
	data        []byte
}

type fakeBlobRepo struct {
	uploads   []uploadCall
	uploadErr error

	downloadBody string
	downloadErr  error

	deleted    []string
	deleteErrs map[string]error

	listedKeys []string
	listErr    error
}

func (f *fakeBlobRepo) Upload(_ context.Context, bucket, key string, data []byte, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, uploadCall{bucket, key, contentType, data})
	return nil
}

func (f *fakeBlobRepo) Download(_ context.Context, _, _ string) (io.ReadCloser, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return io.NopCloser(strings.NewReader(f.downloadBody)), nil
}

func (f *fakeBlobRepo) DownloadBytes(ctx context.Context, bucket, key string) ([]byte, error) {
	body, err := f.Download(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (f *fakeBlobRepo) Delete(_ context.Context, _, key string) error {
	if err := f.deleteErrs[key]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobRepo) ListKeys(_ context.Context, _, _ string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listedKeys, nil
}

type fakeMetadataRepo struct {
	records map[uuid.UUID]*entity.Image

	createErr error
	deleteErr error
	deleted   []uuid.UUID
}

func newFakeMetadataRepo() *fakeMetadataRepo {
	return &fakeMetadataRepo{records: make(map[uuid.UUID]*entity.Image)}
}

func (f *fakeMetadataRepo) Create(_ context.Context, image *entity.Image) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.records[image.ID] = image
	return nil
}

func (f *fakeMetadataRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Image, error) {
	image, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("fakeMetadataRepo: %w", errs.ErrRecordNotFound)
	}
	return image, nil
}

func (f *fakeMetadataRepo) ListExpired(_ context.Context, now time.Time) ([]*entity.Image, error) {
	var expired []*entity.Image
	for _, image := range f.records {
		if !image.ExpiresAt.After(now) {
			expired = append(expired, image)
		}
	}
	return expired, nil
}

func (f *fakeMetadataRepo) Delete(_ context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.records[id]; !ok {
		return fmt.Errorf("fakeMetadataRepo: %w", errs.ErrRecordNotFound)
	}
	delete(f.records, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeTransactor struct {
	calls int
}

func (f *fakeTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakePublisher struct {
	published []*entity.ImageUploaded
	err       error
}

func (f *fakePublisher) PublishUploaded(_ context.Context, event *entity.ImageUploaded) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, event)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func newUseCase(blob *fakeBlobRepo, meta *fakeMetadataRepo, pub *fakePublisher) *ImageUseCase {
	return New(
		blob,
		meta,
		&fakeTransactor{},
		pub,
		testImagesBucket,
		testPreviewBucket,
		testTTL,
		testAllowedTypes,
		logger.New("error"),
	)
}

func TestUploadRejectsUnsupportedContentType(t *testing.T) {
	blob := &fakeBlobRepo{}
	uc := newUseCase(blob, newFakeMetadataRepo(), &fakePublisher{})

	_, err := uc.Upload(context.Background(), "doc.pdf", "application/pdf", []byte("data"))

	require.ErrorIs(t, err, errs.ErrUnsupportedMediaType)
	assert.Empty(t, blob.uploads, "validation failure must not reach the blob store")
}

func TestUploadRejectsEmptyPayload(t *testing.T) {
	blob := &fakeBlobRepo{}
	uc := newUseCase(blob, newFakeMetadataRepo(), &fakePublisher{})

	_, err := uc.Upload(context.Background(), "cat.png", "image/png", nil)

	require.ErrorIs(t, err, errs.ErrEmptyPayload)
	assert.Empty(t, blob.uploads)
}

func TestUploadPersistsRecordAndPublishes(t *testing.T) {
	blob := &fakeBlobRepo{}
	meta := newFakeMetadataRepo()
	pub := &fakePublisher{}
	uc := newUseCase(blob, meta, pub)

	data := []byte("png-bytes")

	image, err := uc.Upload(context.Background(), "cat.png", "image/png", data)
	require.NoError(t, err)

	assert.Equal(t, int64(len(data)), image.SizeBytes)
	assert.Equal(t, "image/png", image.ContentType)
	assert.Equal(t, testImagesBucket, image.Bucket)
	assert.Equal(t, image.ID.String()+".png", image.ObjectName)
	assert.Equal(t, image.CreatedAt.Add(testTTL), image.ExpiresAt)

	require.Len(t, blob.uploads, 1)
	assert.Equal(t, image.ObjectName, blob.uploads[0].key)
	assert.Equal(t, testImagesBucket, blob.uploads[0].bucket)

	_, ok := meta.records[image.ID]
	assert.True(t, ok, "record must be persisted")

	require.Len(t, pub.published, 1)
	assert.Equal(t, image.ID, pub.published[0].ID)
	assert.Equal(t, image.ObjectName, pub.published[0].ObjectName)
}

func TestUploadDistinctObjectNamesForIdenticalFilenames(t *testing.T) {
	uc := newUseCase(&fakeBlobRepo{}, newFakeMetadataRepo(), &fakePublisher{})

	first, err := uc.Upload(context.Background(), "same.png", "image/png", []byte("a"))
	require.NoError(t, err)

	second, err := uc.Upload(context.Background(), "same.png", "image/png", []byte("b"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ObjectName, second.ObjectName)
}

func TestUploadBlobFailureLeavesNoMetadata(t *testing.T) {
	blob := &fakeBlobRepo{uploadErr: errors.New("connection refused")}
	meta := newFakeMetadataRepo()
	uc := newUseCase(blob, meta, &fakePublisher{})

	_, err := uc.Upload(context.Background(), "cat.png", "image/png", []byte("data"))

	require.ErrorIs(t, err, errs.ErrStorageUnavailable)
	assert.Empty(t, meta.records)
}

func TestUploadMetadataFailureKeepsBlob(t *testing.T) {
	blob := &fakeBlobRepo{}
	meta := newFakeMetadataRepo()
	meta.createErr = errors.New("deadlock detected")
	uc := newUseCase(blob, meta, &fakePublisher{})

	_, err := uc.Upload(context.Background(), "cat.png", "image/png", []byte("data"))

	require.ErrorIs(t, err, errs.ErrMetadataPersist)
	// the orphaned blob is reclaimable; no compensating delete
	assert.Len(t, blob.uploads, 1)
	assert.Empty(t, blob.deleted)
}

func TestUploadPublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	uc := newUseCase(&fakeBlobRepo{}, newFakeMetadataRepo(), pub)

	image, err := uc.Upload(context.Background(), "cat.png", "image/png", []byte("data"))

	require.NoError(t, err)
	require.NotNil(t, image)
}

func TestGetRecordNotFound(t *testing.T) {
	uc := newUseCase(&fakeBlobRepo{}, newFakeMetadataRepo(), &fakePublisher{})

	_, err := uc.GetRecord(context.Background(), uuid.New())

	require.ErrorIs(t, err, errs.ErrRecordNotFound)
}

func TestStreamOriginalRoundTrip(t *testing.T) {
	blob := &fakeBlobRepo{downloadBody: "original-bytes"}
	meta := newFakeMetadataRepo()
	pub := &fakePublisher{}
	uc := newUseCase(blob, meta, pub)

	image, err := uc.Upload(context.Background(), "cat.png", "image/png", []byte("original-bytes"))
	require.NoError(t, err)

	body, record, err := uc.StreamOriginal(context.Background(), image.ID)
	require.NoError(t, err)
	defer body.Close()

	b, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "original-bytes", string(b))
	assert.Equal(t, image.ID, record.ID)
}

func TestStreamPreviewNotGeneratedIsNotFound(t *testing.T) {
	blob := &fakeBlobRepo{downloadErr: fmt.Errorf("fake: %w", errs.ErrObjectNotFound)}
	meta := newFakeMetadataRepo()
	uc := newUseCase(blob, meta, &fakePublisher{})

	image := &entity.Image{ID: uuid.New(), ObjectName: "x.png", Bucket: testImagesBucket}
	meta.records[image.ID] = image

	_, _, err := uc.StreamPreview(context.Background(), image.ID, 256)

	require.ErrorIs(t, err, errs.ErrObjectNotFound)
	assert.NotErrorIs(t, err, errs.ErrStorageUnavailable)
}

func TestStreamPreviewBackendFaultIsUpstreamError(t *testing.T) {
	blob := &fakeBlobRepo{downloadErr: errors.New("i/o timeout")}
	meta := newFakeMetadataRepo()
	uc := newUseCase(blob, meta, &fakePublisher{})

	image := &entity.Image{ID: uuid.New(), ObjectName: "x.png", Bucket: testImagesBucket}
	meta.records[image.ID] = image

	_, _, err := uc.StreamPreview(context.Background(), image.ID, 256)

	require.ErrorIs(t, err, errs.ErrStorageUnavailable)
}

func expiredImage(meta *fakeMetadataRepo) *entity.Image {
	image := &entity.Image{
		ID:         uuid.New(),
		ObjectName: "expired.png",
		Bucket:     testImagesBucket,
		ExpiresAt:  time.Now().UTC().Add(-time.Minute),
	}
	meta.records[image.ID] = image
	return image
}

func TestRemoveExpiredDeletesBlobPreviewsThenMetadata(t *testing.T) {
	blob := &fakeBlobRepo{listedKeys: []string{"expired_256.png", "expired_512.png"}}
	meta := newFakeMetadataRepo()
	uc := newUseCase(blob, meta, &fakePublisher{})

	image := expiredImage(meta)

	require.NoError(t, uc.RemoveExpired(context.Background(), image))

	assert.Equal(t, []string{"expired.png", "expired_256.png", "expired_512.png"}, blob.deleted)
	assert.Equal(t, []uuid.UUID{image.ID}, meta.deleted)
}

func TestRemoveExpiredTransientBlobFailureKeepsMetadata(t *testing.T) {
	blob := &fakeBlobRepo{deleteErrs: map[string]error{"expired.png": errors.New("i/o timeout")}}
	meta := newFakeMetadataRepo()
	uc := newUseCase(blob, meta, &fakePublisher{})

	image := expiredImage(meta)

	err := uc.RemoveExpired(context.Background(), image)

	require.Error(t, err)
	assert.Empty(t, meta.deleted, "metadata must survive a failed blob delete")
	_, ok := meta.records[image.ID]
	assert.True(t, ok)
}

func TestRemoveExpiredRetriesAfterTransientFault(t *testing.T) {
	blob := &fakeBlobRepo{deleteErrs: map[string]error{"expired.png": errors.New("i/o timeout")}}
	meta := newFakeMetadataRepo()
	uc := newUseCase(blob, meta, &fakePublisher{})

	image := expiredImage(meta)

	require.Error(t, uc.RemoveExpired(context.Background(), image))

	// fault clears; the next sweep finishes the cascade
	blob.deleteErrs = nil

	require.NoError(t, uc.RemoveExpired(context.Background(), image))
	assert.Equal(t, []uuid.UUID{image.ID}, meta.deleted)
}

func TestRemoveExpiredWithAbsentStorageStillDeletesMetadata(t *testing.T) {
	// idempotent deletes report success for already-absent keys, and
	// the preview listing is empty
	blob := &fakeBlobRepo{}
	meta := newFakeMetadataRepo()
	uc := newUseCase(blob, meta, &fakePublisher{})

	image := expiredImage(meta)

	require.NoError(t, uc.RemoveExpired(context.Background(), image))
	assert.Equal(t, []uuid.UUID{image.ID}, meta.deleted)
}

func TestRemoveExpiredPreviewListFailureKeepsMetadata(t *testing.T) {
	blob := &fakeBlobRepo{listErr: errors.New("i/o timeout")}
	meta := newFakeMetadataRepo()
	uc := newUseCase(blob, meta, &fakePublisher{})

	image := expiredImage(meta)

	require.Error(t, uc.RemoveExpired(context.Background(), image))
	assert.Empty(t, meta.deleted)
}

func TestRemoveExpiredMetadataFailureIsMetadataPersist(t *testing.T) {
	blob := &fakeBlobRepo{}
	meta := newFakeMetadataRepo()
	meta.deleteErr = errors.New("connection reset")
	uc := newUseCase(blob, meta, &fakePublisher{})

	image := expiredImage(meta)

	err := uc.RemoveExpired(context.Background(), image)

	require.ErrorIs(t, err, errs.ErrMetadataPersist)
}

func TestRemoveExpiredConcurrentlyDeletedRecordIsSuccess(t *testing.T) {
	blob := &fakeBlobRepo{}
	meta := newFakeMetadataRepo()
	uc := newUseCase(blob, meta, &fakePublisher{})

	// record never stored: the metadata delete reports not-found
	image := &entity.Image{ID: uuid.New(), ObjectName: "gone.png", Bucket: testImagesBucket}

	require.NoError(t, uc.RemoveExpired(context.Background(), image))
}

func TestListExpiredFiltersByExpiry(t *testing.T) {
	meta := newFakeMetadataRepo()
	uc := newUseCase(&fakeBlobRepo{}, meta, &fakePublisher{})

	expired := expiredImage(meta)

	fresh := &entity.Image{ID: uuid.New(), ExpiresAt: time.Now().UTC().Add(time.Hour)}
	meta.records[fresh.ID] = fresh

	images, err := uc.ListExpired(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	require.Len(t, images, 1)
	assert.Equal(t, expired.ID, images[0].ID)
}
