package reaper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imgvault/imgvault/internal/entity"
	"github.com/imgvault/imgvault/pkg/logger"
	"github.com/imgvault/imgvault/pkg/types/errs"
)

type fakeLifecycle struct {
	mu sync.Mutex

	expired []*entity.Image
	listErr error

	removeErrs map[uuid.UUID]error
	removed    []uuid.UUID
	listCalls  int
}

func (f *fakeLifecycle) ListExpired(_ context.Context, _ time.Time) ([]*entity.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.expired, nil
}

func (f *fakeLifecycle) RemoveExpired(_ context.Context, image *entity.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.removeErrs[image.ID]; err != nil {
		return err
	}
	f.removed = append(f.removed, image.ID)
	return nil
}

func (f *fakeLifecycle) Upload(_ context.Context, _, _ string, _ []byte) (*entity.Image, error) {
	return nil, nil
}

func (f *fakeLifecycle) GetRecord(_ context.Context, _ uuid.UUID) (*entity.Image, error) {
	return nil, nil
}

func (f *fakeLifecycle) StreamOriginal(_ context.Context, _ uuid.UUID) (io.ReadCloser, *entity.Image, error) {
	return nil, nil, nil
}

func (f *fakeLifecycle) StreamPreview(_ context.Context, _ uuid.UUID, _ int) (io.ReadCloser, *entity.Image, error) {
	return nil, nil, nil
}

func (f *fakeLifecycle) removedIDs() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.removed...)
}

func expiredImages(n int) []*entity.Image {
	images := make([]*entity.Image, 0, n)
	for i := 0; i < n; i++ {
		images = append(images, &entity.Image{
			ID:        uuid.New(),
			ExpiresAt: time.Now().UTC().Add(-time.Minute),
		})
	}
	return images
}

func TestSweepRemovesAllExpired(t *testing.T) {
	img := &fakeLifecycle{expired: expiredImages(3)}
	r := New(img, logger.New("error"), time.Minute)

	r.sweep(context.Background())

	require.Len(t, img.removedIDs(), 3)
}

func TestSweepFailedRecordDoesNotBlockOthers(t *testing.T) {
	images := expiredImages(3)
	img := &fakeLifecycle{
		expired: images,
		removeErrs: map[uuid.UUID]error{
			images[1].ID: errors.New("i/o timeout"),
		},
	}
	r := New(img, logger.New("error"), time.Minute)

	r.sweep(context.Background())

	removed := img.removedIDs()
	require.Len(t, removed, 2)
	assert.Contains(t, removed, images[0].ID)
	assert.Contains(t, removed, images[2].ID)
	assert.NotContains(t, removed, images[1].ID)
}

func TestSweepMetadataFailureContinues(t *testing.T) {
	images := expiredImages(2)
	img := &fakeLifecycle{
		expired: images,
		removeErrs: map[uuid.UUID]error{
			images[0].ID: fmt.Errorf("remove: %w", errs.ErrMetadataPersist),
		},
	}
	r := New(img, logger.New("error"), time.Minute)

	r.sweep(context.Background())

	removed := img.removedIDs()
	require.Len(t, removed, 1)
	assert.Equal(t, images[1].ID, removed[0])
}

func TestSweepListFailureIsNonFatal(t *testing.T) {
	img := &fakeLifecycle{listErr: errors.New("connection refused")}
	r := New(img, logger.New("error"), time.Minute)

	r.sweep(context.Background())

	assert.Empty(t, img.removedIDs())
}

func TestSweepStopsOnCancellation(t *testing.T) {
	img := &fakeLifecycle{expired: expiredImages(5)}
	r := New(img, logger.New("error"), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.sweep(ctx)

	assert.Empty(t, img.removedIDs())
}

func TestStartSweepsOnIntervalAndShutsDown(t *testing.T) {
	img := &fakeLifecycle{expired: expiredImages(1)}
	r := New(img, logger.New("error"), 10*time.Millisecond)

	require.NoError(t, r.Start(context.Background()))
	require.Error(t, r.Start(context.Background()))

	assert.Eventually(t, func() bool {
		img.mu.Lock()
		defer img.mu.Unlock()
		return img.listCalls >= 2
	}, time.Second, 5*time.Millisecond)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	require.NoError(t, r.Shutdown(shutdownCtx))
}
