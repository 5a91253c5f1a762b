package reaper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/imgvault/imgvault/internal/usecase"
	"github.com/imgvault/imgvault/pkg/logger"
	"github.com/imgvault/imgvault/pkg/types/errs"
)

// Reaper deletes expired records on a fixed interval. One sweep runs at
// a time: the ticker loop executes the sweep synchronously, so a slow
// sweep delays the next tick instead of overlapping it.
type Reaper struct {
	img    usecase.ImageUseCase
	logger logger.Interface

	sweepInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(img usecase.ImageUseCase, l logger.Interface, sweepInterval time.Duration) *Reaper {
	return &Reaper{
		img:           img,
		logger:        l,
		sweepInterval: sweepInterval,
	}
}

func (r *Reaper) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return fmt.Errorf("Reaper - Start - worker already started")
	}

	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				r.sweep(r.ctx)
			}
		}
	}()

	return nil
}

// sweep performs one scan-and-delete cycle. A record whose cascade
// fails is skipped, not retried inline: its metadata survives, so the
// next sweep picks it up again.
func (r *Reaper) sweep(ctx context.Context) {
	now := time.Now().UTC()

	images, err := r.img.ListExpired(ctx, now)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Error(err, "Reaper - sweep - r.img.ListExpired")
		}
		return
	}

	for _, image := range images {
		if ctx.Err() != nil {
			return
		}

		err = r.img.RemoveExpired(ctx, image)
		if err != nil {
			// storage is already gone when only the metadata delete
			// failed; that one deserves an error, the rest retry
			// quietly on the next cycle
			if errors.Is(err, errs.ErrMetadataPersist) {
				r.logger.Error(err, "Reaper - sweep - r.img.RemoveExpired")
			} else {
				r.logger.Warn("keeping metadata of image %s for retry: %v", image.ID, err)
			}
			continue
		}

		r.logger.Info("expired image %s deleted", image.ID)
	}
}

func (r *Reaper) Shutdown(ctx context.Context) error {
	if !r.started.Load() {
		return nil
	}

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})

	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return nil
	}
}
