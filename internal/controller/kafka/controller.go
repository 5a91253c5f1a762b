package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/imgvault/imgvault/internal/usecase"
	"github.com/imgvault/imgvault/pkg/logger"
)

// eventConsumer is the slice of the broker the controller needs.
// Committing an offset is how ack, reject and no-requeue nack are all
// expressed on Kafka; an uncommitted offset is redelivered after a
// group rebalance.
type eventConsumer interface {
	ReadEvent(ctx context.Context) (kafka.Message, error)
	CommitEvent(ctx context.Context, event kafka.Message) error
	Close() error
}

// KafkaController consumes lifecycle events and drives preview
// generation, one message at a time. Throughput scales by running more
// process instances in the same consumer group.
type KafkaController struct {
	prv    usecase.PreviewUseCase
	ec     eventConsumer
	logger logger.Interface

	commitTimeout  time.Duration
	processTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(
	prv usecase.PreviewUseCase,
	ec eventConsumer,
	l logger.Interface,
	commitTimeout time.Duration,
	processTimeout time.Duration,
) *KafkaController {
	return &KafkaController{
		prv:            prv,
		ec:             ec,
		logger:         l,
		commitTimeout:  commitTimeout,
		processTimeout: processTimeout,
	}
}

func (c *KafkaController) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("KafkaController - Start - controller already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		for {
			select {
			case <-c.ctx.Done():
				return
			default:
				event, err := c.ec.ReadEvent(c.ctx)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						c.logger.Error(err, "KafkaController - Start - c.ec.ReadEvent")
					}
					continue
				}

				c.handleEvent(event)
			}
		}
	}()

	return nil
}

// handleEvent resolves one delivery:
//   - unparseable payload: permanent reject (commit, never retried);
//   - processing failure: nack without requeue (commit), poison
//     messages must not loop forever;
//   - cancellation: leave the offset uncommitted so the broker's
//     redelivery governs the message's fate;
//   - success: ack (commit).
func (c *KafkaController) handleEvent(event kafka.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(fmt.Errorf("panic: %v", r), "KafkaController - handleEvent - panic")
			c.commit(event)
		}
	}()

	payload, err := parseUploadedEvent(event.Value)
	if err != nil {
		c.logger.Error(err, "KafkaController - handleEvent - rejecting malformed event")
		c.commit(event)

		return
	}

	processCtx, processCancel := context.WithTimeout(c.ctx, c.processTimeout)
	err = c.prv.Generate(processCtx, payload)
	processCancel()

	if err != nil {
		if errors.Is(err, context.Canceled) || c.ctx.Err() != nil {
			// shutdown mid-flight: neither ack nor reject
			return
		}

		c.logger.Error(err, "KafkaController - handleEvent - c.prv.Generate")
		c.commit(event)

		return
	}

	c.commit(event)
}

func (c *KafkaController) commit(event kafka.Message) {
	commitCtx, commitCancel := context.WithTimeout(c.ctx, c.commitTimeout)
	defer commitCancel()

	err := c.ec.CommitEvent(commitCtx, event)
	if err != nil {
		// the message will be redelivered; processing is idempotent
		c.logger.Error(err, "KafkaController - commit - c.ec.CommitEvent")
	}
}

func (c *KafkaController) Shutdown(ctx context.Context) error {
	if !c.started.Load() {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})

	go func() {
		c.wg.Wait()
		c.ec.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return nil
	}
}
