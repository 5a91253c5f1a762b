package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/imgvault/imgvault/internal/entity"
	"github.com/imgvault/imgvault/pkg/kafka/producer"
)

type EventPublisher struct {
	*producer.Producer
	topic string
}

func NewEventPublisher(producer *producer.Producer, topic string) *EventPublisher {
	return &EventPublisher{
		producer,
		topic,
	}
}

// PublishUploaded emits the lifecycle event keyed by image id, so all
// events of one image land on one partition.
func (ep *EventPublisher) PublishUploaded(ctx context.Context, event *entity.ImageUploaded) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("EventPublisher - PublishUploaded - json.Marshal: %w", err)
	}

	msg := kafka.Message{
		Topic: ep.topic,
		Key:   []byte(event.ID.String()),
		Value: b,
	}

	err = ep.Writer.WriteMessages(ctx, msg)
	if err != nil {
		return fmt.Errorf("EventPublisher - PublishUploaded - ep.Writer.WriteMessages: %w", err)
	}

	return nil
}

func (ep *EventPublisher) Close() error {
	err := ep.Producer.Close()
	if err != nil {
		return fmt.Errorf("EventPublisher - Close: %w", err)
	}

	return nil
}
