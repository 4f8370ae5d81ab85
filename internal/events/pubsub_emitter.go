package events

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
)

// PubSubEmitter publishes audit events to a Google Cloud Pub/Sub topic.
// Publish results are collected off the request path.
type PubSubEmitter struct {
	ctx    context.Context
	client *pubsub.Client
	topic  *pubsub.Topic
}

func NewPubSubEmitter(ctx context.Context, projectID, topicID string) (*PubSubEmitter, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("events: pubsub client: %w", err)
	}

	return &PubSubEmitter{
		ctx:    ctx,
		client: client,
		topic:  client.Topic(topicID),
	}, nil
}

func (e *PubSubEmitter) Emit(event AuditEvent) {
	b, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("kind", event.Kind).Msg("audit event marshal failed")
		return
	}

	res := e.topic.Publish(e.ctx, &pubsub.Message{
		Data: b,
		Attributes: map[string]string{
			"kind":   event.Kind,
			"action": event.Action,
		},
	})

	go func() {
		if _, err := res.Get(e.ctx); err != nil {
			log.Error().Err(err).
				Str("kind", event.Kind).
				Str("record_id", event.RecordID).
				Msg("audit event publish failed")
		}
	}()
}

// Close flushes pending publishes and releases the client.
func (e *PubSubEmitter) Close() error {
	e.topic.Stop()
	return e.client.Close()
}
