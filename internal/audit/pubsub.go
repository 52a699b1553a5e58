package audit

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// PubSubWriter publishes advisory events to a Pub/Sub topic for downstream
// consumers (analytics, alerting). Publishing is fire-and-forget: the client
// batches internally and Write never blocks on the broker.
type PubSubWriter struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

func NewPubSubWriter(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSubWriter, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &PubSubWriter{
		client: client,
		topic:  client.Topic(topicID),
		logger: logger,
	}, nil
}

func (w *PubSubWriter) Write(event *Event) {
	b, err := json.Marshal(map[string]any{
		"request_id":      event.RequestID,
		"session_id":      event.SessionID,
		"identity_id":     event.IdentityID,
		"timestamp":       event.Timestamp,
		"category":        event.Category,
		"action":          event.Action,
		"severity":        event.Severity,
		"detail":          event.Detail,
		"message_preview": event.MessagePreview,
		"language":        event.Language,
		"intents":         event.Intents,
		"tool_name":       event.ToolName,
		"latency_ms":      event.LatencyMs,
		"metadata":        event.Metadata,
	})
	if err != nil {
		w.logger.Error("pubsub marshal failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)

	// Publish returns immediately; the result is checked in a goroutine so a
	// slow broker never stalls request handling.
	res := w.topic.Publish(ctx, &pubsub.Message{
		Data: b,
		Attributes: map[string]string{
			"category": string(event.Category),
			"action":   string(event.Action),
			"severity": string(event.Severity),
		},
	})
	go func() {
		defer cancel()
		if _, err := res.Get(ctx); err != nil {
			w.logger.Warn("pubsub publish failed",
				zap.String("request_id", event.RequestID),
				zap.Error(err),
			)
		}
	}()
}

func (w *PubSubWriter) Close() {
	w.topic.Stop()
	if err := w.client.Close(); err != nil {
		w.logger.Warn("pubsub client close failed", zap.Error(err))
	}
}
