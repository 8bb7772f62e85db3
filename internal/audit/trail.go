// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package audit

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/authbuilder/sentinel/internal/logging"
	"github.com/authbuilder/sentinel/internal/metrics"
)

// Trail is the verdict audit pipeline: an in-process gochannel Pub/Sub with
// an optional attached external publisher.
type Trail struct {
	pubSub *gochannel.GoChannel
	topic  string
	extra  message.Publisher
}

// NewTrail creates the pipeline. extra may be nil; when set (e.g. a NATS
// publisher) every event is also published there.
func NewTrail(topic string, extra message.Publisher) *Trail {
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, newWatermillLogger())
	return &Trail{pubSub: pubSub, topic: topic, extra: extra}
}

// Publish emits a verdict event asynchronously. Failures are counted and
// logged, never surfaced to the caller: the trail must not delay or fail a
// verdict response.
func (t *Trail) Publish(ctx context.Context, event *VerdictEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		metrics.AuditEventsDropped.Inc()
		logging.Ctx(ctx).Error().Err(err).Msg("marshal audit event")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("user_id", event.UserID)
	msg.Metadata.Set("status", string(event.Status))
	if event.RequestID != "" {
		msg.Metadata.Set("request_id", event.RequestID)
	}

	go func() {
		if err := t.pubSub.Publish(t.topic, msg); err != nil {
			metrics.AuditEventsDropped.Inc()
			logging.Error().Err(err).Msg("publish audit event")
			return
		}
		metrics.AuditEventsPublished.Inc()

		if t.extra != nil {
			if err := t.extra.Publish(t.topic, msg); err != nil {
				logging.Error().Err(err).Msg("publish audit event to external broker")
			}
		}
	}()
}

// Subscribe returns the raw message stream, used by tests and by Run.
func (t *Trail) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return t.pubSub.Subscribe(ctx, t.topic)
}

// Run consumes the trail and emits one structured audit line per verdict.
// It blocks until the context is cancelled, fitting the supervisor's
// service contract.
func (t *Trail) Run(ctx context.Context) error {
	messages, err := t.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe audit topic %s: %w", t.topic, err)
	}

	logging.Info().Str("topic", t.topic).Msg("audit trail consumer started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			t.handle(msg)
			msg.Ack()
		}
	}
}

func (t *Trail) handle(msg *message.Message) {
	var event VerdictEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("malformed audit event")
		return
	}

	logging.Info().
		Str("audit", "verdict").
		Str("request_id", event.RequestID).
		Str("user_id", event.UserID).
		Str("ip", event.IPAddress).
		Str("status", string(event.Status)).
		Int("risk_score", event.RiskScore).
		Str("reason", event.Reason).
		Bool("degraded", event.Degraded).
		Time("evaluated_at", event.EvaluatedAt).
		Msg("login risk verdict")
}

// Close shuts down the Pub/Sub, releasing subscribers.
func (t *Trail) Close() error {
	return t.pubSub.Close()
}
