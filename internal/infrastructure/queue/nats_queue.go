package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"birdreel-server/internal/config"
	"birdreel-server/internal/domain/retry"
	"birdreel-server/internal/domain/video"
	"birdreel-server/internal/infrastructure/metrics"
)

// MessageHandler processes one generation message. The returned bool is
// whether the message reached a final outcome and can be acknowledged;
// a false return requests redelivery.
type MessageHandler func(ctx context.Context, msg *video.GenerationMessage) (bool, error)

// NATSQueue publishes and consumes generation messages over JetStream.
type NATSQueue struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	stream  string
	subject string
	durable string
	policy  retry.Policy
	sub     *nats.Subscription
	log     zerolog.Logger
}

func NewNATSQueue(cfg *config.Config, log zerolog.Logger) (*NATSQueue, error) {
	logger := log.With().Str("component", "nats-queue").Logger()

	conn, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	q := &NATSQueue{
		conn:    conn,
		js:      js,
		stream:  cfg.NATSStream,
		subject: cfg.NATSSubject,
		durable: cfg.NATSDurable,
		policy:  retry.DefaultPolicy(),
		log:     logger,
	}
	q.policy.MaxRetries = cfg.NATSMaxDeliver

	if err := q.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

func (q *NATSQueue) ensureStream() error {
	_, err := q.js.StreamInfo(q.stream)
	if err == nil {
		return nil
	}
	_, err = q.js.AddStream(&nats.StreamConfig{
		Name:      q.stream,
		Subjects:  []string{q.subject},
		Retention: nats.WorkQueuePolicy,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", q.stream, err)
	}
	q.log.Info().Str("stream", q.stream).Str("subject", q.subject).Msg("created jetstream stream")
	return nil
}

// Publish enqueues one generation message. The record id doubles as the
// message id so broker-side deduplication drops double publishes.
func (q *NATSQueue) Publish(ctx context.Context, msg *video.GenerationMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal generation message: %w", err)
	}
	_, err = q.js.Publish(q.subject, data, nats.MsgId(msg.ID), nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("publish generation message: %w", err)
	}
	q.log.Debug().Str("video_id", msg.ID).Msg("generation message published")
	return nil
}

// Subscribe starts the durable consumer. Delivery is at-least-once; the
// handler must be idempotent under duplicates.
func (q *NATSQueue) Subscribe(ctx context.Context, handler MessageHandler) error {
	sub, err := q.js.Subscribe(q.subject, func(m *nats.Msg) {
		var msg video.GenerationMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			q.log.Error().Err(err).Msg("malformed generation message dropped")
			metrics.RecordQueueMessage("malformed")
			m.Term()
			return
		}

		done, err := handler(ctx, &msg)
		if done {
			if err != nil {
				q.log.Warn().Err(err).Str("video_id", msg.ID).Msg("message finished with error")
			}
			metrics.RecordQueueMessage("acked")
			m.Ack()
			return
		}

		attempt := 1
		if meta, metaErr := m.Metadata(); metaErr == nil {
			attempt = int(meta.NumDelivered)
		}
		delay := q.policy.CalculateDelay(attempt)
		q.log.Info().
			Err(err).
			Str("video_id", msg.ID).
			Int("attempt", attempt).
			Dur("redeliver_in", delay).
			Msg("message requeued")
		metrics.RecordQueueMessage("requeued")
		m.NakWithDelay(delay)
	},
		nats.Durable(q.durable),
		nats.ManualAck(),
		nats.MaxDeliver(q.policy.MaxRetries),
		nats.AckWait(q.policy.MaxDelay),
	)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", q.subject, err)
	}

	q.sub = sub
	q.log.Info().Str("subject", q.subject).Str("durable", q.durable).Msg("generation consumer started")
	return nil
}

// Close drains the subscription and closes the connection.
func (q *NATSQueue) Close() {
	if q.sub != nil {
		_ = q.sub.Drain()
	}
	q.conn.Close()
}

var _ video.Publisher = (*NATSQueue)(nil)
