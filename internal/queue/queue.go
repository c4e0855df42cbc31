// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

// Package queue implements the durable job queue: enqueue/consume over a
// NATS JetStream transport via Watermill, with bounded-retention tracking
// of completed and failed jobs and a per-job exponential-backoff retry
// policy.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/eventlytics/eventlytics/internal/logging"
)

// Config configures the queue's NATS JetStream connection.
type Config struct {
	URL              string
	StreamName       string
	DurableName      string
	MaxReconnects    int
	ReconnectWait    time.Duration
	AckWaitTimeout   time.Duration
	CloseTimeout     time.Duration
	SubscribersCount int
}

// DefaultConfig returns sane defaults for local development.
func DefaultConfig() *Config {
	return &Config{
		URL:              natsgo.DefaultURL,
		StreamName:       "EVENTLYTICS_JOBS",
		DurableName:      "eventlytics-worker",
		MaxReconnects:    10,
		ReconnectWait:    2 * time.Second,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     10 * time.Second,
		SubscribersCount: 1,
	}
}

// Queue wraps a Watermill publisher and subscriber over NATS JetStream,
// providing the enqueue/consume contract with bounded retry tracking.
type Queue struct {
	cfg        *Config
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
	retry      *RetryPolicy
	ledger     *Ledger
}

// New opens a durable queue connection.
func New(cfg *Config) (*Queue, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := watermill.NewStdLogger(false, false)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("queue: nats disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("queue: nats reconnected")
		}),
	}

	pubConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}
	publisher, err := wmNats.NewPublisher(pubConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create queue publisher: %w", err)
	}

	subConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.DurableName,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			AckAsync:      false,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.MaxDeliver(1),
				natsgo.AckWait(cfg.AckWaitTimeout),
				natsgo.DeliverNew(),
			},
			DurablePrefix: cfg.DurableName,
		},
	}
	subscriber, err := wmNats.NewSubscriber(subConfig, logger)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("create queue subscriber: %w", err)
	}

	return &Queue{
		cfg:        cfg,
		publisher:  publisher,
		subscriber: subscriber,
		logger:     logger,
		retry:      DefaultRetryPolicy(),
		ledger:     NewLedger(100, 50),
	}, nil
}

// EnqueueOptions configures a single enqueue call.
type EnqueueOptions struct {
	// MessageID deduplicates the job at the transport level when set.
	MessageID string
}

// Enqueue publishes payload to topic, returning the Watermill message ID
// assigned to the job.
func (q *Queue) Enqueue(ctx context.Context, topic string, payload []byte, opts EnqueueOptions) (string, error) {
	id := opts.MessageID
	if id == "" {
		id = watermill.NewUUID()
	}
	msg := message.NewMessage(id, payload)
	msg.Metadata.Set(natsgo.MsgIdHdr, id)

	if err := q.publisher.Publish(topic, msg); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", topic, err)
	}
	return id, nil
}

// Handler processes a single job's payload. Returning an error marks the
// job for retry (up to the retry policy's ceiling) unless the error is
// wrapped as a PermanentError.
type Handler func(ctx context.Context, payload []byte) error

// Consume subscribes to topic and dispatches each message to handler,
// tracking outcomes in the bounded completed/failed ledger and retrying
// failures with exponential backoff. Blocks until ctx is canceled.
func (q *Queue) Consume(ctx context.Context, topic string, handler Handler) error {
	messages, err := q.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			q.process(ctx, topic, msg, handler)
		}
	}
}

func (q *Queue) process(ctx context.Context, topic string, msg *message.Message, handler Handler) {
	attempt := 0
	for {
		err := handler(ctx, msg.Payload)
		if err == nil {
			q.ledger.RecordCompleted(msg.UUID, topic)
			msg.Ack()
			return
		}

		if IsPermanent(err) || attempt >= q.retry.MaxRetries {
			q.ledger.RecordFailed(msg.UUID, topic, err)
			logging.Error().Err(err).Str("topic", topic).Str("message_id", msg.UUID).
				Msg("queue: job failed permanently")
			msg.Ack()
			return
		}

		backoff := q.retry.CalculateBackoff(attempt)
		logging.Warn().Err(err).Str("topic", topic).Str("message_id", msg.UUID).
			Int("attempt", attempt+1).Dur("backoff", backoff).Msg("queue: job failed, retrying")

		select {
		case <-ctx.Done():
			msg.Nack()
			return
		case <-time.After(backoff):
		}
		attempt++
	}
}

// Close gracefully shuts down the publisher and subscriber.
func (q *Queue) Close() error {
	if err := q.subscriber.Close(); err != nil {
		return err
	}
	return q.publisher.Close()
}

// Ledger returns the bounded completed/failed job ledger.
func (q *Queue) Ledger() *Ledger {
	return q.ledger
}
