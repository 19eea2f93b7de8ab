package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/codewandler/userd-go/core/cqrs"
	"github.com/codewandler/userd-go/core/errs"
	"github.com/codewandler/userd-go/core/user"
	"github.com/codewandler/userd-go/internal/config"
)

// commandSink is the slice of the command dispatcher consumers need.
type commandSink interface {
	Dispatch(ctx context.Context, cmd cqrs.Command) error
}

// Metrics counts consumed messages per subscription and outcome.
type Metrics interface {
	MessageHandled(subscription, outcome string)
}

const (
	outcomeOK      = "ok"
	outcomeSkipped = "skipped"
	outcomeError   = "error"
)

type nopMetrics struct{}

func (nopMetrics) MessageHandled(string, string) {}

// Inbound wire payloads, produced by peer services.
type userCreatedMessage struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at,omitempty"`
}

type userDeletedMessage struct {
	ID string `json:"id"`
}

// Consumer attaches durable JetStream consumers to configured
// subscriptions and turns inbound messages into commands.
type Consumer struct {
	broker   *Broker
	commands commandSink
	log      *slog.Logger
	metrics  Metrics

	mu       sync.Mutex
	consumes []jetstream.ConsumeContext
}

type ConsumerOption func(*Consumer)

func WithConsumerLogger(log *slog.Logger) ConsumerOption {
	return func(c *Consumer) { c.log = log }
}

func WithConsumerMetrics(m Metrics) ConsumerOption {
	return func(c *Consumer) { c.metrics = m }
}

func NewConsumer(broker *Broker, commands commandSink, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		broker:   broker,
		commands: commands,
		log:      slog.Default().With(slog.String("component", "nats_consumer")),
		metrics:  nopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubscribeUserCreated consumes peer-created users and replays them
// into this service. A duplicate is acked and skipped: the user is
// already here, redelivery cannot help.
func (c *Consumer) SubscribeUserCreated(ctx context.Context, route config.SubscriptionRoute) error {
	return c.subscribe(ctx, route, c.handleUserCreated, errs.CodeUserDuplicated.Value, "user already exists, skipping")
}

// SubscribeUserDeleted consumes peer deletions. An already-deleted
// user is acked and skipped for the same reason.
func (c *Consumer) SubscribeUserDeleted(ctx context.Context, route config.SubscriptionRoute) error {
	return c.subscribe(ctx, route, c.handleUserDeleted, errs.CodeUserAlreadyDeleted.Value, "user already deleted, skipping")
}

func (c *Consumer) subscribe(
	ctx context.Context,
	route config.SubscriptionRoute,
	handle func(ctx context.Context, data []byte) error,
	skipCode string,
	skipMsg string,
) error {
	stream, err := c.broker.stream(route.Topic)
	if err != nil {
		return err
	}

	subject := subjectFor(route.Topic, route.Subscription)
	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:        streamNameFor(route.Subscription),
		FilterSubjects: []string{subject},
		AckPolicy:      jetstream.AckExplicitPolicy,
		AckWait:        30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create consumer for %q: %w", subject, err)
	}

	log := c.log.With(slog.String("subscription", route.Subscription))
	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		err := handle(ctx, msg.Data())
		switch {
		case err == nil:
			c.metrics.MessageHandled(route.Subscription, outcomeOK)
			c.ack(msg, log)
		case errs.CodeOf(err) == skipCode:
			log.InfoContext(ctx, skipMsg, slog.Any("error", err))
			c.metrics.MessageHandled(route.Subscription, outcomeSkipped)
			c.ack(msg, log)
		default:
			log.ErrorContext(ctx, "message handling failed", slog.Any("error", err))
			c.metrics.MessageHandled(route.Subscription, outcomeError)
			if nakErr := msg.Nak(); nakErr != nil {
				log.ErrorContext(ctx, "failed to nak message", slog.Any("error", nakErr))
			}
		}
	})
	if err != nil {
		return fmt.Errorf("consume %q: %w", subject, err)
	}

	c.mu.Lock()
	c.consumes = append(c.consumes, cc)
	c.mu.Unlock()

	log.InfoContext(ctx, "subscribed", slog.String("subject", subject))
	return nil
}

func (c *Consumer) ack(msg jetstream.Msg, log *slog.Logger) {
	if err := msg.Ack(); err != nil {
		log.Error("failed to ack message", slog.Any("error", err))
	}
}

// Close drains the consume loops. In-flight handlers finish before it
// returns.
func (c *Consumer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cc := range c.consumes {
		cc.Drain()
	}
	c.consumes = nil
}

func (c *Consumer) handleUserCreated(ctx context.Context, data []byte) error {
	var m userCreatedMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode user-created message: %w", err)
	}
	cmd, err := user.NewCreateUserCommand(m.ID, m.Name, m.Email, m.CreatedAt).Get()
	if err != nil {
		return err
	}
	return c.commands.Dispatch(ctx, cmd)
}

func (c *Consumer) handleUserDeleted(ctx context.Context, data []byte) error {
	var m userDeletedMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode user-deleted message: %w", err)
	}
	cmd, err := user.NewDeleteUserCommand(m.ID).Get()
	if err != nil {
		return err
	}
	return c.commands.Dispatch(ctx, cmd)
}
