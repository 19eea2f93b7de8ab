// Command userd runs the user service: HTTP API, MongoDB persistence
// and NATS pubsub, wired together with explicit constructor injection.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/codewandler/userd-go/adapters/httpapi"
	mongostore "github.com/codewandler/userd-go/adapters/mongo"
	natsbus "github.com/codewandler/userd-go/adapters/nats"
	prommetrics "github.com/codewandler/userd-go/adapters/prometheus"
	"github.com/codewandler/userd-go/core/cqrs"
	"github.com/codewandler/userd-go/core/user"
	"github.com/codewandler/userd-go/internal/config"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := newLogger(cfg)
	slog.SetDefault(log)
	log.Info("starting",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.Int("port", cfg.Server.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	// Persistence.
	client, db, err := mongostore.Open(cfg.Mongo, log)
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error("mongodb disconnect failed", slog.Any("error", err))
		}
	}()

	repo := mongostore.NewUserRepository(db, mongostore.WithLogger(log))
	if err := repo.EnsureIndexes(startupCtx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	// Metrics.
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	userMetrics := prommetrics.NewUserMetrics(registry)
	consumerMetrics := prommetrics.NewConsumerMetrics(registry)

	// Dispatchers and handlers.
	events := cqrs.NewEventDispatcher(cqrs.WithLogger(log))
	commands := cqrs.NewCommandDispatcher()
	queries := cqrs.NewQueryDispatcher()

	handlerOpts := []user.HandlerOption{user.WithLogger(log), user.WithMetrics(userMetrics)}
	cqrs.MustRegisterCommand(commands, user.NewCreateUserHandler(repo, events, handlerOpts...).Handle)
	cqrs.MustRegisterCommand(commands, user.NewUpdateUserHandler(repo, events, handlerOpts...).Handle)
	cqrs.MustRegisterCommand(commands, user.NewDeleteUserHandler(repo, events, handlerOpts...).Handle)
	cqrs.MustRegisterQuery(queries, user.NewGetUserByIDHandler(repo, handlerOpts...).Handle)

	cqrs.SubscribeEvent(events, func(ctx context.Context, e user.DeletedEvent) error {
		log.InfoContext(ctx, "user deleted",
			slog.String("user_id", e.ID),
			slog.Time("deleted_at", e.DeletedAt),
		)
		return nil
	})

	// Messaging.
	broker, err := natsbus.NewBroker(natsbus.Connect(cfg.Nats), cfg.Pubsub, natsbus.WithBrokerLogger(log))
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer func() {
		if err := broker.Close(); err != nil {
			log.Error("nats close failed", slog.Any("error", err))
		}
	}()

	consumer := natsbus.NewConsumer(broker, commands,
		natsbus.WithConsumerLogger(log),
		natsbus.WithConsumerMetrics(consumerMetrics),
	)
	defer consumer.Close()

	// Consumer callbacks inherit this context, so it must outlive
	// startup and cancel on shutdown.
	if cfg.Pubsub != nil {
		if err := wirePubsub(ctx, cfg.Pubsub, broker, consumer, events); err != nil {
			return err
		}
	}

	// HTTP.
	api := httpapi.NewHandler(commands, queries,
		httpapi.WithLogger(log),
		httpapi.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.Routes(cfg.Server),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	consumer.Close()
	events.Wait()
	return err
}

// wirePubsub resolves the configured routes and attaches publishers
// and consumers to them. Every configured key must resolve; a typo in
// config is a startup failure, not a silent no-op.
func wirePubsub(
	ctx context.Context,
	pubsub *config.Pubsub,
	broker *natsbus.Broker,
	consumer *natsbus.Consumer,
	events *cqrs.EventDispatcher,
) error {
	updatedRoute, err := pubsub.Message(config.MessageKeyUserUpdated)
	if err != nil {
		return err
	}
	deletedRoute, err := pubsub.Message(config.MessageKeyUserDeleted)
	if err != nil {
		return err
	}
	cqrs.SubscribeEvent(events, broker.UserUpdatedPublisher(updatedRoute))
	cqrs.SubscribeEvent(events, broker.UserDeletedPublisher(deletedRoute))

	createdSub, err := pubsub.Subscription(config.SubscriptionKeyUserCreated)
	if err != nil {
		return err
	}
	deletedSub, err := pubsub.Subscription(config.SubscriptionKeyUserDeleted)
	if err != nil {
		return err
	}
	if err := consumer.SubscribeUserCreated(ctx, createdSub); err != nil {
		return fmt.Errorf("subscribe user-created: %w", err)
	}
	if err := consumer.SubscribeUserDeleted(ctx, deletedSub); err != nil {
		return fmt.Errorf("subscribe user-deleted: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.App.Env == "dev" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With(slog.String("app", cfg.App.Name))
}
