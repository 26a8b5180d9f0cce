package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"staybook/internal/app/bootstrap"
	"staybook/internal/app/middleware"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	"staybook/internal/infra/broker/kafka"
	"staybook/internal/infra/cache/redis"
	"staybook/internal/infra/config"
	mongostore "staybook/internal/infra/db/mongo"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/identity"
	"staybook/internal/infra/obs"
	infraoutbox "staybook/internal/infra/outbox"
	"staybook/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("dev").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("staybook stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("staybook stopped")
}

// backend is what the selected storage contributes to the application.
type backend struct {
	factory     uow.UoWFactory
	outbox      appoutbox.Outbox
	queue       infraoutbox.Queue
	idempotency middleware.IdempotencyStore
	seeder      seeder
	ready       func(ctx context.Context) error
	close       func(ctx context.Context) error
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := be.close(closeCtx); err != nil {
			logger.Warn("storage close failed", "error", err)
		}
	}()

	if err := loadFixtures(ctx, cfg.FixturesPath, be.seeder, logger); err != nil {
		return err
	}

	verifier, err := identity.NewJWTVerifier(identity.Options{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		CacheTTL: cfg.TokenCacheTTL,
	})
	if err != nil {
		return err
	}
	defer verifier.Close()

	buses := bootstrap.NewBuses(bootstrap.Deps{
		UoWFactory:  be.factory,
		Outbox:      be.outbox,
		Idempotency: be.idempotency,
		Logger:      logger,
	})
	handlers := ginserver.Handlers{
		Booking:        ginserver.BookingHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Conversation:   ginserver.ConversationHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Property:       ginserver.PropertyHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Rating:         ginserver.RatingHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Me:             ginserver.MeHandler{Queries: buses.Queries, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Verifier: verifier, Logger: logger}.Handle,
	}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: be.ready}, handlers)

	g, gctx := errgroup.WithContext(ctx)
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return err
		}
		defer producer.Close()
		worker := &infraoutbox.Worker{
			Queue:       be.queue,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
			Logger:      logger.With("component", "outbox"),
		}
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		logger.Info("outbox worker started", "brokers", cfg.KafkaBrokers)
	} else {
		logger.Warn("KAFKA_BROKERS not set, outbox worker disabled")
	}

	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (backend, error) {
	var be backend
	switch cfg.StorageBackend {
	case config.BackendMongo:
		client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB, cfg.StoreTimeout)
		if err != nil {
			return backend{}, err
		}
		if err := mongostore.EnsureIndexes(ctx, client.DB); err != nil {
			_ = client.Close(context.Background())
			return backend{}, err
		}
		outboxStore, err := infraoutbox.NewStore(ctx, client.DB)
		if err != nil {
			_ = client.Close(context.Background())
			return backend{}, err
		}
		be = backend{
			factory: mongostore.NewFactory(client.DB),
			outbox:  outboxStore,
			queue:   outboxStore,
			seeder:  mongostore.NewSeeder(client.DB),
			ready:   client.Ping,
			close:   client.Close,
		}
		if cfg.IdempotencyBackend == config.BackendMongo {
			store, err := mongostore.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
			if err != nil {
				_ = client.Close(context.Background())
				return backend{}, err
			}
			be.idempotency = store
		}
	default:
		store := memory.NewStore()
		be = backend{
			factory: store,
			outbox:  memory.Outbox{},
			queue:   store.Relay(),
			seeder:  store,
			ready:   func(context.Context) error { return nil },
			close:   func(context.Context) error { return nil },
		}
		if cfg.IdempotencyBackend == config.BackendMemory {
			be.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
		}
	}

	if cfg.IdempotencyBackend == config.BackendRedis {
		rdb, err := redis.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			_ = be.close(context.Background())
			return backend{}, err
		}
		be.idempotency = redis.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)
		closeStorage, ready := be.close, be.ready
		be.close = func(ctx context.Context) error {
			return errors.Join(rdb.Close(), closeStorage(ctx))
		}
		be.ready = func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return err
			}
			return ready(ctx)
		}
	}
	logger.Info("storage ready", "backend", cfg.StorageBackend, "idempotency", cfg.IdempotencyBackend)
	return be, nil
}
