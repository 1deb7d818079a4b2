package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	boltadapter "github.com/viralforge/academic-records/internal/adapters/bolt"
	cacheadapter "github.com/viralforge/academic-records/internal/adapters/cache"
	eventadapter "github.com/viralforge/academic-records/internal/adapters/events"
	grpcadapter "github.com/viralforge/academic-records/internal/adapters/grpc"
	httpadapter "github.com/viralforge/academic-records/internal/adapters/http"
	"github.com/viralforge/academic-records/internal/adapters/memory"
	"github.com/viralforge/academic-records/internal/adapters/postgres"
	"github.com/viralforge/academic-records/internal/adapters/security"
	"github.com/viralforge/academic-records/internal/application"
	"github.com/viralforge/academic-records/internal/ports"
)

type Runtime struct {
	cfg       Config
	logger    *slog.Logger
	service   *application.Service
	outbox    ports.OutboxRepository
	ready     httpadapter.ReadinessCheck
	cleanupFn func()
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := NewLogger(cfg.LogLevel).With("service", cfg.ServiceID)
	slog.SetDefault(logger)
	logger.Info("bootstrapping academic records service",
		"stage", cfg.Stage,
		"storage_backend", cfg.StorageBackend,
		"revocation_backend", cfg.RevocationBackend,
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
	)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Runtime, error) {
		cleanup()
		return nil, err
	}

	rt := &Runtime{cfg: cfg, logger: logger}
	var uow ports.UnitOfWork
	switch cfg.StorageBackend {
	case StoragePostgres:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
		if err != nil {
			return fail(fmt.Errorf("connect postgres: %w", err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fail(fmt.Errorf("gorm sql db: %w", err))
		}
		closers = append(closers, func() { _ = sqlDB.Close() })
		if err := postgres.RunMigrations(ctx, db); err != nil {
			return fail(fmt.Errorf("run migrations: %w", err))
		}
		uow = postgres.NewUnitOfWork(db)
		rt.outbox = postgres.NewOutboxRepository(db)
		rt.ready = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
	default:
		logger.Warn("using in-memory storage; records are lost on restart")
		store := memory.NewStore()
		uow = store
		rt.outbox = store.Outbox()
	}

	var lockouts ports.LockoutStore = memory.NewLockoutStore()
	var revocations ports.RevocationStore
	if cfg.RedisURL != "" {
		redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fail(fmt.Errorf("connect redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		lockouts = cacheadapter.NewRedisLockoutStore(redisClient)
		if cfg.RevocationBackend == RevocationRedis {
			revocations = cacheadapter.NewRedisRevocationStore(redisClient)
		}
	}
	switch cfg.RevocationBackend {
	case RevocationBolt:
		if err := os.MkdirAll(filepath.Dir(cfg.BoltPath), 0o755); err != nil {
			return fail(fmt.Errorf("create bolt directory: %w", err))
		}
		boltStore, err := boltadapter.Open(cfg.BoltPath)
		if err != nil {
			return fail(fmt.Errorf("open bolt revocation store: %w", err))
		}
		closers = append(closers, func() { _ = boltStore.Close() })
		revocations = boltStore
	case RevocationMemory:
		revocations = memory.NewRevocationStore()
	}

	tokenSigner, err := security.NewJWTSigner(cfg.JWTKeyID, cfg.JWTIssuer, cfg.JWTPrivateKeyPEM, cfg.JWTPublicKeyPEM)
	if err != nil {
		if !cfg.AllowEphemeralJWT {
			return fail(fmt.Errorf("init jwt signer: %w", err))
		}
		logger.Warn("using ephemeral JWT keys for local/dev runtime")
		tokenSigner, err = security.NewEphemeralJWTSigner(cfg.JWTKeyID, cfg.JWTIssuer)
		if err != nil {
			return fail(fmt.Errorf("init ephemeral jwt signer: %w", err))
		}
	}

	rt.service = application.NewService(application.Dependencies{
		Config: application.Config{
			AccessTokenTTL:         cfg.AccessTokenTTL,
			RefreshTokenTTL:        cfg.RefreshTokenTTL,
			FailedLoginThreshold:   cfg.FailedThreshold,
			LockoutDuration:        cfg.LockoutDuration,
			DefaultStudentPassword: cfg.DefaultStudentPassword,
			DefaultTeacherPassword: cfg.DefaultTeacherPassword,
			AllowAdminSignup:       cfg.AllowAdminSignup,
		},
		UnitOfWork:  uow,
		Revocations: revocations,
		Lockouts:    lockouts,
		Hasher:      security.NewBcryptHasher(cfg.BcryptCost),
		TokenSigner: tokenSigner,
	})
	rt.cleanupFn = cleanup
	return rt, nil
}

// NewLogger builds the JSON logger used by every entrypoint.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// RunAPI serves HTTP and gRPC until a signal arrives. With in-memory storage
// the outbox relay runs in the same process, since no other process can
// see the store.
func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", r.cfg.HTTPPort),
		Handler:           httpadapter.NewRouter(httpadapter.NewHandler(r.service, r.ready)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	grpcServer, healthSrv := grpcadapter.NewServer(r.service)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		r.cleanupFn()
		return fmt.Errorf("listen gRPC: %w", err)
	}

	errCh := make(chan error, 3)
	go func() {
		r.logger.Info("http server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	if r.cfg.StorageBackend == StorageMemory {
		worker, closePublisher, err := r.newOutboxWorker()
		if err != nil {
			errCh <- err
		} else {
			defer closePublisher()
			go func() {
				if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					errCh <- fmt.Errorf("outbox worker: %w", err)
				}
			}()
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		r.logger.Error("server failure", "error", runErr)
	}

	healthSrv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	r.cleanupFn()
	return runErr
}

// RunWorker relays the postgres outbox until a signal arrives.
func (r *Runtime) RunWorker(ctx context.Context) error {
	defer r.cleanupFn()
	if r.cfg.StorageBackend == StorageMemory {
		return fmt.Errorf("outbox worker needs postgres storage; the in-memory API relays its own events")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker, closePublisher, err := r.newOutboxWorker()
	if err != nil {
		return err
	}
	defer closePublisher()

	r.logger.Info("outbox worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (r *Runtime) newOutboxWorker() (*eventadapter.OutboxWorker, func(), error) {
	var publisher ports.EventPublisher = eventadapter.NewLoggingPublisher(r.logger)
	closePublisher := func() {}
	if len(r.cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := eventadapter.NewKafkaPublisher(r.cfg.KafkaBrokers, r.cfg.KafkaTopicPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		publisher = kafkaPublisher
		closePublisher = func() { _ = kafkaPublisher.Close() }
	}
	worker := eventadapter.NewOutboxWorker(
		r.logger,
		r.outbox,
		publisher,
		r.cfg.OutboxPollInterval,
		r.cfg.OutboxBatchSize,
		r.cfg.OutboxClaimTTL,
		r.cfg.OutboxMaxRetries,
	)
	return worker, closePublisher, nil
}
