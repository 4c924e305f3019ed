package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"VestLedger/internal/core"
	"VestLedger/internal/directory"
	"VestLedger/internal/ingestion"
	"VestLedger/internal/observability"
	"VestLedger/internal/persistence"
	"VestLedger/internal/query"
	"VestLedger/internal/server"
	"VestLedger/internal/store"
	"VestLedger/internal/store/memory"
	"VestLedger/internal/store/postgres"
)

func main() {
	logger := observability.NewLogger("main")
	logger.Info().Msg("VestLedger starting")

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// --- Context with graceful shutdown ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// --- Observability ---
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	healthChecker := observability.NewHealthChecker()

	// --- Store backend ---
	var (
		db      *sql.DB
		backend store.Backend
	)
	switch cfg.Store {
	case "postgres":
		db, err = openPostgres(ctx, cfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer db.Close()
		backend = postgres.New(db)
		healthChecker.Register("postgres", db.PingContext)
	default:
		backend = memory.New()
		logger.Warn().Msg("using in-memory store, state is lost on exit")
	}
	defer backend.Close()

	// --- Account directory ---
	var accounts core.Directory
	switch cfg.Directory {
	case "postgres":
		pgDir := directory.NewPostgres(db)
		for _, name := range cfg.Accounts {
			if err := pgDir.Register(ctx, name); err != nil {
				logger.Fatal().Err(err).Str("account", string(name)).Msg("register account")
			}
		}
		accounts = pgDir
	default:
		accounts = directory.NewStatic(cfg.Accounts...)
	}

	// --- Recovery: resume the receipt chain from the action log ---
	engineCfg := core.Config{
		Self:                   cfg.Self,
		InvariantCheckInterval: cfg.InvariantCheckInterval,
		IdempotencyCapacity:    cfg.IdempotencyLRUCapacity,
	}
	var (
		persistChan chan *core.Receipt
		actionLog   *persistence.ActionLogReader
		dbChecker   core.DBIdempotencyChecker
		recentIDs   []string
	)
	if db != nil {
		actionLog = persistence.NewActionLogReader(db)
		tip, found, err := actionLog.Tip(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("load chain tip")
		}
		if found {
			engineCfg.StartSequence = tip.NextSequence
			engineCfg.PrevHash = tip.StateHash
			logger.Info().Int64("next_sequence", tip.NextSequence).Msg("resuming receipt chain")
		} else {
			logger.Info().Msg("empty action log, starting from genesis")
		}

		pgChecker := persistence.NewPostgresIdempotencyChecker(db)
		dbChecker = pgChecker
		recentIDs, err = pgChecker.RecentRequestIDs(ctx, cfg.IdempotencyLRUCapacity)
		if err != nil {
			logger.Warn().Err(err).Msg("could not load recent request ids")
		}
		persistChan = make(chan *core.Receipt, cfg.PersistChanSize)
	}

	// --- NATS ---
	var (
		nc          *nats.Conn
		natsJS      jetstream.JetStream
		publisher   *ingestion.OutboundPublisher
		publishChan chan *core.Receipt
		rawChan     chan ingestion.RawMessage
	)
	natsLogger := observability.NewLogger("nats")
	if cfg.NATSURL != "" {
		nc, natsJS, err = ingestion.ConnectNATS(cfg.NATSURL, natsLogger)
		if err != nil {
			logger.Fatal().Err(err).Msg("nats connect")
		}
		defer nc.Close()
		healthChecker.Register("nats", func(context.Context) error {
			if !nc.IsConnected() {
				return errors.New("nats disconnected")
			}
			return nil
		})

		if err := ingestion.EnsureStreams(ctx, natsJS); err != nil {
			logger.Fatal().Err(err).Msg("ensure NATS streams")
		}
		if err := ingestion.EnsureOutboundStream(ctx, natsJS); err != nil {
			logger.Fatal().Err(err).Msg("ensure outbound stream")
		}

		publishChan = make(chan *core.Receipt, 4096)
		publisher = ingestion.NewOutboundPublisher(natsJS, publishChan, observability.NewLogger("publisher"))
		rawChan = make(chan ingestion.RawMessage, 4096)
	}

	// --- Ledger engine ---
	engineLogger := observability.NewLogger("engine")
	deps := core.Deps{
		Backend:   backend,
		Directory: accounts,
		Clock:     core.SystemClock{},
		DBChecker: dbChecker,
		Metrics:   metrics,
		Logger:    &engineLogger,
	}
	if publisher != nil {
		deps.Notifier = publisher
		deps.PublishChan = publishChan
	}
	if persistChan != nil {
		deps.PersistChan = persistChan
	}
	engine := core.NewEngine(engineCfg, deps)
	engine.WarmIdempotency(recentIDs)

	if err := engine.CheckInvariants(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ledger invariants violated at startup")
	}
	healthChecker.Register("invariants", engine.CheckInvariants)

	// --- Services ---
	var history query.HistorySource
	if actionLog != nil {
		history = actionLog
	}
	queryService := query.NewQueryService(backend, core.SystemClock{}, engine, history, metrics)

	keys, err := server.ParseKeyRing(cfg.APIKeys)
	if err != nil {
		logger.Fatal().Err(err).Msg("VEST_API_KEYS")
	}
	if keys.Len() == 0 {
		logger.Warn().Msg("no API keys configured, every caller is anonymous")
	}

	grpcServer, err := server.NewGRPCServer(cfg.GRPCAddr, cfg.HTTPAddr, &server.ServerDeps{
		Service:       server.NewLedgerService(engine, queryService),
		Keys:          keys,
		HealthChecker: healthChecker,
		Logger:        observability.NewLogger("server"),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build server")
	}

	// --- Start goroutines ---
	errChan := make(chan error, 10)

	// Producers feed the persist channel; it is closed once they have all
	// returned.
	var producers sync.WaitGroup
	goProducer := func(f func() error) {
		producers.Add(1)
		go func() {
			defer producers.Done()
			if err := f(); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- err
			}
		}()
	}

	// 1. Persistence worker, on its own context so it can drain after shutdown
	persistDone := make(chan error, 1)
	if persistChan != nil {
		worker := persistence.NewPersistenceWorker(db, persistChan, cfg.PersistBatchSize, cfg.PersistFlushTimeout,
			metrics, observability.NewLogger("persistence"))
		go func() {
			persistDone <- worker.Run(context.Background())
		}()
	} else {
		persistDone <- nil
	}

	// 2. NATS ingestion and outbound publishing
	var subscriber *ingestion.NATSSubscriber
	if natsJS != nil {
		subscriber = ingestion.NewNATSSubscriber(natsJS, rawChan, natsLogger)
		if err := subscriber.Subscribe(ctx, ingestion.DefaultSubjects()); err != nil {
			logger.Fatal().Err(err).Msg("nats subscribe")
		}
		processor := ingestion.NewProcessor(engine, rawChan, metrics, observability.NewLogger("ingestion"))
		goProducer(func() error { return processor.Run(ctx) })
		go func() {
			if err := publisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- err
			}
		}()
	}

	// 3. gRPC server and HTTP/JSON gateway
	goProducer(func() error { return grpcServer.StartGRPC(ctx) })
	goProducer(func() error { return grpcServer.StartHTTPGateway(ctx) })

	// 4. Prometheus metrics server
	go func() {
		if err := serveMetrics(ctx, cfg.MetricsAddr, logger); err != nil {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	healthChecker.SetReady(true)
	logger.Info().
		Int64("sequence", engine.Sequence()).
		Str("grpc", cfg.GRPCAddr).
		Str("http", cfg.HTTPAddr).
		Str("metrics", cfg.MetricsAddr).
		Str("store", cfg.Store).
		Bool("nats", natsJS != nil).
		Msg("VestLedger ready")

	// --- Wait for shutdown signal ---
	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errChan:
		logger.Error().Err(err).Msg("goroutine failed, shutting down")
	}

	// --- Graceful shutdown ---
	healthChecker.SetReady(false)
	if subscriber != nil {
		subscriber.Stop()
	}
	cancel()
	producers.Wait()

	if persistChan != nil {
		close(persistChan)
	}
	select {
	case err := <-persistDone:
		if err != nil {
			logger.Error().Err(err).Msg("persistence worker")
		}
	case <-time.After(30 * time.Second):
		logger.Error().Msg("persistence drain timed out")
	}

	logger.Info().Int64("sequence", engine.Sequence()).Msg("VestLedger shutdown complete")
}

func openPostgres(ctx context.Context, cfg Config, logger zerolog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	logger.Info().Msg("Postgres connected")

	migrator := persistence.NewMigrator(db, cfg.MigrationsDir, observability.NewLogger("migrate"))
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info().Msg("migrations applied")
	return db, nil
}

func serveMetrics(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		_ = srv.Shutdown(shutCtx)
	}()

	logger.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
